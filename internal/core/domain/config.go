package domain

import (
	"net"
	"strconv"
	"time"

	"go.trai.ch/zerr"
)

// FailurePolicy decides whether a plan advances past a stage containing a failed task.
type FailurePolicy string

const (
	// PolicyContinue runs every stage regardless of failures.
	PolicyContinue FailurePolicy = "continue"
	// PolicyHalt stops after the first stage containing a failure.
	PolicyHalt FailurePolicy = "halt"
)

// ParsePolicy parses a failure policy name. The empty string selects PolicyContinue.
func ParsePolicy(s string) (FailurePolicy, error) {
	switch FailurePolicy(s) {
	case "", PolicyContinue:
		return PolicyContinue, nil
	case PolicyHalt:
		return PolicyHalt, nil
	default:
		return "", zerr.With(ErrInvalidPolicy, "policy", s)
	}
}

// CommandSpec describes an external compiler invocation.
// Command may contain the placeholders {input}, {srcdir} and {root}.
type CommandSpec struct {
	Command  []string
	Stdin    bool
	DevArgs  []string
	ProdArgs []string
	// Post is an optional command that receives the compiler output on stdin.
	Post []string
}

// Enabled reports whether a command is configured.
func (c CommandSpec) Enabled() bool {
	return len(c.Command) > 0
}

// ServerConfig configures the dev server.
type ServerConfig struct {
	Host string
	Port int
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// Config is the resolved project configuration.
type Config struct {
	// Root is the absolute project root. Every path in Paths is relative to it.
	Root        string
	Paths       PathTable
	Server      ServerConfig
	Markup      CommandSpec
	Style       CommandSpec
	Policy      FailurePolicy
	Parallelism int
	Debounce    time.Duration
}

const (
	// DefaultHost is the dev server bind host.
	DefaultHost = "localhost"
	// DefaultPort is the dev server port.
	DefaultPort = 8080
	// DefaultDebounce coalesces bursts of file events.
	DefaultDebounce = 100 * time.Millisecond
)

// DefaultConfig returns the configuration used when no project file overrides it.
func DefaultConfig() Config {
	return Config{
		Paths:  DefaultPathTable(),
		Server: ServerConfig{Host: DefaultHost, Port: DefaultPort},
		Markup: CommandSpec{
			Command: []string{"pug", "--pretty", "--path", "{input}"},
			Stdin:   true,
		},
		Style: CommandSpec{
			Command:  []string{"sass", "--style=expanded", "--load-path", "{srcdir}", "{input}"},
			DevArgs:  []string{"--embed-source-map"},
			ProdArgs: []string{"--no-source-map"},
		},
		Policy:   PolicyContinue,
		Debounce: DefaultDebounce,
	}
}
