// Package ports defines the core interfaces for the application.
package ports

import (
	"context"
	"io"
)

// Command is an external process invocation.
type Command struct {
	// Args holds the program name followed by its arguments.
	Args []string
	// Dir is the working directory.
	Dir string
	// Env overrides variables of the inherited environment.
	Env map[string]string
	// PathPrefix lists directories prepended to PATH.
	PathPrefix []string
	// Stdin is fed to the process when non-nil.
	Stdin io.Reader
}

// Executor defines the interface for running external commands.
//
//go:generate mockgen -source=executor.go -destination=mocks/mock_executor.go -package=mocks
type Executor interface {
	// Execute runs the command and waits for it to complete.
	// It returns an error carrying the exit code if the command fails.
	Execute(ctx context.Context, cmd Command, stdout, stderr io.Writer) error
}
