// Package shell runs external compilers such as pug and sass.
package shell

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"

	"go.trai.ch/trowel/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Executor = (*Executor)(nil)

// Executor implements ports.Executor using os/exec.
type Executor struct {
	environ func() []string
}

// NewExecutor creates a new Executor inheriting the process environment.
func NewExecutor() *Executor {
	return &Executor{environ: os.Environ}
}

// Execute runs the command and waits for it to complete.
func (e *Executor) Execute(ctx context.Context, command ports.Command, stdout, stderr io.Writer) error {
	if len(command.Args) == 0 {
		return nil
	}

	name := command.Args[0]
	args := command.Args[1:]

	cmdEnv := resolveEnvironment(e.environ(), command.PathPrefix, command.Env)

	executable := name
	if !filepath.IsAbs(name) && !strings.ContainsRune(name, filepath.Separator) {
		if lp, err := lookPath(name, cmdEnv); err == nil {
			executable = lp
		}
	}

	cmd := exec.CommandContext(ctx, executable, args...) //nolint:gosec // user configured command
	if len(cmd.Args) > 0 {
		cmd.Args[0] = name
	}
	cmd.Dir = command.Dir
	cmd.Env = cmdEnv
	cmd.Stdin = command.Stdin
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if err := cmd.Run(); err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return zerr.With(zerr.With(zerr.Wrap(err, "command failed"), "exit_code", exitCode), "command", name)
	}

	return nil
}

// resolveEnvironment overlays overrides on the system environment and prepends
// pathPrefix to PATH. The result is sorted for deterministic child environments.
func resolveEnvironment(sysEnv, pathPrefix []string, overrides map[string]string) []string {
	envMap := make(map[string]string, len(sysEnv)+len(overrides))
	for _, entry := range sysEnv {
		if k, v, ok := strings.Cut(entry, "="); ok {
			envMap[k] = v
		}
	}

	for k, v := range overrides {
		envMap[k] = v
	}

	if len(pathPrefix) > 0 {
		parts := slices.Clone(pathPrefix)
		if sysPath := envMap["PATH"]; sysPath != "" {
			parts = append(parts, sysPath)
		}
		envMap["PATH"] = strings.Join(parts, string(os.PathListSeparator))
	}

	result := make([]string, 0, len(envMap))
	for k, v := range envMap {
		result = append(result, k+"="+v)
	}
	slices.Sort(result)
	return result
}

// lookPath searches for an executable in the directories named by PATH in env.
func lookPath(file string, env []string) (string, error) {
	var path string
	for _, e := range env {
		if v, ok := strings.CutPrefix(e, "PATH="); ok {
			path = v
			break
		}
	}

	if path == "" {
		return "", exec.ErrNotFound
	}

	for _, dir := range filepath.SplitList(path) {
		if dir == "" {
			// Unix shell semantics: path element "" means "."
			dir = "."
		}
		candidate := filepath.Join(dir, file)
		if err := findExecutable(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", exec.ErrNotFound
}

func findExecutable(file string) error {
	d, err := os.Stat(file)
	if err != nil {
		return err
	}
	if m := d.Mode(); !m.IsDir() && m&0o111 != 0 {
		return nil
	}
	return os.ErrPermission
}
