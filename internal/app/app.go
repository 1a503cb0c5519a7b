// Package app implements the application layer for trowel.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.trai.ch/trowel/internal/core/domain"
	"go.trai.ch/trowel/internal/core/ports"
	"go.trai.ch/trowel/internal/engine/scheduler"
	"go.trai.ch/zerr"
)

// WatcherFactory creates a file system watcher for one watch session.
type WatcherFactory func() (ports.Watcher, error)

// App represents the main application logic.
type App struct {
	configLoader ports.ConfigLoader
	executor     ports.Executor
	logger       ports.Logger
	resolver     ports.SourceResolver
	filter       ports.ChangeFilter
	writer       ports.OutputWriter
	notifier     ports.Notifier
	watchers     WatcherFactory

	workDir   string
	stdout    io.Writer
	stderr    io.Writer
	lookupEnv func(string) (string, bool)
}

// New creates a new App instance.
func New(
	loader ports.ConfigLoader,
	executor ports.Executor,
	log ports.Logger,
	resolver ports.SourceResolver,
	filter ports.ChangeFilter,
	writer ports.OutputWriter,
	notifier ports.Notifier,
	watchers WatcherFactory,
) *App {
	return &App{
		configLoader: loader,
		executor:     executor,
		logger:       log,
		resolver:     resolver,
		filter:       filter,
		writer:       writer,
		notifier:     notifier,
		watchers:     watchers,
		workDir:      ".",
		stdout:       os.Stdout,
		stderr:       os.Stderr,
		lookupEnv:    os.LookupEnv,
	}
}

// WithWorkDir sets the directory the project configuration is resolved from.
func (a *App) WithWorkDir(dir string) *App {
	a.workDir = dir
	return a
}

// WithOutput redirects progress output and the access log.
// This is primarily used for testing.
func (a *App) WithOutput(stdout, stderr io.Writer) *App {
	a.stdout = stdout
	a.stderr = stderr
	return a
}

// WithEnv replaces the environment lookup used to select the build mode.
func (a *App) WithEnv(lookup func(string) (string, bool)) *App {
	a.lookupEnv = lookup
	return a
}

// RunOptions configures task execution.
type RunOptions struct {
	// OutputMode is one of auto, tty, linear, ci or quiet.
	OutputMode string
	// HaltOnError overrides the configured failure policy with halt.
	HaltOnError bool
	// Strict makes any task failure fail the command.
	Strict bool
	// Parallelism overrides the configured task parallelism when positive.
	Parallelism int
}

// ServeOptions configures the dev server. Zero values keep the configured address.
type ServeOptions struct {
	Host string
	Port int
}

// Build runs the full build plan once.
func (a *App) Build(ctx context.Context, opts RunOptions) error {
	s, err := a.newSession(opts, nil)
	if err != nil {
		return err
	}
	defer s.close(ctx)

	report, err := s.build(ctx)
	if err != nil {
		return err
	}
	return s.verdict(report)
}

// Run executes the named tasks and the tasks they depend on.
func (a *App) Run(ctx context.Context, taskNames []string, opts RunOptions) error {
	if len(taskNames) == 0 {
		return zerr.Wrap(domain.ErrTaskNotFound, "no tasks specified")
	}

	s, err := a.newSession(opts, nil)
	if err != nil {
		return err
	}
	defer s.close(ctx)

	report, err := s.sched.Run(ctx, s.graph, taskNames, s.parallelism)
	if err != nil {
		return err
	}
	return s.verdict(report)
}

// Clean removes the destination root.
func (a *App) Clean(_ context.Context) error {
	cfg, err := a.configLoader.Load(a.workDir)
	if err != nil {
		return zerr.Wrap(err, "failed to load configuration")
	}

	dist := filepath.Join(cfg.Root, cfg.Paths.DistRoot())
	rel, err := filepath.Rel(cfg.Root, dist)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return zerr.With(domain.ErrRefuseCleanRoot, "path", dist)
	}

	a.logger.Info(fmt.Sprintf("removing %s...", rel))
	if err := os.RemoveAll(dist); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to remove destination root"), "path", dist)
	}
	a.logger.Info(fmt.Sprintf("removed %s", rel))
	return nil
}

// Tasks writes every task with its category and dependencies in execution order.
func (a *App) Tasks(_ context.Context, w io.Writer) error {
	graph, err := domain.DefaultGraph()
	if err != nil {
		return err
	}

	for _, line := range taskTable(graph) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// verdict turns a report into the command result. Failures are already reported by the
// notifier and the renderer; they only fail the command under halt or strict.
func (s *session) verdict(report domain.Report) error {
	failed := report.Failed()
	if len(failed) == 0 {
		return nil
	}

	s.logger.Warn(fmt.Sprintf("%d of %d task(s) failed", len(failed), len(report.Results)))
	if s.policy == domain.PolicyHalt || s.strict {
		return errors.Join(domain.ErrBuildFailed, report.Err())
	}
	return nil
}

func (s *session) build(ctx context.Context) (domain.Report, error) {
	return s.sched.RunPlan(ctx, s.graph, domain.BuildPlan(), scheduler.PlanOptions{
		Parallelism: s.parallelism,
		Policy:      s.policy,
	})
}
