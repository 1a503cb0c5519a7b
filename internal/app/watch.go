package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"go.trai.ch/trowel/internal/adapters/devserver"
	"go.trai.ch/trowel/internal/adapters/livereload"
	"go.trai.ch/trowel/internal/engine/registrar"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// Default runs the build plan once, then keeps the watcher and the dev server alive
// until ctx is cancelled.
func (a *App) Default(ctx context.Context, opts RunOptions, serve ServeOptions) error {
	hub := livereload.NewHub()

	s, err := a.newSession(opts, hub)
	if err != nil {
		return err
	}
	defer s.close(ctx)

	report, err := s.build(ctx)
	if err != nil {
		return ignoreCanceled(err)
	}
	// A failed initial build is reported but does not stop watching.
	_ = s.verdict(report)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.watch(ctx, s)
	})
	g.Go(func() error {
		return a.serve(ctx, s, hub, serve)
	})
	return ignoreCanceled(g.Wait())
}

// Watch re-runs the mapped task whenever a watched source changes, until ctx is cancelled.
func (a *App) Watch(ctx context.Context, opts RunOptions) error {
	s, err := a.newSession(opts, nil)
	if err != nil {
		return err
	}
	defer s.close(ctx)

	return ignoreCanceled(a.watch(ctx, s))
}

// Serve runs the dev server with live reload over the current destination root.
func (a *App) Serve(ctx context.Context, opts ServeOptions) error {
	s, err := a.newSession(RunOptions{OutputMode: "quiet"}, nil)
	if err != nil {
		return err
	}
	defer s.close(ctx)

	return ignoreCanceled(a.serve(ctx, s, livereload.NewHub(), opts))
}

func (a *App) watch(ctx context.Context, s *session) error {
	w, err := a.watchers()
	if err != nil {
		return err
	}

	source := filepath.Join(s.cfg.Root, s.cfg.Paths.SourceRoot())
	if err := w.Start(ctx, source); err != nil {
		_ = w.Stop()
		return err
	}

	var runs inflight
	reg := registrar.New(s.cfg.Root, s.cfg.Paths.WatchRules(), s.cfg.Debounce, func(task string, paths []string) {
		runs.do(func() {
			a.logger.Info(fmt.Sprintf("%s changed, running %s", a.describe(s.cfg.Root, paths), task))
			if _, err := s.sched.Run(ctx, s.graph, []string{task}, s.parallelism); err != nil && ctx.Err() == nil {
				a.logger.Error(zerr.With(err, "task", task))
			}
		})
	})

	a.logger.Info("watching " + source)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return reg.Run(gctx, w.Events())
	})
	g.Go(func() error {
		<-gctx.Done()
		return w.Stop()
	})

	err = g.Wait()
	runs.wait()
	return err
}

func (a *App) serve(ctx context.Context, s *session, hub *livereload.Hub, opts ServeOptions) error {
	addr := s.cfg.Server
	if opts.Host != "" {
		addr.Host = opts.Host
	}
	if opts.Port != 0 {
		addr.Port = opts.Port
	}

	dist := filepath.Join(s.cfg.Root, s.cfg.Paths.DistRoot())
	srv := devserver.New(dist, hub, devserver.WithAccessLog(a.stderr))

	a.logger.Info(fmt.Sprintf("serving %s at http://%s", dist, addr.Addr()))

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return hub.Run(ctx)
	})
	g.Go(func() error {
		return srv.ListenAndServe(ctx, addr.Addr())
	})
	return g.Wait()
}

func (a *App) describe(root string, paths []string) string {
	first := paths[0]
	if rel, err := filepath.Rel(root, first); err == nil {
		first = rel
	}
	if len(paths) == 1 {
		return first
	}
	return fmt.Sprintf("%s and %d more", first, len(paths)-1)
}

// inflight tracks task runs started by the watcher so shutdown can wait for them.
type inflight struct {
	mu     sync.Mutex
	wg     sync.WaitGroup
	closed bool
}

func (r *inflight) do(fn func()) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.wg.Add(1)
	r.mu.Unlock()

	defer r.wg.Done()
	fn()
}

func (r *inflight) wait() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.wg.Wait()
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
