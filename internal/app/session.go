package app

import (
	"context"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.trai.ch/trowel/internal/adapters/bundler"
	"go.trai.ch/trowel/internal/adapters/copier"
	"go.trai.ch/trowel/internal/adapters/detector"
	"go.trai.ch/trowel/internal/adapters/linear"
	"go.trai.ch/trowel/internal/adapters/shell"
	"go.trai.ch/trowel/internal/adapters/sprite"
	"go.trai.ch/trowel/internal/adapters/telemetry"
	"go.trai.ch/trowel/internal/core/domain"
	"go.trai.ch/trowel/internal/core/ports"
	"go.trai.ch/trowel/internal/engine/pipeline"
	"go.trai.ch/trowel/internal/engine/scheduler"
	"go.trai.ch/trowel/internal/ui/output"
	"go.trai.ch/zerr"
)

// session holds everything one command invocation needs to run tasks.
type session struct {
	cfg         *domain.Config
	graph       *domain.Graph
	sched       *scheduler.Scheduler
	logger      ports.Logger
	renderer    ports.Renderer
	provider    *sdktrace.TracerProvider
	policy      domain.FailurePolicy
	parallelism int
	strict      bool
}

func (a *App) newSession(opts RunOptions, reload ports.ReloadPublisher) (*session, error) {
	// 1. Load the configuration
	cfg, err := a.configLoader.Load(a.workDir)
	if err != nil {
		return nil, zerr.Wrap(err, "failed to load configuration")
	}

	// 2. Build and check the task graph against the build plan
	graph, err := domain.DefaultGraph()
	if err != nil {
		return nil, err
	}
	if err := graph.ValidatePlan(domain.BuildPlan()); err != nil {
		return nil, err
	}

	s := &session{
		cfg:         cfg,
		graph:       graph,
		logger:      a.logger,
		policy:      cfg.Policy,
		parallelism: cfg.Parallelism,
		strict:      opts.Strict,
	}
	if opts.HaltOnError {
		s.policy = domain.PolicyHalt
	}
	if opts.Parallelism > 0 {
		s.parallelism = opts.Parallelism
	}

	// 3. Initialize the task runner
	mode := domain.ModeFromEnv(a.lookupEnv)
	runner := pipeline.NewRunner(cfg.Root, cfg.Paths, mode, pipeline.Deps{
		Resolver:     a.resolver,
		Filter:       a.filter,
		Writer:       a.writer,
		Notifier:     a.notifier,
		Transformers: a.transformers(cfg),
		Reload:       reload,
	})

	// 4. Initialize renderer and telemetry
	var tracer ports.Tracer = telemetry.NewNoOpTracer()
	if s.renderer = a.newRenderer(opts.OutputMode); s.renderer != nil {
		// Spans are forwarded to the renderer through the bridge.
		s.provider = sdktrace.NewTracerProvider(
			sdktrace.WithSpanProcessor(telemetry.NewBridge(s.renderer)),
		)
		tracer = telemetry.NewOTelTracer(telemetry.InstrumentationName).
			WithTracerProvider(s.provider).
			WithRenderer(s.renderer)
	}

	// 5. Initialize Scheduler
	s.sched = scheduler.NewScheduler(runner, tracer)

	return s, nil
}

func (a *App) transformers(cfg *domain.Config) map[domain.Category]ports.Transformer {
	files := copier.New()
	return map[domain.Category]ports.Transformer{
		domain.CategoryMarkup:         shell.NewCompiler(a.executor, cfg.Markup),
		domain.CategoryStyle:          shell.NewCompiler(a.executor, cfg.Style),
		domain.CategoryAppScript:      bundler.New(),
		domain.CategoryExternalScript: files,
		domain.CategorySprite:         sprite.New(),
		domain.CategoryHTMLImage:      files,
		domain.CategoryCSSImage:       files,
		domain.CategoryFont:           files,
	}
}

// newRenderer returns nil in quiet mode.
func (a *App) newRenderer(flag string) ports.Renderer {
	switch detector.ResolveMode(detector.DetectEnvironment(), flag) {
	case detector.ModeQuiet:
		return nil
	case detector.ModeTTY:
		return linear.NewRenderer(a.stdout, a.stderr, linear.WithColorProfile(output.ColorProfile))
	default:
		return linear.NewRenderer(a.stdout, a.stderr)
	}
}

func (s *session) close(ctx context.Context) {
	if s.provider != nil {
		_ = s.provider.Shutdown(context.WithoutCancel(ctx))
	}
	if s.renderer != nil {
		_ = s.renderer.Stop()
	}
}
