package scheduler_test

import (
	"context"
	"io"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/trowel/internal/core/domain"
	"go.trai.ch/trowel/internal/core/ports"
	"go.trai.ch/trowel/internal/core/ports/mocks"
	"go.trai.ch/trowel/internal/engine/scheduler"
	"go.uber.org/mock/gomock"
)

// fakeRunner records task start and end order and fails the configured tasks.
type fakeRunner struct {
	mu      sync.Mutex
	started []string
	begun   map[string]time.Time
	ended   map[string]time.Time
	fail    map[string]bool
	delay   map[string]time.Duration
	active  int
	peak    int
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		begun: make(map[string]time.Time),
		ended: make(map[string]time.Time),
		fail:  make(map[string]bool),
		delay: make(map[string]time.Duration),
	}
}

func (f *fakeRunner) RunTask(ctx context.Context, task domain.Task, log io.Writer) domain.Result {
	name := task.Name.String()

	f.mu.Lock()
	f.started = append(f.started, name)
	f.begun[name] = time.Now()
	f.active++
	f.peak = max(f.peak, f.active)
	d := f.delay[name]
	f.mu.Unlock()

	if d == 0 {
		d = 10 * time.Millisecond
	}
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
	_, _ = io.WriteString(log, name+" done\n")

	f.mu.Lock()
	defer f.mu.Unlock()
	f.active--
	f.ended[name] = time.Now()

	res := domain.Result{Category: task.Category, Status: domain.StatusSucceeded}
	if f.fail[name] {
		res.Status = domain.StatusFailed
		res.Err = assert.AnError
	}
	return res
}

func (f *fakeRunner) startedAt(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, n := range f.started {
		if n == name {
			return i
		}
	}
	return -1
}

func setupTracer(t *testing.T) *mocks.MockTracer {
	t.Helper()
	ctrl := gomock.NewController(t)
	tracer := mocks.NewMockTracer(ctrl)

	span := mocks.NewMockSpan(ctrl)
	span.EXPECT().End().AnyTimes()
	span.EXPECT().RecordError(gomock.Any()).AnyTimes()
	span.EXPECT().SetAttribute(gomock.Any(), gomock.Any()).AnyTimes()
	span.EXPECT().Write(gomock.Any()).DoAndReturn(func(p []byte) (int, error) {
		return len(p), nil
	}).AnyTimes()

	tracer.EXPECT().Start(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ string, _ ...ports.SpanOption) (context.Context, ports.Span) {
			return ctx, span
		},
	).AnyTimes()
	return tracer
}

func defaultGraph(t *testing.T) *domain.Graph {
	t.Helper()
	g, err := domain.DefaultGraph()
	require.NoError(t, err)
	return g
}

func TestScheduler_Run_ExpandsAggregates(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		tracer := setupTracer(t)
		tracer.EXPECT().EmitPlan(gomock.Any(),
			[]string{domain.TaskJSApp, domain.TaskJSExternal, domain.TaskJS},
			[]string{domain.TaskJS},
		)
		runner := newFakeRunner()
		s := scheduler.NewScheduler(runner, tracer)

		report, err := s.Run(t.Context(), defaultGraph(t), []string{domain.TaskJS}, 2)
		require.NoError(t, err)

		require.Len(t, report.Results, 3)
		assert.ElementsMatch(t, []string{domain.TaskJSApp, domain.TaskJSExternal}, runner.started)
		res, ok := report.Lookup(domain.TaskJS)
		require.True(t, ok)
		assert.Equal(t, domain.StatusSucceeded, res.Status)
		assert.Equal(t, 0, report.Count(domain.StatusFailed))
	})
}

func TestScheduler_Run_UnknownTarget(t *testing.T) {
	tracer := setupTracer(t)
	s := scheduler.NewScheduler(newFakeRunner(), tracer)

	_, err := s.Run(t.Context(), defaultGraph(t), []string{"nope"}, 1)
	require.Error(t, err)
	assert.ErrorContains(t, err, domain.ErrTaskNotFound.Error())
}

func TestScheduler_Run_DependencyFailureSkipsAggregate(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		tracer := setupTracer(t)
		tracer.EXPECT().EmitPlan(gomock.Any(), gomock.Any(), gomock.Any())
		runner := newFakeRunner()
		runner.fail[domain.TaskImgCSS] = true
		s := scheduler.NewScheduler(runner, tracer)

		report, err := s.Run(t.Context(), defaultGraph(t), []string{domain.TaskImg}, 4)
		require.NoError(t, err)

		failed := report.Failed()
		require.Len(t, failed, 1)
		assert.Equal(t, domain.TaskImgCSS, failed[0].Task)

		img, ok := report.Lookup(domain.TaskImg)
		require.True(t, ok)
		assert.Equal(t, domain.StatusSkipped, img.Status)
		assert.ErrorContains(t, img.Err, domain.ErrDependencyFailed.Error())

		html, ok := report.Lookup(domain.TaskImgHTML)
		require.True(t, ok)
		assert.Equal(t, domain.StatusSucceeded, html.Status)
	})
}

func TestScheduler_Run_Parallelism(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		tracer := setupTracer(t)
		tracer.EXPECT().EmitPlan(gomock.Any(), gomock.Any(), gomock.Any())
		runner := newFakeRunner()
		s := scheduler.NewScheduler(runner, tracer)

		targets := []string{domain.TaskHTML, domain.TaskFont, domain.TaskJS, domain.TaskImg}
		_, err := s.Run(t.Context(), defaultGraph(t), targets, 2)
		require.NoError(t, err)

		assert.Equal(t, 2, runner.peak)
		assert.Len(t, runner.started, 6)
	})
}

func TestScheduler_RunPlan_StageBarrier(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		tracer := setupTracer(t)
		tracer.EXPECT().EmitPlan(gomock.Any(), gomock.Any(), []string{domain.PlanBuild})
		runner := newFakeRunner()
		runner.delay[domain.TaskFont] = time.Second
		runner.delay[domain.TaskSprite] = 2 * time.Second
		s := scheduler.NewScheduler(runner, tracer)

		report, err := s.RunPlan(t.Context(), defaultGraph(t), domain.BuildPlan(), scheduler.PlanOptions{Parallelism: 8})
		require.NoError(t, err)
		require.NoError(t, report.Err())

		// The slow font task holds back the sprite stage, and the slow sprite holds back css.
		sprite := runner.startedAt(domain.TaskSprite)
		css := runner.startedAt(domain.TaskCSS)
		require.NotEqual(t, -1, sprite)
		require.NotEqual(t, -1, css)
		assert.Greater(t, sprite, runner.startedAt(domain.TaskFont))
		assert.Greater(t, css, sprite)
		assert.Len(t, runner.started, 8)

		for _, name := range []string{domain.TaskHTML, domain.TaskFont, domain.TaskJSApp, domain.TaskJSExternal, domain.TaskImgHTML, domain.TaskImgCSS} {
			assert.False(t, runner.begun[domain.TaskSprite].Before(runner.ended[name]), "sprite started before %s ended", name)
		}
		assert.False(t, runner.begun[domain.TaskCSS].Before(runner.ended[domain.TaskSprite]), "css started before sprite ended")
		assert.Equal(t, 2*time.Second, runner.begun[domain.TaskCSS].Sub(runner.begun[domain.TaskSprite]))
	})
}

func TestScheduler_RunPlan_FailurePolicy(t *testing.T) {
	tests := []struct {
		name        string
		policy      domain.FailurePolicy
		wantStarted int
		wantSkipped int
	}{
		{name: "continue", policy: domain.PolicyContinue, wantStarted: 8, wantSkipped: 0},
		{name: "halt", policy: domain.PolicyHalt, wantStarted: 6, wantSkipped: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			synctest.Test(t, func(t *testing.T) {
				tracer := setupTracer(t)
				tracer.EXPECT().EmitPlan(gomock.Any(), gomock.Any(), gomock.Any())
				runner := newFakeRunner()
				runner.fail[domain.TaskHTML] = true
				s := scheduler.NewScheduler(runner, tracer)

				report, err := s.RunPlan(t.Context(), defaultGraph(t), domain.BuildPlan(), scheduler.PlanOptions{
					Parallelism: 4,
					Policy:      tt.policy,
				})
				require.NoError(t, err)

				assert.Len(t, runner.started, tt.wantStarted)
				assert.Equal(t, tt.wantSkipped, report.Count(domain.StatusSkipped))
				assert.Len(t, report.Failed(), 1)
				assert.ErrorContains(t, report.Err(), assert.AnError.Error())

				if tt.policy == domain.PolicyHalt {
					css, ok := report.Lookup(domain.TaskCSS)
					require.True(t, ok)
					assert.ErrorContains(t, css.Err, domain.ErrStageFailed.Error())
				}
			})
		})
	}
}

func TestScheduler_RunPlan_InvalidPlan(t *testing.T) {
	s := scheduler.NewScheduler(newFakeRunner(), setupTracer(t))

	plan := domain.Plan{Name: "flat", Stages: []domain.Stage{domain.InternAll(domain.TaskSprite, domain.TaskCSS)}}
	_, err := s.RunPlan(t.Context(), defaultGraph(t), plan, scheduler.PlanOptions{})
	assert.ErrorContains(t, err, domain.ErrArtifactOrdering.Error())
}

func TestScheduler_Run_Cancelled(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		tracer := setupTracer(t)
		tracer.EXPECT().EmitPlan(gomock.Any(), gomock.Any(), gomock.Any())
		runner := newFakeRunner()
		runner.delay[domain.TaskCSS] = time.Hour
		s := scheduler.NewScheduler(runner, tracer)

		ctx, cancel := context.WithCancel(t.Context())
		go func() {
			time.Sleep(time.Second)
			cancel()
		}()

		targets := []string{domain.TaskHTML, domain.TaskFont, domain.TaskCSS}
		report, err := s.Run(ctx, defaultGraph(t), targets, 1)
		require.ErrorIs(t, err, context.Canceled)

		// Tasks start in execution order, so css holds the only slot.
		assert.Equal(t, []string{domain.TaskCSS}, runner.started)
		assert.Len(t, report.Results, 1)
	})
}
