// Package scheduler executes task graphs with bounded parallelism and staged plans.
package scheduler

import (
	"context"
	"runtime"

	"go.trai.ch/trowel/internal/core/domain"
	"go.trai.ch/trowel/internal/core/ports"
	"go.trai.ch/zerr"
)

// PlanOptions configures RunPlan.
type PlanOptions struct {
	// Parallelism bounds concurrently running tasks; zero or less means runtime.NumCPU().
	Parallelism int
	Policy      domain.FailurePolicy
}

// Scheduler manages the execution of tasks in the dependency graph.
// It holds no per-run state and may serve concurrent runs.
type Scheduler struct {
	runner ports.TaskRunner
	tracer ports.Tracer
}

// NewScheduler creates a new Scheduler with the given dependencies.
func NewScheduler(runner ports.TaskRunner, tracer ports.Tracer) *Scheduler {
	return &Scheduler{
		runner: runner,
		tracer: tracer,
	}
}

// Run executes the targets and every task they depend on.
// Task failures are reported in the Report; the error covers unknown targets and cancellation.
func (s *Scheduler) Run(
	ctx context.Context,
	graph *domain.Graph,
	targetNames []string,
	parallelism int,
) (domain.Report, error) {
	names, err := graph.Expand(domain.InternAll(targetNames...))
	if err != nil {
		return domain.Report{}, err
	}

	s.tracer.EmitPlan(ctx, stringNames(names), targetNames)

	var report domain.Report
	err = s.execute(ctx, graph, names, parallelism, &report)
	return report, err
}

// RunPlan executes the stages of plan in order. A stage starts only after every task
// of the previous stage has finished. Under PolicyHalt, stages after the first one
// containing a failure are reported as skipped.
func (s *Scheduler) RunPlan(
	ctx context.Context,
	graph *domain.Graph,
	plan domain.Plan,
	opts PlanOptions,
) (domain.Report, error) {
	if err := graph.ValidatePlan(plan); err != nil {
		return domain.Report{}, err
	}

	stages := make([][]domain.InternedString, len(plan.Stages))
	var planned []string
	for i, stage := range plan.Stages {
		expanded, err := graph.Expand(stage)
		if err != nil {
			return domain.Report{}, err
		}
		stages[i] = expanded
		planned = append(planned, stringNames(expanded)...)
	}

	s.tracer.EmitPlan(ctx, planned, []string{plan.Name})

	var report domain.Report
	halted := false
	for i, names := range stages {
		if halted {
			for _, name := range names {
				report.Add(s.skipped(graph, name, zerr.With(zerr.Wrap(domain.ErrStageFailed, "not started"), "stage", i+1)))
			}
			continue
		}

		before := len(report.Failed())
		if err := s.execute(ctx, graph, names, opts.Parallelism, &report); err != nil {
			return report, err
		}

		if opts.Policy == domain.PolicyHalt && len(report.Failed()) > before {
			halted = true
		}
	}

	return report, nil
}

func (s *Scheduler) skipped(graph *domain.Graph, name domain.InternedString, err error) domain.Result {
	task, _ := graph.GetTask(name)
	return domain.Result{
		Task:     name.String(),
		Category: task.Category,
		Status:   domain.StatusSkipped,
		Err:      err,
	}
}

func stringNames(names []domain.InternedString) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = n.String()
	}
	return out
}

type runState struct {
	s           *Scheduler
	ctx         context.Context
	graph       *domain.Graph
	inDegree    map[domain.InternedString]int
	tasks       map[domain.InternedString]domain.Task
	ready       []domain.InternedString
	settled     map[domain.InternedString]bool
	active      int
	parallelism int
	resultsCh   chan domain.Result
	report      *domain.Report
}

// execute runs names, which must be closed under dependencies, in topological order.
func (s *Scheduler) execute(
	ctx context.Context,
	graph *domain.Graph,
	names []domain.InternedString,
	parallelism int,
	report *domain.Report,
) error {
	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}

	state := &runState{
		s:           s,
		ctx:         ctx,
		graph:       graph,
		inDegree:    make(map[domain.InternedString]int, len(names)),
		tasks:       make(map[domain.InternedString]domain.Task, len(names)),
		settled:     make(map[domain.InternedString]bool, len(names)),
		parallelism: parallelism,
		resultsCh:   make(chan domain.Result, parallelism),
		report:      report,
	}

	for _, name := range names {
		task, _ := graph.GetTask(name)
		state.tasks[name] = task
	}
	// names is in execution order, so ready keeps a deterministic start order.
	for _, name := range names {
		degree := 0
		for _, dep := range state.tasks[name].Dependencies {
			if _, ok := state.tasks[dep]; ok {
				degree++
			}
		}
		state.inDegree[name] = degree
		if degree == 0 {
			state.ready = append(state.ready, name)
		}
	}

	return state.loop()
}

func (state *runState) loop() error {
	for !state.isDone() {
		state.schedule()

		if state.isDone() {
			break
		}

		if state.ctx.Err() != nil {
			if state.active == 0 {
				return state.ctx.Err()
			}
			// Drain in-flight tasks; nothing new is scheduled.
			state.handleResult(<-state.resultsCh)
			continue
		}

		select {
		case res := <-state.resultsCh:
			state.handleResult(res)
		case <-state.ctx.Done():
		}
	}

	return state.ctx.Err()
}

func (state *runState) isDone() bool {
	return state.active == 0 && len(state.ready) == 0
}

func (state *runState) schedule() {
	for len(state.ready) > 0 && state.active < state.parallelism && state.ctx.Err() == nil {
		name := state.ready[0]
		state.ready = state.ready[1:]

		state.active++
		go state.executeTask(state.tasks[name])
	}
}

func (state *runState) executeTask(t domain.Task) {
	if t.IsAggregate() {
		state.resultsCh <- domain.Result{Task: t.Name.String(), Status: domain.StatusSucceeded}
		return
	}

	// The span ends before the result is sent so renderers see it before the run finishes.
	res := func() domain.Result {
		ctx, span := state.s.tracer.Start(state.ctx, t.Name.String(), ports.WithCategory(t.Category.String()))
		defer span.End()

		res := state.s.runner.RunTask(ctx, t, span)
		res.Task = t.Name.String()
		span.SetAttribute(ports.AttrWritten, len(res.Written))
		if res.Failed() && res.Err != nil {
			span.RecordError(res.Err)
		}
		return res
	}()

	state.resultsCh <- res
}

func (state *runState) handleResult(res domain.Result) {
	state.active--
	name := domain.NewInternedString(res.Task)
	state.settle(name, res)

	if res.Failed() {
		state.skipDependents(name, zerr.With(zerr.Wrap(domain.ErrDependencyFailed, "not started"), "dependency", res.Task))
		return
	}

	for _, dep := range state.graph.Dependents(name) {
		if _, ok := state.tasks[dep]; !ok || state.settled[dep] {
			continue
		}
		state.inDegree[dep]--
		if state.inDegree[dep] == 0 {
			state.ready = append(state.ready, dep)
		}
	}
}

func (state *runState) settle(name domain.InternedString, res domain.Result) {
	state.settled[name] = true
	state.report.Add(res)
}

// skipDependents marks every transitive dependent of name in this run as skipped.
func (state *runState) skipDependents(name domain.InternedString, cause error) {
	for _, dep := range state.graph.Dependents(name) {
		if _, ok := state.tasks[dep]; !ok || state.settled[dep] {
			continue
		}
		state.settle(dep, state.s.skipped(state.graph, dep, cause))
		state.skipDependents(dep, cause)
	}
}
