package domain

import (
	"go.trai.ch/zerr"
)

// PlanBuild is the name of the full build plan.
const PlanBuild = "build"

// Stage is a set of tasks that may run concurrently.
type Stage []InternedString

// Plan is an ordered list of stages. A stage starts only after every task
// of the previous stage has finished.
type Plan struct {
	Name   string
	Stages []Stage
}

// BuildPlan returns the full build: markup, fonts, scripts and images first,
// then the sprite sheet, then style sheets.
func BuildPlan() Plan {
	return Plan{
		Name: PlanBuild,
		Stages: []Stage{
			InternAll(TaskHTML, TaskFont, TaskJS, TaskImg),
			InternAll(TaskSprite),
			InternAll(TaskCSS),
		},
	}
}

// Names returns the stage task names as strings.
func (s Stage) Names() []string {
	out := make([]string, len(s))
	for i, n := range s {
		out[i] = n.String()
	}
	return out
}

// ValidatePlan checks that every stage names known tasks, that no task runs in two stages,
// and that every artifact consumed by a planned task is produced in a strictly earlier stage.
// The graph must already be validated.
func (g *Graph) ValidatePlan(p Plan) error {
	stageOf := make(map[InternedString]int)
	for i, stage := range p.Stages {
		expanded, err := g.Expand(stage)
		if err != nil {
			return zerr.With(err, "plan", p.Name)
		}
		for _, name := range expanded {
			if prev, dup := stageOf[name]; dup && prev != i {
				return zerr.With(zerr.With(ErrTaskPlannedTwice, "task", name.String()), "plan", p.Name)
			}
			stageOf[name] = i
		}
	}

	for name, stage := range stageOf {
		task := g.tasks[name]
		for _, a := range task.Consumes {
			producer, _ := g.Producer(a)
			producedIn, planned := stageOf[producer]
			if !planned || producedIn >= stage {
				return zerr.With(zerr.With(zerr.With(ErrArtifactOrdering,
					"artifact", string(a)),
					"consumer", name.String()),
					"producer", producer.String())
			}
		}
	}
	return nil
}
