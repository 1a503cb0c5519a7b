// Package domain contains the core domain models of the asset pipeline.
package domain

import (
	"iter"
	"slices"
	"strings"

	"go.trai.ch/zerr"
)

// Graph represents a dependency graph of tasks.
type Graph struct {
	tasks          map[InternedString]Task
	dependents     map[InternedString][]InternedString
	producers      map[Artifact]InternedString
	executionOrder []InternedString
}

// NewGraph creates a new empty Graph.
func NewGraph() *Graph {
	return &Graph{
		tasks: make(map[InternedString]Task),
	}
}

// AddTask adds a task to the graph.
// It returns an error if a task with the same name already exists.
func (g *Graph) AddTask(t *Task) error {
	if _, exists := g.tasks[t.Name]; exists {
		return zerr.With(ErrTaskAlreadyExists, "task_name", t.Name.String())
	}
	g.tasks[t.Name] = *t
	return nil
}

// Validate checks dependency names, artifact producers and cycles using a topological sort.
// It populates the execution order used by Walk.
func (g *Graph) Validate() error {
	if err := g.indexProducers(); err != nil {
		return err
	}

	g.executionOrder = make([]InternedString, 0, len(g.tasks))
	g.dependents = make(map[InternedString][]InternedString, len(g.tasks))
	visited := make(map[InternedString]int) // 0: unvisited, 1: visiting, 2: visited
	var path []InternedString

	var visit func(u InternedString) error
	visit = func(u InternedString) error {
		visited[u] = 1
		path = append(path, u)

		task, exists := g.tasks[u]
		if !exists {
			return zerr.With(ErrMissingDependency, "dependency", u.String())
		}

		for _, dep := range task.Dependencies {
			if visited[dep] == 1 {
				return g.buildCycleError(path, dep)
			}
			if visited[dep] == 0 {
				if err := visit(dep); err != nil {
					return err
				}
			}
		}

		visited[u] = 2
		path = path[:len(path)-1]
		g.executionOrder = append(g.executionOrder, u)
		return nil
	}

	for _, name := range g.sortedNames() {
		if visited[name] == 0 {
			if err := visit(name); err != nil {
				return err
			}
		}
	}

	for _, name := range g.executionOrder {
		for _, dep := range g.tasks[name].Dependencies {
			g.dependents[dep] = append(g.dependents[dep], name)
		}
	}

	return nil
}

func (g *Graph) indexProducers() error {
	g.producers = make(map[Artifact]InternedString)
	for _, name := range g.sortedNames() {
		for _, a := range g.tasks[name].Produces {
			if prev, dup := g.producers[a]; dup {
				return zerr.With(zerr.With(ErrDuplicateProducer, "artifact", string(a)),
					"tasks", prev.String()+", "+name.String())
			}
			g.producers[a] = name
		}
	}
	for _, name := range g.sortedNames() {
		for _, a := range g.tasks[name].Consumes {
			if _, ok := g.producers[a]; !ok {
				return zerr.With(zerr.With(ErrMissingProducer, "artifact", string(a)), "task", name.String())
			}
		}
	}
	return nil
}

func (g *Graph) sortedNames() []InternedString {
	names := make([]InternedString, 0, len(g.tasks))
	for name := range g.tasks {
		names = append(names, name)
	}
	slices.SortFunc(names, func(a, b InternedString) int {
		return strings.Compare(a.String(), b.String())
	})
	return names
}

// buildCycleError constructs an error with cycle path metadata.
func (g *Graph) buildCycleError(path []InternedString, dep InternedString) error {
	cyclePath := ""
	startIdx := -1
	for i, node := range path {
		if node == dep {
			startIdx = i
			break
		}
	}
	for i := startIdx; i < len(path); i++ {
		cyclePath += path[i].String() + " -> "
	}
	cyclePath += dep.String()
	return zerr.With(ErrCycleDetected, "cycle", cyclePath)
}

// Walk returns an iterator that yields tasks in execution order.
// It assumes Validate() has been called and returned nil.
func (g *Graph) Walk() iter.Seq[Task] {
	return func(yield func(Task) bool) {
		for _, name := range g.executionOrder {
			if !yield(g.tasks[name]) {
				return
			}
		}
	}
}

// GetTask returns the task with the given name.
func (g *Graph) GetTask(name InternedString) (Task, bool) {
	t, ok := g.tasks[name]
	return t, ok
}

// Dependents returns the tasks that list name as a dependency.
func (g *Graph) Dependents(name InternedString) []InternedString {
	return g.dependents[name]
}

// Producer returns the task that produces the artifact.
func (g *Graph) Producer(a Artifact) (InternedString, bool) {
	name, ok := g.producers[a]
	return name, ok
}

// TaskCount returns the number of tasks in the graph.
func (g *Graph) TaskCount() int {
	return len(g.tasks)
}

// Expand returns the names together with every task they transitively depend on,
// in execution order.
func (g *Graph) Expand(names []InternedString) ([]InternedString, error) {
	want := make(map[InternedString]bool, len(names))
	queue := slices.Clone(names)
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		if want[name] {
			continue
		}
		task, ok := g.tasks[name]
		if !ok {
			return nil, zerr.With(ErrTaskNotFound, "task", name.String())
		}
		want[name] = true
		queue = append(queue, task.Dependencies...)
	}

	out := make([]InternedString, 0, len(want))
	for _, name := range g.executionOrder {
		if want[name] {
			out = append(out, name)
		}
	}
	return out, nil
}
