package domain

// Task names.
const (
	TaskHTML       = "html"
	TaskCSS        = "css"
	TaskJS         = "js"
	TaskJSApp      = "js:app"
	TaskJSExternal = "js:external"
	TaskSprite     = "sprite"
	TaskImg        = "img"
	TaskImgHTML    = "img:html"
	TaskImgCSS     = "img:css"
	TaskFont       = "font"
)

// Artifact names a piece of data one task writes and another task reads.
type Artifact string

const (
	// ArtifactSpriteFragment is the generated SCSS fragment imported by style sheets.
	ArtifactSpriteFragment Artifact = "sprite-fragment"
	// ArtifactSpriteSheet is the packed sprite image.
	ArtifactSpriteSheet Artifact = "sprite-sheet"
)

// Task represents a unit of work in the pipeline.
// A task with an empty Category is an aggregate: it has no body and completes
// when all of its dependencies complete.
type Task struct {
	Name         InternedString
	Category     Category
	Dependencies []InternedString
	Produces     []Artifact
	Consumes     []Artifact
}

// IsAggregate reports whether the task only groups other tasks.
func (t *Task) IsAggregate() bool {
	return t.Category == ""
}

// DefaultTasks returns the task set of the pipeline.
func DefaultTasks() []Task {
	tasks := make([]Task, 0, len(Categories)+2)
	for _, c := range Categories {
		t := Task{
			Name:     NewInternedString(c.TaskName()),
			Category: c,
		}
		switch c {
		case CategorySprite:
			t.Produces = []Artifact{ArtifactSpriteSheet, ArtifactSpriteFragment}
		case CategoryStyle:
			t.Consumes = []Artifact{ArtifactSpriteFragment}
		default:
		}
		tasks = append(tasks, t)
	}

	tasks = append(tasks,
		Task{Name: NewInternedString(TaskJS), Dependencies: InternAll(TaskJSApp, TaskJSExternal)},
		Task{Name: NewInternedString(TaskImg), Dependencies: InternAll(TaskImgHTML, TaskImgCSS)},
	)
	return tasks
}

// DefaultGraph builds and validates the graph of DefaultTasks.
func DefaultGraph() (*Graph, error) {
	g := NewGraph()
	for _, t := range DefaultTasks() {
		if err := g.AddTask(&t); err != nil {
			return nil, err
		}
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}
