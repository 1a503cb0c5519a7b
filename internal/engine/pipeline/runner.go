// Package pipeline runs the body of a per-category task: resolve, filter, transform, write, reload.
package pipeline

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"time"

	"go.trai.ch/trowel/internal/core/domain"
	"go.trai.ch/trowel/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.TaskRunner = (*Runner)(nil)

// Deps are the collaborators of a Runner.
type Deps struct {
	Resolver     ports.SourceResolver
	Filter       ports.ChangeFilter
	Writer       ports.OutputWriter
	Notifier     ports.Notifier
	Transformers map[domain.Category]ports.Transformer
	// Reload is optional; nil disables reload events.
	Reload ports.ReloadPublisher
}

// Runner executes per-category tasks against one project.
type Runner struct {
	root  string
	paths domain.PathTable
	mode  domain.BuildMode
	deps  Deps
	now   func() time.Time
}

// NewRunner creates a Runner for the project rooted at root.
func NewRunner(root string, paths domain.PathTable, mode domain.BuildMode, deps Deps) *Runner {
	return &Runner{
		root:  root,
		paths: paths,
		mode:  mode,
		deps:  deps,
		now:   time.Now,
	}
}

// RunTask runs task and reports its outcome. Failures never escape as panics or errors;
// they are notified and recorded in the result.
func (r *Runner) RunTask(ctx context.Context, task domain.Task, log io.Writer) domain.Result {
	start := r.now()
	res := domain.Result{
		Task:     task.Name.String(),
		Category: task.Category,
		Status:   domain.StatusSucceeded,
	}

	if !task.IsAggregate() {
		if err := r.run(ctx, task, log, &res); err != nil {
			res.Status = domain.StatusFailed
			res.Err = err
			if r.deps.Notifier != nil {
				r.deps.Notifier.Notify(task.Category.Label(), err)
			}
		}
		r.publish(res)
	}

	res.Duration = r.now().Sub(start)
	return res
}

func (r *Runner) run(ctx context.Context, task domain.Task, log io.Writer, res *domain.Result) error {
	route, ok := r.paths.Route(task.Category)
	if !ok {
		return zerr.With(domain.ErrUnknownCategory, "category", task.Category.String())
	}
	transformer, ok := r.deps.Transformers[task.Category]
	if !ok || transformer == nil {
		return zerr.With(domain.ErrNoTransformer, "category", task.Category.String())
	}

	sources, err := r.deps.Resolver.Resolve(r.root, route)
	if err != nil {
		return err
	}

	var errs error
	if task.Category.Incremental() {
		sources, errs = r.filterChanged(route, sources, res)
	}

	// The sprite task always regenerates its fragment, even without icons.
	if len(sources) == 0 && task.Category != domain.CategorySprite {
		return errs
	}

	outputs, err := transformer.Transform(ctx, ports.Job{
		Route:   route,
		Paths:   r.paths,
		Sources: sources,
		Mode:    r.mode,
		Root:    r.root,
		Log:     log,
	})
	errs = errors.Join(errs, err)

	for _, out := range outputs {
		changed, err := r.deps.Writer.Write(r.root, out)
		if err != nil {
			errs = errors.Join(errs, zerr.With(err, "file", out.Path))
			continue
		}
		if changed {
			res.Written = append(res.Written, out.Path)
		} else {
			res.Unchanged++
		}
	}

	return errs
}

// filterChanged drops sources whose destination is up to date.
func (r *Runner) filterChanged(route domain.Route, sources []ports.Source, res *domain.Result) ([]ports.Source, error) {
	var errs error
	changed := sources[:0:0]
	for _, src := range sources {
		dest := filepath.Join(r.root, route.OutputPath(src.Rel))
		ok, err := r.deps.Filter.Changed(src.Path, dest)
		if err != nil {
			errs = errors.Join(errs, zerr.With(err, "file", src.Rel))
			continue
		}
		if !ok {
			res.Filtered++
			continue
		}
		changed = append(changed, src)
	}
	return changed, errs
}

func (r *Runner) publish(res domain.Result) {
	if r.deps.Reload == nil || len(res.Written) == 0 {
		return
	}

	paths := URLPaths(filepath.Join(r.root, r.paths.DistRoot()), res.Written)
	if len(paths) == 0 {
		return
	}

	r.deps.Reload.Publish(domain.ReloadEvent{
		Task:  res.Task,
		Paths: paths,
		At:    r.now(),
	})
}

// URLPaths maps written files under distRoot to the URL paths they are served at.
// Files outside distRoot are dropped.
func URLPaths(distRoot string, written []string) []string {
	var out []string
	for _, file := range written {
		rel, err := filepath.Rel(distRoot, file)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		out = append(out, "/"+filepath.ToSlash(rel))
	}
	return out
}
