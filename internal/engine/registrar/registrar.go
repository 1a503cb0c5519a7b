// Package registrar maps source file changes to the tasks that rebuild them.
package registrar

import (
	"context"
	"iter"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"go.trai.ch/trowel/internal/core/domain"
	"go.trai.ch/trowel/internal/core/ports"
)

// Trigger runs task for a debounced batch of changed paths.
type Trigger func(task string, paths []string)

// Registrar routes watch events to tasks using the path table's watch rules.
type Registrar struct {
	root      string
	rules     []domain.WatchRule
	debouncer *Debouncer
}

// New creates a Registrar for the project at root. A window of zero or less uses domain.DefaultDebounce.
func New(root string, rules []domain.WatchRule, window time.Duration, trigger Trigger) *Registrar {
	if window <= 0 {
		window = domain.DefaultDebounce
	}
	return &Registrar{
		root:      root,
		rules:     slices.Clone(rules),
		debouncer: NewDebouncer(window, trigger),
	}
}

// Match returns the tasks whose watch rules match path, without duplicates.
func (r *Registrar) Match(path string) []string {
	var tasks []string
	for _, rule := range r.rules {
		rel, err := filepath.Rel(filepath.Join(r.root, rule.Dir), path)
		if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		ok, err := doublestar.Match(rule.Pattern, filepath.ToSlash(rel))
		if err != nil || !ok {
			continue
		}
		if !slices.Contains(tasks, rule.Task) {
			tasks = append(tasks, rule.Task)
		}
	}
	return tasks
}

// Run consumes events until the sequence ends or ctx is cancelled.
// Pending batches are discarded on return.
func (r *Registrar) Run(ctx context.Context, events iter.Seq[ports.WatchEvent]) error {
	defer r.debouncer.Stop()

	for ev := range events {
		if ctx.Err() != nil {
			break
		}
		for _, task := range r.Match(ev.Path) {
			r.debouncer.Add(task, ev.Path)
		}
	}
	return ctx.Err()
}
