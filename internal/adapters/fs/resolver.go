package fs

import (
	"errors"
	iofs "io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/bmatcuk/doublestar/v4"
	"go.trai.ch/trowel/internal/core/domain"
	"go.trai.ch/trowel/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.SourceResolver = (*Resolver)(nil)

// Resolver implements ports.SourceResolver with doublestar globs.
type Resolver struct{}

// NewResolver creates a new Resolver.
func NewResolver() *Resolver {
	return &Resolver{}
}

// Resolve lists the regular files under the route's source directory that match its pattern.
func (r *Resolver) Resolve(root string, route domain.Route) ([]ports.Source, error) {
	dir := filepath.Join(root, route.Source)

	info, err := os.Stat(dir)
	switch {
	case errors.Is(err, iofs.ErrNotExist):
		return nil, nil
	case err != nil:
		return nil, zerr.With(zerr.Wrap(err, "failed to stat source directory"), "path", dir)
	case !info.IsDir():
		return nil, zerr.With(zerr.New("source is not a directory"), "path", dir)
	}

	matches, err := doublestar.Glob(os.DirFS(dir), route.Pattern, doublestar.WithFilesOnly(), doublestar.WithFailOnIOErrors())
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to glob sources"), "pattern", route.Pattern)
	}

	slices.Sort(matches)

	sources := make([]ports.Source, 0, len(matches))
	for _, m := range matches {
		rel := filepath.FromSlash(m)
		sources = append(sources, ports.Source{
			Path: filepath.Join(dir, rel),
			Rel:  rel,
		})
	}

	return sources, nil
}
