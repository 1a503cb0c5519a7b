package ports

import "go.trai.ch/trowel/internal/core/domain"

//go:generate mockgen -source=filesystem.go -destination=mocks/mock_filesystem.go -package=mocks

// SourceResolver lists the sources of a route.
type SourceResolver interface {
	// Resolve returns the files under the route's source directory matching its pattern,
	// sorted by relative path. A missing source directory yields no sources.
	Resolve(root string, route domain.Route) ([]Source, error)
}

// ChangeFilter decides whether a source needs processing.
type ChangeFilter interface {
	// Changed reports whether dest is missing or older than src.
	Changed(src, dest string) (bool, error)
}

// OutputWriter persists transformer outputs.
type OutputWriter interface {
	// Write stores the output atomically. It reports false when the destination
	// already held identical content and nothing was written.
	Write(root string, out Output) (bool, error)
}
