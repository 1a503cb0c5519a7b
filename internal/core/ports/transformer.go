package ports

import (
	"context"
	"io"

	"go.trai.ch/trowel/internal/core/domain"
)

// Source is one input file of a task run.
type Source struct {
	// Path is the absolute path of the file.
	Path string
	// Rel is the path relative to the route's source directory.
	Rel string
}

// Output is one file produced by a transformer.
type Output struct {
	// Path is the absolute destination path.
	Path string
	Data []byte
	// Source is the absolute path of the input it was derived from, if any.
	Source string
}

// Job carries everything a transformer needs for one task run.
type Job struct {
	Route   domain.Route
	Paths   domain.PathTable
	Sources []Source
	Mode    domain.BuildMode
	// Root is the absolute project root.
	Root string
	// Log receives diagnostic output of external tools.
	Log io.Writer
}

// Transformer turns the sources of one category into outputs.
//
//go:generate mockgen -source=transformer.go -destination=mocks/mock_transformer.go -package=mocks
type Transformer interface {
	// Transform processes every source of the job. Sources that fail are reported in the
	// returned error; the outputs of the sources that succeeded are returned alongside it.
	Transform(ctx context.Context, job Job) ([]Output, error)
}
