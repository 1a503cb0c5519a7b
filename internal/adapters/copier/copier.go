// Package copier implements the pass-through transformer used for images, fonts and vendor scripts.
package copier

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"go.trai.ch/trowel/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Transformer = (*Copier)(nil)

// Copier mirrors each source to the route destination, preserving its relative path.
type Copier struct{}

// New creates a new Copier.
func New() *Copier {
	return &Copier{}
}

// Transform reads every source verbatim.
func (c *Copier) Transform(ctx context.Context, job ports.Job) ([]ports.Output, error) {
	outputs := make([]ports.Output, 0, len(job.Sources))
	var errs error

	for _, src := range job.Sources {
		if err := ctx.Err(); err != nil {
			return outputs, errors.Join(errs, err)
		}

		data, err := os.ReadFile(src.Path)
		if err != nil {
			errs = errors.Join(errs, zerr.With(zerr.Wrap(err, "failed to read source"), "file", src.Rel))
			continue
		}

		outputs = append(outputs, ports.Output{
			Path:   filepath.Join(job.Root, job.Route.OutputPath(src.Rel)),
			Data:   data,
			Source: src.Path,
		})
	}

	return outputs, errs
}
