// Package bundler bundles application scripts in-process with esbuild.
package bundler

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"go.trai.ch/trowel/internal/core/domain"
	"go.trai.ch/trowel/internal/core/ports"
	"go.trai.ch/zerr"
)

// PublicPath is the URL prefix under which bundled assets are served.
const PublicPath = "/js/"

var _ ports.Transformer = (*Bundler)(nil)

// Bundler resolves the import graph of every entry script into a single browser bundle.
type Bundler struct{}

// New creates a new Bundler.
func New() *Bundler {
	return &Bundler{}
}

// Transform bundles each source as an independent entry point.
func (b *Bundler) Transform(ctx context.Context, job ports.Job) ([]ports.Output, error) {
	var outputs []ports.Output
	var errs error

	for _, src := range job.Sources {
		if err := ctx.Err(); err != nil {
			return outputs, errors.Join(errs, err)
		}

		out, err := b.bundle(job, src)
		if err != nil {
			errs = errors.Join(errs, zerr.With(err, "file", src.Rel))
			continue
		}
		outputs = append(outputs, out...)
	}

	return outputs, errs
}

func (b *Bundler) bundle(job ports.Job, src ports.Source) ([]ports.Output, error) {
	result := api.Build(buildOptions(job, src))

	if len(result.Errors) > 0 {
		msgs := make([]string, 0, len(result.Errors))
		for _, m := range result.Errors {
			msgs = append(msgs, formatMessage(m))
		}
		if job.Log != nil {
			_, _ = fmt.Fprintln(job.Log, strings.Join(msgs, "\n"))
		}
		return nil, zerr.Wrap(zerr.New(strings.Join(msgs, "\n")), "bundle failed")
	}

	if job.Log != nil {
		for _, m := range result.Warnings {
			_, _ = fmt.Fprintln(job.Log, "warning: "+formatMessage(m))
		}
	}

	entryOut := filepath.Join(job.Root, job.Route.OutputPath(src.Rel))

	outputs := make([]ports.Output, 0, len(result.OutputFiles))
	for _, f := range result.OutputFiles {
		path := f.Path
		if filepath.Ext(path) == ".js" {
			path = entryOut
		}
		outputs = append(outputs, ports.Output{
			Path:   path,
			Data:   f.Contents,
			Source: src.Path,
		})
	}

	return outputs, nil
}

func buildOptions(job ports.Job, src ports.Source) api.BuildOptions {
	opts := api.BuildOptions{
		EntryPoints:   []string{src.Path},
		Bundle:        true,
		Write:         false,
		AbsWorkingDir: job.Root,
		Outdir:        filepath.Join(job.Root, job.Route.Dest),
		EntryNames:    "[name]",
		PublicPath:    PublicPath,
		Platform:      api.PlatformBrowser,
		Format:        api.FormatIIFE,
		Target:        api.ES2015,
		LogLevel:      api.LogLevelSilent,
		Define: map[string]string{
			"process.env." + domain.ModeEnvVar: fmt.Sprintf("%q", job.Mode.String()),
		},
	}

	if job.Mode.IsDev() {
		opts.Sourcemap = api.SourceMapInline
	} else {
		opts.Sourcemap = api.SourceMapNone
		opts.MinifyWhitespace = true
		opts.MinifyIdentifiers = true
		opts.MinifySyntax = true
	}

	return opts
}

// formatMessage renders an esbuild diagnostic as file:line:column: text.
func formatMessage(m api.Message) string {
	if m.Location == nil {
		return m.Text
	}
	return fmt.Sprintf("%s:%d:%d: %s", m.Location.File, m.Location.Line, m.Location.Column, m.Text)
}
