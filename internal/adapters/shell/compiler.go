package shell

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.trai.ch/trowel/internal/core/domain"
	"go.trai.ch/trowel/internal/core/ports"
	"go.trai.ch/zerr"
)

// NodeModulesBin is prepended to PATH so project-local compilers win over global ones.
var NodeModulesBin = filepath.Join("node_modules", ".bin")

var _ ports.Transformer = (*Compiler)(nil)

// Compiler turns each source into one output by running an external command.
// The command writes the result to stdout; an optional post command receives it on stdin.
type Compiler struct {
	executor ports.Executor
	spec     domain.CommandSpec
}

// NewCompiler creates a Compiler running spec through executor.
func NewCompiler(executor ports.Executor, spec domain.CommandSpec) *Compiler {
	return &Compiler{executor: executor, spec: spec}
}

// Transform compiles every non-partial source. A failing source does not stop the others.
func (c *Compiler) Transform(ctx context.Context, job ports.Job) ([]ports.Output, error) {
	if !c.spec.Enabled() {
		return nil, zerr.With(domain.ErrNoTransformer, "category", job.Route.Category.String())
	}

	var outputs []ports.Output
	var errs error

	for _, src := range job.Sources {
		if err := ctx.Err(); err != nil {
			return outputs, errors.Join(errs, err)
		}
		if job.Route.Category.IsPartial(src.Rel) {
			continue
		}

		data, err := c.compile(ctx, job, src)
		if err != nil {
			errs = errors.Join(errs, zerr.With(err, "file", src.Rel))
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

func (c *Compiler) compile(ctx context.Context, job ports.Job, src ports.Source) ([]byte, error) {
	args := expand(c.spec.Command, map[string]string{
		"{input}":  src.Path,
		"{srcdir}": filepath.Join(job.Root, job.Route.Source),
		"{root}":   job.Root,
	})
	if job.Mode.IsDev() {
		args = append(args, c.spec.DevArgs...)
	} else {
		args = append(args, c.spec.ProdArgs...)
	}

	var stdin io.Reader
	if c.spec.Stdin {
		content, err := os.ReadFile(src.Path)
		if err != nil {
			return nil, zerr.Wrap(err, "failed to read source")
		}
		stdin = bytes.NewReader(content)
	}

	out, err := c.run(ctx, job, args, stdin)
	if err != nil {
		return nil, err
	}

	if len(c.spec.Post) == 0 {
		return out, nil
	}
	return c.run(ctx, job, c.spec.Post, bytes.NewReader(out))
}

func (c *Compiler) run(ctx context.Context, job ports.Job, args []string, stdin io.Reader) ([]byte, error) {
	var stdout, stderr bytes.Buffer

	errOut := io.Writer(&stderr)
	if job.Log != nil {
		errOut = io.MultiWriter(&stderr, job.Log)
	}

	cmd := ports.Command{
		Args:       args,
		Dir:        job.Root,
		Env:        map[string]string{domain.ModeEnvVar: job.Mode.String()},
		PathPrefix: []string{filepath.Join(job.Root, NodeModulesBin)},
		Stdin:      stdin,
	}

	if err := c.executor.Execute(ctx, cmd, &stdout, errOut); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, zerr.Wrap(err, msg)
		}
		return nil, err
	}

	return stdout.Bytes(), nil
}

// expand substitutes placeholders inside every argument.
func expand(args []string, values map[string]string) []string {
	out := make([]string, len(args))
	for i, arg := range args {
		for k, v := range values {
			arg = strings.ReplaceAll(arg, k, v)
		}
		out[i] = arg
	}
	return out
}
