package logger_test

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/trowel/internal/adapters/logger"
	"go.trai.ch/zerr"
)

// newTestLogger creates a logger writing to a buffer with colors disabled.
func newTestLogger(t *testing.T) (*logger.Logger, *bytes.Buffer) {
	t.Helper()
	t.Setenv("NO_COLOR", "1")

	buf := &bytes.Buffer{}
	lg := logger.New()
	lg.SetOutput(buf)
	return lg, buf
}

func TestLogger_Levels(t *testing.T) {
	tests := []struct {
		name       string
		log        func(l *logger.Logger)
		goldenName string
	}{
		{
			name:       "info",
			log:        func(l *logger.Logger) { l.Info("serving public on http://localhost:8080") },
			goldenName: "info_basic",
		},
		{
			name:       "info multiline",
			log:        func(l *logger.Logger) { l.Info("line1\nline2") },
			goldenName: "info_multiline",
		},
		{
			name:       "warn",
			log:        func(l *logger.Logger) { l.Warn("no sprite icons found") },
			goldenName: "warn_basic",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lg, buf := newTestLogger(t)
			tt.log(lg)

			g := goldie.New(t)
			g.Assert(t, tt.goldenName, buf.Bytes())
		})
	}
}

func TestLogger_Error(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		goldenName string
	}{
		{
			name:       "simple error",
			err:        os.ErrPermission,
			goldenName: "error_simple",
		},
		{
			name: "zerr chain",
			err: zerr.Wrap(
				zerr.Wrap(
					errors.New("exit status 65"),
					"command failed",
				),
				"task execution failed",
			),
			goldenName: "error_chain_zerr",
		},
		{
			name: "metadata on cause",
			err: zerr.Wrap(
				zerr.With(zerr.New("undefined variable"), "file", "main.scss"),
				"task execution failed",
			),
			goldenName: "error_metadata",
		},
		{
			name:       "stdlib chain",
			err:        fmt.Errorf("failed to start: %w", errors.New("address already in use")),
			goldenName: "error_chain_stdlib",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lg, buf := newTestLogger(t)
			lg.Error(tt.err)

			g := goldie.New(t)
			g.Assert(t, tt.goldenName, buf.Bytes())
		})
	}
}

func TestLogger_Error_Nil(t *testing.T) {
	lg, buf := newTestLogger(t)
	lg.Error(nil)
	assert.Empty(t, buf.String())
}

func TestLogger_SetJSON(t *testing.T) {
	lg, buf := newTestLogger(t)
	lg.SetJSON(true)

	lg.Info("hello")
	lg.Error(zerr.New("boom"))

	out := buf.String()
	assert.Contains(t, out, `"msg":"hello"`)
	assert.Contains(t, out, `"level":"ERROR"`)
	assert.Contains(t, out, "boom")

	buf.Reset()
	lg.SetJSON(false)
	lg.Info("plain")
	assert.Equal(t, "plain\n", buf.String())
}

func TestLogger_SetOutput_Nil(t *testing.T) {
	lg := logger.New()
	require.NotPanics(t, func() { lg.SetOutput(nil) })
}
