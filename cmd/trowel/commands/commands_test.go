package commands_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/trowel/cmd/trowel/commands"
	"go.trai.ch/trowel/internal/app"
	"go.trai.ch/trowel/internal/build"
)

type call struct {
	method string
	tasks  []string
	run    app.RunOptions
	serve  app.ServeOptions
}

type mockApp struct {
	calls []call
	err   error
}

func (m *mockApp) Default(_ context.Context, opts app.RunOptions, serve app.ServeOptions) error {
	m.calls = append(m.calls, call{method: "default", run: opts, serve: serve})
	return m.err
}

func (m *mockApp) Build(_ context.Context, opts app.RunOptions) error {
	m.calls = append(m.calls, call{method: "build", run: opts})
	return m.err
}

func (m *mockApp) Run(_ context.Context, taskNames []string, opts app.RunOptions) error {
	m.calls = append(m.calls, call{method: "run", tasks: taskNames, run: opts})
	return m.err
}

func (m *mockApp) Watch(_ context.Context, opts app.RunOptions) error {
	m.calls = append(m.calls, call{method: "watch", run: opts})
	return m.err
}

func (m *mockApp) Serve(_ context.Context, opts app.ServeOptions) error {
	m.calls = append(m.calls, call{method: "serve", serve: opts})
	return m.err
}

func (m *mockApp) Clean(_ context.Context) error {
	m.calls = append(m.calls, call{method: "clean"})
	return m.err
}

func (m *mockApp) Tasks(_ context.Context, w io.Writer) error {
	m.calls = append(m.calls, call{method: "tasks"})
	_, _ = io.WriteString(w, "html  markup\n")
	return m.err
}

func execute(t *testing.T, m *mockApp, args ...string) (string, error) {
	t.Helper()
	cli := commands.New(m)
	buf := new(bytes.Buffer)
	cli.SetOutput(buf, buf)
	cli.SetArgs(args)
	err := cli.Execute(context.Background())
	return buf.String(), err
}

func TestCommands_Dispatch(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want call
	}{
		{
			name: "default",
			args: []string{"--port", "3000", "--host", "0.0.0.0", "-j", "2"},
			want: call{
				method: "default",
				run:    app.RunOptions{OutputMode: "auto", Parallelism: 2},
				serve:  app.ServeOptions{Host: "0.0.0.0", Port: 3000},
			},
		},
		{
			name: "build with policy flags",
			args: []string{"build", "--halt-on-error", "--strict", "--ci"},
			want: call{
				method: "build",
				run:    app.RunOptions{OutputMode: "linear", HaltOnError: true, Strict: true},
			},
		},
		{
			name: "run",
			args: []string{"run", "css", "js", "-o", "quiet"},
			want: call{method: "run", tasks: []string{"css", "js"}, run: app.RunOptions{OutputMode: "quiet"}},
		},
		{
			name: "watch",
			args: []string{"watch"},
			want: call{method: "watch", run: app.RunOptions{OutputMode: "auto"}},
		},
		{
			name: "server",
			args: []string{"server", "-p", "9000"},
			want: call{method: "serve", serve: app.ServeOptions{Port: 9000}},
		},
		{
			name: "serve alias",
			args: []string{"serve"},
			want: call{method: "serve"},
		},
		{
			name: "clean",
			args: []string{"clean"},
			want: call{method: "clean"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &mockApp{}
			_, err := execute(t, m, tt.args...)
			require.NoError(t, err)
			require.Len(t, m.calls, 1)
			assert.Equal(t, tt.want, m.calls[0])
		})
	}
}

func TestCommands_Run_NoTasks(t *testing.T) {
	m := &mockApp{}
	out, err := execute(t, m, "run")
	require.NoError(t, err)
	assert.Empty(t, m.calls)
	assert.Contains(t, out, "Usage:")
}

func TestCommands_Error(t *testing.T) {
	m := &mockApp{err: errors.New("simulated error")}
	_, err := execute(t, m, "build")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "simulated error")
}

func TestCommands_Tasks(t *testing.T) {
	out, err := execute(t, &mockApp{}, "tasks")
	require.NoError(t, err)
	assert.Equal(t, "html  markup\n", out)
}

func TestCommands_UnknownCommand(t *testing.T) {
	m := &mockApp{}
	_, err := execute(t, m, "deploy")
	require.Error(t, err)
	assert.Empty(t, m.calls)
}

func TestCommands_Version(t *testing.T) {
	out, err := execute(t, &mockApp{}, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "trowel version "+build.Version)

	out, err = execute(t, &mockApp{}, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, build.Version)
}
