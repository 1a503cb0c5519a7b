package app_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/trowel/internal/adapters/config"
	"go.trai.ch/trowel/internal/adapters/fs"
	"go.trai.ch/trowel/internal/adapters/notify"
	"go.trai.ch/trowel/internal/adapters/watcher"
	"go.trai.ch/trowel/internal/app"
	"go.trai.ch/trowel/internal/core/domain"
	"go.trai.ch/trowel/internal/core/ports"
	"go.trai.ch/trowel/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

const spriteImport = `@import "vendors/gulp-spritesmith/spritesmith";`

// recordedErrors collects errors passed to the logger.
type recordedErrors struct {
	mu   sync.Mutex
	errs []error
}

func (r *recordedErrors) add(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func (r *recordedErrors) all() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.errs...)
}

// fakeCompilers stands in for pug and sass. The style compiler inlines the sprite
// fragment import and fails on sources containing "syntax error".
func fakeCompilers(_ context.Context, cmd ports.Command, stdout, stderr io.Writer) error {
	switch cmd.Args[0] {
	case "pug":
		data, err := io.ReadAll(cmd.Stdin)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(stdout, "<html><body>%s</body></html>\n", strings.TrimSpace(string(data)))
		return nil
	case "sass":
		srcDir, input := cmd.Args[3], cmd.Args[4]
		data, err := os.ReadFile(input)
		if err != nil {
			return err
		}
		if strings.Contains(string(data), "syntax error") {
			_, _ = fmt.Fprintln(stderr, `Error: expected ";".`)
			return errors.New("exit status 65")
		}
		fragment, err := os.ReadFile(filepath.Join(srcDir, "vendors", "gulp-spritesmith", domain.SpriteFragmentName))
		if err != nil {
			return err
		}
		_, _ = io.WriteString(stdout, strings.ReplaceAll(string(data), spriteImport, string(fragment)))
		return nil
	default:
		return fmt.Errorf("unexpected command %q", cmd.Args[0])
	}
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), domain.DirPerm))
	require.NoError(t, os.WriteFile(path, []byte(content), domain.FilePerm))
}

func writeIcon(t *testing.T, root, rel string, w, h int) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := range w {
		for y := range h {
			img.Set(x, y, color.NRGBA{R: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	writeFile(t, root, rel, buf.String())
}

func readFile(t *testing.T, root, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(data)
}

// newProject lays out one source per category.
func newProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "src/html/index.pug", "h1 Hello")
	writeFile(t, root, "src/style/main.scss", spriteImport+"\n.icon { width: $s-icon-width; }\n")
	writeFile(t, root, "src/style/_vars.scss", "$brand: red;\n")
	writeFile(t, root, "src/js/main.js", "const greet = (n) => `hi ${n}`;\nconsole.log(greet('trowel'));\n")
	writeFile(t, root, "src/js/external/vendor.js", "window.vendor = true;\n")
	writeIcon(t, root, "src/img/css/sprite/icon.png", 4, 4)
	writeFile(t, root, "src/img/css/bg.jpg", "jpeg")
	writeFile(t, root, "src/img/html/team/photo.jpg", "photo")
	writeFile(t, root, "src/font/roboto/regular.woff2", "font")
	return root
}

func newTestApp(t *testing.T, root string) (*app.App, *recordedErrors) {
	t.Helper()
	ctrl := gomock.NewController(t)

	errs := &recordedErrors{}
	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Info(gomock.Any()).AnyTimes()
	log.EXPECT().Warn(gomock.Any()).AnyTimes()
	log.EXPECT().Error(gomock.Any()).Do(errs.add).AnyTimes()

	executor := mocks.NewMockExecutor(ctrl)
	executor.EXPECT().Execute(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(fakeCompilers).AnyTimes()

	a := app.New(
		config.NewLoader(log),
		executor,
		log,
		fs.NewResolver(),
		fs.NewNewerFilter(),
		fs.NewWriter(fs.NewHasher()),
		notify.New(log),
		func() (ports.Watcher, error) {
			return watcher.NewWatcher(log)
		},
	).
		WithWorkDir(root).
		WithOutput(io.Discard, io.Discard).
		WithEnv(func(string) (string, bool) { return "", false })

	return a, errs
}

func TestApp_Build(t *testing.T) {
	root := newProject(t)
	a, errs := newTestApp(t, root)

	require.NoError(t, a.Build(t.Context(), app.RunOptions{OutputMode: "quiet"}))
	assert.Empty(t, errs.all())

	assert.Equal(t, "<html><body>h1 Hello</body></html>\n", readFile(t, root, "public/index.html"))

	// The style stage sees the fragment written by the sprite stage.
	css := readFile(t, root, "public/style/main.css")
	assert.Contains(t, css, "$s-icon-width: 4px;")
	assert.Contains(t, css, "$spritesheet-sprites:")
	assert.NotContains(t, css, spriteImport)
	assert.NoFileExists(t, filepath.Join(root, "public", "style", "_vars.css"))

	assert.Contains(t, readFile(t, root, "public/js/main.js"), "trowel")
	assert.Equal(t, "window.vendor = true;\n", readFile(t, root, "public/js/external/vendor.js"))
	assert.FileExists(t, filepath.Join(root, "public", "img", "css", domain.SpriteSheetName))
	assert.Equal(t, "jpeg", readFile(t, root, "public/img/css/bg.jpg"))
	assert.Equal(t, "photo", readFile(t, root, "public/img/html/team/photo.jpg"))
	assert.Equal(t, "font", readFile(t, root, "public/font/roboto/regular.woff2"))
}

func TestApp_Build_Idempotent(t *testing.T) {
	root := newProject(t)
	a, _ := newTestApp(t, root)

	require.NoError(t, a.Build(t.Context(), app.RunOptions{OutputMode: "quiet"}))
	first := readFile(t, root, "public/style/main.css")
	info, err := os.Stat(filepath.Join(root, "public", "font", "roboto", "regular.woff2"))
	require.NoError(t, err)

	require.NoError(t, a.Build(t.Context(), app.RunOptions{OutputMode: "quiet"}))
	assert.Equal(t, first, readFile(t, root, "public/style/main.css"))

	again, err := os.Stat(filepath.Join(root, "public", "font", "roboto", "regular.woff2"))
	require.NoError(t, err)
	assert.Equal(t, info.ModTime(), again.ModTime())
}

func TestApp_Build_StyleFailure(t *testing.T) {
	tests := []struct {
		name    string
		opts    app.RunOptions
		wantErr bool
	}{
		{name: "continue", opts: app.RunOptions{OutputMode: "quiet"}},
		{name: "strict", opts: app.RunOptions{OutputMode: "quiet", Strict: true}, wantErr: true},
		{name: "halt", opts: app.RunOptions{OutputMode: "quiet", HaltOnError: true}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := newProject(t)
			writeFile(t, root, "src/style/broken.scss", ".a { syntax error }\n")
			a, errs := newTestApp(t, root)

			err := a.Build(t.Context(), tt.opts)
			if tt.wantErr {
				require.ErrorIs(t, err, domain.ErrBuildFailed)
			} else {
				require.NoError(t, err)
			}

			// The failure is notified and isolated to the broken file.
			logged := errs.all()
			require.Len(t, logged, 1)
			assert.ErrorContains(t, logged[0], "SCSS")
			assert.ErrorContains(t, logged[0], `expected ";"`)
			assert.FileExists(t, filepath.Join(root, "public", "style", "main.css"))
			assert.NoFileExists(t, filepath.Join(root, "public", "style", "broken.css"))
			assert.FileExists(t, filepath.Join(root, "public", "index.html"))
		})
	}
}

func TestApp_Run(t *testing.T) {
	root := newProject(t)
	a, _ := newTestApp(t, root)

	require.NoError(t, a.Run(t.Context(), []string{domain.TaskImg}, app.RunOptions{OutputMode: "quiet"}))

	assert.FileExists(t, filepath.Join(root, "public", "img", "css", "bg.jpg"))
	assert.FileExists(t, filepath.Join(root, "public", "img", "html", "team", "photo.jpg"))
	assert.NoFileExists(t, filepath.Join(root, "public", "index.html"))
}

func TestApp_Run_Errors(t *testing.T) {
	root := newProject(t)
	a, _ := newTestApp(t, root)

	err := a.Run(t.Context(), []string{"htlm"}, app.RunOptions{OutputMode: "quiet"})
	assert.ErrorContains(t, err, domain.ErrTaskNotFound.Error())

	err = a.Run(t.Context(), nil, app.RunOptions{OutputMode: "quiet"})
	assert.ErrorContains(t, err, domain.ErrTaskNotFound.Error())
}

func TestApp_Run_LinearOutput(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	root := newProject(t)
	a, _ := newTestApp(t, root)

	var stdout, stderr bytes.Buffer
	a.WithOutput(&stdout, &stderr)

	require.NoError(t, a.Run(t.Context(), []string{domain.TaskFont}, app.RunOptions{OutputMode: "linear"}))

	assert.Contains(t, stderr.String(), "[font] Starting...")
	assert.Contains(t, stderr.String(), "[font] ✓ Completed")
}

func TestApp_InvalidConfig(t *testing.T) {
	root := newProject(t)
	writeFile(t, root, domain.ConfigFileName, "policy: explode\n")
	a, _ := newTestApp(t, root)

	err := a.Build(t.Context(), app.RunOptions{OutputMode: "quiet"})
	assert.ErrorContains(t, err, domain.ErrInvalidPolicy.Error())
}

func TestApp_Clean(t *testing.T) {
	root := newProject(t)
	a, _ := newTestApp(t, root)

	require.NoError(t, a.Build(t.Context(), app.RunOptions{OutputMode: "quiet"}))
	require.DirExists(t, filepath.Join(root, "public"))

	require.NoError(t, a.Clean(t.Context()))
	assert.NoDirExists(t, filepath.Join(root, "public"))
	assert.FileExists(t, filepath.Join(root, "src", "html", "index.pug"))

	// Cleaning twice is fine.
	require.NoError(t, a.Clean(t.Context()))
}

func TestApp_Clean_RefusesProjectRoot(t *testing.T) {
	root := newProject(t)
	writeFile(t, root, domain.ConfigFileName, "paths:\n  dist: .\n")
	a, _ := newTestApp(t, root)

	err := a.Clean(t.Context())
	assert.ErrorContains(t, err, domain.ErrRefuseCleanRoot.Error())
	assert.DirExists(t, filepath.Join(root, "src"))
}

func TestApp_Tasks(t *testing.T) {
	a, _ := newTestApp(t, t.TempDir())

	var buf bytes.Buffer
	require.NoError(t, a.Tasks(t.Context(), &buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 10)
	assert.Equal(t, []string{"css", "style"}, strings.Fields(lines[0]))
	assert.Contains(t, buf.String(), "js:app")

	for _, line := range lines {
		if fields := strings.Fields(line); fields[0] == domain.TaskJS {
			assert.Equal(t, []string{"js", "-", "js:app,", "js:external"}, fields)
		}
	}
}

func TestApp_Watch(t *testing.T) {
	root := newProject(t)
	writeFile(t, root, domain.ConfigFileName, "debounce: 20ms\n")
	a, errs := newTestApp(t, root)

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() {
		done <- a.Watch(ctx, app.RunOptions{OutputMode: "quiet"})
	}()

	// Give the watcher time to register the source tree.
	time.Sleep(200 * time.Millisecond)

	writeFile(t, root, "src/html/about.pug", "h1 About")
	require.Eventually(t, func() bool {
		data, err := os.ReadFile(filepath.Join(root, "public", "about.html"))
		return err == nil && strings.Contains(string(data), "About")
	}, 5*time.Second, 20*time.Millisecond)

	// Unrelated categories are not rebuilt.
	assert.NoFileExists(t, filepath.Join(root, "public", "font", "roboto", "regular.woff2"))

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancellation")
	}
	assert.Empty(t, errs.all())
}

func TestApp_Watch_StyleErrorKeepsLastGoodOutput(t *testing.T) {
	root := newProject(t)
	writeFile(t, root, domain.ConfigFileName, "debounce: 20ms\n")
	a, errs := newTestApp(t, root)

	require.NoError(t, a.Build(t.Context(), app.RunOptions{OutputMode: "quiet"}))
	good := readFile(t, root, "public/style/main.css")

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() {
		done <- a.Watch(ctx, app.RunOptions{OutputMode: "quiet"})
	}()

	time.Sleep(200 * time.Millisecond)

	writeFile(t, root, "src/style/main.scss", spriteImport+"\n.icon { syntax error }\n")
	require.Eventually(t, func() bool {
		return len(errs.all()) > 0
	}, 5*time.Second, 20*time.Millisecond)

	assert.ErrorContains(t, errs.all()[0], `expected ";"`)
	assert.Equal(t, good, readFile(t, root, "public/style/main.css"))

	writeFile(t, root, "src/style/main.scss", spriteImport+"\n.fixed { width: $s-icon-width; }\n")
	require.Eventually(t, func() bool {
		data, err := os.ReadFile(filepath.Join(root, "public", "style", "main.css"))
		return err == nil && strings.Contains(string(data), ".fixed")
	}, 5*time.Second, 20*time.Millisecond)

	css := readFile(t, root, "public/style/main.css")
	assert.Contains(t, css, "$s-icon-width: 4px;")
	assert.NotContains(t, css, ".icon {")

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancellation")
	}
}

func TestApp_Build_CustomRoots(t *testing.T) {
	root := newProject(t)
	writeFile(t, root, domain.ConfigFileName, "paths:\n  dist: build\n")
	a, errs := newTestApp(t, root)

	require.NoError(t, a.Build(t.Context(), app.RunOptions{OutputMode: "quiet"}))
	assert.Empty(t, errs.all())

	assert.FileExists(t, filepath.Join(root, "build", "index.html"))
	assert.FileExists(t, filepath.Join(root, "build", "style", "main.css"))
	assert.FileExists(t, filepath.Join(root, "build", "font", "roboto", "regular.woff2"))
	assert.NoDirExists(t, filepath.Join(root, "public"))

	require.NoError(t, a.Clean(t.Context()))
	assert.NoDirExists(t, filepath.Join(root, "build"))
}
