package registrar_test

import (
	"context"
	"iter"
	"path/filepath"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/trowel/internal/core/domain"
	"go.trai.ch/trowel/internal/core/ports"
	"go.trai.ch/trowel/internal/engine/registrar"
)

const root = "/project"

func src(rel string) string {
	return filepath.Join(root, filepath.FromSlash(rel))
}

func TestRegistrar_Match(t *testing.T) {
	r := registrar.New(root, domain.DefaultPathTable().WatchRules(), 0, nil)

	tests := []struct {
		path string
		want []string
	}{
		{path: "src/html/index.pug", want: []string{"html"}},
		{path: "src/html/layouts/base.pug", want: []string{"html"}},
		{path: "src/style/vendors/_reset.scss", want: []string{"css"}},
		{path: "src/js/main.js", want: []string{"js"}},
		{path: "src/js/external/jquery.js", want: []string{"js"}},
		{path: "src/img/css/sprite/icon.png", want: []string{"sprite"}},
		{path: "src/img/css/sprite/icon@2x.png", want: []string{"sprite"}},
		{path: "src/img/css/bg.png", want: []string{"img"}},
		{path: "src/img/html/team/photo.jpg", want: []string{"img"}},
		{path: "src/font/roboto/regular.woff2", want: []string{"font"}},
		{path: "src/html/notes.txt"},
		{path: "src/img/css/sprite"},
		{path: "public/index.html"},
		{path: "src/js"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Match(src(tt.path)))
		})
	}
}

func events(evs ...ports.WatchEvent) iter.Seq[ports.WatchEvent] {
	return func(yield func(ports.WatchEvent) bool) {
		for _, ev := range evs {
			if !yield(ev) {
				return
			}
		}
	}
}

func TestRegistrar_Run_OneInvocationPerBatch(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		got := newBatches()
		r := registrar.New(root, domain.DefaultPathTable().WatchRules(), 100*time.Millisecond, got.record)

		ch := make(chan ports.WatchEvent)
		seq := func(yield func(ports.WatchEvent) bool) {
			for ev := range ch {
				if !yield(ev) {
					return
				}
			}
		}

		done := make(chan error, 1)
		go func() { done <- r.Run(t.Context(), seq) }()

		ch <- ports.WatchEvent{Path: src("src/style/main.scss"), Operation: ports.OpWrite}
		ch <- ports.WatchEvent{Path: src("src/style/_vars.scss"), Operation: ports.OpWrite}
		ch <- ports.WatchEvent{Path: src("src/img/css/sprite/a.png"), Operation: ports.OpCreate}
		ch <- ports.WatchEvent{Path: src("README.md"), Operation: ports.OpWrite}

		time.Sleep(150 * time.Millisecond)
		synctest.Wait()

		require.Len(t, got.get("css"), 1)
		assert.Len(t, got.get("css")[0], 2)
		require.Len(t, got.get("sprite"), 1)
		assert.Equal(t, 2, got.keys())

		close(ch)
		require.NoError(t, <-done)
	})
}

func TestRegistrar_Run_Cancelled(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		got := newBatches()
		r := registrar.New(root, domain.DefaultPathTable().WatchRules(), 100*time.Millisecond, got.record)

		ctx, cancel := context.WithCancel(t.Context())
		cancel()

		err := r.Run(ctx, events(ports.WatchEvent{Path: src("src/html/index.pug")}))
		require.ErrorIs(t, err, context.Canceled)

		time.Sleep(150 * time.Millisecond)
		synctest.Wait()
		assert.Empty(t, got.get("html"))
	})
}
