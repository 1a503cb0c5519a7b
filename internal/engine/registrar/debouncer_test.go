package registrar_test

import (
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/trowel/internal/engine/registrar"
)

type batches struct {
	mu    sync.Mutex
	calls map[string][][]string
}

func newBatches() *batches {
	return &batches{calls: make(map[string][][]string)}
}

func (b *batches) record(key string, paths []string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls[key] = append(b.calls[key], paths)
}

func (b *batches) get(key string) [][]string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[key]
}

func (b *batches) keys() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.calls)
}

func TestDebouncer_CoalescesPerKey(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		got := newBatches()
		d := registrar.NewDebouncer(100*time.Millisecond, got.record)

		d.Add("css", "/p/src/style/a.scss")
		d.Add("css", "/p/src/style/b.scss")
		d.Add("css", "/p/src/style/a.scss")
		d.Add("html", "/p/src/html/index.pug")

		time.Sleep(150 * time.Millisecond)
		synctest.Wait()

		require.Len(t, got.get("css"), 1)
		assert.ElementsMatch(t, []string{"/p/src/style/a.scss", "/p/src/style/b.scss"}, got.get("css")[0])
		require.Len(t, got.get("html"), 1)
		assert.Equal(t, []string{"/p/src/html/index.pug"}, got.get("html")[0])
	})
}

func TestDebouncer_TimerResetIsPerKey(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		got := newBatches()
		d := registrar.NewDebouncer(100*time.Millisecond, got.record)

		d.Add("css", "a.scss")
		d.Add("js", "a.js")
		time.Sleep(60 * time.Millisecond)

		// Resets css only.
		d.Add("css", "b.scss")
		time.Sleep(60 * time.Millisecond)
		synctest.Wait()

		assert.Len(t, got.get("js"), 1)
		assert.Empty(t, got.get("css"))

		time.Sleep(60 * time.Millisecond)
		synctest.Wait()
		require.Len(t, got.get("css"), 1)
		assert.ElementsMatch(t, []string{"a.scss", "b.scss"}, got.get("css")[0])
	})
}

func TestDebouncer_Flush(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		got := newBatches()
		d := registrar.NewDebouncer(100*time.Millisecond, got.record)

		d.Add("font", "a.woff2")
		d.Flush()
		require.Len(t, got.get("font"), 1)

		// The cancelled window must not fire again.
		time.Sleep(150 * time.Millisecond)
		synctest.Wait()
		assert.Len(t, got.get("font"), 1)

		// Nothing pending.
		d.Flush()
		assert.Len(t, got.get("font"), 1)
	})
}

func TestDebouncer_Stop(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		got := newBatches()
		d := registrar.NewDebouncer(100*time.Millisecond, got.record)

		d.Add("img", "a.png")
		d.Stop()
		d.Add("img", "b.png")

		time.Sleep(150 * time.Millisecond)
		synctest.Wait()
		assert.Empty(t, got.get("img"))
	})
}

func TestDebouncer_NilCallback(t *testing.T) {
	synctest.Test(t, func(_ *testing.T) {
		d := registrar.NewDebouncer(50*time.Millisecond, nil)

		d.Add("css", "a.scss")
		time.Sleep(100 * time.Millisecond)
		synctest.Wait()

		d.Add("css", "b.scss")
		d.Flush()
	})
}
