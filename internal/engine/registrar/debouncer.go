package registrar

import (
	"sync"
	"time"
	"unique"
)

// Debouncer coalesces rapid events per key into one callback per quiet window.
// Each key has its own timer, so a burst on one key never delays another.
type Debouncer struct {
	mu       sync.Mutex
	pending  map[string]map[unique.Handle[string]]struct{}
	timers   map[string]*time.Timer
	window   time.Duration
	callback func(key string, paths []string)
	stopped  bool
}

// NewDebouncer creates a new debouncer with the given time window and callback.
func NewDebouncer(window time.Duration, callback func(key string, paths []string)) *Debouncer {
	return &Debouncer{
		pending:  make(map[string]map[unique.Handle[string]]struct{}),
		timers:   make(map[string]*time.Timer),
		window:   window,
		callback: callback,
	}
}

// Add records path under key and restarts the key's window.
func (d *Debouncer) Add(key, path string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	set, ok := d.pending[key]
	if !ok {
		set = make(map[unique.Handle[string]]struct{})
		d.pending[key] = set
	}
	set[unique.Make(path)] = struct{}{}

	if timer, ok := d.timers[key]; ok {
		timer.Stop()
	}
	d.timers[key] = time.AfterFunc(d.window, func() { d.fire(key) })
}

func (d *Debouncer) fire(key string) {
	d.mu.Lock()
	paths := d.take(key)
	d.mu.Unlock()

	if len(paths) > 0 && d.callback != nil {
		go d.callback(key, paths)
	}
}

// take removes and returns the pending paths of key. The caller holds d.mu.
func (d *Debouncer) take(key string) []string {
	delete(d.timers, key)

	set := d.pending[key]
	delete(d.pending, key)

	paths := make([]string, 0, len(set))
	for handle := range set {
		paths = append(paths, handle.Value())
	}
	return paths
}

// Flush immediately triggers the callback for every pending key and waits for the callbacks.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	batches := make(map[string][]string, len(d.pending))
	for key, timer := range d.timers {
		if !timer.Stop() {
			// Already fired; let it complete rather than processing twice.
			continue
		}
		batches[key] = d.take(key)
	}
	d.mu.Unlock()

	if d.callback == nil {
		return
	}
	for key, paths := range batches {
		if len(paths) > 0 {
			d.callback(key, paths)
		}
	}
}

// Stop cancels every pending window and discards its events. Add is a no-op afterwards.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	for key, timer := range d.timers {
		timer.Stop()
		delete(d.timers, key)
	}
	clear(d.pending)
}
