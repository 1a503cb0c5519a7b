// Package linear provides a synchronous, line-buffered progress renderer.
package linear

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/muesli/termenv"
	"go.trai.ch/trowel/internal/core/ports"
	"go.trai.ch/trowel/internal/ui/output"
	"go.trai.ch/trowel/internal/ui/style"
)

var _ ports.Renderer = (*Renderer)(nil)

// Renderer implements ports.Renderer with chronological, task-prefixed lines.
// Task output goes to stdout, lifecycle messages to stderr.
type Renderer struct {
	stdout io.Writer
	stderr io.Writer
	output *termenv.Output

	mu      sync.Mutex
	tasks   map[string]*taskState // spanID -> task state
	buffers map[string]*bytes.Buffer
}

type taskState struct {
	name      string
	startTime time.Time
}

// Option configures a Renderer.
type Option func(*options)

type options struct {
	profile func() termenv.Profile
}

// WithColorProfile selects the color profile of lifecycle messages.
// The default is output.ColorProfileANSI.
func WithColorProfile(fn func() termenv.Profile) Option {
	return func(o *options) {
		o.profile = fn
	}
}

// NewRenderer creates a new Renderer. Nil writers fall back to the process streams.
func NewRenderer(stdout, stderr io.Writer, opts ...Option) *Renderer {
	o := options{profile: output.ColorProfileANSI}
	for _, opt := range opts {
		opt(&o)
	}

	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}

	return &Renderer{
		stdout:  stdout,
		stderr:  stderr,
		output:  output.NewWithProfile(stderr, o.profile),
		tasks:   make(map[string]*taskState),
		buffers: make(map[string]*bytes.Buffer),
	}
}

// Stop flushes all remaining buffers.
func (r *Renderer) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for spanID := range r.buffers {
		r.flushBufferLocked(spanID)
	}

	return nil
}

// OnPlanEmit prints the planned tasks.
func (r *Renderer) OnPlanEmit(tasks []string, targets []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, _ = fmt.Fprintf(r.stderr, "%s Running %d task(s) for %s\n",
		r.output.String(style.Arrow).Faint().String(), len(tasks), strings.Join(targets, ", "))
}

// OnTaskStart prints a task start message.
func (r *Renderer) OnTaskStart(spanID, _ /* parentID */, name string, startTime time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tasks[spanID] = &taskState{
		name:      name,
		startTime: startTime,
	}
	r.buffers[spanID] = new(bytes.Buffer)

	prefix := r.output.String(fmt.Sprintf("[%s]", name)).Faint().String()
	_, _ = fmt.Fprintf(r.stderr, "%s Starting...\n", prefix)
}

// OnTaskLog buffers log data and prints complete lines with the task prefix.
func (r *Renderer) OnTaskLog(spanID string, data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[spanID]
	if !ok {
		return
	}

	buf := r.buffers[spanID]
	buf.Write(data)

	for {
		line, err := buf.ReadBytes('\n')
		if err != nil {
			// Incomplete line, keep it for the next write.
			if len(line) > 0 {
				rest := new(bytes.Buffer)
				rest.Write(line)
				r.buffers[spanID] = rest
			}
			break
		}

		r.printLineLocked(task.name, line)
	}
}

// OnTaskComplete flushes the remaining buffer and prints the completion status.
// Successful category tasks also report how many files they wrote.
func (r *Renderer) OnTaskComplete(spanID string, endTime time.Time, summary ports.TaskSummary) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[spanID]
	if !ok {
		return
	}

	r.flushBufferLocked(spanID)

	duration := endTime.Sub(task.startTime).Round(time.Millisecond)
	prefix := fmt.Sprintf("[%s]", task.name)

	if summary.Err != nil {
		symbol := r.output.String(style.Cross).Foreground(termenv.ANSIRed).String()
		_, _ = fmt.Fprintf(r.stderr, "%s %s Failed after %v: %v\n",
			prefix, symbol, duration, summary.Err)
	} else {
		symbol := r.output.String(style.Check).Foreground(termenv.ANSIGreen).String()
		_, _ = fmt.Fprintf(r.stderr, "%s %s Completed in %v%s\n",
			prefix, symbol, duration, r.outcome(summary))
	}

	delete(r.tasks, spanID)
	delete(r.buffers, spanID)
}

func (r *Renderer) outcome(summary ports.TaskSummary) string {
	var text string
	switch {
	case summary.Category == "":
		return ""
	case summary.Written == 0:
		text = "up to date"
	case summary.Written == 1:
		text = "1 file written"
	default:
		text = fmt.Sprintf("%d files written", summary.Written)
	}
	return " " + r.output.String("("+text+")").Faint().String()
}

// flushBufferLocked prints any partial line left for a task.
// Must be called with r.mu held.
func (r *Renderer) flushBufferLocked(spanID string) {
	task, ok := r.tasks[spanID]
	if !ok {
		return
	}

	buf := r.buffers[spanID]
	if buf.Len() > 0 {
		r.printLineLocked(task.name, buf.Bytes())
		buf.Reset()
	}
}

// printLineLocked prints a line with the task name prefix.
// Must be called with r.mu held.
func (r *Renderer) printLineLocked(taskName string, line []byte) {
	line = bytes.TrimSuffix(line, []byte("\n"))
	line = bytes.TrimSuffix(line, []byte("\r"))

	if len(line) == 0 {
		return
	}

	_, _ = fmt.Fprintf(r.stdout, "[%s] %s\n", taskName, string(line))
}
