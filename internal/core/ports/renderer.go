package ports

import "time"

// Renderer is the abstraction for task progress output.
// It decouples telemetry collection from presentation.
//
//go:generate mockgen -source=renderer.go -destination=mocks/mock_renderer.go -package=mocks
type Renderer interface {
	// OnPlanEmit is called when the scheduler has planned a run.
	// tasks: task names in execution order
	// targets: the requested targets
	OnPlanEmit(tasks []string, targets []string)

	// OnTaskStart is called when a task begins execution.
	OnTaskStart(spanID, parentID, name string, startTime time.Time)

	// OnTaskLog is called when a task emits output.
	// data may contain partial lines.
	OnTaskLog(spanID string, data []byte)

	// OnTaskComplete is called when a task finishes execution.
	OnTaskComplete(spanID string, endTime time.Time, summary TaskSummary)

	// Stop flushes buffered output.
	Stop() error
}

// TaskSummary describes a finished task run.
type TaskSummary struct {
	// Category is the asset category of the task, empty when the span carried none.
	Category string
	// Written is the number of files the run wrote.
	Written int
	// Err is nil if successful.
	Err error
}
