package ports

import (
	"context"
	"io"
)

//go:generate mockgen -source=telemetry.go -destination=mocks/mock_telemetry.go -package=mocks

// Span attributes set on task spans.
const (
	AttrCategory = "trowel.category"
	AttrWritten  = "trowel.written"
)

// Tracer is the entry point for creating spans.
type Tracer interface {
	// Start creates a new span.
	Start(ctx context.Context, name string, opts ...SpanOption) (context.Context, Span)
	// EmitPlan signals that a set of tasks is planned for execution.
	EmitPlan(ctx context.Context, taskNames []string, targets []string)
}

// Span represents a unit of work.
type Span interface {
	io.Writer
	// End completes the span.
	End()
	// RecordError records an error for the span.
	RecordError(err error)
	// SetAttribute adds a key-value pair to the span.
	SetAttribute(key string, value any)
}

// SpanConfig holds configuration for a starting span.
type SpanConfig struct {
	// Category is the asset category of the task, empty for aggregates.
	Category string
}

// SpanOption is a functional option for configuring a span.
type SpanOption func(*SpanConfig)

// WithCategory tags the span with an asset category.
func WithCategory(c string) SpanOption {
	return func(cfg *SpanConfig) {
		cfg.Category = c
	}
}
