// Package telemetry records task runs as OpenTelemetry spans and forwards them to a renderer.
package telemetry

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.trai.ch/trowel/internal/core/ports"
)

// InstrumentationName is the tracer name used for task spans.
const InstrumentationName = "trowel"

var _ ports.Tracer = (*OTelTracer)(nil)

// OTelTracer is a concrete implementation of ports.Tracer using OpenTelemetry.
type OTelTracer struct {
	tracer   trace.Tracer
	mu       sync.RWMutex
	renderer ports.Renderer
}

// NewOTelTracer creates a new OTelTracer with the given instrumentation name.
// Spans go to the global tracer provider.
func NewOTelTracer(name string) *OTelTracer {
	return &OTelTracer{
		tracer: otel.Tracer(name),
	}
}

// WithTracerProvider routes spans to tp instead of the global provider.
func (t *OTelTracer) WithTracerProvider(tp trace.TracerProvider) *OTelTracer {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tracer = tp.Tracer(InstrumentationName)
	return t
}

// WithRenderer sets the renderer that receives plans and task output.
func (t *OTelTracer) WithRenderer(r ports.Renderer) *OTelTracer {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.renderer = r
	return t
}

func (t *OTelTracer) currentRenderer() ports.Renderer {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.renderer
}

// Start creates a new span.
func (t *OTelTracer) Start(ctx context.Context, name string, opts ...ports.SpanOption) (context.Context, ports.Span) {
	cfg := &ports.SpanConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	t.mu.RLock()
	tracer := t.tracer
	t.mu.RUnlock()

	ctx, span := tracer.Start(ctx, name)
	if cfg.Category != "" {
		span.SetAttributes(attribute.String(ports.AttrCategory, cfg.Category))
	}

	return ctx, &OTelSpan{span: span, renderer: t.currentRenderer()}
}

// EmitPlan signals that a set of tasks is planned for execution.
func (t *OTelTracer) EmitPlan(ctx context.Context, taskNames []string, targets []string) {
	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.AddEvent("plan_emitted", trace.WithAttributes(
			attribute.StringSlice("tasks", taskNames),
			attribute.StringSlice("targets", targets),
		))
	}

	if r := t.currentRenderer(); r != nil {
		r.OnPlanEmit(taskNames, targets)
	}
}

// OTelSpan is a concrete implementation of ports.Span using OpenTelemetry.
type OTelSpan struct {
	span     trace.Span
	renderer ports.Renderer
}

// End completes the span.
func (s *OTelSpan) End() {
	s.span.End()
}

// RecordError records an error for the span.
func (s *OTelSpan) RecordError(err error) {
	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, err.Error())
}

// SetAttribute adds a key-value pair to the span.
func (s *OTelSpan) SetAttribute(key string, value any) {
	switch v := value.(type) {
	case string:
		s.span.SetAttributes(attribute.String(key, v))
	case int:
		s.span.SetAttributes(attribute.Int(key, v))
	case int64:
		s.span.SetAttributes(attribute.Int64(key, v))
	case float64:
		s.span.SetAttributes(attribute.Float64(key, v))
	case bool:
		s.span.SetAttributes(attribute.Bool(key, v))
	case []string:
		s.span.SetAttributes(attribute.StringSlice(key, v))
	default:
		s.span.SetAttributes(attribute.String(key, fmt.Sprintf("%v", v)))
	}
}

// Write forwards task output to the renderer, or records it as a span event when none is set.
func (s *OTelSpan) Write(p []byte) (n int, err error) {
	if s.renderer != nil {
		// The renderer may retain the slice.
		s.renderer.OnTaskLog(s.span.SpanContext().SpanID().String(), append([]byte(nil), p...))
		return len(p), nil
	}
	s.span.AddEvent("log", trace.WithAttributes(attribute.String("message", string(p))))
	return len(p), nil
}
