package observability

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// recordSpans installs an in-memory tracer provider for the test.
func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })
	return rec
}

func attr(attrs []attribute.KeyValue, key string) (attribute.Value, bool) {
	for _, kv := range attrs {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestDefaultTracingConfig(t *testing.T) {
	cfg := DefaultTracingConfig()
	if cfg.ServiceName != "conceptgraph" {
		t.Fatalf("expected service name 'conceptgraph', got %s", cfg.ServiceName)
	}
	if cfg.SampleRate != 1.0 {
		t.Fatalf("expected sample rate 1.0, got %f", cfg.SampleRate)
	}
}

func TestInitTracing_NoEndpoint(t *testing.T) {
	ctx := context.Background()
	tp, err := InitTracing(ctx, &TracingConfig{ServiceName: "test"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tp.Tracer() == nil {
		t.Fatal("expected non-nil tracer")
	}
	if err := tp.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown error: %v", err)
	}
}

func TestInitTracing_NilConfig(t *testing.T) {
	tp, err := InitTracing(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tp == nil {
		t.Fatal("expected non-nil tracer provider")
	}
}

func TestTraversalSpan(t *testing.T) {
	rec := recordSpans(t)

	_, span := StartTraversalSpan(context.Background(), "http", "one_root", 3)
	RecordTraversalResult(span, 7, 5, false)
	span.End()

	spans := rec.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	s := spans[0]
	if s.Name() != "traverse.http" {
		t.Fatalf("unexpected span name %q", s.Name())
	}
	if v, ok := attr(s.Attributes(), "traversal.depth"); !ok || v.AsInt64() != 3 {
		t.Fatalf("missing depth attribute: %v", s.Attributes())
	}
	if v, ok := attr(s.Attributes(), "traversal.relations"); !ok || v.AsInt64() != 5 {
		t.Fatalf("missing relations attribute: %v", s.Attributes())
	}
}

func TestTraversalSpan_Degraded(t *testing.T) {
	rec := recordSpans(t)

	_, span := StartTraversalSpan(context.Background(), "bolt", "two_root", 2)
	RecordTraversalResult(span, 0, 0, true)
	span.End()

	if got := rec.Ended()[0].Status().Code; got != codes.Error {
		t.Fatalf("expected error status, got %v", got)
	}
}

func TestScoreAndSummarySpans(t *testing.T) {
	rec := recordSpans(t)

	ctx, score := StartScoreSpan(context.Background(), 4, true)
	_, summary := StartSummarySpan(ctx, "zeugma")
	summary.End()
	RecordScoreResult(score, 3, 1, false)
	score.End()

	spans := rec.Ended()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}
	if spans[0].Parent().SpanID() != spans[1].SpanContext().SpanID() {
		t.Fatal("summary span should be a child of the score span")
	}
	if v, _ := attr(spans[0].Attributes(), "summary.title"); v.AsString() != "zeugma" {
		t.Fatalf("unexpected title attribute %v", v)
	}
}

func TestExportSpan(t *testing.T) {
	rec := recordSpans(t)

	_, span := StartExportSpan(context.Background(), "dictionary.db")
	span.End()

	if rec.Ended()[0].Name() != "edges.export" {
		t.Fatalf("unexpected span name %q", rec.Ended()[0].Name())
	}
}

func TestRecordError(t *testing.T) {
	rec := recordSpans(t)

	_, span := StartTraversalSpan(context.Background(), "http", "one_root", 1)
	RecordError(span, nil)
	RecordError(span, errors.New("connection refused"))
	span.End()

	s := rec.Ended()[0]
	if s.Status().Code != codes.Error || s.Status().Description != "connection refused" {
		t.Fatalf("unexpected status %+v", s.Status())
	}
}

func TestTracerProvider_Shutdown_NilProvider(t *testing.T) {
	tp := &TracerProvider{}
	if err := tp.Shutdown(context.Background()); err != nil {
		t.Fatalf("expected nil error for nil provider, got: %v", err)
	}
}
