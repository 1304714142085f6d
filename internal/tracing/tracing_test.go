package tracing_test

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/torosent/crankset/internal/config"
	"github.com/torosent/crankset/internal/tracing"
)

func setupTestTracer(t *testing.T) (*tracetest.InMemoryExporter, trace.Tracer) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
	})
	return exporter, tp.Tracer("test")
}

func TestInitDisabledByDefault(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	p, err := tracing.Init(context.Background(), config.TracingConfig{})
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })

	if p.Enabled() {
		t.Error("Enabled() = true, want false without endpoint")
	}

	_, span := p.Tracer().Start(context.Background(), "test")
	span.End()
	if span.SpanContext().IsValid() {
		t.Error("no-op tracer produced a valid span context")
	}
}

func TestInitWithEndpointEnablesTracing(t *testing.T) {
	for _, protocol := range []string{"grpc", "http"} {
		p, err := tracing.Init(context.Background(), config.TracingConfig{
			Endpoint:    "localhost:4317",
			Protocol:    protocol,
			ServiceName: "test-service",
			SampleRate:  1.0,
			Insecure:    true,
		})
		if err != nil {
			t.Fatalf("Init(%s) error = %v", protocol, err)
		}
		if !p.Enabled() {
			t.Errorf("Enabled() = false for %s", protocol)
		}
		_ = p.Shutdown(context.Background())
	}
}

func TestInitRejectsBadSettings(t *testing.T) {
	if _, err := tracing.Init(context.Background(), config.TracingConfig{
		Endpoint: "localhost:4317",
		Protocol: "carrier-pigeon",
	}); err == nil {
		t.Error("expected error for unknown protocol")
	}
	if _, err := tracing.Init(context.Background(), config.TracingConfig{
		Endpoint:   "localhost:4317",
		SampleRate: 2,
	}); err == nil {
		t.Error("expected error for sample rate > 1")
	}
}

func TestTaskSpanAttributesAndStatus(t *testing.T) {
	exporter, tracer := setupTestTracer(t)

	_, span := tracing.StartTaskSpan(context.Background(), tracer, "user-1", "MyTaskSet", "hello", 20)
	tracing.EndSpan(span, nil)

	_, failed := tracing.StartTaskSpan(context.Background(), tracer, "user-1", "MyTaskSet", "buy", 1)
	tracing.EndSpan(failed, errors.New("out of stock"))

	spans := exporter.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("got %d spans, want 2", len(spans))
	}
	if spans[0].Name != "task hello" {
		t.Errorf("span name = %q, want task hello", spans[0].Name)
	}
	attrs := map[string]interface{}{}
	for _, kv := range spans[0].Attributes {
		attrs[string(kv.Key)] = kv.Value.AsInterface()
	}
	if attrs["crankset.task"] != "hello" || attrs["crankset.task.weight"] != int64(20) || attrs["crankset.user"] != "user-1" {
		t.Errorf("attributes = %v", attrs)
	}
	if spans[0].Status.Code != codes.Ok {
		t.Errorf("status = %v, want Ok", spans[0].Status.Code)
	}
	if spans[1].Status.Code != codes.Error || spans[1].Status.Description != "out of stock" {
		t.Errorf("status = %+v, want Error", spans[1].Status)
	}
}
