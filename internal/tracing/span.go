package tracing

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span attribute keys.
const (
	AttrUser    = attribute.Key("crankset.user")
	AttrTask    = attribute.Key("crankset.task")
	AttrTaskSet = attribute.Key("crankset.task_set")
	AttrWeight  = attribute.Key("crankset.task.weight")
)

// StartTaskSpan starts a span for one task execution by user.
func StartTaskSpan(ctx context.Context, tracer trace.Tracer, user, setName, task string, weight int) (context.Context, trace.Span) {
	ctx, span := tracer.Start(ctx, "task "+task,
		trace.WithSpanKind(trace.SpanKindInternal),
	)
	span.SetAttributes(
		AttrUser.String(user),
		AttrTaskSet.String(setName),
		AttrTask.String(task),
		AttrWeight.Int(weight),
	)
	return ctx, span
}

// EndSpan finishes a span, recording error status if applicable.
func EndSpan(span trace.Span, err error, attrs ...attribute.KeyValue) {
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
