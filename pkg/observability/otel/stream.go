package otel

import (
	"context"

	sdkotel "go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/fluxorio/reactive/pkg/rx"
)

// NextWithSpan pushes v into subject inside a producer span named after the
// stream.
func NextWithSpan[T any](ctx context.Context, stream string, subject *rx.Subject[T], v T) {
	_, span := startSpan(ctx, "stream.next", stream)
	defer span.End()
	subject.Next(v)
}

// ErrorWithSpan terminates subject with err inside a producer span and
// records the error on it.
func ErrorWithSpan[T any](ctx context.Context, stream string, subject *rx.Subject[T], err error) {
	_, span := startSpan(ctx, "stream.error", stream)
	defer span.End()
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	subject.Error(err)
}

// CompleteWithSpan completes subject inside a producer span.
func CompleteWithSpan[T any](ctx context.Context, stream string, subject *rx.Subject[T]) {
	_, span := startSpan(ctx, "stream.complete", stream)
	defer span.End()
	subject.Complete()
}

func startSpan(ctx context.Context, op, stream string) (context.Context, trace.Span) {
	return sdkotel.Tracer(tracerName).Start(ctx, op,
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			semconv.MessagingSystemKey.String("reactive"),
			semconv.MessagingDestinationKey.String(stream),
			attribute.String("stream", stream),
		),
	)
}
