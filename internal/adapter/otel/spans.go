package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "settingsadmin"

// StartQuerySpan starts a span for a cached read.
func StartQuerySpan(ctx context.Context, key string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "query.read",
		trace.WithAttributes(attribute.String("query.key", key)),
	)
}

// StartMutationSpan starts a span for a create, update or delete.
func StartMutationSpan(ctx context.Context, op, id string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "query."+op,
		trace.WithAttributes(
			attribute.String("mutation.op", op),
			attribute.String("setting.id", id),
		),
	)
}
