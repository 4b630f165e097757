package database

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("vehicle-registry.repository")

func startSpan(ctx context.Context, name, operation, table string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs,
		attribute.String("db.operation", operation),
		attribute.String("db.table", table),
	)
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

func spanError(span trace.Span, status string, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, status)
}
