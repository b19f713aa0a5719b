package store

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span names.
const (
	spanSave    = "modelstore.save"
	spanLoad    = "modelstore.load"
	spanList    = "modelstore.list"
	spanDelete  = "modelstore.delete"
	spanCopy    = "modelstore.copy"
	spanVerify  = "modelstore.verify"
	spanCompact = "modelstore.compact"
)

// Span attribute keys.
const (
	attrPath   = "modelstore.path"
	attrName   = "modelstore.name"
	attrChain  = "modelstore.chain.length"
	attrGroups = "modelstore.groups"
)

func (s *Store) start(ctx context.Context, span, path, name string) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{attribute.String(attrPath, path)}
	if name != "" {
		attrs = append(attrs, attribute.String(attrName, name))
	}
	return s.tracer.Start(ctx, span, trace.WithAttributes(attrs...))
}

// finish ends span, recording err on both the span and the error counter.
func (s *Store) finish(ctx context.Context, span trace.Span, op string, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, Classify(err))
		s.metrics.RecordError(ctx, op, Classify(err))
	}
	span.End()
}
