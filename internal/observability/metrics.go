package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricSavesTotal   = "modelstore.saves.total"
	metricLoadsTotal   = "modelstore.loads.total"
	metricErrorsTotal  = "modelstore.errors.total"
	metricPayloadBytes = "modelstore.payload.bytes"

	attrOp         = "op"
	attrErrorClass = "error.class"
	attrChain      = "chain"
)

// payloadBucketBoundaries spans 1KiB to 1GiB in powers of four.
var payloadBucketBoundaries = []float64{
	1 << 10, 1 << 12, 1 << 14, 1 << 16, 1 << 18, 1 << 20, 1 << 22, 1 << 24, 1 << 26, 1 << 28, 1 << 30,
}

// TracerName is the instrumentation scope of store spans.
const TracerName = "github.com/JIMMY-KSU/modelstore"

// StoreMetrics holds OTel instruments for store operations.
type StoreMetrics struct {
	savesTotal   metric.Int64Counter
	loadsTotal   metric.Int64Counter
	errorsTotal  metric.Int64Counter
	payloadBytes metric.Int64Histogram
}

// NewStoreMetrics creates store metric instruments from the given meter.
func NewStoreMetrics(mt metric.Meter) (*StoreMetrics, error) {
	saves, err := mt.Int64Counter(metricSavesTotal,
		metric.WithDescription("Models saved, counting chain members"),
		metric.WithUnit("{group}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricSavesTotal, err)
	}

	loads, err := mt.Int64Counter(metricLoadsTotal,
		metric.WithDescription("Models loaded, counting chain members"),
		metric.WithUnit("{group}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricLoadsTotal, err)
	}

	errs, err := mt.Int64Counter(metricErrorsTotal,
		metric.WithDescription("Failed store operations by error class"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricErrorsTotal, err)
	}

	bytes, err := mt.Int64Histogram(metricPayloadBytes,
		metric.WithDescription("Encoded payload size"),
		metric.WithUnit("By"),
		metric.WithExplicitBucketBoundaries(payloadBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricPayloadBytes, err)
	}

	return &StoreMetrics{
		savesTotal:   saves,
		loadsTotal:   loads,
		errorsTotal:  errs,
		payloadBytes: bytes,
	}, nil
}

// DefaultStoreMetrics creates instruments on the global meter provider.
// Until a provider is installed the instruments are no-ops.
func DefaultStoreMetrics() *StoreMetrics {
	m, err := NewStoreMetrics(otel.Meter(TracerName))
	if err != nil {
		otel.Handle(err)
		return nil
	}
	return m
}

// RecordSave counts one saved group of the given payload size.
// Safe to call on a nil receiver (no-op).
func (sm *StoreMetrics) RecordSave(ctx context.Context, size int64, chainMember bool) {
	if sm == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.Bool(attrChain, chainMember))
	sm.savesTotal.Add(ctx, 1, attrs)
	sm.payloadBytes.Record(ctx, size, metric.WithAttributes(attribute.String(attrOp, "save")))
}

// RecordLoad counts one loaded group of the given payload size.
// Safe to call on a nil receiver (no-op).
func (sm *StoreMetrics) RecordLoad(ctx context.Context, size int64, chainMember bool) {
	if sm == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.Bool(attrChain, chainMember))
	sm.loadsTotal.Add(ctx, 1, attrs)
	sm.payloadBytes.Record(ctx, size, metric.WithAttributes(attribute.String(attrOp, "load")))
}

// RecordError counts a failed operation.
// Safe to call on a nil receiver (no-op).
func (sm *StoreMetrics) RecordError(ctx context.Context, op, class string) {
	if sm == nil {
		return
	}
	sm.errorsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrOp, op),
		attribute.String(attrErrorClass, class),
	))
}
