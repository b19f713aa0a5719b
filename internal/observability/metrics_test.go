package observability_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/JIMMY-KSU/modelstore/internal/observability"
)

func setupTestMeter(t *testing.T) (*observability.StoreMetrics, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	sm, err := observability.NewStoreMetrics(mp.Meter("test"))
	require.NoError(t, err)

	return sm, reader
}

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for idx := range rm.ScopeMetrics {
		for midx := range rm.ScopeMetrics[idx].Metrics {
			if rm.ScopeMetrics[idx].Metrics[midx].Name == name {
				return &rm.ScopeMetrics[idx].Metrics[midx]
			}
		}
	}
	return nil
}

func sumOf(t *testing.T, m *metricdata.Metrics) int64 {
	t.Helper()
	require.NotNil(t, m)

	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is not an int64 sum", m.Name)

	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestStoreMetrics(t *testing.T) {
	sm, reader := setupTestMeter(t)
	ctx := context.Background()

	sm.RecordSave(ctx, 2048, false)
	sm.RecordSave(ctx, 512, true)
	sm.RecordLoad(ctx, 2048, false)
	sm.RecordError(ctx, "load", "not_found")

	rm := collectMetrics(t, reader)
	assert.Equal(t, int64(2), sumOf(t, findMetric(rm, "modelstore.saves.total")))
	assert.Equal(t, int64(1), sumOf(t, findMetric(rm, "modelstore.loads.total")))
	assert.Equal(t, int64(1), sumOf(t, findMetric(rm, "modelstore.errors.total")))

	hist := findMetric(rm, "modelstore.payload.bytes")
	require.NotNil(t, hist)
	h, ok := hist.Data.(metricdata.Histogram[int64])
	require.True(t, ok)

	var count uint64
	for _, dp := range h.DataPoints {
		count += dp.Count
	}
	assert.Equal(t, uint64(3), count)
}

func TestStoreMetricsNilSafe(t *testing.T) {
	var sm *observability.StoreMetrics
	ctx := context.Background()

	assert.NotPanics(t, func() {
		sm.RecordSave(ctx, 1, false)
		sm.RecordLoad(ctx, 1, false)
		sm.RecordError(ctx, "save", "io")
	})
}
