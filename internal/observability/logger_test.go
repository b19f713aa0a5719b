package observability_test

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/JIMMY-KSU/modelstore/internal/observability"
)

func TestNewLoggerJSONWithTraceContext(t *testing.T) {
	var buf bytes.Buffer
	logger, err := observability.NewLogger(&buf, "debug", "json")
	require.NoError(t, err)

	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()
	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	logger.InfoContext(ctx, "saved", "name", "default")
	span.End()

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "saved", rec["msg"])
	assert.Equal(t, "default", rec["name"])
	assert.Equal(t, "modelstore", rec["service"])
	assert.Equal(t, span.SpanContext().TraceID().String(), rec["trace_id"])
	assert.Equal(t, span.SpanContext().SpanID().String(), rec["span_id"])
}

func TestNewLoggerWithoutSpan(t *testing.T) {
	var buf bytes.Buffer
	logger, err := observability.NewLogger(&buf, "info", "text")
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "msg=shown")
	assert.NotContains(t, out, "trace_id")
}

func TestNewLoggerRejectsBadConfig(t *testing.T) {
	_, err := observability.NewLogger(&bytes.Buffer{}, "loud", "text")
	require.ErrorIs(t, err, observability.ErrInvalidLogConfig)

	_, err = observability.NewLogger(&bytes.Buffer{}, "info", "xml")
	require.ErrorIs(t, err, observability.ErrInvalidLogConfig)
}
