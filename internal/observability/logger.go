package observability

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/trace"
)

const (
	attrTraceID = "trace_id"
	attrSpanID  = "span_id"
	attrService = "service"

	serviceName = "modelstore"
)

// Log formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// ErrInvalidLogConfig is returned for an unknown log level or format.
var ErrInvalidLogConfig = errors.New("invalid logging configuration")

// TracingHandler is an [slog.Handler] that adds the active trace and span IDs to every
// record logged with a span-carrying context.
type TracingHandler struct {
	inner slog.Handler
}

// NewTracingHandler wraps inner and pre-attaches the service name.
func NewTracingHandler(inner slog.Handler) *TracingHandler {
	return &TracingHandler{inner: inner.WithAttrs([]slog.Attr{slog.String(attrService, serviceName)})}
}

// Enabled delegates to the inner handler.
func (th *TracingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return th.inner.Enabled(ctx, level)
}

// Handle adds trace context attributes from the span context, then delegates.
func (th *TracingHandler) Handle(ctx context.Context, record slog.Record) error {
	sc := trace.SpanContextFromContext(ctx)
	if sc.IsValid() {
		record.AddAttrs(
			slog.String(attrTraceID, sc.TraceID().String()),
			slog.String(attrSpanID, sc.SpanID().String()),
		)
	}

	if err := th.inner.Handle(ctx, record); err != nil {
		return fmt.Errorf("tracing handler: %w", err)
	}
	return nil
}

// WithAttrs returns a new TracingHandler with additional attributes on the inner handler.
func (th *TracingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &TracingHandler{inner: th.inner.WithAttrs(attrs)}
}

// WithGroup returns a new TracingHandler with a group prefix on the inner handler.
func (th *TracingHandler) WithGroup(name string) slog.Handler {
	return &TracingHandler{inner: th.inner.WithGroup(name)}
}

// ParseLevel maps debug, info, warn and error to slog levels.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("%w: level %q", ErrInvalidLogConfig, s)
	}
	return level, nil
}

// NewLogger builds the CLI logger writing to w in the given format ("text" or "json").
func NewLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: lvl}

	var inner slog.Handler
	switch strings.ToLower(format) {
	case FormatText, "":
		inner = slog.NewTextHandler(w, opts)
	case FormatJSON:
		inner = slog.NewJSONHandler(w, opts)
	default:
		return nil, fmt.Errorf("%w: format %q", ErrInvalidLogConfig, format)
	}
	return slog.New(NewTracingHandler(inner)), nil
}
