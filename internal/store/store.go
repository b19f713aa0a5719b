package store

import (
	"log/slog"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/JIMMY-KSU/modelstore/internal/codec"
	"github.com/JIMMY-KSU/modelstore/internal/container"
	"github.com/JIMMY-KSU/modelstore/internal/observability"
	"github.com/JIMMY-KSU/modelstore/internal/parallel"
)

// Defaults.
const (
	DefaultName      = "default"
	DefaultExtension = ".msc"

	// MaxChainLength bounds how many ancestors a single save captures.
	MaxChainLength = 1024

	chainSeparator = "@"
	chainSuffix    = "upstream"
)

// Store saves and loads persistable objects to container files.
type Store struct {
	reg         *codec.Registry
	log         *slog.Logger
	tracer      trace.Tracer
	metrics     *observability.StoreMetrics
	compress    bool
	noSync      bool
	now         func() time.Time
	defaultName string
	extension   string
	workers     parallel.Config
}

// Option configures a Store.
type Option func(*Store)

// WithRegistry sets the type registry. Defaults to codec.Default.
func WithRegistry(reg *codec.Registry) Option {
	return func(s *Store) { s.reg = reg }
}

// WithLogger sets the logger. Defaults to a discarding logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.log = l }
}

// WithTracerProvider sets where spans go. Defaults to the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Store) { s.tracer = tp.Tracer(observability.TracerName) }
}

// WithMeterProvider sets where metrics go. Defaults to the global provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *Store) {
		m, err := observability.NewStoreMetrics(mp.Meter(observability.TracerName))
		if err != nil {
			otel.Handle(err)
			return
		}
		s.metrics = m
	}
}

// WithCompression enables lz4 compression of array data.
func WithCompression(on bool) Option {
	return func(s *Store) { s.compress = on }
}

// WithSync controls fsync on commit. Enabled by default.
func WithSync(on bool) Option {
	return func(s *Store) { s.noSync = !on }
}

// WithClock sets the clock used for creation timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithDefaultName sets the model name used when none is given.
func WithDefaultName(name string) Option {
	return func(s *Store) {
		if name != "" {
			s.defaultName = name
		}
	}
}

// WithExtension sets the container file extension used by directory listings.
func WithExtension(ext string) Option {
	return func(s *Store) {
		if ext == "" {
			return
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		s.extension = ext
	}
}

// WithVerifyWorkers bounds how many groups Verify checks concurrently.
func WithVerifyWorkers(n int) Option {
	return func(s *Store) { s.workers.Workers = n }
}

// New creates a Store.
func New(opts ...Option) *Store {
	s := &Store{
		reg:         codec.Default,
		now:         time.Now,
		defaultName: DefaultName,
		extension:   DefaultExtension,
		workers:     parallel.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = slog.New(slog.DiscardHandler)
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer(observability.TracerName)
	}
	if s.metrics == nil {
		s.metrics = observability.DefaultStoreMetrics()
	}
	return s
}

// Registry returns the type registry in use.
func (s *Store) Registry() *codec.Registry {
	return s.reg
}

// Extension returns the container file extension.
func (s *Store) Extension() string {
	return s.extension
}

func (s *Store) containerOptions(readOnly bool) container.Options {
	return container.Options{
		ReadOnly: readOnly,
		NoSync:   s.noSync,
		Logger:   s.log,
		Now:      s.now,
	}
}

func (s *Store) nameOrDefault(name string) string {
	if name == "" {
		return s.defaultName
	}
	return name
}

// ChainMemberName returns the group name of the n-th ancestor (n >= 1) of name.
func ChainMemberName(name string, n int) string {
	return name + chainSeparator + chainSuffix + strconv.Itoa(n)
}

// ValidateModelName checks a caller-supplied model name. Names containing "@" are
// reserved for chain members.
func ValidateModelName(name string) error {
	if err := container.ValidateName(name); err != nil {
		return err
	}
	if strings.Contains(name, chainSeparator) {
		return &container.NameError{Name: name, Details: `"@" is reserved for chain members`}
	}
	return nil
}
