package recycle

import (
	"fmt"
	"strings"

	apimetric "go.opentelemetry.io/otel/metric"

	"github.com/coachpo/recycle/errs"
	"github.com/coachpo/recycle/internal/observability"
)

// Factory constructs a fresh value when the free store has no idle one.
// Factory errors propagate to Acquire callers untouched.
type Factory[T any] func() (*T, error)

// Resetter is the optional capability a pooled type declares to clear
// prior-use state before its value re-enters circulation. Types without it
// are recycled as-is.
type Resetter interface {
	Reset()
}

// Option configures a Recycler at construction time.
type Option[T any] func(*settings[T])

type settings[T any] struct {
	name          string
	capacity      int
	reset         func(*T)
	meterProvider apimetric.MeterProvider
	logger        observability.Logger
	err           error
}

func defaultSettings[T any]() settings[T] {
	return settings[T]{
		name:          defaultPoolName[T](),
		capacity:      0,
		reset:         nil,
		meterProvider: nil,
		logger:        nil,
		err:           nil,
	}
}

func defaultPoolName[T any]() string {
	var zero *T
	return strings.TrimPrefix(fmt.Sprintf("%T", zero), "*")
}

// WithName labels the pool in stats, metrics, and log output. The default is
// the pooled type's name.
func WithName[T any](name string) Option[T] {
	name = strings.TrimSpace(name)
	return func(s *settings[T]) {
		if name != "" {
			s.name = name
		}
	}
}

// WithCapacity bounds the number of idle values the free store retains.
// Returned values beyond the bound are discarded. Zero, the default, means
// unbounded retention.
func WithCapacity[T any](capacity int) Option[T] {
	return func(s *settings[T]) {
		if capacity < 0 {
			s.err = errs.New("recycler", errs.CodeInvalid,
				errs.WithMessage(fmt.Sprintf("capacity must be >= 0, got %d", capacity)))
			return
		}
		s.capacity = capacity
	}
}

// WithReset overrides the reset hook run before a value re-enters the free
// store. It takes precedence over the pooled type's own Resetter
// implementation.
func WithReset[T any](reset func(*T)) Option[T] {
	return func(s *settings[T]) {
		s.reset = reset
	}
}

// WithMeterProvider routes pool metrics through the provided meter provider
// instead of the global one.
func WithMeterProvider[T any](mp apimetric.MeterProvider) Option[T] {
	return func(s *settings[T]) {
		s.meterProvider = mp
	}
}

// WithLogger routes pool diagnostics through the provided logger instead of
// the global one.
func WithLogger[T any](logger observability.Logger) Option[T] {
	return func(s *settings[T]) {
		s.logger = logger
	}
}
