package recycle

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	concpool "github.com/sourcegraph/conc/pool"

	"github.com/coachpo/recycle/errs"
	"github.com/coachpo/recycle/internal/observability"
)

// Recycler hands out leases over reusable values, constructing fresh ones via
// its factory only when the free store is empty. It is safe for concurrent
// use; Acquire and Release never block.
type Recycler[T any] struct {
	name    string
	id      string
	factory Factory[T]
	store   *FreeStore[T]
	reset   func(*T)
	metrics *poolMetrics
	log     observability.Logger
	debug   *debugTracker

	// issueMu orders lease issuance against close: checkout registers
	// in-flight under it, markClosed flips the flag under it.
	issueMu     sync.Mutex
	closed      atomic.Bool
	outstanding atomic.Int64
	inFlight    sync.WaitGroup

	hits     atomic.Uint64
	misses   atomic.Uint64
	returns  atomic.Uint64
	discards atomic.Uint64
}

// New constructs a Recycler backed by the given factory. By default the free
// store is unbounded; bound it with WithCapacity. If *T implements Resetter,
// its Reset runs before each value re-enters the store unless WithReset
// overrides it.
func New[T any](factory Factory[T], opts ...Option[T]) (*Recycler[T], error) {
	if factory == nil {
		return nil, errs.New("recycler", errs.CodeInvalid, errs.WithMessage("factory is required"))
	}
	cfg := defaultSettings[T]()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.err != nil {
		return nil, cfg.err
	}

	r := new(Recycler[T])
	r.name = cfg.name
	r.id = uuid.NewString()
	r.factory = factory
	r.store = NewFreeStore[T](cfg.capacity)
	r.reset = resolveReset(cfg.reset)
	r.log = cfg.logger
	r.debug = newDebugTracker(r.name)

	metrics, err := newPoolMetrics(cfg.meterProvider, r.name, r.id)
	if err != nil {
		return nil, err
	}
	r.metrics = metrics
	return r, nil
}

// NewZero constructs a Recycler whose factory is new(T).
func NewZero[T any](opts ...Option[T]) (*Recycler[T], error) {
	return New(func() (*T, error) { return new(T), nil }, opts...)
}

// resolveReset picks the override hook when given, otherwise the pooled
// type's own Resetter implementation, otherwise nil (recycle as-is).
func resolveReset[T any](override func(*T)) func(*T) {
	if override != nil {
		return override
	}
	if _, ok := any((*T)(nil)).(Resetter); ok {
		return func(v *T) {
			any(v).(Resetter).Reset()
		}
	}
	return nil
}

// Acquire returns a lease over an idle value, or over a freshly constructed
// one when the store is empty. Factory failures pass through untouched; the
// Recycler adds no retry and no context. Acquire never blocks.
func (r *Recycler[T]) Acquire() (*Lease[T], error) {
	if err := r.checkout(); err != nil {
		return nil, err
	}

	v, hit := r.store.TryTake()
	if hit {
		r.hits.Add(1)
		scrubReused(v, r.reset)
	} else {
		fresh, err := r.factory()
		if err != nil {
			r.inFlight.Done()
			return nil, err
		}
		if fresh == nil {
			r.inFlight.Done()
			return nil, errs.New(r.name, errs.CodeInvalid, errs.WithMessage("factory returned nil value"))
		}
		r.misses.Add(1)
		v = fresh
	}

	r.metrics.recordAcquire(hit)
	r.outstanding.Add(1)

	lease := &Lease[T]{value: v, owner: r, id: newLeaseID()}
	r.debug.recordAcquire(lease.id)
	return lease, nil
}

// checkout rejects a closed recycler and registers the caller in flight as
// one atomic step. Every registration therefore happens before markClosed
// completes, so Shutdown never samples a drained counter while a lease is
// still being issued, and inFlight.Add never races a blocked Wait.
func (r *Recycler[T]) checkout() error {
	r.issueMu.Lock()
	defer r.issueMu.Unlock()
	if r.closed.Load() {
		return errs.New(r.name, errs.CodeUnavailable, errs.WithMessage("recycler is closed"))
	}
	r.inFlight.Add(1)
	return nil
}

// markClosed flips the closed flag under the issue lock and reports whether
// it was already set.
func (r *Recycler[T]) markClosed() bool {
	r.issueMu.Lock()
	defer r.issueMu.Unlock()
	return r.closed.Swap(true)
}

// surrender is the single return path for leased values: reset hook, debug
// poisoning, then TryPut. Runs exactly once per lease.
func (r *Recycler[T]) surrender(v *T, leaseID string) {
	if r.reset != nil {
		r.reset(v)
		poisonReleased(v)
	}
	kept := r.store.TryPut(v)
	if kept {
		r.returns.Add(1)
	} else {
		r.discards.Add(1)
	}
	r.metrics.recordRelease(kept)
	r.debug.recordRelease(leaseID)
	r.outstanding.Add(-1)
	r.inFlight.Done()
}

// Prewarm populates the free store with up to n factory-built values using a
// bounded worker group. It stops early on context cancellation or the first
// factory error. Counts beyond a bounded store's capacity are clamped.
func (r *Recycler[T]) Prewarm(ctx context.Context, n int) error {
	if n <= 0 {
		return nil
	}
	if r.closed.Load() {
		return errs.New(r.name, errs.CodeUnavailable, errs.WithMessage("recycler is closed"))
	}
	if capacity := r.store.Capacity(); capacity > 0 && n > capacity {
		n = capacity
	}

	workers := runtime.GOMAXPROCS(0)
	if workers > n {
		workers = n
	}
	p := concpool.New().WithMaxGoroutines(workers).WithErrors().WithContext(ctx)
	for i := 0; i < n; i++ {
		p.Go(func(ctx context.Context) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			v, err := r.factory()
			if err != nil {
				return fmt.Errorf("prewarm %s: %w", r.name, err)
			}
			if v != nil {
				r.store.TryPut(v)
			}
			return nil
		})
	}
	return p.Wait()
}

// Name returns the pool label used in stats, metrics, and logs.
func (r *Recycler[T]) Name() string { return r.name }

// Idle reports the number of values currently resting in the free store.
func (r *Recycler[T]) Idle() int { return r.store.Len() }

// Capacity reports the free store's retention bound; zero means unbounded.
func (r *Recycler[T]) Capacity() int { return r.store.Capacity() }

// Outstanding reports the number of live leases not yet released.
func (r *Recycler[T]) Outstanding() int64 { return r.outstanding.Load() }

// Stats snapshots the recycler's counters.
func (r *Recycler[T]) Stats() Stats {
	return Stats{
		Name:        r.name,
		InstanceID:  r.id,
		Capacity:    r.store.Capacity(),
		Idle:        r.store.Len(),
		Outstanding: r.outstanding.Load(),
		Hits:        r.hits.Load(),
		Misses:      r.misses.Load(),
		Returns:     r.returns.Load(),
		Discards:    r.discards.Load(),
	}
}

// Close stops issuing leases and discards all idle values. Outstanding leases
// stay valid: their deferred releases are accepted and silently discarded.
func (r *Recycler[T]) Close() {
	if r.markClosed() {
		return
	}
	discarded := r.store.Close()
	r.logger().Debug("recycler closed",
		observability.Field{Key: "pool", Value: r.name},
		observability.Field{Key: "discarded_idle", Value: discarded},
	)
}

// Shutdown stops issuing leases, waits for outstanding leases to be released,
// then closes the free store. On context expiry it reports the remaining
// lease count and, in debug builds, logs acquisition stacks of the leak
// candidates.
func (r *Recycler[T]) Shutdown(ctx context.Context) error {
	r.markClosed()

	done := make(chan struct{})
	go func() {
		r.inFlight.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.store.Close()
		return nil
	case <-ctx.Done():
		remaining := r.outstanding.Load()
		r.logLeakCandidates(remaining)
		return errs.New(r.name, errs.CodeExhausted,
			errs.WithMessage(fmt.Sprintf("shutdown timeout: %d leases outstanding", remaining)),
			errs.WithCause(ctx.Err()))
	}
}

func (r *Recycler[T]) logLeakCandidates(remaining int64) {
	if remaining <= 0 {
		return
	}
	log := r.logger()
	log.Error("shutdown timed out with leases in flight",
		observability.Field{Key: "pool", Value: r.name},
		observability.Field{Key: "outstanding", Value: remaining},
	)
	for _, stack := range r.debug.activeStacks() {
		log.Error("leak candidate",
			observability.Field{Key: "pool", Value: r.name},
			observability.Field{Key: "stack", Value: stack},
		)
	}
}

// LeakStacks returns acquisition stacks for unreleased leases. Populated only
// in debug builds; empty otherwise.
func (r *Recycler[T]) LeakStacks() []string {
	return r.debug.activeStacks()
}

func (r *Recycler[T]) logger() observability.Logger {
	if r.log != nil {
		return r.log
	}
	return observability.Log()
}
