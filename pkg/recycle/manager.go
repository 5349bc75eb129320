package recycle

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	concpool "github.com/sourcegraph/conc/pool"

	"github.com/coachpo/recycle/errs"
	"github.com/coachpo/recycle/internal/observability"
)

const defaultShutdownTimeout = 5 * time.Second

// Pool is the type-erased handle a Manager keeps for each registered
// recycler. *Recycler[T] implements it for every T.
type Pool interface {
	Name() string
	Idle() int
	Capacity() int
	Outstanding() int64
	Stats() Stats
	Close()
	Shutdown(ctx context.Context) error
	LeakStacks() []string
}

// Manager coordinates named recyclers, providing lookup, aggregate stats,
// and graceful shutdown semantics across pools of different value types.
type Manager struct {
	mu           sync.RWMutex
	pools        map[string]Pool
	shutdownCh   chan struct{}
	shutdownOnce sync.Once
}

// NewManager constructs an initialized manager ready for registration.
func NewManager() *Manager {
	m := new(Manager)
	m.pools = make(map[string]Pool)
	m.shutdownCh = make(chan struct{})
	return m
}

// Register adds a recycler under its name. Duplicate names conflict, and a
// manager that has begun shutdown accepts no further registrations.
func (m *Manager) Register(p Pool) error {
	if p == nil {
		return errs.New("manager", errs.CodeInvalid, errs.WithMessage("pool is required"))
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	select {
	case <-m.shutdownCh:
		return errs.New("manager", errs.CodeUnavailable, errs.WithMessage("shutdown in progress"))
	default:
	}

	name := p.Name()
	if _, exists := m.pools[name]; exists {
		return errs.New("manager", errs.CodeConflict,
			errs.WithMessage(fmt.Sprintf("pool %s already registered", name)))
	}
	m.pools[name] = p
	return nil
}

// Lookup returns the recycler registered under name.
func (m *Manager) Lookup(name string) (Pool, error) {
	m.mu.RLock()
	p, ok := m.pools[name]
	m.mu.RUnlock()
	if !ok {
		return nil, errs.New("manager", errs.CodeNotFound,
			errs.WithMessage(fmt.Sprintf("pool %s not registered", name)))
	}
	return p, nil
}

// Stats snapshots every registered pool, ordered by name.
func (m *Manager) Stats() []Stats {
	m.mu.RLock()
	out := make([]Stats, 0, len(m.pools))
	for _, p := range m.pools {
		out = append(out, p.Stats())
	}
	m.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Shutdown quiesces all registered pools concurrently, waiting for their
// outstanding leases or until the context expires (defaulting to 5 seconds).
// Pools that time out are reported in the aggregated error together with any
// leak-candidate stacks the debug build collected.
func (m *Manager) Shutdown(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	var cancel context.CancelFunc
	if _, ok := ctx.Deadline(); !ok {
		ctx, cancel = context.WithTimeout(ctx, defaultShutdownTimeout)
	}
	if cancel != nil {
		defer cancel()
	}

	m.shutdownOnce.Do(func() {
		close(m.shutdownCh)
	})

	m.mu.RLock()
	pools := make([]Pool, 0, len(m.pools))
	for _, p := range m.pools {
		pools = append(pools, p)
	}
	m.mu.RUnlock()

	group := concpool.New().WithErrors().WithContext(ctx)
	for _, p := range pools {
		group.Go(func(ctx context.Context) error {
			return p.Shutdown(ctx)
		})
	}
	if err := group.Wait(); err != nil {
		return observability.AggregateErrors("manager shutdown", []error{err})
	}
	return nil
}
