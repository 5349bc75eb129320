package recycle

import "sync/atomic"

// Lease is an exclusive handle over one pooled value. While a Lease is live
// its value is referenced by no other lease and is absent from the free
// store. Callers pair every Acquire with a deferred Release so the value is
// surrendered on every exit path:
//
//	lease, err := r.Acquire()
//	if err != nil {
//		return err
//	}
//	defer lease.Release()
//	use(lease.Value())
type Lease[T any] struct {
	value    *T
	owner    *Recycler[T]
	id       string
	released atomic.Bool
}

// Value returns the leased value. After Release it returns nil; holding on to
// the pointer past Release is a caller bug the debug build surfaces by
// poisoning recycled memory.
func (l *Lease[T]) Value() *T {
	if l == nil || l.released.Load() {
		return nil
	}
	return l.value
}

// Release surrenders the value back to the pool immediately. It is
// idempotent: the first call runs the reset hook and returns the value, any
// later call is a no-op. A nil lease is tolerated so callers can
// unconditionally defer Release on the error path.
func (l *Lease[T]) Release() {
	if l == nil {
		return
	}
	if !l.released.CompareAndSwap(false, true) {
		return
	}
	v := l.value
	l.value = nil
	l.owner.surrender(v, l.id)
}
