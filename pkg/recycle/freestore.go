// Package recycle provides a generic recycling allocator: a concurrency-safe
// free store of idle values, leases that return their value automatically on
// release, and a Recycler façade that prefers reuse over construction.
package recycle

import "sync"

// FreeStore holds idle values awaiting reuse. It is safe for concurrent use.
//
// The store is a LIFO stack, which keeps recently returned values warm in
// cache. Selection order is an implementation detail; callers must not rely
// on it.
type FreeStore[T any] struct {
	mu       sync.Mutex
	idle     []*T
	capacity int
	closed   bool
}

// NewFreeStore constructs a free store retaining at most capacity idle values.
// Capacity zero (the default throughout the library) means unbounded.
func NewFreeStore[T any](capacity int) *FreeStore[T] {
	if capacity < 0 {
		capacity = 0
	}
	s := new(FreeStore[T])
	s.capacity = capacity
	if capacity > 0 {
		s.idle = make([]*T, 0, capacity)
	}
	return s
}

// TryTake removes and returns one idle value if any exists. A miss is a
// normal, immediate result, not an error; TryTake never blocks.
func (s *FreeStore[T]) TryTake() (*T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.idle)
	if n == 0 {
		return nil, false
	}
	v := s.idle[n-1]
	s.idle[n-1] = nil
	s.idle = s.idle[:n-1]
	return v, true
}

// TryPut stores v for reuse and reports whether it was kept. At capacity, or
// after Close, the value is discarded instead; that outcome is deliberate
// backpressure, not a failure. The capacity check is atomic with the insert.
func (s *FreeStore[T]) TryPut(v *T) bool {
	if v == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	if s.capacity > 0 && len(s.idle) >= s.capacity {
		return false
	}
	s.idle = append(s.idle, v)
	return true
}

// Len reports the number of idle values currently retained.
func (s *FreeStore[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.idle)
}

// Capacity reports the configured retention bound; zero means unbounded.
func (s *FreeStore[T]) Capacity() int {
	return s.capacity
}

// Close discards all idle values and marks the store closed, returning the
// number discarded. Late returns from leases that outlive the store are
// silently discarded, so a lease's deferred release stays valid after the
// originating Recycler is gone.
func (s *FreeStore[T]) Close() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.idle)
	for i := range s.idle {
		s.idle[i] = nil
	}
	s.idle = nil
	s.closed = true
	return n
}
