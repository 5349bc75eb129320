package recycle

import "testing"

type scratch struct {
	n     int
	label string
}

func (s *scratch) Reset() {
	s.n = 0
	s.label = ""
}

func newScratchRecycler(t *testing.T, opts ...Option[scratch]) *Recycler[scratch] {
	t.Helper()
	r, err := NewZero[scratch](opts...)
	if err != nil {
		t.Fatalf("NewZero failed: %v", err)
	}
	return r
}

func TestLeaseValueAccess(t *testing.T) {
	r := newScratchRecycler(t)

	lease, err := r.Acquire()
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	defer lease.Release()

	v := lease.Value()
	if v == nil {
		t.Fatal("expected live lease to expose its value")
	}
	v.n = 42
	if lease.Value().n != 42 {
		t.Fatal("expected writes through Value to stick")
	}
}

func TestLeaseReleaseReturnsValue(t *testing.T) {
	r := newScratchRecycler(t)

	lease, err := r.Acquire()
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	lease.Release()

	if r.Idle() != 1 {
		t.Fatalf("expected one idle value after release, got %d", r.Idle())
	}
	if r.Outstanding() != 0 {
		t.Fatalf("expected no outstanding leases, got %d", r.Outstanding())
	}
}

func TestLeaseValueNilAfterRelease(t *testing.T) {
	r := newScratchRecycler(t)

	lease, err := r.Acquire()
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	lease.Release()

	if lease.Value() != nil {
		t.Fatal("expected nil value after release")
	}
}

func TestLeaseDoubleReleaseIsIdempotent(t *testing.T) {
	r := newScratchRecycler(t)

	lease, err := r.Acquire()
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	lease.Release()
	lease.Release()

	if r.Idle() != 1 {
		t.Fatalf("expected value surrendered exactly once, idle=%d", r.Idle())
	}
	stats := r.Stats()
	if stats.Returns != 1 {
		t.Fatalf("expected one recorded return, got %d", stats.Returns)
	}
	if stats.Outstanding != 0 {
		t.Fatalf("expected zero outstanding, got %d", stats.Outstanding)
	}
}

func TestLeaseNilReleaseIsSafe(t *testing.T) {
	var lease *Lease[scratch]
	// Must not panic so callers can unconditionally defer Release.
	lease.Release()
	if lease.Value() != nil {
		t.Fatal("expected nil value from nil lease")
	}
}

func TestLeaseDeferredReleaseOnPanicPath(t *testing.T) {
	r := newScratchRecycler(t)

	func() {
		defer func() { _ = recover() }()
		lease, err := r.Acquire()
		if err != nil {
			t.Fatalf("Acquire failed: %v", err)
		}
		defer lease.Release()
		panic("caller failure")
	}()

	if r.Idle() != 1 {
		t.Fatalf("expected value returned on unwinding, idle=%d", r.Idle())
	}
}
