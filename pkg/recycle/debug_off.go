//go:build !debug

package recycle

type debugTracker struct{}

func newDebugTracker(string) *debugTracker { return nil }

func newLeaseID() string { return "" }

func (d *debugTracker) recordAcquire(string) {}

func (d *debugTracker) recordRelease(string) {}

func (d *debugTracker) activeStacks() []string { return nil }

func poisonReleased[T any](*T) {}

func scrubReused[T any](*T, func(*T)) {}
