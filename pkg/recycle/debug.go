//go:build debug

package recycle

import (
	"math"
	"reflect"
	"runtime/debug"
	"sync"

	"github.com/google/uuid"
)

const poisonString = "<<poison>>"

// debugTracker records the acquisition stack of every live lease so shutdown
// can name leak candidates. Built only under the debug tag; the release build
// compiles this away entirely.
type debugTracker struct {
	name   string
	mu     sync.Mutex
	stacks map[string]string
}

func newDebugTracker(name string) *debugTracker {
	return &debugTracker{
		name:   name,
		stacks: make(map[string]string),
	}
}

func newLeaseID() string {
	return uuid.NewString()
}

func (d *debugTracker) recordAcquire(id string) {
	if d == nil || id == "" {
		return
	}
	stack := string(debug.Stack())
	d.mu.Lock()
	d.stacks[id] = stack
	d.mu.Unlock()
}

func (d *debugTracker) recordRelease(id string) {
	if d == nil || id == "" {
		return
	}
	d.mu.Lock()
	delete(d.stacks, id)
	d.mu.Unlock()
}

func (d *debugTracker) activeStacks() []string {
	if d == nil {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.stacks) == 0 {
		return nil
	}
	out := make([]string, 0, len(d.stacks))
	for _, stack := range d.stacks {
		out = append(out, stack)
	}
	return out
}

// poisonReleased overwrites a resettable value resting in the free store so
// stale references held past Release surface as obviously corrupt data. Only
// values with a reset hook are poisoned; the hook restores them on reuse.
func poisonReleased[T any](v *T) {
	if v == nil {
		return
	}
	poisonValue(reflect.ValueOf(v).Elem())
}

// scrubReused clears the poison pattern from a value taken out of the free
// store by re-running its reset hook.
func scrubReused[T any](v *T, reset func(*T)) {
	if v == nil || reset == nil {
		return
	}
	reset(v)
}

func poisonValue(v reflect.Value) {
	if !v.IsValid() || !v.CanSet() {
		return
	}
	switch v.Kind() {
	case reflect.String:
		v.SetString(poisonString)
	case reflect.Bool:
		v.SetBool(true)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		v.SetInt(-1)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		v.SetUint(math.MaxUint64)
	case reflect.Float32, reflect.Float64:
		v.SetFloat(math.MaxFloat64)
	case reflect.Slice:
		v.Set(reflect.MakeSlice(v.Type(), 0, 0))
	case reflect.Map:
		v.Set(reflect.MakeMapWithSize(v.Type(), 0))
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			poisonValue(v.Field(i))
		}
	case reflect.Pointer:
		if v.IsNil() {
			return
		}
		poisonValue(v.Elem())
	}
}
