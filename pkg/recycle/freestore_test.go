package recycle

import (
	"sync"
	"testing"
)

type buffer struct {
	data []byte
}

func TestFreeStoreTakeFromEmpty(t *testing.T) {
	store := NewFreeStore[buffer](0)
	v, ok := store.TryTake()
	if ok || v != nil {
		t.Fatalf("expected miss on empty store, got %v, %v", v, ok)
	}
}

func TestFreeStorePutThenTake(t *testing.T) {
	store := NewFreeStore[buffer](0)
	b := &buffer{data: []byte("payload")}

	if !store.TryPut(b) {
		t.Fatal("expected unbounded store to keep the value")
	}
	if store.Len() != 1 {
		t.Fatalf("expected one idle value, got %d", store.Len())
	}

	got, ok := store.TryTake()
	if !ok {
		t.Fatal("expected hit after put")
	}
	if got != b {
		t.Fatal("expected the same value back")
	}
	if store.Len() != 0 {
		t.Fatalf("expected empty store after take, got %d", store.Len())
	}
}

func TestFreeStoreRejectsNil(t *testing.T) {
	store := NewFreeStore[buffer](0)
	if store.TryPut(nil) {
		t.Fatal("expected nil value to be rejected")
	}
}

func TestFreeStoreCapacityBound(t *testing.T) {
	store := NewFreeStore[buffer](2)
	if store.Capacity() != 2 {
		t.Fatalf("expected capacity 2, got %d", store.Capacity())
	}

	if !store.TryPut(&buffer{}) || !store.TryPut(&buffer{}) {
		t.Fatal("expected first two puts to be kept")
	}
	if store.TryPut(&buffer{}) {
		t.Fatal("expected third put to be discarded at capacity")
	}
	if store.Len() != 2 {
		t.Fatalf("expected exactly 2 retained values, got %d", store.Len())
	}
}

func TestFreeStoreNegativeCapacityMeansUnbounded(t *testing.T) {
	store := NewFreeStore[buffer](-1)
	if store.Capacity() != 0 {
		t.Fatalf("expected normalized capacity 0, got %d", store.Capacity())
	}
	for i := 0; i < 100; i++ {
		if !store.TryPut(&buffer{}) {
			t.Fatalf("expected put %d to be kept in unbounded store", i)
		}
	}
}

func TestFreeStoreConcurrentPutRespectsCapacity(t *testing.T) {
	const capacity = 8
	const writers = 64

	store := NewFreeStore[buffer](capacity)
	var wg sync.WaitGroup
	wg.Add(writers)
	for i := 0; i < writers; i++ {
		go func() {
			defer wg.Done()
			store.TryPut(&buffer{})
		}()
	}
	wg.Wait()

	if store.Len() != capacity {
		t.Fatalf("expected exactly %d retained values under concurrent puts, got %d", capacity, store.Len())
	}
}

func TestFreeStoreCloseDiscardsAndRejects(t *testing.T) {
	store := NewFreeStore[buffer](0)
	store.TryPut(&buffer{})
	store.TryPut(&buffer{})

	discarded := store.Close()
	if discarded != 2 {
		t.Fatalf("expected 2 discarded on close, got %d", discarded)
	}
	if store.Len() != 0 {
		t.Fatalf("expected empty store after close, got %d", store.Len())
	}
	if store.TryPut(&buffer{}) {
		t.Fatal("expected puts after close to be discarded")
	}
	if _, ok := store.TryTake(); ok {
		t.Fatal("expected take after close to miss")
	}
}
