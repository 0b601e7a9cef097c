package capwire

import (
	"reflect"
	"sync"
)

// singletonStore holds process-wide instances. Construction is serialized
// per capability key with double-checked locking: concurrent first requests
// for the same key invoke the factory exactly once, and every caller gets
// the same instance. A failed construction leaves the slot empty so the
// error is never cached.
type singletonStore struct {
	mu    sync.Mutex
	slots map[reflect.Type]*singletonSlot
}

type singletonSlot struct {
	mu    sync.Mutex
	built bool
	value any
}

func newSingletonStore() *singletonStore {
	return &singletonStore{
		slots: make(map[reflect.Type]*singletonSlot),
	}
}

func (s *singletonStore) getOrCreate(capability reflect.Type, factory func() (any, error)) (any, error) {
	s.mu.Lock()
	slot, ok := s.slots[capability]
	if !ok {
		slot = &singletonSlot{}
		s.slots[capability] = slot
	}
	s.mu.Unlock()

	// The per-key lock is held across factory invocation. Lock order follows
	// the dependency graph, which is acyclic by the time construction runs,
	// so nested singleton construction cannot deadlock.
	slot.mu.Lock()
	defer slot.mu.Unlock()

	if slot.built {
		return slot.value, nil
	}

	value, err := factory()
	if err != nil {
		return nil, err
	}

	slot.value = value
	slot.built = true
	return value, nil
}
