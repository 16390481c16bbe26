package workflow

import (
	"maps"
	"slices"
	"sync"
)

// Shared is the mutable key-value store threaded through a whole run.
// It is the only channel through which nodes exchange data: prepare phases
// read from it, finalize phases write to it. The engine never copies or
// resets it, so the caller can inspect it after Run returns.
type Shared struct {
	mu   sync.RWMutex
	data map[string]any
}

// NewShared wraps initial without copying it. A nil map starts empty.
func NewShared(initial map[string]any) *Shared {
	if initial == nil {
		initial = make(map[string]any)
	}
	return &Shared{data: initial}
}

// Get returns the value stored under key. Absence is not an error.
func (s *Shared) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok
}

// Set stores value under key, replacing any previous value.
func (s *Shared) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
}

// Has reports whether key is present.
func (s *Shared) Has(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.data[key]
	return ok
}

// Delete removes key.
func (s *Shared) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
}

// Len returns the number of keys.
func (s *Shared) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Keys returns all keys in sorted order.
func (s *Shared) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.data))
}

// Snapshot returns a shallow copy of the current contents.
func (s *Shared) Snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.data)
}

// Value returns the value under key when it is present and of type T.
func Value[T any](s *Shared, key string) (T, bool) {
	v, ok := s.Get(key)
	if !ok {
		var zero T
		return zero, false
	}
	typed, ok := v.(T)
	return typed, ok
}

// ValueOr returns the value under key, or def when it is absent or of
// another type.
func ValueOr[T any](s *Shared, key string, def T) T {
	if v, ok := Value[T](s, key); ok {
		return v
	}
	return def
}
