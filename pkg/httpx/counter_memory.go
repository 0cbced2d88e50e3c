package httpx

import (
	"context"
	"sync"
	"time"
)

// MemoryCounterStore is a process-local CounterStore for single-instance
// deployments and tests. Windows are aligned to multiples of the window
// size so counts reset at predictable boundaries.
type MemoryCounterStore struct {
	mu      sync.Mutex
	windows map[string]*memoryWindow

	// now is swappable for tests.
	now func() time.Time
}

type memoryWindow struct {
	start time.Time
	count int64
}

func NewMemoryCounterStore() *MemoryCounterStore {
	return &MemoryCounterStore{
		windows: make(map[string]*memoryWindow),
		now:     time.Now,
	}
}

func (s *MemoryCounterStore) Incr(_ context.Context, key string, window time.Duration) (int64, time.Time, error) {
	now := s.now()
	start := now.Truncate(window)

	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.windows[key]
	if !ok || w.start.Before(start) {
		w = &memoryWindow{start: start}
		s.windows[key] = w
	}
	w.count++

	return w.count, start.Add(window), nil
}

// Cleanup drops windows that ended before the cutoff. Called periodically
// by the gateway's janitor goroutine.
func (s *MemoryCounterStore) Cleanup(window time.Duration) {
	cutoff := s.now().Add(-window)

	s.mu.Lock()
	defer s.mu.Unlock()

	for key, w := range s.windows {
		if w.start.Before(cutoff) {
			delete(s.windows, key)
		}
	}
}
