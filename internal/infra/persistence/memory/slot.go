package memory

import (
	"clinicdesk/pkg/domain"
	"sync"
)

// Slot is an in-memory domain.SnapshotSlot. A positive MaxBytes bounds the
// size of each value, mimicking browser storage quotas.
type Slot struct {
	MaxBytes int

	mu     sync.RWMutex
	values map[string]string
}

// NewSlot constructs an empty slot with the given capacity; zero means
// unbounded.
func NewSlot(maxBytes int) *Slot {
	return &Slot{MaxBytes: maxBytes, values: make(map[string]string)}
}

var _ domain.SnapshotSlot = (*Slot)(nil)

// Get returns the value stored under key.
func (s *Slot) Get(key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok, nil
}

// Set stores value under key unless it exceeds the capacity.
func (s *Slot) Set(key, value string) error {
	if s.MaxBytes > 0 && len(value) > s.MaxBytes {
		return domain.ErrSlotCapacity
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.values == nil {
		s.values = make(map[string]string)
	}
	s.values[key] = value
	return nil
}
