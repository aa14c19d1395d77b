package pattern

import "sync"

// Store holds the bands accepted during a selection session.
type Store struct {
	mu    sync.RWMutex
	bands []Band
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{bands: make([]Band, 0)}
}

// Reset discards every band.
func (s *Store) Reset() {
	s.mu.Lock()
	s.bands = s.bands[:0]
	s.mu.Unlock()
}

// Add appends a band. Duplicates are kept.
func (s *Store) Add(b Band) {
	s.mu.Lock()
	s.bands = append(s.bands, b)
	s.mu.Unlock()
}

// RemoveLast drops the most recently added band. It returns false if the
// store was empty.
func (s *Store) RemoveLast() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.bands) == 0 {
		return false
	}
	s.bands = s.bands[:len(s.bands)-1]
	return true
}

// IsEmpty reports whether no band has been added since the last reset.
func (s *Store) IsEmpty() bool {
	return s.Len() == 0
}

// Len returns the number of bands.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.bands)
}

// All returns a copy of the bands in insertion order.
func (s *Store) All() []Band {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Band, len(s.bands))
	copy(out, s.bands)
	return out
}
