package ble

import "sync"

// Snapshot keeps the most recently seen manufacturer data per company ID.
// Store and Load copy, so callers never share a buffer with it.
type Snapshot struct {
	mu   sync.RWMutex
	data map[uint16][]byte
}

// NewSnapshot creates an empty snapshot
func NewSnapshot() *Snapshot {
	return &Snapshot{data: make(map[uint16][]byte)}
}

// Store records data as the latest payload for companyID.
func (s *Snapshot) Store(companyID uint16, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[companyID] = append([]byte(nil), data...)
}

// Load returns a copy of the latest payload for companyID.
func (s *Snapshot) Load(companyID uint16) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.data[companyID]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), data...), true
}

// Len returns the number of company IDs seen.
func (s *Snapshot) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
