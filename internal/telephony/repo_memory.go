package telephony

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory Store for tests.
type MemoryStore struct {
	mu      sync.Mutex
	trunks  map[string]Trunk
	numbers map[string]ProvisionedNumber
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		trunks:  map[string]Trunk{},
		numbers: map[string]ProvisionedNumber{},
	}
}

func (s *MemoryStore) PutTrunk(t Trunk) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trunks[t.UserID] = t
}

func (s *MemoryStore) PutNumber(n ProvisionedNumber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.numbers[n.PhoneNumber] = n
}

func (s *MemoryStore) TrunkForUser(ctx context.Context, userID string) (Trunk, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.trunks[userID]
	if !ok {
		return Trunk{}, ErrTrunkNotConfigured
	}
	return t, nil
}

func (s *MemoryStore) NumberOwner(ctx context.Context, phoneNumber string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.numbers[phoneNumber]
	if !ok {
		return "", ErrNumberNotFound
	}
	return n.UserID, nil
}
