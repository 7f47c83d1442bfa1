package memory

import (
	"context"
	"sort"
	"sync"

	"sora-wallet-engine/internal/domain"
	"sora-wallet-engine/internal/storage"
)

// TransactionStore is an in-memory implementation of
// storage.TransactionStore.
type TransactionStore struct {
	mu   sync.RWMutex
	data map[string]*domain.TransactionRecord // keyed by hash
}

// NewTransactionStore creates a new in-memory transaction store.
func NewTransactionStore() *TransactionStore {
	return &TransactionStore{
		data: make(map[string]*domain.TransactionRecord),
	}
}

var _ storage.TransactionStore = (*TransactionStore)(nil)

// Insert adds a new record. Returns ErrDuplicateKey if the hash exists.
func (s *TransactionStore) Insert(_ context.Context, r *domain.TransactionRecord) error {
	if r == nil || r.Hash == "" || r.Account == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.Hash]; exists {
		return storage.ErrDuplicateKey
	}

	cp := *r
	s.data[r.Hash] = &cp
	return nil
}

// Upsert adds a record or replaces the one with the same hash.
func (s *TransactionStore) Upsert(_ context.Context, r *domain.TransactionRecord) error {
	if r == nil || r.Hash == "" || r.Account == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *r
	s.data[r.Hash] = &cp
	return nil
}

// GetByHash retrieves a record. Returns ErrNotFound if not exists.
func (s *TransactionStore) GetByHash(_ context.Context, hash string) (*domain.TransactionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.data[hash]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

// GetByAccount retrieves all records of an account, newest first.
func (s *TransactionStore) GetByAccount(_ context.Context, account string) ([]*domain.TransactionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TransactionRecord
	for _, r := range s.data {
		if r.Account == account {
			cp := *r
			result = append(result, &cp)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Timestamp != result[j].Timestamp {
			return result[i].Timestamp > result[j].Timestamp
		}
		return result[i].Hash > result[j].Hash
	})

	return result, nil
}

// Delete removes a record. Returns ErrNotFound if not exists.
func (s *TransactionStore) Delete(_ context.Context, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[hash]; !ok {
		return storage.ErrNotFound
	}
	delete(s.data, hash)
	return nil
}
