package memory

import (
	"context"
	"sort"
	"sync"

	"sora-wallet-engine/internal/domain"
	"sora-wallet-engine/internal/storage"
)

// NodeStore is an in-memory implementation of storage.NodeStore.
type NodeStore struct {
	mu   sync.RWMutex
	data map[string]*domain.NodeEndpoint // keyed by URL
}

// NewNodeStore creates a new in-memory node store.
func NewNodeStore() *NodeStore {
	return &NodeStore{
		data: make(map[string]*domain.NodeEndpoint),
	}
}

var _ storage.NodeStore = (*NodeStore)(nil)

// GetAll retrieves all endpoints, defaults before custom ones.
func (s *NodeStore) GetAll(_ context.Context) ([]*domain.NodeEndpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.NodeEndpoint
	for _, n := range s.data {
		cp := *n
		result = append(result, &cp)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].IsDefault != result[j].IsDefault {
			return result[i].IsDefault
		}
		return result[i].URL < result[j].URL
	})

	return result, nil
}

// Upsert adds an endpoint or updates the one with the same URL.
func (s *NodeStore) Upsert(_ context.Context, n *domain.NodeEndpoint) error {
	if n == nil || n.URL == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *n
	s.data[n.URL] = &cp
	return nil
}

// SetSelected marks one endpoint selected and clears the mark from the
// rest.
func (s *NodeStore) SetSelected(_ context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data[url]; !ok {
		return storage.ErrNotFound
	}
	for _, n := range s.data {
		n.IsSelected = n.URL == url
	}
	return nil
}

// Delete removes a custom endpoint.
func (s *NodeStore) Delete(_ context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.data[url]
	if !ok {
		return storage.ErrNotFound
	}
	if n.IsDefault {
		return storage.ErrInvalidInput
	}
	delete(s.data, url)
	return nil
}
