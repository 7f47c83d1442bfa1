package storage

import (
	"context"

	"sora-wallet-engine/internal/domain"
)

// TransactionStore holds locally known transactions: records created as
// PENDING at submission time plus the reconciled history cache.
type TransactionStore interface {
	// Insert adds a new record. Returns ErrDuplicateKey if the hash exists.
	Insert(ctx context.Context, r *domain.TransactionRecord) error

	// Upsert adds a record or replaces the one with the same hash.
	Upsert(ctx context.Context, r *domain.TransactionRecord) error

	// GetByHash retrieves a record. Returns ErrNotFound if not exists.
	GetByHash(ctx context.Context, hash string) (*domain.TransactionRecord, error)

	// GetByAccount retrieves all records of an account, newest first.
	GetByAccount(ctx context.Context, account string) ([]*domain.TransactionRecord, error)

	// Delete removes a record. Returns ErrNotFound if not exists.
	Delete(ctx context.Context, hash string) error
}

// NodeStore persists the node endpoint list and which one is selected.
type NodeStore interface {
	// GetAll retrieves all endpoints, defaults before custom ones.
	GetAll(ctx context.Context) ([]*domain.NodeEndpoint, error)

	// Upsert adds an endpoint or updates the one with the same URL.
	Upsert(ctx context.Context, n *domain.NodeEndpoint) error

	// SetSelected marks one endpoint selected and clears the mark from
	// the rest. Returns ErrNotFound if the URL is unknown.
	SetSelected(ctx context.Context, url string) error

	// Delete removes a custom endpoint. Returns ErrNotFound if not
	// exists and ErrInvalidInput for default endpoints.
	Delete(ctx context.Context, url string) error
}
