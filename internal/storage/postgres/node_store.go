package postgres

import (
	"context"
	"fmt"

	"sora-wallet-engine/internal/domain"
	"sora-wallet-engine/internal/storage"
)

// NodeStore implements storage.NodeStore using PostgreSQL.
type NodeStore struct {
	pool *Pool
}

// NewNodeStore creates a new NodeStore.
func NewNodeStore(pool *Pool) *NodeStore {
	return &NodeStore{pool: pool}
}

// Compile-time interface check.
var _ storage.NodeStore = (*NodeStore)(nil)

// GetAll retrieves all endpoints, defaults before custom ones.
func (s *NodeStore) GetAll(ctx context.Context) ([]*domain.NodeEndpoint, error) {
	query := `
		SELECT url, name, is_default, is_selected
		FROM nodes
		ORDER BY is_default DESC, url ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get nodes: %w", err)
	}
	defer rows.Close()

	var nodes []*domain.NodeEndpoint
	for rows.Next() {
		var n domain.NodeEndpoint
		if err := rows.Scan(&n.URL, &n.Name, &n.IsDefault, &n.IsSelected); err != nil {
			return nil, fmt.Errorf("scan node row: %w", err)
		}
		nodes = append(nodes, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate node rows: %w", err)
	}
	return nodes, nil
}

// Upsert adds an endpoint or updates the one with the same URL.
func (s *NodeStore) Upsert(ctx context.Context, n *domain.NodeEndpoint) error {
	if n == nil || n.URL == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO nodes (url, name, is_default, is_selected)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (url) DO UPDATE SET
			name = EXCLUDED.name,
			is_default = EXCLUDED.is_default,
			is_selected = EXCLUDED.is_selected
	`

	if _, err := s.pool.Exec(ctx, query, n.URL, n.Name, n.IsDefault, n.IsSelected); err != nil {
		return fmt.Errorf("upsert node: %w", err)
	}
	return nil
}

// SetSelected marks one endpoint selected and clears the mark from the
// rest.
func (s *NodeStore) SetSelected(ctx context.Context, url string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `UPDATE nodes SET is_selected = TRUE WHERE url = $1`, url)
	if err != nil {
		return fmt.Errorf("select node: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}

	if _, err := tx.Exec(ctx, `UPDATE nodes SET is_selected = FALSE WHERE url <> $1`, url); err != nil {
		return fmt.Errorf("deselect nodes: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Delete removes a custom endpoint.
func (s *NodeStore) Delete(ctx context.Context, url string) error {
	var isDefault bool
	err := s.pool.QueryRow(ctx, `SELECT is_default FROM nodes WHERE url = $1`, url).Scan(&isDefault)
	if err != nil {
		if isNotFoundError(err) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("look up node: %w", err)
	}
	if isDefault {
		return storage.ErrInvalidInput
	}

	if _, err := s.pool.Exec(ctx, `DELETE FROM nodes WHERE url = $1`, url); err != nil {
		return fmt.Errorf("delete node: %w", err)
	}
	return nil
}
