package postgres

import (
	"context"
	"fmt"
	"math/big"

	"github.com/jackc/pgx/v5"

	"sora-wallet-engine/internal/domain"
	"sora-wallet-engine/internal/storage"
)

// TransactionStore implements storage.TransactionStore using PostgreSQL.
type TransactionStore struct {
	pool *Pool
}

// NewTransactionStore creates a new TransactionStore.
func NewTransactionStore(pool *Pool) *TransactionStore {
	return &TransactionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TransactionStore = (*TransactionStore)(nil)

const transactionColumns = `
	hash, account, kind, status, timestamp, asset_id, amount,
	counterparty, route, fee_asset_id, fee
`

// Insert adds a new record. Returns ErrDuplicateKey if the hash exists.
func (s *TransactionStore) Insert(ctx context.Context, r *domain.TransactionRecord) error {
	if r == nil || r.Hash == "" || r.Account == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := s.pool.Exec(ctx, query, insertArgs(r)...)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// Upsert adds a record or replaces the one with the same hash.
func (s *TransactionStore) Upsert(ctx context.Context, r *domain.TransactionRecord) error {
	if r == nil || r.Hash == "" || r.Account == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (hash) DO UPDATE SET
			account = EXCLUDED.account,
			kind = EXCLUDED.kind,
			status = EXCLUDED.status,
			timestamp = EXCLUDED.timestamp,
			asset_id = EXCLUDED.asset_id,
			amount = EXCLUDED.amount,
			counterparty = EXCLUDED.counterparty,
			route = EXCLUDED.route,
			fee_asset_id = EXCLUDED.fee_asset_id,
			fee = EXCLUDED.fee
	`

	if _, err := s.pool.Exec(ctx, query, insertArgs(r)...); err != nil {
		return fmt.Errorf("upsert transaction: %w", err)
	}
	return nil
}

// GetByHash retrieves a record. Returns ErrNotFound if not exists.
func (s *TransactionStore) GetByHash(ctx context.Context, hash string) (*domain.TransactionRecord, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE hash = $1
	`

	row := s.pool.QueryRow(ctx, query, hash)
	r, err := scanTransaction(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get transaction by hash: %w", err)
	}
	return r, nil
}

// GetByAccount retrieves all records of an account, newest first.
func (s *TransactionStore) GetByAccount(ctx context.Context, account string) ([]*domain.TransactionRecord, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE account = $1
		ORDER BY timestamp DESC, hash DESC
	`

	rows, err := s.pool.Query(ctx, query, account)
	if err != nil {
		return nil, fmt.Errorf("get transactions by account: %w", err)
	}
	defer rows.Close()

	var records []*domain.TransactionRecord
	for rows.Next() {
		r, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction row: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transaction rows: %w", err)
	}
	return records, nil
}

// Delete removes a record. Returns ErrNotFound if not exists.
func (s *TransactionStore) Delete(ctx context.Context, hash string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM transactions WHERE hash = $1`, hash)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func insertArgs(r *domain.TransactionRecord) []any {
	route := make([]string, len(r.Route))
	for i, m := range r.Route {
		route[i] = string(m)
	}
	return []any{
		r.Hash,
		r.Account,
		string(r.Kind),
		string(r.Status),
		r.Timestamp,
		string(r.AssetID),
		amountText(r.Amount),
		r.Counterparty,
		route,
		string(r.FeeAssetID),
		amountText(r.Fee),
	}
}

func scanTransaction(row pgx.Row) (*domain.TransactionRecord, error) {
	var (
		r          domain.TransactionRecord
		kind       string
		status     string
		assetID    string
		amount     *string
		route      []string
		feeAssetID string
		fee        *string
	)
	err := row.Scan(
		&r.Hash,
		&r.Account,
		&kind,
		&status,
		&r.Timestamp,
		&assetID,
		&amount,
		&r.Counterparty,
		&route,
		&feeAssetID,
		&fee,
	)
	if err != nil {
		return nil, err
	}

	r.Kind = domain.TransactionKind(kind)
	r.Status = domain.TransactionStatus(status)
	r.AssetID = domain.AssetID(assetID)
	r.FeeAssetID = domain.AssetID(feeAssetID)
	for _, m := range route {
		r.Route = append(r.Route, domain.Market(m))
	}
	if r.Amount, err = amountFromText(amount); err != nil {
		return nil, err
	}
	if r.Fee, err = amountFromText(fee); err != nil {
		return nil, err
	}
	return &r, nil
}

// Amounts travel as decimal text; they are 128-bit integers the
// database never computes on.
func amountText(v *big.Int) *string {
	if v == nil {
		return nil
	}
	s := v.String()
	return &s
}

func amountFromText(s *string) (*big.Int, error) {
	if s == nil {
		return nil, nil
	}
	v, ok := new(big.Int).SetString(*s, 10)
	if !ok {
		return nil, fmt.Errorf("malformed stored amount %q", *s)
	}
	return v, nil
}
