package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Pool wraps pgxpool.Pool so every store depends on one injectable
// handle.
type Pool struct {
	*pgxpool.Pool
}

// The daemon issues short point queries against two small tables and
// runs alongside other services, so the pool stays small: a few capped
// connections, one kept warm, health-checked between bursts.
const (
	maxConns          = 8
	minConns          = 1
	healthCheckPeriod = time.Minute
)

// NewPool connects to the database and verifies it is reachable.
func NewPool(ctx context.Context, dsn string) (*Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if config.MaxConns > maxConns {
		config.MaxConns = maxConns
	}
	config.MinConns = minConns
	config.HealthCheckPeriod = healthCheckPeriod

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// Close closes the connection pool.
func (p *Pool) Close() {
	p.Pool.Close()
}

// unique_violation, the only constraint error the stores distinguish.
const pgErrUniqueViolation = "23505"

// isDuplicateKeyError reports whether the server rejected a write for a
// unique-constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgErrUniqueViolation
}

// isNotFoundError reports the no-rows outcome of a single-row query.
func isNotFoundError(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
