package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"redirect-server/internal/domain"
	"redirect-server/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// redirectRepository is the PostgreSQL implementation of
// repository.RedirectRepository. The lowercase name keeps it private
// to this package; callers only see the interface.
type redirectRepository struct {
	db *pgxpool.Pool
}

// NewRedirectRepository creates a new PostgreSQL redirect repository.
func NewRedirectRepository(db *pgxpool.Pool) repository.RedirectRepository {
	return &redirectRepository{db: db}
}

// FindTarget retrieves a redirect target by its identifier.
// Exactly one lookup per redirect request; the three outcomes
// (found / not found / store error) drive distinct HTTP behavior
// upstream, so not-found is surfaced as a sentinel rather than folded
// into the error.
func (r *redirectRepository) FindTarget(ctx context.Context, identifier string) (*domain.RedirectTarget, error) {
	query := `
		SELECT identifier, destination_url, is_active
		FROM campaign_urls
		WHERE identifier = $1
	`

	target := &domain.RedirectTarget{}
	err := r.db.QueryRow(ctx, query, identifier).Scan(
		&target.Identifier,
		&target.DestinationURL,
		&target.Active,
	)

	if err != nil {
		// pgx.ErrNoRows is returned when no rows match the query
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTargetNotFound
		}
		return nil, fmt.Errorf("failed to query redirect target: %w", err)
	}

	return target, nil
}

// InitDB initializes the database connection pool. Called once at
// application startup.
//
// The pool connects lazily: creating it succeeds even while the
// database is down, and individual queries fail instead. Startup uses
// that to keep serving heartbeat traffic through a store outage.
func InitDB(ctx context.Context, dsn string, maxConns, minConns int, maxLifetime time.Duration) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	config.MaxConns = int32(maxConns)
	config.MinConns = int32(minConns)
	config.MaxConnLifetime = maxLifetime
	config.MaxConnIdleTime = 30 * time.Minute
	config.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	return pool, nil
}
