package postgres

import (
	"context"
	"fmt"

	"redirect-server/internal/repository"

	"github.com/jackc/pgx/v5/pgxpool"
)

// blacklistRepository is the PostgreSQL implementation of
// repository.BlacklistRepository. Patterns are stored as raw regular
// expression sources, one row each.
type blacklistRepository struct {
	db *pgxpool.Pool
}

// NewBlacklistRepository creates a new PostgreSQL blacklist repository.
func NewBlacklistRepository(db *pgxpool.Pool) repository.BlacklistRepository {
	return &blacklistRepository{db: db}
}

// ListBannedIPs returns every banned-IP pattern.
func (r *blacklistRepository) ListBannedIPs(ctx context.Context) ([]string, error) {
	return r.listPatterns(ctx, `SELECT pattern FROM banned_ips`)
}

// ListBannedUserAgents returns every banned-user-agent pattern.
func (r *blacklistRepository) ListBannedUserAgents(ctx context.Context) ([]string, error) {
	return r.listPatterns(ctx, `SELECT pattern FROM banned_user_agents`)
}

func (r *blacklistRepository) listPatterns(ctx context.Context, query string) ([]string, error) {
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query blacklist patterns: %w", err)
	}
	defer rows.Close() // Always close rows to free resources

	var patterns []string
	for rows.Next() {
		var pattern string
		if err := rows.Scan(&pattern); err != nil {
			return nil, fmt.Errorf("failed to scan blacklist pattern: %w", err)
		}
		patterns = append(patterns, pattern)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating blacklist patterns: %w", err)
	}

	return patterns, nil
}
