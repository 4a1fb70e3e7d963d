package postgres

import (
	"context"
	"errors"
	"fmt"

	"redirect-server/internal/domain"
	"redirect-server/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// affiliateRepository is the PostgreSQL implementation of
// repository.AffiliateRepository.
type affiliateRepository struct {
	db *pgxpool.Pool
}

// NewAffiliateRepository creates a new PostgreSQL affiliate repository.
func NewAffiliateRepository(db *pgxpool.Pool) repository.AffiliateRepository {
	return &affiliateRepository{db: db}
}

// FindOverrides retrieves the filter overrides for an affiliate.
func (r *affiliateRepository) FindOverrides(ctx context.Context, affiliateID string) (*domain.AffiliateOverrides, error) {
	query := `
		SELECT affiliate_id, max_clicks_per_day, enforce_ip_match, enforce_referrer_match
		FROM affiliate_overrides
		WHERE affiliate_id = $1
	`

	overrides := &domain.AffiliateOverrides{}
	err := r.db.QueryRow(ctx, query, affiliateID).Scan(
		&overrides.AffiliateID,
		&overrides.MaxClicksPerDay,
		&overrides.EnforceIPMatch,
		&overrides.EnforceRefMatch,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrOverridesNotFound
		}
		return nil, fmt.Errorf("failed to query affiliate overrides: %w", err)
	}

	return overrides, nil
}
