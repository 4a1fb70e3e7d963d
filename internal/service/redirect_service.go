package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"redirect-server/internal/domain"
	"redirect-server/internal/repository"
)

// Cache is the redirect-target cache contract. Using an interface
// keeps the service testable and lets the Redis layer stay optional.
type Cache interface {
	GetTarget(ctx context.Context, identifier string) (*domain.RedirectTarget, error)
	SetTarget(ctx context.Context, identifier string, target *domain.RedirectTarget) error
	DeleteTarget(ctx context.Context, identifier string) error
}

// RedirectService resolves tracking identifiers to destination URLs.
// One store lookup per request, with a cache-aside read path in front
// when a cache is configured.
type RedirectService struct {
	repo   repository.RedirectRepository
	cache  Cache // nil when Redis is not configured
	logger *slog.Logger
}

// NewRedirectService creates a redirect resolver. cache may be nil.
func NewRedirectService(repo repository.RedirectRepository, cache Cache, logger *slog.Logger) *RedirectService {
	return &RedirectService{
		repo:   repo,
		cache:  cache,
		logger: logger,
	}
}

// Resolve looks up the destination for an identifier. The three
// outcomes map onto distinct HTTP behavior upstream:
//   - found and active: the target, nil error
//   - no servable target (missing row or inactive): domain.ErrTargetNotFound
//   - transient store failure: any other error
func (s *RedirectService) Resolve(ctx context.Context, identifier string) (*domain.RedirectTarget, error) {
	if identifier == "" {
		return nil, domain.ErrTargetNotFound
	}

	// Cache first. A cache error is a miss, not a failure - the
	// database remains the source of truth.
	if s.cache != nil {
		cached, err := s.cache.GetTarget(ctx, identifier)
		if err != nil {
			s.logger.Warn("target cache read failed", "identifier", identifier, "error", err)
		} else if cached != nil {
			if !cached.CanRedirect() {
				return nil, domain.ErrTargetNotFound
			}
			return cached, nil
		}
	}

	target, err := s.repo.FindTarget(ctx, identifier)
	if err != nil {
		if errors.Is(err, domain.ErrTargetNotFound) {
			s.invalidate(ctx, identifier)
			return nil, domain.ErrTargetNotFound
		}
		return nil, fmt.Errorf("redirect lookup failed: %w", err)
	}

	// Inactive targets behave exactly like missing ones and are never
	// cached, so reactivation takes effect on the next click.
	if !target.CanRedirect() {
		s.invalidate(ctx, identifier)
		return nil, domain.ErrTargetNotFound
	}

	if s.cache != nil {
		if err := s.cache.SetTarget(ctx, identifier, target); err != nil {
			s.logger.Warn("target cache write failed", "identifier", identifier, "error", err)
		}
	}

	return target, nil
}

// invalidate drops a cached entry once the store says the identifier
// has no servable target, so a deactivated or deleted campaign stops
// serving without waiting out the cache TTL.
func (s *RedirectService) invalidate(ctx context.Context, identifier string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteTarget(ctx, identifier); err != nil {
		s.logger.Warn("target cache invalidation failed", "identifier", identifier, "error", err)
	}
}
