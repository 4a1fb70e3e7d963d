package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"redirect-server/internal/domain"
	"redirect-server/internal/repository"
)

// MetricsSink is the fire-and-forget metrics contract used across the
// service layer. Satisfied by the StatsD client; failures inside the
// sink are never surfaced to the caller.
type MetricsSink interface {
	Increment(bucket string)
	Timing(bucket string, d time.Duration)
}

// cachedOverrides is one cache slot. A nil overrides pointer is a
// cached negative result: the affiliate was looked up and has no
// record, so the default policy applies without another round-trip.
type cachedOverrides struct {
	overrides *domain.AffiliateOverrides
	fetchedAt time.Time
}

// AffiliateResolver fetches per-affiliate filter overrides from the
// backing store with an in-process TTL cache in front. A lookup
// failure is reported but never fatal: the caller falls back to the
// global default policy, the same as when no override exists.
type AffiliateResolver struct {
	repo   repository.AffiliateRepository
	sink   MetricsSink
	logger *slog.Logger
	ttl    time.Duration

	mu    sync.RWMutex
	cache map[string]cachedOverrides

	// now is swappable for tests
	now func() time.Time
}

// NewAffiliateResolver creates an override resolver. A ttl of 0
// disables expiry, caching each affiliate for the process lifetime.
func NewAffiliateResolver(repo repository.AffiliateRepository, sink MetricsSink, logger *slog.Logger, ttl time.Duration) *AffiliateResolver {
	return &AffiliateResolver{
		repo:   repo,
		sink:   sink,
		logger: logger,
		ttl:    ttl,
		cache:  make(map[string]cachedOverrides),
		now:    time.Now,
	}
}

// Resolve returns the overrides for the affiliate, or nil when the
// affiliate has no record or the lookup fails. Query failures are
// deliberately not cached so a recovering store is picked up on the
// next click.
func (r *AffiliateResolver) Resolve(ctx context.Context, affiliateID string) *domain.AffiliateOverrides {
	if affiliateID == "" {
		return nil
	}

	if cached, ok := r.fromCache(affiliateID); ok {
		if cached != nil {
			r.sink.Increment("RedirectServer.Requests.AffiliateRedirect")
		}
		return cached
	}

	overrides, err := r.repo.FindOverrides(ctx, affiliateID)
	switch {
	case errors.Is(err, domain.ErrOverridesNotFound):
		r.sink.Increment("RedirectServer.Requests.NoAffiliateOverrides")
		r.logger.Warn("no filters found for affiliate", "affiliate_id", affiliateID)
		r.store(affiliateID, nil)
		return nil
	case err != nil:
		r.sink.Increment("RedirectServer.Requests.QueryFailed")
		r.logger.Error("failed to query affiliate overrides",
			"affiliate_id", affiliateID,
			"error", err,
		)
		return nil
	}

	r.sink.Increment("RedirectServer.Requests.AffiliateRedirect")
	r.store(affiliateID, overrides)
	return overrides
}

func (r *AffiliateResolver) fromCache(affiliateID string) (*domain.AffiliateOverrides, bool) {
	r.mu.RLock()
	cached, ok := r.cache[affiliateID]
	r.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if r.ttl > 0 && r.now().Sub(cached.fetchedAt) > r.ttl {
		r.evict(affiliateID, cached.fetchedAt)
		return nil, false
	}
	return cached.overrides, true
}

// evict removes an expired slot so the map stays bounded by the set of
// affiliates active within one TTL, not every affiliate ever seen.
// The fetchedAt check keeps a concurrent refresh from being discarded.
func (r *AffiliateResolver) evict(affiliateID string, fetchedAt time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cached, ok := r.cache[affiliateID]; ok && cached.fetchedAt.Equal(fetchedAt) {
		delete(r.cache, affiliateID)
	}
}

func (r *AffiliateResolver) store(affiliateID string, overrides *domain.AffiliateOverrides) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache[affiliateID] = cachedOverrides{overrides: overrides, fetchedAt: r.now()}
}
