package repository

import (
	"context"

	"redirect-server/internal/domain"
)

// RedirectRepository defines the interface for redirect target lookups.
// This is the "Repository Pattern" - it abstracts the backing store so
// the service layer never touches SQL, and tests can swap in mocks.
//
// Interfaces are satisfied implicitly in Go - any type implementing
// these methods can be injected without an "implements" declaration.
type RedirectRepository interface {
	// FindTarget retrieves a redirect target by its identifier.
	// Returns domain.ErrTargetNotFound when no row matches; any other
	// error is a transient store failure.
	FindTarget(ctx context.Context, identifier string) (*domain.RedirectTarget, error)
}

// AffiliateRepository defines the interface for per-affiliate filter
// override lookups.
type AffiliateRepository interface {
	// FindOverrides retrieves the filter overrides for an affiliate.
	// Returns domain.ErrOverridesNotFound when the affiliate has no
	// record.
	FindOverrides(ctx context.Context, affiliateID string) (*domain.AffiliateOverrides, error)
}

// BlacklistRepository defines the interface for loading the banned
// IP address and user agent pattern lists. Patterns are raw regular
// expression sources; compilation happens in the blacklist store.
type BlacklistRepository interface {
	// ListBannedIPs returns every banned-IP pattern.
	ListBannedIPs(ctx context.Context) ([]string, error)

	// ListBannedUserAgents returns every banned-user-agent pattern.
	ListBannedUserAgents(ctx context.Context) ([]string, error)
}

// LogRepository defines the interface for the persistent audit log.
type LogRepository interface {
	// AppendEntry writes one audit log entry.
	AppendEntry(ctx context.Context, entry *domain.LogEntry) error
}
