package blacklist

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sync/atomic"
	"time"
)

// Source provides the raw blacklist patterns, normally backed by the
// persistent store. Declared here (at the point of use) so tests can
// swap in a stub without touching the repository package.
type Source interface {
	ListBannedIPs(ctx context.Context) ([]string, error)
	ListBannedUserAgents(ctx context.Context) ([]string, error)
}

// snapshot is one complete, immutable pattern set. The whole snapshot
// is replaced atomically on reload, never mutated in place, so
// concurrent readers always see either the old or the new full set.
type snapshot struct {
	ips        []*regexp.Regexp
	userAgents []*regexp.Regexp
}

// Store holds the compiled pattern sets for banned IP addresses and
// banned user agents. Matching is OR semantics across the list and
// case-sensitive, exactly as the patterns specify.
//
// A Store starts empty: until the first successful Load no click is
// ever blacklist-rejected. That is a safe-by-default but alertable
// state - the caller is expected to surface load failures.
type Store struct {
	source Source
	logger *slog.Logger
	active atomic.Pointer[snapshot]
}

// NewStore creates an empty blacklist store.
func NewStore(source Source, logger *slog.Logger) *Store {
	s := &Store{
		source: source,
		logger: logger,
	}
	s.active.Store(&snapshot{})
	return s
}

// Load fetches both pattern lists from the source, compiles them, and
// replaces the active set atomically. On failure the previous set
// stays active and the error is returned for the caller to report.
func (s *Store) Load(ctx context.Context) error {
	ipPatterns, err := s.source.ListBannedIPs(ctx)
	if err != nil {
		return fmt.Errorf("failed to load banned IPs: %w", err)
	}

	uaPatterns, err := s.source.ListBannedUserAgents(ctx)
	if err != nil {
		return fmt.Errorf("failed to load banned user agents: %w", err)
	}

	next := &snapshot{
		ips:        s.compile(ipPatterns, "ip"),
		userAgents: s.compile(uaPatterns, "user_agent"),
	}
	s.active.Store(next)

	s.logger.Info("blacklist loaded",
		"banned_ips", len(next.ips),
		"banned_user_agents", len(next.userAgents),
	)
	return nil
}

// Refresh reloads the pattern sets on a fixed interval until the
// context is cancelled. Failures are logged and the previous set stays
// in effect until the next tick.
func (s *Store) Refresh(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Load(ctx); err != nil {
				s.logger.Warn("blacklist refresh failed", "error", err)
			}
		}
	}
}

// IsIPBanned reports whether the address matches any banned-IP pattern.
func (s *Store) IsIPBanned(address string) bool {
	return matchAny(s.active.Load().ips, address)
}

// IsUserAgentBanned reports whether the user agent matches any
// banned-user-agent pattern.
func (s *Store) IsUserAgentBanned(userAgent string) bool {
	return matchAny(s.active.Load().userAgents, userAgent)
}

// Sizes returns the number of compiled patterns per class, for
// operational logging.
func (s *Store) Sizes() (ips, userAgents int) {
	active := s.active.Load()
	return len(active.ips), len(active.userAgents)
}

// compile turns raw pattern sources into regexps. A pattern that fails
// to compile is skipped with a warning rather than poisoning the whole
// set - one bad row must not disable the blacklist.
func (s *Store) compile(patterns []string, class string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, pattern := range patterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			s.logger.Warn("invalid blacklist pattern skipped",
				"class", class,
				"pattern", pattern,
				"error", err,
			)
			continue
		}
		compiled = append(compiled, re)
	}
	return compiled
}

func matchAny(patterns []*regexp.Regexp, value string) bool {
	for _, re := range patterns {
		if re.MatchString(value) {
			return true
		}
	}
	return false
}
