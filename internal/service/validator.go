package service

import (
	"context"
	"regexp"
	"strings"
	"time"

	"redirect-server/internal/domain"
)

// Dependencies of the filter chain, declared here at the point of use
// so tests can swap in fakes without touching the leaf packages.

// Blacklist answers whether an address or user agent is banned.
type Blacklist interface {
	IsIPBanned(address string) bool
	IsUserAgentBanned(userAgent string) bool
}

// History is the per-source click accounting behind the velocity and
// duplicate checks.
type History interface {
	Record(sourceAddress string, ts time.Time)
	CountToday(sourceAddress string) int
	IsDuplicate(sourceAddress string, threshold time.Duration) bool
}

// OverrideResolver fetches per-affiliate policy overrides. A nil
// result means "use the global defaults".
type OverrideResolver interface {
	Resolve(ctx context.Context, affiliateID string) *domain.AffiliateOverrides
}

// ReferrerMatcher decides whether a referring domain is banned. The
// production rule set ships empty, but the hook is a real, testable
// matcher rather than a hardcoded "not banned".
type ReferrerMatcher interface {
	IsBanned(referrer string) bool
}

// ReferrerRule is a regex-set ReferrerMatcher. An empty rule set never
// matches.
type ReferrerRule struct {
	patterns []*regexp.Regexp
}

// NewReferrerRule compiles the banned-referrer patterns.
func NewReferrerRule(patterns []string) (*ReferrerRule, error) {
	rule := &ReferrerRule{}
	for _, pattern := range patterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, err
		}
		rule.patterns = append(rule.patterns, re)
	}
	return rule, nil
}

// IsBanned reports whether the referrer matches any banned pattern.
func (r *ReferrerRule) IsBanned(referrer string) bool {
	for _, re := range r.patterns {
		if re.MatchString(referrer) {
			return true
		}
	}
	return false
}

// Validator runs the ordered filter chain over each inbound click and
// returns an accept/reject verdict with a reason code.
//
// The chain is ordered so the cheap, stateless checks (blacklist)
// run before anything needing a store round-trip (affiliate overrides)
// or cross-click state (velocity, duplicate). It short-circuits at the
// first rejecting rule.
type Validator struct {
	blacklist  Blacklist
	history    History
	overrides  OverrideResolver
	referrer   ReferrerMatcher
	dupWindow  time.Duration
	defaultMax int
}

// NewValidator wires the filter chain. dupWindow is the double-click
// threshold (0 defaults to 2 seconds); defaultMax is the daily click
// cap applied when an affiliate has no overrides of its own (0 uses
// the built-in default).
func NewValidator(blacklist Blacklist, history History, overrides OverrideResolver, referrer ReferrerMatcher, dupWindow time.Duration, defaultMax int) *Validator {
	if dupWindow <= 0 {
		dupWindow = 2000 * time.Millisecond
	}
	if defaultMax <= 0 {
		defaultMax = domain.DefaultMaxClicksPerDay
	}
	return &Validator{
		blacklist:  blacklist,
		history:    history,
		overrides:  overrides,
		referrer:   referrer,
		dupWindow:  dupWindow,
		defaultMax: defaultMax,
	}
}

// Validate records the click into history exactly once and then runs
// the chain. Recording happens before the velocity and duplicate
// checks so the click counts itself: with a cap of N, the (N+1)th
// click of the day is the first one rejected.
func (v *Validator) Validate(ctx context.Context, click *domain.ClickEvent) domain.Verdict {
	v.history.Record(click.SourceAddress, click.Timestamp)
	return v.check(ctx, click)
}

// check is the chain itself. Pure given fixed blacklist and history
// state: re-running it for the same click without re-recording yields
// the same verdict.
func (v *Validator) check(ctx context.Context, click *domain.ClickEvent) domain.Verdict {
	if v.blacklist.IsIPBanned(click.SourceAddress) {
		return domain.RejectedBlacklistIP
	}
	if v.blacklist.IsUserAgentBanned(click.UserAgent) {
		return domain.RejectedBlacklistUserAgent
	}
	if v.referrer.IsBanned(click.Referrer) {
		return domain.RejectedReferrerBanned
	}

	// Effective policy: the affiliate's overrides when present, the
	// global defaults otherwise.
	policy := domain.DefaultOverrides()
	policy.MaxClicksPerDay = v.defaultMax
	if click.AffiliateID != "" {
		if overrides := v.overrides.Resolve(ctx, click.AffiliateID); overrides != nil {
			policy = overrides
		}
	}

	if policy.EnforceIPMatch && click.ClaimedSourceIP != click.SourceAddress {
		return domain.RejectedIPMismatch
	}
	if policy.EnforceRefMatch && !strings.Contains(click.Referrer, click.ClaimedRefFrag) {
		return domain.RejectedReferrerMismatch
	}
	if v.history.CountToday(click.SourceAddress) > policy.MaxClicksPerDay {
		return domain.RejectedVelocityExceeded
	}
	if v.history.IsDuplicate(click.SourceAddress, v.dupWindow) {
		return domain.RejectedDuplicateClick
	}

	return domain.Accepted
}
