package domain

// AffiliateOverrides is per-partner configuration that relaxes or
// tightens the default anti-fraud thresholds. When no override exists
// for an affiliate (or the lookup fails) the global defaults apply.
type AffiliateOverrides struct {
	AffiliateID     string
	MaxClicksPerDay int  // Velocity cap for one source address, >= 0
	EnforceIPMatch  bool // Require rip parameter to equal the connection address
	EnforceRefMatch bool // Require Referer to contain the rr parameter
}

// Global default policy, applied when a click carries no affiliate or
// the affiliate has no record.
const (
	DefaultMaxClicksPerDay = 3
	DefaultEnforceIPMatch  = true
	DefaultEnforceRefMatch = true
)

// DefaultOverrides returns the global default policy as an overrides
// value, so the filter chain has a single effective-policy shape.
func DefaultOverrides() *AffiliateOverrides {
	return &AffiliateOverrides{
		MaxClicksPerDay: DefaultMaxClicksPerDay,
		EnforceIPMatch:  DefaultEnforceIPMatch,
		EnforceRefMatch: DefaultEnforceRefMatch,
	}
}
