package domain

import "time"

// ClickEvent represents one inbound redirect request as seen by the
// filter chain. It is built once per request from the connection and
// query string and never mutated afterwards; only its verdict and
// metadata are persisted.
type ClickEvent struct {
	SourceAddress   string    // Remote address of the connection
	Timestamp       time.Time // When the request arrived
	UserAgent       string    // User-Agent header
	Referrer        string    // Referer header
	RequestedID     string    // "id" query parameter - the tracking identifier
	AffiliateID     string    // "s" query parameter, empty when absent
	ClaimedSourceIP string    // "rip" query parameter, empty when absent
	ClaimedRefFrag  string    // "rr" query parameter, empty when absent
}

// NewClickEvent builds a ClickEvent stamped with the current time.
func NewClickEvent(sourceAddr, userAgent, referrer, requestedID string) *ClickEvent {
	return &ClickEvent{
		SourceAddress: sourceAddr,
		Timestamp:     time.Now(),
		UserAgent:     userAgent,
		Referrer:      referrer,
		RequestedID:   requestedID,
	}
}

// WithAffiliate tags the click with the affiliate query parameters.
func (c *ClickEvent) WithAffiliate(affiliateID, claimedIP, claimedRefFrag string) *ClickEvent {
	c.AffiliateID = affiliateID
	c.ClaimedSourceIP = claimedIP
	c.ClaimedRefFrag = claimedRefFrag
	return c
}

// Verdict is the terminal classification of a click by the filter
// chain. The chain short-circuits at the first rejecting rule, so a
// click carries exactly one verdict.
type Verdict int

const (
	Accepted Verdict = iota
	RejectedBlacklistIP
	RejectedBlacklistUserAgent
	RejectedReferrerBanned
	RejectedIPMismatch
	RejectedReferrerMismatch
	RejectedVelocityExceeded
	RejectedDuplicateClick
)

var verdictNames = map[Verdict]string{
	Accepted:                   "Accepted",
	RejectedBlacklistIP:        "RejectedBlacklistIp",
	RejectedBlacklistUserAgent: "RejectedBlacklistUserAgent",
	RejectedReferrerBanned:     "RejectedReferrerBanned",
	RejectedIPMismatch:         "RejectedIpMismatch",
	RejectedReferrerMismatch:   "RejectedReferrerMismatch",
	RejectedVelocityExceeded:   "RejectedVelocityExceeded",
	RejectedDuplicateClick:     "RejectedDuplicateClick",
}

// String returns the stable reason code used in metrics and logs.
func (v Verdict) String() string {
	if name, ok := verdictNames[v]; ok {
		return name
	}
	return "Unknown"
}

// IsAccepted reports whether the click passed the whole chain.
func (v Verdict) IsAccepted() bool {
	return v == Accepted
}
