package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"redirect-server/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==================== FAKES ====================

type fakeValidator struct {
	verdict   domain.Verdict
	lastClick *domain.ClickEvent
}

func (f *fakeValidator) Validate(_ context.Context, click *domain.ClickEvent) domain.Verdict {
	f.lastClick = click
	return f.verdict
}

type fakeResolver struct {
	target *domain.RedirectTarget
	err    error
	calls  int
}

func (f *fakeResolver) Resolve(_ context.Context, identifier string) (*domain.RedirectTarget, error) {
	f.calls++
	return f.target, f.err
}

type fakeAuditor struct {
	mu      sync.Mutex
	entries []*domain.LogEntry
}

func (f *fakeAuditor) WriteAsync(entry *domain.LogEntry) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
}

type fakeSink struct {
	mu      sync.Mutex
	counts  map[string]int
	rates   map[string]float64
	timings map[string]time.Duration
}

func newFakeSink() *fakeSink {
	return &fakeSink{
		counts:  map[string]int{},
		rates:   map[string]float64{},
		timings: map[string]time.Duration{},
	}
}

func (f *fakeSink) Increment(bucket string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[bucket]++
}

func (f *fakeSink) IncrementSampled(bucket string, rate float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[bucket]++
	f.rates[bucket] = rate
}

func (f *fakeSink) Timing(bucket string, d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.timings[bucket] = d
}

func (f *fakeSink) count(bucket string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[bucket]
}

type fixture struct {
	handler   http.Handler
	validator *fakeValidator
	resolver  *fakeResolver
	audit     *fakeAuditor
	sink      *fakeSink
}

func newFixture(verdict domain.Verdict) *fixture {
	validator := &fakeValidator{verdict: verdict}
	resolver := &fakeResolver{}
	audit := &fakeAuditor{}
	sink := newFakeSink()

	h := NewHandler(validator, resolver, audit, sink, slog.New(slog.DiscardHandler))
	return &fixture{
		handler:   h.Routes(),
		validator: validator,
		resolver:  resolver,
		audit:     audit,
		sink:      sink,
	}
}

// ==================== TESTS ====================

func TestHeartbeat(t *testing.T) {
	f := newFixture(domain.Accepted)

	req := httptest.NewRequest(http.MethodGet, "/heartbeat", nil)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Heartbeat", rec.Body.String())
	assert.Equal(t, "text/html", rec.Header().Get("Content-Type"))

	// Heartbeats bypass the filter chain entirely.
	assert.Nil(t, f.validator.lastClick)
}

func TestBrowserComplete(t *testing.T) {
	f := newFixture(domain.Accepted)

	req := httptest.NewRequest(http.MethodGet, "/browser?rid=abc", nil)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.Equal(t, 1, f.sink.count("RedirectServer.TrackBrowser"))
	assert.Equal(t, browserSampleRate, f.sink.rates["RedirectServer.TrackBrowser"])
	assert.Equal(t, 0, f.resolver.calls)
}

func TestRedirect_AcceptedAndFound(t *testing.T) {
	f := newFixture(domain.Accepted)
	f.resolver.target = &domain.RedirectTarget{
		Identifier:     "abc",
		DestinationURL: "https://example.com/x",
		Active:         true,
	}

	req := httptest.NewRequest(http.MethodGet, "/?id=abc", nil)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMovedPermanently, rec.Code)
	assert.Equal(t, "https://example.com/x", rec.Header().Get("Location"))
	assert.Empty(t, rec.Body.String())
}

func TestRedirect_AcceptedUnknownIdentifier(t *testing.T) {
	f := newFixture(domain.Accepted)
	f.resolver.err = domain.ErrTargetNotFound

	req := httptest.NewRequest(http.MethodGet, "/?id=nosuch", nil)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	// Unknown identifier is an empty success, not an error.
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.Empty(t, rec.Header().Get("Location"))
	assert.Equal(t, 1, f.sink.count("RedirectServer.Requests.NoUrl"))

	require.Len(t, f.audit.entries, 1)
	assert.Equal(t, domain.SeverityWarning, f.audit.entries[0].Severity)
	assert.Contains(t, f.audit.entries[0].Message, "nosuch")
}

func TestRedirect_StoreError(t *testing.T) {
	f := newFixture(domain.Accepted)
	f.resolver.err = errors.New("connection refused")

	req := httptest.NewRequest(http.MethodGet, "/?id=abc", nil)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.Equal(t, 1, f.sink.count("RedirectServer.Requests.QueryFailed"))

	require.Len(t, f.audit.entries, 1)
	assert.Equal(t, domain.SeverityError, f.audit.entries[0].Severity)
}

func TestRedirect_RejectedClick(t *testing.T) {
	f := newFixture(domain.RejectedVelocityExceeded)

	req := httptest.NewRequest(http.MethodGet, "/?id=abc", nil)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	// The reason code never reaches the client: empty terminal
	// response, no redirect, no resolver call.
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.Empty(t, rec.Header().Get("Location"))
	assert.Equal(t, 0, f.resolver.calls)
	assert.Equal(t, 1, f.sink.count("RedirectServer.Requests.Invalid"))
}

func TestRedirect_QueryParametersReachTheClick(t *testing.T) {
	f := newFixture(domain.Accepted)
	f.resolver.err = domain.ErrTargetNotFound

	req := httptest.NewRequest(http.MethodGet, "/?id=abc&s=aff1&rip=10.0.0.1&rr=partner.example", nil)
	req.RemoteAddr = "10.0.0.1:54321"
	req.Header.Set("User-Agent", "Mozilla/5.0")
	req.Header.Set("Referer", "https://partner.example/landing")

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	click := f.validator.lastClick
	require.NotNil(t, click)
	assert.Equal(t, "abc", click.RequestedID)
	assert.Equal(t, "aff1", click.AffiliateID)
	assert.Equal(t, "10.0.0.1", click.ClaimedSourceIP)
	assert.Equal(t, "partner.example", click.ClaimedRefFrag)
	assert.Equal(t, "10.0.0.1", click.SourceAddress)
	assert.Equal(t, "Mozilla/5.0", click.UserAgent)
	assert.Equal(t, "https://partner.example/landing", click.Referrer)
}

func TestNonGetRejected(t *testing.T) {
	f := newFixture(domain.Accepted)

	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
		req := httptest.NewRequest(method, "/?id=abc", nil)
		rec := httptest.NewRecorder()
		f.handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, method)
		assert.Empty(t, rec.Body.String())
	}

	assert.Equal(t, 3, f.sink.count("RedirectServer.Requests.Invalid"))
	assert.Equal(t, 0, f.resolver.calls)
	assert.Nil(t, f.validator.lastClick)
}

func TestExtractIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		expected   string
	}{
		{
			name:       "plain remote addr with port",
			remoteAddr: "192.168.1.1:12345",
			expected:   "192.168.1.1",
		},
		{
			name:       "x-forwarded-for wins",
			remoteAddr: "10.0.0.1:80",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"},
			expected:   "203.0.113.7",
		},
		{
			name:       "x-real-ip fallback",
			remoteAddr: "10.0.0.1:80",
			headers:    map[string]string{"X-Real-IP": "203.0.113.9"},
			expected:   "203.0.113.9",
		},
		{
			name:       "bracketed ipv6 with port",
			remoteAddr: "[::1]:80",
			expected:   "::1",
		},
		{
			name:       "bare ipv6 without port",
			remoteAddr: "2001:db8::42",
			expected:   "2001:db8::42",
		},
		{
			name:       "bare ipv4 without port",
			remoteAddr: "192.168.1.1",
			expected:   "192.168.1.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.expected, extractIP(req))
		})
	}
}
