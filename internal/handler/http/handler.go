package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"redirect-server/internal/domain"
	"redirect-server/internal/metrics"

	"github.com/go-chi/chi/v5"
)

// Interfaces for the handler's collaborators, defined here so tests
// can inject mocks without importing the service packages.

// ClickValidator runs the filter chain over one inbound click.
type ClickValidator interface {
	Validate(ctx context.Context, click *domain.ClickEvent) domain.Verdict
}

// RedirectResolver looks up a destination URL by identifier.
type RedirectResolver interface {
	Resolve(ctx context.Context, identifier string) (*domain.RedirectTarget, error)
}

// Auditor accepts audit entries off the request path.
type Auditor interface {
	WriteAsync(entry *domain.LogEntry)
}

// Sink is the fire-and-forget StatsD contract used by the handler.
type Sink interface {
	Increment(bucket string)
	IncrementSampled(bucket string, rate float64)
	Timing(bucket string, d time.Duration)
}

// browserSampleRate thins the browser-complete counter on the wire.
// The sample rate rides along in the packet, so the collector scales
// the counts back up.
const browserSampleRate = 0.25

// Handler is the request orchestrator: it routes inbound requests to
// heartbeat, telemetry, or the validate-then-redirect pipeline and
// produces the outbound status and headers.
type Handler struct {
	validator ClickValidator
	redirects RedirectResolver
	audit     Auditor
	sink      Sink
	logger    *slog.Logger
}

// NewHandler creates the request orchestrator.
func NewHandler(validator ClickValidator, redirects RedirectResolver, audit Auditor, sink Sink, logger *slog.Logger) *Handler {
	return &Handler{
		validator: validator,
		redirects: redirects,
		audit:     audit,
		sink:      sink,
		logger:    logger,
	}
}

// Routes mounts the HTTP surface. The redirect route is a catch-all:
// any GET path carrying an id parameter is a click.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/heartbeat", h.Heartbeat)
	r.Get("/browser", h.BrowserComplete)
	r.Get("/*", h.Redirect)
	r.MethodNotAllowed(h.InvalidMethod)
	return r
}

// Heartbeat handles GET /heartbeat: a fixed liveness payload that
// bypasses click validation entirely, so load balancers keep probing
// successfully even while the backing store is down.
func (h *Handler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	respondText(w, http.StatusOK, "text/html", "Heartbeat")
}

// BrowserComplete handles GET /browser: page-render completion
// telemetry. No validation, no redirect resolution. The counter is
// sampled: this is the highest-volume fire-and-forget endpoint.
func (h *Handler) BrowserComplete(w http.ResponseWriter, r *http.Request) {
	h.sink.IncrementSampled("RedirectServer.TrackBrowser", browserSampleRate)
	respondEmpty(w, http.StatusOK)
}

// InvalidMethod rejects non-GET requests outright. Folded into the
// invalid bucket for metrics; no body reaches the client.
func (h *Handler) InvalidMethod(w http.ResponseWriter, r *http.Request) {
	metrics.RecordInvalidRequest()
	h.sink.Increment("RedirectServer.Requests.Invalid")
	respondEmpty(w, http.StatusMethodNotAllowed)
}

// Redirect handles a click: GET /?id=...&s=...&rip=...&rr=...
// The click runs the filter chain first; only accepted clicks reach
// the redirect resolver. A rejected verdict always ends the request
// with an empty response - the reason code is used for metrics and
// logging, never exposed to the client.
func (h *Handler) Redirect(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	query := r.URL.Query()

	click := domain.NewClickEvent(
		extractIP(r),
		r.UserAgent(),
		r.Referer(),
		query.Get("id"),
	).WithAffiliate(
		query.Get("s"),
		query.Get("rip"),
		query.Get("rr"),
	)

	verdict := h.validator.Validate(r.Context(), click)
	metrics.RecordVerdict(verdict.String())

	if !verdict.IsAccepted() {
		h.sink.Increment("RedirectServer.Requests.Invalid")
		h.logger.Info("click rejected",
			"verdict", verdict.String(),
			"source", click.SourceAddress,
			"id", click.RequestedID,
			"affiliate", click.AffiliateID,
		)
		respondEmpty(w, http.StatusOK)
		return
	}

	resolveStart := time.Now()
	target, err := h.redirects.Resolve(r.Context(), click.RequestedID)

	switch {
	case errors.Is(err, domain.ErrTargetNotFound):
		// Not an error: the click is logged as "no URL" and the
		// client gets an empty success response.
		h.sink.Increment("RedirectServer.Requests.NoUrl")
		metrics.RecordUnknownIdentifier()
		h.audit.WriteAsync(h.entryFor(r, domain.SeverityWarning,
			fmt.Sprintf("No URL found for %s.", click.RequestedID)))
		respondEmpty(w, http.StatusOK)

	case err != nil:
		h.sink.Increment("RedirectServer.Requests.QueryFailed")
		metrics.RecordStoreError("redirect_lookup")
		h.audit.WriteAsync(h.entryFor(r, domain.SeverityError,
			"Failed to query the store for the URL. Reason: "+err.Error()))
		respondEmpty(w, http.StatusInternalServerError)

	default:
		metrics.RecordRedirect()
		metrics.RedirectResolutionDuration.Observe(time.Since(resolveStart).Seconds())

		w.Header().Set("Location", target.DestinationURL)
		respondEmpty(w, http.StatusMovedPermanently)

		h.sink.Timing("RedirectServer.Requests.Redirected", time.Since(start))
	}
}

// entryFor builds an audit entry carrying the request context.
func (h *Handler) entryFor(r *http.Request, severity domain.Severity, message string) *domain.LogEntry {
	return domain.NewLogEntry(severity, message).WithRequest(
		r.Host,
		r.Referer(),
		extractIP(r),
		r.UserAgent(),
		"http://"+r.Host+r.URL.RequestURI(),
	)
}
