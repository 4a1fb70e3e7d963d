package audit

import (
	"context"
	"log/slog"
	"time"

	"redirect-server/internal/domain"
)

// Log persists audit entries; backed by the request_log repository.
type Log interface {
	AppendEntry(ctx context.Context, entry *domain.LogEntry) error
}

// Sink receives audit counters. Satisfied by the StatsD client.
type Sink interface {
	Increment(bucket string)
}

// Notifier delivers operator alerts. Satisfied by the alert mailer.
type Notifier interface {
	Notify(subject, body string) error
}

// Recorder writes audit entries to the persistent log and escalates
// the severe ones through the alert channel. Every failure path is
// absorbed here: a log write or alert that fails is counted and
// logged, and the request that produced the entry is never affected.
type Recorder struct {
	log      Log
	sink     Sink
	notifier Notifier
	logger   *slog.Logger
	timeout  time.Duration
}

// NewRecorder creates an audit recorder. The timeout bounds each
// store write so a stalled database cannot pile up goroutines.
func NewRecorder(log Log, sink Sink, notifier Notifier, logger *slog.Logger, timeout time.Duration) *Recorder {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Recorder{
		log:      log,
		sink:     sink,
		notifier: notifier,
		logger:   logger,
		timeout:  timeout,
	}
}

// Write persists one entry and handles escalation synchronously.
func (r *Recorder) Write(ctx context.Context, entry *domain.LogEntry) {
	r.logger.Log(ctx, slogLevel(entry.Severity), entry.Message,
		"severity", string(entry.Severity),
		"ip", entry.IPAddress,
		"url", entry.URL,
	)

	writeCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.log.AppendEntry(writeCtx, entry); err != nil {
		r.sink.Increment("RedirectServer.Log.WriteFailure")
		r.logger.Error("failed to write audit entry", "error", err)
		_ = r.notifier.Notify("Log Failure", "Failed to write to the log. Reason: "+err.Error())
	}

	if entry.Severity.Alertable() {
		r.sink.Increment("RedirectServer.Log." + string(entry.Severity))
		_ = r.notifier.Notify(
			"Redirect Server encountered a critical or fatal exception",
			entry.Message,
		)
	}
}

// WriteAsync persists the entry off the request path. The response for
// the originating request is already computed by the time this runs,
// so a slow or failing log write cannot delay it.
func (r *Recorder) WriteAsync(entry *domain.LogEntry) {
	go r.Write(context.Background(), entry)
}

func slogLevel(s domain.Severity) slog.Level {
	switch s {
	case domain.SeverityWarning:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}
