package domain

import "time"

// Severity of an audit log entry. Critical and Fatal entries
// additionally trigger an alert email.
type Severity string

const (
	SeverityWarning  Severity = "Warning"
	SeverityError    Severity = "Error"
	SeverityCritical Severity = "Critical"
	SeverityFatal    Severity = "Fatal"
)

// Alertable reports whether entries of this severity should be pushed
// through the alert channel in addition to the persistent log.
func (s Severity) Alertable() bool {
	return s == SeverityCritical || s == SeverityFatal
}

// LogEntry is one row of the persistent audit log. Entries capture the
// request context alongside the message so operational issues can be
// traced back to the traffic that caused them.
type LogEntry struct {
	Severity  Severity
	Server    string // Host header of the request being served
	Message   string
	Referrer  string
	IPAddress string
	UserAgent string
	URL       string // Full request URL, reconstructed
	CreatedAt time.Time
}

// NewLogEntry builds an entry stamped with the current time.
func NewLogEntry(severity Severity, message string) *LogEntry {
	return &LogEntry{
		Severity:  severity,
		Message:   message,
		CreatedAt: time.Now(),
	}
}

// WithRequest attaches the originating request's context to the entry.
func (e *LogEntry) WithRequest(server, referrer, ipAddress, userAgent, url string) *LogEntry {
	e.Server = server
	e.Referrer = referrer
	e.IPAddress = ipAddress
	e.UserAgent = userAgent
	e.URL = url
	return e
}
