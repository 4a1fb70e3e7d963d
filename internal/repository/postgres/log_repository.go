package postgres

import (
	"context"
	"fmt"

	"redirect-server/internal/domain"
	"redirect-server/internal/repository"

	"github.com/jackc/pgx/v5/pgxpool"
)

// logRepository is the PostgreSQL implementation of
// repository.LogRepository.
type logRepository struct {
	db *pgxpool.Pool
}

// NewLogRepository creates a new PostgreSQL audit log repository.
func NewLogRepository(db *pgxpool.Pool) repository.LogRepository {
	return &logRepository{db: db}
}

// AppendEntry writes one audit log entry. The table is append-only;
// entries are never updated or read back by the server.
func (r *logRepository) AppendEntry(ctx context.Context, entry *domain.LogEntry) error {
	query := `
		INSERT INTO request_log (
			severity, server, message, referrer,
			ip_address, user_agent, url, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8
		)
	`

	_, err := r.db.Exec(
		ctx,
		query,
		string(entry.Severity),
		entry.Server,
		entry.Message,
		entry.Referrer,
		entry.IPAddress,
		entry.UserAgent,
		entry.URL,
		entry.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to append log entry: %w", err)
	}

	return nil
}
