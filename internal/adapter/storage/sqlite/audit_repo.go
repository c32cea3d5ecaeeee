package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kar69-96/agentpay/internal/core/domain"
	"github.com/kar69-96/agentpay/internal/core/ports"
)

// AuditRepo implements ports.AuditRepository. The table is insert-only;
// no update or delete statement exists in this package.
type AuditRepo struct {
	db *sql.DB
}

var _ ports.AuditRepository = (*AuditRepo)(nil)

func NewAuditRepo(db *sql.DB) *AuditRepo {
	return &AuditRepo{db: db}
}

func (r *AuditRepo) Append(ctx context.Context, entry *domain.AuditEntry) error {
	const query = `INSERT INTO audit_log (timestamp, action, details) VALUES (?, ?, ?)`

	ts := entry.Timestamp.UTC().Format(time.RFC3339Nano)
	_, err := r.db.ExecContext(ctx, query, ts, string(entry.Action), entry.Details)
	if err != nil {
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

func (r *AuditRepo) List(ctx context.Context) ([]domain.AuditEntry, error) {
	const query = `SELECT timestamp, action, details FROM audit_log ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.AuditEntry
	for rows.Next() {
		var (
			entry  domain.AuditEntry
			ts     string
			action string
		)
		if err := rows.Scan(&ts, &action, &entry.Details); err != nil {
			return nil, fmt.Errorf("list audit entries: %w", err)
		}
		entry.Timestamp, err = time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("parse audit timestamp: %w", err)
		}
		entry.Action = domain.AuditAction(action)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	return entries, nil
}
