package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/kar69-96/agentpay/internal/core/domain"
	"github.com/kar69-96/agentpay/internal/core/ports"
)

type auditService struct {
	repo ports.AuditRepository
	log  zerolog.Logger
}

// NewAuditService creates the audit trail service. Entries are persisted
// synchronously and mirrored to the logger. Callers must never put a
// passphrase or decrypted credential into details.
func NewAuditService(repo ports.AuditRepository, log zerolog.Logger) ports.AuditService {
	return &auditService{repo: repo, log: log}
}

// Log records an audit entry. Persistence failures are logged, not
// returned: an unrecordable audit line must not abort the action itself.
func (s *auditService) Log(ctx context.Context, action domain.AuditAction, details map[string]interface{}) {
	raw, err := json.Marshal(details)
	if err != nil {
		s.log.Warn().Err(err).Str("action", string(action)).Msg("failed to encode audit details")
		raw = []byte("{}")
	}

	s.log.Info().
		Str("action", string(action)).
		RawJSON("details", raw).
		Msg("audit")

	entry := &domain.AuditEntry{
		Timestamp: time.Now().UTC(),
		Action:    action,
		Details:   string(raw),
	}
	if err := s.repo.Append(ctx, entry); err != nil {
		s.log.Warn().Err(err).Str("action", string(action)).Msg("failed to persist audit entry")
	}
}

func (s *auditService) Entries(ctx context.Context) ([]domain.AuditEntry, error) {
	return s.repo.List(ctx)
}
