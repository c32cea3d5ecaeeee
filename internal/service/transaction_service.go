package service

import (
	"context"
	"strings"
	"time"

	"github.com/kar69-96/agentpay/internal/core/domain"
	"github.com/kar69-96/agentpay/internal/core/ports"
	"github.com/kar69-96/agentpay/pkg/apperror"
)

type transactionService struct {
	txs      ports.TransactionRepository
	budget   ports.BudgetService
	keys     ports.KeyStore
	mandates ports.MandateService
	audit    ports.AuditService

	pollInterval time.Duration
	waitTimeout  time.Duration
}

// NewTransactionService creates the transaction state machine service.
// pollInterval and waitTimeout govern WaitForApproval.
func NewTransactionService(
	txs ports.TransactionRepository,
	budget ports.BudgetService,
	keys ports.KeyStore,
	mandates ports.MandateService,
	audit ports.AuditService,
	pollInterval time.Duration,
	waitTimeout time.Duration,
) ports.TransactionService {
	return &transactionService{
		txs:          txs,
		budget:       budget,
		keys:         keys,
		mandates:     mandates,
		audit:        audit,
		pollInterval: pollInterval,
		waitTimeout:  waitTimeout,
	}
}

// Propose records a new pending transaction after the budget gate. A
// proposal that passes here can still fail the re-check at execution time.
func (s *transactionService) Propose(ctx context.Context, opts domain.ProposeOptions) (*domain.Transaction, error) {
	if strings.TrimSpace(opts.Merchant) == "" {
		return nil, apperror.Validation("Merchant is required.")
	}
	if err := s.budget.CheckProposal(ctx, opts.Amount); err != nil {
		return nil, err
	}

	tx := &domain.Transaction{
		ID:          domain.NewTransactionID(),
		Status:      domain.TransactionStatusPending,
		Merchant:    opts.Merchant,
		Amount:      domain.RoundCents(opts.Amount),
		Description: opts.Description,
		URL:         opts.URL,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.txs.Create(ctx, tx); err != nil {
		return nil, apperror.InternalError(err)
	}

	s.audit.Log(ctx, domain.AuditActionPropose, map[string]interface{}{
		"txId":     tx.ID,
		"merchant": tx.Merchant,
		"amount":   tx.Amount,
	})
	return tx, nil
}

func (s *transactionService) Get(ctx context.Context, id string) (*domain.Transaction, error) {
	tx, err := s.txs.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if tx == nil {
		return nil, apperror.ErrNotFound("Transaction " + id)
	}
	return tx, nil
}

func (s *transactionService) List(ctx context.Context) ([]domain.Transaction, error) {
	txs, err := s.txs.List(ctx)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	return txs, nil
}

func (s *transactionService) Pending(ctx context.Context) ([]domain.Transaction, error) {
	txs, err := s.txs.ListByPending(ctx, true)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	return txs, nil
}

func (s *transactionService) History(ctx context.Context) ([]domain.Transaction, error) {
	txs, err := s.txs.ListByPending(ctx, false)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	return txs, nil
}

// Approve unseals the signing key with passphrase, signs a mandate over the
// transaction's exact terms and transitions pending→approved. A key-open
// failure surfaces as a VALIDATION error and leaves the transaction
// pending, so the caller may retry.
func (s *transactionService) Approve(ctx context.Context, id, passphrase string) (*domain.Transaction, error) {
	tx, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if tx.Status != domain.TransactionStatusPending {
		return nil, apperror.ErrInvalidState(id, string(tx.Status), "approve")
	}

	key, err := s.keys.LoadPrivate(passphrase)
	if err != nil {
		return nil, apperror.Validation("Failed to unlock signing key. Check your passphrase.")
	}

	mandate, err := s.mandates.Create(domain.DetailsOf(tx), key)
	if err != nil {
		return nil, err
	}

	applied, err := s.txs.Approve(ctx, id, mandate)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if !applied {
		return nil, s.staleStateError(ctx, id, "approve")
	}

	s.audit.Log(ctx, domain.AuditActionApprove, map[string]interface{}{
		"txId":   id,
		"txHash": mandate.TxHash,
	})
	return s.Get(ctx, id)
}

func (s *transactionService) Reject(ctx context.Context, id, reason string) (*domain.Transaction, error) {
	tx, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if tx.Status != domain.TransactionStatusPending {
		return nil, apperror.ErrInvalidState(id, string(tx.Status), "reject")
	}

	applied, err := s.txs.Reject(ctx, id, reason)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if !applied {
		return nil, s.staleStateError(ctx, id, "reject")
	}

	s.audit.Log(ctx, domain.AuditActionReject, map[string]interface{}{
		"txId":   id,
		"reason": reason,
	})
	return s.Get(ctx, id)
}

// WaitForApproval polls the store until the transaction leaves pending.
// The transaction itself is untouched on timeout; it simply stays pending.
func (s *transactionService) WaitForApproval(ctx context.Context, id string) (*domain.Transaction, error) {
	tx, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if tx.Status != domain.TransactionStatusPending {
		return tx, nil
	}

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()
	deadline := time.NewTimer(s.waitTimeout)
	defer deadline.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			return nil, apperror.ErrTimeout("Timed out waiting for approval of " + id + ".")
		case <-ticker.C:
			tx, err := s.Get(ctx, id)
			if err != nil {
				return nil, err
			}
			if tx.Status != domain.TransactionStatusPending {
				return tx, nil
			}
		}
	}
}

// staleStateError re-reads the record after a conditional update did not
// apply, so the error names the state that actually won the race.
func (s *transactionService) staleStateError(ctx context.Context, id, op string) error {
	tx, err := s.txs.GetByID(ctx, id)
	if err != nil || tx == nil {
		return apperror.ErrNotFound("Transaction " + id)
	}
	return apperror.ErrInvalidState(id, string(tx.Status), op)
}
