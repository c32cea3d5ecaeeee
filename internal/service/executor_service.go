package service

import (
	"context"
	"time"

	"github.com/kar69-96/agentpay/internal/core/domain"
	"github.com/kar69-96/agentpay/internal/core/ports"
	"github.com/kar69-96/agentpay/pkg/apperror"
)

// Executor drives an approved transaction through checkout. It is the only
// code path that sees decrypted billing credentials, and it never persists
// or logs them.
type Executor struct {
	txs      ports.TransactionRepository
	vault    ports.VaultService
	keys     ports.KeyStore
	mandates ports.MandateService
	budget   ports.BudgetService
	checkout ports.CheckoutExecutor
	audit    ports.AuditService
}

func NewExecutor(
	txs ports.TransactionRepository,
	vault ports.VaultService,
	keys ports.KeyStore,
	mandates ports.MandateService,
	budget ports.BudgetService,
	checkout ports.CheckoutExecutor,
	audit ports.AuditService,
) *Executor {
	return &Executor{
		txs:      txs,
		vault:    vault,
		keys:     keys,
		mandates: mandates,
		budget:   budget,
		checkout: checkout,
		audit:    audit,
	}
}

// Execute runs approved→executing→completed/failed. Gates before
// markExecuting (mandate, budget, vault) leave the transaction approved and
// retryable; once executing, any checkout failure is terminal.
func (e *Executor) Execute(ctx context.Context, txID, passphrase string) (*domain.Transaction, error) {
	tx, err := e.txs.GetByID(ctx, txID)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if tx == nil {
		return nil, apperror.ErrNotFound("Transaction " + txID)
	}
	if tx.Status != domain.TransactionStatusApproved {
		return nil, apperror.ErrInvalidState(txID, string(tx.Status), "execute")
	}
	if tx.Mandate == nil {
		return nil, apperror.ErrInvalidMandate("Transaction has no purchase mandate.")
	}

	// The mandate must verify against the setup-time key on disk, not
	// just the key it embeds.
	pinned, err := e.keys.LoadPublic()
	if err != nil {
		return nil, apperror.ErrInvalidMandate("Cannot load the pinned public key.")
	}
	if !e.mandates.VerifyPinned(tx.Mandate, domain.DetailsOf(tx), pinned) {
		return nil, apperror.ErrInvalidMandate("")
	}

	// Balance may have shrunk since approval.
	if err := e.budget.CheckProposal(ctx, tx.Amount); err != nil {
		return nil, err
	}

	vault, err := e.vault.Load()
	if err != nil {
		return nil, err
	}
	credentials, err := e.vault.Decrypt(vault, passphrase)
	if err != nil {
		return nil, err
	}

	applied, err := e.txs.MarkExecuting(ctx, txID)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if !applied {
		return nil, apperror.ErrInvalidState(txID, string(tx.Status), "execute")
	}
	e.audit.Log(ctx, domain.AuditActionExecute, map[string]interface{}{
		"txId":     txID,
		"merchant": tx.Merchant,
		"amount":   tx.Amount,
	})

	result, err := e.checkout.Execute(ctx, tx, credentials)
	if err != nil {
		return nil, e.fail(ctx, txID, apperror.ErrCheckoutFailed(err))
	}
	if !result.Success {
		return nil, e.fail(ctx, txID, apperror.ErrCheckoutFailed(nil))
	}

	receipt := &domain.Receipt{
		ID:             domain.ReceiptIDFor(txID),
		Merchant:       tx.Merchant,
		Amount:         tx.Amount,
		ConfirmationID: result.ConfirmationID,
		CompletedAt:    time.Now().UTC(),
	}
	if _, err := e.txs.MarkCompleted(ctx, txID, receipt); err != nil {
		return nil, apperror.InternalError(err)
	}
	if err := e.budget.DeductBalance(ctx, tx.Amount); err != nil {
		return nil, err
	}
	e.audit.Log(ctx, domain.AuditActionComplete, map[string]interface{}{
		"txId":           txID,
		"receiptId":      receipt.ID,
		"confirmationId": receipt.ConfirmationID,
		"amount":         receipt.Amount,
	})

	tx, err = e.txs.GetByID(ctx, txID)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	return tx, nil
}

// fail transitions executing→failed and records the failure; the original
// error is always what propagates to the caller.
func (e *Executor) fail(ctx context.Context, txID string, cause error) error {
	message := ""
	if cause != nil {
		message = cause.Error()
	}
	if _, err := e.txs.MarkFailed(ctx, txID, message); err != nil {
		return apperror.InternalError(err)
	}
	e.audit.Log(ctx, domain.AuditActionFailed, map[string]interface{}{
		"txId":  txID,
		"error": message,
	})
	return cause
}
