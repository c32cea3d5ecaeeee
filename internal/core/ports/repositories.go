package ports

import (
	"context"

	"github.com/kar69-96/agentpay/internal/core/domain"
)

// WalletRepository defines persistence for the single wallet record.
// Get returns (nil, nil) when no wallet has been initialized yet.
type WalletRepository interface {
	Get(ctx context.Context) (*domain.Wallet, error)
	// Put creates or replaces the wallet record as one atomic write.
	Put(ctx context.Context, wallet *domain.Wallet) error
}

// TransactionRepository defines persistence for transactions. Status
// transitions are conditional updates: they apply only when the stored
// status equals the expected predecessor, and report whether they applied,
// so a record can never be half-updated by a lost race.
type TransactionRepository interface {
	Create(ctx context.Context, tx *domain.Transaction) error
	GetByID(ctx context.Context, id string) (*domain.Transaction, error)
	List(ctx context.Context) ([]domain.Transaction, error)
	ListByPending(ctx context.Context, pending bool) ([]domain.Transaction, error)

	Approve(ctx context.Context, id string, mandate *domain.PurchaseMandate) (applied bool, err error)
	Reject(ctx context.Context, id string, reason string) (applied bool, err error)
	MarkExecuting(ctx context.Context, id string) (applied bool, err error)
	MarkCompleted(ctx context.Context, id string, receipt *domain.Receipt) (applied bool, err error)
	MarkFailed(ctx context.Context, id string, errorMessage string) (applied bool, err error)
}

// AuditRepository defines persistence for the append-only audit trail.
type AuditRepository interface {
	Append(ctx context.Context, entry *domain.AuditEntry) error
	List(ctx context.Context) ([]domain.AuditEntry, error)
}
