package service

import (
	"context"
	"sync"

	"github.com/kar69-96/agentpay/internal/core/domain"
	"github.com/kar69-96/agentpay/internal/core/ports"
)

// In-memory repository fakes for service tests. They mirror the sqlite
// adapter's conditional-transition contract.

type memWalletRepo struct {
	mu     sync.Mutex
	wallet *domain.Wallet
}

func (r *memWalletRepo) Get(ctx context.Context) (*domain.Wallet, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.wallet == nil {
		return nil, nil
	}
	w := *r.wallet
	return &w, nil
}

func (r *memWalletRepo) Put(ctx context.Context, wallet *domain.Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	w := *wallet
	r.wallet = &w
	return nil
}

type memTxRepo struct {
	mu    sync.Mutex
	txs   map[string]*domain.Transaction
	order []string
}

func newMemTxRepo() *memTxRepo {
	return &memTxRepo{txs: make(map[string]*domain.Transaction)}
}

func (r *memTxRepo) Create(ctx context.Context, tx *domain.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *tx
	r.txs[tx.ID] = &cp
	r.order = append(r.order, tx.ID)
	return nil
}

func (r *memTxRepo) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx, ok := r.txs[id]
	if !ok {
		return nil, nil
	}
	cp := *tx
	return &cp, nil
}

func (r *memTxRepo) List(ctx context.Context) ([]domain.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Transaction
	for _, id := range r.order {
		out = append(out, *r.txs[id])
	}
	return out, nil
}

func (r *memTxRepo) ListByPending(ctx context.Context, pending bool) ([]domain.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Transaction
	for _, id := range r.order {
		tx := r.txs[id]
		if (tx.Status == domain.TransactionStatusPending) == pending {
			out = append(out, *tx)
		}
	}
	return out, nil
}

func (r *memTxRepo) transition(id string, from domain.TransactionStatus, apply func(*domain.Transaction)) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx, ok := r.txs[id]
	if !ok || tx.Status != from {
		return false, nil
	}
	apply(tx)
	return true, nil
}

func (r *memTxRepo) Approve(ctx context.Context, id string, mandate *domain.PurchaseMandate) (bool, error) {
	return r.transition(id, domain.TransactionStatusPending, func(tx *domain.Transaction) {
		tx.Status = domain.TransactionStatusApproved
		m := *mandate
		tx.Mandate = &m
	})
}

func (r *memTxRepo) Reject(ctx context.Context, id string, reason string) (bool, error) {
	return r.transition(id, domain.TransactionStatusPending, func(tx *domain.Transaction) {
		tx.Status = domain.TransactionStatusRejected
		tx.RejectionReason = reason
	})
}

func (r *memTxRepo) MarkExecuting(ctx context.Context, id string) (bool, error) {
	return r.transition(id, domain.TransactionStatusApproved, func(tx *domain.Transaction) {
		tx.Status = domain.TransactionStatusExecuting
	})
}

func (r *memTxRepo) MarkCompleted(ctx context.Context, id string, receipt *domain.Receipt) (bool, error) {
	return r.transition(id, domain.TransactionStatusExecuting, func(tx *domain.Transaction) {
		tx.Status = domain.TransactionStatusCompleted
		rc := *receipt
		tx.Receipt = &rc
	})
}

func (r *memTxRepo) MarkFailed(ctx context.Context, id string, errorMessage string) (bool, error) {
	return r.transition(id, domain.TransactionStatusExecuting, func(tx *domain.Transaction) {
		tx.Status = domain.TransactionStatusFailed
		tx.Error = errorMessage
	})
}

type memAuditRepo struct {
	mu      sync.Mutex
	entries []domain.AuditEntry
}

func (r *memAuditRepo) Append(ctx context.Context, entry *domain.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *memAuditRepo) List(ctx context.Context) ([]domain.AuditEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.AuditEntry(nil), r.entries...), nil
}

func (r *memAuditRepo) actions() []domain.AuditAction {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.AuditAction
	for _, e := range r.entries {
		out = append(out, e.Action)
	}
	return out
}

type stubCheckout struct {
	result *ports.CheckoutResult
	err    error
	calls  int
}

func (c *stubCheckout) Execute(ctx context.Context, tx *domain.Transaction, credentials *domain.BillingCredentials) (*ports.CheckoutResult, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return c.result, nil
}

var (
	_ ports.WalletRepository      = (*memWalletRepo)(nil)
	_ ports.TransactionRepository = (*memTxRepo)(nil)
	_ ports.AuditRepository       = (*memAuditRepo)(nil)
	_ ports.CheckoutExecutor      = (*stubCheckout)(nil)
)
