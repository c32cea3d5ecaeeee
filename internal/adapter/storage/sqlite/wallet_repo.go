package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kar69-96/agentpay/internal/core/domain"
	"github.com/kar69-96/agentpay/internal/core/ports"
)

// WalletRepo implements ports.WalletRepository over the single-row wallet
// table.
type WalletRepo struct {
	db *sql.DB
}

var _ ports.WalletRepository = (*WalletRepo)(nil)

func NewWalletRepo(db *sql.DB) *WalletRepo {
	return &WalletRepo{db: db}
}

func (r *WalletRepo) Get(ctx context.Context) (*domain.Wallet, error) {
	const query = `SELECT budget, balance, limit_per_tx, spent FROM wallet WHERE id = 1`

	var w domain.Wallet
	err := r.db.QueryRowContext(ctx, query).Scan(&w.Budget, &w.Balance, &w.LimitPerTx, &w.Spent)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get wallet: %w", err)
	}
	return &w, nil
}

func (r *WalletRepo) Put(ctx context.Context, wallet *domain.Wallet) error {
	const query = `
		INSERT INTO wallet (id, budget, balance, limit_per_tx, spent)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			budget = excluded.budget,
			balance = excluded.balance,
			limit_per_tx = excluded.limit_per_tx,
			spent = excluded.spent`

	_, err := r.db.ExecContext(ctx, query, wallet.Budget, wallet.Balance, wallet.LimitPerTx, wallet.Spent)
	if err != nil {
		return fmt.Errorf("put wallet: %w", err)
	}
	return nil
}
