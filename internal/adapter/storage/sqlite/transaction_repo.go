package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kar69-96/agentpay/internal/core/domain"
	"github.com/kar69-96/agentpay/internal/core/ports"
)

// TransactionRepo implements ports.TransactionRepository. Status
// transitions are conditional UPDATEs guarded on the expected predecessor
// status; the affected-rows count tells the caller whether the transition
// applied.
type TransactionRepo struct {
	db *sql.DB
}

var _ ports.TransactionRepository = (*TransactionRepo)(nil)

func NewTransactionRepo(db *sql.DB) *TransactionRepo {
	return &TransactionRepo{db: db}
}

func (r *TransactionRepo) Create(ctx context.Context, tx *domain.Transaction) error {
	const query = `
		INSERT INTO transactions (id, status, merchant, amount, description, url, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	createdAt := tx.CreatedAt.UTC().Format(time.RFC3339Nano)
	_, err := r.db.ExecContext(ctx, query,
		tx.ID, string(tx.Status), tx.Merchant, tx.Amount, tx.Description, tx.URL, createdAt)
	if err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}
	return nil
}

func (r *TransactionRepo) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	const query = selectColumns + ` FROM transactions WHERE id = ?`

	tx, err := scanTransaction(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return tx, nil
}

func (r *TransactionRepo) List(ctx context.Context) ([]domain.Transaction, error) {
	const query = selectColumns + ` FROM transactions ORDER BY created_at, id`
	return r.queryMany(ctx, query)
}

func (r *TransactionRepo) ListByPending(ctx context.Context, pending bool) ([]domain.Transaction, error) {
	op := "!="
	if pending {
		op = "="
	}
	query := selectColumns + ` FROM transactions WHERE status ` + op + ` ? ORDER BY created_at, id`
	return r.queryMany(ctx, query, string(domain.TransactionStatusPending))
}

func (r *TransactionRepo) Approve(ctx context.Context, id string, mandate *domain.PurchaseMandate) (bool, error) {
	raw, err := json.Marshal(mandate)
	if err != nil {
		return false, fmt.Errorf("encode mandate: %w", err)
	}

	const query = `UPDATE transactions SET status = ?, mandate = ? WHERE id = ? AND status = ?`
	return r.transition(ctx, query,
		string(domain.TransactionStatusApproved), string(raw), id, string(domain.TransactionStatusPending))
}

func (r *TransactionRepo) Reject(ctx context.Context, id string, reason string) (bool, error) {
	const query = `UPDATE transactions SET status = ?, rejection_reason = ? WHERE id = ? AND status = ?`
	return r.transition(ctx, query,
		string(domain.TransactionStatusRejected), reason, id, string(domain.TransactionStatusPending))
}

func (r *TransactionRepo) MarkExecuting(ctx context.Context, id string) (bool, error) {
	const query = `UPDATE transactions SET status = ? WHERE id = ? AND status = ?`
	return r.transition(ctx, query,
		string(domain.TransactionStatusExecuting), id, string(domain.TransactionStatusApproved))
}

func (r *TransactionRepo) MarkCompleted(ctx context.Context, id string, receipt *domain.Receipt) (bool, error) {
	raw, err := json.Marshal(receipt)
	if err != nil {
		return false, fmt.Errorf("encode receipt: %w", err)
	}

	const query = `UPDATE transactions SET status = ?, receipt = ? WHERE id = ? AND status = ?`
	return r.transition(ctx, query,
		string(domain.TransactionStatusCompleted), string(raw), id, string(domain.TransactionStatusExecuting))
}

func (r *TransactionRepo) MarkFailed(ctx context.Context, id string, errorMessage string) (bool, error) {
	const query = `UPDATE transactions SET status = ?, error = ? WHERE id = ? AND status = ?`
	return r.transition(ctx, query,
		string(domain.TransactionStatusFailed), errorMessage, id, string(domain.TransactionStatusExecuting))
}

func (r *TransactionRepo) transition(ctx context.Context, query string, args ...any) (bool, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("update transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update transaction: %w", err)
	}
	return n > 0, nil
}

func (r *TransactionRepo) queryMany(ctx context.Context, query string, args ...any) ([]domain.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txs []domain.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("list transactions: %w", err)
		}
		txs = append(txs, *tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

const selectColumns = `SELECT id, status, merchant, amount, description, url,
	created_at, mandate, receipt, rejection_reason, error`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*domain.Transaction, error) {
	var (
		tx        domain.Transaction
		status    string
		createdAt string
		mandate   sql.NullString
		receipt   sql.NullString
		reason    sql.NullString
		errMsg    sql.NullString
	)
	err := row.Scan(&tx.ID, &status, &tx.Merchant, &tx.Amount, &tx.Description, &tx.URL,
		&createdAt, &mandate, &receipt, &reason, &errMsg)
	if err != nil {
		return nil, err
	}

	tx.Status = domain.TransactionStatus(status)
	tx.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if mandate.Valid {
		tx.Mandate = &domain.PurchaseMandate{}
		if err := json.Unmarshal([]byte(mandate.String), tx.Mandate); err != nil {
			return nil, fmt.Errorf("decode mandate: %w", err)
		}
	}
	if receipt.Valid {
		tx.Receipt = &domain.Receipt{}
		if err := json.Unmarshal([]byte(receipt.String), tx.Receipt); err != nil {
			return nil, fmt.Errorf("decode receipt: %w", err)
		}
	}
	tx.RejectionReason = reason.String
	tx.Error = errMsg.String
	return &tx, nil
}
