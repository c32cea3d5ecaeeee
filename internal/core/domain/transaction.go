package domain

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"
)

// TransactionStatus represents the lifecycle state of a purchase proposal.
type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusApproved  TransactionStatus = "approved"
	TransactionStatusRejected  TransactionStatus = "rejected"
	TransactionStatusExecuting TransactionStatus = "executing"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
)

// Transaction is one proposed purchase and everything that happened to it.
// Records are append-style: they are never deleted individually, only the
// whole store can be wiped.
type Transaction struct {
	ID              string            `json:"id"`
	Status          TransactionStatus `json:"status"`
	Merchant        string            `json:"merchant"`
	Amount          float64           `json:"amount"`
	Description     string            `json:"description"`
	URL             string            `json:"url"`
	CreatedAt       time.Time         `json:"createdAt"`
	Mandate         *PurchaseMandate  `json:"mandate,omitempty"`
	Receipt         *Receipt          `json:"receipt,omitempty"`
	RejectionReason string            `json:"rejectionReason,omitempty"`
	Error           string            `json:"error,omitempty"`
}

// IsTerminal returns true if the transaction can never change again.
func (t *Transaction) IsTerminal() bool {
	return t.Status == TransactionStatusRejected ||
		t.Status == TransactionStatusCompleted ||
		t.Status == TransactionStatusFailed
}

// Receipt records a completed checkout.
type Receipt struct {
	ID             string    `json:"id"`
	Merchant       string    `json:"merchant"`
	Amount         float64   `json:"amount"`
	ConfirmationID string    `json:"confirmationId"`
	CompletedAt    time.Time `json:"completedAt"`
}

// ProposeOptions are the caller-supplied fields of a new proposal.
type ProposeOptions struct {
	Merchant    string
	Amount      float64
	Description string
	URL         string
}

const txIDPrefix = "tx_"

// NewTransactionID returns a short random id, prefixed to distinguish
// transactions from other entity ids.
func NewTransactionID() string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		panic("domain: reading random bytes: " + err.Error())
	}
	return txIDPrefix + hex.EncodeToString(b)
}

// ReceiptIDFor derives the receipt id from a transaction id.
func ReceiptIDFor(txID string) string {
	return "rcpt_" + strings.TrimPrefix(txID, txIDPrefix)
}
