package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// PurchaseMandate is a signed, hash-bound authorization artifact proving a
// human approved one specific transaction's exact terms. One mandate exists
// per transaction, created exactly once on approval, immutable thereafter.
type PurchaseMandate struct {
	TxID      string    `json:"txId"`
	TxHash    string    `json:"txHash"`
	Signature string    `json:"signature"` // base64 Ed25519 signature over the hash bytes
	PublicKey string    `json:"publicKey"` // PKIX PEM
	Timestamp time.Time `json:"timestamp"`
}

// TransactionDetails are the authorization-relevant fields a mandate binds
// to. Changing any of them after signing invalidates the mandate.
type TransactionDetails struct {
	TxID        string  `json:"txId"`
	Merchant    string  `json:"merchant"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
	Timestamp   string  `json:"timestamp"`
}

// DetailsOf extracts the mandate-relevant fields from a transaction.
func DetailsOf(tx *Transaction) TransactionDetails {
	return TransactionDetails{
		TxID:        tx.ID,
		Merchant:    tx.Merchant,
		Amount:      tx.Amount,
		Description: tx.Description,
		Timestamp:   tx.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

// CanonicalHash returns the lowercase hex SHA-256 digest of the canonical
// encoding of the details. Field order is fixed by the struct declaration,
// so two byte-identical details always hash identically.
func (d TransactionDetails) CanonicalHash() string {
	canonical, err := json.Marshal(d)
	if err != nil {
		// All fields are plain strings and a float; Marshal cannot fail.
		panic("domain: marshaling transaction details: " + err.Error())
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:])
}
