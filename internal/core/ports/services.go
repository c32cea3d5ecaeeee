package ports

import (
	"context"
	"crypto/ed25519"

	"github.com/kar69-96/agentpay/internal/core/domain"
)

// VaultService envelope-encrypts the billing credentials document with a
// human-supplied passphrase.
type VaultService interface {
	Encrypt(credentials *domain.BillingCredentials, passphrase string) (*domain.EncryptedVault, error)
	// Decrypt fails with a single opaque DECRYPT_FAILED error on any
	// failure: wrong passphrase, corrupted ciphertext, tampered tag.
	Decrypt(vault *domain.EncryptedVault, passphrase string) (*domain.BillingCredentials, error)
	Save(vault *domain.EncryptedVault) error
	// Load fails with NOT_SETUP when no vault exists.
	Load() (*domain.EncryptedVault, error)
	Exists() bool
}

// KeyStore manages the Ed25519 signing key pair. The private key is sealed
// at rest with the vault passphrase (independent encryption, not the vault
// ciphertext).
type KeyStore interface {
	Generate(passphrase string) error
	// LoadPrivate fails with a generic key-open error on a wrong
	// passphrase; this is deliberately not DECRYPT_FAILED, which is
	// reserved for the vault.
	LoadPrivate(passphrase string) (ed25519.PrivateKey, error)
	LoadPublic() (ed25519.PublicKey, error)
}

// MandateService creates and verifies purchase mandates.
type MandateService interface {
	Create(details domain.TransactionDetails, key ed25519.PrivateKey) (*domain.PurchaseMandate, error)
	// Verify never returns an error; any parse or format problem is a
	// verification failure.
	Verify(mandate *domain.PurchaseMandate, details domain.TransactionDetails) bool
	// VerifyPinned additionally requires the mandate's embedded key to
	// equal the pinned setup-time public key.
	VerifyPinned(mandate *domain.PurchaseMandate, details domain.TransactionDetails, pinned ed25519.PublicKey) bool
}

// BudgetService enforces total and per-transaction spend limits.
type BudgetService interface {
	InitWallet(ctx context.Context, budget, limitPerTx float64) error
	Balance(ctx context.Context) (*domain.Wallet, error)
	CheckProposal(ctx context.Context, amount float64) error
	DeductBalance(ctx context.Context, amount float64) error
	AddFunds(ctx context.Context, amount float64) (*domain.Wallet, error)
	SetBudget(ctx context.Context, budget float64) error
	SetLimitPerTx(ctx context.Context, limit float64) error
}

// TransactionService drives the transaction state machine. Approve signs a
// purchase mandate with the key unsealed by passphrase; Reject needs no
// credential.
type TransactionService interface {
	Propose(ctx context.Context, opts domain.ProposeOptions) (*domain.Transaction, error)
	Get(ctx context.Context, id string) (*domain.Transaction, error)
	List(ctx context.Context) ([]domain.Transaction, error)
	Pending(ctx context.Context) ([]domain.Transaction, error)
	History(ctx context.Context) ([]domain.Transaction, error)
	Approve(ctx context.Context, id, passphrase string) (*domain.Transaction, error)
	Reject(ctx context.Context, id, reason string) (*domain.Transaction, error)
	// WaitForApproval polls until the transaction leaves pending, or
	// fails with TIMEOUT when the deadline passes first.
	WaitForApproval(ctx context.Context, id string) (*domain.Transaction, error)
}

// AuditService records audited actions. Implementations must never log or
// persist a passphrase.
type AuditService interface {
	Log(ctx context.Context, action domain.AuditAction, details map[string]interface{})
	Entries(ctx context.Context) ([]domain.AuditEntry, error)
}

// CheckoutResult is the executor's report of one checkout attempt.
type CheckoutResult struct {
	Success        bool
	ConfirmationID string
}

// CheckoutExecutor completes a checkout on the merchant site given the
// transaction and the decrypted credentials. External collaborator; the
// core only awaits it between executing and completed/failed.
type CheckoutExecutor interface {
	Execute(ctx context.Context, tx *domain.Transaction, credentials *domain.BillingCredentials) (*CheckoutResult, error)
}

// TunnelHandle is an open public tunnel to a local port.
type TunnelHandle interface {
	URL() string
	Close()
}

// Tunnel exposes a local port under a public HTTPS URL. Mobile variant
// only. Failures must surface as UPSTREAM_UNAVAILABLE.
type Tunnel interface {
	Open(ctx context.Context, port int) (TunnelHandle, error)
}

// NotifyPayload is sent to each configured notification channel.
type NotifyPayload struct {
	URL      string  `json:"url"`
	TxID     string  `json:"txId"`
	Merchant string  `json:"merchant"`
	Amount   float64 `json:"amount"`
}

// NotifyResult reports one delivery attempt.
type NotifyResult struct {
	Method  string `json:"method"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Notifier dispatches the approval URL through the configured channels.
// Each configured method is attempted independently; one failing must not
// block the others or the handshake.
type Notifier interface {
	Send(ctx context.Context, payload NotifyPayload) []NotifyResult
}
