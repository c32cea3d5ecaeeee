package approval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kar69-96/agentpay/internal/core/domain"
	"github.com/kar69-96/agentpay/internal/core/ports"
	"github.com/kar69-96/agentpay/pkg/apperror"
)

// fakeTxService implements just enough of ports.TransactionService for the
// handshake: Approve fails like a key-open failure for one passphrase and
// transitions the held transaction otherwise.
type fakeTxService struct {
	mu sync.Mutex
	tx *domain.Transaction
}

func newFakeTxService(tx *domain.Transaction) *fakeTxService {
	cp := *tx
	return &fakeTxService{tx: &cp}
}

func (f *fakeTxService) Approve(ctx context.Context, id, passphrase string) (*domain.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if id != f.tx.ID {
		return nil, apperror.ErrNotFound("Transaction " + id)
	}
	if f.tx.Status != domain.TransactionStatusPending {
		return nil, apperror.ErrInvalidState(id, string(f.tx.Status), "approve")
	}
	if passphrase != "hunter2" {
		return nil, apperror.Validation("Failed to unlock signing key. Check your passphrase.")
	}
	f.tx.Status = domain.TransactionStatusApproved
	cp := *f.tx
	return &cp, nil
}

func (f *fakeTxService) Reject(ctx context.Context, id, reason string) (*domain.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tx.Status != domain.TransactionStatusPending {
		return nil, apperror.ErrInvalidState(id, string(f.tx.Status), "reject")
	}
	f.tx.Status = domain.TransactionStatusRejected
	f.tx.RejectionReason = reason
	cp := *f.tx
	return &cp, nil
}

func (f *fakeTxService) status() domain.TransactionStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tx.Status
}

func (f *fakeTxService) Propose(ctx context.Context, opts domain.ProposeOptions) (*domain.Transaction, error) {
	panic("not used")
}
func (f *fakeTxService) Get(ctx context.Context, id string) (*domain.Transaction, error) {
	panic("not used")
}
func (f *fakeTxService) List(ctx context.Context) ([]domain.Transaction, error) { panic("not used") }
func (f *fakeTxService) Pending(ctx context.Context) ([]domain.Transaction, error) {
	panic("not used")
}
func (f *fakeTxService) History(ctx context.Context) ([]domain.Transaction, error) {
	panic("not used")
}
func (f *fakeTxService) WaitForApproval(ctx context.Context, id string) (*domain.Transaction, error) {
	panic("not used")
}

var _ ports.TransactionService = (*fakeTxService)(nil)

func pendingTx() *domain.Transaction {
	return &domain.Transaction{
		ID:          "tx_0a0b0c0d",
		Status:      domain.TransactionStatusPending,
		Merchant:    "Acme Corp",
		Amount:      49.99,
		Description: "mechanical keyboard",
		CreatedAt:   time.Now().UTC(),
	}
}

func startServer(t *testing.T, txSvc ports.TransactionService, timeout time.Duration) *Server {
	t.Helper()
	srv := NewServer(pendingTx(), txSvc, timeout, zerolog.Nop())
	require.NoError(t, srv.Start())
	t.Cleanup(srv.Close)
	return srv
}

func postDecision(t *testing.T, srv *Server, path string, body map[string]string) (*http.Response, map[string]interface{}) {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	url := fmt.Sprintf("http://127.0.0.1:%d%s", srv.Port(), path)
	res, err := http.Post(url, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	defer res.Body.Close()
	var payload map[string]interface{}
	json.NewDecoder(res.Body).Decode(&payload)
	return res, payload
}

func TestApproveHappyPath(t *testing.T) {
	txSvc := newFakeTxService(pendingTx())
	srv := startServer(t, txSvc, time.Minute)

	page, err := http.Get(srv.URL())
	require.NoError(t, err)
	defer page.Body.Close()
	assert.Equal(t, http.StatusOK, page.StatusCode)
	html, _ := io.ReadAll(page.Body)
	assert.Contains(t, string(html), "Acme Corp")
	assert.Contains(t, string(html), "49.99")

	res, _ := postDecision(t, srv, "/api/approve", map[string]string{
		"token": srv.token, "passphrase": "hunter2",
	})
	assert.Equal(t, http.StatusOK, res.StatusCode)

	result, err := srv.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DecisionApproved, result.Decision)
	assert.Equal(t, "hunter2", result.Passphrase, "the caller needs the entered passphrase to execute right away")
	assert.Equal(t, domain.TransactionStatusApproved, txSvc.status())
}

func TestRejectHappyPath(t *testing.T) {
	txSvc := newFakeTxService(pendingTx())
	srv := startServer(t, txSvc, time.Minute)

	res, _ := postDecision(t, srv, "/api/reject", map[string]string{
		"token": srv.token, "reason": "too expensive",
	})
	assert.Equal(t, http.StatusOK, res.StatusCode)

	result, err := srv.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DecisionRejected, result.Decision)
	assert.Equal(t, "too expensive", result.Reason)
	assert.Empty(t, result.Passphrase)
	assert.Equal(t, domain.TransactionStatusRejected, txSvc.status())
}

func TestInvalidTokenIsForbidden(t *testing.T) {
	txSvc := newFakeTxService(pendingTx())
	srv := startServer(t, txSvc, time.Minute)

	res, _ := postDecision(t, srv, "/api/approve", map[string]string{
		"token": "0000", "passphrase": "hunter2",
	})
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
	assert.Equal(t, domain.TransactionStatusPending, txSvc.status())

	t.Run("page rejects a bad token too", func(t *testing.T) {
		page, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/approve/%s?token=bogus", srv.Port(), "tx_0a0b0c0d"))
		require.NoError(t, err)
		defer page.Body.Close()
		assert.Equal(t, http.StatusForbidden, page.StatusCode)
	})

	t.Run("unknown transaction id", func(t *testing.T) {
		page, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/approve/tx_ffffffff?token=%s", srv.Port(), srv.token))
		require.NoError(t, err)
		defer page.Body.Close()
		assert.Equal(t, http.StatusNotFound, page.StatusCode)
	})
}

func TestTokenIsSingleUse(t *testing.T) {
	txSvc := newFakeTxService(pendingTx())
	srv := startServer(t, txSvc, time.Minute)

	res, _ := postDecision(t, srv, "/api/approve", map[string]string{
		"token": srv.token, "passphrase": "hunter2",
	})
	require.Equal(t, http.StatusOK, res.StatusCode)

	res, _ = postDecision(t, srv, "/api/reject", map[string]string{
		"token": srv.token, "reason": "changed my mind",
	})
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
	assert.Equal(t, domain.TransactionStatusApproved, txSvc.status())
}

func TestWrongPassphraseIsRetryableOnSameToken(t *testing.T) {
	txSvc := newFakeTxService(pendingTx())
	srv := startServer(t, txSvc, time.Minute)

	res, payload := postDecision(t, srv, "/api/approve", map[string]string{
		"token": srv.token, "passphrase": "wrong",
	})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Equal(t, apperror.CodeValidation, payload["error_code"])
	assert.Equal(t, domain.TransactionStatusPending, txSvc.status())

	res, _ = postDecision(t, srv, "/api/approve", map[string]string{
		"token": srv.token, "passphrase": "hunter2",
	})
	assert.Equal(t, http.StatusOK, res.StatusCode)

	result, err := srv.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DecisionApproved, result.Decision)
}

func TestNonPendingTransactionIsBadRequest(t *testing.T) {
	tx := pendingTx()
	tx.Status = domain.TransactionStatusRejected
	txSvc := newFakeTxService(tx)
	srv := startServer(t, txSvc, time.Minute)

	res, payload := postDecision(t, srv, "/api/approve", map[string]string{
		"token": srv.token, "passphrase": "hunter2",
	})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Equal(t, apperror.CodeInvalidState, payload["error_code"])

	// The state error consumed the token.
	res, _ = postDecision(t, srv, "/api/approve", map[string]string{
		"token": srv.token, "passphrase": "hunter2",
	})
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
}

func TestTimeoutLeavesTransactionPending(t *testing.T) {
	txSvc := newFakeTxService(pendingTx())
	srv := startServer(t, txSvc, 50*time.Millisecond)

	_, err := srv.Wait(context.Background())
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.CodeTimeout))
	assert.Equal(t, domain.TransactionStatusPending, txSvc.status())

	// The listener is gone with the token.
	_, err = http.Get(srv.URL())
	assert.Error(t, err)
}

func TestOversizedBodyRejected(t *testing.T) {
	txSvc := newFakeTxService(pendingTx())
	srv := startServer(t, txSvc, time.Minute)

	big := map[string]string{"token": srv.token, "passphrase": string(make([]byte, 8192))}
	res, _ := postDecision(t, srv, "/api/approve", big)
	assert.NotEqual(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, domain.TransactionStatusPending, txSvc.status())
}
