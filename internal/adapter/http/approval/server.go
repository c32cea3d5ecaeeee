// Package approval implements the single-use HTTP approval handshake: an
// ephemeral loopback server that shows one pending transaction, accepts one
// decision, and dies.
package approval

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/kar69-96/agentpay/internal/adapter/http/middleware"
	"github.com/kar69-96/agentpay/internal/core/domain"
	"github.com/kar69-96/agentpay/internal/core/ports"
	"github.com/kar69-96/agentpay/pkg/apperror"
	"github.com/kar69-96/agentpay/pkg/response"
)

// Decision is the human's verdict on one transaction.
type Decision string

const (
	DecisionApproved Decision = "approved"
	DecisionRejected Decision = "rejected"
)

// Result is what the handshake resolves to. Passphrase is the secret the
// approver entered, carried back so the caller can execute immediately
// without prompting again. It must never reach a log or the audit trail.
type Result struct {
	Decision   Decision
	Passphrase string
	Reason     string
}

const (
	tokenBytes  = 32
	maxBodySize = 4096
)

// Server hosts the approval page for exactly one transaction. It binds to
// an ephemeral loopback port; the capability to decide is the URL itself,
// so the token never outlives the listener.
type Server struct {
	tx      *domain.Transaction
	txSvc   ports.TransactionService
	log     zerolog.Logger
	timeout time.Duration

	token    string
	listener net.Listener
	srv      *http.Server
	timer    *time.Timer

	// mu serializes every decision attempt; used marks the token spent.
	mu   sync.Mutex
	used bool

	resolveOnce sync.Once
	resultCh    chan Result
	timedOut    chan struct{}
}

// NewServer creates a handshake server for tx. Start must be called before
// URL or Wait.
func NewServer(tx *domain.Transaction, txSvc ports.TransactionService, timeout time.Duration, log zerolog.Logger) *Server {
	return &Server{
		tx:       tx,
		txSvc:    txSvc,
		log:      log,
		timeout:  timeout,
		resultCh: make(chan Result, 1),
		timedOut: make(chan struct{}),
	}
}

// Start generates the token, binds the loopback listener and arms the
// timeout timer.
func (s *Server) Start() error {
	raw := make([]byte, tokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return apperror.InternalError(fmt.Errorf("generating approval token: %w", err))
	}
	s.token = hex.EncodeToString(raw)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return apperror.InternalError(fmt.Errorf("binding approval listener: %w", err))
	}
	s.listener = ln

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(middleware.Recovery(s.log))
	r.Use(middleware.RequestLogger(s.log))
	r.Use(middleware.MaxBodySize(maxBodySize))

	r.GET("/approve/:txID", s.handlePage)
	r.POST("/api/approve", s.handleApprove)
	r.POST("/api/reject", s.handleReject)

	s.srv = &http.Server{Handler: r}
	go func() {
		if err := s.srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.log.Error().Err(err).Msg("approval server stopped")
		}
	}()

	s.timer = time.AfterFunc(s.timeout, s.expire)
	s.log.Debug().Str("txId", s.tx.ID).Int("port", s.Port()).Msg("approval server listening")
	return nil
}

// Port returns the bound loopback port.
func (s *Server) Port() int {
	return s.listener.Addr().(*net.TCPAddr).Port
}

// URL returns the local approval page URL, token included.
func (s *Server) URL() string {
	return s.ApproveURL(fmt.Sprintf("http://127.0.0.1:%d", s.Port()))
}

// ApproveURL builds the approval page URL against an arbitrary base, e.g. a
// public tunnel hostname.
func (s *Server) ApproveURL(base string) string {
	return fmt.Sprintf("%s/approve/%s?token=%s", base, s.tx.ID, s.token)
}

// Wait blocks until a decision, the timeout, or ctx. On timeout the
// transaction is untouched and the error carries the TIMEOUT code.
func (s *Server) Wait(ctx context.Context) (Result, error) {
	select {
	case <-ctx.Done():
		s.Close()
		return Result{}, ctx.Err()
	case <-s.timedOut:
		return Result{}, apperror.ErrTimeout("Approval window expired. Transaction " + s.tx.ID + " is still pending.")
	case res := <-s.resultCh:
		return res, nil
	}
}

// Close tears the server down without resolving a decision. Safe to call
// more than once.
func (s *Server) Close() {
	if s.timer != nil {
		s.timer.Stop()
	}
	s.shutdown()
}

// expire and resolve share one sync.Once, so a decision racing the timer
// resolves exactly one way.
func (s *Server) expire() {
	s.resolveOnce.Do(func() {
		s.log.Info().Str("txId", s.tx.ID).Msg("approval window expired")
		close(s.timedOut)
		s.shutdown()
	})
}

func (s *Server) resolve(res Result) {
	s.resolveOnce.Do(func() {
		s.timer.Stop()
		s.resultCh <- res
		// Shut down off the handler goroutine so the response flushes.
		go s.shutdown()
	})
}

func (s *Server) shutdown() {
	if s.srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(ctx); err != nil {
		s.srv.Close()
	}
}

func (s *Server) tokenValid(token string) bool {
	return subtle.ConstantTimeCompare([]byte(token), []byte(s.token)) == 1
}

func (s *Server) handlePage(c *gin.Context) {
	if c.Param("txID") != s.tx.ID {
		c.String(http.StatusNotFound, "unknown transaction")
		return
	}
	// Viewing the page does not consume the token; only a decision does.
	s.mu.Lock()
	ok := s.tokenValid(c.Query("token")) && !s.used
	s.mu.Unlock()
	if !ok {
		c.String(http.StatusForbidden, "invalid or already used approval link")
		return
	}
	renderPage(c, s.tx, s.token)
}

type decisionRequest struct {
	Token      string `json:"token" binding:"required"`
	Passphrase string `json:"passphrase"`
	Reason     string `json:"reason"`
}

// handleApprove consumes the token, signs the mandate and resolves the
// handshake. The token is marked used before the key is unsealed and
// un-marked only when the key fails to open, so a mistyped passphrase is
// retryable on the same link while everything else stays single-use.
func (s *Server) handleApprove(c *gin.Context) {
	var req decisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorStatus(c, http.StatusBadRequest, apperror.Validation("token is required"))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.tokenValid(req.Token) || s.used {
		response.ErrorStatus(c, http.StatusForbidden, apperror.Validation("Invalid or already used approval token."))
		return
	}
	s.used = true

	tx, err := s.txSvc.Approve(c.Request.Context(), s.tx.ID, req.Passphrase)
	if err != nil {
		if apperror.Is(err, apperror.CodeValidation) {
			// Key did not open; give the token back.
			s.used = false
		}
		response.ErrorStatus(c, http.StatusBadRequest, err)
		return
	}

	response.OK(c, gin.H{"txId": tx.ID, "status": tx.Status})
	s.resolve(Result{Decision: DecisionApproved, Passphrase: req.Passphrase})
}

func (s *Server) handleReject(c *gin.Context) {
	var req decisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorStatus(c, http.StatusBadRequest, apperror.Validation("token is required"))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.tokenValid(req.Token) || s.used {
		response.ErrorStatus(c, http.StatusForbidden, apperror.Validation("Invalid or already used approval token."))
		return
	}
	s.used = true

	tx, err := s.txSvc.Reject(c.Request.Context(), s.tx.ID, req.Reason)
	if err != nil {
		response.ErrorStatus(c, http.StatusBadRequest, err)
		return
	}

	response.OK(c, gin.H{"txId": tx.ID, "status": tx.Status})
	s.resolve(Result{Decision: DecisionRejected, Reason: req.Reason})
}
