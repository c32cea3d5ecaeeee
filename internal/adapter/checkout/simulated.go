// Package checkout holds checkout executor implementations. Real merchant
// automation plugs in behind ports.CheckoutExecutor; the simulated executor
// here completes every checkout locally.
package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/kar69-96/agentpay/internal/core/domain"
	"github.com/kar69-96/agentpay/internal/core/ports"
)

type simulatedExecutor struct {
	log zerolog.Logger
}

// NewSimulated creates a checkout executor that fabricates a confirmation
// id instead of driving a real merchant site.
func NewSimulated(log zerolog.Logger) ports.CheckoutExecutor {
	return &simulatedExecutor{log: log}
}

func (e *simulatedExecutor) Execute(ctx context.Context, tx *domain.Transaction, credentials *domain.BillingCredentials) (*ports.CheckoutResult, error) {
	if credentials == nil || credentials.Card.Number == "" {
		return nil, fmt.Errorf("no billing credentials supplied")
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(100 * time.Millisecond):
	}

	confirmation := "SIM-" + strings.ToUpper(uuid.New().String()[:8])
	e.log.Info().
		Str("txId", tx.ID).
		Str("merchant", tx.Merchant).
		Str("confirmationId", confirmation).
		Msg("simulated checkout completed")

	return &ports.CheckoutResult{Success: true, ConfirmationID: confirmation}, nil
}
