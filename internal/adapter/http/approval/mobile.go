package approval

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/kar69-96/agentpay/internal/core/domain"
	"github.com/kar69-96/agentpay/internal/core/ports"
)

// RequestMobileApproval exposes the handshake server through a public
// tunnel, pushes the URL to the configured notification channels and waits
// for the decision. The tunnel dies with the handshake on every path.
func RequestMobileApproval(
	ctx context.Context,
	srv *Server,
	tunnel ports.Tunnel,
	notifier ports.Notifier,
	audit ports.AuditService,
	log zerolog.Logger,
) (Result, error) {
	handle, err := tunnel.Open(ctx, srv.Port())
	if err != nil {
		srv.Close()
		return Result{}, err
	}
	defer handle.Close()

	publicURL := srv.ApproveURL(handle.URL())
	log.Info().Str("txId", srv.tx.ID).Str("url", publicURL).Msg("mobile approval requested")

	// Notification failures are reported, never fatal: the URL is also
	// printed, so the human can still open it by hand.
	results := notifier.Send(ctx, ports.NotifyPayload{
		URL:      publicURL,
		TxID:     srv.tx.ID,
		Merchant: srv.tx.Merchant,
		Amount:   srv.tx.Amount,
	})
	notified := make(map[string]interface{}, len(results))
	for _, res := range results {
		notified[res.Method] = res.Success
		if !res.Success {
			log.Warn().Str("method", res.Method).Str("error", res.Error).Msg("notification failed")
		}
	}

	audit.Log(ctx, domain.AuditActionMobileRequested, map[string]interface{}{
		"txId":     srv.tx.ID,
		"notified": notified,
	})

	return srv.Wait(ctx)
}
