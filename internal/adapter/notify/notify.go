// Package notify pushes approval URLs to the configured channels: a shell
// command and/or a webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/kar69-96/agentpay/internal/core/ports"
)

const (
	methodCommand = "command"
	methodWebhook = "webhook"

	// urlPlaceholder is replaced with the public approval URL in the
	// configured shell command.
	urlPlaceholder = "{{url}}"

	deliveryTimeout = 10 * time.Second
)

type notifier struct {
	command    string
	webhookURL string
	client     *http.Client
	log        zerolog.Logger
}

// New creates a ports.Notifier. Empty command/webhookURL disable the
// respective channel.
func New(command, webhookURL string, log zerolog.Logger) ports.Notifier {
	return &notifier{
		command:    command,
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: deliveryTimeout},
		log:        log,
	}
}

// Send attempts every configured channel and reports each outcome
// separately. It never fails the handshake: a dead webhook still leaves the
// printed URL usable.
func (n *notifier) Send(ctx context.Context, payload ports.NotifyPayload) []ports.NotifyResult {
	var results []ports.NotifyResult
	if n.command != "" {
		results = append(results, n.runCommand(ctx, payload))
	}
	if n.webhookURL != "" {
		results = append(results, n.postWebhook(ctx, payload))
	}
	return results
}

func (n *notifier) runCommand(ctx context.Context, payload ports.NotifyPayload) ports.NotifyResult {
	ctx, cancel := context.WithTimeout(ctx, deliveryTimeout)
	defer cancel()

	command := strings.ReplaceAll(n.command, urlPlaceholder, payload.URL)
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	out, err := cmd.CombinedOutput()
	if err != nil {
		n.log.Warn().Err(err).Str("output", string(out)).Msg("notify command failed")
		return ports.NotifyResult{Method: methodCommand, Error: err.Error()}
	}
	return ports.NotifyResult{Method: methodCommand, Success: true}
}

func (n *notifier) postWebhook(ctx context.Context, payload ports.NotifyPayload) ports.NotifyResult {
	ctx, cancel := context.WithTimeout(ctx, deliveryTimeout)
	defer cancel()

	raw, err := json.Marshal(payload)
	if err != nil {
		return ports.NotifyResult{Method: methodWebhook, Error: err.Error()}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(raw))
	if err != nil {
		return ports.NotifyResult{Method: methodWebhook, Error: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := n.client.Do(req)
	if err != nil {
		n.log.Warn().Err(err).Str("url", n.webhookURL).Msg("webhook delivery failed")
		return ports.NotifyResult{Method: methodWebhook, Error: err.Error()}
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		err := fmt.Errorf("webhook returned status %d", res.StatusCode)
		n.log.Warn().Err(err).Str("url", n.webhookURL).Msg("webhook delivery failed")
		return ports.NotifyResult{Method: methodWebhook, Error: err.Error()}
	}
	return ports.NotifyResult{Method: methodWebhook, Success: true}
}
