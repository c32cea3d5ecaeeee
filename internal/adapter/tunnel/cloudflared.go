// Package tunnel exposes a local port under a public HTTPS URL using a
// cloudflared quick tunnel.
package tunnel

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"time"

	"github.com/rs/zerolog"

	"github.com/kar69-96/agentpay/internal/core/ports"
	"github.com/kar69-96/agentpay/pkg/apperror"
)

// cloudflared prints the assigned quick-tunnel hostname to stderr.
var urlPattern = regexp.MustCompile(`https://[a-z0-9-]+\.trycloudflare\.com`)

type cloudflaredTunnel struct {
	binary       string
	startTimeout time.Duration
	log          zerolog.Logger
}

// NewCloudflared creates a ports.Tunnel backed by the cloudflared binary.
func NewCloudflared(binary string, startTimeout time.Duration, log zerolog.Logger) ports.Tunnel {
	return &cloudflaredTunnel{binary: binary, startTimeout: startTimeout, log: log}
}

type handle struct {
	url string
	cmd *exec.Cmd
}

func (h *handle) URL() string { return h.url }

func (h *handle) Close() {
	if h.cmd.Process != nil {
		h.cmd.Process.Kill()
	}
	h.cmd.Wait()
}

// Open starts a quick tunnel to 127.0.0.1:port and blocks until the public
// URL is scraped from cloudflared's stderr, the start timeout passes, or
// ctx is cancelled.
func (t *cloudflaredTunnel) Open(ctx context.Context, port int) (ports.TunnelHandle, error) {
	cmd := exec.Command(t.binary, "tunnel", "--url", fmt.Sprintf("http://127.0.0.1:%d", port))
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, apperror.ErrUpstreamUnavailable("Cannot start tunnel.", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, apperror.ErrUpstreamUnavailable(
			fmt.Sprintf("Cannot start %q. Is cloudflared installed?", t.binary), err)
	}

	urlCh := make(chan string, 1)
	go func() {
		scanner := bufio.NewScanner(stderr)
		found := false
		for scanner.Scan() {
			line := scanner.Text()
			if !found {
				if url := urlPattern.FindString(line); url != "" {
					found = true
					urlCh <- url
				}
			}
			// Keep draining so the child never blocks on a full pipe.
		}
	}()

	deadline := time.NewTimer(t.startTimeout)
	defer deadline.Stop()

	select {
	case url := <-urlCh:
		t.log.Info().Str("url", url).Int("port", port).Msg("tunnel established")
		return &handle{url: url, cmd: cmd}, nil
	case <-deadline.C:
		cmd.Process.Kill()
		cmd.Wait()
		return nil, apperror.ErrUpstreamUnavailable("Tunnel did not come up in time.", nil)
	case <-ctx.Done():
		cmd.Process.Kill()
		cmd.Wait()
		return nil, ctx.Err()
	}
}
