package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 5*time.Minute, cfg.Approval.Timeout)
	assert.Equal(t, 2*time.Second, cfg.Approval.PollInterval)
	assert.Equal(t, "cloudflared", cfg.Tunnel.Binary)
	assert.Equal(t, 15*time.Second, cfg.Tunnel.StartTimeout)
	assert.False(t, cfg.Mobile.Enabled)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Log.Pretty)
	assert.NotEmpty(t, cfg.Home)
}

func TestLoad_FromYAMLFile(t *testing.T) {
	content := []byte(`
home: "/tmp/agentpay-test"
approval:
  timeout: "30s"
  poll_interval: "500ms"
notify:
  command: "notify-send {{url}}"
  webhook_url: "https://hooks.example.com/approve"
tunnel:
  binary: "/usr/local/bin/cloudflared"
  start_timeout: "5s"
mobile:
  enabled: true
log:
  level: "debug"
  pretty: true
`)
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, content, 0644))

	cfg, err := Load(cfgPath)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/agentpay-test", cfg.Home)
	assert.Equal(t, 30*time.Second, cfg.Approval.Timeout)
	assert.Equal(t, 500*time.Millisecond, cfg.Approval.PollInterval)
	assert.Equal(t, "notify-send {{url}}", cfg.Notify.Command)
	assert.Equal(t, "https://hooks.example.com/approve", cfg.Notify.WebhookURL)
	assert.Equal(t, "/usr/local/bin/cloudflared", cfg.Tunnel.Binary)
	assert.Equal(t, 5*time.Second, cfg.Tunnel.StartTimeout)
	assert.True(t, cfg.Mobile.Enabled)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.Pretty)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("AGENTPAY_HOME", "/tmp/env-home")
	t.Setenv("AGENTPAY_NOTIFY_COMMAND", "curl -s {{url}}")
	t.Setenv("AGENTPAY_MOBILE_ENABLED", "true")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "/tmp/env-home", cfg.Home)
	assert.Equal(t, "curl -s {{url}}", cfg.Notify.Command)
	assert.True(t, cfg.Mobile.Enabled)
}

func TestDerivedPaths(t *testing.T) {
	cfg := &Config{Home: "/data/agentpay"}

	assert.Equal(t, "/data/agentpay/agentpay.db", cfg.DatabasePath())
	assert.Equal(t, "/data/agentpay/credentials.enc", cfg.VaultPath())
	assert.Equal(t, "/data/agentpay/keys", cfg.KeysDir())
	assert.Equal(t, "/data/agentpay/keys/public.pem", cfg.PublicKeyPath())
	assert.Equal(t, "/data/agentpay/keys/private.enc", cfg.PrivateKeyPath())
}

func TestDatabasePath_Override(t *testing.T) {
	cfg := &Config{
		Home:     "/data/agentpay",
		Database: DatabaseConfig{Path: "/var/lib/agentpay/wallet.db"},
	}
	assert.Equal(t, "/var/lib/agentpay/wallet.db", cfg.DatabasePath())
}
