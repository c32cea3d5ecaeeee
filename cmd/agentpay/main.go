package main

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/kar69-96/agentpay/config"
	"github.com/kar69-96/agentpay/internal/adapter/checkout"
	"github.com/kar69-96/agentpay/internal/adapter/notify"
	"github.com/kar69-96/agentpay/internal/adapter/storage/sqlite"
	"github.com/kar69-96/agentpay/internal/adapter/tunnel"
	"github.com/kar69-96/agentpay/internal/core/ports"
	"github.com/kar69-96/agentpay/internal/service"
	"github.com/kar69-96/agentpay/pkg/logger"
)

var configPath string

func main() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path")
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "agentpay",
	Short:        "Locally custodied wallet with human-approved purchase mandates",
	SilenceUsage: true,
}

// app wires the services for one CLI invocation. The caller must defer
// app.Close().
type app struct {
	cfg *config.Config
	log zerolog.Logger
	db  *sql.DB

	vault    ports.VaultService
	keys     ports.KeyStore
	budget   ports.BudgetService
	txSvc    ports.TransactionService
	audit    ports.AuditService
	executor *service.Executor
	tunnel   ports.Tunnel
	notifier ports.Notifier
}

func newApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	db, err := sqlite.Open(cfg.DatabasePath())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	walletRepo := sqlite.NewWalletRepo(db)
	txRepo := sqlite.NewTransactionRepo(db)
	auditRepo := sqlite.NewAuditRepo(db)

	vault := service.NewVaultService(cfg.VaultPath())
	keys := service.NewFileKeyStore(cfg.PublicKeyPath(), cfg.PrivateKeyPath())
	mandates := service.NewMandateService()
	budget := service.NewBudgetService(walletRepo)
	audit := service.NewAuditService(auditRepo, log)
	txSvc := service.NewTransactionService(txRepo, budget, keys, mandates, audit,
		cfg.Approval.PollInterval, cfg.Approval.Timeout)
	executor := service.NewExecutor(txRepo, vault, keys, mandates, budget,
		checkout.NewSimulated(log), audit)

	return &app{
		cfg:      cfg,
		log:      log,
		db:       db,
		vault:    vault,
		keys:     keys,
		budget:   budget,
		txSvc:    txSvc,
		audit:    audit,
		executor: executor,
		tunnel:   tunnel.NewCloudflared(cfg.Tunnel.Binary, cfg.Tunnel.StartTimeout, log),
		notifier: notify.New(cfg.Notify.Command, cfg.Notify.WebhookURL, log),
	}, nil
}

func (a *app) Close() {
	a.db.Close()
}

// requireSetup fails early when the vault has never been initialized.
func (a *app) requireSetup() error {
	if !a.vault.Exists() {
		return fmt.Errorf("wallet has not been set up yet, run `agentpay setup` first")
	}
	return nil
}
