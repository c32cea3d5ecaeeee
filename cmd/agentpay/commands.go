package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kar69-96/agentpay/internal/adapter/browserutil"
	"github.com/kar69-96/agentpay/internal/adapter/http/approval"
	"github.com/kar69-96/agentpay/internal/core/domain"
)

func init() {
	setupCmd.Flags().Float64("budget", 0, "total spending budget in dollars")
	setupCmd.Flags().Float64("limit", 0, "per-transaction limit in dollars (0 = no limit)")
	setupCmd.MarkFlagRequired("budget")

	proposeCmd.Flags().String("merchant", "", "merchant name")
	proposeCmd.Flags().Float64("amount", 0, "amount in dollars")
	proposeCmd.Flags().String("description", "", "what is being bought")
	proposeCmd.Flags().String("url", "", "checkout URL")
	proposeCmd.MarkFlagRequired("merchant")
	proposeCmd.MarkFlagRequired("amount")

	approveCmd.Flags().Bool("mobile", false, "approve from a phone through a public tunnel")

	rootCmd.AddCommand(setupCmd, statusCmd, fundCmd, budgetCmd, limitCmd,
		proposeCmd, pendingCmd, historyCmd, approveCmd, rejectCmd,
		executeCmd, auditCmd, resetCmd)
}

func parseAmount(arg string) (float64, error) {
	amount, err := strconv.ParseFloat(strings.TrimPrefix(arg, "$"), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", arg)
	}
	return amount, nil
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Initialize the wallet: credentials, keys and budget",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()
		ctx := cmd.Context()

		if a.vault.Exists() {
			return fmt.Errorf("already set up; run `agentpay reset` first to start over")
		}

		budget, _ := cmd.Flags().GetFloat64("budget")
		limit, _ := cmd.Flags().GetFloat64("limit")

		passphrase, err := promptNewPassphrase()
		if err != nil {
			return err
		}
		creds, err := promptCredentials()
		if err != nil {
			return err
		}

		vault, err := a.vault.Encrypt(creds, passphrase)
		if err != nil {
			return err
		}
		if err := a.vault.Save(vault); err != nil {
			return err
		}
		if err := a.keys.Generate(passphrase); err != nil {
			return err
		}
		if err := a.budget.InitWallet(ctx, budget, limit); err != nil {
			return err
		}

		a.audit.Log(ctx, domain.AuditActionSetup, map[string]interface{}{
			"budget":     domain.RoundCents(budget),
			"limitPerTx": domain.RoundCents(limit),
		})

		fmt.Printf("Wallet ready. Budget $%.2f", budget)
		if limit > 0 {
			fmt.Printf(", per-transaction limit $%.2f", limit)
		}
		fmt.Println(".")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show wallet balance and pending transactions",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.requireSetup(); err != nil {
			return err
		}
		ctx := cmd.Context()

		wallet, err := a.budget.Balance(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Budget:    $%.2f\n", wallet.Budget)
		fmt.Printf("Balance:   $%.2f\n", wallet.Balance)
		fmt.Printf("Spent:     $%.2f\n", wallet.Spent)
		if wallet.LimitPerTx > 0 {
			fmt.Printf("Per-tx:    $%.2f\n", wallet.LimitPerTx)
		}

		pending, err := a.txSvc.Pending(ctx)
		if err != nil {
			return err
		}
		if len(pending) > 0 {
			fmt.Printf("\n%d pending transaction(s):\n", len(pending))
			printTransactions(pending)
		}
		return nil
	},
}

var fundCmd = &cobra.Command{
	Use:   "fund AMOUNT",
	Short: "Add funds to the wallet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.requireSetup(); err != nil {
			return err
		}
		ctx := cmd.Context()

		amount, err := parseAmount(args[0])
		if err != nil {
			return err
		}
		wallet, err := a.budget.AddFunds(ctx, amount)
		if err != nil {
			return err
		}
		a.audit.Log(ctx, domain.AuditActionAddFunds, map[string]interface{}{
			"amount":  domain.RoundCents(amount),
			"balance": wallet.Balance,
		})
		fmt.Printf("Added $%.2f. Balance is now $%.2f.\n", amount, wallet.Balance)
		return nil
	},
}

var budgetCmd = &cobra.Command{
	Use:   "budget AMOUNT",
	Short: "Set the total budget",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.requireSetup(); err != nil {
			return err
		}

		amount, err := parseAmount(args[0])
		if err != nil {
			return err
		}
		if err := a.budget.SetBudget(cmd.Context(), amount); err != nil {
			return err
		}
		fmt.Printf("Budget set to $%.2f.\n", amount)
		return nil
	},
}

var limitCmd = &cobra.Command{
	Use:   "limit AMOUNT",
	Short: "Set the per-transaction limit (0 disables it)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.requireSetup(); err != nil {
			return err
		}

		amount, err := parseAmount(args[0])
		if err != nil {
			return err
		}
		if err := a.budget.SetLimitPerTx(cmd.Context(), amount); err != nil {
			return err
		}
		fmt.Printf("Per-transaction limit set to $%.2f.\n", amount)
		return nil
	},
}

var proposeCmd = &cobra.Command{
	Use:   "propose",
	Short: "Propose a purchase for approval",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.requireSetup(); err != nil {
			return err
		}

		merchant, _ := cmd.Flags().GetString("merchant")
		amount, _ := cmd.Flags().GetFloat64("amount")
		description, _ := cmd.Flags().GetString("description")
		url, _ := cmd.Flags().GetString("url")

		tx, err := a.txSvc.Propose(cmd.Context(), domain.ProposeOptions{
			Merchant:    merchant,
			Amount:      amount,
			Description: description,
			URL:         url,
		})
		if err != nil {
			return err
		}
		fmt.Printf("Proposed %s: $%.2f at %s. Approve with `agentpay approve %s`.\n",
			tx.ID, tx.Amount, tx.Merchant, tx.ID)
		return nil
	},
}

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List transactions awaiting approval",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.requireSetup(); err != nil {
			return err
		}

		pending, err := a.txSvc.Pending(cmd.Context())
		if err != nil {
			return err
		}
		if len(pending) == 0 {
			fmt.Println("No pending transactions.")
			return nil
		}
		printTransactions(pending)
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List decided transactions",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.requireSetup(); err != nil {
			return err
		}

		history, err := a.txSvc.History(cmd.Context())
		if err != nil {
			return err
		}
		if len(history) == 0 {
			fmt.Println("No transaction history yet.")
			return nil
		}
		printTransactions(history)
		return nil
	},
}

var approveCmd = &cobra.Command{
	Use:   "approve TXID",
	Short: "Run the approval handshake for a pending transaction",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.requireSetup(); err != nil {
			return err
		}
		ctx := cmd.Context()

		tx, err := a.txSvc.Get(ctx, args[0])
		if err != nil {
			return err
		}
		if tx.Status != domain.TransactionStatusPending {
			return fmt.Errorf("transaction %s is %s, not pending", tx.ID, tx.Status)
		}

		srv := approval.NewServer(tx, a.txSvc, a.cfg.Approval.Timeout, a.log)
		if err := srv.Start(); err != nil {
			return err
		}
		defer srv.Close()

		mobile, _ := cmd.Flags().GetBool("mobile")
		var result approval.Result
		if mobile || a.cfg.Mobile.Enabled {
			fmt.Println("Opening tunnel for mobile approval…")
			result, err = approval.RequestMobileApproval(ctx, srv, a.tunnel, a.notifier, a.audit, a.log)
		} else {
			url := srv.URL()
			fmt.Printf("Approve or deny at: %s\n", url)
			browserutil.Open(url, a.log)
			result, err = srv.Wait(ctx)
		}
		if err != nil {
			return err
		}

		switch result.Decision {
		case approval.DecisionApproved:
			fmt.Printf("Approved. Execute with `agentpay execute %s`.\n", tx.ID)
		case approval.DecisionRejected:
			if result.Reason != "" {
				fmt.Printf("Denied: %s\n", result.Reason)
			} else {
				fmt.Println("Denied.")
			}
		}
		return nil
	},
}

var rejectCmd = &cobra.Command{
	Use:   "reject TXID [REASON]",
	Short: "Reject a pending transaction from the command line",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.requireSetup(); err != nil {
			return err
		}

		reason := ""
		if len(args) > 1 {
			reason = args[1]
		}
		tx, err := a.txSvc.Reject(cmd.Context(), args[0], reason)
		if err != nil {
			return err
		}
		fmt.Printf("Rejected %s.\n", tx.ID)
		return nil
	},
}

var executeCmd = &cobra.Command{
	Use:   "execute TXID",
	Short: "Execute an approved transaction",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.requireSetup(); err != nil {
			return err
		}

		passphrase, err := promptPassword("Vault passphrase")
		if err != nil {
			return err
		}
		tx, err := a.executor.Execute(cmd.Context(), args[0], passphrase)
		if err != nil {
			return err
		}
		fmt.Printf("Completed %s: $%.2f at %s (confirmation %s, receipt %s).\n",
			tx.ID, tx.Amount, tx.Merchant, tx.Receipt.ConfirmationID, tx.Receipt.ID)
		return nil
	},
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Print the audit trail",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		entries, err := a.audit.Entries(cmd.Context())
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println("Audit trail is empty.")
			return nil
		}
		for _, e := range entries {
			fmt.Printf("%s  %-26s %s\n", e.Timestamp.Format("2006-01-02 15:04:05"), e.Action, e.Details)
		}
		return nil
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Wipe the vault, keys, wallet and history",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ok, err := confirm("This permanently deletes the vault, keys and all history. Continue?")
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("Aborted.")
			return nil
		}

		a.audit.Log(cmd.Context(), domain.AuditActionReset, map[string]interface{}{})
		a.db.Close()

		if err := os.RemoveAll(a.cfg.Home); err != nil {
			return fmt.Errorf("removing %s: %w", a.cfg.Home, err)
		}
		if !strings.HasPrefix(a.cfg.DatabasePath(), a.cfg.Home) {
			if err := os.Remove(a.cfg.DatabasePath()); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("removing database: %w", err)
			}
		}
		fmt.Println("Wallet wiped.")
		return nil
	},
}

func printTransactions(txs []domain.Transaction) {
	for _, tx := range txs {
		line := fmt.Sprintf("  %s  %-10s $%8.2f  %s", tx.ID, tx.Status, tx.Amount, tx.Merchant)
		if tx.Description != "" {
			line += "  (" + tx.Description + ")"
		}
		fmt.Println(line)
	}
}
