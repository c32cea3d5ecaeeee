package service

import (
	"context"
	"sync"

	"github.com/kar69-96/agentpay/internal/core/domain"
	"github.com/kar69-96/agentpay/internal/core/ports"
	"github.com/kar69-96/agentpay/pkg/apperror"
)

type budgetService struct {
	wallets ports.WalletRepository

	// Serializes read-modify-write cycles so concurrent deductions can
	// never both read the same balance.
	mu sync.Mutex
}

// NewBudgetService creates the budget ledger service.
func NewBudgetService(wallets ports.WalletRepository) ports.BudgetService {
	return &budgetService{wallets: wallets}
}

func (s *budgetService) InitWallet(ctx context.Context, budget, limitPerTx float64) error {
	if budget <= 0 {
		return apperror.Validation("Budget must be positive.")
	}
	if limitPerTx < 0 {
		return apperror.Validation("Per-transaction limit cannot be negative.")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.put(ctx, domain.NewWallet(budget, limitPerTx))
}

func (s *budgetService) Balance(ctx context.Context) (*domain.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(ctx)
}

// CheckProposal validates an amount against the wallet without mutating it.
// Balance is checked before the per-transaction limit so the caller always
// sees the more fundamental failure first.
func (s *budgetService) CheckProposal(ctx context.Context, amount float64) error {
	if amount <= 0 {
		return apperror.Validation("Amount must be positive.")
	}
	amount = domain.RoundCents(amount)

	s.mu.Lock()
	defer s.mu.Unlock()
	wallet, err := s.get(ctx)
	if err != nil {
		return err
	}
	if amount > wallet.Balance {
		return apperror.ErrInsufficientBalance(amount, wallet.Balance)
	}
	if wallet.LimitPerTx > 0 && amount > wallet.LimitPerTx {
		return apperror.ErrExceedsTxLimit(amount, wallet.LimitPerTx)
	}
	return nil
}

func (s *budgetService) DeductBalance(ctx context.Context, amount float64) error {
	if amount <= 0 {
		return apperror.Validation("Amount must be positive.")
	}
	amount = domain.RoundCents(amount)

	s.mu.Lock()
	defer s.mu.Unlock()
	wallet, err := s.get(ctx)
	if err != nil {
		return err
	}
	if amount > wallet.Balance {
		return apperror.ErrInsufficientBalance(amount, wallet.Balance)
	}
	wallet.Deduct(amount)
	return s.put(ctx, wallet)
}

func (s *budgetService) AddFunds(ctx context.Context, amount float64) (*domain.Wallet, error) {
	if amount <= 0 {
		return nil, apperror.Validation("Amount must be positive.")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	wallet, err := s.get(ctx)
	if err != nil {
		return nil, err
	}
	wallet.AddFunds(domain.RoundCents(amount))
	if err := s.put(ctx, wallet); err != nil {
		return nil, err
	}
	return wallet, nil
}

// SetBudget replaces the total budget; the balance is recomputed against
// what is already spent.
func (s *budgetService) SetBudget(ctx context.Context, budget float64) error {
	budget = domain.RoundCents(budget)
	if budget <= 0 {
		return apperror.Validation("Budget must be positive.")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	wallet, err := s.get(ctx)
	if err != nil {
		return err
	}
	if budget < wallet.Spent {
		return apperror.Validation("Budget cannot be below the amount already spent.")
	}
	wallet.Budget = budget
	wallet.Balance = domain.RoundCents(budget - wallet.Spent)
	return s.put(ctx, wallet)
}

func (s *budgetService) SetLimitPerTx(ctx context.Context, limit float64) error {
	if limit < 0 {
		return apperror.Validation("Per-transaction limit cannot be negative.")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	wallet, err := s.get(ctx)
	if err != nil {
		return err
	}
	wallet.LimitPerTx = domain.RoundCents(limit)
	return s.put(ctx, wallet)
}

func (s *budgetService) get(ctx context.Context) (*domain.Wallet, error) {
	wallet, err := s.wallets.Get(ctx)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if wallet == nil {
		return nil, apperror.ErrNotSetup()
	}
	return wallet, nil
}

func (s *budgetService) put(ctx context.Context, wallet *domain.Wallet) error {
	if err := s.wallets.Put(ctx, wallet); err != nil {
		return apperror.InternalError(err)
	}
	return nil
}
