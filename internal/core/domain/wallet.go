package domain

import "math"

// Wallet represents the locally custodied spending wallet. Amounts are
// dollars with 2-decimal currency semantics; RoundCents is applied at every
// mutation so the invariant Balance == Budget - Spent holds exactly.
type Wallet struct {
	Budget     float64 `json:"budget"`
	Balance    float64 `json:"balance"`
	LimitPerTx float64 `json:"limitPerTx"`
	Spent      float64 `json:"spent"`
}

// NewWallet creates a wallet with the full budget available.
func NewWallet(budget, limitPerTx float64) *Wallet {
	budget = RoundCents(budget)
	return &Wallet{
		Budget:     budget,
		Balance:    budget,
		LimitPerTx: RoundCents(limitPerTx),
		Spent:      0,
	}
}

// Deduct decreases balance and increases spent by amount.
// The caller is responsible for the non-negative balance check.
func (w *Wallet) Deduct(amount float64) {
	w.Balance = RoundCents(w.Balance - amount)
	w.Spent = RoundCents(w.Spent + amount)
}

// AddFunds increases budget and balance together.
func (w *Wallet) AddFunds(amount float64) {
	w.Budget = RoundCents(w.Budget + amount)
	w.Balance = RoundCents(w.Balance + amount)
}

// RoundCents rounds an amount to 2 decimal places.
func RoundCents(amount float64) float64 {
	return math.Round(amount*100) / 100
}
