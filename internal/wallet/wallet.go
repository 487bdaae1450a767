package wallet

import (
	"encoding/json"
	"errors"
	"sync"
	"time"
)

// Epsilon is the threshold below which monetary amounts and quantities are
// treated as zero.
const Epsilon = 1e-8

var (
	ErrNonPositiveAmount = errors.New("amount must be positive")
	ErrNonPositivePrice  = errors.New("price must be positive")
)

// Wallet is a per-user ledger: a USD balance, current holdings, and an
// append-only transaction history. All operations are safe for concurrent use;
// mutations take the write lock, summaries the read lock.
type Wallet struct {
	mu       sync.RWMutex
	balance  float64
	holdings map[string]float64
	history  []Transaction
}

// New creates an empty wallet.
func New() *Wallet {
	return &Wallet{holdings: make(map[string]float64)}
}

// Balance returns the current USD balance.
func (w *Wallet) Balance() float64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.balance
}

// Holding returns the held quantity of the asset and whether it is present.
func (w *Wallet) Holding(assetID string) (float64, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	q, ok := w.holdings[assetID]
	return q, ok
}

// Holdings returns a copy of the current holdings map.
func (w *Wallet) Holdings() map[string]float64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make(map[string]float64, len(w.holdings))
	for id, q := range w.holdings {
		out[id] = q
	}
	return out
}

// History returns a copy of the transaction history in chronological order.
func (w *Wallet) History() []Transaction {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]Transaction, len(w.history))
	copy(out, w.history)
	return out
}

// Deposit adds the amount to the balance and records a DEPOSIT transaction.
func (w *Wallet) Deposit(amount float64) error {
	if amount <= Epsilon {
		return ErrNonPositiveAmount
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.balance += amount
	w.history = append(w.history, Transaction{
		AssetID:      DepositAssetID,
		PricePerUnit: amount,
		Quantity:     1,
		Kind:         KindDeposit,
		Timestamp:    time.Now(),
	})
	return nil
}

// Buy spends amountUSD on the asset at the given price. It returns false
// without mutating the wallet when the balance is insufficient or the
// resulting quantity would be negligible.
func (w *Wallet) Buy(assetID string, currentPrice, amountUSD float64) (bool, error) {
	if currentPrice <= Epsilon {
		return false, ErrNonPositivePrice
	}
	if amountUSD <= Epsilon {
		return false, ErrNonPositiveAmount
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if amountUSD > w.balance {
		return false, nil
	}

	quantity := amountUSD / currentPrice
	if quantity < Epsilon {
		return false, nil
	}

	w.holdings[assetID] += quantity
	w.balance -= amountUSD
	w.history = append(w.history, Transaction{
		AssetID:      assetID,
		PricePerUnit: currentPrice,
		Quantity:     quantity,
		Kind:         KindBuy,
		Timestamp:    time.Now(),
	})
	return true, nil
}

// Sell liquidates the entire held quantity of the asset at the given price.
// It returns false when the asset is not held.
func (w *Wallet) Sell(assetID string, currentPrice float64) (bool, error) {
	if currentPrice <= Epsilon {
		return false, ErrNonPositivePrice
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	quantity, ok := w.holdings[assetID]
	if !ok || quantity < Epsilon {
		return false, nil
	}

	delete(w.holdings, assetID)
	w.balance += quantity * currentPrice
	w.history = append(w.history, Transaction{
		AssetID:      assetID,
		PricePerUnit: currentPrice,
		Quantity:     quantity,
		Kind:         KindSell,
		Timestamp:    time.Now(),
	})
	return true, nil
}

// walletState is the persisted form of a wallet.
type walletState struct {
	BalanceUSD float64            `json:"balance_usd"`
	Holdings   map[string]float64 `json:"holdings"`
	History    []Transaction      `json:"history"`
}

// MarshalJSON serializes the wallet under the read lock.
func (w *Wallet) MarshalJSON() ([]byte, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return json.Marshal(walletState{
		BalanceUSD: w.balance,
		Holdings:   w.holdings,
		History:    w.history,
	})
}

// UnmarshalJSON restores a persisted wallet.
func (w *Wallet) UnmarshalJSON(data []byte) error {
	var state walletState
	if err := json.Unmarshal(data, &state); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.balance = state.BalanceUSD
	w.holdings = state.Holdings
	if w.holdings == nil {
		w.holdings = make(map[string]float64)
	}
	w.history = state.History
	return nil
}
