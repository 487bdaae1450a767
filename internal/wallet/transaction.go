package wallet

import "time"

// Kind classifies a ledger transaction.
type Kind string

const (
	KindDeposit Kind = "DEPOSIT"
	KindBuy     Kind = "BUY"
	KindSell    Kind = "SELL"
)

// DepositAssetID is the asset id recorded for deposit transactions. A deposit
// is stored with quantity 1 and the deposited amount as the price per unit, so
// its USD value is always PricePerUnit*Quantity like every other transaction.
const DepositAssetID = "USD"

// Transaction is one immutable entry of a wallet's append-only history.
type Transaction struct {
	AssetID      string    `json:"asset_id"`
	PricePerUnit float64   `json:"price_per_unit"`
	Quantity     float64   `json:"quantity"`
	Kind         Kind      `json:"kind"`
	Timestamp    time.Time `json:"timestamp"`
}

// Total is the USD value of the transaction.
func (t Transaction) Total() float64 {
	return t.PricePerUnit * t.Quantity
}
