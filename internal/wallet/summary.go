package wallet

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/mtlprog/wallet/internal/domain"
)

var ErrNoPrices = errors.New("no current prices provided")

// Summary renders the balance and the full transaction history in
// chronological order.
func (w *Wallet) Summary() string {
	w.mu.RLock()
	defer w.mu.RUnlock()

	var sb strings.Builder
	sb.WriteString("WALLET SUMMARY:\n")
	sb.WriteString(fmt.Sprintf("Balance: $%s\n", domain.FormatUSD(w.balance)))

	if len(w.history) == 0 {
		sb.WriteString("No transactions yet.")
		return sb.String()
	}

	sb.WriteString("Transactions:")
	for _, tx := range w.history {
		sb.WriteString("\n")
		switch tx.Kind {
		case KindDeposit:
			sb.WriteString(fmt.Sprintf("DEPOSIT: +$%s", domain.FormatUSD(tx.Total())))
		default:
			sb.WriteString(fmt.Sprintf("%s: %s %s @ $%s = $%s",
				tx.Kind,
				domain.FormatQuantity(tx.Quantity),
				tx.AssetID,
				domain.FormatUSD(tx.PricePerUnit),
				domain.FormatUSD(tx.Total())))
		}
	}
	return sb.String()
}

// assetPosition aggregates the buy-side history of one held asset.
type assetPosition struct {
	assetID  string
	held     float64
	invested float64
	value    float64
}

// OverallSummary renders invested capital, current value, and profit/loss per
// held asset and overall, valued at the given current prices. Invested capital
// for an asset is the average buy cost scaled by the quantity still held, so
// partially sold positions are not double counted. Assets without a current
// price contribute zero value.
func (w *Wallet) OverallSummary(currentPrices map[string]float64) (string, error) {
	if len(currentPrices) == 0 {
		return "", ErrNoPrices
	}

	w.mu.RLock()
	defer w.mu.RUnlock()

	positions := make([]assetPosition, 0, len(w.holdings))
	var totalInvested, totalValue float64

	for assetID, held := range w.holdings {
		var boughtTotal, boughtQuantity float64
		for _, tx := range w.history {
			if tx.Kind == KindBuy && tx.AssetID == assetID {
				boughtTotal += tx.Total()
				boughtQuantity += tx.Quantity
			}
		}

		var invested float64
		if boughtQuantity > Epsilon {
			invested = boughtTotal / boughtQuantity * held
		}
		value := held * currentPrices[assetID]

		positions = append(positions, assetPosition{
			assetID:  assetID,
			held:     held,
			invested: invested,
			value:    value,
		})
		totalInvested += invested
		totalValue += value
	}

	sort.Slice(positions, func(i, j int) bool {
		return positions[i].assetID < positions[j].assetID
	})

	profit := totalValue - totalInvested
	var returnPct float64
	if totalInvested > Epsilon {
		returnPct = profit / totalInvested * 100
	}

	var sb strings.Builder
	sb.WriteString("WALLET OVERALL SUMMARY:\n")
	sb.WriteString(fmt.Sprintf("Total invested: $%s\n", domain.FormatUSD(totalInvested)))
	sb.WriteString(fmt.Sprintf("Current value: $%s\n", domain.FormatUSD(totalValue)))
	sb.WriteString(fmt.Sprintf("%s | Overall return: %s%%", profitLabel(profit), domain.FormatUSD(returnPct)))

	for _, p := range positions {
		pct := 0.0
		if p.invested > Epsilon {
			pct = (p.value - p.invested) / p.invested * 100
		}
		sb.WriteString(fmt.Sprintf("\n%s: %s held, invested $%s, value $%s, %s (%s%%)",
			p.assetID,
			domain.FormatQuantity(p.held),
			domain.FormatUSD(p.invested),
			domain.FormatUSD(p.value),
			profitLabel(p.value-p.invested),
			domain.FormatUSD(pct)))
	}
	return sb.String(), nil
}

func profitLabel(profit float64) string {
	if profit < 0 {
		return fmt.Sprintf("Loss: $%s", domain.FormatUSD(-profit))
	}
	return fmt.Sprintf("Profit: $%s", domain.FormatUSD(profit))
}
