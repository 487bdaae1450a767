package export

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"
	"github.com/xuri/excelize/v2"

	"github.com/mtlprog/wallet/internal/store"
	"github.com/mtlprog/wallet/internal/wallet"
)

const (
	balancesSheet     = "Balances"
	transactionsSheet = "Transactions"
)

// WriteReport writes every user's balance, holdings, and transaction history
// to an xlsx workbook at the given path.
func WriteReport(ctx context.Context, users store.UserStore, path string) error {
	all, err := users.All(ctx)
	if err != nil {
		return fmt.Errorf("loading users: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := writeBalances(f, all); err != nil {
		return err
	}
	if err := writeTransactions(f, all); err != nil {
		return err
	}

	f.DeleteSheet("Sheet1")

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving report to %s: %w", path, err)
	}
	return nil
}

func writeBalances(f *excelize.File, users []*store.User) error {
	if _, err := f.NewSheet(balancesSheet); err != nil {
		return fmt.Errorf("creating %s sheet: %w", balancesSheet, err)
	}

	header := []any{"Email", "Balance USD", "Assets Held", "Transactions"}
	if err := f.SetSheetRow(balancesSheet, "A1", &header); err != nil {
		return fmt.Errorf("writing %s header: %w", balancesSheet, err)
	}

	for i, u := range users {
		row := []any{
			u.Email,
			u.Wallet.Balance(),
			len(u.Wallet.Holdings()),
			len(u.Wallet.History()),
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(balancesSheet, cell, &row); err != nil {
			return fmt.Errorf("writing balance row for %s: %w", u.Email, err)
		}
	}
	return nil
}

type reportTx struct {
	email string
	tx    wallet.Transaction
}

func writeTransactions(f *excelize.File, users []*store.User) error {
	if _, err := f.NewSheet(transactionsSheet); err != nil {
		return fmt.Errorf("creating %s sheet: %w", transactionsSheet, err)
	}

	header := []any{"Email", "Kind", "Asset", "Price Per Unit", "Quantity", "Total", "Timestamp"}
	if err := f.SetSheetRow(transactionsSheet, "A1", &header); err != nil {
		return fmt.Errorf("writing %s header: %w", transactionsSheet, err)
	}

	rows := lo.FlatMap(users, func(u *store.User, _ int) []reportTx {
		return lo.Map(u.Wallet.History(), func(tx wallet.Transaction, _ int) reportTx {
			return reportTx{email: u.Email, tx: tx}
		})
	})

	for i, r := range rows {
		row := []any{
			r.email,
			string(r.tx.Kind),
			r.tx.AssetID,
			r.tx.PricePerUnit,
			r.tx.Quantity,
			r.tx.Total(),
			r.tx.Timestamp.Format(time.RFC3339),
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(transactionsSheet, cell, &row); err != nil {
			return fmt.Errorf("writing transaction row %d: %w", i+2, err)
		}
	}
	return nil
}
