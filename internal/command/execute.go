package command

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mtlprog/wallet/internal/domain"
	"github.com/mtlprog/wallet/internal/store"
	"github.com/mtlprog/wallet/internal/wallet"
)

// Execute runs the command and returns the human-readable response. Expected
// business outcomes (insufficient funds, unknown asset, wrong password) are
// part of the returned string, never errors; errors cover malformed state and
// collaborator failures only.
func (p *Pipeline) Execute(ctx context.Context, cmd Command) (string, error) {
	switch cmd.kind {
	case KindRegister:
		return p.register(ctx, cmd)
	case KindLogin:
		return p.login(ctx, cmd)
	case KindLogout:
		cmd.sess.Logout()
		return "Logged out successfully!", nil
	case KindDeposit:
		return p.deposit(ctx, cmd)
	case KindBuy:
		return p.buy(ctx, cmd)
	case KindSell:
		return p.sell(ctx, cmd)
	case KindSummary:
		return cmd.sess.User().Wallet.Summary(), nil
	case KindSummaryOverall:
		return p.summaryOverall(cmd)
	case KindListOfferings:
		return p.listOfferings()
	case KindHelp:
		return helpText, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownCommand, cmd.kind)
	}
}

func (p *Pipeline) register(ctx context.Context, cmd Command) (string, error) {
	_, err := p.users.FindByEmail(ctx, cmd.email)
	switch {
	case err == nil:
		return "User with this email already registered!", nil
	case !errors.Is(err, store.ErrNotFound):
		return "", fmt.Errorf("looking up %s: %w", cmd.email, err)
	}

	user, err := store.NewUser(cmd.email, cmd.password)
	if err != nil {
		return "", fmt.Errorf("creating user: %w", err)
	}

	if err := p.users.Register(ctx, user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return "User with this email already registered!", nil
		}
		return "", fmt.Errorf("registering user: %w", err)
	}

	return fmt.Sprintf("User %s registered successfully!", cmd.email), nil
}

func (p *Pipeline) login(ctx context.Context, cmd Command) (string, error) {
	if cmd.sess.LoggedIn() {
		return fmt.Sprintf("Already logged in as %s.", cmd.sess.User().Email), nil
	}

	user, err := p.users.FindByEmail(ctx, cmd.email)
	if errors.Is(err, store.ErrNotFound) {
		return "No such email has been registered.", nil
	}
	if err != nil {
		return "", fmt.Errorf("looking up %s: %w", cmd.email, err)
	}

	if !user.CheckPassword(cmd.password) {
		return "Invalid email or password.", nil
	}

	if err := cmd.sess.Login(user); err != nil {
		return "", err
	}
	return fmt.Sprintf("Login successful! Welcome, %s", cmd.email), nil
}

func (p *Pipeline) deposit(ctx context.Context, cmd Command) (string, error) {
	user := cmd.sess.User()

	if err := user.Wallet.Deposit(cmd.amount); err != nil {
		if errors.Is(err, wallet.ErrNonPositiveAmount) {
			return "The amount of money is expected to be positive when depositing!", nil
		}
		return "", err
	}

	if err := p.persist(ctx, user); err != nil {
		return "", err
	}
	return fmt.Sprintf("$%s deposited successfully to %s's balance",
		domain.FormatUSD(cmd.amount), user.Email), nil
}

func (p *Pipeline) buy(ctx context.Context, cmd Command) (string, error) {
	price, ok := p.cache.AssetPrice(cmd.assetID)
	if !ok {
		return fmt.Sprintf("Information about asset %s not found.", cmd.assetID), nil
	}
	p.warnIfStale(cmd)

	user := cmd.sess.User()
	bought, err := user.Wallet.Buy(cmd.assetID, price, cmd.amount)
	if err != nil {
		if errors.Is(err, wallet.ErrNonPositiveAmount) {
			return "The amount of money to buy with is expected to be positive!", nil
		}
		return "", err
	}
	if !bought {
		return "Failed: Not enough money.", nil
	}

	if err := p.persist(ctx, user); err != nil {
		return "", err
	}
	return fmt.Sprintf("Successfully bought asset with id: %s!", cmd.assetID), nil
}

func (p *Pipeline) sell(ctx context.Context, cmd Command) (string, error) {
	price, ok := p.cache.AssetPrice(cmd.assetID)
	if !ok {
		return fmt.Sprintf("Asset %s's price unavailable.", cmd.assetID), nil
	}
	p.warnIfStale(cmd)

	user := cmd.sess.User()
	sold, err := user.Wallet.Sell(cmd.assetID, price)
	if err != nil {
		return "", err
	}
	if !sold {
		return fmt.Sprintf("You [ %s ] could not sell %s! Not present in wallet!",
			user.Email, cmd.assetID), nil
	}

	if err := p.persist(ctx, user); err != nil {
		return "", err
	}
	return fmt.Sprintf("You [ %s ] successfully sold %s", user.Email, cmd.assetID), nil
}

func (p *Pipeline) summaryOverall(cmd Command) (string, error) {
	if p.cache.Len() == 0 {
		return "No data for available assets present.", nil
	}

	summary, err := cmd.sess.User().Wallet.OverallSummary(p.cache.Prices())
	if err != nil {
		return "", err
	}
	return summary, nil
}

func (p *Pipeline) listOfferings() (string, error) {
	cached := p.cache.CachedValues()
	if len(cached) == 0 {
		return "No information available!", nil
	}

	var sb strings.Builder
	sb.WriteString("All the latest offerings:")
	for _, asset := range cached {
		sb.WriteString("\n")
		sb.WriteString(asset.String())
	}
	return sb.String(), nil
}

// persist writes the user back after a successful in-memory mutation. A
// persistence failure is reported to the caller, never swallowed; the
// in-memory state keeps the applied change.
func (p *Pipeline) persist(ctx context.Context, user *store.User) error {
	if err := p.users.Update(ctx, user); err != nil {
		return fmt.Errorf("operation applied but saving user %s failed: %w", user.Email, err)
	}
	return nil
}

func (p *Pipeline) warnIfStale(cmd Command) {
	if p.cache.Expired() {
		slog.Warn("executing trade against a stale asset cache",
			"command", cmd.kind, "asset", cmd.assetID)
	}
}
