package command

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mtlprog/wallet/internal/domain"
	"github.com/mtlprog/wallet/internal/pricing"
	"github.com/mtlprog/wallet/internal/session"
	"github.com/mtlprog/wallet/internal/store"
)

// Kind identifies a wallet command.
type Kind string

const (
	KindRegister       Kind = "register"
	KindLogin          Kind = "login"
	KindLogout         Kind = "logout"
	KindDeposit        Kind = "deposit"
	KindBuy            Kind = "buy"
	KindSell           Kind = "sell"
	KindSummary        Kind = "get-wallet-summary"
	KindSummaryOverall Kind = "get-wallet-overall-summary"
	KindListOfferings  Kind = "list-offerings"
	KindHelp           Kind = "help"
)

const (
	flagUsername = "--username="
	flagPassword = "--password="
	flagOffering = "--offering="
	flagMoney    = "--money="
)

// argCount is the exact number of arguments each command requires.
var argCount = map[Kind]int{
	KindRegister:       2,
	KindLogin:          2,
	KindLogout:         0,
	KindDeposit:        1,
	KindBuy:            2,
	KindSell:           1,
	KindSummary:        0,
	KindSummaryOverall: 0,
	KindListOfferings:  0,
	KindHelp:           0,
}

// requiresAuth marks the commands that need an authenticated session.
var requiresAuth = map[Kind]bool{
	KindDeposit:        true,
	KindBuy:            true,
	KindSell:           true,
	KindSummary:        true,
	KindSummaryOverall: true,
}

// Command is a parsed, validated request bound to the session it came from.
// Construction performs no I/O; execution is a separate step.
type Command struct {
	kind     Kind
	email    string
	password string
	assetID  string
	amount   float64
	sess     *session.Session
}

// Kind returns the command's kind.
func (c Command) Kind() Kind {
	return c.kind
}

// Parse turns one line of whitespace-delimited tokens into a Command. The
// validation order is fixed: non-blank input, known command, exact argument
// count, required flags, numeric fields, then authentication.
func Parse(line string, sess *session.Session) (Command, error) {
	tokens := strings.Fields(line)
	if len(tokens) == 0 {
		return Command{}, ErrBlankInput
	}

	kind := Kind(strings.ToLower(tokens[0]))
	want, known := argCount[kind]
	if !known {
		return Command{}, ErrUnknownCommand
	}
	if len(tokens)-1 != want {
		return Command{}, ErrInvalidArgumentCount
	}

	cmd := Command{kind: kind, sess: sess}

	switch kind {
	case KindRegister, KindLogin:
		email, err := flagValue(tokens[1], flagUsername)
		if err != nil {
			return Command{}, err
		}
		password, err := flagValue(tokens[2], flagPassword)
		if err != nil {
			return Command{}, err
		}
		if kind == KindRegister {
			if !domain.ValidEmail(email) {
				return Command{}, ErrInvalidEmail
			}
			if !domain.ValidPassword(password) {
				return Command{}, ErrInvalidPassword
			}
		}
		cmd.email = email
		cmd.password = password

	case KindDeposit:
		amount, err := parseAmount(tokens[1])
		if err != nil {
			return Command{}, err
		}
		cmd.amount = amount

	case KindBuy:
		assetID, err := flagValue(tokens[1], flagOffering)
		if err != nil {
			return Command{}, err
		}
		raw, err := flagValue(tokens[2], flagMoney)
		if err != nil {
			return Command{}, err
		}
		amount, err := parseAmount(raw)
		if err != nil {
			return Command{}, err
		}
		cmd.assetID = domain.NormalizeAssetID(assetID)
		cmd.amount = amount

	case KindSell:
		assetID, err := flagValue(tokens[1], flagOffering)
		if err != nil {
			return Command{}, err
		}
		cmd.assetID = domain.NormalizeAssetID(assetID)
	}

	if requiresAuth[kind] && !sess.LoggedIn() {
		return Command{}, fmt.Errorf("%w: %s", ErrUnauthenticated, kind)
	}

	return cmd, nil
}

func flagValue(token, flag string) (string, error) {
	if !strings.HasPrefix(token, flag) {
		return "", fmt.Errorf("%w: %s is expected, check the command via 'help'", ErrMissingFlag, flag)
	}
	return strings.TrimPrefix(token, flag), nil
}

func parseAmount(token string) (float64, error) {
	amount, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidNumber, token)
	}
	return amount, nil
}

// IsValidationError reports whether the error belongs to the recoverable
// input-validation taxonomy whose message is sent to the client as-is.
func IsValidationError(err error) bool {
	for _, sentinel := range []error{
		ErrBlankInput, ErrUnknownCommand, ErrInvalidArgumentCount,
		ErrMissingFlag, ErrInvalidNumber, ErrUnauthenticated,
		ErrInvalidEmail, ErrInvalidPassword,
		session.ErrAlreadyLoggedIn,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

// Pipeline executes parsed commands against the shared collaborators.
type Pipeline struct {
	users store.UserStore
	cache *pricing.Cache
}

// NewPipeline creates a command pipeline. Both collaborators are required.
func NewPipeline(users store.UserStore, cache *pricing.Cache) (*Pipeline, error) {
	if users == nil {
		return nil, errors.New("command: nil user store")
	}
	if cache == nil {
		return nil, errors.New("command: nil asset cache")
	}
	return &Pipeline{users: users, cache: cache}, nil
}
