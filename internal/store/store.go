package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/mtlprog/wallet/internal/domain"
	"github.com/mtlprog/wallet/internal/wallet"
)

var (
	ErrNotFound      = errors.New("user not found")
	ErrAlreadyExists = errors.New("user already exists")
)

// User is a registered account. Each user exclusively owns one wallet.
type User struct {
	Email        string         `json:"email"`
	PasswordHash string         `json:"password_hash"`
	Wallet       *wallet.Wallet `json:"wallet"`
}

// NewUser creates a user with a freshly hashed password and an empty wallet.
func NewUser(email, password string) (*User, error) {
	if !domain.ValidEmail(email) {
		return nil, fmt.Errorf("invalid email %q", email)
	}
	hash, err := domain.HashPassword(password)
	if err != nil {
		return nil, err
	}
	return &User{
		Email:        email,
		PasswordHash: hash,
		Wallet:       wallet.New(),
	}, nil
}

// CheckPassword reports whether the plaintext password matches the user's hash.
func (u *User) CheckPassword(password string) bool {
	return domain.CheckPassword(password, u.PasswordHash)
}

// UserStore persists users keyed by email. Updates are last write wins.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	Register(ctx context.Context, user *User) error
	Update(ctx context.Context, user *User) error
	All(ctx context.Context) ([]*User, error)
}
