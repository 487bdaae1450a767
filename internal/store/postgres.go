package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mtlprog/wallet/internal/wallet"
)

// PgUserStore implements UserStore with PostgreSQL. The wallet is stored as a
// JSONB document; every mutating command overwrites it (last write wins).
type PgUserStore struct {
	pool *pgxpool.Pool
}

// NewPgUserStore creates a new PostgreSQL user store.
func NewPgUserStore(pool *pgxpool.Pool) *PgUserStore {
	return &PgUserStore{pool: pool}
}

func (s *PgUserStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	var (
		u          User
		walletJSON []byte
	)
	err := s.pool.QueryRow(ctx,
		`SELECT email, password_hash, wallet FROM users WHERE email = $1`,
		email).Scan(&u.Email, &u.PasswordHash, &walletJSON)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("finding %s: %w", email, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("finding %s: %w", email, err)
	}

	u.Wallet = wallet.New()
	if err := json.Unmarshal(walletJSON, u.Wallet); err != nil {
		return nil, fmt.Errorf("decoding wallet for %s: %w", email, err)
	}
	return &u, nil
}

func (s *PgUserStore) Register(ctx context.Context, user *User) error {
	walletJSON, err := json.Marshal(user.Wallet)
	if err != nil {
		return fmt.Errorf("encoding wallet for %s: %w", user.Email, err)
	}

	tag, err := s.pool.Exec(ctx,
		`INSERT INTO users (email, password_hash, wallet)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (email) DO NOTHING`,
		user.Email, user.PasswordHash, walletJSON)
	if err != nil {
		return fmt.Errorf("registering %s: %w", user.Email, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("registering %s: %w", user.Email, ErrAlreadyExists)
	}
	return nil
}

func (s *PgUserStore) Update(ctx context.Context, user *User) error {
	walletJSON, err := json.Marshal(user.Wallet)
	if err != nil {
		return fmt.Errorf("encoding wallet for %s: %w", user.Email, err)
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET password_hash = $2, wallet = $3, updated_at = NOW()
		 WHERE email = $1`,
		user.Email, user.PasswordHash, walletJSON)
	if err != nil {
		return fmt.Errorf("updating %s: %w", user.Email, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("updating %s: %w", user.Email, ErrNotFound)
	}
	return nil
}

func (s *PgUserStore) All(ctx context.Context) ([]*User, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT email, password_hash, wallet FROM users ORDER BY email`)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		var (
			u          User
			walletJSON []byte
		)
		if err := rows.Scan(&u.Email, &u.PasswordHash, &walletJSON); err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		u.Wallet = wallet.New()
		if err := json.Unmarshal(walletJSON, u.Wallet); err != nil {
			return nil, fmt.Errorf("decoding wallet for %s: %w", u.Email, err)
		}
		users = append(users, &u)
	}
	return users, rows.Err()
}
