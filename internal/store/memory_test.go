package store

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryStoreRegisterAndFind(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	user, err := NewUser("alice@example.com", "secret123")
	if err != nil {
		t.Fatalf("NewUser() error = %v", err)
	}

	if err := s.Register(ctx, user); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	found, err := s.FindByEmail(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("FindByEmail() error = %v", err)
	}
	if found.Email != "alice@example.com" {
		t.Errorf("found.Email = %q", found.Email)
	}
	if !found.CheckPassword("secret123") {
		t.Error("CheckPassword() = false for the registered password")
	}
}

func TestMemoryStoreFindMissing(t *testing.T) {
	s := NewMemoryStore()
	if _, err := s.FindByEmail(context.Background(), "ghost@example.com"); !errors.Is(err, ErrNotFound) {
		t.Errorf("FindByEmail() error = %v, want ErrNotFound", err)
	}
}

func TestMemoryStoreDuplicateRegistration(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	first, err := NewUser("bob@example.com", "secret123")
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Register(ctx, first); err != nil {
		t.Fatal(err)
	}

	second, err := NewUser("bob@example.com", "other-pass")
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Register(ctx, second); !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("second Register() error = %v, want ErrAlreadyExists", err)
	}

	found, err := s.FindByEmail(ctx, "bob@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if !found.CheckPassword("secret123") {
		t.Error("duplicate registration replaced the original user")
	}
}

func TestMemoryStoreUpdateRequiresExistingUser(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	user, err := NewUser("carol@example.com", "secret123")
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Update(ctx, user); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update() of unregistered user error = %v, want ErrNotFound", err)
	}

	if err := s.Register(ctx, user); err != nil {
		t.Fatal(err)
	}
	if err := user.Wallet.Deposit(100); err != nil {
		t.Fatal(err)
	}
	if err := s.Update(ctx, user); err != nil {
		t.Errorf("Update() error = %v", err)
	}

	found, err := s.FindByEmail(ctx, "carol@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if found.Wallet.Balance() != 100 {
		t.Errorf("updated balance = %v, want 100", found.Wallet.Balance())
	}
}

func TestMemoryStoreAllSortedByEmail(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	for _, email := range []string{"zoe@example.com", "adam@example.com"} {
		u, err := NewUser(email, "secret123")
		if err != nil {
			t.Fatal(err)
		}
		if err := s.Register(ctx, u); err != nil {
			t.Fatal(err)
		}
	}

	all, err := s.All(ctx)
	if err != nil {
		t.Fatalf("All() error = %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("len(All()) = %d, want 2", len(all))
	}
	if all[0].Email != "adam@example.com" || all[1].Email != "zoe@example.com" {
		t.Errorf("All() order = [%s, %s], want sorted by email", all[0].Email, all[1].Email)
	}
}

func TestNewUserRejectsInvalidEmail(t *testing.T) {
	if _, err := NewUser("not-an-email", "secret123"); err == nil {
		t.Error("NewUser() error = nil for invalid email, want error")
	}
}
