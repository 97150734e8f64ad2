package user

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/Belladihno/paystack-wallet-service/internal/ledger"
)

func TestProvisionCreatesUserAndWallet(t *testing.T) {
	ctx := context.Background()
	store := ledger.NewInMemory()
	svc := NewService(NewMemoryRepository(), store)

	u, err := svc.Provision(ctx, ProvisionInput{GoogleID: "g-1", Email: "a@example.com", Name: "Ada"})
	if err != nil {
		t.Fatalf("provision: %v", err)
	}

	w, err := store.WalletByUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("wallet lookup: %v", err)
	}
	if len(w.WalletNumber) != 10 {
		t.Fatalf("expected 10-digit wallet number, got %q", w.WalletNumber)
	}
	if !w.Balance.IsZero() {
		t.Fatalf("expected zero opening balance, got %s", w.Balance)
	}
}

func TestProvisionIsIdempotentPerIdentity(t *testing.T) {
	ctx := context.Background()
	store := ledger.NewInMemory()
	svc := NewService(NewMemoryRepository(), store)

	first, err := svc.Provision(ctx, ProvisionInput{GoogleID: "g-1", Email: "a@example.com"})
	if err != nil {
		t.Fatalf("first provision: %v", err)
	}
	second, err := svc.Provision(ctx, ProvisionInput{GoogleID: "g-1", Email: "a@example.com"})
	if err != nil {
		t.Fatalf("second provision: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected same user, got %s and %s", first.ID, second.ID)
	}

	accounts, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(accounts) != 1 {
		t.Fatalf("expected 1 account, got %d", len(accounts))
	}
}

func TestProvisionRequiresIdentity(t *testing.T) {
	svc := NewService(NewMemoryRepository(), ledger.NewInMemory())
	if _, err := svc.Provision(context.Background(), ProvisionInput{Email: "a@example.com"}); err == nil {
		t.Fatal("expected error for missing google id")
	}
	if _, err := svc.Provision(context.Background(), ProvisionInput{GoogleID: "g-1"}); err == nil {
		t.Fatal("expected error for missing email")
	}
}

func TestGetAnnotatesWalletDetails(t *testing.T) {
	ctx := context.Background()
	store := ledger.NewInMemory()
	svc := NewService(NewMemoryRepository(), store)

	u, err := svc.Provision(ctx, ProvisionInput{GoogleID: "g-1", Email: "a@example.com"})
	if err != nil {
		t.Fatalf("provision: %v", err)
	}
	w, _ := store.WalletByUser(ctx, u.ID)
	ledger.SeedBalance(store, w.WalletNumber, decimal.NewFromInt(750))

	acc, err := svc.Get(ctx, u.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if acc.WalletNumber != w.WalletNumber {
		t.Fatalf("expected wallet number %s, got %s", w.WalletNumber, acc.WalletNumber)
	}
	if !acc.Balance.Equal(decimal.NewFromInt(750)) {
		t.Fatalf("expected balance 750, got %s", acc.Balance)
	}
}
