package sweeper

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Belladihno/paystack-wallet-service/internal/apikey"
	"github.com/Belladihno/paystack-wallet-service/internal/ledger"
	"github.com/Belladihno/paystack-wallet-service/internal/logging"
)

func TestSweepPendingTransactions(t *testing.T) {
	ctx := context.Background()
	store := ledger.NewInMemory()
	keys := apikey.NewMemoryRepository()

	userID := uuid.NewString()
	w := ledger.Wallet{
		ID:           uuid.NewString(),
		UserID:       userID,
		WalletNumber: "1000000001",
		Balance:      decimal.Zero,
		CreatedAt:    time.Now().UTC(),
	}
	if err := store.CreateWallet(ctx, w); err != nil {
		t.Fatalf("create wallet: %v", err)
	}

	stale, err := store.CreatePendingDeposit(ctx, userID, "ref_stale", decimal.NewFromInt(500))
	if err != nil {
		t.Fatalf("create stale deposit: %v", err)
	}
	ledger.BackdateTransaction(store, stale.ID, time.Now().UTC().Add(-25*time.Hour))

	fresh, err := store.CreatePendingDeposit(ctx, userID, "ref_fresh", decimal.NewFromInt(500))
	if err != nil {
		t.Fatalf("create fresh deposit: %v", err)
	}

	svc := NewService(store, keys, 24*time.Hour, logging.Discard())
	n, err := svc.SweepPendingTransactions(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 expired, got %d", n)
	}

	got, _ := store.TransactionByReference(ctx, stale.Reference)
	if got.Status != ledger.StatusFailed {
		t.Fatalf("stale deposit: expected failed, got %s", got.Status)
	}
	got, _ = store.TransactionByReference(ctx, fresh.Reference)
	if got.Status != ledger.StatusPending {
		t.Fatalf("fresh deposit: expected pending, got %s", got.Status)
	}
}

func TestSweepExpiredAPIKeys(t *testing.T) {
	ctx := context.Background()
	store := ledger.NewInMemory()
	keys := apikey.NewMemoryRepository()
	now := time.Now().UTC()

	expired := apikey.Key{
		ID:          uuid.NewString(),
		UserID:      uuid.NewString(),
		Prefix:      "aaaaaaaa",
		Name:        "expired",
		Permissions: apikey.AllPermissions(),
		ExpiresAt:   now.Add(-time.Hour),
		CreatedAt:   now.Add(-25 * time.Hour),
	}
	live := apikey.Key{
		ID:          uuid.NewString(),
		UserID:      expired.UserID,
		Prefix:      "bbbbbbbb",
		Name:        "live",
		Permissions: apikey.AllPermissions(),
		ExpiresAt:   now.Add(time.Hour),
		CreatedAt:   now,
	}
	if err := keys.Create(ctx, expired); err != nil {
		t.Fatalf("create expired key: %v", err)
	}
	if err := keys.Create(ctx, live); err != nil {
		t.Fatalf("create live key: %v", err)
	}

	svc := NewService(store, keys, 24*time.Hour, logging.Discard())
	n, err := svc.SweepExpiredAPIKeys(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 revoked, got %d", n)
	}

	got, _ := keys.Get(ctx, expired.UserID, expired.ID)
	if !got.Revoked {
		t.Fatal("expired key not revoked")
	}
	got, _ = keys.Get(ctx, live.UserID, live.ID)
	if got.Revoked {
		t.Fatal("live key revoked")
	}
}
