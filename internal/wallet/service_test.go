package wallet

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Belladihno/paystack-wallet-service/internal/gateway"
	"github.com/Belladihno/paystack-wallet-service/internal/ledger"
	"github.com/Belladihno/paystack-wallet-service/internal/logging"
)

type failingGateway struct{}

func (failingGateway) InitializeTransaction(context.Context, gateway.InitializeInput) (gateway.InitializeResult, error) {
	return gateway.InitializeResult{}, errors.New("connection refused")
}

func newTestService(t *testing.T, gw gateway.Gateway) (*Service, ledger.Store, ledger.Wallet) {
	t.Helper()
	store := ledger.NewInMemory()
	w := ledger.Wallet{
		ID:           uuid.NewString(),
		UserID:       uuid.NewString(),
		WalletNumber: "1000000001",
		Balance:      decimal.Zero,
		CreatedAt:    time.Now().UTC(),
	}
	if err := store.CreateWallet(context.Background(), w); err != nil {
		t.Fatalf("create wallet: %v", err)
	}
	svc := NewService(store, gw, Config{
		DepositMin:     decimal.NewFromInt(100),
		DepositMax:     decimal.NewFromInt(10_000_000),
		DedupWindow:    time.Minute,
		GatewayTimeout: time.Second,
		CallbackURL:    "http://localhost/callback",
	}, logging.Discard())
	return svc, store, w
}

func TestDepositCreatesPendingAndReturnsCheckoutURL(t *testing.T) {
	svc, store, w := newTestService(t, gateway.StaticGateway{})
	ctx := context.Background()

	res, err := svc.Deposit(ctx, w.UserID, "user@example.com", decimal.NewFromInt(5_000))
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if !strings.HasPrefix(res.Reference, "ref_") {
		t.Fatalf("unexpected reference %q", res.Reference)
	}
	if !strings.Contains(res.AuthorizationURL, res.Reference) {
		t.Fatalf("authorization url %q does not carry reference", res.AuthorizationURL)
	}

	tr, err := store.TransactionByReference(ctx, res.Reference)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if tr.Status != ledger.StatusPending {
		t.Fatalf("expected pending, got %s", tr.Status)
	}
	if tr.Type != ledger.TypeDeposit {
		t.Fatalf("expected deposit type, got %s", tr.Type)
	}

	// No credit until settlement.
	got, _ := store.WalletByNumber(ctx, w.WalletNumber)
	if !got.Balance.IsZero() {
		t.Fatalf("deposit credited before settlement: %s", got.Balance)
	}
}

func TestDepositAmountBounds(t *testing.T) {
	svc, _, w := newTestService(t, gateway.StaticGateway{})
	ctx := context.Background()

	for _, amount := range []decimal.Decimal{
		decimal.NewFromInt(0),
		decimal.NewFromInt(-50),
		decimal.NewFromInt(99),
		decimal.NewFromInt(10_000_001),
	} {
		if _, err := svc.Deposit(ctx, w.UserID, "user@example.com", amount); !errors.Is(err, ErrAmountOutOfRange) {
			t.Fatalf("amount %s: expected ErrAmountOutOfRange, got %v", amount, err)
		}
	}
}

func TestDepositDedupWindow(t *testing.T) {
	svc, store, w := newTestService(t, gateway.StaticGateway{})
	ctx := context.Background()

	first, err := svc.Deposit(ctx, w.UserID, "user@example.com", decimal.NewFromInt(5_000))
	if err != nil {
		t.Fatalf("first deposit: %v", err)
	}

	_, err = svc.Deposit(ctx, w.UserID, "user@example.com", decimal.NewFromInt(5_000))
	var dup *DuplicateDepositError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateDepositError, got %v", err)
	}
	if dup.Reference != first.Reference {
		t.Fatalf("expected existing reference %s, got %s", first.Reference, dup.Reference)
	}
	if dup.RetryIn <= 0 || dup.RetryIn > time.Minute {
		t.Fatalf("unexpected retry window %s", dup.RetryIn)
	}

	// A different amount is a distinct deposit, not a retry.
	if _, err := svc.Deposit(ctx, w.UserID, "user@example.com", decimal.NewFromInt(7_000)); err != nil {
		t.Fatalf("different amount rejected: %v", err)
	}

	// Once the pending deposit ages out of the window, repeats are allowed.
	tr, _ := store.TransactionByReference(ctx, first.Reference)
	ledger.BackdateTransaction(store, tr.ID, time.Now().UTC().Add(-2*time.Minute))
	if _, err := svc.Deposit(ctx, w.UserID, "user@example.com", decimal.NewFromInt(5_000)); err != nil {
		t.Fatalf("deposit after window: %v", err)
	}
}

func TestDepositGatewayFailureMarksFailed(t *testing.T) {
	svc, store, w := newTestService(t, failingGateway{})
	ctx := context.Background()

	_, err := svc.Deposit(ctx, w.UserID, "user@example.com", decimal.NewFromInt(5_000))
	if !errors.Is(err, gateway.ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}

	trs, err := store.TransactionsByUser(ctx, w.UserID)
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	if len(trs) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(trs))
	}
	if trs[0].Status != ledger.StatusFailed {
		t.Fatalf("expected failed, got %s", trs[0].Status)
	}

	// The failed row no longer blocks a retry inside the window.
	if _, err := svc.Deposit(ctx, w.UserID, "user@example.com", decimal.NewFromInt(5_000)); !errors.Is(err, gateway.ErrUpstream) {
		t.Fatalf("expected retry to reach gateway, got %v", err)
	}
}

func TestDepositUnknownUser(t *testing.T) {
	svc, _, _ := newTestService(t, gateway.StaticGateway{})
	if _, err := svc.Deposit(context.Background(), uuid.NewString(), "x@example.com", decimal.NewFromInt(500)); !errors.Is(err, ledger.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTransferChecksAmountBeforeStore(t *testing.T) {
	svc, _, w := newTestService(t, gateway.StaticGateway{})
	if _, err := svc.Transfer(context.Background(), w.UserID, "1000000002", decimal.NewFromInt(-5)); !errors.Is(err, ErrAmountOutOfRange) {
		t.Fatalf("expected ErrAmountOutOfRange, got %v", err)
	}
}

func TestDepositThenSettleCreditsBalance(t *testing.T) {
	svc, store, w := newTestService(t, gateway.StaticGateway{})
	ctx := context.Background()

	res, err := svc.Deposit(ctx, w.UserID, "user@example.com", decimal.NewFromInt(5_000))
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}

	if _, err := store.Settle(ctx, ledger.SettleInput{
		Reference: res.Reference,
		EventID:   "evt_1",
		Success:   true,
		Amount:    decimal.NewFromInt(5_000),
	}); err != nil {
		t.Fatalf("settle: %v", err)
	}

	balance, err := svc.Balance(ctx, w.UserID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if !balance.Equal(decimal.NewFromInt(5_000)) {
		t.Fatalf("expected 5000, got %s", balance)
	}

	tr, err := svc.DepositStatus(ctx, res.Reference)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if tr.Status != ledger.StatusSuccess {
		t.Fatalf("expected success, got %s", tr.Status)
	}
}
