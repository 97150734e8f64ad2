package wallet

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Belladihno/paystack-wallet-service/internal/gateway"
	"github.com/Belladihno/paystack-wallet-service/internal/ledger"
)

// ErrAmountOutOfRange indicates the requested amount is non-positive or
// outside the configured deposit bounds.
var ErrAmountOutOfRange = errors.New("amount out of range")

// DuplicateDepositError is returned when a deposit matching an open pending
// deposit is requested inside the de-duplication window.
type DuplicateDepositError struct {
	Reference string
	RetryIn   time.Duration
}

func (e *DuplicateDepositError) Error() string {
	return fmt.Sprintf("duplicate deposit request, pending reference %s, retry in %s", e.Reference, e.RetryIn.Round(time.Second))
}

// Config carries the tunables of the wallet service.
type Config struct {
	DepositMin     decimal.Decimal
	DepositMax     decimal.Decimal
	DedupWindow    time.Duration
	GatewayTimeout time.Duration
	CallbackURL    string
}

// Service orchestrates deposits, transfers and balance queries against the
// ledger store and the payment gateway.
type Service struct {
	store   ledger.Store
	gateway gateway.Gateway
	cfg     Config
	logger  *slog.Logger
}

// NewService builds a wallet service instance.
func NewService(store ledger.Store, gw gateway.Gateway, cfg Config, logger *slog.Logger) *Service {
	return &Service{store: store, gateway: gw, cfg: cfg, logger: logger}
}

// DepositResult carries the correlation reference and the gateway redirect URL.
type DepositResult struct {
	Reference        string
	AuthorizationURL string
}

// Deposit creates a pending deposit and obtains a payment link from the
// gateway. The gateway call happens outside any wallet lock; crediting only
// ever happens later via settlement.
func (s *Service) Deposit(ctx context.Context, userID, email string, amount decimal.Decimal) (DepositResult, error) {
	if err := s.checkAmount(amount); err != nil {
		return DepositResult{}, err
	}

	// Double-submission guard: retried client requests have no gateway
	// reference yet, so dedup on (user, amount) inside a short window.
	since := time.Now().Add(-s.cfg.DedupWindow)
	if existing, err := s.store.RecentPendingDeposit(ctx, userID, amount, since); err == nil {
		retryIn := existing.CreatedAt.Add(s.cfg.DedupWindow).Sub(time.Now())
		return DepositResult{}, &DuplicateDepositError{Reference: existing.Reference, RetryIn: retryIn}
	} else if !errors.Is(err, ledger.ErrNotFound) {
		return DepositResult{}, err
	}

	if _, err := s.store.WalletByUser(ctx, userID); err != nil {
		return DepositResult{}, err
	}

	reference := newReference()
	if _, err := s.store.CreatePendingDeposit(ctx, userID, reference, amount); err != nil {
		return DepositResult{}, err
	}

	gwCtx, cancel := context.WithTimeout(ctx, s.cfg.GatewayTimeout)
	defer cancel()

	init, err := s.gateway.InitializeTransaction(gwCtx, gateway.InitializeInput{
		AmountMinor: amount.Mul(decimal.NewFromInt(100)).IntPart(),
		Email:       email,
		Reference:   reference,
		CallbackURL: s.cfg.CallbackURL,
	})
	if err != nil {
		if failErr := s.store.FailDeposit(ctx, reference, "gateway initialization failed"); failErr != nil {
			s.logger.Error("mark deposit failed", "reference", reference, "error", failErr)
		}
		return DepositResult{}, fmt.Errorf("%w: %v", gateway.ErrUpstream, err)
	}

	return DepositResult{Reference: reference, AuthorizationURL: init.AuthorizationURL}, nil
}

// Transfer moves funds synchronously between the caller's wallet and the
// recipient wallet number. Atomicity and the balance check live in the store.
func (s *Service) Transfer(ctx context.Context, userID, recipientWalletNumber string, amount decimal.Decimal) (ledger.TransferResult, error) {
	if err := s.checkAmount(amount); err != nil {
		return ledger.TransferResult{}, err
	}
	return s.store.Transfer(ctx, userID, recipientWalletNumber, amount)
}

// Balance returns the caller's current wallet balance.
func (s *Service) Balance(ctx context.Context, userID string) (decimal.Decimal, error) {
	w, err := s.store.WalletByUser(ctx, userID)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return w.Balance, nil
}

// DepositStatus reports the lifecycle state of a deposit by reference.
func (s *Service) DepositStatus(ctx context.Context, reference string) (ledger.Transaction, error) {
	return s.store.TransactionByReference(ctx, reference)
}

// Transactions lists the caller's transaction history.
func (s *Service) Transactions(ctx context.Context, userID string) ([]ledger.Transaction, error) {
	return s.store.TransactionsByUser(ctx, userID)
}

func (s *Service) checkAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() || amount.LessThan(s.cfg.DepositMin) || amount.GreaterThan(s.cfg.DepositMax) {
		return ErrAmountOutOfRange
	}
	return nil
}

func newReference() string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return fmt.Sprintf("ref_%d_%s", time.Now().UnixMilli(), hex.EncodeToString(buf))
}
