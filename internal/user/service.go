package user

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Belladihno/paystack-wallet-service/internal/ledger"
)

// Service manages user provisioning and user/wallet projections.
type Service struct {
	repo  Repository
	store ledger.Store
}

// NewService creates a user service.
func NewService(repo Repository, store ledger.Store) *Service {
	return &Service{repo: repo, store: store}
}

// ProvisionInput carries the identity established by the external auth layer.
type ProvisionInput struct {
	GoogleID string
	Email    string
	Name     string
}

// Provision creates a user and their wallet. Repeat calls for the same
// external identity return the existing user.
func (s *Service) Provision(ctx context.Context, input ProvisionInput) (User, error) {
	if input.GoogleID == "" || input.Email == "" {
		return User{}, fmt.Errorf("google id and email are required")
	}

	if existing, err := s.repo.ByGoogleID(ctx, input.GoogleID); err == nil {
		return existing, nil
	} else if !errors.Is(err, ErrNotFound) {
		return User{}, err
	}

	u := User{
		ID:        uuid.NewString(),
		GoogleID:  input.GoogleID,
		Email:     input.Email,
		Name:      input.Name,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return User{}, err
	}

	w := ledger.Wallet{
		ID:           uuid.NewString(),
		UserID:       u.ID,
		WalletNumber: newWalletNumber(),
		Balance:      decimal.Zero,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.store.CreateWallet(ctx, w); err != nil {
		return User{}, err
	}

	return u, nil
}

// Account is a user annotated with wallet details.
type Account struct {
	User
	WalletNumber string
	Balance      decimal.Decimal
}

// Get returns a user with their wallet details.
func (s *Service) Get(ctx context.Context, id string) (Account, error) {
	u, err := s.repo.ByID(ctx, id)
	if err != nil {
		return Account{}, err
	}
	return s.annotate(ctx, u)
}

// List returns all users with their wallet numbers and balances.
func (s *Service) List(ctx context.Context) ([]Account, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Account, 0, len(users))
	for _, u := range users {
		acc, err := s.annotate(ctx, u)
		if err != nil {
			return nil, err
		}
		out = append(out, acc)
	}
	return out, nil
}

func (s *Service) annotate(ctx context.Context, u User) (Account, error) {
	acc := Account{User: u, Balance: decimal.Zero}
	w, err := s.store.WalletByUser(ctx, u.ID)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return acc, nil
		}
		return Account{}, err
	}
	acc.WalletNumber = w.WalletNumber
	acc.Balance = w.Balance
	return acc, nil
}

// newWalletNumber generates a 10-digit externally addressable wallet number.
func newWalletNumber() string {
	max := big.NewInt(9_000_000_000)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		panic(err)
	}
	return fmt.Sprintf("%d", n.Int64()+1_000_000_000)
}
