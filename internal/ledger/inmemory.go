package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type inMemoryStore struct {
	mu           sync.Mutex
	wallets      map[string]*Wallet // keyed by wallet number
	userWallets  map[string]string  // user id -> wallet number
	transactions map[string]*Transaction
	byReference  map[string]string // reference -> transaction id
	order        []string          // transaction ids in insertion order
}

// NewInMemory creates a concurrency-safe in-memory store useful for unit tests.
func NewInMemory() Store {
	return &inMemoryStore{
		wallets:      make(map[string]*Wallet),
		userWallets:  make(map[string]string),
		transactions: make(map[string]*Transaction),
		byReference:  make(map[string]string),
	}
}

func (s *inMemoryStore) CreateWallet(_ context.Context, w Wallet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.wallets[w.WalletNumber]; exists {
		return fmt.Errorf("wallet number %s exists", w.WalletNumber)
	}
	if _, exists := s.userWallets[w.UserID]; exists {
		return fmt.Errorf("user %s already has a wallet", w.UserID)
	}
	stored := w
	s.wallets[w.WalletNumber] = &stored
	s.userWallets[w.UserID] = w.WalletNumber
	return nil
}

func (s *inMemoryStore) WalletByUser(_ context.Context, userID string) (Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	number, ok := s.userWallets[userID]
	if !ok {
		return Wallet{}, ErrNotFound
	}
	return *s.wallets[number], nil
}

func (s *inMemoryStore) WalletByNumber(_ context.Context, number string) (Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.wallets[number]
	if !ok {
		return Wallet{}, ErrNotFound
	}
	return *w, nil
}

func (s *inMemoryStore) CreatePendingDeposit(_ context.Context, userID, reference string, amount decimal.Decimal) (Transaction, error) {
	if !amount.IsPositive() {
		return Transaction{}, fmt.Errorf("amount must be positive")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byReference[reference]; exists {
		return Transaction{}, ErrDuplicateReference
	}
	tr := Transaction{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      TypeDeposit,
		Amount:    amount,
		Status:    StatusPending,
		Reference: reference,
		CreatedAt: time.Now().UTC(),
	}
	s.insertLocked(tr)
	return tr, nil
}

func (s *inMemoryStore) RecentPendingDeposit(_ context.Context, userID string, amount decimal.Decimal, since time.Time) (Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.order) - 1; i >= 0; i-- {
		tr := s.transactions[s.order[i]]
		if tr.UserID == userID && tr.Type == TypeDeposit && tr.Status == StatusPending &&
			tr.Amount.Equal(amount) && !tr.CreatedAt.Before(since) {
			return *tr, nil
		}
	}
	return Transaction{}, ErrNotFound
}

func (s *inMemoryStore) FailDeposit(_ context.Context, reference, description string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byReference[reference]
	if !ok {
		return ErrNotFound
	}
	tr := s.transactions[id]
	if tr.Status != StatusPending {
		return ErrNotFound
	}
	tr.Status = StatusFailed
	tr.Description = description
	return nil
}

func (s *inMemoryStore) Transfer(_ context.Context, senderUserID, recipientWalletNumber string, amount decimal.Decimal) (TransferResult, error) {
	if !amount.IsPositive() {
		return TransferResult{}, fmt.Errorf("amount must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	senderNumber, ok := s.userWallets[senderUserID]
	if !ok {
		return TransferResult{}, ErrNotFound
	}
	if senderNumber == recipientWalletNumber {
		return TransferResult{}, ErrSelfTransfer
	}
	sender := s.wallets[senderNumber]
	recipient, ok := s.wallets[recipientWalletNumber]
	if !ok {
		return TransferResult{}, ErrNotFound
	}

	if sender.Balance.LessThan(amount) {
		return TransferResult{}, ErrInsufficientFunds
	}

	sender.Balance = sender.Balance.Sub(amount)
	recipient.Balance = recipient.Balance.Add(amount)

	now := time.Now().UTC()
	outgoing := Transaction{
		ID:                    uuid.NewString(),
		UserID:                sender.UserID,
		Type:                  TypeOutgoingTransfer,
		Amount:                amount,
		Status:                StatusSuccess,
		SenderWalletNumber:    sender.WalletNumber,
		RecipientWalletNumber: recipient.WalletNumber,
		CreatedAt:             now,
	}
	incoming := Transaction{
		ID:                    uuid.NewString(),
		UserID:                recipient.UserID,
		Type:                  TypeIncomingTransfer,
		Amount:                amount,
		Status:                StatusSuccess,
		SenderWalletNumber:    sender.WalletNumber,
		RecipientWalletNumber: recipient.WalletNumber,
		CreatedAt:             now,
	}
	s.insertLocked(outgoing)
	s.insertLocked(incoming)

	return TransferResult{
		OutgoingID:       outgoing.ID,
		IncomingID:       incoming.ID,
		SenderBalance:    sender.Balance,
		RecipientBalance: recipient.Balance,
	}, nil
}

func (s *inMemoryStore) Settle(_ context.Context, input SettleInput) (SettleResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byReference[input.Reference]
	if !ok {
		return SettleResult{}, ErrNotFound
	}
	tr := s.transactions[id]

	if tr.Status != StatusPending || tr.EventID != "" {
		return SettleResult{Applied: false, Status: tr.Status}, nil
	}

	if !input.Amount.Equal(tr.Amount) {
		tr.Status = StatusFailed
		tr.EventID = input.EventID
		tr.Description = fmt.Sprintf("amount mismatch: expected %s, gateway reported %s", tr.Amount, input.Amount)
		return SettleResult{Applied: true, Status: StatusFailed}, nil
	}

	if !input.Success {
		tr.Status = StatusFailed
		tr.EventID = input.EventID
		tr.Description = "gateway reported failure"
		return SettleResult{Applied: true, Status: StatusFailed}, nil
	}

	number, ok := s.userWallets[tr.UserID]
	if !ok {
		return SettleResult{}, fmt.Errorf("wallet for user %s not found", tr.UserID)
	}
	tr.Status = StatusSuccess
	tr.EventID = input.EventID
	s.wallets[number].Balance = s.wallets[number].Balance.Add(tr.Amount)
	return SettleResult{Applied: true, Status: StatusSuccess}, nil
}

func (s *inMemoryStore) TransactionByReference(_ context.Context, reference string) (Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byReference[reference]
	if !ok {
		return Transaction{}, ErrNotFound
	}
	return *s.transactions[id], nil
}

func (s *inMemoryStore) TransactionsByUser(_ context.Context, userID string) ([]Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Transaction
	for i := len(s.order) - 1; i >= 0; i-- {
		tr := s.transactions[s.order[i]]
		if tr.UserID == userID {
			out = append(out, *tr)
		}
	}
	return out, nil
}

func (s *inMemoryStore) ExpirePendingBefore(_ context.Context, cutoff time.Time, description string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, tr := range s.transactions {
		if tr.Status == StatusPending && tr.CreatedAt.Before(cutoff) {
			tr.Status = StatusFailed
			tr.Description = description
			n++
		}
	}
	return n, nil
}

func (s *inMemoryStore) insertLocked(tr Transaction) {
	stored := tr
	s.transactions[tr.ID] = &stored
	if tr.Reference != "" {
		s.byReference[tr.Reference] = tr.ID
	}
	s.order = append(s.order, tr.ID)
}
