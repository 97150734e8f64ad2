package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound indicates the referenced wallet or transaction does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInsufficientFunds occurs when the sender wallet lacks available balance
	// to cover a requested debit at the instant the balance is checked under lock.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrSelfTransfer indicates sender and recipient resolve to the same wallet.
	ErrSelfTransfer = errors.New("cannot transfer to own wallet")

	// ErrDuplicateReference indicates the deposit reference already exists.
	ErrDuplicateReference = errors.New("duplicate reference")
)

// TransactionType tags the direction of a money movement.
type TransactionType string

const (
	TypeDeposit          TransactionType = "deposit"
	TypeOutgoingTransfer TransactionType = "outgoing_transfer"
	TypeIncomingTransfer TransactionType = "incoming_transfer"
)

// TransactionStatus tracks the transaction lifecycle. Pending transitions to
// success or failed exactly once; both are terminal.
type TransactionStatus string

const (
	StatusPending TransactionStatus = "pending"
	StatusSuccess TransactionStatus = "success"
	StatusFailed  TransactionStatus = "failed"
)

// Wallet is a user's single balance-holding account, addressed externally by a
// wallet number. Balances never go negative.
type Wallet struct {
	ID           string
	UserID       string
	WalletNumber string
	Balance      decimal.Decimal
	CreatedAt    time.Time
}

// Transaction is a logged attempt to move money. Deposits carry a gateway
// correlation reference; transfers carry counterparty wallet numbers.
type Transaction struct {
	ID                    string
	UserID                string
	Type                  TransactionType
	Amount                decimal.Decimal
	Status                TransactionStatus
	Reference             string
	SenderWalletNumber    string
	RecipientWalletNumber string
	Description           string
	EventID               string
	CreatedAt             time.Time
}

// TransferResult reports balances after a committed transfer.
type TransferResult struct {
	OutgoingID       string
	IncomingID       string
	SenderBalance    decimal.Decimal
	RecipientBalance decimal.Decimal
}

// SettleInput carries a verified settlement event for a pending deposit.
type SettleInput struct {
	Reference string
	EventID   string
	Success   bool
	Amount    decimal.Decimal
}

// SettleResult reports what the settlement attempt did. Applied is false when
// the event was a duplicate or arrived for a non-pending transaction.
type SettleResult struct {
	Applied bool
	Status  TransactionStatus
}

// Store is the durable balance store and transaction log. All multi-write
// operations commit as a single atomic unit; implementations must never expose
// a state where a balance moved without its log entry or vice versa.
type Store interface {
	CreateWallet(ctx context.Context, w Wallet) error
	WalletByUser(ctx context.Context, userID string) (Wallet, error)
	WalletByNumber(ctx context.Context, number string) (Wallet, error)

	CreatePendingDeposit(ctx context.Context, userID, reference string, amount decimal.Decimal) (Transaction, error)
	RecentPendingDeposit(ctx context.Context, userID string, amount decimal.Decimal, since time.Time) (Transaction, error)
	FailDeposit(ctx context.Context, reference, description string) error

	Transfer(ctx context.Context, senderUserID, recipientWalletNumber string, amount decimal.Decimal) (TransferResult, error)
	Settle(ctx context.Context, input SettleInput) (SettleResult, error)

	TransactionByReference(ctx context.Context, reference string) (Transaction, error)
	TransactionsByUser(ctx context.Context, userID string) ([]Transaction, error)

	ExpirePendingBefore(ctx context.Context, cutoff time.Time, description string) (int64, error)
}
