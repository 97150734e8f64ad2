package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const uniqueViolationCode = "23505"

// PostgresStore persists wallets and transactions in PostgreSQL. Atomicity is
// enforced with explicit transactions and FOR UPDATE row locks.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a Postgres-backed store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// CreateWallet inserts a wallet record.
func (s *PostgresStore) CreateWallet(ctx context.Context, w Wallet) error {
	walletID, err := uuid.Parse(w.ID)
	if err != nil {
		return err
	}
	userID, err := uuid.Parse(w.UserID)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `INSERT INTO wallets (id, user_id, wallet_number, balance, created_at)
        VALUES ($1, $2, $3, $4, $5)`, walletID, userID, w.WalletNumber, w.Balance, w.CreatedAt.UTC())
	return err
}

// WalletByUser fetches the wallet owned by the given user.
func (s *PostgresStore) WalletByUser(ctx context.Context, userID string) (Wallet, error) {
	return s.scanWallet(s.db.QueryRow(ctx, `SELECT id, user_id, wallet_number, balance, created_at
        FROM wallets WHERE user_id = $1`, userID))
}

// WalletByNumber fetches a wallet by its externally addressable number.
func (s *PostgresStore) WalletByNumber(ctx context.Context, number string) (Wallet, error) {
	return s.scanWallet(s.db.QueryRow(ctx, `SELECT id, user_id, wallet_number, balance, created_at
        FROM wallets WHERE wallet_number = $1`, number))
}

func (s *PostgresStore) scanWallet(row pgx.Row) (Wallet, error) {
	var (
		w         Wallet
		id        uuid.UUID
		userID    uuid.UUID
		createdAt time.Time
	)
	if err := row.Scan(&id, &userID, &w.WalletNumber, &w.Balance, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Wallet{}, ErrNotFound
		}
		return Wallet{}, err
	}
	w.ID = id.String()
	w.UserID = userID.String()
	w.CreatedAt = createdAt.UTC()
	return w, nil
}

// CreatePendingDeposit records a deposit attempt awaiting gateway settlement.
func (s *PostgresStore) CreatePendingDeposit(ctx context.Context, userID, reference string, amount decimal.Decimal) (Transaction, error) {
	if !amount.IsPositive() {
		return Transaction{}, fmt.Errorf("amount must be positive")
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
	_, err := s.db.Exec(ctx, `INSERT INTO transactions (id, user_id, type, amount, status, reference, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		tr.ID, tr.UserID, tr.Type, tr.Amount, tr.Status, tr.Reference, tr.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return Transaction{}, ErrDuplicateReference
		}
		return Transaction{}, err
	}
	return tr, nil
}

// RecentPendingDeposit returns the newest pending deposit matching user and
// amount created at or after the given instant. Backs the de-duplication window.
func (s *PostgresStore) RecentPendingDeposit(ctx context.Context, userID string, amount decimal.Decimal, since time.Time) (Transaction, error) {
	row := s.db.QueryRow(ctx, `SELECT id, user_id, type, amount, status, COALESCE(reference, ''),
            COALESCE(sender_wallet_number, ''), COALESCE(recipient_wallet_number, ''),
            COALESCE(description, ''), COALESCE(event_id, ''), created_at
        FROM transactions
        WHERE user_id = $1 AND type = $2 AND status = $3 AND amount = $4 AND created_at >= $5
        ORDER BY created_at DESC LIMIT 1`,
		userID, TypeDeposit, StatusPending, amount, since.UTC())
	return scanTransaction(row)
}

// FailDeposit transitions a deposit to failed after a gateway initialization
// error. Only pending rows are touched.
func (s *PostgresStore) FailDeposit(ctx context.Context, reference, description string) error {
	cmd, err := s.db.Exec(ctx, `UPDATE transactions SET status = $1, description = $2
        WHERE reference = $3 AND status = $4`,
		StatusFailed, description, reference, StatusPending)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Transfer moves funds between two wallets as one committed unit: both balance
// mutations plus the outgoing and incoming transaction rows, or nothing.
// Wallet rows are locked in lexicographic wallet-number order so two opposite
// transfers between the same pair cannot deadlock.
func (s *PostgresStore) Transfer(ctx context.Context, senderUserID, recipientWalletNumber string, amount decimal.Decimal) (TransferResult, error) {
	if !amount.IsPositive() {
		return TransferResult{}, fmt.Errorf("amount must be positive")
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return TransferResult{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	var senderNumber string
	if err := tx.QueryRow(ctx, `SELECT wallet_number FROM wallets WHERE user_id = $1`, senderUserID).Scan(&senderNumber); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return TransferResult{}, ErrNotFound
		}
		return TransferResult{}, err
	}
	if senderNumber == recipientWalletNumber {
		return TransferResult{}, ErrSelfTransfer
	}

	first, second := senderNumber, recipientWalletNumber
	if second < first {
		first, second = second, first
	}

	firstW, err := lockWallet(ctx, tx, first)
	if err != nil {
		return TransferResult{}, err
	}
	secondW, err := lockWallet(ctx, tx, second)
	if err != nil {
		return TransferResult{}, err
	}

	sender, recipient := firstW, secondW
	if sender.WalletNumber != senderNumber {
		sender, recipient = secondW, firstW
	}

	// Authoritative balance check; any pre-check outside this lock is advisory.
	if sender.Balance.LessThan(amount) {
		return TransferResult{}, ErrInsufficientFunds
	}

	senderBalance := sender.Balance.Sub(amount)
	recipientBalance := recipient.Balance.Add(amount)

	if _, err := tx.Exec(ctx, `UPDATE wallets SET balance = $1 WHERE id = $2`, senderBalance, sender.ID); err != nil {
		return TransferResult{}, err
	}
	if _, err := tx.Exec(ctx, `UPDATE wallets SET balance = $1 WHERE id = $2`, recipientBalance, recipient.ID); err != nil {
		return TransferResult{}, err
	}

	now := time.Now().UTC()
	outgoingID := uuid.NewString()
	incomingID := uuid.NewString()

	if _, err := tx.Exec(ctx, `INSERT INTO transactions (id, user_id, type, amount, status, sender_wallet_number, recipient_wallet_number, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		outgoingID, sender.UserID, TypeOutgoingTransfer, amount, StatusSuccess, sender.WalletNumber, recipient.WalletNumber, now); err != nil {
		return TransferResult{}, err
	}
	if _, err := tx.Exec(ctx, `INSERT INTO transactions (id, user_id, type, amount, status, sender_wallet_number, recipient_wallet_number, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		incomingID, recipient.UserID, TypeIncomingTransfer, amount, StatusSuccess, sender.WalletNumber, recipient.WalletNumber, now); err != nil {
		return TransferResult{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return TransferResult{}, err
	}

	return TransferResult{
		OutgoingID:       outgoingID,
		IncomingID:       incomingID,
		SenderBalance:    senderBalance,
		RecipientBalance: recipientBalance,
	}, nil
}

// Settle applies a verified settlement event to a pending deposit. The status
// transition, the event-id replay marker, and the wallet credit commit as one
// unit; a crash can never leave a success row whose credit was not applied.
func (s *PostgresStore) Settle(ctx context.Context, input SettleInput) (SettleResult, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return SettleResult{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	// The row lock serializes concurrent deliveries for the same reference, so
	// the replay check below cannot race.
	var (
		trID    uuid.UUID
		userID  uuid.UUID
		amount  decimal.Decimal
		status  TransactionStatus
		eventID string
	)
	row := tx.QueryRow(ctx, `SELECT id, user_id, amount, status, COALESCE(event_id, '')
        FROM transactions WHERE reference = $1 FOR UPDATE`, input.Reference)
	if err := row.Scan(&trID, &userID, &amount, &status, &eventID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return SettleResult{}, ErrNotFound
		}
		return SettleResult{}, err
	}

	if status != StatusPending || eventID != "" {
		return SettleResult{Applied: false, Status: status}, nil
	}

	if !input.Amount.Equal(amount) {
		desc := fmt.Sprintf("amount mismatch: expected %s, gateway reported %s", amount, input.Amount)
		if _, err := tx.Exec(ctx, `UPDATE transactions SET status = $1, event_id = $2, description = $3 WHERE id = $4`,
			StatusFailed, input.EventID, desc, trID); err != nil {
			return SettleResult{}, err
		}
		if err := tx.Commit(ctx); err != nil {
			return SettleResult{}, err
		}
		return SettleResult{Applied: true, Status: StatusFailed}, nil
	}

	if !input.Success {
		if _, err := tx.Exec(ctx, `UPDATE transactions SET status = $1, event_id = $2, description = $3 WHERE id = $4`,
			StatusFailed, input.EventID, "gateway reported failure", trID); err != nil {
			return SettleResult{}, err
		}
		if err := tx.Commit(ctx); err != nil {
			return SettleResult{}, err
		}
		return SettleResult{Applied: true, Status: StatusFailed}, nil
	}

	if _, err := tx.Exec(ctx, `UPDATE transactions SET status = $1, event_id = $2 WHERE id = $3`,
		StatusSuccess, input.EventID, trID); err != nil {
		return SettleResult{}, err
	}
	cmd, err := tx.Exec(ctx, `UPDATE wallets SET balance = balance + $1 WHERE user_id = $2`, amount, userID)
	if err != nil {
		return SettleResult{}, err
	}
	if cmd.RowsAffected() == 0 {
		return SettleResult{}, fmt.Errorf("wallet for user %s not found", userID)
	}

	if err := tx.Commit(ctx); err != nil {
		return SettleResult{}, err
	}
	return SettleResult{Applied: true, Status: StatusSuccess}, nil
}

// TransactionByReference fetches a transaction by its gateway reference.
func (s *PostgresStore) TransactionByReference(ctx context.Context, reference string) (Transaction, error) {
	row := s.db.QueryRow(ctx, `SELECT id, user_id, type, amount, status, COALESCE(reference, ''),
            COALESCE(sender_wallet_number, ''), COALESCE(recipient_wallet_number, ''),
            COALESCE(description, ''), COALESCE(event_id, ''), created_at
        FROM transactions WHERE reference = $1`, reference)
	return scanTransaction(row)
}

// TransactionsByUser lists a user's transactions, newest first.
func (s *PostgresStore) TransactionsByUser(ctx context.Context, userID string) ([]Transaction, error) {
	rows, err := s.db.Query(ctx, `SELECT id, user_id, type, amount, status, COALESCE(reference, ''),
            COALESCE(sender_wallet_number, ''), COALESCE(recipient_wallet_number, ''),
            COALESCE(description, ''), COALESCE(event_id, ''), created_at
        FROM transactions WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		tr, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tr)
	}
	return out, rows.Err()
}

// ExpirePendingBefore bulk-fails pending transactions older than the cutoff.
// Money never moved for a pending deposit, so no balance compensation is needed.
func (s *PostgresStore) ExpirePendingBefore(ctx context.Context, cutoff time.Time, description string) (int64, error) {
	cmd, err := s.db.Exec(ctx, `UPDATE transactions SET status = $1, description = $2
        WHERE status = $3 AND created_at < $4`,
		StatusFailed, description, StatusPending, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

type walletRow struct {
	ID           uuid.UUID
	UserID       string
	WalletNumber string
	Balance      decimal.Decimal
}

func lockWallet(ctx context.Context, tx pgx.Tx, number string) (walletRow, error) {
	var (
		w      walletRow
		userID uuid.UUID
	)
	row := tx.QueryRow(ctx, `SELECT id, user_id, wallet_number, balance FROM wallets
        WHERE wallet_number = $1 FOR UPDATE`, number)
	if err := row.Scan(&w.ID, &userID, &w.WalletNumber, &w.Balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return walletRow{}, ErrNotFound
		}
		return walletRow{}, err
	}
	w.UserID = userID.String()
	return w, nil
}

func scanTransaction(row pgx.Row) (Transaction, error) {
	var (
		tr        Transaction
		id        uuid.UUID
		userID    uuid.UUID
		createdAt time.Time
	)
	if err := row.Scan(&id, &userID, &tr.Type, &tr.Amount, &tr.Status, &tr.Reference,
		&tr.SenderWalletNumber, &tr.RecipientWalletNumber, &tr.Description, &tr.EventID, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Transaction{}, ErrNotFound
		}
		return Transaction{}, err
	}
	tr.ID = id.String()
	tr.UserID = userID.String()
	tr.CreatedAt = createdAt.UTC()
	return tr, nil
}
