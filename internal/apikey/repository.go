package apikey

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates the credential does not exist or is not owned by the
// caller.
var ErrNotFound = errors.New("api key not found")

// Repository persists credentials.
type Repository interface {
	Create(ctx context.Context, key Key) error
	Get(ctx context.Context, userID, keyID string) (Key, error)
	ListByUser(ctx context.Context, userID string) ([]Key, error)
	CountActive(ctx context.Context, userID string, now time.Time) (int, error)
	FindActiveByPrefix(ctx context.Context, prefix string, now time.Time) ([]Key, error)
	MarkRevoked(ctx context.Context, userID, keyID string) error
	RevokeExpired(ctx context.Context, now time.Time) (int64, error)
}

// PostgresRepository stores credentials in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed credential repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a credential row.
func (r *PostgresRepository) Create(ctx context.Context, key Key) error {
	keyID, err := uuid.Parse(key.ID)
	if err != nil {
		return err
	}
	userID, err := uuid.Parse(key.UserID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO api_keys (id, user_id, key_prefix, hashed_key, name, permissions, expires_at, revoked, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		keyID, userID, key.Prefix, key.Hash, key.Name, joinPermissions(key.Permissions),
		key.ExpiresAt.UTC(), key.Revoked, key.CreatedAt.UTC())
	return err
}

// Get fetches a credential owned by the given user.
func (r *PostgresRepository) Get(ctx context.Context, userID, keyID string) (Key, error) {
	row := r.db.QueryRow(ctx, `SELECT id, user_id, key_prefix, hashed_key, name, permissions, expires_at, revoked, created_at
        FROM api_keys WHERE id = $1 AND user_id = $2`, keyID, userID)
	return scanKey(row)
}

// ListByUser returns all credentials owned by the user, newest first.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]Key, error) {
	rows, err := r.db.Query(ctx, `SELECT id, user_id, key_prefix, hashed_key, name, permissions, expires_at, revoked, created_at
        FROM api_keys WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectKeys(rows)
}

// CountActive counts non-revoked, non-expired credentials for the user.
func (r *PostgresRepository) CountActive(ctx context.Context, userID string, now time.Time) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM api_keys
        WHERE user_id = $1 AND revoked = FALSE AND expires_at > $2`, userID, now.UTC()).Scan(&count)
	return count, err
}

// FindActiveByPrefix narrows validation candidates by lookup prefix, filtered
// to non-revoked, non-expired credentials.
func (r *PostgresRepository) FindActiveByPrefix(ctx context.Context, prefix string, now time.Time) ([]Key, error) {
	rows, err := r.db.Query(ctx, `SELECT id, user_id, key_prefix, hashed_key, name, permissions, expires_at, revoked, created_at
        FROM api_keys WHERE key_prefix = $1 AND revoked = FALSE AND expires_at > $2`, prefix, now.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectKeys(rows)
}

// MarkRevoked flips the revoked flag on a credential owned by the user.
func (r *PostgresRepository) MarkRevoked(ctx context.Context, userID, keyID string) error {
	cmd, err := r.db.Exec(ctx, `UPDATE api_keys SET revoked = TRUE WHERE id = $1 AND user_id = $2`, keyID, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// RevokeExpired bulk-revokes credentials past their expiry. Validation checks
// expiry independently; this pass is bookkeeping.
func (r *PostgresRepository) RevokeExpired(ctx context.Context, now time.Time) (int64, error) {
	cmd, err := r.db.Exec(ctx, `UPDATE api_keys SET revoked = TRUE
        WHERE revoked = FALSE AND expires_at < $1`, now.UTC())
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func scanKey(row pgx.Row) (Key, error) {
	var (
		k         Key
		id        uuid.UUID
		userID    uuid.UUID
		perms     string
		expiresAt time.Time
		createdAt time.Time
	)
	if err := row.Scan(&id, &userID, &k.Prefix, &k.Hash, &k.Name, &perms, &expiresAt, &k.Revoked, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Key{}, ErrNotFound
		}
		return Key{}, err
	}
	k.ID = id.String()
	k.UserID = userID.String()
	k.Permissions = splitPermissions(perms)
	k.ExpiresAt = expiresAt.UTC()
	k.CreatedAt = createdAt.UTC()
	return k, nil
}

func collectKeys(rows pgx.Rows) ([]Key, error) {
	var out []Key
	for rows.Next() {
		k, err := scanKey(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

func joinPermissions(perms []Permission) string {
	parts := make([]string, 0, len(perms))
	for _, p := range perms {
		parts = append(parts, string(p))
	}
	return strings.Join(parts, ",")
}

func splitPermissions(s string) []Permission {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]Permission, 0, len(parts))
	for _, p := range parts {
		out = append(out, Permission(p))
	}
	return out
}
