package user

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates the user does not exist.
var ErrNotFound = errors.New("user not found")

// Repository persists users.
type Repository interface {
	Create(ctx context.Context, u User) error
	ByID(ctx context.Context, id string) (User, error)
	ByGoogleID(ctx context.Context, googleID string) (User, error)
	List(ctx context.Context) ([]User, error)
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed user repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new user.
func (r *PostgresRepository) Create(ctx context.Context, u User) error {
	userID, err := uuid.Parse(u.ID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO users (id, google_id, email, name, created_at)
        VALUES ($1, $2, $3, $4, $5)`, userID, u.GoogleID, u.Email, u.Name, u.CreatedAt.UTC())
	return err
}

// ByID fetches a user by identifier.
func (r *PostgresRepository) ByID(ctx context.Context, id string) (User, error) {
	return scanUser(r.db.QueryRow(ctx, `SELECT id, google_id, email, name, created_at
        FROM users WHERE id = $1`, id))
}

// ByGoogleID fetches a user by external identity.
func (r *PostgresRepository) ByGoogleID(ctx context.Context, googleID string) (User, error) {
	return scanUser(r.db.QueryRow(ctx, `SELECT id, google_id, email, name, created_at
        FROM users WHERE google_id = $1`, googleID))
}

// List returns all users.
func (r *PostgresRepository) List(ctx context.Context) ([]User, error) {
	rows, err := r.db.Query(ctx, `SELECT id, google_id, email, name, created_at
        FROM users ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func scanUser(row pgx.Row) (User, error) {
	var (
		u         User
		id        uuid.UUID
		createdAt time.Time
	)
	if err := row.Scan(&id, &u.GoogleID, &u.Email, &u.Name, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	u.ID = id.String()
	u.CreatedAt = createdAt.UTC()
	return u, nil
}
