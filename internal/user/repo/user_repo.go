package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/samber/oops"

	"github.com/ovaphlow/pitchfork/service-portfolio-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-portfolio-go/internal/user/entity"
)

// uniqueViolation is the Postgres SQLSTATE for unique_violation.
const uniqueViolation = "23505"

const userColumns = `id, name, email, password_hash, created_at, updated_at`

// UserRepo provides data access for users table using sqlx.
type UserRepo struct {
	db *sqlx.DB
}

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{db: db} }

// EnsureTable creates the users table if not exists (idempotent).
// The unique index on lower(email) is what makes concurrent registrations
// with the same address fail; the service-level existence check is only a
// fast path.
func (r *UserRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  email TEXT NOT NULL,
  password_hash TEXT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email_lower ON users (LOWER(email));
`
	if _, err := r.db.ExecContext(ctx, ddl); err != nil {
		return oops.Code(apperr.CodeInternal).With("operation", "ensure users table").Wrap(err)
	}
	return nil
}

// Create inserts u and fills in the timestamps assigned by the database.
// A duplicate email fails with USER_EXISTS.
func (r *UserRepo) Create(ctx context.Context, u *entity.User) error {
	const q = `INSERT INTO users (id, name, email, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`
	err := r.db.QueryRowxContext(ctx, q, u.ID, u.Name, u.Email, u.PasswordHash).Scan(&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return oops.Code(apperr.CodeUserExists).With("email", u.Email).Errorf("User already exists with this email")
		}
		return oops.Code(apperr.CodeInternal).With("operation", "insert user").Wrap(err)
	}
	return nil
}

// CreateIfAbsent inserts u unless a user with the same email exists, in
// which case the existing row is returned untouched.
func (r *UserRepo) CreateIfAbsent(ctx context.Context, u *entity.User) (*entity.User, bool, error) {
	const q = `INSERT INTO users (id, name, email, password_hash)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT DO NOTHING
		RETURNING created_at, updated_at`
	err := r.db.QueryRowxContext(ctx, q, u.ID, u.Name, u.Email, u.PasswordHash).Scan(&u.CreatedAt, &u.UpdatedAt)
	if err == nil {
		return u, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, oops.Code(apperr.CodeInternal).With("operation", "upsert user").Wrap(err)
	}
	existing, err := r.GetByEmail(ctx, u.Email)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// GetByEmail returns the user with the given normalized email or USER_NOT_FOUND.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE LOWER(email) = LOWER($1)`
	var row entity.User
	if err := r.db.GetContext(ctx, &row, q, email); err != nil {
		return nil, notFoundOr(err, "select user by email")
	}
	return &row, nil
}

// GetByID fetches a full user row or USER_NOT_FOUND.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*entity.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	var row entity.User
	if err := r.db.GetContext(ctx, &row, q, id); err != nil {
		return nil, notFoundOr(err, "select user by id")
	}
	return &row, nil
}

func notFoundOr(err error, op string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return oops.Code(apperr.CodeUserNotFound).Errorf("User not found")
	}
	return oops.Code(apperr.CodeInternal).With("operation", op).Wrap(err)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
