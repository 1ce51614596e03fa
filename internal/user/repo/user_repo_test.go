package repo

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ovaphlow/pitchfork/service-portfolio-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-portfolio-go/internal/user/entity"
)

var columns = []string{"id", "name", "email", "password_hash", "created_at", "updated_at"}

func newRepoWithMock(t *testing.T) (*UserRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewUserRepo(sqlx.NewDb(db, "postgres")), mock
}

func TestEnsureTable(t *testing.T) {
	r, mock := newRepoWithMock(t)
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS users .* CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email_lower`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, r.EnsureTable(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_Success(t *testing.T) {
	r, mock := newRepoWithMock(t)
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`^INSERT INTO users .* RETURNING created_at, updated_at$`).
		WithArgs("42", "A", "a@b.com", "hash").
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	u := &entity.User{ID: "42", Name: "A", Email: "a@b.com", PasswordHash: "hash"}
	require.NoError(t, r.Create(context.Background(), u))
	assert.Equal(t, now, u.CreatedAt)
	assert.Equal(t, now, u.UpdatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_UniqueViolation(t *testing.T) {
	r, mock := newRepoWithMock(t)
	mock.ExpectQuery(`^INSERT INTO users`).
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})

	err := r.Create(context.Background(), &entity.User{ID: "1", Email: "a@b.com"})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeUserExists, apperr.Code(err))
	assert.Equal(t, "User already exists with this email", err.Error())
}

func TestCreate_DBError(t *testing.T) {
	r, mock := newRepoWithMock(t)
	mock.ExpectQuery(`^INSERT INTO users`).WillReturnError(errors.New("db down"))

	err := r.Create(context.Background(), &entity.User{ID: "1", Email: "a@b.com"})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeInternal, apperr.Code(err))
	assert.Contains(t, err.Error(), "db down")
}

func TestGetByEmail(t *testing.T) {
	r, mock := newRepoWithMock(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`FROM users WHERE LOWER\(email\) = LOWER\(\$1\)`).
		WithArgs("a@b.com").
		WillReturnRows(sqlmock.NewRows(columns).AddRow("7", "A", "a@b.com", "hash", now, now))

	u, err := r.GetByEmail(context.Background(), "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, "7", u.ID)
	assert.Equal(t, "hash", u.PasswordHash)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByID_NotFound(t *testing.T) {
	r, mock := newRepoWithMock(t)
	mock.ExpectQuery(`FROM users WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := r.GetByID(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, apperr.CodeUserNotFound, apperr.Code(err))
}

func TestGetByID_DBError(t *testing.T) {
	r, mock := newRepoWithMock(t)
	mock.ExpectQuery(`FROM users WHERE id = \$1`).WillReturnError(errors.New("conn reset"))

	_, err := r.GetByID(context.Background(), "x")
	assert.Equal(t, apperr.CodeInternal, apperr.Code(err))
}

func TestCreateIfAbsent(t *testing.T) {
	now := time.Now().UTC()

	t.Run("inserted", func(t *testing.T) {
		r, mock := newRepoWithMock(t)
		mock.ExpectQuery(`ON CONFLICT DO NOTHING`).
			WithArgs("1", "Admin User", "admin@portfolio.com", "hash").
			WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

		u, created, err := r.CreateIfAbsent(context.Background(), &entity.User{ID: "1", Name: "Admin User", Email: "admin@portfolio.com", PasswordHash: "hash"})
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, "1", u.ID)
	})

	t.Run("already present", func(t *testing.T) {
		r, mock := newRepoWithMock(t)
		mock.ExpectQuery(`ON CONFLICT DO NOTHING`).
			WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}))
		mock.ExpectQuery(`FROM users WHERE LOWER\(email\)`).
			WithArgs("admin@portfolio.com").
			WillReturnRows(sqlmock.NewRows(columns).AddRow("old", "Admin User", "admin@portfolio.com", "oldhash", now, now))

		u, created, err := r.CreateIfAbsent(context.Background(), &entity.User{ID: "new", Email: "admin@portfolio.com", PasswordHash: "hash"})
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, "old", u.ID)
		assert.Equal(t, "oldhash", u.PasswordHash)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
