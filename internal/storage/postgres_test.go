package storage

import (
	"account_service/internal/models"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v4"
	"github.com/pashagolub/pgxmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var columns = []string{"id", "email", "username", "password_hash", "is_active", "reset_token_hash", "reset_expires_at", "created_at"}

func newMockStorage(t *testing.T) (pgxmock.PgxPoolIface, *PostgresStorage) {
	t.Helper()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)

	return mock, newPostgresStorage(mock)
}

func accountRow(acc models.Account) *pgxmock.Rows {
	return pgxmock.NewRows(columns).AddRow(
		acc.ID,
		acc.Email,
		acc.Username,
		acc.PasswordHash,
		acc.IsActive,
		acc.ResetTokenHash,
		acc.ResetExpiresAt,
		acc.CreatedAt,
	)
}

func TestPostgresStorage_Create(t *testing.T) {
	mock, st := newMockStorage(t)
	acc := newAccount("alice@x.com")

	mock.ExpectExec("INSERT INTO accounts").
		WithArgs(acc.ID, acc.Email, acc.Username, acc.PasswordHash, false, pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, st.Create(context.Background(), acc))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStorage_CreateUniqueViolation(t *testing.T) {
	mock, st := newMockStorage(t)

	mock.ExpectExec("INSERT INTO accounts").
		WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation})

	err := st.Create(context.Background(), newAccount("alice@x.com"))
	assert.ErrorIs(t, err, ErrEmailTaken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStorage_GetByEmail(t *testing.T) {
	mock, st := newMockStorage(t)
	acc := newAccount("alice@x.com")

	mock.ExpectQuery("SELECT (.+) FROM accounts WHERE email=").
		WithArgs("alice@x.com").
		WillReturnRows(accountRow(acc))

	got, err := st.GetByEmail(context.Background(), "alice@x.com")
	require.NoError(t, err)
	assert.Equal(t, acc.ID, got.ID)
	assert.Equal(t, acc.Email, got.Email)
	assert.False(t, got.HasResetToken())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStorage_GetByIDNotFound(t *testing.T) {
	mock, st := newMockStorage(t)
	id := uuid.Must(uuid.NewV4())

	mock.ExpectQuery("SELECT (.+) FROM accounts WHERE id=").
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)

	_, err := st.GetByID(context.Background(), id)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStorage_GetByResetToken(t *testing.T) {
	mock, st := newMockStorage(t)
	acc := newAccount("alice@x.com")
	digest := "digest"
	expires := time.Now().Add(time.Hour).UTC()
	acc.ResetTokenHash = &digest
	acc.ResetExpiresAt = &expires

	mock.ExpectQuery("SELECT (.+) FROM accounts WHERE reset_token_hash=").
		WithArgs("digest").
		WillReturnRows(accountRow(acc))

	got, err := st.GetByResetToken(context.Background(), "digest")
	require.NoError(t, err)
	require.True(t, got.HasResetToken())
	assert.Equal(t, "digest", *got.ResetTokenHash)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStorage_Update(t *testing.T) {
	mock, st := newMockStorage(t)
	acc := newAccount("alice@x.com")

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM accounts WHERE id=(.+) FOR UPDATE").
		WithArgs(acc.ID).
		WillReturnRows(accountRow(acc))
	mock.ExpectExec("UPDATE accounts").
		WithArgs(acc.ID, acc.Username, acc.PasswordHash, true, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	got, err := st.Update(context.Background(), acc.ID, func(a *models.Account) error {
		a.IsActive = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, got.IsActive)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStorage_UpdateAbortRollsBack(t *testing.T) {
	mock, st := newMockStorage(t)
	acc := newAccount("alice@x.com")
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM accounts WHERE id=(.+) FOR UPDATE").
		WithArgs(acc.ID).
		WillReturnRows(accountRow(acc))
	mock.ExpectRollback()

	_, err := st.Update(context.Background(), acc.ID, func(*models.Account) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStorage_UpdateMissingRollsBack(t *testing.T) {
	mock, st := newMockStorage(t)
	id := uuid.Must(uuid.NewV4())

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM accounts WHERE id=(.+) FOR UPDATE").
		WithArgs(id).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	_, err := st.Update(context.Background(), id, func(*models.Account) error { return nil })
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
