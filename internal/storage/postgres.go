package storage

import (
	"account_service/internal/models"
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

const accountColumns = "id, email, username, password_hash, is_active, reset_token_hash, reset_expires_at, created_at"

// dbPool is the subset of *pgxpool.Pool the store needs.
type dbPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

type PostgresStorage struct {
	db    dbPool
	close func()
}

func NewPostgresStorage(ctx context.Context, DbURL string) (*PostgresStorage, error) {
	const op = "storage.NewPostgresStorage"

	pool, err := pgxpool.Connect(ctx, DbURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &PostgresStorage{
		db:    pool,
		close: pool.Close,
	}, nil
}

func newPostgresStorage(db dbPool) *PostgresStorage {
	return &PostgresStorage{
		db:    db,
		close: func() {},
	}
}

func (p *PostgresStorage) Create(ctx context.Context, acc models.Account) error {
	const op = "storage.Create"

	query := fmt.Sprintf("INSERT INTO %s(%s) VALUES ($1, $2, $3, $4, $5, $6, $7, $8);", accountsTable, accountColumns)

	_, err := p.db.Exec(ctx, query,
		acc.ID,
		acc.Email,
		acc.Username,
		acc.PasswordHash,
		acc.IsActive,
		acc.ResetTokenHash,
		acc.ResetExpiresAt,
		acc.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return fmt.Errorf("%s: %w", op, ErrEmailTaken)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (p *PostgresStorage) GetByID(ctx context.Context, id uuid.UUID) (models.Account, error) {
	const op = "storage.GetByID"

	query := fmt.Sprintf("SELECT %s FROM %s WHERE id=$1;", accountColumns, accountsTable)

	acc, err := scanAccount(p.db.QueryRow(ctx, query, id))
	if err != nil {
		return models.Account{}, fmt.Errorf("%s: %w", op, err)
	}

	return acc, nil
}

func (p *PostgresStorage) GetByEmail(ctx context.Context, email string) (models.Account, error) {
	const op = "storage.GetByEmail"

	query := fmt.Sprintf("SELECT %s FROM %s WHERE email=$1;", accountColumns, accountsTable)

	acc, err := scanAccount(p.db.QueryRow(ctx, query, email))
	if err != nil {
		return models.Account{}, fmt.Errorf("%s: %w", op, err)
	}

	return acc, nil
}

func (p *PostgresStorage) GetByResetToken(ctx context.Context, digest string) (models.Account, error) {
	const op = "storage.GetByResetToken"

	query := fmt.Sprintf("SELECT %s FROM %s WHERE reset_token_hash=$1;", accountColumns, accountsTable)

	acc, err := scanAccount(p.db.QueryRow(ctx, query, digest))
	if err != nil {
		return models.Account{}, fmt.Errorf("%s: %w", op, err)
	}

	return acc, nil
}

// Update locks the row with SELECT ... FOR UPDATE for the duration of fn.
func (p *PostgresStorage) Update(ctx context.Context, id uuid.UUID, fn UpdateFunc) (models.Account, error) {
	const op = "storage.Update"

	tx, err := p.db.Begin(ctx)
	if err != nil {
		return models.Account{}, fmt.Errorf("%s: %w", op, err)
	}

	acc, err := updateInTx(ctx, tx, id, fn)
	if err != nil {
		_ = tx.Rollback(ctx)
		return models.Account{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return models.Account{}, fmt.Errorf("%s: %w", op, err)
	}

	return acc, nil
}

func updateInTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, fn UpdateFunc) (models.Account, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id=$1 FOR UPDATE;", accountColumns, accountsTable)

	acc, err := scanAccount(tx.QueryRow(ctx, query, id))
	if err != nil {
		return models.Account{}, err
	}

	if err := fn(&acc); err != nil {
		return models.Account{}, err
	}

	query = fmt.Sprintf(`UPDATE %s
	SET username=$2, password_hash=$3, is_active=$4, reset_token_hash=$5, reset_expires_at=$6
	WHERE id=$1;`, accountsTable)

	_, err = tx.Exec(ctx, query,
		acc.ID,
		acc.Username,
		acc.PasswordHash,
		acc.IsActive,
		acc.ResetTokenHash,
		acc.ResetExpiresAt,
	)
	if err != nil {
		return models.Account{}, err
	}

	return acc, nil
}

func scanAccount(row pgx.Row) (models.Account, error) {
	var acc models.Account

	err := row.Scan(
		&acc.ID,
		&acc.Email,
		&acc.Username,
		&acc.PasswordHash,
		&acc.IsActive,
		&acc.ResetTokenHash,
		&acc.ResetExpiresAt,
		&acc.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Account{}, ErrNotFound
	}
	if err != nil {
		return models.Account{}, err
	}

	return acc, nil
}

func (p *PostgresStorage) Close() {
	p.close()
}
