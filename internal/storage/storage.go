package storage

import (
	"account_service/internal/models"
	"context"
	"errors"

	"github.com/gofrs/uuid"
)

const accountsTable = "accounts"

var (
	ErrNotFound   = errors.New("account not found")
	ErrEmailTaken = errors.New("email already registered")
)

// UpdateFunc mutates an account inside a single-record atomic update. Returning
// an error aborts the update and leaves the record untouched.
type UpdateFunc func(acc *models.Account) error

// AccountStore persists accounts keyed by id and by unique email.
type AccountStore interface {
	// Create inserts acc; ErrEmailTaken when the email is already present.
	Create(ctx context.Context, acc models.Account) error
	GetByID(ctx context.Context, id uuid.UUID) (models.Account, error)
	GetByEmail(ctx context.Context, email string) (models.Account, error)
	// GetByResetToken finds the account whose outstanding reset digest matches.
	GetByResetToken(ctx context.Context, digest string) (models.Account, error)
	// Update runs fn against the current record and persists the result
	// atomically with respect to other updates of the same account.
	Update(ctx context.Context, id uuid.UUID, fn UpdateFunc) (models.Account, error)

	Close()
}
