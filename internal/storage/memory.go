package storage

import (
	"account_service/internal/models"
	"context"
	"fmt"
	"sync"

	"github.com/gofrs/uuid"
)

// MemoryStorage keeps accounts in process memory. It backs the local
// environment and service tests.
type MemoryStorage struct {
	mu       sync.Mutex
	accounts map[uuid.UUID]models.Account
	byEmail  map[string]uuid.UUID
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		accounts: make(map[uuid.UUID]models.Account),
		byEmail:  make(map[string]uuid.UUID),
	}
}

func (m *MemoryStorage) Create(_ context.Context, acc models.Account) error {
	const op = "storage.Create"

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.byEmail[acc.Email]; ok {
		return fmt.Errorf("%s: %w", op, ErrEmailTaken)
	}
	if _, ok := m.accounts[acc.ID]; ok {
		return fmt.Errorf("%s: duplicate id %s", op, acc.ID)
	}

	m.accounts[acc.ID] = clone(acc)
	m.byEmail[acc.Email] = acc.ID

	return nil
}

func (m *MemoryStorage) GetByID(_ context.Context, id uuid.UUID) (models.Account, error) {
	const op = "storage.GetByID"

	m.mu.Lock()
	defer m.mu.Unlock()

	acc, ok := m.accounts[id]
	if !ok {
		return models.Account{}, fmt.Errorf("%s: %w", op, ErrNotFound)
	}

	return clone(acc), nil
}

func (m *MemoryStorage) GetByEmail(_ context.Context, email string) (models.Account, error) {
	const op = "storage.GetByEmail"

	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.byEmail[email]
	if !ok {
		return models.Account{}, fmt.Errorf("%s: %w", op, ErrNotFound)
	}

	return clone(m.accounts[id]), nil
}

func (m *MemoryStorage) GetByResetToken(_ context.Context, digest string) (models.Account, error) {
	const op = "storage.GetByResetToken"

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, acc := range m.accounts {
		if acc.ResetTokenHash != nil && *acc.ResetTokenHash == digest {
			return clone(acc), nil
		}
	}

	return models.Account{}, fmt.Errorf("%s: %w", op, ErrNotFound)
}

func (m *MemoryStorage) Update(_ context.Context, id uuid.UUID, fn UpdateFunc) (models.Account, error) {
	const op = "storage.Update"

	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.accounts[id]
	if !ok {
		return models.Account{}, fmt.Errorf("%s: %w", op, ErrNotFound)
	}

	acc := clone(current)
	if err := fn(&acc); err != nil {
		return models.Account{}, fmt.Errorf("%s: %w", op, err)
	}

	// id, email and created_at are immutable
	acc.ID = current.ID
	acc.Email = current.Email
	acc.CreatedAt = current.CreatedAt

	m.accounts[id] = clone(acc)

	return acc, nil
}

func (m *MemoryStorage) Close() {}

func clone(acc models.Account) models.Account {
	if acc.ResetTokenHash != nil {
		digest := *acc.ResetTokenHash
		acc.ResetTokenHash = &digest
	}
	if acc.ResetExpiresAt != nil {
		expires := *acc.ResetExpiresAt
		acc.ResetExpiresAt = &expires
	}

	return acc
}
