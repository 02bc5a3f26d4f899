package models

import (
	"time"

	"github.com/gofrs/uuid"
)

// Purpose is the claim that states what a signed token may authorize.
type Purpose string

const (
	PurposeVerifyEmail Purpose = "verify-email"
	PurposeAccess      Purpose = "access"
	PurposeRefresh     Purpose = "refresh"
)

type Account struct {
	ID           uuid.UUID
	Email        string
	Username     string
	PasswordHash string // bcrypt hash
	IsActive     bool
	CreatedAt    time.Time

	// ResetTokenHash is the SHA-256 digest of the outstanding reset token, nil when
	// no reset request is pending.
	ResetTokenHash *string
	ResetExpiresAt *time.Time
}

// HasResetToken reports whether a reset request is outstanding.
func (a *Account) HasResetToken() bool {
	return a.ResetTokenHash != nil
}

// ClearResetToken drops any outstanding reset request.
func (a *Account) ClearResetToken() {
	a.ResetTokenHash = nil
	a.ResetExpiresAt = nil
}

type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// Profile is the public view of an Account.
type Profile struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

func (a *Account) Profile() Profile {
	return Profile{
		ID:        a.ID,
		Username:  a.Username,
		Email:     a.Email,
		IsActive:  a.IsActive,
		CreatedAt: a.CreatedAt,
	}
}
