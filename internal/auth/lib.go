package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	letters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// ResetTokenLength is the length of opaque password reset tokens.
	ResetTokenLength = 32

	// largest multiple of len(letters) that fits in a byte; bytes above it are redrawn
	maxUnbiased = 256 - 256%len(letters)
)

// dummyHash is compared against when no account exists so that a miss costs
// as much as a wrong password.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("account-service-dummy"), bcrypt.DefaultCost)

// RandomString returns n characters drawn uniformly from [A-Za-z0-9].
func RandomString(n int) (string, error) {
	out := make([]byte, 0, n)
	buf := make([]byte, n)

	for len(out) < n {
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if int(b) >= maxUnbiased {
				continue
			}
			out = append(out, letters[int(b)%len(letters)])
			if len(out) == n {
				break
			}
		}
	}

	return string(out), nil
}

// NewResetToken returns a fresh opaque reset token and the digest to persist.
func NewResetToken() (token, digest string, err error) {
	token, err = RandomString(ResetTokenLength)
	if err != nil {
		return "", "", fmt.Errorf("auth.NewResetToken: %w", err)
	}

	return token, HashResetToken(token), nil
}

// HashResetToken is the digest under which a reset token is stored and looked up.
func HashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(hash, password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// BurnPasswordCheck spends the same time as CheckPasswordHash without an account.
func BurnPasswordCheck(password string) {
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
}
