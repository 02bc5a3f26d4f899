package auth

import (
	"account_service/internal/models"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/golang-jwt/jwt/v5"
	googleuuid "github.com/google/uuid"
)

// ErrInvalidToken covers every way a signed token can fail verification:
// malformed, bad signature, expired, wrong purpose.
var ErrInvalidToken = errors.New("invalid token")

// Clock is the time source used for issuing and expiring tokens.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock reads the wall clock.
var SystemClock Clock = systemClock{}

type Claims struct {
	Purpose models.Purpose `json:"purpose"`
	jwt.RegisteredClaims
}

// Issuer creates and verifies HS256 tokens bound to a subject and a purpose.
type Issuer struct {
	secret []byte
	issuer string
	clock  Clock
}

func NewIssuer(secret, issuer string, clock Clock) *Issuer {
	if clock == nil {
		clock = SystemClock
	}

	return &Issuer{
		secret: []byte(secret),
		issuer: issuer,
		clock:  clock,
	}
}

// Issue signs a token for subject valid for ttl.
func (i *Issuer) Issue(subject uuid.UUID, purpose models.Purpose, ttl time.Duration) (string, error) {
	const op = "auth.Issue"

	now := i.clock.Now()
	claims := &Claims{
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        googleuuid.NewString(),
			Issuer:    i.issuer,
			Subject:   subject.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return signed, nil
}

// Verify checks signature, expiry and that the token was issued for purpose,
// returning the subject. Any failure is ErrInvalidToken.
func (i *Issuer) Verify(tokenStr string, purpose models.Purpose) (uuid.UUID, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.clock.Now),
		jwt.WithIssuer(i.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return uuid.Nil, ErrInvalidToken
	}

	if claims.Purpose != purpose {
		return uuid.Nil, ErrInvalidToken
	}

	subject, err := uuid.FromString(claims.Subject)
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}

	return subject, nil
}

// IssuePair issues the access and refresh tokens of a login session.
func (i *Issuer) IssuePair(subject uuid.UUID, accessTTL, refreshTTL time.Duration) (models.TokenPair, error) {
	const op = "auth.IssuePair"

	access, err := i.Issue(subject, models.PurposeAccess, accessTTL)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	refresh, err := i.Issue(subject, models.PurposeRefresh, refreshTTL)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	return models.TokenPair{Access: access, Refresh: refresh}, nil
}
