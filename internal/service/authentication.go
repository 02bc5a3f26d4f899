package service

import (
	"account_service/internal/auth"
	"account_service/internal/metrics"
	"account_service/internal/models"
	"account_service/internal/storage"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofrs/uuid"
)

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthenticationService checks credentials and issues stateless session tokens.
type AuthenticationService struct {
	store      storage.AccountStore
	issuer     TokenIssuer
	metrics    *metrics.Metrics
	log        *slog.Logger
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewAuthenticationService(d Deps, accessTTL, refreshTTL time.Duration) *AuthenticationService {
	return &AuthenticationService{
		store:      d.Store,
		issuer:     d.Issuer,
		metrics:    d.Metrics,
		log:        d.Log,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

func (a *AuthenticationService) Login(ctx context.Context, in LoginInput) (models.TokenPair, error) {
	const op = "service.Login"

	log := a.log.With(slog.String("op", op))

	var missing ValidationError
	if in.Email == "" {
		missing.Fields = append(missing.Fields, FieldError{Field: "email", Message: "This field is required."})
	}
	if in.Password == "" {
		missing.Fields = append(missing.Fields, FieldError{Field: "password", Message: "This field is required."})
	}
	if len(missing.Fields) > 0 {
		return models.TokenPair{}, &missing
	}

	acc, err := a.store.GetByEmail(ctx, NormalizeEmail(in.Email))
	if errors.Is(err, storage.ErrNotFound) {
		auth.BurnPasswordCheck(in.Password)

		a.metrics.Event(metrics.EventLogin, metrics.OutcomeInvalidCredentials)
		return models.TokenPair{}, ErrInvalidCredentials
	}
	if err != nil {
		a.metrics.Event(metrics.EventLogin, metrics.OutcomeError)
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	if ok := auth.CheckPasswordHash(acc.PasswordHash, in.Password); !ok {
		a.metrics.Event(metrics.EventLogin, metrics.OutcomeInvalidCredentials)
		return models.TokenPair{}, ErrInvalidCredentials
	}

	if !acc.IsActive {
		a.metrics.Event(metrics.EventLogin, metrics.OutcomeNotVerified)
		return models.TokenPair{}, ErrAccountNotVerified
	}

	pair, err := a.issuer.IssuePair(acc.ID, a.accessTTL, a.refreshTTL)
	if err != nil {
		a.metrics.Event(metrics.EventLogin, metrics.OutcomeError)
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("account logged in", slog.Any("account_id", acc.ID))
	a.metrics.Event(metrics.EventLogin, metrics.OutcomeOK)

	return pair, nil
}

// Refresh trades a refresh token for a new token pair.
func (a *AuthenticationService) Refresh(ctx context.Context, refreshToken string) (models.TokenPair, error) {
	const op = "service.Refresh"

	id, err := a.issuer.Verify(refreshToken, models.PurposeRefresh)
	if err != nil {
		a.metrics.Event(metrics.EventRefresh, metrics.OutcomeInvalid)
		return models.TokenPair{}, ErrInvalidToken
	}

	acc, err := a.store.GetByID(ctx, id)
	if errors.Is(err, storage.ErrNotFound) || (err == nil && !acc.IsActive) {
		a.metrics.Event(metrics.EventRefresh, metrics.OutcomeInvalid)
		return models.TokenPair{}, ErrInvalidToken
	}
	if err != nil {
		a.metrics.Event(metrics.EventRefresh, metrics.OutcomeError)
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	pair, err := a.issuer.IssuePair(acc.ID, a.accessTTL, a.refreshTTL)
	if err != nil {
		a.metrics.Event(metrics.EventRefresh, metrics.OutcomeError)
		return models.TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	a.metrics.Event(metrics.EventRefresh, metrics.OutcomeOK)

	return pair, nil
}

// GetProfile loads the account named by an already verified access token.
func (a *AuthenticationService) GetProfile(ctx context.Context, id uuid.UUID) (models.Profile, error) {
	const op = "service.GetProfile"

	acc, err := a.store.GetByID(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return models.Profile{}, ErrInvalidToken
	}
	if err != nil {
		return models.Profile{}, fmt.Errorf("%s: %w", op, err)
	}

	return acc.Profile(), nil
}
