package service

import (
	"account_service/internal/auth"
	"account_service/internal/metrics"
	"account_service/internal/models"
	"account_service/internal/notify"
	"account_service/internal/storage"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
)

const duplicateEmailMessage = "user with this email already exists."

type RegisterInput struct {
	Username string `json:"username" validate:"required,max=150"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=72"`
}

// AccountRegistrar creates inactive accounts and sends their verification link.
type AccountRegistrar struct {
	store     storage.AccountStore
	issuer    TokenIssuer
	notifier  notify.Notifier
	links     notify.Links
	metrics   *metrics.Metrics
	clock     auth.Clock
	log       *slog.Logger
	validate  *validator.Validate
	verifyTTL time.Duration
}

func NewAccountRegistrar(d Deps, verifyTTL time.Duration, v *validator.Validate) *AccountRegistrar {
	if d.Clock == nil {
		d.Clock = auth.SystemClock
	}

	return &AccountRegistrar{
		store:     d.Store,
		issuer:    d.Issuer,
		notifier:  d.Notifier,
		links:     d.Links,
		metrics:   d.Metrics,
		clock:     d.Clock,
		log:       d.Log,
		validate:  validatorOrDefault(v),
		verifyTTL: verifyTTL,
	}
}

// Register creates the account and sends exactly one verification email. A
// *DeliveryError means the account exists but the email did not go out.
func (r *AccountRegistrar) Register(ctx context.Context, in RegisterInput) (models.Account, error) {
	const op = "service.Register"

	log := r.log.With(slog.String("op", op))

	in.Email = NormalizeEmail(in.Email)

	if err := validateStruct(r.validate, in); err != nil {
		r.metrics.Event(metrics.EventSignup, metrics.OutcomeInvalid)
		return models.Account{}, err
	}
	if err := checkPasswordBytes("password", in.Password); err != nil {
		r.metrics.Event(metrics.EventSignup, metrics.OutcomeInvalid)
		return models.Account{}, err
	}

	_, err := r.store.GetByEmail(ctx, in.Email)
	switch {
	case err == nil:
		r.metrics.Event(metrics.EventSignup, metrics.OutcomeInvalid)
		return models.Account{}, newValidationError("email", duplicateEmailMessage)
	case !errors.Is(err, storage.ErrNotFound):
		r.metrics.Event(metrics.EventSignup, metrics.OutcomeError)
		return models.Account{}, fmt.Errorf("%s: %w", op, err)
	}

	passwordHash, err := auth.HashPassword(in.Password)
	if err != nil {
		return models.Account{}, fmt.Errorf("%s: %w", op, err)
	}

	id, err := uuid.NewV4()
	if err != nil {
		return models.Account{}, fmt.Errorf("%s: %w", op, err)
	}

	// issued before the insert so a signing failure leaves nothing behind
	token, err := r.issuer.Issue(id, models.PurposeVerifyEmail, r.verifyTTL)
	if err != nil {
		return models.Account{}, fmt.Errorf("%s: %w", op, err)
	}

	acc := models.Account{
		ID:           id,
		Email:        in.Email,
		Username:     in.Username,
		PasswordHash: passwordHash,
		IsActive:     false,
		CreatedAt:    r.clock.Now().UTC(),
	}

	if err := r.store.Create(ctx, acc); err != nil {
		if errors.Is(err, storage.ErrEmailTaken) {
			r.metrics.Event(metrics.EventSignup, metrics.OutcomeInvalid)
			return models.Account{}, newValidationError("email", duplicateEmailMessage)
		}
		r.metrics.Event(metrics.EventSignup, metrics.OutcomeError)
		return models.Account{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("account created", slog.Any("account_id", acc.ID))

	msg := notify.VerificationMessage(acc.Username, r.links.Verify(token))
	if err := r.notifier.Send(ctx, acc.Email, msg.Subject, msg.Body); err != nil {
		log.Error("failed to send verification email", slog.Any("account_id", acc.ID), slog.Any("error", err))

		r.metrics.Event(metrics.EventSignup, metrics.OutcomeDeliveryFailed)
		return acc, &DeliveryError{Err: err}
	}

	r.metrics.Event(metrics.EventSignup, metrics.OutcomeOK)

	return acc, nil
}
