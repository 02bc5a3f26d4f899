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
)

type ResetInput struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,max=72"`
}

// PasswordResetFlow issues and consumes single-use opaque reset tokens. Only
// the most recent request per account is honored; concurrent requests race and
// the last write wins.
type PasswordResetFlow struct {
	store    storage.AccountStore
	notifier notify.Notifier
	links    notify.Links
	metrics  *metrics.Metrics
	clock    auth.Clock
	log      *slog.Logger
	validate *validator.Validate
	resetTTL time.Duration
}

func NewPasswordResetFlow(d Deps, resetTTL time.Duration, v *validator.Validate) *PasswordResetFlow {
	if d.Clock == nil {
		d.Clock = auth.SystemClock
	}

	return &PasswordResetFlow{
		store:    d.Store,
		notifier: d.Notifier,
		links:    d.Links,
		metrics:  d.Metrics,
		clock:    d.Clock,
		log:      d.Log,
		validate: validatorOrDefault(v),
		resetTTL: resetTTL,
	}
}

// RequestPasswordReset stores a fresh reset token for the account and mails
// the link. An unknown email is not an error. A *DeliveryError means the token
// was stored but the email did not go out.
func (p *PasswordResetFlow) RequestPasswordReset(ctx context.Context, email string) error {
	const op = "service.RequestPasswordReset"

	log := p.log.With(slog.String("op", op))

	email = NormalizeEmail(email)
	if email == "" {
		return newValidationError("email", "This field is required.")
	}

	acc, err := p.store.GetByEmail(ctx, email)
	if errors.Is(err, storage.ErrNotFound) {
		log.Info("password reset requested for unknown email")

		p.metrics.Event(metrics.EventResetRequest, metrics.OutcomeUnknownEmail)
		return nil
	}
	if err != nil {
		p.metrics.Event(metrics.EventResetRequest, metrics.OutcomeError)
		return fmt.Errorf("%s: %w", op, err)
	}

	token, digest, err := auth.NewResetToken()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	expires := p.clock.Now().Add(p.resetTTL).UTC()

	acc, err = p.store.Update(ctx, acc.ID, func(a *models.Account) error {
		a.ResetTokenHash = &digest
		a.ResetExpiresAt = &expires
		return nil
	})
	if err != nil {
		p.metrics.Event(metrics.EventResetRequest, metrics.OutcomeError)
		return fmt.Errorf("%s: %w", op, err)
	}

	msg := notify.ResetMessage(acc.Username, p.links.Reset(token))
	if err := p.notifier.Send(ctx, acc.Email, msg.Subject, msg.Body); err != nil {
		log.Error("failed to send reset email", slog.Any("account_id", acc.ID), slog.Any("error", err))

		p.metrics.Event(metrics.EventResetRequest, metrics.OutcomeDeliveryFailed)
		return &DeliveryError{Err: err}
	}

	log.Info("password reset requested", slog.Any("account_id", acc.ID))
	p.metrics.Event(metrics.EventResetRequest, metrics.OutcomeOK)

	return nil
}

// ResetPassword consumes a reset token and sets the new password. The token is
// cleared in the same update, so it cannot be replayed.
func (p *PasswordResetFlow) ResetPassword(ctx context.Context, in ResetInput) error {
	const op = "service.ResetPassword"

	log := p.log.With(slog.String("op", op))

	if err := validateStruct(p.validate, in); err != nil {
		return err
	}
	if err := checkPasswordBytes("password", in.Password); err != nil {
		return err
	}

	digest := auth.HashResetToken(in.Token)

	acc, err := p.store.GetByResetToken(ctx, digest)
	if errors.Is(err, storage.ErrNotFound) {
		p.metrics.Event(metrics.EventReset, metrics.OutcomeInvalid)
		return ErrInvalidToken
	}
	if err != nil {
		p.metrics.Event(metrics.EventReset, metrics.OutcomeError)
		return fmt.Errorf("%s: %w", op, err)
	}

	passwordHash, err := auth.HashPassword(in.Password)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	now := p.clock.Now()
	_, err = p.store.Update(ctx, acc.ID, func(a *models.Account) error {
		// a newer request or a concurrent consume may have replaced the token
		if a.ResetTokenHash == nil || *a.ResetTokenHash != digest {
			return ErrInvalidToken
		}
		if a.ResetExpiresAt != nil && now.After(*a.ResetExpiresAt) {
			return ErrInvalidToken
		}

		a.PasswordHash = passwordHash
		a.ClearResetToken()
		return nil
	})

	switch {
	case err == nil:
	case errors.Is(err, ErrInvalidToken), errors.Is(err, storage.ErrNotFound):
		p.metrics.Event(metrics.EventReset, metrics.OutcomeInvalid)
		return ErrInvalidToken
	default:
		p.metrics.Event(metrics.EventReset, metrics.OutcomeError)
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("password reset completed", slog.Any("account_id", acc.ID))
	p.metrics.Event(metrics.EventReset, metrics.OutcomeOK)

	return nil
}
