package service

import (
	"account_service/internal/metrics"
	"account_service/internal/models"
	"account_service/internal/storage"
	"context"
	"errors"
	"fmt"
	"log/slog"
)

var errAlreadyVerified = errors.New("already verified")

type VerifyResult struct {
	AlreadyVerified bool
}

// EmailVerifier activates accounts from verify-email tokens.
type EmailVerifier struct {
	store   storage.AccountStore
	issuer  TokenIssuer
	metrics *metrics.Metrics
	log     *slog.Logger
}

func NewEmailVerifier(d Deps) *EmailVerifier {
	return &EmailVerifier{
		store:   d.Store,
		issuer:  d.Issuer,
		metrics: d.Metrics,
		log:     d.Log,
	}
}

// VerifyEmail activates the token's account. Verifying an active account
// succeeds without touching it.
func (v *EmailVerifier) VerifyEmail(ctx context.Context, token string) (VerifyResult, error) {
	const op = "service.VerifyEmail"

	log := v.log.With(slog.String("op", op))

	id, err := v.issuer.Verify(token, models.PurposeVerifyEmail)
	if err != nil {
		log.Debug("rejected verification token", slog.Any("error", err))

		v.metrics.Event(metrics.EventVerify, metrics.OutcomeInvalid)
		return VerifyResult{}, ErrInvalidToken
	}

	_, err = v.store.Update(ctx, id, func(acc *models.Account) error {
		if acc.IsActive {
			return errAlreadyVerified
		}
		acc.IsActive = true
		return nil
	})

	switch {
	case err == nil:
		log.Info("account verified", slog.Any("account_id", id))

		v.metrics.Event(metrics.EventVerify, metrics.OutcomeOK)
		return VerifyResult{}, nil
	case errors.Is(err, errAlreadyVerified):
		v.metrics.Event(metrics.EventVerify, metrics.OutcomeAlreadyVerified)
		return VerifyResult{AlreadyVerified: true}, nil
	case errors.Is(err, storage.ErrNotFound):
		log.Debug("verification token for missing account", slog.Any("account_id", id))

		v.metrics.Event(metrics.EventVerify, metrics.OutcomeInvalid)
		return VerifyResult{}, ErrInvalidToken
	default:
		v.metrics.Event(metrics.EventVerify, metrics.OutcomeError)
		return VerifyResult{}, fmt.Errorf("%s: %w", op, err)
	}
}
