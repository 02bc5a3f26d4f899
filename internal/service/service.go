package service

import (
	"account_service/internal/auth"
	"account_service/internal/metrics"
	"account_service/internal/models"
	"account_service/internal/notify"
	"account_service/internal/storage"
	"context"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
)

type Service interface {
	Register(ctx context.Context, in RegisterInput) (models.Account, error)
	VerifyEmail(ctx context.Context, token string) (VerifyResult, error)
	Login(ctx context.Context, in LoginInput) (models.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (models.TokenPair, error)
	GetProfile(ctx context.Context, id uuid.UUID) (models.Profile, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, in ResetInput) error
}

// TokenIssuer creates and verifies purpose-bound signed tokens.
type TokenIssuer interface {
	Issue(subject uuid.UUID, purpose models.Purpose, ttl time.Duration) (string, error)
	Verify(token string, purpose models.Purpose) (uuid.UUID, error)
	IssuePair(subject uuid.UUID, accessTTL, refreshTTL time.Duration) (models.TokenPair, error)
}

type Config struct {
	VerifyTTL  time.Duration
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	ResetTTL   time.Duration
}

type Deps struct {
	Store    storage.AccountStore
	Issuer   TokenIssuer
	Notifier notify.Notifier
	Links    notify.Links
	Metrics  *metrics.Metrics
	Clock    auth.Clock
	Log      *slog.Logger
}

type service struct {
	*AccountRegistrar
	*EmailVerifier
	*AuthenticationService
	*PasswordResetFlow
}

// NewService wires the account lifecycle components over shared dependencies.
func NewService(d Deps, cfg Config) *service {
	if d.Clock == nil {
		d.Clock = auth.SystemClock
	}

	v := newValidator()

	return &service{
		AccountRegistrar:      NewAccountRegistrar(d, cfg.VerifyTTL, v),
		EmailVerifier:         NewEmailVerifier(d),
		AuthenticationService: NewAuthenticationService(d, cfg.AccessTTL, cfg.RefreshTTL),
		PasswordResetFlow:     NewPasswordResetFlow(d, cfg.ResetTTL, v),
	}
}

var _ Service = (*service)(nil)

// sharedValidator backs components built outside NewService.
var sharedValidator = newValidator()

func validatorOrDefault(v *validator.Validate) *validator.Validate {
	if v == nil {
		return sharedValidator
	}
	return v
}
