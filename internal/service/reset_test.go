package service

import (
	"account_service/internal/auth"
	"account_service/internal/models"
	"account_service/internal/storage"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestRequestPasswordReset_KnownEmail(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	acc := f.registerVerified(t, "alice", "alice@x.com", "password1")

	require.NoError(t, f.svc.RequestPasswordReset(ctx, "alice@x.com"))

	sent := f.notifier.Sent()
	require.Len(t, sent, 2)
	assert.Equal(t, "Password Reset Request", sent[1].Subject)
	assert.Contains(t, sent[1].Body, "http://localhost:3000/auth/reset?token=")

	token := f.notifier.lastToken(t)
	assert.Len(t, token, auth.ResetTokenLength)

	stored, err := f.store.GetByID(ctx, acc.ID)
	require.NoError(t, err)
	require.True(t, stored.HasResetToken())
	assert.Equal(t, auth.HashResetToken(token), *stored.ResetTokenHash)
	assert.Equal(t, f.clock.Now().Add(testConfig.ResetTTL), *stored.ResetExpiresAt)
}

func TestRequestPasswordReset_UnknownEmail(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.svc.RequestPasswordReset(context.Background(), "nobody@x.com"))
	assert.Empty(t, f.notifier.Sent())
}

func TestRequestPasswordReset_MissingEmail(t *testing.T) {
	f := newFixture(t)

	err := f.svc.RequestPasswordReset(context.Background(), "  ")

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "email", verr.Fields[0].Field)
}

func TestRequestPasswordReset_DeliveryFailureKeepsToken(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	acc := f.registerVerified(t, "alice", "alice@x.com", "password1")
	f.notifier.err = errors.New("smtp down")

	err := f.svc.RequestPasswordReset(ctx, "alice@x.com")

	var derr *DeliveryError
	require.ErrorAs(t, err, &derr)

	stored, err := f.store.GetByID(ctx, acc.ID)
	require.NoError(t, err)
	assert.True(t, stored.HasResetToken())
}

func TestResetPassword_SingleUse(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	acc := f.registerVerified(t, "alice", "alice@x.com", "password1")

	require.NoError(t, f.svc.RequestPasswordReset(ctx, "alice@x.com"))
	token := f.notifier.lastToken(t)

	require.NoError(t, f.svc.ResetPassword(ctx, ResetInput{Token: token, Password: "password2"}))

	stored, err := f.store.GetByID(ctx, acc.ID)
	require.NoError(t, err)
	assert.False(t, stored.HasResetToken())
	assert.Nil(t, stored.ResetExpiresAt)
	assert.True(t, auth.CheckPasswordHash(stored.PasswordHash, "password2"))

	err = f.svc.ResetPassword(ctx, ResetInput{Token: token, Password: "password3"})
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = f.svc.Login(ctx, LoginInput{Email: "alice@x.com", Password: "password2"})
	assert.NoError(t, err)
}

func TestResetPassword_NewerRequestSupersedes(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.registerVerified(t, "alice", "alice@x.com", "password1")

	require.NoError(t, f.svc.RequestPasswordReset(ctx, "alice@x.com"))
	first := f.notifier.lastToken(t)

	require.NoError(t, f.svc.RequestPasswordReset(ctx, "alice@x.com"))
	second := f.notifier.lastToken(t)
	require.NotEqual(t, first, second)

	err := f.svc.ResetPassword(ctx, ResetInput{Token: first, Password: "password2"})
	assert.ErrorIs(t, err, ErrInvalidToken)

	assert.NoError(t, f.svc.ResetPassword(ctx, ResetInput{Token: second, Password: "password2"}))
}

func TestResetPassword_Expired(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	acc := f.registerVerified(t, "alice", "alice@x.com", "password1")

	require.NoError(t, f.svc.RequestPasswordReset(ctx, "alice@x.com"))
	token := f.notifier.lastToken(t)

	f.clock.Advance(testConfig.ResetTTL + time.Second)

	err := f.svc.ResetPassword(ctx, ResetInput{Token: token, Password: "password2"})
	assert.ErrorIs(t, err, ErrInvalidToken)

	stored, err := f.store.GetByID(ctx, acc.ID)
	require.NoError(t, err)
	assert.True(t, auth.CheckPasswordHash(stored.PasswordHash, "password1"))
}

func TestResetPassword_UnknownToken(t *testing.T) {
	f := newFixture(t)

	err := f.svc.ResetPassword(context.Background(), ResetInput{Token: "doesnotexist", Password: "password2"})
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestResetPassword_MissingFields(t *testing.T) {
	f := newFixture(t)

	err := f.svc.ResetPassword(context.Background(), ResetInput{})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	var fields []string
	for _, fe := range verr.Fields {
		fields = append(fields, fe.Field)
	}
	assert.ElementsMatch(t, []string{"token", "password"}, fields)
}

func TestResetPassword_ConcurrentConsumeLoses(t *testing.T) {
	store := &mockStore{}
	p := NewPasswordResetFlow(Deps{Store: store, Log: discardLogger()}, time.Hour, nil)

	digest := auth.HashResetToken("token-value")
	id := uuid.Must(uuid.NewV4())
	store.On("GetByResetToken", mock.Anything, digest).Return(models.Account{ID: id, ResetTokenHash: &digest}, nil)

	// by the time the row is locked another request already cleared the token
	store.On("Update", mock.Anything, id, mock.Anything).
		Return(models.Account{}, ErrInvalidToken).
		Run(func(args mock.Arguments) {
			fn := args.Get(2).(storage.UpdateFunc)
			err := fn(&models.Account{ID: id})
			assert.ErrorIs(t, err, ErrInvalidToken)
		})

	err := p.ResetPassword(context.Background(), ResetInput{Token: "token-value", Password: "password2"})
	assert.ErrorIs(t, err, ErrInvalidToken)
	store.AssertExpectations(t)
}
