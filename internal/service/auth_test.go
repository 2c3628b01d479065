package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slillebaelt-ship-it/slillebaelt-hospital/internal/domain"
)

func TestLoginIssuesVerifiableSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.svc.EnsureAdmin(ctx))

	sess, err := f.svc.Login(ctx, domain.LoginRequest{Username: "admin", Password: "admin123"})
	require.NoError(t, err)
	assert.NotEmpty(t, sess.Token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), sess.ExpiresAt, 5*time.Second)

	user, err := f.svc.VerifySession(sess.Token)
	require.NoError(t, err)
	assert.Equal(t, "admin", user)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.svc.EnsureAdmin(ctx))

	_, err := f.svc.Login(ctx, domain.LoginRequest{Username: "admin", Password: "wrong"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = f.svc.Login(ctx, domain.LoginRequest{Username: "nobody", Password: "admin123"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = f.svc.Login(ctx, domain.LoginRequest{Username: "admin"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestEnsureAdminKeepsChangedPassword(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.svc.EnsureAdmin(ctx))

	f.cfg.AdminPassword = "rotated"
	require.NoError(t, f.svc.EnsureAdmin(ctx))

	_, err := f.svc.Login(ctx, domain.LoginRequest{Username: "admin", Password: "admin123"})
	assert.NoError(t, err)
}

func TestVerifySessionRejectsExpiredAndForeignTokens(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.svc.EnsureAdmin(ctx))

	sess, err := f.svc.Login(ctx, domain.LoginRequest{Username: "admin", Password: "admin123"})
	require.NoError(t, err)

	f.svc.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = f.svc.VerifySession(sess.Token)
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	f.svc.now = func() time.Time { return time.Now().UTC() }
	f.cfg.SessionSecret = "another-secret"
	_, err = f.svc.VerifySession(sess.Token)
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = f.svc.VerifySession("")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}
