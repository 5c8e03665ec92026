package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promptq/promptq/core/auth"
	"github.com/promptq/promptq/core/store"
	"github.com/promptq/promptq/pkg/jwt"
)

func newService(t *testing.T, opts ...auth.Option) (*auth.Service, *store.Memory) {
	t.Helper()
	st := store.NewMemory()
	signer, err := jwt.NewFromString("test-signing-key-with-enough-bytes")
	require.NoError(t, err)
	return auth.New(st, signer, opts...), st
}

func TestIssueGuest_Verifies(t *testing.T) {
	t.Parallel()

	svc, st := newService(t)
	ctx := context.Background()

	token, userID, err := svc.IssueGuest(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.NotEmpty(t, userID)

	got, err := svc.Verify(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, userID, got)

	stored, err := st.Get(ctx, "token:"+token)
	require.NoError(t, err)
	assert.Equal(t, userID, stored)
}

func TestIssueGuest_DistinctUsers(t *testing.T) {
	t.Parallel()

	svc, _ := newService(t)
	ctx := context.Background()

	_, first, err := svc.IssueGuest(ctx)
	require.NoError(t, err)
	_, second, err := svc.IssueGuest(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestVerify_Unauthenticated(t *testing.T) {
	t.Parallel()

	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Verify(ctx, "")
	assert.ErrorIs(t, err, auth.ErrUnauthenticated)

	_, err = svc.Verify(ctx, "not-a-token")
	assert.ErrorIs(t, err, auth.ErrUnauthenticated)
}

func TestVerify_ForeignSignature(t *testing.T) {
	t.Parallel()

	svc, st := newService(t)
	ctx := context.Background()

	foreignSigner, err := jwt.NewFromString("another-key-entirely-for-this-test")
	require.NoError(t, err)
	foreign := auth.New(st, foreignSigner)
	token, _, err := foreign.IssueGuest(ctx)
	require.NoError(t, err)

	_, err = svc.Verify(ctx, token)
	assert.ErrorIs(t, err, auth.ErrUnauthenticated)
}

func TestVerify_RevokedSession(t *testing.T) {
	t.Parallel()

	svc, _ := newService(t)
	ctx := context.Background()

	token, _, err := svc.IssueGuest(ctx)
	require.NoError(t, err)
	require.NoError(t, svc.Revoke(ctx, token))

	_, err = svc.Verify(ctx, token)
	assert.ErrorIs(t, err, auth.ErrRevoked)
}

func TestVerify_SessionUserMismatch(t *testing.T) {
	t.Parallel()

	svc, st := newService(t)
	ctx := context.Background()

	token, _, err := svc.IssueGuest(ctx)
	require.NoError(t, err)
	require.NoError(t, st.Set(ctx, "token:"+token, "someone-else", time.Hour))

	_, err = svc.Verify(ctx, token)
	assert.ErrorIs(t, err, auth.ErrRevoked)
}

func TestRenew(t *testing.T) {
	t.Parallel()

	svc, _ := newService(t)
	ctx := context.Background()

	token, userID, err := svc.IssueGuest(ctx)
	require.NoError(t, err)

	require.NoError(t, svc.Renew(ctx, token))
	got, err := svc.Verify(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, userID, got)

	require.NoError(t, svc.Revoke(ctx, token))
	assert.ErrorIs(t, svc.Renew(ctx, token), auth.ErrRevoked)
}
