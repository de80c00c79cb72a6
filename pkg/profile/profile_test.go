package profile

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestUseProfile(t *testing.T) {
	t.Parallel()

	_, err := UseProfile(context.Background())
	require.Error(t, err)

	want := Profile{UserID: "u-1", Email: "mom@example.com", Role: Parent}
	got, err := UseProfile(WithProfile(context.Background(), want))
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestUseRoleProfile(t *testing.T) {
	t.Parallel()

	ctx := WithProfile(context.Background(), Profile{UserID: "u-2", Role: Child})

	_, err := UseRoleProfile(ctx, Parent)
	require.Error(t, err)

	p, err := UseRoleProfile(ctx, Parent, Child)
	require.NoError(t, err)
	require.Equal(t, "u-2", p.UserID)
}

func TestClaimsValid(t *testing.T) {
	t.Parallel()

	now := time.Now()
	valid := Claims{SubjectID: "u-1", IssuedAt: now.Unix(), ExpiresAt: now.Add(time.Minute).Unix()}
	require.NoError(t, valid.Valid())

	expired := valid
	expired.ExpiresAt = now.Add(-time.Minute).Unix()
	require.Error(t, expired.Valid())

	anonymous := valid
	anonymous.SubjectID = ""
	require.Error(t, anonymous.Valid())

	require.Equal(t, Profile{UserID: "u-1"}, valid.Profile())
}
