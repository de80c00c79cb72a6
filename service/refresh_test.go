package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kinkando/family-task-service/model"
	"github.com/kinkando/family-task-service/pkg/generator"
	"github.com/kinkando/family-task-service/pkg/profile"
	"github.com/stretchr/testify/require"
)

type countingJWTService struct {
	JWTService

	verifyCalls  atomic.Int32
	issueCalls   atomic.Int32
	verifyHook   func()
	issueErr     error
	panicOnIssue bool
}

func (s *countingJWTService) VerifyRefresh(token string) (profile.Claims, error) {
	s.verifyCalls.Add(1)
	if s.verifyHook != nil {
		s.verifyHook()
	}
	return s.JWTService.VerifyRefresh(token)
}

func (s *countingJWTService) IssueAccess(p profile.Profile) (string, error) {
	s.issueCalls.Add(1)
	if s.panicOnIssue {
		panic("signer exploded")
	}
	if s.issueErr != nil {
		return "", s.issueErr
	}
	return s.JWTService.IssueAccess(p)
}

type fakeCache struct {
	mu      sync.Mutex
	revoked map[string]time.Duration
	err     error
}

func newFakeCache() *fakeCache {
	return &fakeCache{revoked: make(map[string]time.Duration)}
}

func (c *fakeCache) RevokeRefreshToken(_ context.Context, fingerprint string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.revoked[fingerprint] = ttl
	return nil
}

func (c *fakeCache) IsRefreshTokenRevoked(_ context.Context, fingerprint string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return false, c.err
	}
	_, ok := c.revoked[fingerprint]
	return ok, nil
}

// blockingCache holds IsRefreshTokenRevoked until released and fails it when the context it
// was handed is already done.
type blockingCache struct {
	*fakeCache
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newBlockingCache() *blockingCache {
	return &blockingCache{
		fakeCache: newFakeCache(),
		entered:   make(chan struct{}),
		release:   make(chan struct{}),
	}
}

func (c *blockingCache) IsRefreshTokenRevoked(ctx context.Context, fingerprint string) (bool, error) {
	c.once.Do(func() { close(c.entered) })
	<-c.release
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return c.fakeCache.IsRefreshTokenRevoked(ctx, fingerprint)
}

var testIdentity = profile.Profile{UserID: "u-1", Email: "mom@example.com", Role: profile.Parent}

func TestRefreshAccessTokenMissing(t *testing.T) {
	t.Parallel()

	codec := &countingJWTService{JWTService: newTestJWTService(t)}
	s := NewTokenRefreshService(codec, nil)

	for _, token := range []string{"", "   "} {
		result := s.RefreshAccessToken(context.Background(), model.RefreshRequest{RefreshToken: token})
		require.False(t, result.Success)
		require.Equal(t, model.ErrorCodeMissingToken, result.ErrorCode)
	}
	require.Zero(t, codec.verifyCalls.Load(), "missing token must never reach the codec")
}

func TestRefreshAccessTokenSuccess(t *testing.T) {
	t.Parallel()

	codec := newTestJWTService(t)
	s := NewTokenRefreshService(codec, newFakeCache())

	refresh, err := codec.IssueRefresh(testIdentity)
	require.NoError(t, err)

	result := s.RefreshAccessToken(context.Background(), model.RefreshRequest{RefreshToken: refresh})
	require.True(t, result.Success)
	require.Empty(t, result.ErrorCode)
	require.Equal(t, testIdentity, result.Profile)

	claims, err := codec.VerifyAccess(result.AccessToken)
	require.NoError(t, err)
	require.Equal(t, testIdentity, claims.Profile())
}

func TestRefreshAccessTokenFailures(t *testing.T) {
	t.Parallel()

	codec := newTestJWTService(t)
	expiredCodec := newTestJWTService(t, WithClock(func() time.Time { return time.Now().Add(-30 * 24 * time.Hour) }))

	access, err := codec.IssueAccess(testIdentity)
	require.NoError(t, err)
	expired, err := expiredCodec.IssueRefresh(testIdentity)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
		want  model.ErrorCode
	}{
		{"expired", expired, model.ErrorCodeExpiredToken},
		{"access token used as refresh", access, model.ErrorCodeInvalidToken},
		{"garbage", "garbage", model.ErrorCodeInvalidToken},
	}

	s := NewTokenRefreshService(codec, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := s.RefreshAccessToken(context.Background(), model.RefreshRequest{RefreshToken: tt.token})
			require.False(t, result.Success)
			require.Empty(t, result.AccessToken)
			require.Equal(t, tt.want, result.ErrorCode)
			require.NotEmpty(t, result.Error)
		})
	}
}

func TestRefreshAccessTokenRevoked(t *testing.T) {
	t.Parallel()

	codec := newTestJWTService(t)
	cache := newFakeCache()
	s := NewTokenRefreshService(codec, cache)

	refresh, err := codec.IssueRefresh(testIdentity)
	require.NoError(t, err)
	require.NoError(t, cache.RevokeRefreshToken(context.Background(), generator.Fingerprint(refresh), time.Hour))

	result := s.RefreshAccessToken(context.Background(), model.RefreshRequest{RefreshToken: refresh})
	require.False(t, result.Success)
	require.Equal(t, model.ErrorCodeInvalidToken, result.ErrorCode)
	require.False(t, s.ValidateRefreshToken(context.Background(), refresh))
}

func TestRefreshAccessTokenUnknownErrors(t *testing.T) {
	t.Parallel()

	base := newTestJWTService(t)
	refresh, err := base.IssueRefresh(testIdentity)
	require.NoError(t, err)

	t.Run("cache unavailable", func(t *testing.T) {
		cache := newFakeCache()
		cache.err = errors.New("redis down")
		s := NewTokenRefreshService(base, cache)

		result := s.RefreshAccessToken(context.Background(), model.RefreshRequest{RefreshToken: refresh})
		require.Equal(t, model.ErrorCodeUnknown, result.ErrorCode)
	})

	t.Run("signer fails", func(t *testing.T) {
		s := NewTokenRefreshService(&countingJWTService{JWTService: base, issueErr: errors.New("hsm offline")}, nil)

		result := s.RefreshAccessToken(context.Background(), model.RefreshRequest{RefreshToken: refresh})
		require.Equal(t, model.ErrorCodeUnknown, result.ErrorCode)
	})

	t.Run("signer panics", func(t *testing.T) {
		s := NewTokenRefreshService(&countingJWTService{JWTService: base, panicOnIssue: true}, nil)

		require.NotPanics(t, func() {
			result := s.RefreshAccessToken(context.Background(), model.RefreshRequest{RefreshToken: refresh})
			require.Equal(t, model.ErrorCodeUnknown, result.ErrorCode)
		})
	})
}

func TestValidateRefreshToken(t *testing.T) {
	t.Parallel()

	codec := &countingJWTService{JWTService: newTestJWTService(t)}
	s := NewTokenRefreshService(codec, newFakeCache())

	refresh, err := codec.IssueRefresh(testIdentity)
	require.NoError(t, err)
	access, err := codec.IssueAccess(testIdentity)
	require.NoError(t, err)
	issued := codec.issueCalls.Load()

	require.True(t, s.ValidateRefreshToken(context.Background(), refresh))
	require.False(t, s.ValidateRefreshToken(context.Background(), access))
	require.False(t, s.ValidateRefreshToken(context.Background(), ""))
	require.Equal(t, issued, codec.issueCalls.Load(), "validation must not issue credentials")
}

func TestRefreshAccessTokenSingleFlight(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	codec := &countingJWTService{JWTService: newTestJWTService(t)}
	refresh, err := codec.IssueRefresh(testIdentity)
	require.NoError(t, err)
	codec.verifyHook = func() { <-release }

	s := NewTokenRefreshService(codec, nil)

	const n = 8
	var wg sync.WaitGroup
	results := make(chan model.RefreshResult, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- s.RefreshAccessToken(context.Background(), model.RefreshRequest{RefreshToken: refresh})
		}()
	}

	require.Eventually(t, func() bool { return codec.verifyCalls.Load() == 1 }, time.Second, time.Millisecond)
	// Give the remaining callers time to join the in-flight call before it completes.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	close(results)

	tokens := make(map[string]struct{})
	for result := range results {
		require.True(t, result.Success)
		tokens[result.AccessToken] = struct{}{}
	}
	require.Equal(t, int32(1), codec.verifyCalls.Load())
	require.Equal(t, int32(1), codec.issueCalls.Load())
	require.Len(t, tokens, 1)
}

func TestRefreshAccessTokenSurvivesLeaderCancellation(t *testing.T) {
	t.Parallel()

	codec := &countingJWTService{JWTService: newTestJWTService(t)}
	refresh, err := codec.IssueRefresh(testIdentity)
	require.NoError(t, err)
	cache := newBlockingCache()
	s := NewTokenRefreshService(codec, cache)

	leaderCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	leader := make(chan model.RefreshResult, 1)
	go func() {
		leader <- s.RefreshAccessToken(leaderCtx, model.RefreshRequest{RefreshToken: refresh})
	}()
	<-cache.entered

	follower := make(chan model.RefreshResult, 1)
	go func() {
		follower <- s.RefreshAccessToken(context.Background(), model.RefreshRequest{RefreshToken: refresh})
	}()
	// Let the follower join before the leader goes away.
	time.Sleep(50 * time.Millisecond)
	cancel()
	close(cache.release)

	followerResult := <-follower
	require.True(t, followerResult.Success, "follower failed with %s: %s", followerResult.ErrorCode, followerResult.Error)
	require.NotEmpty(t, followerResult.AccessToken)

	leaderResult := <-leader
	require.True(t, leaderResult.Success)
	require.Equal(t, followerResult.AccessToken, leaderResult.AccessToken)
	require.Equal(t, int32(1), codec.verifyCalls.Load())
}
