package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/kinkando/family-task-service/model"
	"github.com/kinkando/family-task-service/pkg/generator"
	"github.com/kinkando/family-task-service/pkg/logger"
	"github.com/kinkando/family-task-service/repository"
	"golang.org/x/sync/singleflight"
)

// TokenRefresh mints access credentials from refresh credentials. It never touches cookies or
// the HTTP transport and never panics across its boundary: every failure is a RefreshResult.
type TokenRefresh interface {
	RefreshAccessToken(ctx context.Context, req model.RefreshRequest) model.RefreshResult
	ValidateRefreshToken(ctx context.Context, refreshToken string) bool
}

type tokenRefresh struct {
	jwtService      JWTService
	cacheRepository repository.Cache
	inflight        singleflight.Group
}

// NewTokenRefreshService builds the refresh service. cacheRepository may be nil, in which case
// revocation is not checked.
func NewTokenRefreshService(jwtService JWTService, cacheRepository repository.Cache) TokenRefresh {
	return &tokenRefresh{
		jwtService:      jwtService,
		cacheRepository: cacheRepository,
	}
}

func (s *tokenRefresh) RefreshAccessToken(ctx context.Context, req model.RefreshRequest) model.RefreshResult {
	if strings.TrimSpace(req.RefreshToken) == "" {
		return model.RefreshFailure(model.ErrorCodeMissingToken, "refresh token is missing")
	}

	// Concurrent refreshes of the same credential share one verification and one issued token.
	// The shared work must outlive whichever caller started it.
	detached := context.WithoutCancel(ctx)
	v, _, shared := s.inflight.Do(generator.Fingerprint(req.RefreshToken), func() (interface{}, error) {
		return s.refresh(detached, req.RefreshToken), nil
	})
	result := v.(model.RefreshResult)
	if shared {
		logger.Context(ctx).Debugf("refresh: joined in-flight refresh (success=%t code=%s)", result.Success, result.ErrorCode)
	}
	return result
}

func (s *tokenRefresh) ValidateRefreshToken(ctx context.Context, refreshToken string) bool {
	if strings.TrimSpace(refreshToken) == "" {
		return false
	}
	if _, err := s.jwtService.VerifyRefresh(refreshToken); err != nil {
		return false
	}
	if s.cacheRepository == nil {
		return true
	}
	revoked, err := s.cacheRepository.IsRefreshTokenRevoked(ctx, generator.Fingerprint(refreshToken))
	return err == nil && !revoked
}

func (s *tokenRefresh) refresh(ctx context.Context, refreshToken string) (result model.RefreshResult) {
	defer func() {
		if r := recover(); r != nil {
			logger.Context(ctx).Errorf("refresh: recovered from panic: %v", r)
			result = model.RefreshFailure(model.ErrorCodeUnknown, "unexpected error while refreshing token")
		}
	}()

	claims, err := s.jwtService.VerifyRefresh(refreshToken)
	if err != nil {
		code := ClassifyVerificationError(err)
		logger.Context(ctx).Warnf("refresh: %s: %v", code, err)
		return model.RefreshFailure(code, refreshFailureMessage(code))
	}

	if s.cacheRepository != nil {
		revoked, err := s.cacheRepository.IsRefreshTokenRevoked(ctx, generator.Fingerprint(refreshToken))
		if err != nil {
			logger.Context(ctx).Error(err)
			return model.RefreshFailure(model.ErrorCodeUnknown, "unable to check refresh token state")
		}
		if revoked {
			logger.Context(ctx).Warnf("refresh: revoked refresh token used by user %s", claims.SubjectID)
			return model.RefreshFailure(model.ErrorCodeInvalidToken, refreshFailureMessage(model.ErrorCodeInvalidToken))
		}
	}

	identity := claims.Profile()
	accessToken, err := s.jwtService.IssueAccess(identity)
	if err != nil {
		logger.Context(ctx).Error(err)
		return model.RefreshFailure(model.ErrorCodeUnknown, fmt.Sprintf("unable to issue access token: %v", err))
	}

	return model.RefreshResult{
		Success:     true,
		AccessToken: accessToken,
		Profile:     identity,
	}
}

func refreshFailureMessage(code model.ErrorCode) string {
	switch code {
	case model.ErrorCodeExpiredToken:
		return "refresh token has expired"
	case model.ErrorCodeInvalidToken:
		return "refresh token is invalid"
	default:
		return "unable to refresh token"
	}
}
