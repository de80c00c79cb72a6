package service

import (
	"context"
	"errors"
	"time"

	"github.com/kinkando/family-task-service/model"
	"github.com/kinkando/family-task-service/pkg/generator"
	"github.com/kinkando/family-task-service/pkg/logger"
	"github.com/kinkando/family-task-service/pkg/profile"
	"github.com/kinkando/family-task-service/repository"
	"golang.org/x/crypto/bcrypt"
)

type Authen interface {
	Login(ctx context.Context, req model.LoginRequest) (model.JWT, profile.Profile, error)
	Logout(ctx context.Context, refreshToken string) error
}

type authen struct {
	userRepository  repository.User
	cacheRepository repository.Cache
	jwtService      JWTService
	now             func() time.Time
}

// NewAuthenService builds login and logout. cacheRepository may be nil, logout is then
// cookie-only.
func NewAuthenService(
	userRepository repository.User,
	cacheRepository repository.Cache,
	jwtService JWTService,
) Authen {
	return &authen{
		userRepository:  userRepository,
		cacheRepository: cacheRepository,
		jwtService:      jwtService,
		now:             time.Now,
	}
}

func (s *authen) Login(ctx context.Context, req model.LoginRequest) (jwt model.JWT, identity profile.Profile, err error) {
	user, err := s.userRepository.GetUser(ctx, model.UserFilter{Email: req.Email})
	if errors.Is(err, model.ErrUserNotFound) {
		return jwt, identity, model.ErrInvalidCredentials
	} else if err != nil {
		logger.Context(ctx).Error(err)
		return
	}

	if err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		logger.Context(ctx).Warnf("login: password mismatch for user %s", user.UserID)
		return jwt, identity, model.ErrInvalidCredentials
	}

	identity = profile.Profile{UserID: user.UserID, Email: user.Email, Role: user.Role}

	jwt.AccessToken, err = s.jwtService.IssueAccess(identity)
	if err != nil {
		logger.Context(ctx).Error(err)
		return
	}

	jwt.RefreshToken, err = s.jwtService.IssueRefresh(identity)
	if err != nil {
		logger.Context(ctx).Error(err)
		return
	}

	return jwt, identity, nil
}

// Logout is idempotent: a missing or unusable refresh token is not an error.
func (s *authen) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" || s.cacheRepository == nil {
		return nil
	}

	claims, err := s.jwtService.VerifyRefresh(refreshToken)
	if err != nil {
		logger.Context(ctx).Debugf("logout: ignoring unusable refresh token: %v", err)
		return nil
	}

	ttl := time.Unix(claims.ExpiresAt, 0).Sub(s.now())
	if err = s.cacheRepository.RevokeRefreshToken(ctx, generator.Fingerprint(refreshToken), ttl); err != nil {
		logger.Context(ctx).Error(err)
		return err
	}
	return nil
}
