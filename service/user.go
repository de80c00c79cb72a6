package service

import (
	"context"

	"github.com/kinkando/family-task-service/model"
	"github.com/kinkando/family-task-service/pkg/logger"
	"github.com/kinkando/family-task-service/pkg/profile"
	"github.com/kinkando/family-task-service/repository"
)

type User interface {
	GetUserInfo(ctx context.Context) (model.User, error)
}

type user struct {
	userRepository repository.User
}

func NewUserService(userRepository repository.User) User {
	return &user{
		userRepository: userRepository,
	}
}

func (s *user) GetUserInfo(ctx context.Context) (user model.User, err error) {
	userProfile, err := profile.UseProfile(ctx)
	if err != nil {
		return
	}

	user, err = s.userRepository.GetUser(ctx, model.UserFilter{UserID: userProfile.UserID})
	if err != nil {
		logger.Context(ctx).Error(err)
		return model.User{}, err
	}

	// The role in the verified credential is authoritative for this session.
	user.Role = userProfile.Role
	return user, nil
}
