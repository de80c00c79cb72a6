package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/go-jet/jet/v2/postgres"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kinkando/family-task-service/model"
	"github.com/kinkando/family-task-service/pkg/logger"
	"github.com/kinkando/family-task-service/pkg/profile"
	"github.com/kinkando/family-task-service/repository/table"
)

type User interface {
	GetUser(ctx context.Context, filter model.UserFilter) (model.User, error)
}

type user struct {
	pgPool *pgxpool.Pool
}

func NewUserRepository(pgPool *pgxpool.Pool) User {
	return &user{
		pgPool: pgPool,
	}
}

func (r *user) GetUser(ctx context.Context, filter model.UserFilter) (user model.User, err error) {
	condition, err := userCondition(filter)
	if err != nil {
		logger.Context(ctx).Error(err)
		return
	}

	users := table.Users
	query, args := users.
		SELECT(users.UserID, users.Email, users.DisplayName, users.Role, users.PasswordHash).
		WHERE(condition).
		LIMIT(1).
		Sql()

	var (
		userID uuid.UUID
		role   string
	)
	err = r.pgPool.QueryRow(ctx, query, args...).Scan(&userID, &user.Email, &user.DisplayName, &role, &user.PasswordHash)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, model.ErrUserNotFound
	}
	if err != nil {
		logger.Context(ctx).Error(err)
		return model.User{}, err
	}

	user.UserID = userID.String()
	user.Role = profile.Role(role)
	return user, nil
}

func userCondition(filter model.UserFilter) (postgres.BoolExpression, error) {
	users := table.Users

	if filter.UserID != "" {
		userID, err := uuid.Parse(filter.UserID)
		if err != nil {
			return nil, model.ErrUserNotFound
		}
		return users.UserID.EQ(postgres.UUID(userID)), nil
	}
	if filter.Email != "" {
		return users.Email.EQ(postgres.String(strings.ToLower(strings.TrimSpace(filter.Email)))), nil
	}
	return nil, errors.New("filter must be provided")
}
