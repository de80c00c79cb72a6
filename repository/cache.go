package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/kinkando/family-task-service/pkg/logger"
	"github.com/kinkando/family-task-service/pkg/profile"
	goredis "github.com/redis/go-redis/v9"
)

// Cache remembers refresh credentials revoked by logout until they would have expired anyway.
type Cache interface {
	RevokeRefreshToken(ctx context.Context, fingerprint string, ttl time.Duration) error
	IsRefreshTokenRevoked(ctx context.Context, fingerprint string) (bool, error)
}

type cache struct {
	db *goredis.Client
}

func NewCacheRepository(client *goredis.Client) Cache {
	return &cache{db: client}
}

func (tr *cache) RevokeRefreshToken(ctx context.Context, fingerprint string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	err := tr.db.Set(ctx, revokedKey(fingerprint), time.Now().Unix(), ttl).Err()
	if err != nil {
		logger.Context(ctx).Error(err)
		return err
	}
	return nil
}

func (tr *cache) IsRefreshTokenRevoked(ctx context.Context, fingerprint string) (bool, error) {
	result, err := tr.db.Exists(ctx, revokedKey(fingerprint)).Result()
	if err != nil {
		logger.Context(ctx).Error(err)
		return false, err
	}
	return result > 0, nil
}

func revokedKey(fingerprint string) string {
	return fmt.Sprintf("%s:%s:%s", profile.ApplicationPrefix, profile.RevokedRefreshTokenPrefix, fingerprint)
}
