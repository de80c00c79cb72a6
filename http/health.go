package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kinkando/family-task-service/pkg/logger"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sourcegraph/conc/pool"
)

type HealthzHandler struct {
	checks map[string]func(context.Context) error
}

// NewHealthzHandler registers /livez and /readyz. redisClient may be nil when revocation is
// disabled.
func NewHealthzHandler(e *echo.Echo, pgPool *pgxpool.Pool, redisClient *redis.Client) {
	checks := map[string]func(context.Context) error{
		"postgresql": pgPool.Ping,
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}
	healthzHandler := HealthzHandler{checks: checks}

	e.GET("/livez", healthzHandler.Livez)
	e.GET("/readyz", healthzHandler.Readyz)
}

func (hh *HealthzHandler) Livez(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

// Readyz runs every dependency check concurrently and fails if any of them does.
func (hh *HealthzHandler) Readyz(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	p := pool.New().WithErrors().WithContext(ctx)
	for name, check := range hh.checks {
		name, check := name, check
		p.Go(func(ctx context.Context) error {
			if err := check(ctx); err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			return nil
		})
	}

	if err := p.Wait(); err != nil {
		logger.Context(ctx).Error(err)
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": err.Error()})
	}

	return c.NoContent(http.StatusOK)
}
