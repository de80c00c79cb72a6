package main

import (
	"log"
	"time"
	_ "time/tzdata"

	"github.com/kinkando/family-task-service/config"
	"github.com/kinkando/family-task-service/http"
	"github.com/kinkando/family-task-service/pkg/database/postgresql"
	"github.com/kinkando/family-task-service/pkg/database/redis"
	"github.com/kinkando/family-task-service/pkg/envconfig"
	httpcookie "github.com/kinkando/family-task-service/pkg/http/cookie"
	httpmiddleware "github.com/kinkando/family-task-service/pkg/http/middleware"
	httprefresh "github.com/kinkando/family-task-service/pkg/http/refresh"
	httpserver "github.com/kinkando/family-task-service/pkg/http/server"
	"github.com/kinkando/family-task-service/pkg/logger"
	"github.com/kinkando/family-task-service/repository"
	"github.com/kinkando/family-task-service/service"
	"github.com/labstack/echo/v4"
	goredis "github.com/redis/go-redis/v9"
)

func main() {
	var cfg config.Config
	if err := envconfig.Parse(&cfg); err != nil {
		log.Fatal(err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}
	logger.New(cfg.App.Environment)
	defer logger.Sync()

	pgPool := postgresql.New(
		postgresql.WithHost(cfg.PostgreSQL.Host),
		postgresql.WithPort(cfg.PostgreSQL.Port),
		postgresql.WithUsername(cfg.PostgreSQL.Username),
		postgresql.WithPassword(cfg.PostgreSQL.Password),
		postgresql.WithDBName(cfg.PostgreSQL.DBName),
		postgresql.WithMaxConnLifetime(time.Duration(cfg.PostgreSQL.MaxConnLifetime)*time.Minute),
		postgresql.WithMaxOpenConns(cfg.PostgreSQL.MaxOpenConns),
		postgresql.WithMaxIdleConns(cfg.PostgreSQL.MaxIdleConns),
	)
	defer postgresql.Shutdown(pgPool)

	var (
		redisClient     *goredis.Client
		cacheRepository repository.Cache
	)
	if cfg.Redis.Enabled() {
		redisClient = redis.NewClient(
			redis.WithHost(cfg.Redis.Host),
			redis.WithPort(cfg.Redis.Port),
			redis.WithUsername(cfg.Redis.Username),
			redis.WithPassword(cfg.Redis.Password),
			redis.WithDB(cfg.Redis.DB),
			redis.WithOnConnect(redis.Ping()),
		)
		defer redis.Shutdown(redisClient)
		cacheRepository = repository.NewCacheRepository(redisClient)
	} else {
		logger.Warn("redis: disabled, logout will not revoke refresh tokens")
	}

	jwtService, err := service.NewJWTService(
		cfg.App.AccessTokenSecret,
		cfg.App.RefreshTokenSecret,
		cfg.App.AccessTokenExpired,
		cfg.App.RefreshTokenExpired,
	)
	if err != nil {
		logger.Fatal(err)
	}

	userRepository := repository.NewUserRepository(pgPool)

	tokenRefreshService := service.NewTokenRefreshService(jwtService, cacheRepository)
	authenService := service.NewAuthenService(userRepository, cacheRepository, jwtService)
	userService := service.NewUserService(userRepository)

	secure := !cfg.App.IsDevelopment()
	cookies := httpcookie.New(
		httpcookie.WithAccessCookie(cfg.Session.AccessCookieName, cfg.App.AccessTokenExpired),
		httpcookie.WithRefreshCookie(cfg.Session.RefreshCookieName, cfg.App.RefreshTokenExpired),
		httpcookie.WithDomain(cfg.Session.CookieDomain),
		httpcookie.WithSecure(secure),
	)

	refreshAdapter, err := httprefresh.New(tokenRefreshService, cookies,
		httprefresh.WithAccessCookie(cfg.Session.AccessCookieName, cfg.App.AccessTokenExpired),
		httprefresh.WithSecure(secure),
		httprefresh.WithClearTokensOnFailure(cfg.Session.ClearTokensOnFailure),
		httprefresh.WithSuccessRedirect(cfg.Session.SuccessRedirect),
		httprefresh.WithFailureRedirect(cfg.Session.LoginPath),
	)
	if err != nil {
		logger.Fatal(err)
	}

	sessionGateway := httpmiddleware.Session(jwtService, refreshAdapter, cookies, httpmiddleware.SessionConfig{
		PublicRoutes:    cfg.Session.PublicRoutes,
		PublicAPIRoutes: cfg.Session.PublicAPIRoutes,
		APIPrefixes:     cfg.Session.APIPrefixes,
		LoginPath:       cfg.Session.LoginPath,
		Locales:         cfg.Session.Locales,
	})

	httpServer := httpserver.New(
		httpserver.WithPort(cfg.App.Port),
		httpserver.WithMiddlewares([]echo.MiddlewareFunc{httpmiddleware.RequestID, sessionGateway}),
	)

	validate := httpServer.Validator()
	router := httpServer.Routers()
	http.NewHealthzHandler(router, pgPool, redisClient)
	http.NewAuthenHandler(router, validate, cookies, refreshAdapter, authenService)
	http.NewUserHandler(router, userService)

	httpServer.ListenAndServe()
	httpServer.GracefulShutdown()
}
