package config

import (
	"errors"
	"fmt"
)

type Config struct {
	App        AppConfig        `envPrefix:"APP_"`
	Session    SessionConfig    `envPrefix:"SESSION_"`
	Redis      RedisConfig      `envPrefix:"REDIS_"`
	PostgreSQL PostgreSQLConfig `envPrefix:"POSTGRESQL_"`
}

// Validate rejects configurations the session protocol cannot run with.
func (c Config) Validate() error {
	if c.App.AccessTokenSecret == "" || c.App.RefreshTokenSecret == "" {
		return errors.New("config: access and refresh token secrets are required")
	}
	if c.App.AccessTokenSecret == c.App.RefreshTokenSecret {
		return errors.New("config: access and refresh token secrets must differ")
	}
	if c.App.AccessTokenExpired <= 0 {
		return fmt.Errorf("config: access token lifetime must be positive, got %s", c.App.AccessTokenExpired)
	}
	if c.App.RefreshTokenExpired <= c.App.AccessTokenExpired {
		return fmt.Errorf("config: refresh token lifetime %s must exceed access token lifetime %s",
			c.App.RefreshTokenExpired, c.App.AccessTokenExpired)
	}
	if c.Session.AccessCookieName == "" || c.Session.RefreshCookieName == "" {
		return errors.New("config: cookie names are required")
	}
	if c.Session.AccessCookieName == c.Session.RefreshCookieName {
		return errors.New("config: access and refresh cookie names must differ")
	}
	return nil
}
