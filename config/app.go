package config

import "time"

type AppConfig struct {
	Environment         string        `env:"ENVIRONMENT" envDefault:"development"`
	Port                int           `env:"PORT" envDefault:"8080"`
	AccessTokenSecret   string        `env:"ACCESS_TOKEN_SECRET,required"`
	RefreshTokenSecret  string        `env:"REFRESH_TOKEN_SECRET,required"`
	AccessTokenExpired  time.Duration `env:"ACCESS_TOKEN_EXPIRED" envDefault:"15m"`
	RefreshTokenExpired time.Duration `env:"REFRESH_TOKEN_EXPIRED" envDefault:"168h"`
}

// IsDevelopment reports whether cookies may be sent over plain HTTP.
func (c AppConfig) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "local"
}
