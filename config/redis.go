package config

// RedisConfig is optional. An empty host disables refresh token revocation on logout.
type RedisConfig struct {
	Host     string `env:"HOST"`
	Port     int    `env:"PORT" envDefault:"6379"`
	Username string `env:"USERNAME"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB"`
}

func (c RedisConfig) Enabled() bool {
	return c.Host != ""
}
