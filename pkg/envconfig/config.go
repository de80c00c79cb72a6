package envconfig

import (
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/labstack/gommon/log"
)

// Parse loads .env (when present) and then fills cfg from the environment.
func Parse[T any](cfg *T) error {
	if err := godotenv.Load(); err != nil {
		log.Warnf("unable to load .env file: %+v", err)
	}

	return env.Parse(cfg)
}
