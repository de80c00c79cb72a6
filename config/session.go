package config

type SessionConfig struct {
	AccessCookieName     string   `env:"ACCESS_COOKIE_NAME" envDefault:"access_token"`
	RefreshCookieName    string   `env:"REFRESH_COOKIE_NAME" envDefault:"refresh_token"`
	CookieDomain         string   `env:"COOKIE_DOMAIN"`
	LoginPath            string   `env:"LOGIN_PATH" envDefault:"/login"`
	SuccessRedirect      string   `env:"SUCCESS_REDIRECT" envDefault:"/"`
	ClearTokensOnFailure bool     `env:"CLEAR_TOKENS_ON_FAILURE" envDefault:"true"`
	APIPrefixes          []string `env:"API_PREFIXES" envSeparator:"," envDefault:"/api,/auth"`
	PublicRoutes         []string `env:"PUBLIC_ROUTES" envSeparator:"," envDefault:"/login,/signup,/livez,/readyz,/static/*"`
	PublicAPIRoutes      []string `env:"PUBLIC_API_ROUTES" envSeparator:"," envDefault:"/auth/login,/auth/logout,/auth/refresh"`
	Locales              []string `env:"LOCALES" envSeparator:"," envDefault:"en,th"`
}
