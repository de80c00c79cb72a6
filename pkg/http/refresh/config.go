package httprefresh

import (
	"net/http"
	"time"

	httpcookie "github.com/kinkando/family-task-service/pkg/http/cookie"
)

// Config is the adapter's rendering configuration. It is passed by value: With returns a new
// Config and never changes the receiver, so per-call overrides cannot leak between requests.
type Config struct {
	AccessCookieName     string
	AccessCookieMaxAge   time.Duration
	Secure               bool
	SameSite             http.SameSite
	ClearTokensOnFailure bool
	SuccessRedirect      string
	FailureRedirect      string
}

// Option wraps an apply method to bind optional arguments to Config
type Option interface {
	apply(*Config)
}

type optionFunc func(*Config)

func (o optionFunc) apply(cfg *Config) {
	o(cfg)
}

func WithAccessCookie(name string, maxAge time.Duration) Option {
	return optionFunc(func(cfg *Config) {
		if name != "" {
			cfg.AccessCookieName = name
		}
		if maxAge > 0 {
			cfg.AccessCookieMaxAge = maxAge
		}
	})
}

func WithSecure(secure bool) Option {
	return optionFunc(func(cfg *Config) {
		cfg.Secure = secure
	})
}

func WithSameSite(sameSite http.SameSite) Option {
	return optionFunc(func(cfg *Config) {
		cfg.SameSite = sameSite
	})
}

func WithClearTokensOnFailure(clear bool) Option {
	return optionFunc(func(cfg *Config) {
		cfg.ClearTokensOnFailure = clear
	})
}

func WithSuccessRedirect(url string) Option {
	return optionFunc(func(cfg *Config) {
		if url != "" {
			cfg.SuccessRedirect = url
		}
	})
}

func WithFailureRedirect(url string) Option {
	return optionFunc(func(cfg *Config) {
		if url != "" {
			cfg.FailureRedirect = url
		}
	})
}

// DefaultConfig is secure, clears both cookies on failure and sends failures to /login.
func DefaultConfig() Config {
	return Config{
		AccessCookieName:     httpcookie.DefaultAccessCookieName,
		AccessCookieMaxAge:   httpcookie.DefaultAccessMaxAge,
		Secure:               true,
		SameSite:             http.SameSiteStrictMode,
		ClearTokensOnFailure: true,
		SuccessRedirect:      "/",
		FailureRedirect:      "/login",
	}
}

func NewConfig(opts ...Option) Config {
	return DefaultConfig().With(opts...)
}

func (cfg Config) With(opts ...Option) Config {
	for _, opt := range opts {
		opt.apply(&cfg)
	}
	return cfg
}

func (cfg Config) cookieOptions() []httpcookie.Option {
	return []httpcookie.Option{
		httpcookie.WithAccessCookie(cfg.AccessCookieName, cfg.AccessCookieMaxAge),
		httpcookie.WithSecure(cfg.Secure),
		httpcookie.WithSameSite(cfg.SameSite),
	}
}
