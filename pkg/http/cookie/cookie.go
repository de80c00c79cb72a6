package httpcookie

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

const (
	DefaultAccessCookieName  = "access_token"
	DefaultRefreshCookieName = "refresh_token"

	DefaultAccessMaxAge  = 15 * time.Minute
	DefaultRefreshMaxAge = 7 * 24 * time.Hour
)

// Store owns the session cookie attribute set. Every session cookie written or deleted by the
// service goes through a Store, so HttpOnly can never be turned off and both cookies always share
// the same Secure, SameSite, Path and Domain.
type Store struct {
	accessName    string
	accessMaxAge  time.Duration
	refreshName   string
	refreshMaxAge time.Duration
	secure        bool
	sameSite      http.SameSite
	path          string
	domain        string
}

// SessionCookies holds whatever the request carried. Missing cookies are empty strings.
type SessionCookies struct {
	Access  string
	Refresh string
}

// Option wraps an apply method to bind optional arguments to Store
type Option interface {
	apply(*Store)
}

type optionFunc func(*Store)

func (o optionFunc) apply(s *Store) {
	o(s)
}

// WithAccessCookie sets the access cookie name and lifetime. Zero values keep the current ones.
func WithAccessCookie(name string, maxAge time.Duration) Option {
	return optionFunc(func(s *Store) {
		if name != "" {
			s.accessName = name
		}
		if maxAge > 0 {
			s.accessMaxAge = maxAge
		}
	})
}

// WithRefreshCookie sets the refresh cookie name and lifetime. Zero values keep the current ones.
func WithRefreshCookie(name string, maxAge time.Duration) Option {
	return optionFunc(func(s *Store) {
		if name != "" {
			s.refreshName = name
		}
		if maxAge > 0 {
			s.refreshMaxAge = maxAge
		}
	})
}

func WithSecure(secure bool) Option {
	return optionFunc(func(s *Store) {
		s.secure = secure
	})
}

func WithSameSite(sameSite http.SameSite) Option {
	return optionFunc(func(s *Store) {
		s.sameSite = sameSite
	})
}

func WithPath(path string) Option {
	return optionFunc(func(s *Store) {
		if path != "" {
			s.path = path
		}
	})
}

func WithDomain(domain string) Option {
	return optionFunc(func(s *Store) {
		s.domain = domain
	})
}

// New creates a Store with secure, httpOnly, strict same-site cookies scoped to "/".
func New(opts ...Option) *Store {
	s := &Store{
		accessName:    DefaultAccessCookieName,
		accessMaxAge:  DefaultAccessMaxAge,
		refreshName:   DefaultRefreshCookieName,
		refreshMaxAge: DefaultRefreshMaxAge,
		secure:        true,
		sameSite:      http.SameSiteStrictMode,
		path:          "/",
	}
	for _, opt := range opts {
		opt.apply(s)
	}
	return s
}

// With returns a copy of s with opts applied. s itself is left untouched.
func (s *Store) With(opts ...Option) *Store {
	clone := *s
	for _, opt := range opts {
		opt.apply(&clone)
	}
	return &clone
}

func (s *Store) AccessCookieName() string {
	return s.accessName
}

func (s *Store) RefreshCookieName() string {
	return s.refreshName
}

func (s *Store) AccessMaxAge() time.Duration {
	return s.accessMaxAge
}

func (s *Store) RefreshMaxAge() time.Duration {
	return s.refreshMaxAge
}

func (s *Store) Secure() bool {
	return s.secure
}

func (s *Store) SetSessionCookies(c echo.Context, accessToken, refreshToken string) {
	c.SetCookie(s.cookie(s.accessName, accessToken, s.accessMaxAge))
	c.SetCookie(s.cookie(s.refreshName, refreshToken, s.refreshMaxAge))
}

// UpdateAccessCookie rewrites the access cookie and leaves the refresh cookie alone.
func (s *Store) UpdateAccessCookie(c echo.Context, accessToken string) {
	c.SetCookie(s.cookie(s.accessName, accessToken, s.accessMaxAge))
}

func (s *Store) ClearSessionCookies(c echo.Context) {
	c.SetCookie(s.expired(s.accessName))
	c.SetCookie(s.expired(s.refreshName))
}

func (s *Store) ReadSessionCookies(c echo.Context) SessionCookies {
	return SessionCookies{
		Access:  s.read(c, s.accessName),
		Refresh: s.read(c, s.refreshName),
	}
}

func (s *Store) read(c echo.Context, name string) string {
	cookie, err := c.Cookie(name)
	if err != nil || cookie == nil {
		return ""
	}
	return cookie.Value
}

func (s *Store) cookie(name, value string, maxAge time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     s.path,
		Domain:   s.domain,
		MaxAge:   int(maxAge / time.Second),
		Expires:  time.Now().Add(maxAge),
		Secure:   s.secure,
		HttpOnly: true,
		SameSite: s.sameSite,
	}
}

func (s *Store) expired(name string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     s.path,
		Domain:   s.domain,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		Secure:   s.secure,
		HttpOnly: true,
		SameSite: s.sameSite,
	}
}
