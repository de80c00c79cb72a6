package httpmiddleware

import (
	"net/http"
	"slices"
	"strings"

	"github.com/kinkando/family-task-service/model"
	httpcookie "github.com/kinkando/family-task-service/pkg/http/cookie"
	httprefresh "github.com/kinkando/family-task-service/pkg/http/refresh"
	"github.com/kinkando/family-task-service/pkg/logger"
	"github.com/kinkando/family-task-service/pkg/profile"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
)

const (
	UserIDHeader    = "X-User-ID"
	UserEmailHeader = "X-User-Email"
	UserRoleHeader  = "X-User-Role"
)

var identityHeaders = []string{UserIDHeader, UserEmailHeader, UserRoleHeader}

type AccessVerifier interface {
	VerifyAccess(accessToken string) (profile.Claims, error)
}

type SessionRefresher interface {
	Refresh(c echo.Context, opts ...httprefresh.Option) model.RefreshResult
}

// SessionConfig lists the routes the gateway lets through without a session. Entries match
// exactly, or by prefix when they end in "/*". Page routes also match after the locale prefix
// is removed.
type SessionConfig struct {
	PublicRoutes    []string
	PublicAPIRoutes []string
	APIPrefixes     []string
	LoginPath       string
	Locales         []string
}

type sessionGateway struct {
	verifier  AccessVerifier
	refresher SessionRefresher
	cookies   *httpcookie.Store
	config    SessionConfig
}

// Session guards every request: public routes pass through, everything else needs a verified
// access cookie or one successful inline refresh. API routes fail with 401 JSON, pages are
// redirected to the login page of their locale. Hardening headers are set on every response.
func Session(verifier AccessVerifier, refresher SessionRefresher, cookies *httpcookie.Store, cfg SessionConfig) echo.MiddlewareFunc {
	if cookies == nil {
		cookies = httpcookie.New()
	}
	if cfg.LoginPath == "" {
		cfg.LoginPath = "/login"
	}
	g := &sessionGateway{
		verifier:  verifier,
		refresher: refresher,
		cookies:   cookies,
		config:    cfg,
	}

	secure := echomiddleware.SecureWithConfig(echomiddleware.SecureConfig{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
		ReferrerPolicy:     "strict-origin-when-cross-origin",
	})

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return secure(func(c echo.Context) error {
			return g.handle(c, next)
		})
	}
}

func (g *sessionGateway) handle(c echo.Context, next echo.HandlerFunc) error {
	req := c.Request()
	ctx := req.Context()

	for _, header := range identityHeaders {
		req.Header.Del(header)
	}

	path := req.URL.Path
	if g.isPublic(path) {
		return next(c)
	}

	session := g.cookies.ReadSessionCookies(c)

	if session.Access != "" {
		claims, err := g.verifier.VerifyAccess(session.Access)
		if err == nil {
			return g.authenticated(c, next, claims.Profile())
		}
		logger.Context(ctx).Debugf("session: access token rejected: %v", err)
	}

	code := model.ErrorCodeMissingToken
	if session.Refresh != "" {
		result := g.refresher.Refresh(c)
		if result.Success {
			return g.authenticated(c, next, result.Profile)
		}
		code = result.ErrorCode
	}

	return g.unauthenticated(c, code)
}

func (g *sessionGateway) authenticated(c echo.Context, next echo.HandlerFunc, p profile.Profile) error {
	req := c.Request()
	req.Header.Set(UserIDHeader, p.UserID)
	req.Header.Set(UserEmailHeader, p.Email)
	req.Header.Set(UserRoleHeader, string(p.Role))

	ctx := profile.WithProfile(req.Context(), p)
	*req = *req.WithContext(ctx)

	return next(c)
}

func (g *sessionGateway) unauthenticated(c echo.Context, code model.ErrorCode) error {
	req := c.Request()
	logger.Context(req.Context()).Infof("session: rejecting %s %s: %s", req.Method, req.URL.Path, code)

	if g.isAPI(req.URL.Path) {
		return c.JSON(http.StatusUnauthorized, model.SessionResponse{
			Success:   false,
			Message:   "authentication required",
			ErrorCode: code,
		})
	}

	locale, _ := g.splitLocale(req.URL.Path)
	login := g.config.LoginPath
	if locale != "" {
		login = "/" + locale + login
	}
	return c.Redirect(http.StatusFound, httprefresh.WithRedirectQuery(login, req.URL.RequestURI()))
}

func (g *sessionGateway) isPublic(path string) bool {
	if matchRoute(g.config.PublicAPIRoutes, path) || matchRoute(g.config.PublicRoutes, path) {
		return true
	}
	if _, rest := g.splitLocale(path); rest != path {
		return matchRoute(g.config.PublicRoutes, rest)
	}
	return false
}

func (g *sessionGateway) isAPI(path string) bool {
	for _, prefix := range g.config.APIPrefixes {
		if path == prefix || strings.HasPrefix(path, strings.TrimSuffix(prefix, "/")+"/") {
			return true
		}
	}
	return false
}

// splitLocale turns "/th/tasks" into ("th", "/tasks"). Paths without a known locale are returned
// unchanged.
func (g *sessionGateway) splitLocale(path string) (string, string) {
	segment, rest, _ := strings.Cut(strings.TrimPrefix(path, "/"), "/")
	if segment == "" || !slices.Contains(g.config.Locales, segment) {
		return "", path
	}
	return segment, "/" + rest
}

func matchRoute(routes []string, path string) bool {
	for _, route := range routes {
		if prefix, ok := strings.CutSuffix(route, "/*"); ok {
			if path == prefix || strings.HasPrefix(path, prefix+"/") {
				return true
			}
			continue
		}
		if path == route {
			return true
		}
	}
	return false
}
