package httprefresh

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/kinkando/family-task-service/model"
	httpcookie "github.com/kinkando/family-task-service/pkg/http/cookie"
	"github.com/kinkando/family-task-service/pkg/logger"
	"github.com/labstack/echo/v4"
)

// RedirectQueryParam carries the page a user was heading to through the login round trip.
const RedirectQueryParam = "redirect"

type TokenRefresher interface {
	RefreshAccessToken(ctx context.Context, req model.RefreshRequest) model.RefreshResult
	ValidateRefreshToken(ctx context.Context, refreshToken string) bool
}

// Adapter turns refresh outcomes into HTTP effects: cookies, JSON bodies and redirects.
type Adapter struct {
	refresher TokenRefresher
	cookies   *httpcookie.Store
	config    Config
}

func New(refresher TokenRefresher, cookies *httpcookie.Store, opts ...Option) (*Adapter, error) {
	if refresher == nil {
		return nil, fmt.Errorf("httprefresh: token refresher is required")
	}
	if cookies == nil {
		cookies = httpcookie.New()
	}

	cfg := NewConfig(opts...)
	if cfg.AccessCookieMaxAge >= cookies.RefreshMaxAge() {
		return nil, fmt.Errorf("httprefresh: access cookie lifetime %s must be shorter than refresh cookie lifetime %s",
			cfg.AccessCookieMaxAge, cookies.RefreshMaxAge())
	}

	return &Adapter{
		refresher: refresher,
		cookies:   cookies,
		config:    cfg,
	}, nil
}

func (a *Adapter) Config() Config {
	return a.config
}

// Refresh runs one refresh attempt for the request. On success the access cookie is rewritten;
// on failure both cookies are cleared when the resolved config asks for it.
func (a *Adapter) Refresh(c echo.Context, opts ...Option) model.RefreshResult {
	result, _ := a.refresh(c, opts...)
	return result
}

func (a *Adapter) refresh(c echo.Context, opts ...Option) (model.RefreshResult, Config) {
	ctx := c.Request().Context()
	cfg := a.config.With(opts...)
	if cfg.AccessCookieMaxAge >= a.cookies.RefreshMaxAge() {
		logger.Context(ctx).Warnf("refresh: access cookie lifetime %s is not shorter than refresh cookie lifetime %s, keeping %s",
			cfg.AccessCookieMaxAge, a.cookies.RefreshMaxAge(), a.config.AccessCookieMaxAge)
		cfg.AccessCookieMaxAge = a.config.AccessCookieMaxAge
	}
	store := a.cookies.With(cfg.cookieOptions()...)

	session := store.ReadSessionCookies(c)

	var result model.RefreshResult
	if session.Refresh == "" {
		result = model.RefreshFailure(model.ErrorCodeMissingToken, "refresh token is missing")
	} else {
		result = a.safeRefresh(ctx, session.Refresh)
	}

	if result.Success {
		store.UpdateAccessCookie(c, result.AccessToken)
		logger.Context(ctx).Infof("refresh: access token refreshed for user %s", result.Profile.UserID)
		return result, cfg
	}

	if cfg.ClearTokensOnFailure {
		store.ClearSessionCookies(c)
	}
	logger.Context(ctx).Warnf("refresh: failed with %s: %s", result.ErrorCode, result.Error)
	return result, cfg
}

func (a *Adapter) safeRefresh(ctx context.Context, refreshToken string) (result model.RefreshResult) {
	defer func() {
		if r := recover(); r != nil {
			logger.Context(ctx).Errorf("refresh: recovered from panic: %v", r)
			result = model.RefreshFailure(model.ErrorCodeUnknown, "unexpected error while refreshing session")
		}
	}()
	return a.refresher.RefreshAccessToken(ctx, model.RefreshRequest{RefreshToken: refreshToken})
}

// HandleAPIRefresh answers with 200 on success, 500 for UNKNOWN_ERROR and 401 otherwise.
func (a *Adapter) HandleAPIRefresh(c echo.Context, opts ...Option) error {
	result, _ := a.refresh(c, opts...)
	if result.Success {
		return c.JSON(http.StatusOK, model.SessionResponse{Success: true, Message: "access token refreshed"})
	}

	status := http.StatusUnauthorized
	if result.ErrorCode == model.ErrorCodeUnknown {
		status = http.StatusInternalServerError
	}
	return c.JSON(status, model.SessionResponse{
		Success:   false,
		Message:   result.Error,
		ErrorCode: result.ErrorCode,
	})
}

// HandleMiddlewareRefresh redirects to the success target, or to the failure target with the
// original destination preserved. A relative redirect query parameter overrides the success
// target.
func (a *Adapter) HandleMiddlewareRefresh(c echo.Context, opts ...Option) error {
	result, cfg := a.refresh(c, opts...)
	target := c.QueryParam(RedirectQueryParam)

	if result.Success {
		return c.Redirect(http.StatusSeeOther, SafeRedirect(target, cfg.SuccessRedirect))
	}

	failure := cfg.FailureRedirect
	if next := SafeRedirect(target, ""); next != "" {
		failure = WithRedirectQuery(failure, next)
	}
	return c.Redirect(http.StatusSeeOther, failure)
}

func (a *Adapter) ValidateRefreshToken(c echo.Context) bool {
	session := a.cookies.ReadSessionCookies(c)
	if session.Refresh == "" {
		return false
	}
	return a.refresher.ValidateRefreshToken(c.Request().Context(), session.Refresh)
}

// SafeRedirect returns target when it is a same-origin absolute path, fallback otherwise.
func SafeRedirect(target, fallback string) string {
	if target == "" || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.Contains(target, `\`) {
		return fallback
	}
	u, err := url.Parse(target)
	if err != nil || u.IsAbs() || u.Host != "" {
		return fallback
	}
	return target
}

// WithRedirectQuery appends the redirect query parameter to base.
func WithRedirectQuery(base, next string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	query := u.Query()
	query.Set(RedirectQueryParam, next)
	u.RawQuery = query.Encode()
	return u.String()
}
