package httpmiddleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kinkando/family-task-service/model"
	httpcookie "github.com/kinkando/family-task-service/pkg/http/cookie"
	httprefresh "github.com/kinkando/family-task-service/pkg/http/refresh"
	"github.com/kinkando/family-task-service/pkg/profile"
	"github.com/kinkando/family-task-service/service"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

var testIdentity = profile.Profile{UserID: "u-1", Email: "mom@example.com", Role: profile.Parent}

type gatewayFixture struct {
	codec  service.JWTService
	router *echo.Echo
}

func newGatewayFixture(t *testing.T, opts ...service.JWTOption) *gatewayFixture {
	t.Helper()

	codec, err := service.NewJWTService("access-secret", "refresh-secret", 15*time.Minute, 7*24*time.Hour, opts...)
	require.NoError(t, err)

	cookies := httpcookie.New()
	adapter, err := httprefresh.New(service.NewTokenRefreshService(codec, nil), cookies)
	require.NoError(t, err)

	e := echo.New()
	e.Use(RequestID)
	e.Use(Session(codec, adapter, cookies, SessionConfig{
		PublicRoutes:    []string{"/login", "/static/*"},
		PublicAPIRoutes: []string{"/auth/login", "/auth/refresh"},
		APIPrefixes:     []string{"/api", "/auth"},
		LoginPath:       "/login",
		Locales:         []string{"en", "th"},
	}))

	whoami := func(c echo.Context) error {
		p, err := profile.UseProfile(c.Request().Context())
		if err != nil {
			return c.JSON(http.StatusTeapot, echo.Map{"error": err.Error()})
		}
		return c.JSON(http.StatusOK, echo.Map{
			"profile": p,
			"header":  c.Request().Header.Get(UserIDHeader),
		})
	}
	e.GET("/api/me", whoami)
	e.GET("/tasks", whoami)
	e.GET("/th/tasks", whoami)
	e.GET("/login", func(c echo.Context) error { return c.String(http.StatusOK, "login") })
	e.GET("/th/login", func(c echo.Context) error { return c.String(http.StatusOK, "login") })
	e.GET("/static/app.js", func(c echo.Context) error { return c.String(http.StatusOK, "js") })

	return &gatewayFixture{codec: codec, router: e}
}

func (f *gatewayFixture) do(method, target string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for _, cookie := range cookies {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func accessCookie(value string) *http.Cookie {
	return &http.Cookie{Name: httpcookie.DefaultAccessCookieName, Value: value}
}

func refreshCookie(value string) *http.Cookie {
	return &http.Cookie{Name: httpcookie.DefaultRefreshCookieName, Value: value}
}

func responseCookies(rec *httptest.ResponseRecorder) map[string]*http.Cookie {
	cookies := make(map[string]*http.Cookie)
	for _, cookie := range rec.Result().Cookies() {
		cookies[cookie.Name] = cookie
	}
	return cookies
}

type whoamiResponse struct {
	Profile profile.Profile `json:"profile"`
	Header  string          `json:"header"`
}

func decodeWhoami(t *testing.T, rec *httptest.ResponseRecorder) whoamiResponse {
	t.Helper()
	var body whoamiResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func requireHardened(t *testing.T, rec *httptest.ResponseRecorder) {
	t.Helper()
	require.Equal(t, "DENY", rec.Header().Get(echo.HeaderXFrameOptions))
	require.Equal(t, "nosniff", rec.Header().Get(echo.HeaderXContentTypeOptions))
	require.Equal(t, "1; mode=block", rec.Header().Get(echo.HeaderXXSSProtection))
	require.Equal(t, "strict-origin-when-cross-origin", rec.Header().Get(echo.HeaderReferrerPolicy))
}

func TestSessionPublicRoutes(t *testing.T) {
	t.Parallel()

	f := newGatewayFixture(t)
	for _, target := range []string{"/login", "/th/login", "/static/app.js"} {
		rec := f.do(http.MethodGet, target)
		require.Equal(t, http.StatusOK, rec.Code, target)
		requireHardened(t, rec)
	}
}

func TestSessionAuthenticated(t *testing.T) {
	t.Parallel()

	f := newGatewayFixture(t)
	access, err := f.codec.IssueAccess(testIdentity)
	require.NoError(t, err)

	rec := f.do(http.MethodGet, "/api/me", accessCookie(access))
	require.Equal(t, http.StatusOK, rec.Code)
	requireHardened(t, rec)
	require.Empty(t, responseCookies(rec))

	body := decodeWhoami(t, rec)
	require.Equal(t, testIdentity, body.Profile)
	require.Equal(t, testIdentity.UserID, body.Header)
}

func TestSessionStripsSpoofedIdentity(t *testing.T) {
	t.Parallel()

	f := newGatewayFixture(t)
	access, err := f.codec.IssueAccess(testIdentity)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set(UserIDHeader, "someone-else")
	req.AddCookie(accessCookie(access))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, testIdentity.UserID, decodeWhoami(t, rec).Header)
}

func TestSessionInlineRefresh(t *testing.T) {
	t.Parallel()

	f := newGatewayFixture(t)
	refresh, err := f.codec.IssueRefresh(testIdentity)
	require.NoError(t, err)

	rec := f.do(http.MethodGet, "/api/me", refreshCookie(refresh))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, testIdentity, decodeWhoami(t, rec).Profile)

	cookies := responseCookies(rec)
	require.Len(t, cookies, 1)
	updated := cookies[httpcookie.DefaultAccessCookieName]
	require.NotNil(t, updated)

	claims, err := f.codec.VerifyAccess(updated.Value)
	require.NoError(t, err)
	require.Equal(t, testIdentity, claims.Profile())
}

func TestSessionMissingCredentials(t *testing.T) {
	t.Parallel()

	f := newGatewayFixture(t)

	rec := f.do(http.MethodGet, "/api/me")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	requireHardened(t, rec)
	require.Empty(t, responseCookies(rec))

	var body model.SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.False(t, body.Success)
	require.Equal(t, model.ErrorCodeMissingToken, body.ErrorCode)
}

func TestSessionExpiredAccessWithoutRefresh(t *testing.T) {
	t.Parallel()

	past := func() time.Time { return time.Now().Add(-time.Hour) }
	f := newGatewayFixture(t, service.WithClock(past))
	expired, err := f.codec.IssueAccess(testIdentity)
	require.NoError(t, err)

	rec := f.do(http.MethodGet, "/api/me", accessCookie(expired))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	var body model.SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, model.ErrorCodeMissingToken, body.ErrorCode)
}

func TestSessionFailedRefreshFailsClosed(t *testing.T) {
	t.Parallel()

	f := newGatewayFixture(t)
	access, err := f.codec.IssueAccess(testIdentity)
	require.NoError(t, err)

	// an access credential presented as a refresh credential never verifies
	rec := f.do(http.MethodGet, "/api/me", refreshCookie(access))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	var body model.SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, model.ErrorCodeInvalidToken, body.ErrorCode)

	cookies := responseCookies(rec)
	require.Equal(t, -1, cookies[httpcookie.DefaultRefreshCookieName].MaxAge)
}

func TestSessionPageRedirect(t *testing.T) {
	t.Parallel()

	f := newGatewayFixture(t)

	rec := f.do(http.MethodGet, "/tasks?tab=done")
	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, "/login?redirect=%2Ftasks%3Ftab%3Ddone", rec.Header().Get(echo.HeaderLocation))

	rec = f.do(http.MethodGet, "/th/tasks")
	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, "/th/login?redirect=%2Fth%2Ftasks", rec.Header().Get(echo.HeaderLocation))
	requireHardened(t, rec)
}

func TestMatchRoute(t *testing.T) {
	t.Parallel()

	routes := []string{"/login", "/static/*"}
	require.True(t, matchRoute(routes, "/login"))
	require.True(t, matchRoute(routes, "/static"))
	require.True(t, matchRoute(routes, "/static/css/app.css"))
	require.False(t, matchRoute(routes, "/login/extra"))
	require.False(t, matchRoute(routes, "/staticfiles"))
}

func TestRequireRole(t *testing.T) {
	t.Parallel()

	handler := RequireRole(profile.Parent)(func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	})

	tests := []struct {
		name   string
		role   *profile.Role
		status int
	}{
		{name: "no profile", status: http.StatusUnauthorized},
		{name: "parent", role: ptr(profile.Parent), status: http.StatusNoContent},
		{name: "child", role: ptr(profile.Child), status: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
			if tt.role != nil {
				*req = *req.WithContext(profile.WithProfile(req.Context(), profile.Profile{UserID: "u-1", Role: *tt.role}))
			}
			rec := httptest.NewRecorder()
			require.NoError(t, handler(echo.New().NewContext(req, rec)))
			require.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestRequestID(t *testing.T) {
	t.Parallel()

	e := echo.New()
	e.Use(RequestID)
	e.GET("/", func(c echo.Context) error {
		return c.String(http.StatusOK, c.Get("correlationID").(string))
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(CorrelationIDHeader, "corr-1")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, "corr-1", rec.Body.String())
	require.Equal(t, "corr-1", rec.Header().Get(CorrelationIDHeader))
	require.NotEmpty(t, rec.Header().Get(RequestIDHeader))

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, rec.Header().Get(RequestIDHeader), rec.Header().Get(CorrelationIDHeader))
}

func ptr[T any](v T) *T {
	return &v
}
