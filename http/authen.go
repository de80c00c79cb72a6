package http

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/kinkando/family-task-service/model"
	httpcookie "github.com/kinkando/family-task-service/pkg/http/cookie"
	httprefresh "github.com/kinkando/family-task-service/pkg/http/refresh"
	"github.com/kinkando/family-task-service/pkg/logger"
	"github.com/kinkando/family-task-service/service"
	"github.com/labstack/echo/v4"
)

type AuthenHandler struct {
	authenService service.Authen
	cookies       *httpcookie.Store
	refresh       *httprefresh.Adapter
	validate      *validator.Validate
}

func NewAuthenHandler(
	e *echo.Echo,
	validate *validator.Validate,
	cookies *httpcookie.Store,
	refresh *httprefresh.Adapter,
	authenService service.Authen,
) {
	handler := &AuthenHandler{
		authenService: authenService,
		cookies:       cookies,
		refresh:       refresh,
		validate:      validate,
	}

	route := e.Group("/auth")
	route.POST("/login", handler.login)
	route.POST("/logout", handler.logout)
	route.POST("/refresh", handler.refreshToken)
	route.GET("/refresh", handler.refreshRedirect)
}

func (h *AuthenHandler) login(c echo.Context) error {
	ctx := c.Request().Context()

	var req model.LoginRequest
	if err := c.Bind(&req); err != nil {
		logger.Context(ctx).Error(err)
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	if err := h.validate.Struct(req); err != nil {
		logger.Context(ctx).Error(err)
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	jwt, identity, err := h.authenService.Login(ctx, req)
	if errors.Is(err, model.ErrInvalidCredentials) {
		return c.JSON(http.StatusUnauthorized, model.SessionResponse{Success: false, Message: err.Error()})
	} else if err != nil {
		return c.JSON(http.StatusInternalServerError, model.SessionResponse{
			Success:   false,
			Message:   "unable to log in",
			ErrorCode: model.ErrorCodeUnknown,
		})
	}

	h.cookies.SetSessionCookies(c, jwt.AccessToken, jwt.RefreshToken)

	return c.JSON(http.StatusOK, model.LoginResponse{
		SessionResponse: model.SessionResponse{Success: true, Message: "logged in"},
		Profile:         identity,
	})
}

// logout always clears both cookies, with or without a session.
func (h *AuthenHandler) logout(c echo.Context) error {
	ctx := c.Request().Context()

	session := h.cookies.ReadSessionCookies(c)
	h.cookies.ClearSessionCookies(c)

	if err := h.authenService.Logout(ctx, session.Refresh); err != nil {
		return c.JSON(http.StatusInternalServerError, model.SessionResponse{
			Success:   false,
			Message:   "unable to revoke session",
			ErrorCode: model.ErrorCodeUnknown,
		})
	}

	return c.JSON(http.StatusOK, model.SessionResponse{Success: true, Message: "logged out"})
}

func (h *AuthenHandler) refreshToken(c echo.Context) error {
	return h.refresh.HandleAPIRefresh(c)
}

func (h *AuthenHandler) refreshRedirect(c echo.Context) error {
	return h.refresh.HandleMiddlewareRefresh(c)
}
