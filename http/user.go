package http

import (
	"errors"
	"net/http"

	"github.com/kinkando/family-task-service/model"
	"github.com/kinkando/family-task-service/pkg/logger"
	"github.com/kinkando/family-task-service/pkg/profile"
	"github.com/kinkando/family-task-service/service"
	"github.com/labstack/echo/v4"
)

type UserHandler struct {
	userService service.User
}

func NewUserHandler(e *echo.Echo, userService service.User) {
	handler := &UserHandler{
		userService: userService,
	}

	route := e.Group("/api")
	route.GET("/me", handler.getUser)
}

func (h *UserHandler) getUser(c echo.Context) error {
	ctx := c.Request().Context()

	if _, err := profile.UseProfile(ctx); err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": err.Error()})
	}

	user, err := h.userService.GetUserInfo(ctx)
	if errors.Is(err, model.ErrUserNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	} else if err != nil {
		logger.Context(ctx).Error(err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, user)
}
