package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/minjcho/auth-service/internal/logging"
	"github.com/minjcho/auth-service/internal/middleware"
	"github.com/minjcho/auth-service/internal/service"
)

type AuthHTTP struct {
	Svc *service.AuthService
}

type signupRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Nickname string `json:"nickname"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (h *AuthHTTP) Signup(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_signup")

	var req signupRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("signup_error", "status", 400, "error", err)
		return service.ErrMissingField
	}

	user, err := h.Svc.Signup(ctx, req.Username, req.Password, req.Nickname)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, user)
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("login_error", "status", 400, "error", err)
		return service.ErrMissingField
	}

	pair, err := h.Svc.Login(ctx, req.Username, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pair)
}

func (h *AuthHTTP) Refresh(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_refresh")

	var req refreshRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("refresh_error", "status", 400, "error", err)
		return service.ErrNoRefreshToken
	}

	pair, err := h.Svc.Refresh(ctx, req.RefreshToken)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pair)
}

func (h *AuthHTTP) Logout(c echo.Context) error {
	ctx := c.Request().Context()

	user := middleware.UserFrom(c)
	if user == nil {
		return service.ErrNotAuthenticated
	}

	if err := h.Svc.Logout(ctx, user, middleware.AccessTokenFrom(c)); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

func (h *AuthHTTP) CreateAdmin(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_create_admin")

	var req signupRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("create_admin_error", "status", 400, "error", err)
		return service.ErrMissingField
	}

	user, err := h.Svc.CreateAdmin(ctx, req.Username, req.Password, req.Nickname)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, user)
}
