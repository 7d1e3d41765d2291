package httpserver

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/minjcho/auth-service/internal/logging"
	"github.com/minjcho/auth-service/internal/middleware"
	"github.com/minjcho/auth-service/internal/models"
	"github.com/minjcho/auth-service/internal/service"
)

type Deps struct {
	AuthHandler *AuthHTTP
	Gate        *middleware.Gate
	Logger      *slog.Logger
}

func Register(e *echo.Echo, d *Deps) {
	e.HTTPErrorHandler = errorHandler

	if d.Logger != nil {
		e.Use(requestLogger(d.Logger))
	}

	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	auth := e.Group("/auth")
	auth.POST("/signup", d.AuthHandler.Signup)
	auth.POST("/login", d.AuthHandler.Login)
	auth.POST("/refresh", d.AuthHandler.Refresh)
	auth.POST("/logout", d.AuthHandler.Logout, d.Gate.RequireAuth)
	auth.POST("/admin", d.AuthHandler.CreateAdmin,
		d.Gate.RequireAuth, d.Gate.RequireAuthority(models.AuthorityAdmin))
}

// requestLogger carries the service logger in the request context so the
// lower layers pick it up via logging.FromContext.
func requestLogger(l *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			c.SetRequest(req.WithContext(logging.IntoContext(req.Context(), l)))
			return next(c)
		}
	}
}

// errorHandler maps domain errors to one consistent {code, message}
// body. Anything unrecognized becomes an opaque SERVER_ERROR.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var svcErr *service.Error
	if errors.As(err, &svcErr) {
		_ = c.JSON(svcErr.Status, echo.Map{"code": svcErr.Code, "message": svcErr.Message})
		return
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		_ = c.JSON(httpErr.Code, echo.Map{"message": httpErr.Message})
		return
	}

	logging.FromContext(c.Request().Context()).Error("unhandled_error", "error", err)
	_ = c.JSON(http.StatusInternalServerError,
		echo.Map{"code": service.ErrServer.Code, "message": service.ErrServer.Message})
}
