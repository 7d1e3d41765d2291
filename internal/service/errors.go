package service

import "net/http"

// Error is a domain failure carrying a stable machine-readable code and a
// human message. The HTTP layer maps Status; internals never leak.
type Error struct {
	Code    string
	Message string
	Status  int
}

func (e *Error) Error() string { return e.Code + ": " + e.Message }

var (
	ErrMissingField       = &Error{Code: "MISSING_FIELD", Message: "all fields are required", Status: http.StatusBadRequest}
	ErrInvalidPassword    = &Error{Code: "INVALID_PASSWORD", Message: "password must be at least 8 characters", Status: http.StatusBadRequest}
	ErrUsernameExists     = &Error{Code: "USERNAME_EXISTS", Message: "username already exists", Status: http.StatusConflict}
	ErrInvalidCredentials = &Error{Code: "INVALID_CREDENTIALS", Message: "invalid username or password", Status: http.StatusUnauthorized}

	ErrNoToken          = &Error{Code: "NO_TOKEN", Message: "authorization token required", Status: http.StatusUnauthorized}
	ErrInvalidToken     = &Error{Code: "INVALID_TOKEN", Message: "invalid token", Status: http.StatusUnauthorized}
	ErrTokenExpired     = &Error{Code: "TOKEN_EXPIRED", Message: "token has expired", Status: http.StatusUnauthorized}
	ErrUserNotFound     = &Error{Code: "USER_NOT_FOUND", Message: "user no longer exists", Status: http.StatusUnauthorized}
	ErrNotAuthenticated = &Error{Code: "NOT_AUTHENTICATED", Message: "authentication required", Status: http.StatusUnauthorized}
	ErrForbidden        = &Error{Code: "INSUFFICIENT_PERMISSIONS", Message: "not enough permissions", Status: http.StatusForbidden}

	ErrNoRefreshToken      = &Error{Code: "NO_REFRESH_TOKEN", Message: "refresh token required", Status: http.StatusBadRequest}
	ErrInvalidRefreshToken = &Error{Code: "INVALID_REFRESH_TOKEN", Message: "invalid refresh token", Status: http.StatusUnauthorized}
	ErrRefreshTokenExpired = &Error{Code: "REFRESH_TOKEN_EXPIRED", Message: "refresh token has expired", Status: http.StatusForbidden}

	ErrServer = &Error{Code: "SERVER_ERROR", Message: "unexpected server error", Status: http.StatusInternalServerError}
)
