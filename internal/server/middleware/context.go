// Package middleware carries request identity through echo contexts.
package middleware

import (
	"github.com/labstack/echo/v4"
)

const (
	tokenKey     = "auth.token"
	userIDKey    = "auth.user_id"
	sessionIDKey = "auth.session_id"
)

// WithIdentity stashes the validated identity on the echo context.
func WithIdentity(c echo.Context, token, userID, sessionID string) {
	c.Set(tokenKey, token)
	c.Set(userIDKey, userID)
	c.Set(sessionIDKey, sessionID)
}

// Token returns the bearer token for the request, "" when anonymous.
func Token(c echo.Context) string {
	s, _ := c.Get(tokenKey).(string)
	return s
}

// UserID returns the authenticated user id, "" when anonymous.
func UserID(c echo.Context) string {
	s, _ := c.Get(userIDKey).(string)
	return s
}

// SessionID returns the validated session id, "" when anonymous.
func SessionID(c echo.Context) string {
	s, _ := c.Get(sessionIDKey).(string)
	return s
}
