package devidp

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// SignInHandler serves POST /dev/signin against the Directory. Mounted only
// when dev sign-in is enabled.
type SignInHandler struct {
	dir *Directory
}

// NewSignInHandler returns a sign-in handler for dir.
func NewSignInHandler(dir *Directory) *SignInHandler {
	return &SignInHandler{dir: dir}
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signInResponse struct {
	Token     string    `json:"token"`
	UserID    string    `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// SignIn verifies credentials and returns a bearer token.
func (h *SignInHandler) SignIn(c echo.Context) error {
	var req signInRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Email == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "email and password are required")
	}

	sess, err := h.dir.SignIn(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "sign in failed")
	}
	return c.JSON(http.StatusOK, signInResponse{
		Token:     sess.Token,
		UserID:    sess.UserID,
		ExpiresAt: sess.ExpiresAt,
	})
}
