package middleware

// identity.go resolves the caller identity for booking operations.  In
// production the API gateway decodes the auth token and forwards the
// subject in the x-user-id header; when the header is absent and a JWT
// secret is configured, a Bearer token is verified directly and its
// subject claim used instead.

import (
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// userIDKey is the echo context key the resolved identity is stored
// under.
const userIDKey = "user_id"

// ErrNoIdentity is returned by UserID when no identity was resolved.
var ErrNoIdentity = errors.New("no user identity in context")

// RequireUser resolves and stores the caller identity, rejecting
// requests that carry neither an x-user-id header nor a verifiable
// bearer token.  An empty secret disables the JWT fallback.
func RequireUser(jwtSecret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if uid := c.Request().Header.Get("x-user-id"); uid != "" {
				c.Set(userIDKey, uid)
				return next(c)
			}
			if jwtSecret != "" {
				if uid := subjectFromBearer(c, jwtSecret); uid != "" {
					c.Set(userIDKey, uid)
					return next(c)
				}
			}
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
		}
	}
}

// UserID extracts the identity stored by RequireUser.
func UserID(c echo.Context) (string, error) {
	if v := c.Get(userIDKey); v != nil {
		if s, ok := v.(string); ok && s != "" {
			return s, nil
		}
	}
	return "", ErrNoIdentity
}

// subjectFromBearer verifies an Authorization: Bearer token and returns
// its sub (or user_id) claim, or "" when the token is absent or
// invalid.
func subjectFromBearer(c echo.Context, secret string) string {
	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	raw, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok || raw == "" {
		return ""
	}
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return ""
	}
	if cl, ok := tok.Claims.(jwt.MapClaims); ok {
		if v, ok := cl["sub"].(string); ok && v != "" {
			return v
		}
		if v, ok := cl["user_id"].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
