// Package auth passes a caller-supplied bearer token through to upstream
// calls. Tokens are minted and validated elsewhere; this service only needs
// the subject claim to scope sessions and storage paths, so the token is
// parsed without signature verification.
package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/ChimeraCapital420/Tagnetiq-PROD-sub002/internal/shared"
)

const (
	tokenContextKey = "auth_token"
	ownerContextKey = "auth_owner"
)

type Middleware struct{}

func NewMiddleware() *Middleware {
	return &Middleware{}
}

func (m *Middleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			return shared.Unauthorized("missing_token", "authorization header required")
		}

		token, ok := strings.CutPrefix(authHeader, "Bearer ")
		if !ok || token == "" {
			return shared.Unauthorized("invalid_token", "bearer token required")
		}

		c.Set(tokenContextKey, token)
		c.Set(ownerContextKey, ownerFromToken(token))
		return next(c)
	}
}

// ownerFromToken reads the unverified subject claim; opaque tokens fall back
// to a stable digest so storage paths stay consistent per caller.
func ownerFromToken(token string) string {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err == nil {
		if sub, err := claims.GetSubject(); err == nil && sub != "" {
			return sub
		}
	}

	sum := sha256.Sum256([]byte(token))
	return "anon_" + hex.EncodeToString(sum[:8])
}

// Token returns the raw bearer token for pass-through to upstream calls.
func Token(c echo.Context) (string, error) {
	token, ok := c.Get(tokenContextKey).(string)
	if !ok || token == "" {
		return "", shared.Unauthorized("missing_token", "authentication required")
	}
	return token, nil
}

// Owner returns the caller's owner id.
func Owner(c echo.Context) (string, error) {
	owner, ok := c.Get(ownerContextKey).(string)
	if !ok || owner == "" {
		return "", shared.Unauthorized("missing_token", "authentication required")
	}
	return owner, nil
}

// SetForTest injects credentials into a context in tests.
func SetForTest(c echo.Context, token, owner string) {
	c.Set(tokenContextKey, token)
	c.Set(ownerContextKey, owner)
}
