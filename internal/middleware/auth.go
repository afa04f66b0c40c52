package middleware

import (
	"context"
	"errors"
	"strings"

	authsvc "vectorium-backend/internal/application/auth"
	"vectorium-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const (
	userLocal  = "user"
	tokenLocal = "token"
)

// Authenticator resolves a bearer token to its account.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*authsvc.User, error)
}

// RequireAuth ensures the request carries a valid bearer token. Returns 401 with standard error format if not.
func RequireAuth(a Authenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := BearerToken(c)
		if token == "" {
			return response.Unauthorized(c, "Unauthorized")
		}
		u, err := a.Authenticate(c.UserContext(), token)
		if err != nil {
			if errors.Is(err, authsvc.ErrUnavailable) {
				return response.Error(c, err.Error(), fiber.StatusServiceUnavailable, nil)
			}
			return response.Unauthorized(c, "Unauthorized")
		}
		c.Locals(userLocal, map[string]interface{}{
			"user_id":   u.ID,
			"email":     u.Email,
			"full_name": u.FullName(),
		})
		c.Locals(tokenLocal, token)
		return c.Next()
	}
}

// BearerToken reads the token from "Authorization: Bearer <token>".
func BearerToken(c *fiber.Ctx) string {
	if t, ok := c.Locals(tokenLocal).(string); ok && t != "" {
		return t
	}
	h := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}

// GetUser returns the authenticated user from Locals (nil if not signed in).
func GetUser(c *fiber.Ctx) interface{} {
	return c.Locals(userLocal)
}

// UserID returns the authenticated account id.
func UserID(c *fiber.Ctx) (uuid.UUID, bool) {
	m, ok := GetUser(c).(map[string]interface{})
	if !ok {
		return uuid.Nil, false
	}
	s, _ := m["user_id"].(string)
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
