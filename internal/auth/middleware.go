package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/maptech/stf-service/internal/domain"
	"github.com/maptech/stf-service/internal/repository"
	"github.com/maptech/stf-service/pkg/util"
)

const principalKey = "auth.principal"

// Principal is the authenticated user attached to a request.
type Principal struct {
	User *domain.User
}

// Middleware authenticates requests and loads the acting user.
type Middleware struct {
	tokens *TokenManager
	users  repository.UserRepository
}

// NewMiddleware creates the auth middleware.
func NewMiddleware(tokens *TokenManager, users repository.UserRepository) *Middleware {
	return &Middleware{tokens: tokens, users: users}
}

// Require validates the access token and stores the principal in locals.
// Browsers cannot set headers on websocket upgrades, so a token query
// parameter is accepted as a fallback.
func (m *Middleware) Require() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := extractToken(c)
		if tokenString == "" {
			return util.NewUnauthorized("missing access token")
		}

		claims, err := m.tokens.Verify(tokenString)
		if err != nil {
			return util.NewUnauthorized("invalid or expired access token")
		}

		user, err := m.users.GetByID(c.UserContext(), claims.UserID)
		if err != nil {
			return util.NewUnauthorized("unknown token subject")
		}
		c.Locals(principalKey, &Principal{User: user})
		return c.Next()
	}
}

// CurrentUser returns the authenticated user for the request, or nil.
func CurrentUser(c *fiber.Ctx) *domain.User {
	if p, ok := c.Locals(principalKey).(*Principal); ok {
		return p.User
	}
	return nil
}

func extractToken(c *fiber.Ctx) string {
	header := c.Get(fiber.HeaderAuthorization)
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return c.Query("token")
}
