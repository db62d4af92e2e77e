package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/maptech/stf-service/internal/domain"
	"github.com/maptech/stf-service/pkg/util"
)

// RequireRole restricts a route to the listed roles. Superadmins always
// pass.
func RequireRole(roles ...domain.Role) fiber.Handler {
	allowed := make(map[domain.Role]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(c *fiber.Ctx) error {
		user := CurrentUser(c)
		if user == nil {
			return util.NewUnauthorized("authentication required")
		}
		if user.Role == domain.RoleSuperadmin {
			return c.Next()
		}
		if _, ok := allowed[user.Role]; !ok {
			return util.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}

// RequireAdminLevel restricts a route to admins and superadmins.
func RequireAdminLevel() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := CurrentUser(c)
		if user == nil {
			return util.NewUnauthorized("authentication required")
		}
		if !user.Role.IsAdminLevel() {
			return util.NewForbidden("admin access required")
		}
		return c.Next()
	}
}
