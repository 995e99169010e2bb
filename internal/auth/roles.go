package auth

import (
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/customer-ledger/pkg/util/errorutil"
)

// RequireSuperadmin ensures the principal holds the superadmin role.
func RequireSuperadmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if !principal.IsSuperadmin() {
			return apperrors.NewForbidden("superadmin role required")
		}
		return c.Next()
	}
}

// RequireAdmin ensures any admin is authenticated.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := PrincipalFromContext(c); !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		return c.Next()
	}
}
