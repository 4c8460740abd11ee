// middleware/auth.go
package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Locals keys set by the auth middlewares.
const (
	LocalUserID         = "user_id"
	LocalUserRoles      = "user_roles"
	LocalDeviceID       = "device_id"
	LocalOTPNotRequired = "otp_not_required"
)

// UserContextMiddleware extracts user identity and roles set by Gateway.
// Only paths under /s/ are enforced: fiber mounts group middleware by plain
// prefix, so a "/s" group also sees public routes such as /surveys.
func UserContextMiddleware(log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !IsSecuredPath(c.Path()) {
			return c.Next()
		}

		userID := strings.TrimSpace(c.Get("X-User-ID"))
		if userID == "" {
			log.Warn("[USER_CTX] X-User-ID required but missing", zap.String("path", c.Path()))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing X-User-ID, request must come through gateway with auth context",
			})
		}

		var roles []string
		for _, r := range strings.Split(c.Get("X-User-Roles"), ",") {
			if r = strings.TrimSpace(r); r != "" {
				roles = append(roles, r)
			}
		}

		c.Locals(LocalUserID, userID)
		c.Locals(LocalUserRoles, roles)
		c.Locals(LocalOTPNotRequired, strings.EqualFold(c.Get("X-Otp-Not-Required"), "true"))

		log.Debug("[USER_CTX] resolved",
			zap.String("user_id", userID),
			zap.Strings("roles", roles),
			zap.String("path", c.Path()))
		return c.Next()
	}
}

// IsSecuredPath reports whether path needs a gateway-resolved user.
func IsSecuredPath(path string) bool {
	return path == "/s" || strings.HasPrefix(path, "/s/")
}

// UserID returns the authenticated user set by UserContextMiddleware or
// SSEAuthMiddleware.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(LocalUserID).(string)
	return id
}
