package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/okrboard/backend/internal/config"
	"github.com/okrboard/backend/internal/domain"
)

const rightsKey = "assignment_rights"

func AdminAuth(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		apiKey := cfg.Auth.AdminAPIKey
		if apiKey == "" {
			return c.Next()
		}

		headerToken := c.Get("X-Admin-Token")
		if headerToken == "" {
			auth := c.Get("Authorization")
			const prefix = "Bearer "
			if len(auth) > len(prefix) && auth[:len(prefix)] == prefix {
				headerToken = auth[len(prefix):]
			}
		}

		if headerToken != apiKey {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "unauthorized",
			})
		}

		return c.Next()
	}
}

// Rights reads the requester identity resolved by the upstream gateway and
// stores it for handlers. X-Assign-Rights is "unrestricted" or "restricted".
func Rights() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := strings.TrimSpace(c.Get("X-User-ID"))
		if userID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing X-User-ID header",
			})
		}

		rights := domain.AssignmentRights{
			UserID:         userID,
			DepartmentID:   strings.TrimSpace(c.Get("X-Department-ID")),
			OrganizationID: strings.TrimSpace(c.Get("X-Organization-ID")),
		}
		switch strings.ToLower(c.Get("X-Assign-Rights")) {
		case "unrestricted":
			rights.Unrestricted = true
		case "", "restricted":
		default:
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "X-Assign-Rights must be unrestricted or restricted",
			})
		}

		c.Locals(rightsKey, rights)
		return c.Next()
	}
}

// RightsFrom returns the rights stored by Rights, or the zero value.
func RightsFrom(c *fiber.Ctx) domain.AssignmentRights {
	rights, _ := c.Locals(rightsKey).(domain.AssignmentRights)
	return rights
}
