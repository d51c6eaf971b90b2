package middleware

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-grading-api/internal/models"
	"github.com/noah-isme/gema-grading-api/internal/utils"
)

// RequireRole ensures that the authenticated user possesses one of the allowed account roles.
func RequireRole(roles ...string) fiber.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		normalized := strings.ToLower(strings.TrimSpace(role))
		if normalized != "" {
			allowed[normalized] = struct{}{}
		}
	}

	return func(c *fiber.Ctx) error {
		role := normalizeRoleValue(c.Locals(LocalUserRole))
		if _, ok := allowed[role]; !ok {
			return utils.Fail(c, fiber.StatusForbidden, "insufficient permissions", nil)
		}
		return c.Next()
	}
}

// RequireGraderRole ensures the caller holds one of the given grading roles.
func RequireGraderRole(roles ...models.GraderRole) fiber.Handler {
	allowed := make(map[models.GraderRole]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		role := GraderRoleFromLocals(c)
		if _, ok := allowed[role]; !ok || role == "" {
			return utils.Fail(c, fiber.StatusForbidden, "grader role required", nil)
		}
		return c.Next()
	}
}

// GraderRoleFromLocals returns the grading role resolved by JWTProtected, or "" when absent.
func GraderRoleFromLocals(c *fiber.Ctx) models.GraderRole {
	switch v := c.Locals(LocalGraderRole).(type) {
	case models.GraderRole:
		return v
	case string:
		role := models.GraderRole(strings.ToLower(strings.TrimSpace(v)))
		if role.Valid() {
			return role
		}
	}
	return ""
}

func normalizeRoleValue(value interface{}) string {
	switch v := value.(type) {
	case string:
		return strings.ToLower(strings.TrimSpace(v))
	case fmt.Stringer:
		return strings.ToLower(strings.TrimSpace(v.String()))
	default:
		if value == nil {
			return ""
		}
		return strings.ToLower(strings.TrimSpace(fmt.Sprintf("%v", value)))
	}
}
