package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-grading-api/internal/models"
	"github.com/noah-isme/gema-grading-api/internal/utils"
)

// Auth role constants used by WithAuth helper.
const (
	AuthRoleAny    = "any"
	AuthRoleAdmin  = "admin"
	AuthRoleGrader = "grader"
	AuthRoleHead   = "head"
)

// AuthOptions configures the WithAuth helper.
type AuthOptions struct {
	Role        string
	RequireUser bool
}

// WithAuth wraps a handler with authentication and grading authorization guards.
//
// AuthRoleGrader admits any caller carrying a grader role. AuthRoleHead admits
// head graders and administrators, which is who may tune reconciliation.
func WithAuth(handler fiber.Handler, opts AuthOptions) fiber.Handler {
	role := strings.ToLower(strings.TrimSpace(opts.Role))
	if role == "" {
		role = AuthRoleAny
	}

	requireUser := opts.RequireUser || role != AuthRoleAny

	return func(c *fiber.Ctx) error {
		userID := c.Locals(LocalUserID)
		if requireUser && userID == nil {
			return utils.Fail(c, fiber.StatusUnauthorized, "authentication required", nil)
		}

		accountRole := normalizeRoleValue(c.Locals(LocalUserRole))
		graderRole := GraderRoleFromLocals(c)

		switch role {
		case AuthRoleAny:
		case AuthRoleAdmin:
			if accountRole != "admin" {
				return utils.Fail(c, fiber.StatusForbidden, "insufficient permissions", nil)
			}
		case AuthRoleGrader:
			if graderRole == "" {
				return utils.Fail(c, fiber.StatusForbidden, "grader role required", nil)
			}
		case AuthRoleHead:
			if graderRole != models.GraderRoleHead && accountRole != "admin" {
				return utils.Fail(c, fiber.StatusForbidden, "insufficient permissions", nil)
			}
		default:
			if accountRole != role {
				return utils.Fail(c, fiber.StatusForbidden, "insufficient permissions", nil)
			}
		}

		return handler(c)
	}
}
