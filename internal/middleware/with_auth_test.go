package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-grading-api/internal/middleware"
	"github.com/noah-isme/gema-grading-api/internal/models"
)

func appWithLocals(locals map[string]interface{}, handler fiber.Handler) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		for key, value := range locals {
			c.Locals(key, value)
		}
		return c.Next()
	})
	app.Get("/", handler)
	return app
}

func okHandler(c *fiber.Ctx) error {
	return c.SendStatus(fiber.StatusNoContent)
}

func TestWithAuthGraderRole(t *testing.T) {
	app := appWithLocals(map[string]interface{}{
		middleware.LocalUserID:     uint(10),
		middleware.LocalGraderRole: models.GraderRoleSubs,
	}, middleware.WithAuth(okHandler, middleware.AuthOptions{Role: middleware.AuthRoleGrader}))

	resp := perform(t, app)
	require.Equal(t, fiber.StatusNoContent, resp.StatusCode)
}

func TestWithAuthGraderRoleDenied(t *testing.T) {
	app := appWithLocals(map[string]interface{}{
		middleware.LocalUserID:   uint(10),
		middleware.LocalUserRole: "teacher",
	}, middleware.WithAuth(okHandler, middleware.AuthOptions{Role: middleware.AuthRoleGrader}))

	resp := perform(t, app)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestWithAuthHeadAllowsAdmin(t *testing.T) {
	app := appWithLocals(map[string]interface{}{
		middleware.LocalUserID:   uint(1),
		middleware.LocalUserRole: "admin",
	}, middleware.WithAuth(okHandler, middleware.AuthOptions{Role: middleware.AuthRoleHead}))

	resp := perform(t, app)
	require.Equal(t, fiber.StatusNoContent, resp.StatusCode)
}

func TestWithAuthHeadDeniesMainGrader(t *testing.T) {
	app := appWithLocals(map[string]interface{}{
		middleware.LocalUserID:     uint(1),
		middleware.LocalGraderRole: models.GraderRoleMain,
	}, middleware.WithAuth(okHandler, middleware.AuthOptions{Role: middleware.AuthRoleHead}))

	resp := perform(t, app)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestWithAuthRequiresUserWhenAsked(t *testing.T) {
	app := appWithLocals(nil, middleware.WithAuth(okHandler, middleware.AuthOptions{Role: middleware.AuthRoleAny, RequireUser: true}))

	resp := perform(t, app)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestWithAuthAnyAllowsAnonymous(t *testing.T) {
	app := appWithLocals(nil, middleware.WithAuth(okHandler, middleware.AuthOptions{Role: middleware.AuthRoleAny}))

	resp := perform(t, app)
	require.Equal(t, fiber.StatusNoContent, resp.StatusCode)
}

func perform(t *testing.T, app *fiber.App) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}
