package utils_test

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-grading-api/internal/utils"
)

type envelope struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data"`
	Meta    map[string]interface{} `json:"meta"`
	Details map[string]interface{} `json:"details"`
}

func TestResponseEnvelopes(t *testing.T) {
	cases := []struct {
		name    string
		handler fiber.Handler
		status  int
		check   func(t *testing.T, body envelope)
	}{
		{
			name: "ok carries data and meta",
			handler: func(c *fiber.Ctx) error {
				return utils.OK(c, fiber.Map{"usage_id": 100}, "", fiber.Map{"filter": "final"})
			},
			status: fiber.StatusOK,
			check: func(t *testing.T, body envelope) {
				require.True(t, body.Success)
				require.Equal(t, "success", body.Message)
				require.EqualValues(t, 100, body.Data["usage_id"])
				require.Equal(t, "final", body.Meta["filter"])
				require.Nil(t, body.Details)
			},
		},
		{
			name: "fail carries rejection details",
			handler: func(c *fiber.Ctx) error {
				return utils.Fail(c, fiber.StatusConflict, "grade storage conflict", fiber.Map{"kind": "storage_conflict", "slot": 2})
			},
			status: fiber.StatusConflict,
			check: func(t *testing.T, body envelope) {
				require.False(t, body.Success)
				require.Equal(t, "grade storage conflict", body.Message)
				require.Equal(t, "storage_conflict", body.Details["kind"])
				require.EqualValues(t, 2, body.Details["slot"])
				require.Nil(t, body.Data)
			},
		},
		{
			name: "fail without status defaults to internal error",
			handler: func(c *fiber.Ctx) error {
				return utils.Fail(c, 0, "", nil)
			},
			status: fiber.StatusInternalServerError,
			check: func(t *testing.T, body envelope) {
				require.False(t, body.Success)
				require.Equal(t, "error", body.Message)
			},
		},
		{
			name: "created status is kept",
			handler: func(c *fiber.Ctx) error {
				return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "attempt registered", fiber.Map{"slot_count": 3})
			},
			status: fiber.StatusCreated,
			check: func(t *testing.T, body envelope) {
				require.True(t, body.Success)
				require.EqualValues(t, 3, body.Data["slot_count"])
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/", tc.handler)

			resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/", nil), -1)
			require.NoError(t, err)
			defer resp.Body.Close()
			require.Equal(t, tc.status, resp.StatusCode)

			var body envelope
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			tc.check(t, body)
		})
	}
}
