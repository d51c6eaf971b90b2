package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-grading-api/internal/dto"
	"github.com/noah-isme/gema-grading-api/internal/middleware"
	"github.com/noah-isme/gema-grading-api/internal/service"
	"github.com/noah-isme/gema-grading-api/internal/utils"
)

// SettingsHandler manages the reconciliation tolerance.
type SettingsHandler struct {
	service service.GradingSettingsService
	logger  zerolog.Logger
}

// NewSettingsHandler constructs the handler.
func NewSettingsHandler(service service.GradingSettingsService, logger zerolog.Logger) *SettingsHandler {
	return &SettingsHandler{
		service: service,
		logger:  logger.With().Str("component", "settings_handler").Logger(),
	}
}

// Register attaches the settings endpoints to the router group.
func (h *SettingsHandler) Register(router fiber.Router) {
	router.Get("/settings", middleware.WithAuth(h.get, middleware.AuthOptions{Role: middleware.AuthRoleHead}))
	router.Put("/settings/max-diff", middleware.WithAuth(h.updateMaxDiff, middleware.AuthOptions{Role: middleware.AuthRoleHead}))
}

func (h *SettingsHandler) get(c *fiber.Ctx) error {
	settings, err := h.service.Get(withRequestContext(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to load grading settings")
	}
	return utils.SendSuccess(c, "grading settings", settings)
}

func (h *SettingsHandler) updateMaxDiff(c *fiber.Ctx) error {
	var payload dto.UpdateMaxDiffRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid payload", nil)
	}

	settings, err := h.service.UpdateMaxDiff(withRequestContext(c), payload, activityActorFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to update max diff")
	}
	return utils.SendSuccess(c, "max diff updated", settings)
}
