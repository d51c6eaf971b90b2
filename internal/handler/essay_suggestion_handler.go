package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-grading-api/internal/dto"
	"github.com/noah-isme/gema-grading-api/internal/middleware"
	"github.com/noah-isme/gema-grading-api/internal/service"
	"github.com/noah-isme/gema-grading-api/internal/utils"
)

// EssaySuggestionHandler exposes AI grade proposals for essay slots.
type EssaySuggestionHandler struct {
	service    service.EssaySuggestionService
	rateLimit  int
	rateWindow time.Duration
	logger     zerolog.Logger
}

// NewEssaySuggestionHandler constructs the handler. Suggestion requests are rate limited per grader.
func NewEssaySuggestionHandler(service service.EssaySuggestionService, rateLimit int, rateWindow time.Duration, logger zerolog.Logger) *EssaySuggestionHandler {
	return &EssaySuggestionHandler{
		service:    service,
		rateLimit:  rateLimit,
		rateWindow: rateWindow,
		logger:     logger.With().Str("component", "essay_suggestion_handler").Logger(),
	}
}

// Register attaches suggestion endpoints to the router group.
func (h *EssaySuggestionHandler) Register(router fiber.Router) {
	router.Post("/attempts/:usageId/slots/:slot/suggestion",
		middleware.RateLimit("essay_suggestion", h.rateLimit, h.rateWindow),
		middleware.WithAuth(h.suggest, middleware.AuthOptions{Role: middleware.AuthRoleGrader}),
	)
	router.Get("/attempts/:usageId/suggestions", middleware.WithAuth(h.list, middleware.AuthOptions{Role: middleware.AuthRoleGrader}))
}

func (h *EssaySuggestionHandler) suggest(c *fiber.Ctx) error {
	usageID, err := parseUintParam(c, "usageId")
	if err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid usage id", nil)
	}
	slot, err := parseIntParam(c, "slot")
	if err != nil || slot <= 0 {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid slot", nil)
	}

	var payload dto.EssaySuggestionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid payload", nil)
	}

	suggestion, err := h.service.Suggest(withRequestContext(c), usageID, slot, payload, activityActorFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to generate suggestion")
	}
	return utils.SendSuccess(c, "suggestion generated", suggestion)
}

func (h *EssaySuggestionHandler) list(c *fiber.Ctx) error {
	usageID, err := parseUintParam(c, "usageId")
	if err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid usage id", nil)
	}

	suggestions, err := h.service.List(withRequestContext(c), usageID)
	if err != nil {
		return respondError(c, h.logger, err, "failed to list suggestions")
	}
	return utils.SendSuccess(c, "suggestions", suggestions)
}
