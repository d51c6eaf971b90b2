package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-grading-api/internal/dto"
	"github.com/noah-isme/gema-grading-api/internal/middleware"
	"github.com/noah-isme/gema-grading-api/internal/service"
	"github.com/noah-isme/gema-grading-api/internal/utils"
)

// GradingHandler exposes grade submission and the read-side reports.
type GradingHandler struct {
	grading service.GradingService
	reports service.GradingReportService
	logger  zerolog.Logger
}

// NewGradingHandler constructs the handler.
func NewGradingHandler(grading service.GradingService, reports service.GradingReportService, logger zerolog.Logger) *GradingHandler {
	return &GradingHandler{
		grading: grading,
		reports: reports,
		logger:  logger.With().Str("component", "grading_handler").Logger(),
	}
}

// Register attaches grading endpoints to the router group.
func (h *GradingHandler) Register(router fiber.Router) {
	router.Post("/attempts/:usageId/grades", middleware.WithAuth(h.submit, middleware.AuthOptions{Role: middleware.AuthRoleGrader}))
	router.Get("/attempts/:usageId", middleware.WithAuth(h.attemptReport, middleware.AuthOptions{RequireUser: true}))
	router.Get("/quizzes/:quizId/attempts", middleware.WithAuth(h.quizOverview, middleware.AuthOptions{RequireUser: true}))
	router.Post("/attempts", middleware.WithAuth(h.registerAttempt, middleware.AuthOptions{Role: middleware.AuthRoleAdmin}))
}

func (h *GradingHandler) submit(c *fiber.Ctx) error {
	usageID, err := parseUintParam(c, "usageId")
	if err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid usage id", nil)
	}

	var payload dto.GradeBatchRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid payload", nil)
	}

	response, err := h.grading.Submit(withRequestContext(c), graderFromContext(c), usageID, payload, activityActorFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to submit grades")
	}

	return utils.SendSuccess(c, "grades saved", response)
}

func (h *GradingHandler) attemptReport(c *fiber.Ctx) error {
	usageID, err := parseUintParam(c, "usageId")
	if err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid usage id", nil)
	}

	report, err := h.reports.AttemptReport(withRequestContext(c), usageID)
	if err != nil {
		return respondError(c, h.logger, err, "failed to load attempt report")
	}

	return utils.SendSuccess(c, "attempt report", report)
}

func (h *GradingHandler) quizOverview(c *fiber.Ctx) error {
	quizID, err := parseUintParam(c, "quizId")
	if err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid quiz id", nil)
	}

	overview, err := h.reports.QuizOverview(withRequestContext(c), quizID, c.Query("status"))
	if err != nil {
		return respondError(c, h.logger, err, "failed to load quiz overview")
	}

	return utils.OK(c, overview.Items, "quiz overview", fiber.Map{
		"quiz_id":  overview.QuizID,
		"filter":   overview.Filter,
		"statuses": overview.Statuses,
	})
}

func (h *GradingHandler) registerAttempt(c *fiber.Ctx) error {
	var payload dto.RegisterAttemptRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "invalid payload", nil)
	}

	attempt, err := h.grading.RegisterAttempt(withRequestContext(c), payload, activityActorFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err, "failed to register attempt")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "attempt registered", attempt)
}
