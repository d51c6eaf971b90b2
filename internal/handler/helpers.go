package handler

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-grading-api/internal/dto"
	"github.com/noah-isme/gema-grading-api/internal/middleware"
	"github.com/noah-isme/gema-grading-api/internal/service"
	"github.com/noah-isme/gema-grading-api/internal/utils"
)

// FieldError describes one rejected payload field.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

func parseUintParam(c *fiber.Ctx, name string) (uint, error) {
	parsed, err := strconv.ParseUint(strings.TrimSpace(c.Params(name)), 10, 64)
	if err != nil || parsed == 0 {
		return 0, errors.New("invalid identifier")
	}
	return uint(parsed), nil
}

func parseIntParam(c *fiber.Ctx, name string) (int, error) {
	parsed, err := strconv.Atoi(strings.TrimSpace(c.Params(name)))
	if err != nil {
		return 0, errors.New("invalid " + name)
	}
	return parsed, nil
}

func parseQueryInt(c *fiber.Ctx, key string) (int, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return 0, nil
	}
	return strconv.Atoi(value)
}

func userIDFromContext(c *fiber.Ctx) uint {
	switch id := c.Locals(middleware.LocalUserID).(type) {
	case uint:
		return id
	case int:
		if id > 0 {
			return uint(id)
		}
	}
	return 0
}

func userRoleFromContext(c *fiber.Ctx) string {
	if role, ok := c.Locals(middleware.LocalUserRole).(string); ok {
		return role
	}
	return ""
}

func graderFromContext(c *fiber.Ctx) service.Grader {
	return service.Grader{
		ID:   userIDFromContext(c),
		Role: middleware.GraderRoleFromLocals(c),
	}
}

// The audit role prefers the grading role so the trail shows which column was written.
func activityActorFromContext(c *fiber.Ctx) service.ActivityActor {
	role := string(middleware.GraderRoleFromLocals(c))
	if role == "" {
		role = userRoleFromContext(c)
	}
	return service.ActivityActor{
		ID:            userIDFromContext(c),
		Role:          role,
		CorrelationID: middleware.GetCorrelationID(c),
	}
}

func withRequestContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	return middleware.ContextWithCorrelation(ctx, middleware.GetCorrelationID(c))
}

func isValidationError(err error) bool {
	var validationErrors validator.ValidationErrors
	return errors.As(err, &validationErrors)
}

func validationDetails(err error) []FieldError {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil
	}
	details := make([]FieldError, 0, len(validationErrors))
	for _, fieldErr := range validationErrors {
		details = append(details, FieldError{Field: fieldErr.Namespace(), Rule: fieldErr.Tag()})
	}
	return details
}

func gradingStatus(err *service.GradingError) int {
	switch {
	case errors.Is(err, service.ErrGradeValidation):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, service.ErrGradeAuthorization):
		return fiber.StatusForbidden
	case errors.Is(err, service.ErrGradeNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, service.ErrGradeStorageConflict):
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// respondError maps service failures onto the API envelope. Unknown errors are logged and hidden.
func respondError(c *fiber.Ctx, logger zerolog.Logger, err error, fallback string) error {
	var gradingErr *service.GradingError
	switch {
	case errors.As(err, &gradingErr):
		return utils.Fail(c, gradingStatus(gradingErr), gradingErr.Error(), dto.GradeRejectionDetails{
			Kind: gradingErr.KindName(),
			Slot: gradingErr.Slot,
		})
	case isValidationError(err):
		return utils.Fail(c, fiber.StatusBadRequest, "invalid payload", validationDetails(err))
	case errors.Is(err, service.ErrUnknownAttemptStatus):
		return utils.Fail(c, fiber.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, service.ErrEssayGraderUnavailable):
		return utils.Fail(c, fiber.StatusServiceUnavailable, err.Error(), nil)
	default:
		requestLogger := middleware.RequestLogger(logger, c)
		requestLogger.Error().Err(err).Str("path", c.Path()).Msg(fallback)
		return utils.Fail(c, fiber.StatusInternalServerError, fallback, nil)
	}
}
