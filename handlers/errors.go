// handlers/errors.go
package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"survey-rewards-system/services"
)

type errorMapping struct {
	target error
	status int
	code   string
}

// Order matters only for errors that wrap more than one sentinel.
var errorMappings = []errorMapping{
	{services.ErrUpstreamUnavailable, fiber.StatusServiceUnavailable, "upstream_unavailable"},
	{services.ErrRespondentNotFound, fiber.StatusNotFound, "respondent_not_found"},
	{services.ErrSurveyNotFound, fiber.StatusNotFound, "survey_not_found"},
	{services.ErrResponseNotFound, fiber.StatusNotFound, "response_not_found"},
	{services.ErrInsufficientBalance, fiber.StatusConflict, "insufficient_balance"},
	{services.ErrNothingToClaim, fiber.StatusConflict, "nothing_to_claim"},
	{services.ErrNoSurveyPass, fiber.StatusConflict, "no_survey_pass"},
	{services.ErrSurveyClosed, fiber.StatusConflict, "survey_closed"},
	{services.ErrDuplicateResponse, fiber.StatusConflict, "duplicate_response"},
	{services.ErrInvalidTransition, fiber.StatusConflict, "already_reviewed"},
	{services.ErrOwnSurvey, fiber.StatusForbidden, "own_survey"},
	{services.ErrNotSurveyOwner, fiber.StatusForbidden, "not_survey_owner"},
	{services.ErrInvalidDecision, fiber.StatusBadRequest, "invalid_decision"},
	{services.ErrInvalidSurvey, fiber.StatusBadRequest, "invalid_survey"},
}

// writeError renders a service error as {"error", "code"}. Upstream failures
// are marked retryable and never expose the underlying cause.
func writeError(c *fiber.Ctx, log *zap.Logger, err error) error {
	for _, m := range errorMappings {
		if !errors.Is(err, m.target) {
			continue
		}
		if m.status == fiber.StatusServiceUnavailable {
			log.Error("upstream failure", zap.String("path", c.Path()), zap.Error(err))
			return c.Status(m.status).JSON(fiber.Map{
				"error":     "the rewards service is temporarily unavailable, please try again",
				"code":      m.code,
				"retryable": true,
			})
		}
		return c.Status(m.status).JSON(fiber.Map{
			"error": err.Error(),
			"code":  m.code,
		})
	}

	log.Error("unhandled error", zap.String("path", c.Path()), zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "internal error",
		"code":  "internal",
	})
}
