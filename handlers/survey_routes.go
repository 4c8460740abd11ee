// handlers/survey_routes.go
package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"survey-rewards-system/middleware"
	"survey-rewards-system/models"
	"survey-rewards-system/services"
)

type SurveyHandler struct {
	Surveys   *services.SurveyService
	Responses *services.ResponseService
	Log       *zap.Logger
}

func SetupSurveyRoutes(app *fiber.App, h *SurveyHandler, secured fiber.Router) {
	// Public listing, still behind gateway auth.
	app.Get("/surveys", h.ListOpen)
	app.Get("/surveys/:id", h.Get)

	secured.Post("/surveys", h.Create)
	secured.Post("/surveys/:id/close", h.Close)
	secured.Post("/surveys/:id/responses", h.Submit)
	secured.Get("/surveys/:id/responses", h.ListResponses)
	secured.Patch("/responses/:id/review", h.Review)
}

func (h *SurveyHandler) ListOpen(c *fiber.Ctx) error {
	rewardType := models.SurveyRewardType(strings.ToLower(c.Query("reward_type")))
	if rewardType != "" && !rewardType.Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid reward_type parameter"})
	}
	surveys, err := h.Surveys.ListOpen(c.UserContext(), rewardType, c.QueryInt("limit", 50))
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(surveys)
}

func (h *SurveyHandler) Get(c *fiber.Ctx) error {
	survey, err := h.Surveys.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(survey)
}

func (h *SurveyHandler) Create(c *fiber.Ctx) error {
	var req services.CreateSurveyInput
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	survey, err := h.Surveys.Create(c.UserContext(), middleware.UserID(c), req)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(survey)
}

func (h *SurveyHandler) Close(c *fiber.Ctx) error {
	survey, err := h.Surveys.Close(c.UserContext(), middleware.UserID(c), c.Params("id"))
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(survey)
}

func (h *SurveyHandler) Submit(c *fiber.Ctx) error {
	record, err := h.Responses.Submit(c.UserContext(), middleware.UserID(c), c.Params("id"))
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(record)
}

func (h *SurveyHandler) ListResponses(c *fiber.Ctx) error {
	status := models.AcceptanceStatus(strings.ToLower(c.Query("status")))
	switch status {
	case "", models.AcceptancePending, models.AcceptanceAccepted, models.AcceptanceRejected:
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid status parameter"})
	}
	records, err := h.Responses.ListForSurvey(c.UserContext(), middleware.UserID(c), c.Params("id"), status)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(records)
}

func (h *SurveyHandler) Review(c *fiber.Ctx) error {
	var req struct {
		Decision models.AcceptanceStatus `json:"decision"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	record, err := h.Responses.Review(c.UserContext(), middleware.UserID(c), c.Params("id"), req.Decision)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(record)
}
