package controllers

import (
	"time"

	"goalquest-backend/services"

	"github.com/gofiber/fiber/v2"
)

// ProgressController запись прогресса и тренировочных сессий
type ProgressController struct {
	progress *services.ProgressService
	loc      *time.Location
}

// NewProgressController создает новый экземпляр ProgressController
func NewProgressController(progress *services.ProgressService, loc *time.Location) *ProgressController {
	if loc == nil {
		loc = time.UTC
	}
	return &ProgressController{progress: progress, loc: loc}
}

type recordProgressRequest struct {
	GoalID       uint    `json:"goal_id"`
	MetricID     uint    `json:"metric_id"`
	Date         string  `json:"date"`
	Value        float64 `json:"value"`
	Satisfaction *int    `json:"satisfaction"`
	Note         string  `json:"note"`
}

// RecordProgress сохраняет значение метрики и возвращает полученные достижения
func (pc *ProgressController) RecordProgress(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}

	var req recordProgressRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Неверный формат данных")
	}
	if req.GoalID == 0 || req.MetricID == 0 {
		return badRequest(c, "goal_id и metric_id обязательны")
	}

	in := services.ProgressInput{
		GoalID:       req.GoalID,
		MetricID:     req.MetricID,
		Value:        req.Value,
		Satisfaction: req.Satisfaction,
		Note:         req.Note,
	}
	if req.Date != "" {
		date, err := parseDate(req.Date, pc.loc)
		if err != nil {
			return badRequest(c, "Неверный формат даты")
		}
		in.Date = date
	}

	result, err := pc.progress.RecordProgress(c.UserContext(), userID, in)
	if err != nil {
		return serviceError(c, err, "Ошибка при сохранении прогресса")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"result":  result,
		"error":   false,
		"message": "Прогресс сохранен",
	})
}

type recordSessionRequest struct {
	GoalID          *uint  `json:"goal_id"`
	StartedAt       string `json:"started_at"`
	DurationSeconds int64  `json:"duration_seconds"`
	Satisfaction    *int   `json:"satisfaction"`
	Note            string `json:"note"`
}

// RecordSession сохраняет тренировочную сессию
func (pc *ProgressController) RecordSession(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}

	var req recordSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Неверный формат данных")
	}

	in := services.SessionInput{
		GoalID:          req.GoalID,
		DurationSeconds: req.DurationSeconds,
		Satisfaction:    req.Satisfaction,
		Note:            req.Note,
	}
	if req.StartedAt != "" {
		startedAt, err := parseDate(req.StartedAt, pc.loc)
		if err != nil {
			return badRequest(c, "Неверный формат даты")
		}
		in.StartedAt = startedAt
	}

	result, err := pc.progress.RecordSession(c.UserContext(), userID, in)
	if err != nil {
		return serviceError(c, err, "Ошибка при сохранении сессии")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"result":  result,
		"error":   false,
		"message": "Сессия сохранена",
	})
}
