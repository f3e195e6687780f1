package controllers

import (
	"time"

	"goalquest-backend/models"
	"goalquest-backend/services"

	"github.com/gofiber/fiber/v2"
)

// GoalController контроллер для управления целями
type GoalController struct {
	goals *services.GoalService
	loc   *time.Location
}

// NewGoalController создает новый экземпляр GoalController
func NewGoalController(goals *services.GoalService, loc *time.Location) *GoalController {
	if loc == nil {
		loc = time.UTC
	}
	return &GoalController{goals: goals, loc: loc}
}

// CreateGoalRequest структура запроса создания цели
type CreateGoalRequest struct {
	Title        string                 `json:"title"`
	Description  string                 `json:"description"`
	CategoryCode *string                `json:"category_code"`
	StartDate    string                 `json:"start_date"`
	EndDate      string                 `json:"end_date"`
	Metrics      []services.MetricInput `json:"metrics"`
}

// UpdateGoalStatusRequest структура запроса смены статуса
type UpdateGoalStatusRequest struct {
	Status models.GoalStatus `json:"status"`
}

// CreateGoal создает новую цель
func (gc *GoalController) CreateGoal(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}

	var req CreateGoalRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Неверный формат данных")
	}

	in := services.GoalInput{
		Title:        req.Title,
		Description:  req.Description,
		CategoryCode: req.CategoryCode,
		Metrics:      req.Metrics,
	}
	if req.StartDate != "" {
		start, err := parseDate(req.StartDate, gc.loc)
		if err != nil {
			return badRequest(c, "Неверный формат даты начала")
		}
		in.StartDate = start
	}
	if req.EndDate != "" {
		end, err := parseDate(req.EndDate, gc.loc)
		if err != nil {
			return badRequest(c, "Неверный формат даты окончания")
		}
		in.EndDate = &end
	}

	result, err := gc.goals.CreateGoal(c.UserContext(), userID, in)
	if err != nil {
		return serviceError(c, err, "Ошибка при создании цели")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"goal":     result.Goal,
		"unlocked": result.Unlocked,
		"error":    false,
		"message":  "Цель создана",
	})
}

// GetGoals список целей текущего пользователя (?status=active)
func (gc *GoalController) GetGoals(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}

	goals, err := gc.goals.ListGoals(c.UserContext(), userID, models.GoalStatus(c.Query("status")))
	if err != nil {
		return serviceError(c, err, "Ошибка при получении целей")
	}

	return c.JSON(fiber.Map{
		"goals":   goals,
		"total":   len(goals),
		"error":   false,
		"message": "Цели получены успешно",
	})
}

// GetGoal детали цели
func (gc *GoalController) GetGoal(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}
	goalID, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, "Неверный ID цели")
	}

	goal, err := gc.goals.GetGoal(c.UserContext(), userID, goalID)
	if err != nil {
		return serviceError(c, err, "Ошибка при получении цели")
	}

	return c.JSON(fiber.Map{
		"goal":    goal,
		"error":   false,
		"message": "Цель получена успешно",
	})
}

// UpdateGoalStatus меняет статус цели
func (gc *GoalController) UpdateGoalStatus(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}
	goalID, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, "Неверный ID цели")
	}

	var req UpdateGoalStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Неверный формат данных")
	}

	result, err := gc.goals.UpdateStatus(c.UserContext(), userID, goalID, req.Status)
	if err != nil {
		return serviceError(c, err, "Ошибка при обновлении цели")
	}

	return c.JSON(fiber.Map{
		"goal":     result.Goal,
		"unlocked": result.Unlocked,
		"error":    false,
		"message":  "Статус цели обновлен",
	})
}
