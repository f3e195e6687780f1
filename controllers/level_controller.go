package controllers

import (
	"goalquest-backend/services"

	"github.com/gofiber/fiber/v2"
)

// LevelController контроллер для управления уровнями пользователей
type LevelController struct {
	levels *services.LevelService
}

// NewLevelController создает новый экземпляр LevelController
func NewLevelController(levels *services.LevelService) *LevelController {
	return &LevelController{levels: levels}
}

// GetMyLevel уровень, очки и серия текущего пользователя
func (lc *LevelController) GetMyLevel(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}

	info, err := lc.levels.GetUserLevel(c.UserContext(), userID)
	if err != nil {
		return serviceError(c, err, "Ошибка при получении уровня")
	}

	return c.JSON(fiber.Map{
		"level":   info,
		"error":   false,
		"message": "Уровень получен успешно",
	})
}

// GetLeaderboard получает таблицу лидеров
func (lc *LevelController) GetLeaderboard(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 10)

	entries, total, err := lc.levels.Leaderboard(c.UserContext(), page, limit)
	if err != nil {
		return serviceError(c, err, "Ошибка при получении таблицы лидеров")
	}

	return c.JSON(fiber.Map{
		"leaderboard": entries,
		"total":       total,
		"page":        page,
		"error":       false,
		"message":     "Таблица лидеров получена успешно",
	})
}

type addPointsRequest struct {
	Points int    `json:"points"`
	Reason string `json:"reason"`
}

// AddPoints начисляет очки пользователю (только администратор)
func (lc *LevelController) AddPoints(c *fiber.Ctx) error {
	userID, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, "Неверный ID пользователя")
	}

	var req addPointsRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Неверный формат данных")
	}

	user, unlocked, err := lc.levels.AwardPoints(c.UserContext(), userID, req.Points, req.Reason)
	if err != nil {
		return serviceError(c, err, "Ошибка при начислении очков")
	}

	return c.JSON(fiber.Map{
		"user":     user,
		"progress": services.ComputeLevelProgress(user.TotalPoints),
		"unlocked": unlocked,
		"error":    false,
		"message":  "Очки успешно добавлены",
	})
}
