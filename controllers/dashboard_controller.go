package controllers

import (
	"goalquest-backend/services"

	"github.com/gofiber/fiber/v2"
)

// DashboardController сводка для главного экрана
type DashboardController struct {
	levels          *services.LevelService
	achievements    *services.AchievementService
	recommendations *services.RecommendationService
}

// NewDashboardController создает новый экземпляр DashboardController
func NewDashboardController(levels *services.LevelService, achievements *services.AchievementService, recommendations *services.RecommendationService) *DashboardController {
	return &DashboardController{
		levels:          levels,
		achievements:    achievements,
		recommendations: recommendations,
	}
}

// GetDashboardData уровень, новые достижения, ближайшие достижения и рекомендации недели
func (dc *DashboardController) GetDashboardData(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}
	ctx := c.UserContext()

	level, err := dc.levels.GetUserLevel(ctx, userID)
	if err != nil {
		return serviceError(c, err, "Ошибка при получении уровня")
	}

	// Новые достижения, которые пользователь еще не видел
	fresh, err := dc.achievements.UnnotifiedGrants(ctx, userID)
	if err != nil {
		return serviceError(c, err, "Ошибка при получении достижений")
	}

	nearest, err := dc.achievements.GetRecommended(ctx, userID, 3)
	if err != nil {
		return serviceError(c, err, "Ошибка при подборе достижений")
	}
	for i := range nearest {
		if nearest[i].Achievement.IsSecret {
			nearest[i].Achievement = services.MaskSecret(nearest[i].Achievement)
		}
	}

	weekly, err := dc.recommendations.WeeklyRecommendations(ctx, userID)
	if err != nil {
		return serviceError(c, err, "Ошибка при подборе рекомендаций")
	}

	return c.JSON(fiber.Map{
		"level":                level,
		"new_achievements":     fresh,
		"nearest_achievements": nearest,
		"recommendations":      weekly,
		"error":                false,
		"message":              "Данные дашборда получены успешно",
	})
}
