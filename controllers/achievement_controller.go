package controllers

import (
	"goalquest-backend/services"

	"github.com/gofiber/fiber/v2"
)

// AchievementController контроллер для управления достижениями
type AchievementController struct {
	achievements *services.AchievementService
	defaultLimit int
}

// NewAchievementController создает новый экземпляр AchievementController
func NewAchievementController(achievements *services.AchievementService, defaultLimit int) *AchievementController {
	if defaultLimit <= 0 {
		defaultLimit = 5
	}
	return &AchievementController{achievements: achievements, defaultLimit: defaultLimit}
}

// GetAllAchievements получает все доступные достижения; секретные скрыты
func (ac *AchievementController) GetAllAchievements(c *fiber.Ctx) error {
	achievements, err := ac.achievements.Catalog(c.UserContext())
	if err != nil {
		return serviceError(c, err, "Ошибка при получении достижений")
	}

	return c.JSON(fiber.Map{
		"achievements": achievements,
		"error":        false,
		"message":      "Достижения получены успешно",
	})
}

// GetMyAchievements каталог с отметками о полученных достижениях текущего пользователя
func (ac *AchievementController) GetMyAchievements(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}

	statuses, err := ac.achievements.UserAchievements(c.UserContext(), userID)
	if err != nil {
		return serviceError(c, err, "Ошибка при получении достижений")
	}
	unlocked := 0
	for _, st := range statuses {
		if st.Unlocked {
			unlocked++
		}
	}

	return c.JSON(fiber.Map{
		"achievements":   statuses,
		"unlocked_count": unlocked,
		"total_count":    len(statuses),
		"error":          false,
		"message":        "Достижения получены успешно",
	})
}

// CheckAchievements проверяет критерии и выдает выполненные достижения
func (ac *AchievementController) CheckAchievements(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}

	unlocked, err := ac.achievements.CheckAndUnlock(c.UserContext(), userID)
	if err != nil {
		return serviceError(c, err, "Ошибка при проверке достижений")
	}

	return c.JSON(fiber.Map{
		"unlocked": unlocked,
		"error":    false,
		"message":  "Проверка достижений выполнена",
	})
}

// GetRecommended достижения, ближайшие к получению
func (ac *AchievementController) GetRecommended(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}
	limit := c.QueryInt("limit", ac.defaultLimit)
	if limit <= 0 || limit > 50 {
		limit = ac.defaultLimit
	}

	recommended, err := ac.achievements.GetRecommended(c.UserContext(), userID, limit)
	if err != nil {
		return serviceError(c, err, "Ошибка при подборе достижений")
	}
	for i := range recommended {
		if recommended[i].Achievement.IsSecret {
			recommended[i].Achievement = services.MaskSecret(recommended[i].Achievement)
		}
	}

	return c.JSON(fiber.Map{
		"recommended": recommended,
		"error":       false,
		"message":     "Рекомендации получены успешно",
	})
}

type markNotifiedRequest struct {
	GrantIDs []uint `json:"grant_ids"`
}

// MarkNotified отмечает полученные достижения как показанные
func (ac *AchievementController) MarkNotified(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}

	var req markNotifiedRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "Неверный формат данных")
		}
	}

	updated, err := ac.achievements.MarkNotified(c.UserContext(), userID, req.GrantIDs)
	if err != nil {
		return serviceError(c, err, "Ошибка при обновлении уведомлений")
	}

	return c.JSON(fiber.Map{
		"updated": updated,
		"error":   false,
		"message": "Уведомления отмечены",
	})
}

// AwardAchievement награждает пользователя достижением (только администратор)
func (ac *AchievementController) AwardAchievement(c *fiber.Ctx) error {
	userID, err := paramID(c, "user_id")
	if err != nil {
		return badRequest(c, "Неверный ID пользователя")
	}
	achievementID, err := paramID(c, "achievement_id")
	if err != nil {
		return badRequest(c, "Неверный ID достижения")
	}

	grant, err := ac.achievements.Unlock(c.UserContext(), userID, achievementID)
	if err != nil {
		return serviceError(c, err, "Ошибка при выдаче достижения")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"user_achievement": grant,
		"error":            false,
		"message":          "Достижение успешно выдано",
	})
}
