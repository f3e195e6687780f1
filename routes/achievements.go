package routes

import (
	"goalquest-backend/controllers"
	"goalquest-backend/utils"

	"github.com/gofiber/fiber/v2"
)

// SetupAchievementRoutes настраивает маршруты для управления достижениями
func SetupAchievementRoutes(app *fiber.App, achievementController *controllers.AchievementController) {
	api := app.Group("/api")

	// Маршруты для достижений
	achievements := api.Group("/achievements")
	achievements.Get("/", achievementController.GetAllAchievements) // GET /api/achievements - каталог достижений

	me := achievements.Group("/me", utils.AuthMiddleware)
	me.Get("/", achievementController.GetMyAchievements)         // GET /api/achievements/me - мои достижения
	me.Post("/check", achievementController.CheckAchievements)   // POST /api/achievements/me/check - проверить и выдать
	me.Get("/recommended", achievementController.GetRecommended) // GET /api/achievements/me/recommended?limit= - ближайшие к получению
	me.Post("/notified", achievementController.MarkNotified)     // POST /api/achievements/me/notified - отметить показанными

	achievements.Post("/user/:user_id/award/:achievement_id", utils.AuthMiddleware, utils.AdminMiddleware, achievementController.AwardAchievement) // POST /api/achievements/user/:user_id/award/:achievement_id - наградить достижением
}
