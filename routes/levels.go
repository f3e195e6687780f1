package routes

import (
	"goalquest-backend/controllers"
	"goalquest-backend/utils"

	"github.com/gofiber/fiber/v2"
)

// SetupLevelRoutes настраивает маршруты для управления уровнями пользователей
func SetupLevelRoutes(app *fiber.App, levelController *controllers.LevelController) {
	api := app.Group("/api")

	// Маршруты для уровней
	levels := api.Group("/levels")
	levels.Get("/me", utils.AuthMiddleware, levelController.GetMyLevel)                                         // GET /api/levels/me - мой уровень
	levels.Get("/leaderboard", levelController.GetLeaderboard)                                                  // GET /api/levels/leaderboard - таблица лидеров
	levels.Post("/user/:id/add-points", utils.AuthMiddleware, utils.AdminMiddleware, levelController.AddPoints) // POST /api/levels/user/:id/add-points - добавить очки пользователю
}
