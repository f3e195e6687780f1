package routes

import (
	"goalquest-backend/controllers"
	"goalquest-backend/utils"

	"github.com/gofiber/fiber/v2"
)

// SetupProgressRoutes маршруты записи активности
func SetupProgressRoutes(app *fiber.App, progressController *controllers.ProgressController) {
	api := app.Group("/api")

	api.Post("/progress", utils.AuthMiddleware, progressController.RecordProgress) // POST /api/progress - записать значение метрики
	api.Post("/sessions", utils.AuthMiddleware, progressController.RecordSession)  // POST /api/sessions - записать тренировочную сессию
}
