package routes

import (
	"goalquest-backend/controllers"
	"goalquest-backend/utils"

	"github.com/gofiber/fiber/v2"
)

// SetupDashboardRoutes настраивает маршруты для дашборда
func SetupDashboardRoutes(app *fiber.App, dashboardController *controllers.DashboardController) {
	api := app.Group("/api/dashboard", utils.AuthMiddleware)

	// Получение сводки для главного экрана
	api.Get("/", dashboardController.GetDashboardData)
}
