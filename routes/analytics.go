package routes

import (
	"goalquest-backend/controllers"
	"goalquest-backend/utils"

	"github.com/gofiber/fiber/v2"
)

// SetupAnalyticsRoutes маршруты прогнозов и рекомендаций
func SetupAnalyticsRoutes(app *fiber.App, analyticsController *controllers.AnalyticsController) {
	api := app.Group("/api")

	api.Get("/goals/:id/prediction", utils.AuthMiddleware, analyticsController.GetPrediction)              // GET /api/goals/:id/prediction - прогноз выполнения
	api.Get("/goals/:id/compare", utils.AuthMiddleware, analyticsController.ComparePeriods)                // GET /api/goals/:id/compare - сравнение двух периодов
	api.Get("/metrics/:id/evolution", utils.AuthMiddleware, analyticsController.GetMetricEvolution)        // GET /api/metrics/:id/evolution - изменение метрики
	api.Get("/recommendations/weekly", utils.AuthMiddleware, analyticsController.GetWeeklyRecommendations) // GET /api/recommendations/weekly - рекомендации недели
}
