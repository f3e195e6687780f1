package routes

import (
	"goalquest-backend/controllers"
	"goalquest-backend/utils"

	"github.com/gofiber/fiber/v2"
)

// SetupGoalRoutes настраивает маршруты для управления целями
func SetupGoalRoutes(app *fiber.App, goalController *controllers.GoalController) {
	goals := app.Group("/api/goals")

	// POST /api/goals - создать цель
	goals.Post("/", utils.AuthMiddleware, goalController.CreateGoal)

	// GET /api/goals - мои цели
	goals.Get("/", utils.AuthMiddleware, goalController.GetGoals)

	// GET /api/goals/:id - детали цели
	goals.Get("/:id", utils.AuthMiddleware, goalController.GetGoal)

	// PUT /api/goals/:id/status - сменить статус цели
	goals.Put("/:id/status", utils.AuthMiddleware, goalController.UpdateGoalStatus)
}
