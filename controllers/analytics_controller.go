package controllers

import (
	"time"

	"goalquest-backend/services"

	"github.com/gofiber/fiber/v2"
)

// AnalyticsController прогнозы, сравнение периодов и рекомендации
type AnalyticsController struct {
	analytics       *services.AnalyticsService
	recommendations *services.RecommendationService
	loc             *time.Location
	now             func() time.Time
}

// NewAnalyticsController создает новый экземпляр AnalyticsController
func NewAnalyticsController(analytics *services.AnalyticsService, recommendations *services.RecommendationService, loc *time.Location) *AnalyticsController {
	if loc == nil {
		loc = time.UTC
	}
	return &AnalyticsController{
		analytics:       analytics,
		recommendations: recommendations,
		loc:             loc,
		now:             time.Now,
	}
}

// GetPrediction прогноз выполнения цели
func (ac *AnalyticsController) GetPrediction(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}
	goalID, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, "Неверный ID цели")
	}

	prediction, err := ac.analytics.PredictCompletion(c.UserContext(), userID, goalID)
	if err != nil {
		return serviceError(c, err, "Ошибка при построении прогноза")
	}

	return c.JSON(fiber.Map{
		"prediction": prediction,
		"error":      false,
		"message":    "Прогноз построен",
	})
}

// ComparePeriods сравнивает два периода: p1_start, p1_end, p2_start, p2_end
func (ac *AnalyticsController) ComparePeriods(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}
	goalID, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, "Неверный ID цели")
	}

	bounds := make([]time.Time, 4)
	for i, name := range []string{"p1_start", "p1_end", "p2_start", "p2_end"} {
		raw := c.Query(name)
		if raw == "" {
			return badRequest(c, "Параметр "+name+" обязателен")
		}
		t, err := ac.parseBound(raw, i%2 == 1)
		if err != nil {
			return badRequest(c, "Неверный формат даты "+name)
		}
		bounds[i] = t
	}

	comparison, err := ac.analytics.ComparePeriods(c.UserContext(), userID, goalID, bounds[0], bounds[1], bounds[2], bounds[3])
	if err != nil {
		return serviceError(c, err, "Ошибка при сравнении периодов")
	}

	return c.JSON(fiber.Map{
		"comparison": comparison,
		"error":      false,
		"message":    "Сравнение выполнено",
	})
}

// GetMetricEvolution изменение метрики; по умолчанию последние 30 дней
func (ac *AnalyticsController) GetMetricEvolution(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}
	metricID, err := paramID(c, "id")
	if err != nil {
		return badRequest(c, "Неверный ID метрики")
	}

	to := ac.now()
	from := to.AddDate(0, 0, -30)
	if raw := c.Query("from"); raw != "" {
		if from, err = ac.parseBound(raw, false); err != nil {
			return badRequest(c, "Неверный формат даты from")
		}
	}
	if raw := c.Query("to"); raw != "" {
		if to, err = ac.parseBound(raw, true); err != nil {
			return badRequest(c, "Неверный формат даты to")
		}
	}

	evolution, err := ac.analytics.MetricEvolution(c.UserContext(), userID, metricID, from, to)
	if err != nil {
		return serviceError(c, err, "Ошибка при анализе метрики")
	}

	return c.JSON(fiber.Map{
		"evolution": evolution,
		"error":     false,
		"message":   "Анализ метрики выполнен",
	})
}

// GetWeeklyRecommendations недельные рекомендации текущего пользователя
func (ac *AnalyticsController) GetWeeklyRecommendations(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return unauthorized(c)
	}

	recommendations, err := ac.recommendations.WeeklyRecommendations(c.UserContext(), userID)
	if err != nil {
		return serviceError(c, err, "Ошибка при подборе рекомендаций")
	}

	return c.JSON(fiber.Map{
		"recommendations": recommendations,
		"error":           false,
		"message":         "Рекомендации получены успешно",
	})
}

// parseBound для даты без времени конец периода включает весь день
func (ac *AnalyticsController) parseBound(raw string, end bool) (time.Time, error) {
	t, err := parseDate(raw, ac.loc)
	if err != nil {
		return time.Time{}, err
	}
	if end && len(raw) == len("2006-01-02") {
		t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return t, nil
}
