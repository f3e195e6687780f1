package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"goalquest-backend/config"
	"goalquest-backend/logger"
	"goalquest-backend/models"
	"goalquest-backend/repository"
	"goalquest-backend/services"
	"goalquest-backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testCatalog = `
categories:
  - {code: sport, name: Спорт}
achievements:
  - {code: first_goal, name: Первая цель, points: 10, criteria: {type: goal_created, count: 1}}
  - {code: first_step, name: Первый шаг, points: 10, criteria: {type: progress_recorded, count: 1}}
  - {code: goal_done, name: Цель достигнута, points: 25, criteria: {type: goals_completed, count: 1}}
  - {code: marathon, name: Марафонец, points: 500, level: gold, secret: true, criteria: {type: streak, days: 30}}
`

// setupTestDB создает тестовую базу данных в памяти с загруженным каталогом
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := models.InitDB(models.DBConfig{SQLitePath: ":memory:", Silent: true})
	require.NoError(t, err)
	require.NoError(t, models.AutoMigrate(db))

	catalog, err := config.ParseCatalog([]byte(testCatalog))
	require.NoError(t, err)
	require.NoError(t, catalog.Validate(services.ValidateCriteria))
	require.NoError(t, repository.SeedCatalog(t.Context(), db, catalog, logger.NewNop()))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// setupTestApp собирает приложение так же, как main
func setupTestApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()
	db := setupTestDB(t)
	cfg := config.Default()
	utils.SetJWTSecret(cfg.JWT.Secret)
	return setupApp(db, cfg, logger.NewNop(), nil), db
}

// createTestUser создает пользователя и возвращает его вместе с заголовком авторизации
func createTestUser(t *testing.T, db *gorm.DB, name string, admin bool) (*models.User, string) {
	t.Helper()
	user := &models.User{Name: name, Email: name + "@goalquest.test", IsActive: true, IsAdmin: admin, Level: 1}
	require.NoError(t, db.Create(user).Error)

	token, err := utils.GenerateJWT(user.ID, user.Email, admin)
	require.NoError(t, err)
	return user, "Bearer " + token
}

// doRequest выполняет запрос к приложению и разбирает JSON-ответ
func doRequest(t *testing.T, app *fiber.App, method, path string, body interface{}, auth string) (int, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]interface{}
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return resp.StatusCode, out
}

// createGoalViaAPI создает цель с одной основной метрикой 0 -> target
func createGoalViaAPI(t *testing.T, app *fiber.App, auth string, target float64) uint {
	t.Helper()
	status, body := doRequest(t, app, http.MethodPost, "/api/goals", fiber.Map{
		"title":         "Пробежать " + "марафон",
		"category_code": "sport",
		"metrics": []fiber.Map{
			{"name": "км", "initial_value": 0, "target_value": target, "is_primary": true},
		},
	}, auth)
	require.Equal(t, http.StatusCreated, status, body)
	goal := body["goal"].(map[string]interface{})
	return uint(goal["id"].(float64))
}

func primaryMetricID(t *testing.T, db *gorm.DB, goalID uint) uint {
	t.Helper()
	var m models.Metric
	require.NoError(t, db.Where("goal_id = ? AND is_primary = ?", goalID, true).First(&m).Error)
	return m.ID
}

func unlockedCodes(body map[string]interface{}, key string) []string {
	var codes []string
	list, _ := body[key].([]interface{})
	for _, item := range list {
		grant := item.(map[string]interface{})
		achievement := grant["achievement"].(map[string]interface{})
		codes = append(codes, achievement["code"].(string))
	}
	return codes
}
