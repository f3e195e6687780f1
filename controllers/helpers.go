package controllers

import (
	"errors"
	"strconv"
	"time"

	"goalquest-backend/models"

	"github.com/gofiber/fiber/v2"
)

// currentUserID ID пользователя, сохраненный AuthMiddleware
func currentUserID(c *fiber.Ctx) (uint, bool) {
	id, ok := c.Locals("user_id").(uint)
	return id, ok && id != 0
}

func paramID(c *fiber.Ctx, name string) (uint, error) {
	v, err := strconv.ParseUint(c.Params(name), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(v), nil
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error":   true,
		"message": "Необходима авторизация",
	})
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}

// serviceError переводит доменную ошибку в HTTP-ответ
func serviceError(c *fiber.Ctx, err error, fallback string) error {
	status := fiber.StatusInternalServerError
	message := fallback
	switch {
	case errors.Is(err, models.ErrNotFound):
		status, message = fiber.StatusNotFound, "Не найдено"
	case errors.Is(err, models.ErrForbidden):
		status, message = fiber.StatusForbidden, "Нет доступа"
	case errors.Is(err, models.ErrAlreadyUnlocked):
		status, message = fiber.StatusConflict, "Достижение уже получено"
	case errors.Is(err, models.ErrInvalidArgument), errors.Is(err, models.ErrInvalidPeriod):
		status, message = fiber.StatusBadRequest, err.Error()
	}
	return c.Status(status).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}

// parseDate принимает RFC3339 или YYYY-MM-DD
func parseDate(raw string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02", raw, loc)
}
