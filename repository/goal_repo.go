package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"goalquest-backend/logger"
	"goalquest-backend/models"

	"gorm.io/gorm"
)

// GoalRepo чтение целей, метрик и записей прогресса
type GoalRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

// NewGoalRepo создает репозиторий целей
func NewGoalRepo(db *gorm.DB, baseLog *logger.Logger) *GoalRepo {
	return &GoalRepo{
		db:  db,
		log: baseLog.With("repo", "GoalRepo"),
	}
}

// GetGoal цель с метриками; ErrNotFound, если ее нет
func (r *GoalRepo) GetGoal(ctx context.Context, goalID uint) (*models.Goal, error) {
	var g models.Goal
	if err := r.db.WithContext(ctx).
		Preload("Metrics", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		First(&g, goalID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("goal %d: %w", goalID, models.ErrNotFound)
		}
		return nil, err
	}
	return &g, nil
}

// GetMetric метрика по ID; ErrNotFound, если ее нет
func (r *GoalRepo) GetMetric(ctx context.Context, metricID uint) (*models.Metric, error) {
	var m models.Metric
	if err := r.db.WithContext(ctx).First(&m, metricID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("metric %d: %w", metricID, models.ErrNotFound)
		}
		return nil, err
	}
	return &m, nil
}

// ActiveGoals активные цели пользователя вместе с метриками
func (r *GoalRepo) ActiveGoals(ctx context.Context, userID uint) ([]models.Goal, error) {
	var out []models.Goal
	if err := r.db.WithContext(ctx).
		Preload("Metrics", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("user_id = ? AND status = ?", userID, models.GoalActive).
		Order("id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ListGoals цели пользователя, новые первыми; пустой status означает все
func (r *GoalRepo) ListGoals(ctx context.Context, userID uint, status models.GoalStatus) ([]models.Goal, error) {
	var out []models.Goal
	q := r.db.WithContext(ctx).
		Preload("Metrics", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Where("user_id = ?", userID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if err := q.Order("id DESC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// TimeSeries значения метрики в [from, to] по возрастанию даты
func (r *GoalRepo) TimeSeries(ctx context.Context, metricID uint, from, to time.Time) ([]models.SeriesPoint, error) {
	var rows []models.Progress
	if err := r.db.WithContext(ctx).
		Select("date", "value").
		Where("metric_id = ? AND date >= ? AND date <= ?", metricID, from.UTC(), to.UTC()).
		Order("date ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]models.SeriesPoint, len(rows))
	for i, p := range rows {
		out[i] = models.SeriesPoint{Date: p.Date, Value: p.Value}
	}
	return out, nil
}

// ProgressBetween записи прогресса цели в [from, to]
func (r *GoalRepo) ProgressBetween(ctx context.Context, goalID uint, from, to time.Time) ([]models.Progress, error) {
	var out []models.Progress
	if err := r.db.WithContext(ctx).
		Where("goal_id = ? AND date >= ? AND date <= ?", goalID, from.UTC(), to.UTC()).
		Order("date ASC, id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// LastProgressAt дата последней записи по цели или nil
func (r *GoalRepo) LastProgressAt(ctx context.Context, goalID uint) (*time.Time, error) {
	var p models.Progress
	res := r.db.WithContext(ctx).
		Where("goal_id = ?", goalID).
		Order("date DESC").
		Limit(1).
		Find(&p)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &p.Date, nil
}
