package repository

import (
	"context"
	"fmt"
	"time"

	"goalquest-backend/logger"
	"goalquest-backend/models"

	"gorm.io/gorm"
)

// ActivityRepo запись прогресса и сессий
type ActivityRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

// NewActivityRepo создает репозиторий активности
func NewActivityRepo(db *gorm.DB, baseLog *logger.Logger) *ActivityRepo {
	return &ActivityRepo{
		db:  db,
		log: baseLog.With("repo", "ActivityRepo"),
	}
}

// RecordProgress сохраняет запись и обновленного пользователя в одной транзакции
func (r *ActivityRepo) RecordProgress(ctx context.Context, p *models.Progress, apply func(u *models.User) error) (*models.User, error) {
	var out *models.User
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := lockUser(tx, p.UserID)
		if err != nil {
			return err
		}
		if err := apply(user); err != nil {
			return err
		}
		p.Date = p.Date.UTC()
		if err := tx.Create(p).Error; err != nil {
			return err
		}
		if err := tx.Save(user).Error; err != nil {
			return err
		}
		out = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CreateSession сохраняет тренировочную сессию
func (r *ActivityRepo) CreateSession(ctx context.Context, s *models.TrainingSession) error {
	s.StartedAt = s.StartedAt.UTC()
	return r.db.WithContext(ctx).Create(s).Error
}

// CompleteGoal переводит активную цель в completed; для других статусов ничего не делает
func (r *ActivityRepo) CompleteGoal(ctx context.Context, goalID uint, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&models.Goal{}).
		Where("id = ? AND status = ?", goalID, models.GoalActive).
		Updates(map[string]interface{}{
			"status":       models.GoalCompleted,
			"completed_at": at.UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		r.log.Debug("Цель уже не активна", "goal_id", goalID)
	}
	return nil
}

// CreateGoal сохраняет цель и ее метрики в одной транзакции
func (r *ActivityRepo) CreateGoal(ctx context.Context, g *models.Goal) error {
	g.StartDate = g.StartDate.UTC()
	if g.EndDate != nil {
		end := g.EndDate.UTC()
		g.EndDate = &end
	}
	return r.db.WithContext(ctx).Omit("User").Create(g).Error
}

// UpdateGoalStatus меняет статус и дату выполнения цели; ErrNotFound, если цели нет
func (r *ActivityRepo) UpdateGoalStatus(ctx context.Context, goalID uint, status models.GoalStatus, completedAt *time.Time) error {
	updates := map[string]interface{}{"status": status, "completed_at": nil}
	if completedAt != nil {
		updates["completed_at"] = completedAt.UTC()
	}
	res := r.db.WithContext(ctx).Model(&models.Goal{}).Where("id = ?", goalID).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("goal %d: %w", goalID, models.ErrNotFound)
	}
	return nil
}
