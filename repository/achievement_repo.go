package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"goalquest-backend/logger"
	"goalquest-backend/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AchievementRepo достижения, выдачи и игровое состояние пользователей
type AchievementRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

// NewAchievementRepo создает репозиторий достижений
func NewAchievementRepo(db *gorm.DB, baseLog *logger.Logger) *AchievementRepo {
	return &AchievementRepo{
		db:  db,
		log: baseLog.With("repo", "AchievementRepo"),
	}
}

type categoryCount struct {
	CategoryCode string
	Total        int
}

// SignalsFor собирает агрегаты пользователя для проверки критериев
func (r *AchievementRepo) SignalsFor(ctx context.Context, userID uint, now time.Time, lookbackDays int) (*models.SignalBundle, error) {
	db := r.db.WithContext(ctx)

	user, err := r.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	s := &models.SignalBundle{
		UserID:              userID,
		Now:                 now,
		CurrentStreak:       user.CurrentStreak,
		TotalPoints:         user.TotalPoints,
		CategoryCompletions: map[string]int{},
	}

	var goals, active, completed, progress int64
	if err := db.Model(&models.Goal{}).Where("user_id = ?", userID).Count(&goals).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Goal{}).Where("user_id = ? AND status = ?", userID, models.GoalActive).Count(&active).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Goal{}).Where("user_id = ? AND status = ?", userID, models.GoalCompleted).Count(&completed).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Progress{}).Where("user_id = ?", userID).Count(&progress).Error; err != nil {
		return nil, err
	}
	s.GoalCount = int(goals)
	s.ActiveGoalCount = int(active)
	s.CompletedGoalCount = int(completed)
	s.ProgressCount = int(progress)

	var perCategory []categoryCount
	if err := db.Model(&models.Goal{}).
		Select("category_code, COUNT(*) AS total").
		Where("user_id = ? AND status = ? AND category_code IS NOT NULL", userID, models.GoalCompleted).
		Group("category_code").
		Scan(&perCategory).Error; err != nil {
		return nil, err
	}
	for _, c := range perCategory {
		s.CategoryCompletions[c.CategoryCode] = c.Total
	}

	if err := db.Model(&models.TrainingSession{}).
		Select("COALESCE(SUM(duration_seconds), 0)").
		Where("user_id = ?", userID).
		Scan(&s.SessionDurationSeconds).Error; err != nil {
		return nil, err
	}

	var dates []time.Time
	from := now.AddDate(0, 0, -lookbackDays).UTC()
	if err := db.Model(&models.Progress{}).
		Where("user_id = ? AND date >= ?", userID, from).
		Order("date ASC").
		Pluck("date", &dates).Error; err != nil {
		return nil, err
	}
	s.ActiveDays = distinctDays(dates, now.Location())

	return s, nil
}

func distinctDays(dates []time.Time, loc *time.Location) []time.Time {
	seen := make(map[time.Time]struct{}, len(dates))
	out := make([]time.Time, 0, len(dates))
	for _, d := range dates {
		y, m, dd := d.In(loc).Date()
		day := time.Date(y, m, dd, 0, 0, 0, 0, loc)
		if _, ok := seen[day]; ok {
			continue
		}
		seen[day] = struct{}{}
		out = append(out, day)
	}
	return out
}

// LockedAchievementsFor активные достижения, которых у пользователя еще нет
func (r *AchievementRepo) LockedAchievementsFor(ctx context.Context, userID uint) ([]models.Achievement, error) {
	var out []models.Achievement
	granted := r.db.Model(&models.UserAchievement{}).Select("achievement_id").Where("user_id = ?", userID)
	if err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Where("id NOT IN (?)", granted).
		Order("id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ActiveAchievements весь активный каталог
func (r *AchievementRepo) ActiveAchievements(ctx context.Context) ([]models.Achievement, error) {
	var out []models.Achievement
	if err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("points ASC, id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// GetAchievement достижение по ID; ErrNotFound, если его нет
func (r *AchievementRepo) GetAchievement(ctx context.Context, achievementID uint) (*models.Achievement, error) {
	var a models.Achievement
	if err := r.db.WithContext(ctx).First(&a, achievementID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("achievement %d: %w", achievementID, models.ErrNotFound)
		}
		return nil, err
	}
	return &a, nil
}

// GrantsFor выдачи пользователя, новые первыми
func (r *AchievementRepo) GrantsFor(ctx context.Context, userID uint) ([]models.UserAchievement, error) {
	var out []models.UserAchievement
	if err := r.db.WithContext(ctx).
		Preload("Achievement").
		Where("user_id = ?", userID).
		Order("unlocked_at DESC, id DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// HasGrant есть ли у пользователя выдача достижения
func (r *AchievementRepo) HasGrant(ctx context.Context, userID, achievementID uint) (bool, error) {
	return hasGrant(r.db.WithContext(ctx), userID, achievementID)
}

func hasGrant(tx *gorm.DB, userID, achievementID uint) (bool, error) {
	var count int64
	if err := tx.Model(&models.UserAchievement{}).
		Where("user_id = ? AND achievement_id = ?", userID, achievementID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetUser пользователь по ID; ErrNotFound, если его нет
func (r *AchievementRepo) GetUser(ctx context.Context, userID uint) (*models.User, error) {
	var u models.User
	if err := r.db.WithContext(ctx).First(&u, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %d: %w", userID, models.ErrNotFound)
		}
		return nil, err
	}
	return &u, nil
}

// Unlock выдает достижение в одной транзакции с обновлением пользователя
func (r *AchievementRepo) Unlock(ctx context.Context, userID, achievementID uint, apply func(u *models.User) (*models.UserAchievement, error)) (*models.UserAchievement, error) {
	var grant *models.UserAchievement
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := lockUser(tx, userID)
		if err != nil {
			return err
		}

		exists, err := hasGrant(tx, userID, achievementID)
		if err != nil {
			return err
		}
		if exists {
			return models.ErrAlreadyUnlocked
		}

		g, err := apply(user)
		if err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Create(g).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return models.ErrAlreadyUnlocked
			}
			return err
		}
		if err := tx.Save(user).Error; err != nil {
			return err
		}
		grant = g
		return nil
	})
	if err != nil {
		if errors.Is(err, models.ErrAlreadyUnlocked) {
			r.log.Debug("Повторная выдача отклонена", "user_id", userID, "achievement_id", achievementID)
		}
		return nil, err
	}
	return grant, nil
}

// UpdateUser применяет apply к пользователю под блокировкой строки
func (r *AchievementRepo) UpdateUser(ctx context.Context, userID uint, apply func(u *models.User) error) (*models.User, error) {
	var out *models.User
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := lockUser(tx, userID)
		if err != nil {
			return err
		}
		if err := apply(user); err != nil {
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

// MarkNotified отмечает выдачи показанными; пустой список отмечает все
func (r *AchievementRepo) MarkNotified(ctx context.Context, userID uint, grantIDs []uint) (int64, error) {
	q := r.db.WithContext(ctx).Model(&models.UserAchievement{}).
		Where("user_id = ? AND is_notified = ?", userID, false)
	if len(grantIDs) > 0 {
		q = q.Where("id IN ?", grantIDs)
	}
	res := q.Update("is_notified", true)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// Leaderboard активные пользователи по убыванию очков
func (r *AchievementRepo) Leaderboard(ctx context.Context, limit, offset int) ([]models.User, int64, error) {
	var total int64
	q := r.db.WithContext(ctx).Model(&models.User{}).Where("is_active = ?", true).Session(&gorm.Session{})
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var users []models.User
	if err := q.Order("total_points DESC, id ASC").
		Limit(limit).
		Offset(offset).
		Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// lockUser читает пользователя внутри транзакции. На postgres строка блокируется FOR UPDATE,
// SQLite сериализует запись на уровне соединения.
func lockUser(tx *gorm.DB, userID uint) (*models.User, error) {
	q := tx
	if tx.Dialector.Name() == "postgres" {
		q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var u models.User
	if err := q.First(&u, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user %d: %w", userID, models.ErrNotFound)
		}
		return nil, err
	}
	return &u, nil
}
