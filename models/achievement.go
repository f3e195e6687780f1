package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AchievementLevel ранг достижения
type AchievementLevel string

const (
	LevelBronze   AchievementLevel = "bronze"
	LevelSilver   AchievementLevel = "silver"
	LevelGold     AchievementLevel = "gold"
	LevelPlatinum AchievementLevel = "platinum"
	LevelDiamond  AchievementLevel = "diamond"
)

// Valid проверяет, что ранг входит в известный список
func (l AchievementLevel) Valid() bool {
	switch l {
	case LevelBronze, LevelSilver, LevelGold, LevelPlatinum, LevelDiamond:
		return true
	}
	return false
}

// Achievement представляет модель достижения (бейджа) в системе
type Achievement struct {
	ID           uint             `json:"id" gorm:"primaryKey"`
	Name         string           `json:"name" gorm:"not null"`
	Code         string           `json:"code" gorm:"uniqueIndex;not null"`
	Description  string           `json:"description" gorm:"type:text;not null"`
	Icon         string           `json:"icon" gorm:"not null;default:''"`
	Points       int              `json:"points" gorm:"not null;default:0"`
	Criteria     datatypes.JSON   `json:"criteria" gorm:"not null"` // {"type": "streak", "days": 7}
	Level        AchievementLevel `json:"level" gorm:"type:varchar(16);not null;default:'bronze'"`
	CategoryCode *string          `json:"category_code" gorm:"index"`
	IsActive     bool             `json:"is_active" gorm:"not null;index"`
	IsSecret     bool             `json:"is_secret" gorm:"not null"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// UserAchievement запись о получении достижения пользователем.
// Пара (user_id, achievement_id) уникальна: достижение выдается не более одного раза.
type UserAchievement struct {
	ID            uint              `json:"id" gorm:"primaryKey"`
	UserID        uint              `json:"user_id" gorm:"not null;index:idx_user_achievement_unique,unique,priority:1"`
	AchievementID uint              `json:"achievement_id" gorm:"not null;index:idx_user_achievement_unique,unique,priority:2"`
	UnlockedAt    time.Time         `json:"unlocked_at" gorm:"not null"`
	UnlockData    datatypes.JSONMap `json:"unlock_data"`
	IsNotified    bool              `json:"is_notified" gorm:"not null;default:false"`
	CreatedAt     time.Time         `json:"created_at"`

	// Связи
	User        User        `json:"-" gorm:"foreignKey:UserID"`
	Achievement Achievement `json:"achievement" gorm:"foreignKey:AchievementID"`
}

// BeforeCreate хук для установки времени получения
func (ua *UserAchievement) BeforeCreate(tx *gorm.DB) error {
	if ua.UnlockedAt.IsZero() {
		ua.UnlockedAt = time.Now()
	}
	return nil
}
