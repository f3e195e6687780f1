package models

import (
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// User представляет пользователя вместе с его игровым состоянием
type User struct {
	ID       uint   `json:"id" gorm:"primaryKey"`
	Name     string `json:"name" gorm:"not null"`
	Email    string `json:"email" gorm:"uniqueIndex;not null"`
	IsActive bool   `json:"is_active" gorm:"default:true"`
	IsAdmin  bool   `json:"is_admin" gorm:"default:false"`

	// Игровое состояние
	Level            int        `json:"level" gorm:"not null;default:1"`
	TotalPoints      int        `json:"total_points" gorm:"not null;default:0;index"`
	CurrentStreak    int        `json:"current_streak" gorm:"not null;default:0"`
	LongestStreak    int        `json:"longest_streak" gorm:"not null;default:0"`
	LastActivityDate *time.Time `json:"last_activity_date"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DBConfig параметры подключения к базе данных
type DBConfig struct {
	URL        string // PostgreSQL DSN, если пустой используется SQLite
	SQLitePath string
	Silent     bool
}

// InitDB инициализирует подключение к базе данных
func InitDB(cfg DBConfig) (*gorm.DB, error) {
	gormCfg := &gorm.Config{TranslateError: true}
	if cfg.Silent {
		gormCfg.Logger = gormLogger.Default.LogMode(gormLogger.Silent)
	}

	if cfg.URL != "" {
		// Используем PostgreSQL для продакшена
		return gorm.Open(postgres.Open(cfg.URL), gormCfg)
	}

	// Используем SQLite для разработки
	path := cfg.SQLitePath
	if path == "" {
		path = "goalquest.db"
	}
	db, err := gorm.Open(sqlite.Open(path), gormCfg)
	if err != nil {
		return nil, err
	}

	// SQLite не умеет параллельные транзакции записи, держим одно соединение
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	return db, nil
}

// AutoMigrate создает таблицы всех моделей
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Category{},
		&Achievement{},
		&UserAchievement{},
		&Goal{},
		&Metric{},
		&Progress{},
		&TrainingSession{},
	)
}

// BeforeCreate хук для установки начального уровня
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.Level < 1 {
		u.Level = 1
	}
	return nil
}
