package models

import (
	"time"
)

// EvolutionType направление, в котором должна двигаться метрика
type EvolutionType string

const (
	EvolutionIncrease EvolutionType = "increase"
	EvolutionDecrease EvolutionType = "decrease"
	EvolutionMaintain EvolutionType = "maintain"
)

// GoalStatus статус цели
type GoalStatus string

const (
	GoalActive    GoalStatus = "active"
	GoalCompleted GoalStatus = "completed"
	GoalPaused    GoalStatus = "paused"
	GoalArchived  GoalStatus = "archived"
)

// Category категория целей (спорт, учеба, здоровье ...)
type Category struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Code      string    `json:"code" gorm:"uniqueIndex;not null"`
	Name      string    `json:"name" gorm:"not null"`
	Icon      string    `json:"icon" gorm:"default:''"`
	Color     string    `json:"color" gorm:"default:''"`
	CreatedAt time.Time `json:"created_at"`
}

// Goal цель пользователя
type Goal struct {
	ID           uint       `json:"id" gorm:"primaryKey"`
	UserID       uint       `json:"user_id" gorm:"not null;index"`
	Title        string     `json:"title" gorm:"not null"`
	Description  string     `json:"description" gorm:"type:text;default:''"`
	CategoryCode *string    `json:"category_code" gorm:"index"`
	Status       GoalStatus `json:"status" gorm:"type:varchar(16);not null;default:'active';index"`
	StartDate    time.Time  `json:"start_date"`
	EndDate      *time.Time `json:"end_date"`
	CompletedAt  *time.Time `json:"completed_at"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`

	// Связи
	User    User     `json:"-" gorm:"foreignKey:UserID"`
	Metrics []Metric `json:"metrics,omitempty" gorm:"foreignKey:GoalID"`
}

// PrimaryMetric возвращает основную метрику цели
func (g *Goal) PrimaryMetric() *Metric {
	for i := range g.Metrics {
		if g.Metrics[i].IsPrimary {
			return &g.Metrics[i]
		}
	}
	return nil
}

// Metric измеримый показатель цели
type Metric struct {
	ID            uint          `json:"id" gorm:"primaryKey"`
	GoalID        uint          `json:"goal_id" gorm:"not null;index"`
	Name          string        `json:"name" gorm:"not null"`
	Unit          string        `json:"unit" gorm:"default:''"`
	InitialValue  float64       `json:"initial_value" gorm:"not null;default:0"`
	TargetValue   float64       `json:"target_value" gorm:"not null"`
	EvolutionType EvolutionType `json:"evolution_type" gorm:"type:varchar(16);not null;default:'increase'"`
	IsPrimary     bool          `json:"is_primary" gorm:"not null;default:false"`
	CreatedAt     time.Time     `json:"created_at"`
}

// Progress запись прогресса по метрике
type Progress struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	UserID       uint      `json:"user_id" gorm:"not null;index:idx_progress_user_date,priority:1"`
	GoalID       uint      `json:"goal_id" gorm:"not null;index"`
	MetricID     uint      `json:"metric_id" gorm:"not null;index:idx_progress_metric_date,priority:1"`
	Date         time.Time `json:"date" gorm:"not null;index:idx_progress_user_date,priority:2;index:idx_progress_metric_date,priority:2"`
	Value        float64   `json:"value" gorm:"not null"`
	Satisfaction *int      `json:"satisfaction"` // 1..5
	Note         string    `json:"note" gorm:"type:text;default:''"`
	CreatedAt    time.Time `json:"created_at"`
}

// TrainingSession тренировочная сессия пользователя
type TrainingSession struct {
	ID              uint      `json:"id" gorm:"primaryKey"`
	UserID          uint      `json:"user_id" gorm:"not null;index"`
	GoalID          *uint     `json:"goal_id" gorm:"index"`
	StartedAt       time.Time `json:"started_at" gorm:"not null"`
	DurationSeconds int64     `json:"duration_seconds" gorm:"not null"`
	Satisfaction    *int      `json:"satisfaction"`
	Note            string    `json:"note" gorm:"type:text;default:''"`
	CreatedAt       time.Time `json:"created_at"`
}
