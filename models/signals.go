package models

import "time"

// SignalBundle агрегированные сигналы пользователя для проверки критериев достижений
type SignalBundle struct {
	UserID                 uint
	Now                    time.Time
	GoalCount              int
	ActiveGoalCount        int
	ProgressCount          int
	CompletedGoalCount     int
	CategoryCompletions    map[string]int
	CurrentStreak          int
	TotalPoints            int
	SessionDurationSeconds int64

	// ActiveDays уникальные календарные дни с записями прогресса (полночь в часовом поясе Now)
	ActiveDays []time.Time
}

// SeriesPoint точка временного ряда метрики
type SeriesPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}
