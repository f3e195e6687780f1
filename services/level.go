package services

import (
	"math"

	"goalquest-backend/models"
)

// pointsPerLevelUnit очки на единицу квадрата уровня: порог уровня L равен (L-1)^2 * 100
const pointsPerLevelUnit = 100

// LevelProgress положение пользователя между порогами уровней
type LevelProgress struct {
	Level                   int     `json:"level"`
	TotalPoints             int     `json:"total_points"`
	CurrentLevelPoints      int     `json:"current_level_points"`
	NextLevelPoints         int     `json:"next_level_points"`
	PointsToNextLevel       int     `json:"points_to_next_level"`
	LevelProgressPercentage float64 `json:"level_progress_percentage"`
}

// LevelForPoints уровень = 1 + floor(sqrt(points / 100))
func LevelForPoints(points int) int {
	if points <= 0 {
		return 1
	}
	return 1 + isqrt(points/pointsPerLevelUnit)
}

// LevelThreshold минимальное количество очков для уровня level
func LevelThreshold(level int) int {
	if level <= 1 {
		return 0
	}
	return (level - 1) * (level - 1) * pointsPerLevelUnit
}

// AddPoints начисляет очки и пересчитывает уровень с нуля. Отрицательные начисления игнорируются.
func AddPoints(u *models.User, points int) (leveledUp bool) {
	if points < 0 {
		return false
	}
	old := u.Level
	u.TotalPoints += points
	u.Level = LevelForPoints(u.TotalPoints)
	return u.Level > old
}

// ComputeLevelProgress прогресс до следующего уровня
func ComputeLevelProgress(totalPoints int) LevelProgress {
	if totalPoints < 0 {
		totalPoints = 0
	}
	level := LevelForPoints(totalPoints)
	current := LevelThreshold(level)
	next := LevelThreshold(level + 1)

	pct := 0.0
	if next > current {
		pct = float64(totalPoints-current) / float64(next-current) * 100
	}

	return LevelProgress{
		Level:                   level,
		TotalPoints:             totalPoints,
		CurrentLevelPoints:      current,
		NextLevelPoints:         next,
		PointsToNextLevel:       max(0, next-totalPoints),
		LevelProgressPercentage: clamp(pct, 0, 100),
	}
}

// floor(sqrt(n)) без ошибок округления float64
func isqrt(n int) int {
	if n <= 0 {
		return 0
	}
	r := int(math.Sqrt(float64(n)))
	for r*r > n {
		r--
	}
	for (r+1)*(r+1) <= n {
		r++
	}
	return r
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
