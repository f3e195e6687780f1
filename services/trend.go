package services

import "math"

// TrendDirection направление тренда
type TrendDirection string

const (
	TrendIncreasing       TrendDirection = "increasing"
	TrendDecreasing       TrendDirection = "decreasing"
	TrendStable           TrendDirection = "stable"
	TrendInsufficientData TrendDirection = "insufficient_data"
)

// Confidence уровень доверия к тренду
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// stableSlope модуль наклона, ниже которого тренд считается стабильным
const stableSlope = 0.1

// TrendResult результат линейной регрессии по ряду значений
type TrendResult struct {
	Direction        TrendDirection `json:"direction"`
	Slope            float64        `json:"slope"`
	RSquared         float64        `json:"r_squared"`
	Confidence       Confidence     `json:"confidence"`
	PercentageChange float64        `json:"percentage_change"`
	Points           int            `json:"points"`
}

// AnalyzeTrend строит регрессию МНК, где x это индекс 0..n-1
func AnalyzeTrend(values []float64) TrendResult {
	n := len(values)
	if n < 2 {
		return TrendResult{
			Direction:  TrendInsufficientData,
			Confidence: ConfidenceLow,
			Points:     n,
		}
	}

	var sumX, sumY, sumXY, sumX2 float64
	for i, y := range values {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumX2 += x * x
	}
	fn := float64(n)

	// при n >= 2 знаменатель строго положителен
	slope := (fn*sumXY - sumX*sumY) / (fn*sumX2 - sumX*sumX)
	intercept := (sumY - slope*sumX) / fn

	mean := sumY / fn
	var ssTot, ssRes float64
	for i, y := range values {
		predicted := intercept + slope*float64(i)
		ssRes += (y - predicted) * (y - predicted)
		ssTot += (y - mean) * (y - mean)
	}
	rSquared := 0.0
	if ssTot > 0 {
		rSquared = 1 - ssRes/ssTot
	}

	return TrendResult{
		Direction:        DirectionFromSlope(slope),
		Slope:            slope,
		RSquared:         rSquared,
		Confidence:       ConfidenceFromRSquared(rSquared),
		PercentageChange: PercentageChange(values[0], values[n-1]),
		Points:           n,
	}
}

// DirectionFromSlope классифицирует наклон
func DirectionFromSlope(slope float64) TrendDirection {
	switch {
	case math.Abs(slope) < stableSlope:
		return TrendStable
	case slope > 0:
		return TrendIncreasing
	default:
		return TrendDecreasing
	}
}

// ConfidenceFromRSquared доверие по коэффициенту детерминации (дашборд, прогнозы)
func ConfidenceFromRSquared(rSquared float64) Confidence {
	switch {
	case rSquared > 0.7:
		return ConfidenceHigh
	case rSquared > 0.4:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// ConfidenceFromSlope доверие по модулю наклона (эволюция метрики в процентах)
func ConfidenceFromSlope(slope float64) Confidence {
	abs := math.Abs(slope)
	switch {
	case abs >= 1:
		return ConfidenceHigh
	case abs >= 0.5:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// PercentageChange изменение от first к last в процентах; first == 0 дает 0
func PercentageChange(first, last float64) float64 {
	if first == 0 {
		return 0
	}
	return (last - first) / first * 100
}
