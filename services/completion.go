package services

import (
	"math"

	"goalquest-backend/models"
)

// MetricCompletion процент выполнения метрики при значении current.
// Совпадающие начальное и целевое значения считаются выполненными на 100%.
func MetricCompletion(m *models.Metric, current float64) float64 {
	switch m.EvolutionType {
	case models.EvolutionDecrease:
		if m.InitialValue == m.TargetValue {
			return 100
		}
		return clamp((m.InitialValue-current)/(m.InitialValue-m.TargetValue)*100, 0, 100)
	case models.EvolutionMaintain:
		if current == m.TargetValue {
			return 100
		}
		if m.TargetValue == 0 {
			return 0
		}
		return clamp(100-math.Abs(current-m.TargetValue)/math.Abs(m.TargetValue)*100, 0, 100)
	default:
		if m.InitialValue == m.TargetValue {
			return 100
		}
		return clamp((current-m.InitialValue)/(m.TargetValue-m.InitialValue)*100, 0, 100)
	}
}

// completionSeries переводит ряд значений метрики в проценты выполнения
func completionSeries(m *models.Metric, points []models.SeriesPoint) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = MetricCompletion(m, p.Value)
	}
	return out
}
