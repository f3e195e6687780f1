package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnalyzeTrendLinearIncrease(t *testing.T) {
	r := AnalyzeTrend([]float64{1, 2, 3, 4, 5})

	assert.InDelta(t, 1.0, r.Slope, 1e-9)
	assert.InDelta(t, 1.0, r.RSquared, 1e-9)
	assert.Equal(t, TrendIncreasing, r.Direction)
	assert.Equal(t, ConfidenceHigh, r.Confidence)
	assert.InDelta(t, 400.0, r.PercentageChange, 1e-9)
	assert.Equal(t, 5, r.Points)
}

func TestAnalyzeTrendConstantSeries(t *testing.T) {
	r := AnalyzeTrend([]float64{5, 5, 5, 5})

	assert.Equal(t, 0.0, r.Slope)
	assert.Equal(t, TrendStable, r.Direction)
	// нулевая дисперсия дает r² = 0
	assert.Equal(t, 0.0, r.RSquared)
	assert.Equal(t, ConfidenceLow, r.Confidence)
	assert.Equal(t, 0.0, r.PercentageChange)
}

func TestAnalyzeTrendInsufficientData(t *testing.T) {
	for _, values := range [][]float64{nil, {}, {42}} {
		r := AnalyzeTrend(values)
		assert.Equal(t, TrendInsufficientData, r.Direction)
		assert.Equal(t, 0.0, r.Slope)
		assert.Equal(t, ConfidenceLow, r.Confidence)
		assert.Equal(t, 0.0, r.PercentageChange)
	}
}

func TestAnalyzeTrendDecreasing(t *testing.T) {
	r := AnalyzeTrend([]float64{10, 8, 6, 4})

	assert.InDelta(t, -2.0, r.Slope, 1e-9)
	assert.Equal(t, TrendDecreasing, r.Direction)
	assert.InDelta(t, -60.0, r.PercentageChange, 1e-9)
}

func TestAnalyzeTrendZeroFirstValue(t *testing.T) {
	r := AnalyzeTrend([]float64{0, 3, 6})
	assert.Equal(t, 0.0, r.PercentageChange)
	assert.Equal(t, TrendIncreasing, r.Direction)
}

func TestDirectionFromSlopeThreshold(t *testing.T) {
	assert.Equal(t, TrendStable, DirectionFromSlope(0.09))
	assert.Equal(t, TrendStable, DirectionFromSlope(-0.09))
	assert.Equal(t, TrendIncreasing, DirectionFromSlope(0.1))
	assert.Equal(t, TrendDecreasing, DirectionFromSlope(-0.1))
}

func TestConfidenceFunctions(t *testing.T) {
	assert.Equal(t, ConfidenceHigh, ConfidenceFromRSquared(0.71))
	assert.Equal(t, ConfidenceMedium, ConfidenceFromRSquared(0.7))
	assert.Equal(t, ConfidenceMedium, ConfidenceFromRSquared(0.41))
	assert.Equal(t, ConfidenceLow, ConfidenceFromRSquared(0.4))

	assert.Equal(t, ConfidenceHigh, ConfidenceFromSlope(-1))
	assert.Equal(t, ConfidenceMedium, ConfidenceFromSlope(0.5))
	assert.Equal(t, ConfidenceLow, ConfidenceFromSlope(0.49))
}
