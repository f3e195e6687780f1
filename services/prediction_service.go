package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"goalquest-backend/logger"
	"goalquest-backend/models"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// PredictionStatus итог прогноза по цели
type PredictionStatus string

const (
	PredictionMissingPrimaryMetric PredictionStatus = "missing_primary_metric"
	PredictionInsufficientData     PredictionStatus = "insufficient_data"
	PredictionCompleted            PredictionStatus = "completed"
	PredictionOnTrack              PredictionStatus = "on_track"
	PredictionNeedsImprovement     PredictionStatus = "needs_improvement"
	PredictionStableProgress       PredictionStatus = "stable_progress"
)

// Prediction прогноз выполнения цели
type Prediction struct {
	GoalID             uint             `json:"goal_id"`
	Status             PredictionStatus `json:"status"`
	OverallCompletion  float64          `json:"overall_completion"`
	Trend              TrendResult      `json:"trend"`
	SlopePerWeek       float64          `json:"slope_per_week"`
	EstimatedWeeks     *float64         `json:"estimated_weeks,omitempty"`
	ProjectedDate      *time.Time       `json:"projected_date,omitempty"`
	SuccessProbability float64          `json:"success_probability"`
}

// MetricEvolution изменение метрики за период
type MetricEvolution struct {
	MetricID         uint                 `json:"metric_id"`
	Points           []models.SeriesPoint `json:"points"`
	Direction        TrendDirection       `json:"direction"`
	Slope            float64              `json:"slope"`
	PercentageChange float64              `json:"percentage_change"`
	Confidence       Confidence           `json:"confidence"`
	Completion       float64              `json:"completion"`
}

// PeriodStats агрегаты записей прогресса за период
type PeriodStats struct {
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
	Entries         int       `json:"entries"`
	AverageValue    float64   `json:"average_value"`
	MaxValue        float64   `json:"max_value"`
	AvgSatisfaction *float64  `json:"avg_satisfaction"`
}

// PeriodDelta разница period2 - period1
type PeriodDelta struct {
	Entries         int      `json:"entries"`
	AverageValue    float64  `json:"average_value"`
	MaxValue        float64  `json:"max_value"`
	AvgSatisfaction *float64 `json:"avg_satisfaction"`
}

// PeriodComparison сравнение двух периодов одной цели
type PeriodComparison struct {
	GoalID  uint        `json:"goal_id"`
	Period1 PeriodStats `json:"period1"`
	Period2 PeriodStats `json:"period2"`
	Delta   PeriodDelta `json:"delta"`
}

// AnalyticsService прогнозы и аналитика по целям. Состояние не меняет.
type AnalyticsService struct {
	goals      GoalStore
	log        *logger.Logger
	tracer     trace.Tracer
	opts       EngineOptions
	windowDays int
}

// NewAnalyticsService создает сервис аналитики; windowDays окно ряда для прогноза
func NewAnalyticsService(goals GoalStore, baseLog *logger.Logger, opts EngineOptions, windowDays int) *AnalyticsService {
	if windowDays <= 0 {
		windowDays = 90
	}
	return &AnalyticsService{
		goals:      goals,
		log:        baseLog.With("service", "AnalyticsService"),
		tracer:     otel.Tracer(tracerName),
		opts:       opts.withDefaults(),
		windowDays: windowDays,
	}
}

// PredictCompletion прогнозирует дату и вероятность выполнения цели по тренду основной метрики
func (s *AnalyticsService) PredictCompletion(ctx context.Context, userID, goalID uint) (*Prediction, error) {
	ctx, span := s.tracer.Start(ctx, "analytics.predict_completion",
		trace.WithAttributes(attribute.Int("goal.id", int(goalID))))
	defer span.End()

	goal, err := loadOwnedGoal(ctx, s.goals, userID, goalID)
	if err != nil {
		return nil, err
	}

	now := s.opts.Now().In(s.opts.Location)
	metric := goal.PrimaryMetric()
	if metric == nil {
		return &Prediction{GoalID: goalID, Status: PredictionMissingPrimaryMetric}, nil
	}

	series, err := s.goals.TimeSeries(ctx, metric.ID, now.AddDate(0, 0, -s.windowDays), now)
	if err != nil {
		return nil, fmt.Errorf("load time series: %w", err)
	}

	p := &Prediction{GoalID: goalID}
	if len(series) > 0 {
		p.OverallCompletion = MetricCompletion(metric, series[len(series)-1].Value)
	}
	if goal.Status == models.GoalCompleted || p.OverallCompletion >= 100 {
		p.Status = PredictionCompleted
		p.OverallCompletion = 100
		p.SuccessProbability = 100
		return p, nil
	}

	p.Trend = AnalyzeTrend(completionSeries(metric, series))
	span.SetAttributes(attribute.String("trend.direction", string(p.Trend.Direction)))
	p = predictFromTrend(p, now)
	s.log.Debug("Прогноз по цели", "goal_id", goalID, "status", p.Status, "points", p.Trend.Points)
	return p, nil
}

// predictFromTrend заполняет статус, дату и вероятность по уже посчитанному тренду
func predictFromTrend(p *Prediction, now time.Time) *Prediction {
	// одна запись примерно соответствует одному дню
	p.SlopePerWeek = p.Trend.Slope * 7

	switch {
	case p.Trend.Direction == TrendInsufficientData:
		p.Status = PredictionInsufficientData
		return p
	case p.Trend.Direction == TrendIncreasing && p.SlopePerWeek > 0:
		p.Status = PredictionOnTrack
		weeks := (100 - p.OverallCompletion) / p.SlopePerWeek
		date := now.AddDate(0, 0, int(math.Ceil(weeks*7)))
		p.EstimatedWeeks = &weeks
		p.ProjectedDate = &date

		prob := 50.0 + 15
		switch p.Trend.Confidence {
		case ConfidenceHigh:
			prob += 15
		case ConfidenceMedium:
			prob += 5
		}
		prob += completionBonus(p.OverallCompletion)
		p.SuccessProbability = clamp(prob, 0, 100)
	case p.Trend.Direction == TrendDecreasing:
		p.Status = PredictionNeedsImprovement
		p.SuccessProbability = clamp(50-15-math.Min(15, math.Abs(p.SlopePerWeek)), 0, 100)
	default:
		p.Status = PredictionStableProgress
		p.SuccessProbability = clamp(50+completionBonus(p.OverallCompletion), 0, 100)
	}
	return p
}

func completionBonus(overall float64) float64 {
	bonus := 0.0
	if overall >= 50 {
		bonus += 10
	}
	if overall >= 75 {
		bonus += 5
	}
	return bonus
}

// MetricEvolution изменение значений метрики между from и to
func (s *AnalyticsService) MetricEvolution(ctx context.Context, userID, metricID uint, from, to time.Time) (*MetricEvolution, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("%w: end before start", models.ErrInvalidPeriod)
	}
	metric, err := s.goals.GetMetric(ctx, metricID)
	if err != nil {
		return nil, err
	}
	if _, err := loadOwnedGoal(ctx, s.goals, userID, metric.GoalID); err != nil {
		return nil, err
	}

	series, err := s.goals.TimeSeries(ctx, metricID, from, to)
	if err != nil {
		return nil, fmt.Errorf("load time series: %w", err)
	}

	values := make([]float64, len(series))
	for i, p := range series {
		values[i] = p.Value
	}
	trend := AnalyzeTrend(values)

	ev := &MetricEvolution{
		MetricID:         metricID,
		Points:           series,
		Direction:        trend.Direction,
		Slope:            trend.Slope,
		PercentageChange: trend.PercentageChange,
		Confidence:       ConfidenceFromSlope(trend.Slope),
	}
	if trend.Direction == TrendInsufficientData {
		ev.Confidence = ConfidenceLow
	}
	if len(series) > 0 {
		ev.Completion = MetricCompletion(metric, series[len(series)-1].Value)
	}
	return ev, nil
}

// ComparePeriods сравнивает агрегаты прогресса цели в двух периодах
func (s *AnalyticsService) ComparePeriods(ctx context.Context, userID, goalID uint, p1Start, p1End, p2Start, p2End time.Time) (*PeriodComparison, error) {
	if p1End.Before(p1Start) || p2End.Before(p2Start) {
		return nil, fmt.Errorf("%w: end before start", models.ErrInvalidPeriod)
	}
	if _, err := loadOwnedGoal(ctx, s.goals, userID, goalID); err != nil {
		return nil, err
	}

	first, err := s.periodStats(ctx, goalID, p1Start, p1End)
	if err != nil {
		return nil, err
	}
	second, err := s.periodStats(ctx, goalID, p2Start, p2End)
	if err != nil {
		return nil, err
	}

	delta := PeriodDelta{
		Entries:      second.Entries - first.Entries,
		AverageValue: second.AverageValue - first.AverageValue,
		MaxValue:     second.MaxValue - first.MaxValue,
	}
	if first.AvgSatisfaction != nil && second.AvgSatisfaction != nil {
		d := *second.AvgSatisfaction - *first.AvgSatisfaction
		delta.AvgSatisfaction = &d
	}

	return &PeriodComparison{GoalID: goalID, Period1: first, Period2: second, Delta: delta}, nil
}

func (s *AnalyticsService) periodStats(ctx context.Context, goalID uint, from, to time.Time) (PeriodStats, error) {
	entries, err := s.goals.ProgressBetween(ctx, goalID, from, to)
	if err != nil {
		return PeriodStats{}, fmt.Errorf("load progress: %w", err)
	}
	return aggregatePeriod(entries, from, to), nil
}

func aggregatePeriod(entries []models.Progress, from, to time.Time) PeriodStats {
	st := PeriodStats{Start: from, End: to, Entries: len(entries)}
	if len(entries) == 0 {
		return st
	}

	var sum, satSum float64
	satCount := 0
	st.MaxValue = entries[0].Value
	for _, e := range entries {
		sum += e.Value
		if e.Value > st.MaxValue {
			st.MaxValue = e.Value
		}
		if e.Satisfaction != nil {
			satSum += float64(*e.Satisfaction)
			satCount++
		}
	}
	st.AverageValue = sum / float64(len(entries))
	if satCount > 0 {
		avg := satSum / float64(satCount)
		st.AvgSatisfaction = &avg
	}
	return st
}
