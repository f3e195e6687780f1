package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"goalquest-backend/logger"
	"goalquest-backend/models"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

const tracerName = "goalquest-backend/services"

// levelWeight вес ранга достижения в рекомендациях: более простые ранги выше
var levelWeight = map[models.AchievementLevel]float64{
	models.LevelBronze:   50,
	models.LevelSilver:   40,
	models.LevelGold:     30,
	models.LevelPlatinum: 20,
	models.LevelDiamond:  10,
}

const defaultLevelWeight = 25

// EngineOptions общие параметры движка
type EngineOptions struct {
	Location     *time.Location
	Now          func() time.Time
	Workers      int
	LookbackDays int
}

func (o EngineOptions) withDefaults() EngineOptions {
	if o.Location == nil {
		o.Location = time.UTC
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Workers <= 0 {
		o.Workers = 1
	}
	if o.LookbackDays <= 0 {
		o.LookbackDays = 400
	}
	return o
}

// AchievementService проверяет критерии и выдает достижения
type AchievementService struct {
	store  AchievementStore
	locker UserLocker
	log    *logger.Logger
	tracer trace.Tracer
	opts   EngineOptions
}

// NewAchievementService создает сервис достижений
func NewAchievementService(store AchievementStore, locker UserLocker, baseLog *logger.Logger, opts EngineOptions) *AchievementService {
	if locker == nil {
		locker = NewLocalUserLocker()
	}
	return &AchievementService{
		store:  store,
		locker: locker,
		log:    baseLog.With("service", "AchievementService"),
		tracer: otel.Tracer(tracerName),
		opts:   opts.withDefaults(),
	}
}

type candidate struct {
	achievement models.Achievement
	criteria    Criteria
}

// CheckAndUnlock проверяет все еще не полученные достижения пользователя и выдает выполненные.
// Повторный вызов без новой активности возвращает пустой список.
func (s *AchievementService) CheckAndUnlock(ctx context.Context, userID uint) ([]models.UserAchievement, error) {
	ctx, span := s.tracer.Start(ctx, "achievements.check_and_unlock",
		trace.WithAttributes(attribute.Int("user.id", int(userID))))
	defer span.End()

	now := s.opts.Now().In(s.opts.Location)

	locked, err := s.store.LockedAchievementsFor(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load locked achievements")
		return nil, fmt.Errorf("load locked achievements: %w", err)
	}
	unlocked := []models.UserAchievement{}
	if len(locked) == 0 {
		return unlocked, nil
	}

	candidates := s.parseCandidates(locked)
	signals, err := s.store.SignalsFor(ctx, userID, now, s.lookbackFor(candidates))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load signals")
		return nil, fmt.Errorf("load signals: %w", err)
	}

	passed, err := s.evaluate(ctx, candidates, signals)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("achievements.candidates", len(candidates)))

	unlock, err := s.locker.Lock(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("lock user %d: %w", userID, err)
	}
	defer unlock()

	done := make([]bool, len(candidates))
	for {
		progressed := false
		for i, c := range candidates {
			if done[i] || !passed[i] {
				continue
			}
			done[i] = true

			grant, user, err := s.persist(ctx, userID, c, signals, now, false)
			if errors.Is(err, models.ErrAlreadyUnlocked) {
				// параллельная проверка успела раньше
				s.log.Debug("Достижение уже получено", "user_id", userID, "achievement_code", c.achievement.Code)
				continue
			}
			if err != nil {
				span.RecordError(err)
				return unlocked, err
			}
			unlocked = append(unlocked, *grant)
			signals.TotalPoints = user.TotalPoints
			progressed = true
		}
		if !progressed {
			break
		}

		// новые очки могут открыть достижения за сумму очков
		for i, c := range candidates {
			if !done[i] && !passed[i] {
				if _, ok := c.criteria.(TotalPointsCriteria); ok {
					passed[i] = EvaluateCriteria(c.criteria, signals)
				}
			}
		}
	}

	span.SetAttributes(attribute.Int("achievements.unlocked", len(unlocked)))
	return unlocked, nil
}

// Unlock выдает достижение вручную. Повторная выдача завершается models.ErrAlreadyUnlocked.
func (s *AchievementService) Unlock(ctx context.Context, userID, achievementID uint) (*models.UserAchievement, error) {
	ctx, span := s.tracer.Start(ctx, "achievements.unlock")
	defer span.End()

	achievement, err := s.store.GetAchievement(ctx, achievementID)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return nil, err
	}

	c := candidate{achievement: *achievement}
	if crit, err := ParseCriteria(achievement.Criteria); err == nil {
		c.criteria = crit
	}

	unlock, err := s.locker.Lock(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("lock user %d: %w", userID, err)
	}
	defer unlock()

	now := s.opts.Now().In(s.opts.Location)
	grant, _, err := s.persist(ctx, userID, c, nil, now, true)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return grant, nil
}

func (s *AchievementService) persist(ctx context.Context, userID uint, c candidate, signals *models.SignalBundle, now time.Time, manual bool) (*models.UserAchievement, *models.User, error) {
	var updated models.User
	grant, err := s.store.Unlock(ctx, userID, c.achievement.ID, func(u *models.User) (*models.UserAchievement, error) {
		AddPoints(u, c.achievement.Points)
		updated = *u
		return &models.UserAchievement{
			UserID:        userID,
			AchievementID: c.achievement.ID,
			UnlockedAt:    now,
			UnlockData:    unlockSnapshot(c, signals, manual),
		}, nil
	})
	if err != nil {
		return nil, nil, err
	}
	grant.Achievement = c.achievement

	s.log.Info("Достижение получено",
		"user_id", userID,
		"achievement_code", c.achievement.Code,
		"points", c.achievement.Points,
		"total_points", updated.TotalPoints,
		"level", updated.Level,
	)
	return grant, &updated, nil
}

func unlockSnapshot(c candidate, signals *models.SignalBundle, manual bool) map[string]interface{} {
	data := map[string]interface{}{}
	var criteria map[string]interface{}
	if err := json.Unmarshal(c.achievement.Criteria, &criteria); err == nil {
		data["criteria"] = criteria
	}
	if manual {
		data["manual"] = true
	}
	if signals != nil && c.criteria != nil {
		p := CriteriaProgressFor(c.criteria, signals)
		data["current"] = p.Current
		data["target"] = p.Target
	}
	return data
}

func (s *AchievementService) parseCandidates(achievements []models.Achievement) []candidate {
	out := make([]candidate, 0, len(achievements))
	for _, a := range achievements {
		crit, err := ParseCriteria(a.Criteria)
		if err != nil {
			// сохраненный критерий не распознан: достижение не выдается
			s.log.Warn("Некорректный критерий достижения", "achievement_code", a.Code, "error", err)
			continue
		}
		out = append(out, candidate{achievement: a, criteria: crit})
	}
	return out
}

// lookbackFor глубина истории активных дней: не меньше самого длинного окна consistency
func (s *AchievementService) lookbackFor(candidates []candidate) int {
	days := s.opts.LookbackDays
	for _, c := range candidates {
		if cc, ok := c.criteria.(ConsistencyCriteria); ok && cc.Days+1 > days {
			days = cc.Days + 1
		}
	}
	return days
}

// evaluate проверяет кандидатов параллельно; сигналы только читаются
func (s *AchievementService) evaluate(ctx context.Context, candidates []candidate, signals *models.SignalBundle) ([]bool, error) {
	passed := make([]bool, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Workers)
	for i := range candidates {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			passed[i] = EvaluateCriteria(candidates[i].criteria, signals)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return passed, nil
}

// RecommendedAchievement достижение, близкое к получению
type RecommendedAchievement struct {
	Achievement models.Achievement `json:"achievement"`
	Progress    CriteriaProgress   `json:"progress"`
	Score       float64            `json:"score"`
}

// GetRecommended ранжирует не полученные достижения с ненулевым прогрессом
func (s *AchievementService) GetRecommended(ctx context.Context, userID uint, limit int) ([]RecommendedAchievement, error) {
	locked, err := s.store.LockedAchievementsFor(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load locked achievements: %w", err)
	}
	candidates := s.parseCandidates(locked)
	signals, err := s.store.SignalsFor(ctx, userID, s.opts.Now().In(s.opts.Location), s.lookbackFor(candidates))
	if err != nil {
		return nil, fmt.Errorf("load signals: %w", err)
	}
	return rankRecommendations(candidates, signals, limit), nil
}

func rankRecommendations(candidates []candidate, signals *models.SignalBundle, limit int) []RecommendedAchievement {
	out := []RecommendedAchievement{}
	for _, c := range candidates {
		p := CriteriaProgressFor(c.criteria, signals)
		if p.Percentage <= 0 {
			continue
		}
		out = append(out, RecommendedAchievement{
			Achievement: c.achievement,
			Progress:    p,
			Score:       priorityScore(c.achievement, p.Percentage),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// priorityScore = 0.5*percentage + вес ранга + max(0, 50 - points/20)
func priorityScore(a models.Achievement, percentage float64) float64 {
	weight, ok := levelWeight[a.Level]
	if !ok {
		weight = defaultLevelWeight
	}
	pointsBonus := 50 - float64(a.Points)/20
	if pointsBonus < 0 {
		pointsBonus = 0
	}
	return 0.5*percentage + weight + pointsBonus
}

// AchievementStatus достижение каталога с отметкой о получении
type AchievementStatus struct {
	Achievement models.Achievement `json:"achievement"`
	Unlocked    bool               `json:"unlocked"`
	UnlockedAt  *time.Time         `json:"unlocked_at"`
	GrantID     *uint              `json:"grant_id,omitempty"`
	IsNotified  bool               `json:"is_notified"`
}

// UserAchievements каталог с отметками; секретные неполученные достижения скрыты
func (s *AchievementService) UserAchievements(ctx context.Context, userID uint) ([]AchievementStatus, error) {
	active, err := s.store.ActiveAchievements(ctx)
	if err != nil {
		return nil, err
	}
	grants, err := s.store.GrantsFor(ctx, userID)
	if err != nil {
		return nil, err
	}

	byAchievement := make(map[uint]models.UserAchievement, len(grants))
	for _, g := range grants {
		byAchievement[g.AchievementID] = g
	}

	out := make([]AchievementStatus, 0, len(active))
	for _, a := range active {
		st := AchievementStatus{Achievement: a}
		if g, ok := byAchievement[a.ID]; ok {
			unlockedAt := g.UnlockedAt
			grantID := g.ID
			st.Unlocked = true
			st.UnlockedAt = &unlockedAt
			st.GrantID = &grantID
			st.IsNotified = g.IsNotified
		} else if a.IsSecret {
			st.Achievement = MaskSecret(a)
		}
		out = append(out, st)
	}
	return out, nil
}

// Catalog активный каталог достижений; секретные скрыты
func (s *AchievementService) Catalog(ctx context.Context) ([]models.Achievement, error) {
	active, err := s.store.ActiveAchievements(ctx)
	if err != nil {
		return nil, err
	}
	for i := range active {
		if active[i].IsSecret {
			active[i] = MaskSecret(active[i])
		}
	}
	return active, nil
}

// MaskSecret скрывает содержимое секретного достижения
func MaskSecret(a models.Achievement) models.Achievement {
	a.Name = "???"
	a.Description = "Секретное достижение"
	a.Criteria = nil
	return a
}

// UnnotifiedGrants полученные, но еще не показанные пользователю достижения
func (s *AchievementService) UnnotifiedGrants(ctx context.Context, userID uint) ([]models.UserAchievement, error) {
	grants, err := s.store.GrantsFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := []models.UserAchievement{}
	for _, g := range grants {
		if !g.IsNotified {
			out = append(out, g)
		}
	}
	return out, nil
}

// MarkNotified отмечает выдачи как показанные пользователю; пустой список отмечает все
func (s *AchievementService) MarkNotified(ctx context.Context, userID uint, grantIDs []uint) (int64, error) {
	return s.store.MarkNotified(ctx, userID, grantIDs)
}
