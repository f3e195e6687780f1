package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"goalquest-backend/models"
)

// memStore хранилище в памяти для тестов сервисов
type memStore struct {
	mu           sync.Mutex
	users        map[uint]*models.User
	achievements []models.Achievement
	grants       []models.UserAchievement
	goals        map[uint]*models.Goal
	progress     []models.Progress
	sessions     []models.TrainingSession
	nextID       uint

	// unlockCalls сколько раз дошли до вставки выдачи
	unlockCalls int
}

func newMemStore() *memStore {
	return &memStore{
		users: map[uint]*models.User{},
		goals: map[uint]*models.Goal{},
	}
}

func (m *memStore) id() uint {
	m.nextID++
	return m.nextID
}

func (m *memStore) addUser(u models.User) *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == 0 {
		u.ID = m.id()
	}
	if u.Level == 0 {
		u.Level = 1
	}
	m.users[u.ID] = &u
	return &u
}

func (m *memStore) addAchievement(code string, points int, level models.AchievementLevel, criteria string) models.Achievement {
	m.mu.Lock()
	defer m.mu.Unlock()
	a := models.Achievement{
		ID:       m.id(),
		Code:     code,
		Name:     code,
		Points:   points,
		Level:    level,
		Criteria: []byte(criteria),
		IsActive: true,
	}
	m.achievements = append(m.achievements, a)
	return a
}

func (m *memStore) addGoal(g models.Goal) *models.Goal {
	m.mu.Lock()
	defer m.mu.Unlock()
	g.ID = m.id()
	if g.Status == "" {
		g.Status = models.GoalActive
	}
	for i := range g.Metrics {
		g.Metrics[i].ID = m.id()
		g.Metrics[i].GoalID = g.ID
	}
	m.goals[g.ID] = &g
	return &g
}

func (m *memStore) addProgress(p models.Progress) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = m.id()
	m.progress = append(m.progress, p)
}

func (m *memStore) grantCount(userID, achievementID uint) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, g := range m.grants {
		if g.UserID == userID && g.AchievementID == achievementID {
			n++
		}
	}
	return n
}

func (m *memStore) user(userID uint) models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.users[userID]
}

// AchievementStore

func (m *memStore) SignalsFor(ctx context.Context, userID uint, now time.Time, lookbackDays int) (*models.SignalBundle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return nil, models.ErrNotFound
	}
	s := &models.SignalBundle{
		UserID:              userID,
		Now:                 now,
		CurrentStreak:       u.CurrentStreak,
		TotalPoints:         u.TotalPoints,
		CategoryCompletions: map[string]int{},
	}
	for _, g := range m.goals {
		if g.UserID != userID {
			continue
		}
		s.GoalCount++
		switch g.Status {
		case models.GoalActive:
			s.ActiveGoalCount++
		case models.GoalCompleted:
			s.CompletedGoalCount++
			if g.CategoryCode != nil {
				s.CategoryCompletions[*g.CategoryCode]++
			}
		}
	}
	from := now.AddDate(0, 0, -lookbackDays)
	seen := map[time.Time]bool{}
	for _, p := range m.progress {
		if p.UserID != userID {
			continue
		}
		s.ProgressCount++
		if p.Date.Before(from) {
			continue
		}
		day := CalendarDay(p.Date, now.Location())
		if !seen[day] {
			seen[day] = true
			s.ActiveDays = append(s.ActiveDays, day)
		}
	}
	for _, sess := range m.sessions {
		if sess.UserID == userID {
			s.SessionDurationSeconds += sess.DurationSeconds
		}
	}
	return s, nil
}

func (m *memStore) LockedAchievementsFor(ctx context.Context, userID uint) ([]models.Achievement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Achievement{}
	for _, a := range m.achievements {
		if !a.IsActive {
			continue
		}
		granted := false
		for _, g := range m.grants {
			if g.UserID == userID && g.AchievementID == a.ID {
				granted = true
				break
			}
		}
		if !granted {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memStore) ActiveAchievements(ctx context.Context) ([]models.Achievement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Achievement{}
	for _, a := range m.achievements {
		if a.IsActive {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memStore) GetAchievement(ctx context.Context, achievementID uint) (*models.Achievement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.achievements {
		if a.ID == achievementID {
			a := a
			return &a, nil
		}
	}
	return nil, fmt.Errorf("achievement %d: %w", achievementID, models.ErrNotFound)
}

func (m *memStore) GrantsFor(ctx context.Context, userID uint) ([]models.UserAchievement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.UserAchievement{}
	for _, g := range m.grants {
		if g.UserID == userID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (m *memStore) HasGrant(ctx context.Context, userID, achievementID uint) (bool, error) {
	return m.grantCount(userID, achievementID) > 0, nil
}

func (m *memStore) GetUser(ctx context.Context, userID uint) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", userID, models.ErrNotFound)
	}
	cp := *u
	return &cp, nil
}

func (m *memStore) Unlock(ctx context.Context, userID, achievementID uint, apply func(u *models.User) (*models.UserAchievement, error)) (*models.UserAchievement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.unlockCalls++
	u, ok := m.users[userID]
	if !ok {
		return nil, models.ErrNotFound
	}
	for _, g := range m.grants {
		if g.UserID == userID && g.AchievementID == achievementID {
			return nil, models.ErrAlreadyUnlocked
		}
	}
	cp := *u
	grant, err := apply(&cp)
	if err != nil {
		return nil, err
	}
	grant.ID = m.id()
	m.grants = append(m.grants, *grant)
	*u = cp
	return grant, nil
}

func (m *memStore) UpdateUser(ctx context.Context, userID uint, apply func(u *models.User) error) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *u
	if err := apply(&cp); err != nil {
		return nil, err
	}
	*u = cp
	return &cp, nil
}

func (m *memStore) MarkNotified(ctx context.Context, userID uint, grantIDs []uint) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := map[uint]bool{}
	for _, id := range grantIDs {
		want[id] = true
	}
	var n int64
	for i := range m.grants {
		g := &m.grants[i]
		if g.UserID != userID || g.IsNotified {
			continue
		}
		if len(grantIDs) == 0 || want[g.ID] {
			g.IsNotified = true
			n++
		}
	}
	return n, nil
}

func (m *memStore) Leaderboard(ctx context.Context, limit, offset int) ([]models.User, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := make([]models.User, 0, len(m.users))
	for _, u := range m.users {
		all = append(all, *u)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].TotalPoints != all[j].TotalPoints {
			return all[i].TotalPoints > all[j].TotalPoints
		}
		return all[i].ID < all[j].ID
	})
	total := int64(len(all))
	if offset >= len(all) {
		return []models.User{}, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

// GoalStore

func (m *memStore) GetGoal(ctx context.Context, goalID uint) (*models.Goal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.goals[goalID]
	if !ok {
		return nil, fmt.Errorf("goal %d: %w", goalID, models.ErrNotFound)
	}
	cp := *g
	cp.Metrics = append([]models.Metric(nil), g.Metrics...)
	return &cp, nil
}

func (m *memStore) GetMetric(ctx context.Context, metricID uint) (*models.Metric, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, g := range m.goals {
		for _, mt := range g.Metrics {
			if mt.ID == metricID {
				mt := mt
				return &mt, nil
			}
		}
	}
	return nil, fmt.Errorf("metric %d: %w", metricID, models.ErrNotFound)
}

func (m *memStore) ActiveGoals(ctx context.Context, userID uint) ([]models.Goal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Goal{}
	for _, g := range m.goals {
		if g.UserID == userID && g.Status == models.GoalActive {
			out = append(out, *g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) ListGoals(ctx context.Context, userID uint, status models.GoalStatus) ([]models.Goal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Goal{}
	for _, g := range m.goals {
		if g.UserID == userID && (status == "" || g.Status == status) {
			out = append(out, *g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *memStore) TimeSeries(ctx context.Context, metricID uint, from, to time.Time) ([]models.SeriesPoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.SeriesPoint{}
	for _, p := range m.progress {
		if p.MetricID == metricID && !p.Date.Before(from) && !p.Date.After(to) {
			out = append(out, models.SeriesPoint{Date: p.Date, Value: p.Value})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (m *memStore) ProgressBetween(ctx context.Context, goalID uint, from, to time.Time) ([]models.Progress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Progress{}
	for _, p := range m.progress {
		if p.GoalID == goalID && !p.Date.Before(from) && !p.Date.After(to) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memStore) LastProgressAt(ctx context.Context, goalID uint) (*time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var last *time.Time
	for _, p := range m.progress {
		if p.GoalID == goalID && (last == nil || p.Date.After(*last)) {
			d := p.Date
			last = &d
		}
	}
	return last, nil
}

// ActivityStore

func (m *memStore) RecordProgress(ctx context.Context, p *models.Progress, apply func(u *models.User) error) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[p.UserID]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *u
	if err := apply(&cp); err != nil {
		return nil, err
	}
	p.ID = m.id()
	m.progress = append(m.progress, *p)
	*u = cp
	return &cp, nil
}

func (m *memStore) CreateSession(ctx context.Context, s *models.TrainingSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = m.id()
	m.sessions = append(m.sessions, *s)
	return nil
}

func (m *memStore) CompleteGoal(ctx context.Context, goalID uint, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g, ok := m.goals[goalID]; ok && g.Status == models.GoalActive {
		g.Status = models.GoalCompleted
		g.CompletedAt = &at
	}
	return nil
}

func (m *memStore) CreateGoal(ctx context.Context, g *models.Goal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g.ID = m.id()
	for i := range g.Metrics {
		g.Metrics[i].ID = m.id()
		g.Metrics[i].GoalID = g.ID
	}
	cp := *g
	cp.Metrics = append([]models.Metric(nil), g.Metrics...)
	m.goals[g.ID] = &cp
	return nil
}

func (m *memStore) UpdateGoalStatus(ctx context.Context, goalID uint, status models.GoalStatus, completedAt *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.goals[goalID]
	if !ok {
		return models.ErrNotFound
	}
	g.Status = status
	g.CompletedAt = completedAt
	return nil
}
