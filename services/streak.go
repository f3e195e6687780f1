package services

import (
	"time"

	"goalquest-backend/models"
)

// StreakChange результат применения активности к серии
type StreakChange struct {
	Previous int  `json:"previous"`
	Current  int  `json:"current"`
	Longest  int  `json:"longest"`
	Extended bool `json:"extended"`
	Broken   bool `json:"broken"`
	SameDay  bool `json:"same_day"`
	Backfill bool `json:"backfill"`
}

// StreakTracker ведет серию дней подряд с активностью
type StreakTracker struct {
	loc *time.Location
}

// NewStreakTracker создает трекер, считающий календарные дни в loc
func NewStreakTracker(loc *time.Location) *StreakTracker {
	if loc == nil {
		loc = time.UTC
	}
	return &StreakTracker{loc: loc}
}

// Location часовой пояс календарных дней
func (t *StreakTracker) Location() *time.Location {
	return t.loc
}

// Day возвращает полночь календарного дня ts
func (t *StreakTracker) Day(ts time.Time) time.Time {
	return CalendarDay(ts, t.loc)
}

// ApplyActivity применяет активность в день day к состоянию пользователя
func (t *StreakTracker) ApplyActivity(u *models.User, day time.Time) StreakChange {
	d := CalendarDay(day, t.loc)
	change := StreakChange{Previous: u.CurrentStreak}

	if u.LastActivityDate == nil {
		u.CurrentStreak = 1
		u.LastActivityDate = &d
		change.Extended = true
	} else {
		delta := DaysBetween(*u.LastActivityDate, d, t.loc)
		switch {
		case delta == 0:
			change.SameDay = true
		case delta < 0:
			// запись задним числом не меняет серию
			change.Backfill = true
		case delta == 1:
			u.CurrentStreak++
			u.LastActivityDate = &d
			change.Extended = true
		default:
			u.CurrentStreak = 1
			u.LastActivityDate = &d
			change.Broken = true
		}
	}

	if u.CurrentStreak > u.LongestStreak {
		u.LongestStreak = u.CurrentStreak
	}
	change.Current = u.CurrentStreak
	change.Longest = u.LongestStreak
	return change
}

// EffectiveStreak текущая серия на момент now: если последний активный день
// раньше вчерашнего, серия уже прервана, хотя в базе еще не сброшена
func (t *StreakTracker) EffectiveStreak(u *models.User, now time.Time) int {
	if u.LastActivityDate == nil {
		return 0
	}
	if DaysBetween(*u.LastActivityDate, now, t.loc) > 1 {
		return 0
	}
	return u.CurrentStreak
}

// CalendarDay полночь дня ts в часовом поясе loc
func CalendarDay(ts time.Time, loc *time.Location) time.Time {
	local := ts.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// DaysBetween количество календарных дней от a до b (время суток игнорируется)
func DaysBetween(a, b time.Time, loc *time.Location) int {
	ay, am, ad := a.In(loc).Date()
	by, bm, bd := b.In(loc).Date()
	ua := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	ub := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua) / (24 * time.Hour))
}

// WeekStart понедельник недели, в которую попадает ts
func WeekStart(ts time.Time, loc *time.Location) time.Time {
	d := CalendarDay(ts, loc)
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}
