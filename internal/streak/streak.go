package streak

import (
	"fmt"
	"time"

	"insightQuestAPI/internal/apperr"
	"insightQuestAPI/internal/types/user"
)

const (
	BaseDailyXP = 100

	shortStreakDays  = 3
	shortStreakBonus = 50
	longStreakDays   = 7
	longStreakBonus  = 100
)

type Result struct {
	Granted bool `json:"granted"`
	TotalXP int  `json:"totalXp,omitempty"`
	Bonus   int  `json:"bonus,omitempty"`
	Streak  int  `json:"streak,omitempty"`
}

// Bonus returns the tier bonus for a streak length.
func Bonus(streak int) int {
	switch {
	case streak >= longStreakDays:
		return longStreakBonus
	case streak >= shortStreakDays:
		return shortStreakBonus
	default:
		return 0
	}
}

// Today formats t as a UTC calendar day.
func Today(t time.Time) string {
	return t.UTC().Format(user.DateLayout)
}

// EvaluateDailyLogin decides the daily reward for u on the UTC day `today`
// (YYYY-MM-DD). It never mutates u; the returned user is a copy that the
// caller must persist before treating the reward as granted.
func EvaluateDailyLogin(u *user.User, today string) (*user.User, Result, error) {
	if u == nil {
		return nil, Result{}, fmt.Errorf("%w: nil user", apperr.ErrInvalidArgument)
	}
	if u.XP < 0 || u.LoginStreak < 0 {
		return nil, Result{}, fmt.Errorf("%w: negative xp or streak on user %s", apperr.ErrInvalidArgument, u.ID)
	}

	day, err := time.Parse(user.DateLayout, today)
	if err != nil {
		return nil, Result{}, fmt.Errorf("%w: bad date %q: %v", apperr.ErrInvalidArgument, today, err)
	}

	if u.LastLogin != "" {
		if _, err := time.Parse(user.DateLayout, u.LastLogin); err != nil {
			return nil, Result{}, fmt.Errorf("%w: bad lastLogin %q: %v", apperr.ErrInvalidArgument, u.LastLogin, err)
		}
	}

	if u.LastLogin == today {
		return u.Clone(), Result{Granted: false}, nil
	}

	yesterday := day.AddDate(0, 0, -1).Format(user.DateLayout)

	streak := 1
	if u.LastLogin == yesterday {
		streak = u.LoginStreak + 1
	}

	bonus := Bonus(streak)
	total := BaseDailyXP + bonus

	updated := u.Clone()
	updated.XP += total
	updated.LastLogin = today
	updated.LoginStreak = streak

	return updated, Result{Granted: true, TotalXP: total, Bonus: bonus, Streak: streak}, nil
}
