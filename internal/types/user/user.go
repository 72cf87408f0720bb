package user

import (
	"time"

	"insightQuestAPI/internal/progression"
)

// DateLayout is the calendar-day format used for LastLogin.
const DateLayout = "2006-01-02"

type User struct {
	ID             string    `json:"id" db:"id" firestore:"id"`
	Address        string    `json:"address" db:"address" firestore:"address"`
	// ClerkID is the auth subject the wallet is bound to, empty when tokens
	// are not verified.
	ClerkID        string    `json:"-" db:"clerk_id" firestore:"clerkId,omitempty"`
	Username       string    `json:"username,omitempty" db:"username" firestore:"username,omitempty"`
	AvatarURL      string    `json:"avatarUrl,omitempty" db:"avatar_url" firestore:"avatarUrl,omitempty"`
	XP             int       `json:"xp" db:"xp" firestore:"xp"`
	Tokens         int       `json:"tokensEarned" db:"tokens" firestore:"tokensEarned"`
	LoginStreak    int       `json:"loginStreak" db:"login_streak" firestore:"loginStreak"`
	LastLogin      string    `json:"lastLogin,omitempty" db:"last_login" firestore:"lastLogin,omitempty"`
	TasksCompleted int       `json:"tasksCompleted" db:"tasks_completed" firestore:"tasksCompleted"`
	TimeSaved      int       `json:"timeSaved" db:"time_saved" firestore:"timeSaved"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at" firestore:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt" db:"updated_at" firestore:"updatedAt"`
}

func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

// Profile is the user record plus the values derived from it for display.
type Profile struct {
	*User
	Level         int               `json:"level"`
	LevelProgress float64           `json:"levelProgress"`
	NextLevelXP   int               `json:"nextLevelXp"`
	Stage         progression.Stage `json:"stage"`
	InsightValue  int               `json:"insightValue"`
}

const insightValuePerToken = 5

func NewProfile(u *User) (*Profile, error) {
	snap, err := progression.Describe(u.XP)
	if err != nil {
		return nil, err
	}

	return &Profile{
		User:          u,
		Level:         snap.Level,
		LevelProgress: snap.LevelProgress,
		NextLevelXP:   snap.NextLevelXP,
		Stage:         snap.Stage,
		InsightValue:  u.Tokens * insightValuePerToken,
	}, nil
}
