package notification

import (
	"context"
	"fmt"
	"log"
	"strings"
)

type Kind string

const (
	KindDailyReward  Kind = "daily_reward"
	KindTaskVerified Kind = "task_verified"
	KindShareBonus   Kind = "share_bonus"
)

// Reward describes a credit that was just applied to a user's balance.
type Reward struct {
	UserID string
	Kind   Kind
	XP     int
	Tokens int
	Streak int
	TaskID string
}

func (r Reward) Title() string {
	switch r.Kind {
	case KindDailyReward:
		return "Daily reward collected"
	case KindTaskVerified:
		return "Task verified"
	case KindShareBonus:
		return "Thanks for sharing"
	}
	return "Reward"
}

func (r Reward) Body() string {
	var parts []string
	if r.XP > 0 {
		parts = append(parts, fmt.Sprintf("+%d XP", r.XP))
	}
	if r.Tokens > 0 {
		parts = append(parts, fmt.Sprintf("+%d tokens", r.Tokens))
	}
	if r.Kind == KindDailyReward && r.Streak > 1 {
		parts = append(parts, fmt.Sprintf("%d day streak", r.Streak))
	}
	return strings.Join(parts, ", ")
}

func (r Reward) Data() map[string]string {
	data := map[string]string{
		"kind":   string(r.Kind),
		"xp":     fmt.Sprintf("%d", r.XP),
		"tokens": fmt.Sprintf("%d", r.Tokens),
	}
	if r.TaskID != "" {
		data["taskId"] = r.TaskID
	}
	if r.Streak > 0 {
		data["streak"] = fmt.Sprintf("%d", r.Streak)
	}
	return data
}

// Notifier delivers reward notices. Delivery is best effort: callers log
// failures and never roll back a credit because of them.
type Notifier interface {
	NotifyReward(ctx context.Context, r Reward) error
}

// LogNotifier is used when push credentials are not configured.
type LogNotifier struct{}

func (LogNotifier) NotifyReward(_ context.Context, r Reward) error {
	log.Printf("Notification: %s for %s: %s", r.Title(), r.UserID, r.Body())
	return nil
}

// Topic is the per-user FCM topic the client subscribes to after connecting
// a wallet. Topic names only allow [a-zA-Z0-9-_.~%].
func Topic(userID string) string {
	return "user-" + strings.ToLower(userID)
}
