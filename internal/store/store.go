package store

import (
	"context"

	"insightQuestAPI/internal/types/chat"
	"insightQuestAPI/internal/types/quiz"
	"insightQuestAPI/internal/types/task"
	"insightQuestAPI/internal/types/user"
)

// UserStore returns apperr.ErrNotFound from GetUser when no record exists.
type UserStore interface {
	GetUser(ctx context.Context, id string) (*user.User, error)
	SaveUser(ctx context.Context, u *user.User) error
}

type TaskStore interface {
	SaveTask(ctx context.Context, t *task.Task) error
	GetTasks(ctx context.Context, userID string) ([]*task.Task, error)
	DeleteTask(ctx context.Context, userID, taskID string) error
}

// AttemptStore is append-only. GetQuizAttempts is ordered newest first and
// GetLatestQuizAttempt returns (nil, nil) when there is none.
type AttemptStore interface {
	SaveQuizAttempt(ctx context.Context, a *quiz.Attempt) error
	GetQuizAttempts(ctx context.Context, userID, taskID string) ([]*quiz.Attempt, error)
	GetLatestQuizAttempt(ctx context.Context, userID, taskID string) (*quiz.Attempt, error)
}

// ChatStore returns history oldest first.
type ChatStore interface {
	SaveChatMessage(ctx context.Context, m *chat.Message) error
	GetUserChatHistory(ctx context.Context, userID string) ([]*chat.Message, error)
}

type Store interface {
	UserStore
	TaskStore
	AttemptStore
	ChatStore
	Close()
}
