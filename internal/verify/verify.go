// Package verify decides whether a completed task has earned its reward.
package verify

import (
	"context"
	"fmt"

	"insightQuestAPI/internal/types/quiz"
	"insightQuestAPI/internal/types/task"
)

// Verifier returns false with a nil error when the task simply did not
// qualify. Errors are reserved for lookup failures.
type Verifier interface {
	Verify(ctx context.Context, t *task.Task) (bool, error)
}

type Func func(ctx context.Context, t *task.Task) (bool, error)

func (f Func) Verify(ctx context.Context, t *task.Task) (bool, error) {
	return f(ctx, t)
}

// Always accepts every task. Used by tests and local tooling.
var Always = Func(func(context.Context, *task.Task) (bool, error) { return true, nil })

type LatestAttemptGetter interface {
	GetLatestQuizAttempt(ctx context.Context, userID, taskID string) (*quiz.Attempt, error)
}

// QuizVerifier accepts a task once the owner's most recent quiz attempt on it
// passed.
type QuizVerifier struct {
	attempts LatestAttemptGetter
}

func NewQuizVerifier(attempts LatestAttemptGetter) *QuizVerifier {
	return &QuizVerifier{attempts: attempts}
}

func (v *QuizVerifier) Verify(ctx context.Context, t *task.Task) (bool, error) {
	latest, err := v.attempts.GetLatestQuizAttempt(ctx, t.UserID, t.ID)
	if err != nil {
		return false, fmt.Errorf("failed to load latest quiz attempt: %w", err)
	}
	return latest != nil && latest.Passed, nil
}
