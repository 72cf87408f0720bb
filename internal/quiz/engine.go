package quiz

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"insightQuestAPI/internal/apperr"
	"insightQuestAPI/internal/types/quiz"
	"insightQuestAPI/internal/types/task"
)

// AttemptLog is the append-only attempt history the engine reads and writes.
type AttemptLog interface {
	SaveQuizAttempt(ctx context.Context, attempt *quiz.Attempt) error
	GetQuizAttempts(ctx context.Context, userID, taskID string) ([]*quiz.Attempt, error)
}

type Engine struct {
	log   AttemptLog
	now   func() time.Time
	rngMu sync.Mutex
	rng   *rand.Rand
}

func NewEngine(attempts AttemptLog, rng *rand.Rand) *Engine {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Engine{log: attempts, now: time.Now, rng: rng}
}

// WithClock overrides the timestamp source for recorded attempts.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Start runs the Loading step for (userID, t). A non-nil error means the
// returned session is in StateError and Start may be called again.
func (e *Engine) Start(ctx context.Context, t *task.Task, userID string) (*Session, error) {
	if t == nil || userID == "" {
		return nil, fmt.Errorf("%w: task and user are required", apperr.ErrInvalidArgument)
	}

	s := newSession(userID, t.ID)

	previous, err := e.log.GetQuizAttempts(ctx, userID, t.ID)
	if err != nil {
		log.Printf("QuizEngine: Failed to load attempts for task %s: %v", t.ID, err)
		wrapped := fmt.Errorf("%w: load quiz attempts: %v", apperr.ErrPersistence, err)
		s.fail(wrapped)
		return s, wrapped
	}

	if len(previous) >= quiz.MaxAttempts {
		s.AttemptNumber = len(previous)
		s.state = StateMaxAttemptsReached
		return s, nil
	}

	e.rngMu.Lock()
	questions := GenerateQuestions(e.rng, t)
	e.rngMu.Unlock()

	s.begin(len(previous)+1, questions)
	if s.state == StateError {
		return s, s.lastErr
	}

	return s, nil
}

// Finish records the attempt of a Completed session and says what comes next.
// On persistence failure nothing is recorded and Finish may be retried. The
// log is read again first: a session started alongside another one for the
// same task takes the next free attempt number, and none is recorded once the
// limit is reached.
func (e *Engine) Finish(ctx context.Context, s *Session) (*Outcome, error) {
	attempt, err := s.Attempt(uuid.New().String(), e.now().UTC())
	if err != nil {
		return nil, err
	}

	previous, err := e.log.GetQuizAttempts(ctx, s.UserID, s.TaskID)
	if err != nil {
		log.Printf("QuizEngine: Failed to load attempts for task %s: %v", s.TaskID, err)
		return nil, fmt.Errorf("%w: load quiz attempts: %v", apperr.ErrPersistence, err)
	}
	if len(previous) >= quiz.MaxAttempts {
		return nil, fmt.Errorf("%w: %d attempts recorded for task %s", apperr.ErrMaxAttemptsExceeded, len(previous), s.TaskID)
	}
	if next := len(previous) + 1; attempt.AttemptNumber != next {
		attempt.AttemptNumber = next
		s.AttemptNumber = next
	}

	if err := e.log.SaveQuizAttempt(ctx, attempt); err != nil {
		log.Printf("QuizEngine: Failed to save attempt %d for task %s: %v", attempt.AttemptNumber, s.TaskID, err)
		return nil, fmt.Errorf("%w: save quiz attempt: %v", apperr.ErrPersistence, err)
	}

	return &Outcome{Attempt: attempt, Next: nextFor(attempt)}, nil
}
