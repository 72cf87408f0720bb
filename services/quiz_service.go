package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"insightQuestAPI/internal/apperr"
	"insightQuestAPI/internal/metrics"
	quizengine "insightQuestAPI/internal/quiz"
	"insightQuestAPI/internal/types/quiz"
	"insightQuestAPI/internal/types/task"
)

// QuizView is what the client renders for a quiz session. Correct answers are
// never part of it.
type QuizView struct {
	TaskID        string              `json:"taskId"`
	State         quizengine.State    `json:"state"`
	AttemptNumber int                 `json:"attemptNumber"`
	Index         int                 `json:"index"`
	Total         int                 `json:"total"`
	Question      *quiz.Question      `json:"question,omitempty"`
	Selected      *int                `json:"selected,omitempty"`
	Submitted     bool                `json:"submitted"`
	CorrectCount  int                 `json:"correctCount"`
	Outcome       *quizengine.Outcome `json:"outcome,omitempty"`
	Task          *task.Task          `json:"task,omitempty"`

	// VerificationPending is set when the attempt passed but crediting the
	// task failed. Verifying the task again completes it.
	VerificationPending bool `json:"verificationPending,omitempty"`
}

type AnswerResult struct {
	Correct       bool `json:"correct"`
	CorrectAnswer int  `json:"correctAnswer"`
}

// activeQuiz is a running quiz. mu serializes calls on it and is held across
// its store I/O. touched is guarded by QuizService.mu.
type activeQuiz struct {
	mu      sync.Mutex
	session *quizengine.Session
	touched time.Time
}

type QuizService struct {
	engine *quizengine.Engine
	tasks  *TaskService
	now    func() time.Time

	// mu guards the active map only. It is never held while waiting on an
	// entry or on the store.
	mu     sync.Mutex
	active map[string]*activeQuiz
}

func NewQuizService(engine *quizengine.Engine, tasks *TaskService) *QuizService {
	return &QuizService{
		engine: engine,
		tasks:  tasks,
		now:    time.Now,
		active: make(map[string]*activeQuiz),
	}
}

func (s *QuizService) WithClock(now func() time.Time) *QuizService {
	s.now = now
	return s
}

// EvictIdle abandons quizzes untouched since cutoff. It implements
// workers.Sweeper.
func (s *QuizService) EvictIdle(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for key, aq := range s.active {
		if aq.touched.Before(cutoff) {
			delete(s.active, key)
			n++
		}
	}
	return n
}

func quizKey(userID, taskID string) string {
	return userID + "/" + taskID
}

// acquire returns the entry for key with its lock held. With create set a
// missing entry is registered empty and reported as created; the caller must
// fill in its session or drop it before unlocking.
func (s *QuizService) acquire(key string, create bool) (aq *activeQuiz, created bool) {
	for {
		s.mu.Lock()
		aq, ok := s.active[key]
		if !ok {
			if !create {
				s.mu.Unlock()
				return nil, false
			}
			aq = &activeQuiz{touched: s.now()}
			aq.mu.Lock()
			s.active[key] = aq
			s.mu.Unlock()
			return aq, true
		}
		aq.touched = s.now()
		s.mu.Unlock()

		aq.mu.Lock()
		if s.registered(key, aq) {
			return aq, false
		}
		// Finished, abandoned or evicted while we waited.
		aq.mu.Unlock()
	}
}

func (s *QuizService) registered(key string, aq *activeQuiz) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active[key] == aq
}

// drop unregisters aq if it is still the entry for key.
func (s *QuizService) drop(key string, aq *activeQuiz) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active[key] == aq {
		delete(s.active, key)
	}
}

// Start opens a quiz for a completed task. A running quiz for the same task is
// returned as is. When the attempt limit is reached the view says so and no
// questions are generated.
func (s *QuizService) Start(ctx context.Context, sess *Session, taskID string) (*QuizView, error) {
	t, err := s.tasks.Get(ctx, sess, taskID)
	if err != nil {
		return nil, err
	}
	if t.Status != task.StatusCompleted {
		return nil, fmt.Errorf("%w: quizzes are taken on completed tasks, task is %s", apperr.ErrInvalidTransition, t.Status)
	}

	key := quizKey(t.UserID, t.ID)
	aq, created := s.acquire(key, true)
	defer aq.mu.Unlock()

	if !created {
		return viewOf(aq.session, nil), nil
	}

	qs, err := s.engine.Start(ctx, t, t.UserID)
	if err != nil {
		s.drop(key, aq)
		return nil, err
	}

	if qs.State() != quizengine.StateInProgress {
		s.drop(key, aq)
		return viewOf(qs, nil), nil
	}
	aq.session = qs
	return viewOf(qs, nil), nil
}

func (s *QuizService) View(sess *Session, taskID string) (*QuizView, error) {
	aq, err := s.lookup(sess, taskID)
	if err != nil {
		return nil, err
	}
	defer aq.mu.Unlock()

	return viewOf(aq.session, nil), nil
}

func (s *QuizService) Select(sess *Session, taskID string, option int) (*QuizView, error) {
	aq, err := s.lookup(sess, taskID)
	if err != nil {
		return nil, err
	}
	defer aq.mu.Unlock()

	if err := aq.session.SelectOption(option); err != nil {
		return nil, err
	}
	return viewOf(aq.session, nil), nil
}

func (s *QuizService) Submit(sess *Session, taskID string) (*AnswerResult, error) {
	aq, err := s.lookup(sess, taskID)
	if err != nil {
		return nil, err
	}
	defer aq.mu.Unlock()

	correct, err := aq.session.SubmitAnswer()
	if err != nil {
		return nil, err
	}

	q, _ := aq.session.CurrentQuestion()
	return &AnswerResult{Correct: correct, CorrectAnswer: q.CorrectAnswer}, nil
}

// Next advances the quiz. After the last question the attempt is recorded and,
// when it passed, the task is verified. If recording fails the quiz stays open
// and Next can be called again. If verification fails the view is returned
// along with the error and marked as pending verification.
func (s *QuizService) Next(ctx context.Context, sess *Session, taskID string) (*QuizView, error) {
	aq, err := s.lookup(sess, taskID)
	if err != nil {
		return nil, err
	}
	key := quizKey(sess.UserID(), taskID)
	qs := aq.session

	if qs.State() == quizengine.StateInProgress {
		if err := qs.NextQuestion(); err != nil {
			aq.mu.Unlock()
			return nil, err
		}
		if qs.State() == quizengine.StateInProgress {
			view := viewOf(qs, nil)
			aq.mu.Unlock()
			return view, nil
		}
	}

	outcome, err := s.finish(ctx, sess, key, aq)
	view := viewOf(qs, outcome)
	aq.mu.Unlock()
	if err != nil {
		return nil, err
	}

	metrics.QuizAttempts.WithLabelValues(fmt.Sprintf("%t", outcome.Attempt.Passed)).Inc()
	if outcome.Next != quizengine.NextGrantReward {
		return view, nil
	}

	verified, err := s.tasks.Verify(ctx, sess, taskID)
	if err != nil {
		// The passing attempt is on record, so verifying the task again
		// later will succeed.
		log.Printf("QuizService: Verification after passing quiz on %s failed: %v", taskID, err)
		view.VerificationPending = true
		return view, err
	}
	view.Task = verified
	return view, nil
}

// finish records the attempt of a completed quiz held by the caller and
// unregisters it. A quiz whose task was deleted meanwhile is dropped without
// recording anything.
func (s *QuizService) finish(ctx context.Context, sess *Session, key string, aq *activeQuiz) (*quizengine.Outcome, error) {
	if _, err := s.tasks.Get(ctx, sess, aq.session.TaskID); err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			s.drop(key, aq)
		}
		return nil, err
	}

	outcome, err := s.engine.Finish(ctx, aq.session)
	if err != nil {
		if errors.Is(err, apperr.ErrMaxAttemptsExceeded) {
			s.drop(key, aq)
		}
		return nil, err
	}
	s.drop(key, aq)
	return outcome, nil
}

// Abandon drops a running quiz. Nothing is recorded.
func (s *QuizService) Abandon(sess *Session, taskID string) error {
	if sess == nil {
		return apperr.ErrUnauthenticated
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.active, quizKey(sess.UserID(), taskID))
	return nil
}

func (s *QuizService) Attempts(ctx context.Context, sess *Session, taskID string) ([]*quiz.Attempt, error) {
	t, err := s.tasks.Get(ctx, sess, taskID)
	if err != nil {
		return nil, err
	}

	attempts, err := s.tasks.attempts.GetQuizAttempts(ctx, t.UserID, t.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: load quiz attempts: %v", apperr.ErrPersistence, err)
	}
	return attempts, nil
}

// lookup returns the running quiz with its lock held.
func (s *QuizService) lookup(sess *Session, taskID string) (*activeQuiz, error) {
	if sess == nil {
		return nil, apperr.ErrUnauthenticated
	}

	aq, _ := s.acquire(quizKey(sess.UserID(), taskID), false)
	if aq == nil {
		return nil, fmt.Errorf("no running quiz for task %s: %w", taskID, apperr.ErrNotFound)
	}
	return aq, nil
}

func viewOf(qs *quizengine.Session, outcome *quizengine.Outcome) *QuizView {
	view := &QuizView{
		TaskID:        qs.TaskID,
		State:         qs.State(),
		AttemptNumber: qs.AttemptNumber,
		Index:         qs.CurrentIndex(),
		Total:         len(qs.Questions()),
		Submitted:     qs.Submitted(),
		CorrectCount:  qs.CorrectCount(),
		Outcome:       outcome,
	}

	if q, err := qs.CurrentQuestion(); err == nil && qs.State() == quizengine.StateInProgress {
		view.Question = &q
	}
	if idx, ok := qs.Selected(); ok {
		view.Selected = &idx
	}
	return view
}
