package quiz

import (
	"errors"
	"fmt"
	"time"

	"insightQuestAPI/internal/apperr"
	"insightQuestAPI/internal/types/quiz"
)

type State string

const (
	StateLoading            State = "loading"
	StateMaxAttemptsReached State = "max_attempts_reached"
	StateInProgress         State = "in_progress"
	StateCompleted          State = "completed"
	StateError              State = "error" // recoverable, Start may be retried
)

var (
	ErrNoSelection     = errors.New("no option selected")
	ErrAnswerLocked    = errors.New("answer already submitted")
	ErrNotSubmitted    = errors.New("answer not submitted yet")
	ErrSessionFinished = errors.New("quiz session is not in progress")
)

// Next tells the caller what to do once a session is Completed.
type Next string

const (
	NextGrantReward Next = "grant_reward"
	NextRetry       Next = "retry"
	NextExhausted   Next = "exhausted"
)

type Outcome struct {
	Attempt *quiz.Attempt `json:"attempt"`
	Next    Next          `json:"next"`
}

// Session drives one pass through a quiz. It is not safe for concurrent use.
type Session struct {
	UserID        string
	TaskID        string
	AttemptNumber int

	state     State
	lastErr   error
	questions []quiz.Question
	current   int
	selected  int
	submitted bool
	correct   int
}

func newSession(userID, taskID string) *Session {
	return &Session{
		UserID:   userID,
		TaskID:   taskID,
		state:    StateLoading,
		selected: -1,
	}
}

func (s *Session) State() State { return s.state }

func (s *Session) Err() error { return s.lastErr }

func (s *Session) Questions() []quiz.Question { return s.questions }

func (s *Session) CurrentIndex() int { return s.current }

func (s *Session) CorrectCount() int { return s.correct }

func (s *Session) Selected() (int, bool) { return s.selected, s.selected >= 0 }

func (s *Session) Submitted() bool { return s.submitted }

func (s *Session) CurrentQuestion() (quiz.Question, error) {
	if s.state != StateInProgress {
		return quiz.Question{}, ErrSessionFinished
	}
	return s.questions[s.current], nil
}

func (s *Session) begin(attemptNumber int, questions []quiz.Question) {
	s.AttemptNumber = attemptNumber
	s.questions = questions
	s.current = 0
	s.selected = -1
	s.submitted = false
	s.correct = 0
	s.lastErr = nil

	if len(questions) == 0 {
		s.fail(fmt.Errorf("no questions generated for task %s", s.TaskID))
		return
	}
	s.state = StateInProgress
}

func (s *Session) fail(err error) {
	s.state = StateError
	s.lastErr = err
}

// SelectOption is allowed until the answer is submitted.
func (s *Session) SelectOption(idx int) error {
	if s.state != StateInProgress {
		return ErrSessionFinished
	}
	if s.submitted {
		return ErrAnswerLocked
	}

	q := s.questions[s.current]
	if idx < 0 || idx >= len(q.Options) {
		return fmt.Errorf("%w: option %d out of range [0,%d)", apperr.ErrInvalidArgument, idx, len(q.Options))
	}

	s.selected = idx
	return nil
}

// SubmitAnswer locks the selection and scores it.
func (s *Session) SubmitAnswer() (bool, error) {
	if s.state != StateInProgress {
		return false, ErrSessionFinished
	}
	if s.submitted {
		return false, ErrAnswerLocked
	}
	if s.selected < 0 {
		return false, ErrNoSelection
	}

	s.submitted = true
	correct := s.selected == s.questions[s.current].CorrectAnswer
	if correct {
		s.correct++
	}

	return correct, nil
}

// NextQuestion advances, or moves to Completed after the last question.
func (s *Session) NextQuestion() error {
	if s.state != StateInProgress {
		return ErrSessionFinished
	}
	if !s.submitted {
		return ErrNotSubmitted
	}

	if s.current < len(s.questions)-1 {
		s.current++
		s.selected = -1
		s.submitted = false
		return nil
	}

	s.state = StateCompleted
	return nil
}

// Attempt builds the record for a Completed session.
func (s *Session) Attempt(id string, now time.Time) (*quiz.Attempt, error) {
	if s.state != StateCompleted {
		return nil, fmt.Errorf("%w: session is %s", apperr.ErrInvalidTransition, s.state)
	}

	total := len(s.questions)
	return &quiz.Attempt{
		ID:             id,
		UserID:         s.UserID,
		TaskID:         s.TaskID,
		Score:          s.correct,
		TotalQuestions: total,
		Passed:         quiz.Passed(s.correct, total),
		AttemptNumber:  s.AttemptNumber,
		Timestamp:      now,
	}, nil
}

func nextFor(a *quiz.Attempt) Next {
	switch {
	case a.Passed:
		return NextGrantReward
	case a.AttemptNumber >= quiz.MaxAttempts:
		return NextExhausted
	default:
		return NextRetry
	}
}
