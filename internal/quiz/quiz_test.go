package quiz

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insightQuestAPI/internal/apperr"
	"insightQuestAPI/internal/types/quiz"
	"insightQuestAPI/internal/types/task"
)

type fakeLog struct {
	attempts []*quiz.Attempt
	loadErr  error
	saveErr  error
}

func (f *fakeLog) SaveQuizAttempt(_ context.Context, a *quiz.Attempt) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.attempts = append(f.attempts, a)
	return nil
}

func (f *fakeLog) GetQuizAttempts(_ context.Context, userID, taskID string) ([]*quiz.Attempt, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	var out []*quiz.Attempt
	for _, a := range f.attempts {
		if a.UserID == userID && a.TaskID == taskID {
			out = append(out, a)
		}
	}
	return out, nil
}

func newTask(kind task.Type, title string) *task.Task {
	return &task.Task{ID: "task-1", UserID: "0xuser", Title: title, Type: kind, Status: task.StatusCompleted}
}

// answerAll answers the first `right` questions correctly and the rest wrong.
func answerAll(t *testing.T, s *Session, right int) {
	t.Helper()
	for i := 0; s.State() == StateInProgress; i++ {
		q, err := s.CurrentQuestion()
		require.NoError(t, err)

		pick := q.CorrectAnswer
		if i >= right {
			pick = (q.CorrectAnswer + 1) % len(q.Options)
		}
		require.NoError(t, s.SelectOption(pick))
		_, err = s.SubmitAnswer()
		require.NoError(t, err)
		require.NoError(t, s.NextQuestion())
	}
}

func TestGenerateQuestions_FiveForEveryType(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for _, kind := range []task.Type{task.TypeLeetcode, task.TypeCourse, task.TypeVideo} {
		for i := 0; i < 20; i++ {
			qs := GenerateQuestions(rng, newTask(kind, "Intro to Python"))
			require.Len(t, qs, quiz.QuestionsPerSession, "type %s", kind)

			for idx, q := range qs {
				assert.Equal(t, idx, q.ID)
				assert.GreaterOrEqual(t, len(q.Options), 2)
				assert.GreaterOrEqual(t, q.CorrectAnswer, 0)
				assert.Less(t, q.CorrectAnswer, len(q.Options))
			}
		}
	}
}

func TestGenerateQuestions_UnknownTypeTakesWhatIsAvailable(t *testing.T) {
	qs := GenerateQuestions(rand.New(rand.NewSource(1)), newTask(task.Type("podcast"), "anything"))
	assert.Len(t, qs, 2)
}

func TestGenerateQuestions_TitleQuestionTracksCorrectOption(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 50; i++ {
		for _, q := range GenerateQuestions(rng, newTask(task.TypeVideo, "Crypto trading 101")) {
			if q.Options[q.CorrectAnswer] == "Blockchain fundamentals" {
				return
			}
		}
	}
	t.Fatal("title question never found with the expected correct option")
}

func TestOptionsForTitle_FirstMatchWins(t *testing.T) {
	assert.Equal(t, "Blockchain fundamentals", OptionsForTitle("Web3 and Python")[0])
	assert.Equal(t, "Programming fundamentals", OptionsForTitle("JavaScript strings")[0])
	assert.Equal(t, "Financial principles", OptionsForTitle("Investment basics")[0])
	assert.Equal(t, "Data structures and algorithms", OptionsForTitle("Invert Binary Tree")[0])
	assert.Equal(t, fallbackTitleOptions, OptionsForTitle("Gardening"))
}

func TestSession_PassAtThreeOfFive(t *testing.T) {
	for right := 0; right <= 5; right++ {
		log := &fakeLog{}
		engine := NewEngine(log, rand.New(rand.NewSource(int64(right))))

		s, err := engine.Start(context.Background(), newTask(task.TypeCourse, "Go"), "0xuser")
		require.NoError(t, err)
		require.Equal(t, StateInProgress, s.State())
		require.Equal(t, 1, s.AttemptNumber)

		answerAll(t, s, right)
		require.Equal(t, StateCompleted, s.State())
		assert.Equal(t, right, s.CorrectCount())

		out, err := engine.Finish(context.Background(), s)
		require.NoError(t, err)

		assert.Equal(t, right >= 3, out.Attempt.Passed, "right=%d", right)
		assert.Equal(t, 5, out.Attempt.TotalQuestions)
		assert.Equal(t, right, out.Attempt.Score)
		if right >= 3 {
			assert.Equal(t, NextGrantReward, out.Next)
		} else {
			assert.Equal(t, NextRetry, out.Next)
		}
	}
}

func TestSession_AnswerCycleGuards(t *testing.T) {
	engine := NewEngine(&fakeLog{}, rand.New(rand.NewSource(3)))
	s, err := engine.Start(context.Background(), newTask(task.TypeVideo, "Go"), "0xuser")
	require.NoError(t, err)

	_, err = s.SubmitAnswer()
	assert.ErrorIs(t, err, ErrNoSelection)

	assert.ErrorIs(t, s.NextQuestion(), ErrNotSubmitted)
	assert.ErrorIs(t, s.SelectOption(99), apperr.ErrInvalidArgument)

	require.NoError(t, s.SelectOption(0))
	require.NoError(t, s.SelectOption(1))
	_, err = s.SubmitAnswer()
	require.NoError(t, err)

	assert.ErrorIs(t, s.SelectOption(2), ErrAnswerLocked)
	_, err = s.SubmitAnswer()
	assert.ErrorIs(t, err, ErrAnswerLocked)

	selected, ok := s.Selected()
	assert.True(t, ok)
	assert.Equal(t, 1, selected)

	require.NoError(t, s.NextQuestion())
	assert.Equal(t, 1, s.CurrentIndex())
	_, ok = s.Selected()
	assert.False(t, ok)
}

func TestEngine_AttemptLimit(t *testing.T) {
	log := &fakeLog{}
	engine := NewEngine(log, rand.New(rand.NewSource(9)))
	ctx := context.Background()
	tk := newTask(task.TypeLeetcode, "Two Sum")

	first, err := engine.Start(ctx, tk, "0xuser")
	require.NoError(t, err)
	answerAll(t, first, 0)
	out, err := engine.Finish(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, NextRetry, out.Next)

	second, err := engine.Start(ctx, tk, "0xuser")
	require.NoError(t, err)
	assert.Equal(t, 2, second.AttemptNumber)
	answerAll(t, second, 1)
	out, err = engine.Finish(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, NextExhausted, out.Next)
	assert.Equal(t, 2, out.Attempt.AttemptNumber)

	third, err := engine.Start(ctx, tk, "0xuser")
	require.NoError(t, err)
	assert.Equal(t, StateMaxAttemptsReached, third.State())
	assert.Empty(t, third.Questions())
	assert.Len(t, log.attempts, 2)

	// another user is unaffected
	other, err := engine.Start(ctx, tk, "0xother")
	require.NoError(t, err)
	assert.Equal(t, StateInProgress, other.State())
}

func TestEngine_ParallelSessionsRespectAttemptLimit(t *testing.T) {
	log := &fakeLog{}
	engine := NewEngine(log, rand.New(rand.NewSource(4)))
	ctx := context.Background()
	tk := newTask(task.TypeCourse, "Go")

	var sessions []*Session
	for i := 0; i < 3; i++ {
		s, err := engine.Start(ctx, tk, "0xuser")
		require.NoError(t, err)
		assert.Equal(t, 1, s.AttemptNumber)
		answerAll(t, s, 0)
		sessions = append(sessions, s)
	}

	first, err := engine.Finish(ctx, sessions[0])
	require.NoError(t, err)
	assert.Equal(t, 1, first.Attempt.AttemptNumber)

	second, err := engine.Finish(ctx, sessions[1])
	require.NoError(t, err)
	assert.Equal(t, 2, second.Attempt.AttemptNumber)
	assert.Equal(t, NextExhausted, second.Next)

	_, err = engine.Finish(ctx, sessions[2])
	assert.ErrorIs(t, err, apperr.ErrMaxAttemptsExceeded)
	assert.Len(t, log.attempts, 2)
}

func TestEngine_LoadFailureIsRecoverable(t *testing.T) {
	log := &fakeLog{loadErr: errors.New("connection reset")}
	engine := NewEngine(log, rand.New(rand.NewSource(1)))

	s, err := engine.Start(context.Background(), newTask(task.TypeCourse, "Go"), "0xuser")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrPersistence))
	assert.Equal(t, StateError, s.State())

	log.loadErr = nil
	s, err = engine.Start(context.Background(), newTask(task.TypeCourse, "Go"), "0xuser")
	require.NoError(t, err)
	assert.Equal(t, StateInProgress, s.State())
}

func TestEngine_FinishPersistenceFailureRecordsNothing(t *testing.T) {
	log := &fakeLog{}
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	engine := NewEngine(log, rand.New(rand.NewSource(5))).WithClock(func() time.Time { return fixed })

	s, err := engine.Start(context.Background(), newTask(task.TypeVideo, "Go"), "0xuser")
	require.NoError(t, err)
	answerAll(t, s, 5)

	log.saveErr = errors.New("disk full")
	_, err = engine.Finish(context.Background(), s)
	assert.True(t, errors.Is(err, apperr.ErrPersistence))
	assert.Empty(t, log.attempts)

	log.saveErr = nil
	out, err := engine.Finish(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, fixed, out.Attempt.Timestamp)
	assert.Len(t, log.attempts, 1)
}

func TestEngine_FinishBeforeCompletion(t *testing.T) {
	engine := NewEngine(&fakeLog{}, rand.New(rand.NewSource(5)))
	s, err := engine.Start(context.Background(), newTask(task.TypeVideo, "Go"), "0xuser")
	require.NoError(t, err)

	_, err = engine.Finish(context.Background(), s)
	assert.True(t, errors.Is(err, apperr.ErrInvalidTransition))
}
