package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"insightQuestAPI/internal/apperr"
	"insightQuestAPI/internal/metrics"
	"insightQuestAPI/internal/notification"
	"insightQuestAPI/internal/store"
	"insightQuestAPI/internal/types/quiz"
	"insightQuestAPI/internal/types/task"
	"insightQuestAPI/internal/verify"
)

// boardConcurrency bounds the attempt lookups a single board request fans out.
const boardConcurrency = 8

type TaskService struct {
	tasks    store.TaskStore
	attempts store.AttemptStore
	verifier verify.Verifier
	users    *UserService
	now      func() time.Time

	// Serializes reward paths so a task is credited once per process.
	rewardMu sync.Mutex
}

func NewTaskService(tasks store.TaskStore, attempts store.AttemptStore, verifier verify.Verifier, users *UserService) *TaskService {
	if verifier == nil {
		verifier = verify.NewQuizVerifier(attempts)
	}
	return &TaskService{
		tasks:    tasks,
		attempts: attempts,
		verifier: verifier,
		users:    users,
		now:      time.Now,
	}
}

func (s *TaskService) WithClock(now func() time.Time) *TaskService {
	s.now = now
	return s
}

func (s *TaskService) Create(ctx context.Context, sess *Session, req *task.CreateTaskRequest) (*task.Task, error) {
	if sess == nil {
		return nil, apperr.ErrUnauthenticated
	}
	if req == nil || strings.TrimSpace(req.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", apperr.ErrInvalidArgument)
	}
	if !req.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown task type %q", apperr.ErrInvalidArgument, req.Type)
	}

	reward, xpReward := task.DefaultReward, task.DefaultXPReward
	if req.Reward != nil {
		reward = *req.Reward
	}
	if req.XPReward != nil {
		xpReward = *req.XPReward
	}
	if reward < 0 || xpReward < 0 {
		return nil, fmt.Errorf("%w: rewards must not be negative", apperr.ErrInvalidArgument)
	}

	t := &task.Task{
		ID:          uuid.New().String(),
		UserID:      sess.UserID(),
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Type:        req.Type,
		Status:      task.StatusPending,
		Reward:      reward,
		XPReward:    xpReward,
		URL:         req.URL,
		DateCreated: s.now().UTC(),
	}

	if err := s.tasks.SaveTask(ctx, t); err != nil {
		log.Printf("CreateTask: Failed to save task for %s: %v", t.UserID, err)
		return nil, fmt.Errorf("%w: save task: %v", apperr.ErrPersistence, err)
	}

	metrics.TaskTransitions.WithLabelValues(string(task.StatusPending)).Inc()
	return t, nil
}

func (s *TaskService) List(ctx context.Context, sess *Session) ([]*task.Task, error) {
	if sess == nil {
		return nil, apperr.ErrUnauthenticated
	}

	tasks, err := s.tasks.GetTasks(ctx, sess.UserID())
	if err != nil {
		return nil, fmt.Errorf("%w: load tasks: %v", apperr.ErrPersistence, err)
	}
	return tasks, nil
}

// Get returns ErrNotFound for tasks that are missing or owned by someone else.
func (s *TaskService) Get(ctx context.Context, sess *Session, taskID string) (*task.Task, error) {
	tasks, err := s.List(ctx, sess)
	if err != nil {
		return nil, err
	}

	for _, t := range tasks {
		if t.ID == taskID {
			return t, nil
		}
	}
	return nil, fmt.Errorf("task %s: %w", taskID, apperr.ErrNotFound)
}

func (s *TaskService) Complete(ctx context.Context, sess *Session, taskID string) (*task.Task, error) {
	s.rewardMu.Lock()
	defer s.rewardMu.Unlock()

	t, err := s.Get(ctx, sess, taskID)
	if err != nil {
		return nil, err
	}

	if t.Status == task.StatusCompleted {
		return t, nil
	}
	if !t.Status.CanMoveTo(task.StatusCompleted) {
		return nil, fmt.Errorf("%w: task %s is %s", apperr.ErrInvalidTransition, taskID, t.Status)
	}

	now := s.now().UTC()
	completed := t.Clone()
	completed.Status = task.StatusCompleted
	completed.DateCompleted = &now

	if err := s.tasks.SaveTask(ctx, completed); err != nil {
		log.Printf("CompleteTask: Failed to save task %s: %v", taskID, err)
		return nil, fmt.Errorf("%w: save task: %v", apperr.ErrPersistence, err)
	}

	metrics.TaskTransitions.WithLabelValues(string(task.StatusCompleted)).Inc()
	return completed, nil
}

// Verify moves a completed task to verified and credits its rewards. Calling
// it again on a verified task succeeds without crediting anything.
func (s *TaskService) Verify(ctx context.Context, sess *Session, taskID string) (*task.Task, error) {
	s.rewardMu.Lock()
	defer s.rewardMu.Unlock()

	t, err := s.Get(ctx, sess, taskID)
	if err != nil {
		return nil, err
	}

	if t.Status == task.StatusVerified {
		return t, nil
	}
	if !t.Status.CanMoveTo(task.StatusVerified) {
		return nil, fmt.Errorf("%w: task %s must be completed before verification", apperr.ErrInvalidTransition, taskID)
	}

	ok, err := s.verifier.Verify(ctx, t)
	if err != nil {
		log.Printf("VerifyTask: Verifier failed for %s: %v", taskID, err)
		return nil, fmt.Errorf("%w: %v", apperr.ErrPersistence, err)
	}
	if !ok {
		return nil, fmt.Errorf("task %s: %w", taskID, apperr.ErrVerificationFailed)
	}

	verified := t.Clone()
	verified.Status = task.StatusVerified
	if err := s.tasks.SaveTask(ctx, verified); err != nil {
		log.Printf("VerifyTask: Failed to save task %s: %v", taskID, err)
		return nil, fmt.Errorf("%w: save task: %v", apperr.ErrPersistence, err)
	}

	_, err = s.users.CreditReward(ctx, sess, Credit{
		XP:             t.XPReward,
		Tokens:         t.Reward,
		TasksCompleted: 1,
		Source:         "task",
	})
	if err != nil {
		s.revert(ctx, t)
		return nil, err
	}

	metrics.TaskTransitions.WithLabelValues(string(task.StatusVerified)).Inc()
	s.users.notify(ctx, notification.Reward{
		UserID: t.UserID,
		Kind:   notification.KindTaskVerified,
		XP:     t.XPReward,
		Tokens: t.Reward,
		TaskID: t.ID,
	})

	return verified, nil
}

// Share credits the share bonus once per task. Only finished tasks qualify.
func (s *TaskService) Share(ctx context.Context, sess *Session, taskID string) (*task.Task, error) {
	s.rewardMu.Lock()
	defer s.rewardMu.Unlock()

	t, err := s.Get(ctx, sess, taskID)
	if err != nil {
		return nil, err
	}

	if t.Status == task.StatusPending {
		return nil, fmt.Errorf("%w: only finished tasks can be shared", apperr.ErrInvalidTransition)
	}
	if t.SharedForBonus {
		return t, nil
	}

	shared := t.Clone()
	shared.SharedForBonus = true
	if err := s.tasks.SaveTask(ctx, shared); err != nil {
		log.Printf("ShareTask: Failed to save task %s: %v", taskID, err)
		return nil, fmt.Errorf("%w: save task: %v", apperr.ErrPersistence, err)
	}

	if _, err := s.users.CreditReward(ctx, sess, Credit{Tokens: task.ShareBonus, Source: "share"}); err != nil {
		s.revert(ctx, t)
		return nil, err
	}

	s.users.notify(ctx, notification.Reward{
		UserID: t.UserID,
		Kind:   notification.KindShareBonus,
		Tokens: task.ShareBonus,
		TaskID: t.ID,
	})

	return shared, nil
}

// Delete is allowed from any state and is a no-op for unknown tasks.
func (s *TaskService) Delete(ctx context.Context, sess *Session, taskID string) error {
	if sess == nil {
		return apperr.ErrUnauthenticated
	}

	if err := s.tasks.DeleteTask(ctx, sess.UserID(), taskID); err != nil {
		log.Printf("DeleteTask: Failed to delete task %s: %v", taskID, err)
		return fmt.Errorf("%w: delete task: %v", apperr.ErrPersistence, err)
	}
	return nil
}

// Board lists the user's tasks with their quiz history.
func (s *TaskService) Board(ctx context.Context, sess *Session) ([]task.BoardEntry, error) {
	tasks, err := s.List(ctx, sess)
	if err != nil {
		return nil, err
	}

	entries := make([]task.BoardEntry, len(tasks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(boardConcurrency)

	for i, t := range tasks {
		i, t := i, t
		g.Go(func() error {
			attempts, err := s.attempts.GetQuizAttempts(gctx, t.UserID, t.ID)
			if err != nil {
				return fmt.Errorf("load attempts for task %s: %w", t.ID, err)
			}

			entry := task.BoardEntry{Task: t, AttemptsLeft: quiz.MaxAttempts - len(attempts)}
			if entry.AttemptsLeft < 0 {
				entry.AttemptsLeft = 0
			}
			if len(attempts) > 0 {
				entry.LatestAttempt = attempts[0]
			}
			entries[i] = entry
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		log.Printf("TaskBoard: %v", err)
		return nil, fmt.Errorf("%w: %v", apperr.ErrPersistence, err)
	}

	return entries, nil
}

// revert restores the task as it was before a reward path failed part way.
func (s *TaskService) revert(ctx context.Context, previous *task.Task) {
	if err := s.tasks.SaveTask(ctx, previous); err != nil {
		log.Printf("TaskService: Failed to revert task %s to %s: %v", previous.ID, previous.Status, err)
	}
}
