package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"insightQuestAPI/internal/apperr"
	"insightQuestAPI/internal/types/chat"
	"insightQuestAPI/internal/types/quiz"
	"insightQuestAPI/internal/types/task"
	"insightQuestAPI/internal/types/user"
)

// Memory keeps everything in process. Used for local runs and tests.
type Memory struct {
	mu       sync.RWMutex
	users    map[string]*user.User
	tasks    map[string]*task.Task
	attempts []*quiz.Attempt
	messages []*chat.Message
}

func NewMemory() *Memory {
	return &Memory{
		users: make(map[string]*user.User),
		tasks: make(map[string]*task.Task),
	}
}

func (m *Memory) Close() {}

func (m *Memory) GetUser(_ context.Context, id string) (*user.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, apperr.ErrNotFound)
	}
	return u.Clone(), nil
}

func (m *Memory) SaveUser(_ context.Context, u *user.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.users[u.ID] = u.Clone()
	return nil
}

func (m *Memory) SaveTask(_ context.Context, t *task.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.tasks[t.ID] = t.Clone()
	return nil
}

func (m *Memory) GetTasks(_ context.Context, userID string) ([]*task.Task, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tasks := []*task.Task{}
	for _, t := range m.tasks {
		if t.UserID == userID {
			tasks = append(tasks, t.Clone())
		}
	}
	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].DateCreated.Before(tasks[j].DateCreated)
	})
	return tasks, nil
}

func (m *Memory) DeleteTask(_ context.Context, userID, taskID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if t, ok := m.tasks[taskID]; ok && t.UserID == userID {
		delete(m.tasks, taskID)
	}
	return nil
}

func (m *Memory) SaveQuizAttempt(_ context.Context, a *quiz.Attempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := *a
	m.attempts = append(m.attempts, &c)
	return nil
}

func (m *Memory) GetQuizAttempts(_ context.Context, userID, taskID string) ([]*quiz.Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	attempts := []*quiz.Attempt{}
	for _, a := range m.attempts {
		if a.UserID == userID && a.TaskID == taskID {
			c := *a
			attempts = append(attempts, &c)
		}
	}
	sortAttemptsDesc(attempts)
	return attempts, nil
}

func (m *Memory) GetLatestQuizAttempt(ctx context.Context, userID, taskID string) (*quiz.Attempt, error) {
	attempts, err := m.GetQuizAttempts(ctx, userID, taskID)
	if err != nil || len(attempts) == 0 {
		return nil, err
	}
	return attempts[0], nil
}

func (m *Memory) SaveChatMessage(_ context.Context, msg *chat.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := *msg
	m.messages = append(m.messages, &c)
	return nil
}

func (m *Memory) GetUserChatHistory(_ context.Context, userID string) ([]*chat.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	messages := []*chat.Message{}
	for _, msg := range m.messages {
		if msg.UserID == userID {
			c := *msg
			messages = append(messages, &c)
		}
	}
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].Timestamp.Before(messages[j].Timestamp)
	})
	return messages, nil
}

// sortAttemptsDesc orders newest first; attempt number breaks timestamp ties.
func sortAttemptsDesc(attempts []*quiz.Attempt) {
	sort.SliceStable(attempts, func(i, j int) bool {
		if attempts[i].Timestamp.Equal(attempts[j].Timestamp) {
			return attempts[i].AttemptNumber > attempts[j].AttemptNumber
		}
		return attempts[i].Timestamp.After(attempts[j].Timestamp)
	})
}
