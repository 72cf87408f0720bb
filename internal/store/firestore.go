package store

import (
	"context"
	"fmt"
	"log"
	"sort"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"insightQuestAPI/internal/apperr"
	"insightQuestAPI/internal/types/chat"
	"insightQuestAPI/internal/types/quiz"
	"insightQuestAPI/internal/types/task"
	"insightQuestAPI/internal/types/user"
)

const (
	usersCollection        = "users"
	tasksCollection        = "tasks"
	quizAttemptsCollection = "quizAttempts"
	chatMessagesCollection = "chatMessages"
)

// Firestore keeps each record as a document keyed by its id, the layout the
// web client has always written.
type Firestore struct {
	client *firestore.Client
}

func NewFirestore(ctx context.Context, projectID string, opts ...option.ClientOption) (*Firestore, error) {
	var conf *firebase.Config
	if projectID != "" {
		conf = &firebase.Config{ProjectID: projectID}
	}

	app, err := firebase.NewApp(ctx, conf, opts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %v", err)
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting firestore client: %v", err)
	}

	return &Firestore{client: client}, nil
}

func (s *Firestore) Close() {
	if err := s.client.Close(); err != nil {
		log.Printf("Firestore: Failed to close client: %v", err)
	}
}

func (s *Firestore) GetUser(ctx context.Context, id string) (*user.User, error) {
	snap, err := s.client.Collection(usersCollection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("user %s: %w", id, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	u := &user.User{}
	if err := snap.DataTo(u); err != nil {
		return nil, fmt.Errorf("failed to decode user: %w", err)
	}
	return u, nil
}

func (s *Firestore) SaveUser(ctx context.Context, u *user.User) error {
	if _, err := s.client.Collection(usersCollection).Doc(u.ID).Set(ctx, u); err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

func (s *Firestore) SaveTask(ctx context.Context, t *task.Task) error {
	if _, err := s.client.Collection(tasksCollection).Doc(t.ID).Set(ctx, t); err != nil {
		return fmt.Errorf("failed to save task: %w", err)
	}
	return nil
}

func (s *Firestore) GetTasks(ctx context.Context, userID string) ([]*task.Task, error) {
	docs, err := s.client.Collection(tasksCollection).Where("userId", "==", userID).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tasks: %w", err)
	}

	tasks := make([]*task.Task, 0, len(docs))
	for _, doc := range docs {
		t := &task.Task{}
		if err := doc.DataTo(t); err != nil {
			return nil, fmt.Errorf("failed to decode task %s: %w", doc.Ref.ID, err)
		}
		tasks = append(tasks, t)
	}

	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].DateCreated.Before(tasks[j].DateCreated)
	})
	return tasks, nil
}

func (s *Firestore) DeleteTask(ctx context.Context, userID, taskID string) error {
	ref := s.client.Collection(tasksCollection).Doc(taskID)

	snap, err := ref.Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil
		}
		return fmt.Errorf("failed to load task: %w", err)
	}

	owner, err := snap.DataAt("userId")
	if err != nil || owner != userID {
		return nil
	}

	if _, err := ref.Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return nil
}

func (s *Firestore) SaveQuizAttempt(ctx context.Context, a *quiz.Attempt) error {
	// Create rather than Set: attempts are never overwritten.
	if _, err := s.client.Collection(quizAttemptsCollection).Doc(a.ID).Create(ctx, a); err != nil {
		return fmt.Errorf("failed to save quiz attempt: %w", err)
	}
	return nil
}

func (s *Firestore) GetQuizAttempts(ctx context.Context, userID, taskID string) ([]*quiz.Attempt, error) {
	docs, err := s.client.Collection(quizAttemptsCollection).
		Where("userId", "==", userID).
		Where("taskId", "==", taskID).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch quiz attempts: %w", err)
	}

	attempts := make([]*quiz.Attempt, 0, len(docs))
	for _, doc := range docs {
		a := &quiz.Attempt{}
		if err := doc.DataTo(a); err != nil {
			return nil, fmt.Errorf("failed to decode quiz attempt %s: %w", doc.Ref.ID, err)
		}
		attempts = append(attempts, a)
	}

	sortAttemptsDesc(attempts)
	return attempts, nil
}

func (s *Firestore) GetLatestQuizAttempt(ctx context.Context, userID, taskID string) (*quiz.Attempt, error) {
	attempts, err := s.GetQuizAttempts(ctx, userID, taskID)
	if err != nil || len(attempts) == 0 {
		return nil, err
	}
	return attempts[0], nil
}

func (s *Firestore) SaveChatMessage(ctx context.Context, m *chat.Message) error {
	if _, err := s.client.Collection(chatMessagesCollection).Doc(m.ID).Set(ctx, m); err != nil {
		return fmt.Errorf("failed to save chat message: %w", err)
	}
	return nil
}

func (s *Firestore) GetUserChatHistory(ctx context.Context, userID string) ([]*chat.Message, error) {
	docs, err := s.client.Collection(chatMessagesCollection).Where("userId", "==", userID).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch chat history: %w", err)
	}

	messages := make([]*chat.Message, 0, len(docs))
	for _, doc := range docs {
		m := &chat.Message{}
		if err := doc.DataTo(m); err != nil {
			return nil, fmt.Errorf("failed to decode chat message %s: %w", doc.Ref.ID, err)
		}
		messages = append(messages, m)
	}

	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].Timestamp.Before(messages[j].Timestamp)
	})
	return messages, nil
}
