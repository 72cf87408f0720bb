package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"insightQuestAPI/internal/apperr"
	"insightQuestAPI/internal/store"
	"insightQuestAPI/internal/types/chat"
)

// ChatService only records and replays the assistant conversation. Replies
// are produced by the client.
type ChatService struct {
	messages store.ChatStore
	now      func() time.Time
}

func NewChatService(messages store.ChatStore) *ChatService {
	return &ChatService{messages: messages, now: time.Now}
}

func (s *ChatService) WithClock(now func() time.Time) *ChatService {
	s.now = now
	return s
}

func (s *ChatService) SaveMessage(ctx context.Context, sess *Session, req *chat.SaveMessageRequest) (*chat.Message, error) {
	if sess == nil {
		return nil, apperr.ErrUnauthenticated
	}
	if req.Sender != chat.SenderUser && req.Sender != chat.SenderAssistant {
		return nil, fmt.Errorf("%w: unknown sender %q", apperr.ErrInvalidArgument, req.Sender)
	}
	if strings.TrimSpace(req.Content) == "" {
		return nil, fmt.Errorf("%w: empty message", apperr.ErrInvalidArgument)
	}

	msg := &chat.Message{
		ID:        uuid.New().String(),
		UserID:    sess.UserID(),
		Sender:    req.Sender,
		Content:   req.Content,
		Timestamp: s.now().UTC(),
	}

	if err := s.messages.SaveChatMessage(ctx, msg); err != nil {
		log.Printf("SaveChatMessage: Failed for %s: %v", msg.UserID, err)
		return nil, fmt.Errorf("%w: save chat message: %v", apperr.ErrPersistence, err)
	}
	return msg, nil
}

func (s *ChatService) History(ctx context.Context, sess *Session) ([]*chat.Message, error) {
	if sess == nil {
		return nil, apperr.ErrUnauthenticated
	}

	history, err := s.messages.GetUserChatHistory(ctx, sess.UserID())
	if err != nil {
		return nil, fmt.Errorf("%w: load chat history: %v", apperr.ErrPersistence, err)
	}
	return history, nil
}
