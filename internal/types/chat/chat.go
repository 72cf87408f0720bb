package chat

import "time"

type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "zappy"
)

type Message struct {
	ID        string    `json:"id,omitempty" db:"id" firestore:"id"`
	UserID    string    `json:"userId" db:"user_id" firestore:"userId"`
	Sender    Sender    `json:"sender" db:"sender" firestore:"sender"`
	Content   string    `json:"content" db:"content" firestore:"content"`
	Timestamp time.Time `json:"timestamp" db:"timestamp" firestore:"timestamp"`
}

type SaveMessageRequest struct {
	Sender  Sender `json:"sender" validate:"required,oneof=user zappy"`
	Content string `json:"content" validate:"required,max=4000"`
}
