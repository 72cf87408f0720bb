package quiz

import "time"

const (
	QuestionsPerSession = 5
	MaxAttempts         = 2
	PassThreshold       = 0.6
)

type Attempt struct {
	ID             string    `json:"id" db:"id" firestore:"id"`
	UserID         string    `json:"userId" db:"user_id" firestore:"userId"`
	TaskID         string    `json:"taskId" db:"task_id" firestore:"taskId"`
	Score          int       `json:"score" db:"score" firestore:"score"`
	TotalQuestions int       `json:"totalQuestions" db:"total_questions" firestore:"totalQuestions"`
	Passed         bool      `json:"passed" db:"passed" firestore:"passed"`
	AttemptNumber  int       `json:"attemptNumber" db:"attempt_number" firestore:"attemptNumber"`
	Timestamp      time.Time `json:"timestamp" db:"timestamp" firestore:"timestamp"`
}

// Question is ephemeral and never persisted.
type Question struct {
	ID            int      `json:"id"`
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"-"`
}

// Passed applies the hard pass threshold.
func Passed(score, total int) bool {
	if total <= 0 {
		return false
	}
	return float64(score)/float64(total) >= PassThreshold
}

type SelectOptionRequest struct {
	Option *int `json:"option" validate:"required,min=0"`
}
