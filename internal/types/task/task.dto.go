package task

import "insightQuestAPI/internal/types/quiz"

type CreateTaskRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
	Type        Type   `json:"type" validate:"required,oneof=leetcode course video"`
	URL         string `json:"url,omitempty" validate:"omitempty,url"`
	Reward      *int   `json:"reward,omitempty" validate:"omitempty,min=0"`
	XPReward    *int   `json:"xpReward,omitempty" validate:"omitempty,min=0"`
}

// BoardEntry is one row of the user's task board.
type BoardEntry struct {
	Task          *Task         `json:"task"`
	LatestAttempt *quiz.Attempt `json:"latestAttempt,omitempty"`
	AttemptsLeft  int           `json:"attemptsLeft"`
}
