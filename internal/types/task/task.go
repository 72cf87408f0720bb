package task

import "time"

type Type string
type Status string

const (
	TypeLeetcode Type = "leetcode"
	TypeCourse   Type = "course"
	TypeVideo    Type = "video"

	StatusPending   Status = "pending"   // Created, not yet done
	StatusCompleted Status = "completed" // User says it's done, awaiting verification
	StatusVerified  Status = "verified"  // Verified and rewards credited
)

const (
	DefaultReward   = 10
	DefaultXPReward = 100
	ShareBonus      = 5
)

func (t Type) Valid() bool {
	switch t {
	case TypeLeetcode, TypeCourse, TypeVideo:
		return true
	}
	return false
}

// rank orders statuses so transitions can only move forward.
func (s Status) rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusCompleted:
		return 1
	case StatusVerified:
		return 2
	}
	return -1
}

// CanMoveTo allows exactly one step forward: pending->completed->verified.
func (s Status) CanMoveTo(next Status) bool {
	return s.rank() >= 0 && next.rank() == s.rank()+1
}

type Task struct {
	ID             string     `json:"id" db:"id" firestore:"id"`
	UserID         string     `json:"userId" db:"user_id" firestore:"userId"`
	Title          string     `json:"title" db:"title" firestore:"title"`
	Description    string     `json:"description" db:"description" firestore:"description"`
	Type           Type       `json:"type" db:"type" firestore:"type"`
	Status         Status     `json:"status" db:"status" firestore:"status"`
	Reward         int        `json:"reward" db:"reward" firestore:"reward"`
	XPReward       int        `json:"xpReward" db:"xp_reward" firestore:"xpReward"`
	URL            string     `json:"url,omitempty" db:"url" firestore:"url,omitempty"`
	SharedForBonus bool       `json:"sharedForBonus" db:"shared_for_bonus" firestore:"sharedForBonus"`
	DateCreated    time.Time  `json:"dateCreated" db:"date_created" firestore:"dateCreated"`
	DateCompleted  *time.Time `json:"dateCompleted,omitempty" db:"date_completed" firestore:"dateCompleted,omitempty"`
}

func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	if t.DateCompleted != nil {
		d := *t.DateCompleted
		c.DateCompleted = &d
	}
	return &c
}
