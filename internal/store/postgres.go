package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"insightQuestAPI/internal/apperr"
	"insightQuestAPI/internal/types/chat"
	"insightQuestAPI/internal/types/quiz"
	"insightQuestAPI/internal/types/task"
	"insightQuestAPI/internal/types/user"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id              TEXT PRIMARY KEY,
	address         TEXT NOT NULL,
	clerk_id        TEXT NOT NULL DEFAULT '',
	username        TEXT NOT NULL DEFAULT '',
	avatar_url      TEXT NOT NULL DEFAULT '',
	xp              INTEGER NOT NULL DEFAULT 0 CHECK (xp >= 0),
	tokens          INTEGER NOT NULL DEFAULT 0 CHECK (tokens >= 0),
	login_streak    INTEGER NOT NULL DEFAULT 0,
	last_login      TEXT NOT NULL DEFAULT '',
	tasks_completed INTEGER NOT NULL DEFAULT 0,
	time_saved      INTEGER NOT NULL DEFAULT 0,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
ALTER TABLE users ADD COLUMN IF NOT EXISTS clerk_id TEXT NOT NULL DEFAULT '';

CREATE TABLE IF NOT EXISTS tasks (
	id               TEXT PRIMARY KEY,
	user_id          TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	title            TEXT NOT NULL,
	description      TEXT NOT NULL DEFAULT '',
	type             TEXT NOT NULL,
	status           TEXT NOT NULL,
	reward           INTEGER NOT NULL,
	xp_reward        INTEGER NOT NULL,
	url              TEXT NOT NULL DEFAULT '',
	shared_for_bonus BOOLEAN NOT NULL DEFAULT FALSE,
	date_created     TIMESTAMPTZ NOT NULL,
	date_completed   TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS idx_tasks_user ON tasks(user_id);

CREATE TABLE IF NOT EXISTS quiz_attempts (
	id              TEXT PRIMARY KEY,
	user_id         TEXT NOT NULL,
	task_id         TEXT NOT NULL,
	score           INTEGER NOT NULL,
	total_questions INTEGER NOT NULL,
	passed          BOOLEAN NOT NULL,
	attempt_number  INTEGER NOT NULL,
	timestamp       TIMESTAMPTZ NOT NULL,
	UNIQUE (user_id, task_id, attempt_number)
);

CREATE TABLE IF NOT EXISTS chat_messages (
	id        TEXT PRIMARY KEY,
	user_id   TEXT NOT NULL,
	sender    TEXT NOT NULL,
	content   TEXT NOT NULL,
	timestamp TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chat_messages_user ON chat_messages(user_id, timestamp);
`

type Postgres struct {
	db *pgxpool.Pool
}

// NewPostgres opens a pool with the same limits the API has always run with.
func NewPostgres(ctx context.Context, dbURL string) (*Postgres, error) {
	poolConfig, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Postgres{db: pool}, nil
}

func (s *Postgres) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

func (s *Postgres) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *Postgres) Close() {
	log.Println("Closing database connection pool...")
	s.db.Close()
}

func (s *Postgres) GetUser(ctx context.Context, id string) (*user.User, error) {
	query := `
	SELECT id, address, clerk_id, username, avatar_url, xp, tokens, login_streak, last_login,
		tasks_completed, time_saved, created_at, updated_at
	FROM users
	WHERE id = $1
	`

	u := &user.User{}
	err := s.db.QueryRow(ctx, query, id).Scan(
		&u.ID,
		&u.Address,
		&u.ClerkID,
		&u.Username,
		&u.AvatarURL,
		&u.XP,
		&u.Tokens,
		&u.LoginStreak,
		&u.LastLogin,
		&u.TasksCompleted,
		&u.TimeSaved,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", id, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return u, nil
}

func (s *Postgres) SaveUser(ctx context.Context, u *user.User) error {
	query := `
	INSERT INTO users (id, address, clerk_id, username, avatar_url, xp, tokens, login_streak, last_login,
		tasks_completed, time_saved, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	ON CONFLICT (id)
	DO UPDATE SET
		address = $2,
		clerk_id = $3,
		username = $4,
		avatar_url = $5,
		xp = $6,
		tokens = $7,
		login_streak = $8,
		last_login = $9,
		tasks_completed = $10,
		time_saved = $11,
		updated_at = $13
	`

	_, err := s.db.Exec(ctx, query,
		u.ID,
		u.Address,
		u.ClerkID,
		u.Username,
		u.AvatarURL,
		u.XP,
		u.Tokens,
		u.LoginStreak,
		u.LastLogin,
		u.TasksCompleted,
		u.TimeSaved,
		u.CreatedAt,
		u.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}

	return nil
}

func (s *Postgres) SaveTask(ctx context.Context, t *task.Task) error {
	query := `
	INSERT INTO tasks (id, user_id, title, description, type, status, reward, xp_reward, url,
		shared_for_bonus, date_created, date_completed)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	ON CONFLICT (id)
	DO UPDATE SET
		title = $3,
		description = $4,
		status = $6,
		reward = $7,
		xp_reward = $8,
		url = $9,
		shared_for_bonus = $10,
		date_completed = $12
	`

	_, err := s.db.Exec(ctx, query,
		t.ID,
		t.UserID,
		t.Title,
		t.Description,
		t.Type,
		t.Status,
		t.Reward,
		t.XPReward,
		t.URL,
		t.SharedForBonus,
		t.DateCreated,
		t.DateCompleted,
	)
	if err != nil {
		return fmt.Errorf("failed to save task: %w", err)
	}

	return nil
}

func (s *Postgres) GetTasks(ctx context.Context, userID string) ([]*task.Task, error) {
	query := `
	SELECT id, user_id, title, description, type, status, reward, xp_reward, url,
		shared_for_bonus, date_created, date_completed
	FROM tasks
	WHERE user_id = $1
	ORDER BY date_created ASC
	`

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tasks: %w", err)
	}
	defer rows.Close()

	tasks := []*task.Task{}
	for rows.Next() {
		t := &task.Task{}
		err := rows.Scan(
			&t.ID,
			&t.UserID,
			&t.Title,
			&t.Description,
			&t.Type,
			&t.Status,
			&t.Reward,
			&t.XPReward,
			&t.URL,
			&t.SharedForBonus,
			&t.DateCreated,
			&t.DateCompleted,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, t)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return tasks, nil
}

func (s *Postgres) DeleteTask(ctx context.Context, userID, taskID string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM tasks WHERE id = $1 AND user_id = $2`, taskID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return nil
}

func (s *Postgres) SaveQuizAttempt(ctx context.Context, a *quiz.Attempt) error {
	query := `
	INSERT INTO quiz_attempts (id, user_id, task_id, score, total_questions, passed, attempt_number, timestamp)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.db.Exec(ctx, query,
		a.ID,
		a.UserID,
		a.TaskID,
		a.Score,
		a.TotalQuestions,
		a.Passed,
		a.AttemptNumber,
		a.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to save quiz attempt: %w", err)
	}

	return nil
}

func (s *Postgres) GetQuizAttempts(ctx context.Context, userID, taskID string) ([]*quiz.Attempt, error) {
	query := `
	SELECT id, user_id, task_id, score, total_questions, passed, attempt_number, timestamp
	FROM quiz_attempts
	WHERE user_id = $1 AND task_id = $2
	ORDER BY timestamp DESC, attempt_number DESC
	`

	rows, err := s.db.Query(ctx, query, userID, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch quiz attempts: %w", err)
	}
	defer rows.Close()

	attempts := []*quiz.Attempt{}
	for rows.Next() {
		a := &quiz.Attempt{}
		err := rows.Scan(
			&a.ID,
			&a.UserID,
			&a.TaskID,
			&a.Score,
			&a.TotalQuestions,
			&a.Passed,
			&a.AttemptNumber,
			&a.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan quiz attempt: %w", err)
		}
		attempts = append(attempts, a)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return attempts, nil
}

func (s *Postgres) GetLatestQuizAttempt(ctx context.Context, userID, taskID string) (*quiz.Attempt, error) {
	query := `
	SELECT id, user_id, task_id, score, total_questions, passed, attempt_number, timestamp
	FROM quiz_attempts
	WHERE user_id = $1 AND task_id = $2
	ORDER BY timestamp DESC, attempt_number DESC
	LIMIT 1
	`

	a := &quiz.Attempt{}
	err := s.db.QueryRow(ctx, query, userID, taskID).Scan(
		&a.ID,
		&a.UserID,
		&a.TaskID,
		&a.Score,
		&a.TotalQuestions,
		&a.Passed,
		&a.AttemptNumber,
		&a.Timestamp,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest quiz attempt: %w", err)
	}

	return a, nil
}

func (s *Postgres) SaveChatMessage(ctx context.Context, m *chat.Message) error {
	query := `
	INSERT INTO chat_messages (id, user_id, sender, content, timestamp)
	VALUES ($1, $2, $3, $4, $5)
	`

	_, err := s.db.Exec(ctx, query, m.ID, m.UserID, m.Sender, m.Content, m.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to save chat message: %w", err)
	}
	return nil
}

func (s *Postgres) GetUserChatHistory(ctx context.Context, userID string) ([]*chat.Message, error) {
	query := `
	SELECT id, user_id, sender, content, timestamp
	FROM chat_messages
	WHERE user_id = $1
	ORDER BY timestamp ASC
	`

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch chat history: %w", err)
	}
	defer rows.Close()

	messages := []*chat.Message{}
	for rows.Next() {
		m := &chat.Message{}
		if err := rows.Scan(&m.ID, &m.UserID, &m.Sender, &m.Content, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan chat message: %w", err)
		}
		messages = append(messages, m)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return messages, nil
}
