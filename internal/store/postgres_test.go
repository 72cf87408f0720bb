package store

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insightQuestAPI/internal/apperr"
	"insightQuestAPI/internal/types/chat"
	"insightQuestAPI/internal/types/quiz"
	"insightQuestAPI/internal/types/task"
	"insightQuestAPI/internal/types/user"
)

// setupPostgres connects to TEST_DATABASE_URL and skips when it is unset.
func setupPostgres(t *testing.T) *Postgres {
	t.Helper()

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx := context.Background()
	pg, err := NewPostgres(ctx, dbURL)
	require.NoError(t, err)
	require.NoError(t, pg.Migrate(ctx))

	t.Cleanup(pg.Close)
	return pg
}

func cleanupUser(t *testing.T, pg *Postgres, userID string) {
	t.Cleanup(func() {
		ctx := context.Background()
		for _, q := range []string{
			"DELETE FROM chat_messages WHERE user_id = $1",
			"DELETE FROM quiz_attempts WHERE user_id = $1",
			"DELETE FROM users WHERE id = $1",
		} {
			if _, err := pg.db.Exec(ctx, q, userID); err != nil {
				t.Logf("Warning: failed to cleanup test data: %v", err)
			}
		}
	})
}

func TestPostgres_RoundTrip(t *testing.T) {
	pg := setupPostgres(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)
	userID := fmt.Sprintf("0xtest%d", now.UnixNano())
	cleanupUser(t, pg, userID)

	_, err := pg.GetUser(ctx, userID)
	require.ErrorIs(t, err, apperr.ErrNotFound)

	u := &user.User{ID: userID, Address: userID, ClerkID: "user_roundtrip", XP: 150, Tokens: 20, LastLogin: "2024-03-01", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, pg.SaveUser(ctx, u))
	u.XP = 250
	require.NoError(t, pg.SaveUser(ctx, u))

	got, err := pg.GetUser(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 250, got.XP)
	assert.Equal(t, "user_roundtrip", got.ClerkID)
	assert.Equal(t, "2024-03-01", got.LastLogin)

	tk := &task.Task{ID: userID + "-t1", UserID: userID, Title: "Trees", Type: task.TypeLeetcode, Status: task.StatusPending, Reward: 10, XPReward: 100, DateCreated: now}
	require.NoError(t, pg.SaveTask(ctx, tk))
	tk.Status = task.StatusCompleted
	tk.DateCompleted = &now
	require.NoError(t, pg.SaveTask(ctx, tk))

	tasks, err := pg.GetTasks(ctx, userID)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, task.StatusCompleted, tasks[0].Status)
	require.NotNil(t, tasks[0].DateCompleted)

	for n := 1; n <= 2; n++ {
		require.NoError(t, pg.SaveQuizAttempt(ctx, &quiz.Attempt{
			ID: fmt.Sprintf("%s-a%d", userID, n), UserID: userID, TaskID: tk.ID,
			Score: n + 1, TotalQuestions: 5, Passed: n+1 >= 3, AttemptNumber: n, Timestamp: now,
		}))
	}
	latest, err := pg.GetLatestQuizAttempt(ctx, userID, tk.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, latest.AttemptNumber)
	assert.True(t, latest.Passed)

	require.NoError(t, pg.SaveChatMessage(ctx, &chat.Message{ID: userID + "-m1", UserID: userID, Sender: chat.SenderUser, Content: "hi", Timestamp: now}))
	history, err := pg.GetUserChatHistory(ctx, userID)
	require.NoError(t, err)
	require.Len(t, history, 1)

	require.NoError(t, pg.DeleteTask(ctx, userID, tk.ID))
	require.NoError(t, pg.DeleteTask(ctx, userID, tk.ID))
	tasks, err = pg.GetTasks(ctx, userID)
	require.NoError(t, err)
	assert.Empty(t, tasks)
}
