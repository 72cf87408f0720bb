package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"insightQuestAPI/internal/guard"
	"insightQuestAPI/internal/notification"
	quizengine "insightQuestAPI/internal/quiz"
	"insightQuestAPI/internal/store"
	"insightQuestAPI/internal/streak"
	"insightQuestAPI/internal/types/chat"
	"insightQuestAPI/internal/types/task"
	"insightQuestAPI/internal/types/user"
	"insightQuestAPI/internal/verify"
	"insightQuestAPI/middleware"
	"insightQuestAPI/services"
)

const testWallet = "0x52908400098527886E0F7030069857D2E4169EE7"

type testAPI struct {
	users *UserHandler
	tasks *TaskHandler
	quiz  *QuizHandler
	chat  *ChatHandler
}

func newTestAPI(verifier verify.Verifier) *testAPI {
	mem := store.NewMemory()
	userService := services.NewUserService(mem, guard.NewMemory(), notification.LogNotifier{})
	taskService := services.NewTaskService(mem, mem, verifier, userService)
	quizService := services.NewQuizService(quizengine.NewEngine(mem, rand.New(rand.NewSource(3))), taskService)
	chatService := services.NewChatService(mem)

	return &testAPI{
		users: NewUserHandler(userService),
		tasks: NewTaskHandler(taskService, userService),
		quiz:  NewQuizHandler(quizService, userService),
		chat:  NewChatHandler(chatService, userService),
	}
}

// request builds a request as the auth middleware would hand it over.
func request(t *testing.T, method, path string, body interface{}, vars map[string]string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	ctx := context.WithValue(req.Context(), middleware.WalletAddressKey, testWallet)
	req = req.WithContext(ctx)
	if vars != nil {
		req = mux.SetURLVars(req, vars)
	}
	return req
}

func (api *testAPI) connect(t *testing.T) {
	t.Helper()
	rr := httptest.NewRecorder()
	api.users.ConnectWallet(rr, request(t, http.MethodPost, "/api/v1/wallet/connect", user.ConnectWalletRequest{Address: testWallet}, nil))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
}

func (api *testAPI) createTask(t *testing.T, body map[string]interface{}) task.Task {
	t.Helper()
	rr := httptest.NewRecorder()
	api.tasks.CreateTask(rr, request(t, http.MethodPost, "/api/v1/tasks", body, nil))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var created task.Task
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	return created
}

func TestConnectWallet_CreatesProfile(t *testing.T) {
	api := newTestAPI(verify.Always)

	rr := httptest.NewRecorder()
	api.users.ConnectWallet(rr, request(t, http.MethodPost, "/api/v1/wallet/connect", user.ConnectWalletRequest{Address: testWallet}, nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var profile map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &profile))
	assert.Equal(t, "0x52908400098527886e0f7030069857d2e4169ee7", profile["id"])
	assert.Equal(t, float64(1), profile["level"])
	assert.Equal(t, "Spark", profile["stage"])
	assert.Equal(t, float64(0), profile["tokensEarned"])
}

func TestConnectWallet_RejectsBadAddress(t *testing.T) {
	api := newTestAPI(verify.Always)

	rr := httptest.NewRecorder()
	api.users.ConnectWallet(rr, request(t, http.MethodPost, "/api/v1/wallet/connect", user.ConnectWalletRequest{Address: "not-a-wallet"}, nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

// asAccount marks req as carrying a verified token for subject.
func asAccount(req *http.Request, subject string) *http.Request {
	return req.WithContext(context.WithValue(req.Context(), middleware.ClerkIDKey, subject))
}

func TestWalletBoundToAccount(t *testing.T) {
	api := newTestAPI(verify.Always)

	rr := httptest.NewRecorder()
	api.users.ConnectWallet(rr, asAccount(request(t, http.MethodPost, "/api/v1/wallet/connect", user.ConnectWalletRequest{Address: testWallet}, nil), "user_alice"))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = httptest.NewRecorder()
	api.users.GetProfile(rr, asAccount(request(t, http.MethodGet, "/api/v1/user", nil, nil), "user_alice"))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	api.users.DailyLogin(rr, asAccount(request(t, http.MethodPost, "/api/v1/user/daily-login", nil, nil), "user_mallory"))
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = httptest.NewRecorder()
	api.users.ConnectWallet(rr, asAccount(request(t, http.MethodPost, "/api/v1/wallet/connect", user.ConnectWalletRequest{Address: testWallet}, nil), "user_mallory"))
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestGetProfile_Unauthenticated(t *testing.T) {
	api := newTestAPI(verify.Always)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/user", nil)
	rr := httptest.NewRecorder()
	api.users.GetProfile(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	// A wallet that never connected is not a session either.
	rr = httptest.NewRecorder()
	api.users.GetProfile(rr, request(t, http.MethodGet, "/api/v1/user", nil, nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestDailyLogin_Handler(t *testing.T) {
	api := newTestAPI(verify.Always)
	api.connect(t)

	rr := httptest.NewRecorder()
	api.users.DailyLogin(rr, request(t, http.MethodPost, "/api/v1/user/daily-login", nil, nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Result  streak.Result `json:"result"`
		Profile struct {
			XP          int `json:"xp"`
			LoginStreak int `json:"loginStreak"`
		} `json:"profile"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.True(t, resp.Result.Granted)
	assert.Equal(t, 100, resp.Profile.XP)
	assert.Equal(t, 1, resp.Profile.LoginStreak)

	rr = httptest.NewRecorder()
	api.users.DailyLogin(rr, request(t, http.MethodPost, "/api/v1/user/daily-login", nil, nil))
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.False(t, resp.Result.Granted)
	assert.Equal(t, 100, resp.Profile.XP)
}

func TestTaskHandlers_Lifecycle(t *testing.T) {
	api := newTestAPI(verify.Always)
	api.connect(t)

	created := api.createTask(t, map[string]interface{}{
		"title": "Blockchain basics", "type": "video", "reward": 20, "xpReward": 150,
	})
	assert.Equal(t, task.StatusPending, created.Status)
	vars := map[string]string{"taskID": created.ID}

	rr := httptest.NewRecorder()
	api.tasks.VerifyTask(rr, request(t, http.MethodPost, "/api/v1/tasks/"+created.ID+"/verify", nil, vars))
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = httptest.NewRecorder()
	api.tasks.CompleteTask(rr, request(t, http.MethodPost, "/api/v1/tasks/"+created.ID+"/complete", nil, vars))
	require.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	api.tasks.VerifyTask(rr, request(t, http.MethodPost, "/api/v1/tasks/"+created.ID+"/verify", nil, vars))
	require.Equal(t, http.StatusOK, rr.Code)

	var verified task.Task
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &verified))
	assert.Equal(t, task.StatusVerified, verified.Status)

	rr = httptest.NewRecorder()
	api.users.GetProfile(rr, request(t, http.MethodGet, "/api/v1/user", nil, nil))
	var profile map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &profile))
	assert.Equal(t, float64(20), profile["tokensEarned"])
	assert.Equal(t, float64(150), profile["xp"])
	assert.Equal(t, float64(2), profile["level"])

	rr = httptest.NewRecorder()
	api.tasks.DeleteTask(rr, request(t, http.MethodDelete, "/api/v1/tasks/"+created.ID, nil, vars))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	api.tasks.GetTask(rr, request(t, http.MethodGet, "/api/v1/tasks/"+created.ID, nil, vars))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCreateTask_Validation(t *testing.T) {
	api := newTestAPI(verify.Always)
	api.connect(t)

	rr := httptest.NewRecorder()
	api.tasks.CreateTask(rr, request(t, http.MethodPost, "/api/v1/tasks", map[string]interface{}{"title": "x", "type": "podcast"}, nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = httptest.NewRecorder()
	api.tasks.CreateTask(rr, request(t, http.MethodPost, "/api/v1/tasks", map[string]interface{}{"type": "video"}, nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	created := api.createTask(t, map[string]interface{}{"title": "Course", "type": "course"})
	assert.Equal(t, task.DefaultReward, created.Reward)
	assert.Equal(t, task.DefaultXPReward, created.XPReward)
}

func TestVerifyTask_RejectedIsRetryable(t *testing.T) {
	reject := verify.Func(func(context.Context, *task.Task) (bool, error) { return false, nil })
	api := newTestAPI(reject)
	api.connect(t)

	created := api.createTask(t, map[string]interface{}{"title": "Course", "type": "course"})
	vars := map[string]string{"taskID": created.ID}

	rr := httptest.NewRecorder()
	api.tasks.CompleteTask(rr, request(t, http.MethodPost, "/", nil, vars))
	require.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	api.tasks.VerifyTask(rr, request(t, http.MethodPost, "/", nil, vars))
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.True(t, resp.Retryable)
}

func TestQuizHandlers(t *testing.T) {
	api := newTestAPI(nil)
	api.connect(t)

	created := api.createTask(t, map[string]interface{}{"title": "Python for finance", "type": "course"})
	vars := map[string]string{"taskID": created.ID}

	rr := httptest.NewRecorder()
	api.quiz.StartQuiz(rr, request(t, http.MethodPost, "/", nil, vars))
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = httptest.NewRecorder()
	api.tasks.CompleteTask(rr, request(t, http.MethodPost, "/", nil, vars))
	require.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	api.quiz.StartQuiz(rr, request(t, http.MethodPost, "/", nil, vars))
	require.Equal(t, http.StatusOK, rr.Code)

	var view map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &view))
	assert.Equal(t, "in_progress", view["state"])
	assert.Equal(t, float64(5), view["total"])
	question := view["question"].(map[string]interface{})
	assert.NotContains(t, question, "correctAnswer")

	rr = httptest.NewRecorder()
	api.quiz.SubmitAnswer(rr, request(t, http.MethodPost, "/", nil, vars))
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = httptest.NewRecorder()
	api.quiz.SelectOption(rr, request(t, http.MethodPost, "/", map[string]int{"option": 99}, vars))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = httptest.NewRecorder()
	api.quiz.SelectOption(rr, request(t, http.MethodPost, "/", map[string]int{"option": 0}, vars))
	require.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	api.quiz.SubmitAnswer(rr, request(t, http.MethodPost, "/", nil, vars))
	require.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	api.quiz.NextQuestion(rr, request(t, http.MethodPost, "/", nil, vars))
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &view))
	assert.Equal(t, float64(1), view["index"])

	rr = httptest.NewRecorder()
	api.quiz.AbandonQuiz(rr, request(t, http.MethodDelete, "/", nil, vars))
	require.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	api.quiz.GetQuiz(rr, request(t, http.MethodGet, "/", nil, vars))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = httptest.NewRecorder()
	api.quiz.GetAttempts(rr, request(t, http.MethodGet, "/", nil, vars))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, "[]", rr.Body.String())
}

func TestChatHandlers(t *testing.T) {
	api := newTestAPI(verify.Always)
	api.connect(t)

	rr := httptest.NewRecorder()
	api.chat.SaveMessage(rr, request(t, http.MethodPost, "/api/v1/chat", chat.SaveMessageRequest{Sender: chat.SenderUser, Content: "How do I start?"}, nil))
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = httptest.NewRecorder()
	api.chat.SaveMessage(rr, request(t, http.MethodPost, "/api/v1/chat", map[string]string{"sender": "bot", "content": "x"}, nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = httptest.NewRecorder()
	api.chat.GetHistory(rr, request(t, http.MethodGet, "/api/v1/chat", nil, nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var history []chat.Message
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &history))
	require.Len(t, history, 1)
	assert.Equal(t, "How do I start?", history[0].Content)
}
