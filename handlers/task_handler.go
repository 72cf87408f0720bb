package handlers

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"insightQuestAPI/internal/types/task"
	"insightQuestAPI/services"
)

type TaskHandler struct {
	taskService *services.TaskService
	userService *services.UserService
}

func NewTaskHandler(taskService *services.TaskService, userService *services.UserService) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
		userService: userService,
	}
}

func (h *TaskHandler) GetTasks(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	sess, err := currentSession(ctx, h.userService)
	if err != nil {
		respondWithServiceError(w, "GetTasks", err)
		return
	}

	tasks, err := h.taskService.List(ctx, sess)
	if err != nil {
		respondWithServiceError(w, "GetTasks", err)
		return
	}

	respondWithJSON(w, http.StatusOK, tasks)
}

func (h *TaskHandler) GetBoard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	sess, err := currentSession(ctx, h.userService)
	if err != nil {
		respondWithServiceError(w, "GetBoard", err)
		return
	}

	board, err := h.taskService.Board(ctx, sess)
	if err != nil {
		respondWithServiceError(w, "GetBoard", err)
		return
	}

	respondWithJSON(w, http.StatusOK, board)
}

func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	sess, err := currentSession(ctx, h.userService)
	if err != nil {
		respondWithServiceError(w, "CreateTask", err)
		return
	}

	var req task.CreateTaskRequest
	if err := decodeRequest(r, &req); err != nil {
		respondWithServiceError(w, "CreateTask", err)
		return
	}

	created, err := h.taskService.Create(ctx, sess, &req)
	if err != nil {
		respondWithServiceError(w, "CreateTask", err)
		return
	}

	respondWithJSON(w, http.StatusCreated, created)
}

func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	h.withTask(w, r, "GetTask", h.taskService.Get)
}

func (h *TaskHandler) CompleteTask(w http.ResponseWriter, r *http.Request) {
	h.withTask(w, r, "CompleteTask", h.taskService.Complete)
}

func (h *TaskHandler) VerifyTask(w http.ResponseWriter, r *http.Request) {
	h.withTask(w, r, "VerifyTask", h.taskService.Verify)
}

func (h *TaskHandler) ShareTask(w http.ResponseWriter, r *http.Request) {
	h.withTask(w, r, "ShareTask", h.taskService.Share)
}

func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	sess, err := currentSession(ctx, h.userService)
	if err != nil {
		respondWithServiceError(w, "DeleteTask", err)
		return
	}

	if err := h.taskService.Delete(ctx, sess, mux.Vars(r)["taskID"]); err != nil {
		respondWithServiceError(w, "DeleteTask", err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Task deleted"})
}

type taskOp func(ctx context.Context, sess *services.Session, taskID string) (*task.Task, error)

func (h *TaskHandler) withTask(w http.ResponseWriter, r *http.Request, name string, op taskOp) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	sess, err := currentSession(ctx, h.userService)
	if err != nil {
		respondWithServiceError(w, name, err)
		return
	}

	t, err := op(ctx, sess, mux.Vars(r)["taskID"])
	if err != nil {
		respondWithServiceError(w, name, err)
		return
	}

	respondWithJSON(w, http.StatusOK, t)
}
