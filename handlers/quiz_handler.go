package handlers

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"insightQuestAPI/internal/types/quiz"
	"insightQuestAPI/services"
)

type QuizHandler struct {
	quizService *services.QuizService
	userService *services.UserService
}

func NewQuizHandler(quizService *services.QuizService, userService *services.UserService) *QuizHandler {
	return &QuizHandler{
		quizService: quizService,
		userService: userService,
	}
}

func (h *QuizHandler) StartQuiz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	sess, err := currentSession(ctx, h.userService)
	if err != nil {
		respondWithServiceError(w, "StartQuiz", err)
		return
	}

	view, err := h.quizService.Start(ctx, sess, mux.Vars(r)["taskID"])
	if err != nil {
		respondWithServiceError(w, "StartQuiz", err)
		return
	}

	respondWithJSON(w, http.StatusOK, view)
}

func (h *QuizHandler) GetQuiz(w http.ResponseWriter, r *http.Request) {
	sess, err := currentSession(r.Context(), h.userService)
	if err != nil {
		respondWithServiceError(w, "GetQuiz", err)
		return
	}

	view, err := h.quizService.View(sess, mux.Vars(r)["taskID"])
	if err != nil {
		respondWithServiceError(w, "GetQuiz", err)
		return
	}

	respondWithJSON(w, http.StatusOK, view)
}

func (h *QuizHandler) SelectOption(w http.ResponseWriter, r *http.Request) {
	sess, err := currentSession(r.Context(), h.userService)
	if err != nil {
		respondWithServiceError(w, "SelectOption", err)
		return
	}

	var req quiz.SelectOptionRequest
	if err := decodeRequest(r, &req); err != nil {
		respondWithServiceError(w, "SelectOption", err)
		return
	}

	view, err := h.quizService.Select(sess, mux.Vars(r)["taskID"], *req.Option)
	if err != nil {
		respondWithServiceError(w, "SelectOption", err)
		return
	}

	respondWithJSON(w, http.StatusOK, view)
}

func (h *QuizHandler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	sess, err := currentSession(r.Context(), h.userService)
	if err != nil {
		respondWithServiceError(w, "SubmitAnswer", err)
		return
	}

	result, err := h.quizService.Submit(sess, mux.Vars(r)["taskID"])
	if err != nil {
		respondWithServiceError(w, "SubmitAnswer", err)
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}

func (h *QuizHandler) NextQuestion(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	sess, err := currentSession(ctx, h.userService)
	if err != nil {
		respondWithServiceError(w, "NextQuestion", err)
		return
	}

	view, err := h.quizService.Next(ctx, sess, mux.Vars(r)["taskID"])
	if err != nil {
		respondWithQuizError(w, "NextQuestion", view, err)
		return
	}

	respondWithJSON(w, http.StatusOK, view)
}

func (h *QuizHandler) AbandonQuiz(w http.ResponseWriter, r *http.Request) {
	sess, err := currentSession(r.Context(), h.userService)
	if err != nil {
		respondWithServiceError(w, "AbandonQuiz", err)
		return
	}

	if err := h.quizService.Abandon(sess, mux.Vars(r)["taskID"]); err != nil {
		respondWithServiceError(w, "AbandonQuiz", err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Quiz closed"})
}

func (h *QuizHandler) GetAttempts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	sess, err := currentSession(ctx, h.userService)
	if err != nil {
		respondWithServiceError(w, "GetAttempts", err)
		return
	}

	attempts, err := h.quizService.Attempts(ctx, sess, mux.Vars(r)["taskID"])
	if err != nil {
		respondWithServiceError(w, "GetAttempts", err)
		return
	}

	respondWithJSON(w, http.StatusOK, attempts)
}

// quizErrorResponse carries the finished quiz next to the error, so a client
// whose passing attempt could not be credited still sees the outcome.
type quizErrorResponse struct {
	errorResponse
	Quiz *services.QuizView `json:"quiz,omitempty"`
}

func respondWithQuizError(w http.ResponseWriter, op string, view *services.QuizView, err error) {
	code, body := serviceError(op, err)
	respondWithJSON(w, code, quizErrorResponse{errorResponse: body, Quiz: view})
}
