package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"insightQuestAPI/internal/apperr"
	quizengine "insightQuestAPI/internal/quiz"
	"insightQuestAPI/middleware"
	"insightQuestAPI/services"
)

const requestTimeout = 5 * time.Second

var validate = validator.New()

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

type errorResponse struct {
	Error     string `json:"error"`
	Retryable bool   `json:"retryable,omitempty"`
}

// respondWithServiceError maps service errors onto HTTP statuses.
func respondWithServiceError(w http.ResponseWriter, op string, err error) {
	code, body := serviceError(op, err)
	respondWithJSON(w, code, body)
}

func serviceError(op string, err error) (int, errorResponse) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, apperr.ErrInvalidArgument):
		code = http.StatusBadRequest
	case errors.Is(err, apperr.ErrUnauthenticated):
		code = http.StatusUnauthorized
	case errors.Is(err, apperr.ErrForbidden):
		code = http.StatusForbidden
	case errors.Is(err, apperr.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, apperr.ErrVerificationFailed):
		code = http.StatusUnprocessableEntity
	case errors.Is(err, apperr.ErrInvalidTransition),
		errors.Is(err, apperr.ErrMaxAttemptsExceeded),
		errors.Is(err, quizengine.ErrNoSelection),
		errors.Is(err, quizengine.ErrAnswerLocked),
		errors.Is(err, quizengine.ErrNotSubmitted),
		errors.Is(err, quizengine.ErrSessionFinished):
		code = http.StatusConflict
	case errors.Is(err, apperr.ErrPersistence):
		code = http.StatusServiceUnavailable
	}

	message := err.Error()
	if code == http.StatusInternalServerError {
		log.Printf("%s: %v", op, err)
		message = "Internal server error"
	}

	return code, errorResponse{Error: message, Retryable: apperr.Retryable(err)}
}

// decodeRequest reads a JSON body into dst and validates its tags.
func decodeRequest(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid request body", apperr.ErrInvalidArgument)
	}
	if err := validate.Struct(dst); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrInvalidArgument, err)
	}
	return nil
}

// currentSession resolves the wallet placed in the context by the auth
// middleware, checked against the token subject when there is one.
func currentSession(ctx context.Context, users *services.UserService) (*services.Session, error) {
	address, ok := middleware.GetWalletAddress(ctx)
	if !ok {
		return nil, apperr.ErrUnauthenticated
	}
	return users.Session(ctx, address, middleware.GetClerkID(ctx))
}
