package handlers

import (
	"context"
	"log"
	"net/http"

	"insightQuestAPI/internal/streak"
	"insightQuestAPI/internal/types/user"
	"insightQuestAPI/middleware"
	"insightQuestAPI/services"
)

type UserHandler struct {
	userService *services.UserService
}

func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

func (h *UserHandler) ConnectWallet(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	var req user.ConnectWalletRequest
	if err := decodeRequest(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "A valid wallet address is required")
		return
	}

	sess, err := h.userService.ConnectWallet(ctx, req.Address, middleware.GetClerkID(ctx))
	if err != nil {
		respondWithServiceError(w, "ConnectWallet", err)
		return
	}

	log.Printf("ConnectWallet Handler: Wallet %s connected", sess.UserID())

	profile, err := h.userService.Profile(sess)
	if err != nil {
		respondWithServiceError(w, "ConnectWallet", err)
		return
	}

	respondWithJSON(w, http.StatusOK, profile)
}

func (h *UserHandler) DisconnectWallet(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	sess, err := currentSession(ctx, h.userService)
	if err != nil {
		respondWithServiceError(w, "DisconnectWallet", err)
		return
	}

	h.userService.DisconnectWallet(sess.UserID())
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Wallet disconnected"})
}

func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	sess, err := currentSession(ctx, h.userService)
	if err != nil {
		respondWithServiceError(w, "GetProfile", err)
		return
	}

	profile, err := h.userService.Profile(sess)
	if err != nil {
		respondWithServiceError(w, "GetProfile", err)
		return
	}

	respondWithJSON(w, http.StatusOK, profile)
}

func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	sess, err := currentSession(ctx, h.userService)
	if err != nil {
		respondWithServiceError(w, "UpdateProfile", err)
		return
	}

	var req user.UpdateProfileRequest
	if err := decodeRequest(r, &req); err != nil {
		respondWithServiceError(w, "UpdateProfile", err)
		return
	}

	profile, err := h.userService.UpdateProfile(ctx, sess, &req)
	if err != nil {
		respondWithServiceError(w, "UpdateProfile", err)
		return
	}

	respondWithJSON(w, http.StatusOK, profile)
}

type dailyLoginResponse struct {
	Result  streak.Result `json:"result"`
	Profile *user.Profile `json:"profile"`
}

func (h *UserHandler) DailyLogin(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	sess, err := currentSession(ctx, h.userService)
	if err != nil {
		respondWithServiceError(w, "DailyLogin", err)
		return
	}

	result, err := h.userService.DailyLogin(ctx, sess)
	if err != nil {
		respondWithServiceError(w, "DailyLogin", err)
		return
	}

	profile, err := h.userService.Profile(sess)
	if err != nil {
		respondWithServiceError(w, "DailyLogin", err)
		return
	}

	respondWithJSON(w, http.StatusOK, dailyLoginResponse{Result: result, Profile: profile})
}
