package handlers

import (
	"context"
	"net/http"

	"insightQuestAPI/internal/types/chat"
	"insightQuestAPI/services"
)

type ChatHandler struct {
	chatService *services.ChatService
	userService *services.UserService
}

func NewChatHandler(chatService *services.ChatService, userService *services.UserService) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		userService: userService,
	}
}

func (h *ChatHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	sess, err := currentSession(ctx, h.userService)
	if err != nil {
		respondWithServiceError(w, "GetChatHistory", err)
		return
	}

	history, err := h.chatService.History(ctx, sess)
	if err != nil {
		respondWithServiceError(w, "GetChatHistory", err)
		return
	}

	respondWithJSON(w, http.StatusOK, history)
}

func (h *ChatHandler) SaveMessage(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	sess, err := currentSession(ctx, h.userService)
	if err != nil {
		respondWithServiceError(w, "SaveChatMessage", err)
		return
	}

	var req chat.SaveMessageRequest
	if err := decodeRequest(r, &req); err != nil {
		respondWithServiceError(w, "SaveChatMessage", err)
		return
	}

	msg, err := h.chatService.SaveMessage(ctx, sess, &req)
	if err != nil {
		respondWithServiceError(w, "SaveChatMessage", err)
		return
	}

	respondWithJSON(w, http.StatusCreated, msg)
}
