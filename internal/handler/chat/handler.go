// Package chat exposes the conversation service over HTTP.
package chat

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	chatService "github.com/ruchitha1109/MechanicAI-2/internal/service/chat"
	"github.com/ruchitha1109/MechanicAI-2/internal/service/generation"
	"github.com/ruchitha1109/MechanicAI-2/internal/store"
	"github.com/ruchitha1109/MechanicAI-2/pkg/utils"
)

// Handler maps chat routes onto the conversation service.
type Handler struct {
	chatSvc *chatService.Service
}

// New creates the chat handler.
func New(chatSvc *chatService.Service) *Handler {
	return &Handler{chatSvc: chatSvc}
}

// RegisterRoutes mounts the chat endpoints.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/session", h.handleCreateSession)
	r.Post("/messages", h.handleAddMessage)
	r.Post("/history", h.handleGetHistory)
	r.Post("/chats", h.handleGetChats)
	r.Patch("/title", h.handleRenameTitle)
	r.Delete("/chat", h.handleDeleteChat)
}

// Known generation extras keep the field names the frontend already expects.
var extraKeyAliases = map[string]string{
	"replacement_parts": "replacementParts",
	"car_model":         "carModel",
}

func mergeExtras(body map[string]any, extra map[string]any) {
	for key, value := range extra {
		if alias, ok := extraKeyAliases[key]; ok {
			key = alias
		}
		if _, taken := body[key]; !taken {
			body[key] = value
		}
	}
}

// handleCreateSession starts a new chat from the user's first message.
func (h *Handler) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		UserID  string `json:"userId"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.chatSvc.CreateSession(r.Context(), payload.UserID, payload.Message)
	if err != nil {
		h.respondTurnFailure(w, result, err)
		return
	}

	body := map[string]any{
		"success":   true,
		"sessionId": result.SessionID,
		"response":  result.Reply,
		"message":   "New chat session created",
	}
	mergeExtras(body, result.Extra)
	utils.RespondJSON(w, http.StatusCreated, body)
}

// handleAddMessage continues an existing chat.
func (h *Handler) handleAddMessage(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		UserID    string `json:"userId"`
		SessionID string `json:"sessionId"`
		Message   string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.chatSvc.ContinueSession(r.Context(), payload.UserID, payload.SessionID, payload.Message)
	if err != nil {
		h.respondTurnFailure(w, result, err)
		return
	}

	body := map[string]any{
		"success":  true,
		"response": result.Reply,
		"message":  "Messages added successfully",
	}
	mergeExtras(body, result.Extra)
	utils.RespondJSON(w, http.StatusOK, body)
}

// respondTurnFailure renders the structured failure of a turn operation.
// The session identifier is included whenever one exists so the client can
// retry in-session.
func (h *Handler) respondTurnFailure(w http.ResponseWriter, result *chatService.TurnResult, err error) {
	switch {
	case errors.Is(err, chatService.ErrInvalidInput):
		utils.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrSessionNotFound):
		utils.RespondError(w, http.StatusNotFound, "Chat not found")
	case errors.Is(err, generation.ErrUnavailable):
		body := map[string]any{
			"success":  false,
			"response": chatService.FallbackReply,
			"error":    "Failed to generate response",
		}
		if result != nil && result.SessionID != "" {
			body["sessionId"] = result.SessionID
		}
		utils.RespondJSON(w, http.StatusNotImplemented, body)
	default:
		body := map[string]any{
			"success":  false,
			"response": chatService.FallbackReply,
			"error":    "Failed to save the message",
		}
		if result != nil && result.SessionID != "" {
			body["sessionId"] = result.SessionID
		}
		utils.RespondJSON(w, http.StatusInternalServerError, body)
	}
}

// handleGetHistory returns a session's transcript.
func (h *Handler) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		UserID    string `json:"userId"`
		SessionID string `json:"sessionId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	turns, err := h.chatSvc.GetHistory(r.Context(), payload.UserID, payload.SessionID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"conversation": turns,
	})
}

// handleGetChats returns one page of the user's sessions.
func (h *Handler) handleGetChats(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		UserID string `json:"userId"`
		Offset int    `json:"offset"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	page, err := h.chatSvc.ListChats(r.Context(), payload.UserID, payload.Offset)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"chatList": page.Chats,
		"offset":   page.NextOffset,
	})
}

// handleRenameTitle changes a session's title.
func (h *Handler) handleRenameTitle(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		UserID    string `json:"userId"`
		SessionID string `json:"sessionId"`
		Title     string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.chatSvc.RenameSession(r.Context(), payload.UserID, payload.SessionID, payload.Title); err != nil {
		h.respondServiceError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"title":   payload.Title,
	})
}

// handleDeleteChat permanently removes a session.
func (h *Handler) handleDeleteChat(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		UserID    string `json:"userId"`
		SessionID string `json:"sessionId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.chatSvc.DeleteSession(r.Context(), payload.UserID, payload.SessionID); err != nil {
		h.respondServiceError(w, err)
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chatService.ErrInvalidInput):
		utils.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, store.ErrSessionNotFound):
		utils.RespondError(w, http.StatusNotFound, "Chat not found")
	default:
		utils.RespondError(w, http.StatusInternalServerError, "internal error")
	}
}
