package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"promptdesk/internal/app"
	"promptdesk/pkg/domain"
	"promptdesk/pkg/store"
)

type chatRequest struct {
	Message        string `json:"message"`
	HistoryID      uint   `json:"history_id"`
	AITool         string `json:"ai_tool"`
	CompanyName    string `json:"company_name"`
	CompanyWebsite string `json:"company_website"`
	PromptName     string `json:"prompt_name"`
}

type chatResponse struct {
	Reply     string `json:"reply"`
	Success   bool   `json:"success"`
	HistoryID *uint  `json:"history_id,omitempty"`
}

func (s *Server) handleChats(w http.ResponseWriter, r *http.Request, userID uint) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req chatRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		fail(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	result, err := s.dispatcher.Dispatch(r.Context(), app.DispatchInput{
		UserID:         userID,
		Message:        req.Message,
		HistoryID:      req.HistoryID,
		AITool:         domain.AITool(req.AITool),
		CompanyName:    req.CompanyName,
		CompanyWebsite: req.CompanyWebsite,
		PromptName:     req.PromptName,
	})
	if errors.Is(err, app.ErrMessageRequired) {
		fail(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		slog.Error("chat dispatch failed", "error", err, "user_id", userID)
		fail(w, http.StatusInternalServerError, "Failed to process chat message.")
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{
		Reply:     result.Reply,
		Success:   true,
		HistoryID: result.HistoryID,
	})
}

// handleChatHistory serves GET /api/chats/history/{historyId}, the ordered
// turns of one conversation thread.
func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request, userID uint) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	id, found := parseID(r, "/api/chats/history/")
	if !found {
		fail(w, http.StatusBadRequest, "Invalid history id.")
		return
	}
	history, err := s.store.GetHistoryByID(uint(id))
	if errors.Is(err, store.ErrNotFound) {
		notFound(w, "History", id)
		return
	}
	if err != nil {
		storeFail(w, r, err, "fetch", "chat history")
		return
	}
	chats := history.Chats
	if chats == nil {
		chats = []domain.Chat{}
	}
	ok(w, map[string]any{"chat_history": chats})
}
