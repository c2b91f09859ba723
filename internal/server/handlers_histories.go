package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"promptdesk/pkg/domain"
	"promptdesk/pkg/store"
)

type historyInput struct {
	Name   *string `json:"name"`
	UserID *uint   `json:"user_id"`
}

func (s *Server) handleHistories(w http.ResponseWriter, r *http.Request, userID uint) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateHistory(w, r, userID)
	case http.MethodGet:
		s.handleListHistories(w, r, userID)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleCreateHistory(w http.ResponseWriter, r *http.Request, userID uint) {
	var in historyInput
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&in); err != nil {
		fail(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	history := domain.History{
		Name:   strOr(in.Name, ""),
		UserID: userID,
	}
	if in.UserID != nil && *in.UserID != 0 {
		history.UserID = *in.UserID
	}
	if err := s.store.CreateHistory(&history); err != nil {
		storeFail(w, r, err, "create", "history")
		return
	}
	ok(w, map[string]any{"history": history})
}

func (s *Server) handleListHistories(w http.ResponseWriter, r *http.Request, userID uint) {
	histories, pagination, err := s.store.ListHistories(userID, parseListFilter(r))
	if err != nil {
		storeFail(w, r, err, "fetch", "histories")
		return
	}
	ok(w, map[string]any{"histories": histories, "paginationData": pagination})
}

func (s *Server) handleHistoryByID(w http.ResponseWriter, r *http.Request, userID uint) {
	id, found := parseID(r, "/api/history/")
	if !found {
		fail(w, http.StatusBadRequest, "Invalid history id.")
		return
	}
	switch r.Method {
	case http.MethodGet:
		s.handleGetHistory(w, r, uint(id))
	case http.MethodPut:
		s.handleUpdateHistory(w, r, uint(id))
	case http.MethodDelete:
		s.handleDeleteHistory(w, r, uint(id))
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request, id uint) {
	history, err := s.store.GetHistoryByID(id)
	if errors.Is(err, store.ErrNotFound) {
		notFound(w, "History", uint64(id))
		return
	}
	if err != nil {
		storeFail(w, r, err, "fetch", "history")
		return
	}
	ok(w, map[string]any{"history": history})
}

func (s *Server) handleUpdateHistory(w http.ResponseWriter, r *http.Request, id uint) {
	history, err := s.store.GetHistoryByID(id)
	if errors.Is(err, store.ErrNotFound) {
		notFound(w, "History", uint64(id))
		return
	}
	if err != nil {
		storeFail(w, r, err, "update", "history")
		return
	}

	var in historyInput
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&in); err != nil {
		fail(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	history.Name = strOr(in.Name, history.Name)
	if in.UserID != nil && *in.UserID != 0 {
		history.UserID = *in.UserID
	}

	if err := s.store.UpdateHistory(&history); err != nil {
		storeFail(w, r, err, "update", "history")
		return
	}
	updated, err := s.store.GetHistoryByID(id)
	if err != nil {
		storeFail(w, r, err, "update", "history")
		return
	}
	ok(w, map[string]any{"history": updated})
}

func (s *Server) handleDeleteHistory(w http.ResponseWriter, r *http.Request, id uint) {
	if err := s.store.DeleteHistory(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			notFound(w, "History", uint64(id))
			return
		}
		storeFail(w, r, err, "delete", "history")
		return
	}
	ok(w, nil)
}
