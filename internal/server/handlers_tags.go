package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"promptdesk/pkg/domain"
	"promptdesk/pkg/store"
)

type tagInput struct {
	Name *string `json:"name"`
}

func (s *Server) handleTags(w http.ResponseWriter, r *http.Request, userID uint) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateTag(w, r)
	case http.MethodGet:
		s.handleListTags(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleCreateTag(w http.ResponseWriter, r *http.Request) {
	var in tagInput
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&in); err != nil {
		fail(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	tag := domain.Tag{Name: strOr(in.Name, "")}
	if err := s.store.CreateTag(&tag); err != nil {
		storeFail(w, r, err, "create", "tag")
		return
	}
	ok(w, map[string]any{"tag": tag})
}

func (s *Server) handleListTags(w http.ResponseWriter, r *http.Request) {
	tags, pagination, err := s.store.ListTags(parseListFilter(r))
	if err != nil {
		storeFail(w, r, err, "fetch", "tags")
		return
	}
	ok(w, map[string]any{"tags": tags, "paginationData": pagination})
}

func (s *Server) handleTagByID(w http.ResponseWriter, r *http.Request, userID uint) {
	id, found := parseID(r, "/api/tags/")
	if !found {
		fail(w, http.StatusBadRequest, "Invalid tag id.")
		return
	}
	switch r.Method {
	case http.MethodGet:
		s.handleGetTag(w, r, uint(id))
	case http.MethodPut:
		s.handleUpdateTag(w, r, uint(id))
	case http.MethodDelete:
		s.handleDeleteTag(w, r, uint(id))
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleGetTag(w http.ResponseWriter, r *http.Request, id uint) {
	tag, err := s.store.GetTagByID(id)
	if errors.Is(err, store.ErrNotFound) {
		notFound(w, "Tag", uint64(id))
		return
	}
	if err != nil {
		storeFail(w, r, err, "fetch", "tag")
		return
	}
	ok(w, map[string]any{"tag": tag})
}

func (s *Server) handleUpdateTag(w http.ResponseWriter, r *http.Request, id uint) {
	tag, err := s.store.GetTagByID(id)
	if errors.Is(err, store.ErrNotFound) {
		notFound(w, "Tag", uint64(id))
		return
	}
	if err != nil {
		storeFail(w, r, err, "update", "tag")
		return
	}

	var in tagInput
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&in); err != nil {
		fail(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	tag.Name = strOr(in.Name, tag.Name)

	if err := s.store.UpdateTag(&tag); err != nil {
		storeFail(w, r, err, "update", "tag")
		return
	}
	ok(w, map[string]any{"tag": tag})
}

func (s *Server) handleDeleteTag(w http.ResponseWriter, r *http.Request, id uint) {
	if err := s.store.DeleteTag(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			notFound(w, "Tag", uint64(id))
			return
		}
		storeFail(w, r, err, "delete", "tag")
		return
	}
	ok(w, nil)
}
