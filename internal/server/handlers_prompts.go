package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"promptdesk/pkg/domain"
	"promptdesk/pkg/store"
)

type promptInput struct {
	Name      *string `json:"name"`
	Prompt    *string `json:"prompt"`
	IsDefault *bool   `json:"is_default"`
	Order     *int    `json:"order"`
	IsActive  *bool   `json:"is_active"`
	AITool    *string `json:"ai_tool"`
	UserID    *uint   `json:"user_id"`
}

// parsePromptInput accepts either a JSON body or a multipart form with an
// optional icon file.
func (s *Server) parsePromptInput(r *http.Request) (promptInput, string, error) {
	if !isMultipart(r) {
		var in promptInput
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&in); err != nil {
			return promptInput{}, "", err
		}
		return in, "", nil
	}
	if err := s.parseForm(r); err != nil {
		return promptInput{}, "", err
	}
	in := promptInput{
		Name:      formPtr(r, "name"),
		Prompt:    formPtr(r, "prompt"),
		IsDefault: formBoolPtr(r, "is_default"),
		Order:     formIntPtr(r, "order"),
		IsActive:  formBoolPtr(r, "is_active"),
		AITool:    formPtr(r, "ai_tool"),
		UserID:    formUintPtr(r, "user_id"),
	}
	iconURL, _, err := s.saveUpload(r, "icon")
	if err != nil {
		return promptInput{}, "", err
	}
	return in, iconURL, nil
}

func formBoolPtr(r *http.Request, key string) *bool {
	v, present := formValue(r, key)
	if !present {
		return nil
	}
	b := v == "true"
	return &b
}

func formIntPtr(r *http.Request, key string) *int {
	v, present := formValue(r, key)
	if !present {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil
	}
	return &n
}

func formUintPtr(r *http.Request, key string) *uint {
	v, present := formValue(r, key)
	if !present {
		return nil
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return nil
	}
	u := uint(n)
	return &u
}

func (s *Server) handlePrompts(w http.ResponseWriter, r *http.Request, userID uint) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreatePrompt(w, r, userID)
	case http.MethodGet:
		s.handleListPrompts(w, r, userID)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleCreatePrompt(w http.ResponseWriter, r *http.Request, userID uint) {
	in, iconURL, err := s.parsePromptInput(r)
	if err != nil {
		fail(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	prompt := domain.Prompt{
		Name:   strOr(in.Name, ""),
		Prompt: strOr(in.Prompt, ""),
		UserID: userID,
		Icon:   iconURL,
		AITool: domain.AITool(strOr(in.AITool, "")),
	}
	if in.IsDefault != nil {
		prompt.IsDefault = *in.IsDefault
	}
	if in.IsActive != nil {
		prompt.IsActive = *in.IsActive
	}
	if in.Order != nil {
		prompt.Order = *in.Order
	}
	if err := s.store.CreatePrompt(&prompt); err != nil {
		storeFail(w, r, err, "create", "prompt")
		return
	}
	ok(w, map[string]any{"prompt": prompt})
}

func (s *Server) handleListPrompts(w http.ResponseWriter, r *http.Request, userID uint) {
	prompts, pagination, err := s.store.ListPrompts(userID, parseListFilter(r))
	if err != nil {
		storeFail(w, r, err, "fetch", "prompts")
		return
	}
	ok(w, map[string]any{"prompts": prompts, "paginationData": pagination})
}

func (s *Server) handlePromptByID(w http.ResponseWriter, r *http.Request, userID uint) {
	id, found := parseID(r, "/api/prompts/")
	if !found {
		fail(w, http.StatusBadRequest, "Invalid prompt id.")
		return
	}
	switch r.Method {
	case http.MethodGet:
		s.handleGetPrompt(w, r, uint(id))
	case http.MethodPut:
		s.handleUpdatePrompt(w, r, uint(id))
	case http.MethodDelete:
		s.handleDeletePrompt(w, r, uint(id))
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleGetPrompt(w http.ResponseWriter, r *http.Request, id uint) {
	prompt, err := s.store.GetPromptByID(id)
	if errors.Is(err, store.ErrNotFound) {
		notFound(w, "Prompt", uint64(id))
		return
	}
	if err != nil {
		storeFail(w, r, err, "fetch", "prompt")
		return
	}
	ok(w, map[string]any{"prompt": prompt})
}

func (s *Server) handleUpdatePrompt(w http.ResponseWriter, r *http.Request, id uint) {
	prompt, err := s.store.GetPromptByID(id)
	if errors.Is(err, store.ErrNotFound) {
		notFound(w, "Prompt", uint64(id))
		return
	}
	if err != nil {
		storeFail(w, r, err, "update", "prompt")
		return
	}

	in, iconURL, err := s.parsePromptInput(r)
	if err != nil {
		fail(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	prompt.Name = strOr(in.Name, prompt.Name)
	prompt.Prompt = strOr(in.Prompt, prompt.Prompt)
	prompt.AITool = domain.AITool(strOr(in.AITool, string(prompt.AITool)))
	if in.UserID != nil && *in.UserID != 0 {
		prompt.UserID = *in.UserID
	}
	if in.IsDefault != nil {
		prompt.IsDefault = *in.IsDefault
	}
	if in.IsActive != nil {
		prompt.IsActive = *in.IsActive
	}
	if in.Order != nil {
		prompt.Order = *in.Order
	}
	if iconURL != "" {
		prompt.Icon = iconURL
	}

	if err := s.store.UpdatePrompt(&prompt); err != nil {
		storeFail(w, r, err, "update", "prompt")
		return
	}
	updated, err := s.store.GetPromptByID(id)
	if err != nil {
		storeFail(w, r, err, "update", "prompt")
		return
	}
	ok(w, map[string]any{"prompt": updated})
}

func (s *Server) handleDeletePrompt(w http.ResponseWriter, r *http.Request, id uint) {
	if err := s.store.DeletePrompt(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			notFound(w, "Prompt", uint64(id))
			return
		}
		storeFail(w, r, err, "delete", "prompt")
		return
	}
	ok(w, nil)
}
