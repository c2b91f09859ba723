package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"promptdesk/pkg/domain"
	"promptdesk/pkg/store"
)

type settingInput struct {
	ServiceName *string `json:"service_name"`
	APIKey      *string `json:"api_key"`
	APISecret   *string `json:"api_secret"`
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request, userID uint) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateSetting(w, r, userID)
	case http.MethodGet:
		s.handleListSettings(w, r, userID)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleCreateSetting(w http.ResponseWriter, r *http.Request, userID uint) {
	var in settingInput
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&in); err != nil {
		fail(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	setting := domain.Setting{
		ServiceName: strOr(in.ServiceName, ""),
		APIKey:      strOr(in.APIKey, ""),
		APISecret:   strOr(in.APISecret, ""),
		UserID:      userID,
	}
	if err := s.store.CreateSetting(&setting); err != nil {
		storeFail(w, r, err, "create", "setting")
		return
	}
	ok(w, map[string]any{"setting": setting})
}

func (s *Server) handleListSettings(w http.ResponseWriter, r *http.Request, userID uint) {
	settings, pagination, err := s.store.ListSettings(userID, parseListFilter(r))
	if err != nil {
		storeFail(w, r, err, "fetch", "settings")
		return
	}
	ok(w, map[string]any{"settings": settings, "paginationData": pagination})
}

func (s *Server) handleSettingByID(w http.ResponseWriter, r *http.Request, userID uint) {
	id, found := parseID(r, "/api/settings/")
	if !found {
		fail(w, http.StatusBadRequest, "Invalid setting id.")
		return
	}
	switch r.Method {
	case http.MethodGet:
		s.handleGetSetting(w, r, uint(id))
	case http.MethodPut:
		s.handleUpdateSetting(w, r, uint(id))
	case http.MethodDelete:
		s.handleDeleteSetting(w, r, uint(id))
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleGetSetting(w http.ResponseWriter, r *http.Request, id uint) {
	setting, err := s.store.GetSettingByID(id)
	if errors.Is(err, store.ErrNotFound) {
		notFound(w, "Setting", uint64(id))
		return
	}
	if err != nil {
		storeFail(w, r, err, "fetch", "setting")
		return
	}
	ok(w, map[string]any{"setting": setting})
}

func (s *Server) handleUpdateSetting(w http.ResponseWriter, r *http.Request, id uint) {
	setting, err := s.store.GetSettingByID(id)
	if errors.Is(err, store.ErrNotFound) {
		notFound(w, "Setting", uint64(id))
		return
	}
	if err != nil {
		storeFail(w, r, err, "update", "setting")
		return
	}

	var in settingInput
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&in); err != nil {
		fail(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	setting.ServiceName = strOr(in.ServiceName, setting.ServiceName)
	setting.APIKey = strOr(in.APIKey, setting.APIKey)
	setting.APISecret = strOr(in.APISecret, setting.APISecret)

	if err := s.store.UpdateSetting(&setting); err != nil {
		storeFail(w, r, err, "update", "setting")
		return
	}
	ok(w, map[string]any{"setting": setting})
}

func (s *Server) handleDeleteSetting(w http.ResponseWriter, r *http.Request, id uint) {
	if err := s.store.DeleteSetting(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			notFound(w, "Setting", uint64(id))
			return
		}
		storeFail(w, r, err, "delete", "setting")
		return
	}
	ok(w, nil)
}
