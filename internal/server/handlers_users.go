package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"promptdesk/pkg/auth"
	"promptdesk/pkg/domain"
	"promptdesk/pkg/store"
)

// userInput carries the updatable user fields as tri-state values: a nil
// pointer means the field was absent from the request entirely.
type userInput struct {
	FirstName           *string `json:"firstName"`
	LastName            *string `json:"lastName"`
	Email               *string `json:"email"`
	Role                *string `json:"role"`
	Password            *string `json:"password"`
	Organization        *string `json:"organization"`
	Profile             *string `json:"profile"`
	OrganizationProfile *string `json:"organization_profile"`
	ModeInput           *string `json:"mode_input"`
	ModeValue           *string `json:"mode_value"`
}

// parseUserInput accepts either a JSON body or a multipart form with an
// optional avatar file. The avatar URL comes back empty when no file was
// uploaded.
func (s *Server) parseUserInput(r *http.Request) (userInput, string, error) {
	if !isMultipart(r) {
		var in userInput
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&in); err != nil {
			return userInput{}, "", err
		}
		return in, "", nil
	}
	if err := s.parseForm(r); err != nil {
		return userInput{}, "", err
	}
	in := userInput{
		FirstName:           formPtr(r, "firstName"),
		LastName:            formPtr(r, "lastName"),
		Email:               formPtr(r, "email"),
		Role:                formPtr(r, "role"),
		Password:            formPtr(r, "password"),
		Organization:        formPtr(r, "organization"),
		Profile:             formPtr(r, "profile"),
		OrganizationProfile: formPtr(r, "organization_profile"),
		ModeInput:           formPtr(r, "mode_input"),
		ModeValue:           formPtr(r, "mode_value"),
	}
	avatarURL, _, err := s.saveUpload(r, "avatar")
	if err != nil {
		return userInput{}, "", err
	}
	return in, avatarURL, nil
}

func formPtr(r *http.Request, key string) *string {
	if v, present := formValue(r, key); present {
		return &v
	}
	return nil
}

func strOr(p *string, fallback string) string {
	if p != nil && *p != "" {
		return *p
	}
	return fallback
}

func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request, userID uint) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateUser(w, r)
	case http.MethodGet:
		s.handleListUsers(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	in, avatarURL, err := s.parseUserInput(r)
	if err != nil {
		fail(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	password := strOr(in.Password, "")
	if strOr(in.Email, "") == "" || password == "" {
		fail(w, http.StatusBadRequest, "Email and password are required.")
		return
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		storeFail(w, r, err, "create", "user")
		return
	}
	user := domain.User{
		FirstName:    strOr(in.FirstName, ""),
		LastName:     strOr(in.LastName, ""),
		Email:        strOr(in.Email, ""),
		Role:         domain.UserRole(strOr(in.Role, string(domain.RoleUser))),
		Organization: strOr(in.Organization, ""),
		Avatar:       avatarURL,
		PasswordHash: hash,
	}
	if err := s.store.CreateUser(&user); err != nil {
		storeFail(w, r, err, "create", "user")
		return
	}
	ok(w, map[string]any{"user": user})
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, pagination, err := s.store.ListUsers(parseListFilter(r))
	if err != nil {
		storeFail(w, r, err, "fetch", "users")
		return
	}
	ok(w, map[string]any{"users": users, "paginationData": pagination})
}

func (s *Server) handleUserByID(w http.ResponseWriter, r *http.Request, userID uint) {
	id, found := parseID(r, "/api/users/")
	if !found {
		fail(w, http.StatusBadRequest, "Invalid user id.")
		return
	}
	switch r.Method {
	case http.MethodGet:
		s.handleGetUser(w, r, uint(id))
	case http.MethodPut:
		s.handleUpdateUser(w, r, uint(id))
	case http.MethodDelete:
		s.handleDeleteUser(w, r, uint(id))
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request, id uint) {
	user, err := s.store.GetUserByID(id)
	if errors.Is(err, store.ErrNotFound) {
		notFound(w, "User", uint64(id))
		return
	}
	if err != nil {
		storeFail(w, r, err, "fetch", "user")
		return
	}
	ok(w, map[string]any{"user": user})
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request, id uint) {
	user, err := s.store.GetUserByID(id)
	if errors.Is(err, store.ErrNotFound) {
		notFound(w, "User", uint64(id))
		return
	}
	if err != nil {
		storeFail(w, r, err, "update", "user")
		return
	}

	in, avatarURL, err := s.parseUserInput(r)
	if err != nil {
		fail(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	user.FirstName = strOr(in.FirstName, user.FirstName)
	user.LastName = strOr(in.LastName, user.LastName)
	user.Email = strOr(in.Email, user.Email)
	user.Role = domain.UserRole(strOr(in.Role, string(user.Role)))
	if avatarURL != "" {
		user.Avatar = avatarURL
	}
	// these three may be blanked, but only when the key was sent at all
	if in.Organization != nil {
		user.Organization = *in.Organization
	}
	if in.Profile != nil {
		user.Profile = *in.Profile
	}
	if in.OrganizationProfile != nil {
		user.OrganizationProfile = *in.OrganizationProfile
	}
	user.ModeInput = strOr(in.ModeInput, user.ModeInput)
	user.ModeValue = strOr(in.ModeValue, user.ModeValue)
	if password := strOr(in.Password, ""); password != "" {
		hash, hashErr := auth.HashPassword(password)
		if hashErr != nil {
			storeFail(w, r, hashErr, "update", "user")
			return
		}
		user.PasswordHash = hash
	}

	if err := s.store.UpdateUser(&user); err != nil {
		storeFail(w, r, err, "update", "user")
		return
	}
	updated, err := s.store.GetUserByID(id)
	if err != nil {
		storeFail(w, r, err, "update", "user")
		return
	}
	ok(w, map[string]any{"user": updated})
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request, id uint) {
	if err := s.store.DeleteUser(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			notFound(w, "User", uint64(id))
			return
		}
		storeFail(w, r, err, "delete", "user")
		return
	}
	ok(w, nil)
}
