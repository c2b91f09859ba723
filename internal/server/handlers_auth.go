package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"promptdesk/internal/app"
	"promptdesk/pkg/domain"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signupRequest struct {
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Email        string `json:"email"`
	Role         string `json:"role"`
	Password     string `json:"password"`
	Organization string `json:"organization"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	ResetToken string `json:"reset_token"`
	Password   string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r, s.loginLimiter, "Too many login attempts.") {
		s.audit(r, "auth.login", "rate_limited")
		return
	}
	var req loginRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		fail(w, http.StatusBadRequest, "Invalid JSON body.")
		return
	}
	user, token, err := s.auth.Login(req.Email, req.Password)
	if errors.Is(err, app.ErrInvalidCredentials) {
		s.audit(r, "auth.login", "fail", "reason", "invalid_credentials")
		fail(w, http.StatusUnauthorized, app.ErrInvalidCredentials.Error())
		return
	}
	if err != nil {
		storeFail(w, r, err, "login", "user")
		return
	}
	s.audit(r, "auth.login", "success", "user_id", user.ID)
	ok(w, map[string]any{"user": user, "token": token})
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if !s.allowRate(w, r, s.signupLimiter, "Too many signup attempts.") {
		s.audit(r, "auth.signup", "rate_limited")
		return
	}
	var req signupRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		fail(w, http.StatusBadRequest, "Invalid JSON body.")
		return
	}
	user, err := s.auth.SignUp(domain.User{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		Role:         domain.UserRole(req.Role),
		Organization: req.Organization,
	}, req.Password)
	if errors.Is(err, app.ErrEmailAlreadyExists) || errors.Is(err, app.ErrEmailAndPasswordRequired) {
		s.audit(r, "auth.signup", "fail", "reason", err.Error())
		fail(w, http.StatusBadRequest, "Failed to signup user.")
		return
	}
	if err != nil {
		storeFail(w, r, err, "signup", "user")
		return
	}
	s.audit(r, "auth.signup", "success", "user_id", user.ID)
	ok(w, map[string]any{"user": user})
}

func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req forgotPasswordRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		fail(w, http.StatusBadRequest, "Invalid JSON body.")
		return
	}
	if err := s.auth.ForgotPassword(r.Context(), req.Email); err != nil {
		s.audit(r, "auth.forgot_password", "fail", "reason", err.Error())
		fail(w, http.StatusInternalServerError, "Failed to send reset password email")
		return
	}
	s.audit(r, "auth.forgot_password", "success")
	ok(w, nil)
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req resetPasswordRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		fail(w, http.StatusBadRequest, "Invalid JSON body.")
		return
	}
	err := s.auth.ResetPassword(req.ResetToken, req.Password)
	if errors.Is(err, app.ErrResetTokenInvalid) || errors.Is(err, app.ErrResetTokenExpired) {
		s.audit(r, "auth.reset_password", "fail", "reason", "bad_token")
		fail(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		storeFail(w, r, err, "reset password for", "user")
		return
	}
	s.audit(r, "auth.reset_password", "success")
	ok(w, nil)
}
