package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"promptdesk/pkg/auth"
	"promptdesk/pkg/domain"
	"promptdesk/pkg/mail"
	"promptdesk/pkg/store"
)

// resetTokenTTL bounds how long a password-reset link stays usable.
const resetTokenTTL = 7 * 24 * time.Hour

// AuthService handles signup, login, and the password-reset flow.
type AuthService struct {
	store       store.Store
	tokens      *auth.Tokens
	mailer      mail.Mailer
	frontendURL string
}

// NewAuthService wires the auth flows. mailer may be nil when reset emails
// are not configured; ForgotPassword then only records the token.
func NewAuthService(s store.Store, tokens *auth.Tokens, mailer mail.Mailer, frontendURL string) *AuthService {
	return &AuthService{
		store:       s,
		tokens:      tokens,
		mailer:      mailer,
		frontendURL: strings.TrimRight(strings.TrimSpace(frontendURL), "/"),
	}
}

// SignUp registers a new account. The caller redirects to login afterwards,
// so no token is issued here.
func (a *AuthService) SignUp(u domain.User, password string) (domain.User, error) {
	u.Email = strings.TrimSpace(strings.ToLower(u.Email))
	if u.Email == "" || password == "" {
		return domain.User{}, ErrEmailAndPasswordRequired
	}
	if u.Role == "" {
		u.Role = domain.RoleUser
	}
	exists, err := a.store.HasUserEmail(u.Email)
	if err != nil {
		return domain.User{}, fmt.Errorf("check email: %w", err)
	}
	if exists {
		return domain.User{}, ErrEmailAlreadyExists
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}
	u.PasswordHash = hash
	if err := a.store.CreateUser(&u); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return domain.User{}, ErrEmailAlreadyExists
		}
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// Login validates credentials and issues an access token.
func (a *AuthService) Login(email, password string) (domain.User, string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	user, err := a.store.GetUserByEmail(email)
	if errors.Is(err, store.ErrNotFound) {
		return domain.User{}, "", ErrInvalidCredentials
	}
	if err != nil {
		return domain.User{}, "", fmt.Errorf("fetch user: %w", err)
	}
	if !auth.CheckPassword(password, user.PasswordHash) {
		return domain.User{}, "", ErrInvalidCredentials
	}
	token, err := a.tokens.Issue(user.ID)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("issue token: %w", err)
	}
	return user, token, nil
}

// ForgotPassword records a fresh reset token and emails the reset link.
// Unknown addresses succeed silently so the endpoint cannot be used to probe
// for accounts.
func (a *AuthService) ForgotPassword(ctx context.Context, email string) error {
	email = strings.TrimSpace(strings.ToLower(email))
	user, err := a.store.GetUserByEmail(email)
	if errors.Is(err, store.ErrNotFound) {
		slog.Info("password reset requested for unknown email")
		return nil
	}
	if err != nil {
		return fmt.Errorf("fetch user: %w", err)
	}

	token, err := auth.NewResetToken()
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	user.ResetToken = token
	user.ResetSentAt = &now
	if err := a.store.UpdateUser(&user); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}

	if a.mailer == nil {
		slog.Warn("no mailer configured, skipping reset email", "user_id", user.ID)
		return nil
	}
	resetURL := a.frontendURL + "/auth/reset-password?token=" + token
	if err := a.mailer.SendPasswordReset(ctx, user.Email, user.FirstName, resetURL); err != nil {
		return fmt.Errorf("send reset email: %w", err)
	}
	slog.Info("password reset email sent", "user_id", user.ID)
	return nil
}

// ResetPassword consumes a reset token and replaces the password. Tokens
// expire seven days after they were issued and are single-use.
func (a *AuthService) ResetPassword(token, newPassword string) error {
	token = strings.TrimSpace(token)
	if token == "" || newPassword == "" {
		return ErrResetTokenInvalid
	}
	user, err := a.store.GetUserByResetToken(token)
	if errors.Is(err, store.ErrNotFound) {
		return ErrResetTokenInvalid
	}
	if err != nil {
		return fmt.Errorf("fetch user: %w", err)
	}
	if user.ResetSentAt == nil || time.Since(*user.ResetSentAt) > resetTokenTTL {
		return ErrResetTokenExpired
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user.PasswordHash = hash
	user.ResetToken = ""
	user.ResetSentAt = nil
	if err := a.store.UpdateUser(&user); err != nil {
		return fmt.Errorf("store password: %w", err)
	}
	return nil
}
