package server

import (
	"context"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"promptdesk/internal/app"
	"promptdesk/internal/ratelimit"
	"promptdesk/internal/util"
	"promptdesk/pkg/auth"
	"promptdesk/pkg/storage"
	"promptdesk/pkg/store"
)

type contextKey string

const userIDKey contextKey = "promptdesk.userID"

// Config wires required dependencies for the HTTP server.
type Config struct {
	Store                    store.Store
	Auth                     *app.AuthService
	Dispatcher               *app.ChatDispatcher
	Tokens                   *auth.Tokens
	Objects                  storage.ObjectStore
	LocalUploadDir           string
	MaxUploadBytes           int64
	RedisAddr                string
	RedisPassword            string
	LoginRateLimitPerMinute  int
	SignupRateLimitPerMinute int
}

// Server exposes the HTTP API.
type Server struct {
	store          store.Store
	auth           *app.AuthService
	dispatcher     *app.ChatDispatcher
	tokens         *auth.Tokens
	objects        storage.ObjectStore
	mux            *http.ServeMux
	maxUploadBytes int64
	localUploadDir string
	loginLimiter   *ratelimit.FixedWindowLimiter
	signupLimiter  *ratelimit.FixedWindowLimiter
}

// New constructs the server with routes configured. Rate limiting is enabled
// only when a positive per-minute limit is configured.
func New(cfg Config) (*Server, error) {
	s := &Server{
		store:          cfg.Store,
		auth:           cfg.Auth,
		dispatcher:     cfg.Dispatcher,
		tokens:         cfg.Tokens,
		objects:        cfg.Objects,
		mux:            http.NewServeMux(),
		maxUploadBytes: normalizeMaxBytes(cfg.MaxUploadBytes),
		localUploadDir: strings.TrimSpace(cfg.LocalUploadDir),
	}
	newLimiter := func(name string, limit int) (*ratelimit.FixedWindowLimiter, error) {
		if limit <= 0 {
			return nil, nil
		}
		prefix := "promptdesk:ratelimit:" + name
		limiter, err := ratelimit.NewRedisFixedWindowLimiter(cfg.RedisAddr, cfg.RedisPassword, prefix, limit, time.Minute)
		if err != nil {
			return nil, fmt.Errorf("init %s limiter: %w", name, err)
		}
		return limiter, nil
	}
	var err error
	if s.loginLimiter, err = newLimiter("login", cfg.LoginRateLimitPerMinute); err != nil {
		return nil, err
	}
	if s.signupLimiter, err = newLimiter("signup", cfg.SignupRateLimitPerMinute); err != nil {
		return nil, err
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler wrapped in the middleware chain.
func (s *Server) Router() http.Handler {
	return util.WithSecurityHeaders(util.WithCORS(util.WithRequestID(util.WithRequestLog("api", s.mux))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)

	// public auth routes
	s.mux.HandleFunc("/api/auth/login", s.handleLogin)
	s.mux.HandleFunc("/api/auth/signup", s.handleSignup)
	s.mux.HandleFunc("/api/auth/forgot-password", s.handleForgotPassword)
	s.mux.HandleFunc("/api/auth/reset-password", s.handleResetPassword)

	// everything else requires a bearer token
	s.mux.Handle("/api/users", s.authenticated(s.handleUsers))
	s.mux.Handle("/api/users/", s.authenticated(s.handleUserByID))
	s.mux.Handle("/api/prompts", s.authenticated(s.handlePrompts))
	s.mux.Handle("/api/prompts/", s.authenticated(s.handlePromptByID))
	s.mux.Handle("/api/history", s.authenticated(s.handleHistories))
	s.mux.Handle("/api/history/", s.authenticated(s.handleHistoryByID))
	s.mux.Handle("/api/settings", s.authenticated(s.handleSettings))
	s.mux.Handle("/api/settings/", s.authenticated(s.handleSettingByID))
	s.mux.Handle("/api/chats", s.authenticated(s.handleChats))
	s.mux.Handle("/api/chats/history/", s.authenticated(s.handleChatHistory))
	s.mux.Handle("/api/tags", s.authenticated(s.handleTags))
	s.mux.Handle("/api/tags/", s.authenticated(s.handleTagByID))
	s.mux.Handle("/api/documents", s.authenticated(s.handleDocuments))
	s.mux.Handle("/api/documents/", s.authenticated(s.handleDocumentByID))
	s.mux.Handle("/api/company", s.authenticated(s.handleCompanies))
	s.mux.Handle("/api/company/", s.authenticated(s.handleCompanyByID))

	if s.localUploadDir != "" {
		s.mux.Handle("/uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir(s.localUploadDir))))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// authHandler receives the authenticated caller's user id.
type authHandler func(http.ResponseWriter, *http.Request, uint)

func (s *Server) authenticated(next authHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, found := bearerToken(r)
		if !found {
			s.audit(r, "auth.token", "fail", "reason", "missing_token")
			fail(w, http.StatusUnauthorized, "Authentication required.")
			return
		}
		userID, err := s.tokens.Verify(token)
		if err != nil {
			s.audit(r, "auth.token", "fail", "reason", "invalid_token")
			fail(w, http.StatusUnauthorized, "Invalid token.")
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next(w, r.WithContext(ctx), userID)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}
	return token, true
}

func (s *Server) audit(r *http.Request, event, outcome string, attrs ...any) {
	logAttrs := []any{
		"event", event,
		"outcome", outcome,
		"path", r.URL.Path,
		"method", r.Method,
		"ip", util.ClientIP(r, nil),
	}
	logAttrs = append(logAttrs, attrs...)
	if outcome == "success" {
		slog.Info("security_event", logAttrs...)
		return
	}
	slog.Warn("security_event", logAttrs...)
}

func (s *Server) allowRate(w http.ResponseWriter, r *http.Request, limiter *ratelimit.FixedWindowLimiter, msg string) bool {
	if limiter == nil {
		return true
	}
	key := r.URL.Path + "|" + util.ClientIP(r, nil)
	if limiter.Allow(key) {
		return true
	}
	w.Header().Set("Retry-After", "60")
	fail(w, http.StatusTooManyRequests, msg)
	return false
}

func normalizeMaxBytes(value int64) int64 {
	if value <= 0 {
		return 10 * 1024 * 1024
	}
	return value
}

// isMultipart reports whether the request carries a multipart form body.
func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

// saveUpload stores the named file field, if present, and returns the public
// URL plus the client's original file name. An absent field is not an error;
// both values come back empty.
func (s *Server) saveUpload(r *http.Request, field string) (string, string, error) {
	file, header, err := r.FormFile(field)
	if err == http.ErrMissingFile {
		return "", "", nil
	}
	if err != nil {
		return "", "", err
	}
	defer file.Close()

	key := storage.RandomKey(header.Filename)
	if err := s.objects.Put(r.Context(), key, file, header.Size, contentTypeFor(header)); err != nil {
		return "", "", fmt.Errorf("store upload: %w", err)
	}
	url := s.objects.URL(key)
	// a store with no configured base address yields a bare path; complete it
	// from the inbound request so clients get an absolute URL
	if strings.HasPrefix(url, "/") {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		url = scheme + "://" + r.Host + url
	}
	return url, header.Filename, nil
}

func contentTypeFor(header *multipart.FileHeader) string {
	if ct := header.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// parseForm handles both JSON-free multipart requests and urlencoded bodies,
// bounded by the configured upload limit.
func (s *Server) parseForm(r *http.Request) error {
	r.Body = http.MaxBytesReader(nil, r.Body, s.maxUploadBytes)
	if isMultipart(r) {
		return r.ParseMultipartForm(s.maxUploadBytes)
	}
	return r.ParseForm()
}

// formValue returns the value and whether the key appeared in the parsed
// form at all. Presence matters for fields that may be blanked explicitly.
func formValue(r *http.Request, key string) (string, bool) {
	if r.MultipartForm != nil {
		if vs, present := r.MultipartForm.Value[key]; present {
			if len(vs) == 0 {
				return "", true
			}
			return vs[0], true
		}
		return "", false
	}
	if r.PostForm != nil {
		if vs, present := r.PostForm[key]; present {
			if len(vs) == 0 {
				return "", true
			}
			return vs[0], true
		}
	}
	return "", false
}
