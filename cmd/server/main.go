package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"promptdesk/internal/app"
	"promptdesk/internal/config"
	"promptdesk/internal/server"
	"promptdesk/internal/util"
	"promptdesk/pkg/ai"
	"promptdesk/pkg/auth"
	"promptdesk/pkg/domain"
	"promptdesk/pkg/mail"
	"promptdesk/pkg/storage"
	"promptdesk/pkg/store"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	leeway, err := config.ParseJWTLeeway(cfg.JWTLeeway)
	if err != nil {
		log.Fatalf("failed to parse jwt leeway: %v", err)
	}
	sessionTTL, err := config.ParseSessionTTL(cfg.SessionTTL)
	if err != nil {
		log.Fatalf("failed to parse session TTL: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)

	db, err := store.NewGormStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to init store: %v", err)
	}

	tokens, err := auth.NewTokens(auth.TokensOptions{
		Secret: cfg.JWTSecret,
		Issuer: cfg.JWTIssuer,
		TTL:    sessionTTL,
		Leeway: leeway,
	})
	if err != nil {
		log.Fatalf("failed to init tokens: %v", err)
	}

	objects, err := buildObjectStore(cfg)
	if err != nil {
		log.Fatalf("failed to init object store: %v", err)
	}

	var mailer mail.Mailer
	if cfg.SendGridAPIKey != "" {
		mailer, err = mail.NewSendGridMailer(mail.SendGridOptions{
			APIKey:     cfg.SendGridAPIKey,
			FromEmail:  cfg.SendGridFromEmail,
			FromName:   cfg.SendGridFromName,
			TemplateID: cfg.SendGridResetTemplate,
		})
		if err != nil {
			log.Fatalf("failed to init mailer: %v", err)
		}
	}

	if err := seedAdmin(db, cfg); err != nil {
		log.Fatalf("failed to seed admin user: %v", err)
	}

	openai := ai.NewOpenAIClient(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIModel)
	palm := ai.NewPalmClient(cfg.PalmBaseURL, cfg.PalmAPIKey, cfg.PalmModel)

	httpServer, err := server.New(server.Config{
		Store:                    db,
		Auth:                     app.NewAuthService(db, tokens, mailer, cfg.FrontendURL),
		Dispatcher:               app.NewChatDispatcher(db, openai, palm),
		Tokens:                   tokens,
		Objects:                  objects,
		LocalUploadDir:           localUploadDir(cfg),
		MaxUploadBytes:           cfg.MaxUploadBytes,
		RedisAddr:                cfg.RedisAddr,
		RedisPassword:            cfg.RedisPassword,
		LoginRateLimitPerMinute:  cfg.LoginRateLimitPerMinute,
		SignupRateLimitPerMinute: cfg.SignupRateLimitPerMinute,
	})
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		logger.Error("server error", "err", err)
	}
}

func buildObjectStore(cfg config.FileConfig) (storage.ObjectStore, error) {
	if cfg.StorageDriver == "minio" {
		return storage.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
	}
	dir := cfg.UploadDir
	if dir == "" {
		dir = "uploads"
	}
	return storage.NewDiskStore(dir, cfg.BackendURL)
}

func localUploadDir(cfg config.FileConfig) string {
	if cfg.StorageDriver == "minio" {
		return ""
	}
	if cfg.UploadDir == "" {
		return "uploads"
	}
	return cfg.UploadDir
}

// seedAdmin ensures a first admin account exists so a fresh deployment can
// log in. Skipped once the email is taken.
func seedAdmin(s store.Store, cfg config.FileConfig) error {
	email := cfg.AdminEmail
	if email == "" {
		email = "jenis@my_ai_bot.com"
	}
	password := cfg.AdminPassword
	if password == "" {
		password = "password"
	}
	exists, err := s.HasUserEmail(email)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	admin := domain.User{
		FirstName:    "Jenis",
		LastName:     "gadhiya",
		Email:        email,
		Role:         domain.RoleAdmin,
		Organization: "My AI bot org",
		PasswordHash: hash,
	}
	if err := s.CreateUser(&admin); err != nil {
		return err
	}
	slog.Info("seeded admin user", "email", email)
	return nil
}
