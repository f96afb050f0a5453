// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package server wires configuration, storage, services and routes into
// the running HTTP server.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/urfave/cli/v3"

	"github.com/vuportal/authportal/internal/config"
	"github.com/vuportal/authportal/internal/database"
	"github.com/vuportal/authportal/internal/handlers"
	"github.com/vuportal/authportal/internal/i18n"
	"github.com/vuportal/authportal/internal/repository"
	authsvc "github.com/vuportal/authportal/internal/services/auth"
	"github.com/vuportal/authportal/internal/services/email"
	"github.com/vuportal/authportal/internal/services/otp"
	"github.com/vuportal/authportal/internal/services/session"
)

// Run starts the server with the given CLI command.
func Run(ctx context.Context, cmd *cli.Command) error {
	cfg := config.NewFromCLI(cmd)
	setupLogger(cfg.Log.Level, cfg.Log.Format)

	slog.Info("starting server",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"base_url", cfg.Server.BaseURL,
		"allowed_domain", cfg.Auth.AllowedDomain,
	)

	// Database (migrations run on open)
	db, err := database.Open(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("failed to close database", "error", closeErr)
		}
	}()

	// i18n (email copy)
	if initErr := i18n.Init(); initErr != nil {
		return fmt.Errorf("failed to init i18n: %w", initErr)
	}

	repo := repository.New(db)

	// Services
	otpExpiry := time.Duration(cfg.Auth.OTPExpiry) * time.Minute
	mailer, err := email.NewService(&cfg.SMTP, cfg.Server.BaseURL, otpExpiry)
	if err != nil {
		return fmt.Errorf("failed to create mail service: %w", err)
	}

	otpSvc := otp.NewService(repo, mailer, otpExpiry)
	authSvc := authsvc.NewService(repo, cfg.Auth.AllowedDomain)

	secure := strings.HasPrefix(cfg.Server.BaseURL, "https://")
	sessions, err := session.NewManager(&cfg.Session, secure)
	if err != nil {
		return fmt.Errorf("failed to create session manager: %w", err)
	}

	// Echo
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	setupMiddleware(e, cfg)
	setupRoutes(e, repo, otpSvc, authSvc, sessions)

	// Background cleanup of expired codes and stale pending signups
	janitorCtx, stopJanitor := context.WithCancel(ctx)
	defer stopJanitor()
	if cfg.Auth.CleanupInterval > 0 {
		j := NewJanitor(repo,
			time.Duration(cfg.Auth.CleanupInterval)*time.Minute,
			time.Duration(cfg.Auth.PendingTTL)*time.Hour)
		go j.Run(janitorCtx)
	}

	return startWithGracefulShutdown(e, cfg)
}

func setupRoutes(
	e *echo.Echo,
	repo *repository.Repository,
	otpSvc *otp.Service,
	authSvc *authsvc.Service,
	sessions *session.Manager,
) {
	h := handlers.New(repo)
	authH := handlers.NewAuth(otpSvc, authSvc, sessions)
	userH := handlers.NewUser(authSvc)

	e.GET("/health", h.Health)
	e.GET("/verify-email", authH.VerifyEmail)

	api := e.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.POST("/signup", authH.Signup)
	authGroup.POST("/verify", authH.Verify)
	authGroup.POST("/login", authH.Login)
	authGroup.POST("/logout", authH.Logout)
	authGroup.POST("/forgot-password", authH.ForgotPassword)
	authGroup.POST("/reset-password", authH.ResetPassword)

	userGroup := api.Group("/user", handlers.LoadUser(sessions, repo), handlers.RequireAuth)
	userGroup.GET("/me", userH.Me)
	userGroup.POST("/setup-profile", userH.SetupProfile)
}

func startWithGracefulShutdown(e *echo.Echo, cfg *config.Config) error {
	errChan := make(chan error, 1)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	go func() {
		slog.Info("Server running", "url", cfg.Server.BaseURL)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	// Wait for interrupt signal or error
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		slog.Info("shutting down server")
	case err := <-errChan:
		slog.Error("server error", "error", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shutdown server", "error", err)
	}

	slog.Info("server stopped")
	return nil
}
