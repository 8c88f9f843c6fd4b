// Command verein runs the Vereinsverwaltung REST API.
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/example/vereinsverwaltung/internal/application"
	"github.com/example/vereinsverwaltung/internal/config"
	httptransport "github.com/example/vereinsverwaltung/internal/http"
	"github.com/example/vereinsverwaltung/internal/logging"
	"github.com/example/vereinsverwaltung/internal/metrics"
	"github.com/example/vereinsverwaltung/internal/observability"
	"github.com/example/vereinsverwaltung/internal/persistence/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := logging.New(os.Stdout, cfg.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	flushSentry, err := observability.InitSentry(cfg.SentryDSN, cfg.Env)
	if err != nil {
		logger.Error("failed to initialise sentry", "error", err)
		os.Exit(1)
	}
	defer flushSentry()

	pool, err := sqlite.NewConnectionPool(cfg.SQLiteDSN)
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		observability.CaptureErr(err)
		os.Exit(1)
	}
	defer func() {
		if cerr := pool.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := pool.Migrate(); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		observability.CaptureErr(err)
		os.Exit(1)
	}

	idGenerator := uuid.NewString
	tokenGenerator := func() string { return randomHex(32) }
	now := time.Now

	userRepo := newUserRepositoryAdapter(sqlite.NewUserRepository(pool))
	terminRepo := newTerminRepositoryAdapter(sqlite.NewTerminRepository(pool))
	sessionRepo := newSessionRepositoryAdapter(sqlite.NewSessionRepository(pool))
	credentialStore := newCredentialStoreAdapter(sqlite.NewUserRepository(pool))

	userService := application.NewUserServiceWithLogger(userRepo, nil, idGenerator, now, logger)
	eventService := application.NewEventServiceWithLogger(terminRepo, idGenerator, now, logger)
	authService := application.NewAuthServiceWithLogger(credentialStore, sessionRepo, nil, tokenGenerator, now, cfg.SessionTTL, logger)

	registry := metrics.New()

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Auth:     httptransport.NewAuthHandler(authService, registry, logger),
		Termine:  httptransport.NewTerminHandler(eventService, registry, logger),
		Users:    httptransport.NewUserHandler(userService, logger),
		Ranking:  httptransport.NewRankingHandler(userService, logger),
		Sessions: authService,
		Health:   pool,
		Metrics:  registry.Handler(),
		Middleware: []func(http.Handler) http.Handler{
			middleware.RealIP,
			middleware.Recoverer,
			httptransport.RequestLogger(logger),
			registry.Middleware,
		},
		Logger: logger,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("verein API listening", "addr", server.Addr, "env", cfg.Env)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		observability.CaptureErr(err)
		os.Exit(1)
	}
}

func randomHex(bytes int) string {
	if bytes <= 0 {
		bytes = 16
	}
	buf := make([]byte, bytes)
	if _, err := rand.Read(buf); err != nil {
		return uuid.NewString()
	}
	return hex.EncodeToString(buf)
}
