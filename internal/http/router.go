package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// HealthChecker reports whether the storage backend is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// RouterConfig collects the handlers and middleware the router mounts.
type RouterConfig struct {
	Auth    *AuthHandler
	Termine *TerminHandler
	Users   *UserHandler
	Ranking *RankingHandler

	Sessions SessionValidator
	Health   HealthChecker
	Metrics  http.Handler

	// Middleware wraps every route, including the public ones.
	Middleware []func(http.Handler) http.Handler
	Logger     *slog.Logger
}

// NewRouter builds the API route tree. Login, health, metrics, and the
// Terminliste are public; everything else requires a session token.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	for _, mw := range cfg.Middleware {
		if mw != nil {
			r.Use(mw)
		}
	}

	r.Get("/healthz", healthHandler(cfg.Health))
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	if cfg.Auth != nil {
		r.Post("/login", cfg.Auth.Login)
	}

	if cfg.Termine != nil {
		r.Get("/termine", cfg.Termine.List)
		r.Get("/termine/{id}", cfg.Termine.Get)
	}

	r.Group(func(r chi.Router) {
		if cfg.Sessions != nil {
			r.Use(RequireSession(cfg.Sessions, cfg.Logger))
		}

		if cfg.Auth != nil {
			r.Post("/logout", cfg.Auth.Logout)
		}

		if cfg.Termine != nil {
			r.Post("/termine", cfg.Termine.Create)
			r.Put("/termine/{id}", cfg.Termine.Update)
			r.Patch("/termine/{id}", cfg.Termine.Update)
			r.Delete("/termine/{id}", cfg.Termine.Delete)
			r.Post("/termine/{id}/teilnehmer", cfg.Termine.Enroll)
			r.Delete("/termine/{id}/teilnehmer/{username}", cfg.Termine.Unenroll)
		}

		if cfg.Users != nil {
			r.Get("/users", cfg.Users.List)
			r.Post("/users", cfg.Users.Create)
			r.Get("/users/search", cfg.Users.Search)
			r.Get("/users/{id}", cfg.Users.Get)
			r.Put("/users/{id}", cfg.Users.Update)
			r.Delete("/users/{id}", cfg.Users.Delete)
		}

		if cfg.Ranking != nil {
			r.Get("/rangliste", cfg.Ranking.List)
			r.Get("/rangliste/export", cfg.Ranking.Export)
		}
	})

	return r
}

func healthHandler(checker HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		state := "ok"
		if checker != nil {
			if err := checker.Ping(r.Context()); err != nil {
				status = http.StatusServiceUnavailable
				state = "unavailable"
			}
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": state})
	}
}
