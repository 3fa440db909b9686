package http

import (
	"context"
	"log/slog"
	"net/http"
)

// RouterConfig collects the handlers served by NewRouter. Nil handlers leave
// their routes unregistered.
type RouterConfig struct {
	Auth     *AuthHandler
	Plans    *PlanHandler
	Chats    *ChatHandler
	Filters  *FilterHandler
	Location *LocationHandler
	// Sessions guards the routes that need a signed-in user.
	Sessions SessionValidator
	// Health reports readiness of dependencies such as the database.
	Health     func(ctx context.Context) error
	Middleware []func(http.Handler) http.Handler
	Logger     *slog.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()
	responder := newResponder(cfg.Logger)

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		if cfg.Health != nil {
			if err := cfg.Health(r.Context()); err != nil {
				responder.loggerFor(r.Context()).ErrorContext(r.Context(), "health check failed", "error", err)
				responder.writeJSON(r.Context(), w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable"})
				return
			}
		}
		responder.writeJSON(r.Context(), w, http.StatusOK, healthResponse{Status: "ok"})
	})

	if cfg.Auth != nil {
		mux.HandleFunc("POST /users", cfg.Auth.Register)
		mux.HandleFunc("POST /sessions", cfg.Auth.CreateSession)
		mux.HandleFunc("DELETE /sessions/current", cfg.Auth.DeleteCurrentSession)

		requireSession := RequireSession(cfg.Sessions, cfg.Logger)
		mux.Handle("GET /me", requireSession(http.HandlerFunc(cfg.Auth.Me)))
		mux.Handle("PUT /me", requireSession(http.HandlerFunc(cfg.Auth.UpdateMe)))
	}

	if cfg.Plans != nil {
		mux.HandleFunc("GET /emojis", cfg.Plans.Emojis)
		mux.HandleFunc("GET /plans", cfg.Plans.Discover)
		mux.HandleFunc("POST /plans", cfg.Plans.Create)
		mux.HandleFunc("GET /plans/{id}", cfg.Plans.Get)
		mux.HandleFunc("GET /plans/{id}/attendees", cfg.Plans.ListAttendees)
		mux.HandleFunc("POST /plans/{id}/attendees", cfg.Plans.Join)
		mux.HandleFunc("GET /plans/{id}/share.png", cfg.Plans.ShareImage)
		mux.HandleFunc("GET /plans/{id}/calendar.ics", cfg.Plans.CalendarFile)
	}

	if cfg.Chats != nil {
		mux.HandleFunc("GET /plans/{id}/chat/messages", cfg.Chats.List)
		mux.HandleFunc("POST /plans/{id}/chat/messages", cfg.Chats.Post)
		mux.HandleFunc("GET /plans/{id}/chat/stream", cfg.Chats.Stream)
	}

	if cfg.Filters != nil {
		mux.HandleFunc("GET /filters", cfg.Filters.Get)
		mux.HandleFunc("PUT /filters", cfg.Filters.Put)
	}

	if cfg.Location != nil {
		mux.HandleFunc("GET /location/options", cfg.Location.Options)
		mux.HandleFunc("POST /location", cfg.Location.Report)
	}

	return Chain(mux, cfg.Middleware...)
}

type healthResponse struct {
	Status string `json:"status"`
}
