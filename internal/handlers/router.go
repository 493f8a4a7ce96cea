package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/mentoro/arena/internal/middleware"
)

// NewRouter wires the REST API and the websocket endpoint
func (h *HandlerManager) NewRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   h.Config.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, jsonResponse{"status": "ok", "connections": h.Registry.Count()})
	})

	auth := middleware.Authenticate(h.Config.JWTSecret)

	r.With(auth).Get("/ws", h.ServeWS)

	r.Route("/api", func(r chi.Router) {
		r.Use(auth)
		if h.Limiter != nil {
			r.Use(middleware.RateLimit(h.Limiter))
		}

		r.Route("/battles", func(r chi.Router) {
			r.Post("/", h.CreateBattle)
			r.Get("/active", h.ListActiveBattles)
			r.Get("/{matchID}", h.GetBattle)
			r.Post("/{matchID}/join", h.JoinBattle)
			r.Post("/{matchID}/submit", h.SubmitBattle)
		})

		r.Get("/profiles/me", h.GetMyProfile)
		r.Get("/leaderboard", h.Leaderboard)
	})

	return r
}
