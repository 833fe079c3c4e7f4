package main

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/quicktask/quicktask-api/internal/api"
	apiMiddleware "github.com/quicktask/quicktask-api/internal/api/middleware"
	"github.com/quicktask/quicktask-api/internal/api/shared"
	"github.com/quicktask/quicktask-api/internal/events"
	"github.com/quicktask/quicktask-api/internal/service/auth"
	"github.com/quicktask/quicktask-api/internal/store"
)

// newRouter creates and configures the application router with all routes
// and middleware.
func newRouter(
	userStore store.UserStore,
	taskStore store.TaskStore,
	jwtService auth.JWTService,
	hasher *auth.BcryptHasher,
	emitter events.EventEmitter,
	log *slog.Logger,
) http.Handler {
	if log == nil {
		log = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.RequestLogger(log))

	authHandler := api.NewAuthHandler(userStore, jwtService, hasher, hasher)
	taskHandler := api.NewTaskHandler(taskStore, emitter, log)
	authMiddleware := apiMiddleware.NewAuthMiddleware(jwtService, userStore)

	// Authentication endpoints (public)
	r.Post("/auth/register", authHandler.Register)
	r.Post("/auth/token", authHandler.Token)

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)

		r.Get("/users/me", authHandler.Me)

		r.Post("/tasks", taskHandler.Create)
		r.Get("/tasks", taskHandler.List)
		r.Get("/tasks/{id}", taskHandler.Get)
		r.Patch("/tasks/{id}", taskHandler.Update)
		r.Delete("/tasks/{id}", taskHandler.Delete)
	})

	// Health check, served at the root and at /health.
	r.Get("/", healthCheck)
	r.Get("/health", healthCheck)

	return r
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, map[string]string{
		"message": "QuickTask API is up and running!",
	})
}
