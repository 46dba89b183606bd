package main

import (
	"net/http"

	"github.com/datemate/taskpoll/internal/api"
	apiMiddleware "github.com/datemate/taskpoll/internal/api/middleware"
	"github.com/datemate/taskpoll/internal/api/shared"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// setupRouter creates the application router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.NewTraceMiddleware(app.logger))

	authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService)
	taskHandler := api.NewTaskHandler(app.tasks)

	r.Route("/api/ai/tasks", func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)
		taskHandler.Routes(r)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		shared.RespondWithJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})

	return r
}
