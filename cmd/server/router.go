package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/phrazzld/as400-api/internal/api"
	apiMiddleware "github.com/phrazzld/as400-api/internal/api/middleware"
	"github.com/phrazzld/as400-api/internal/api/shared"
	"github.com/phrazzld/as400-api/internal/domain"
)

// rootResponse is the body of GET /.
type rootResponse struct {
	Title   string `json:"title"`
	Version string `json:"version"`
}

// setupRouter creates the application router with all routes and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.NewTraceMiddleware(app.logger))

	authHandler := api.NewAuthHandler(app.authService, app.logger)
	hostHandler := api.NewHostHandler(app.hostService, app.logger)
	jobHandler := api.NewJobHandler(app.jobService, app.logger)
	auditHandler := api.NewAuditHandler(app.auditService, app.logger)
	authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService, app.logger)
	operatorOnly := apiMiddleware.RequireRole(domain.RoleOperator)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		shared.RespondWithJSON(w, r, http.StatusOK, rootResponse{Title: app.Title(), Version: version})
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("Failed to write health check response", "error", err)
		}
	})
	r.Get("/health/ready", app.handleReady)
	r.Handle("/metrics", app.metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/refresh", authHandler.RefreshToken)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			r.Get("/jobs/{id}", jobHandler.GetJob)
			r.Get("/audit", auditHandler.ListMine)

			r.Route("/as400", func(r chi.Router) {
				r.Post("/query", hostHandler.Query)
				r.Get("/system/status", hostHandler.SystemStatus)
				r.Get("/libraries/{library}/objects", hostHandler.ListObjects)
				r.Get("/jobs/active", hostHandler.ActiveJobs)
				r.Get("/data-areas/{library}/{name}", hostHandler.DataArea)

				r.Group(func(r chi.Router) {
					r.Use(operatorOnly)
					r.Post("/commands", hostHandler.RunCommand)
					r.Post("/commands/async", jobHandler.SubmitCommand)
					r.Post("/programs/call", hostHandler.CallProgram)
				})
			})
		})
	})

	return r
}

// handleReady reports database and host availability. Any unavailable
// dependency answers 503 with the same body.
func (app *application) handleReady(w http.ResponseWriter, r *http.Request) {
	readiness, err := app.healthService.Ready(r.Context())
	status := http.StatusOK
	if err != nil {
		status = api.MapErrorToStatusCode(err)
		app.logger.Warn("readiness check failed",
			"database", readiness.Database,
			"host", readiness.Host)
	}
	shared.RespondWithJSON(w, r, status, readiness)
}
