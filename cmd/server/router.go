package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/retainapp/retain-api/internal/api"
	apiMiddleware "github.com/retainapp/retain-api/internal/api/middleware"
)

// setupRouter creates and configures the application router with all
// routes and middleware. Returns the configured router.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	// Trace IDs tie error responses to log lines.
	r.Use(apiMiddleware.NewTraceMiddleware(app.logger))

	authHandler := api.NewAuthHandler(
		app.jwtService,
		app.apiKeyVerifier,
		&app.config.Auth,
		app.logger,
	)
	authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService)

	cardHandler := api.NewCardHandler(app.cardService, app.cardReviewService, app.logger)
	sourceHandler := api.NewSourceHandler(app.sourceService, app.logger)
	tagHandler := api.NewTagHandler(app.tagService, app.logger)
	syncHandler := api.NewSyncHandler(app.syncService, app.logger)
	exportHandler := api.NewExportHandler(app.exporter, app.logger)
	healthHandler := api.NewHealthHandler(app.db, app.syncService, app.logger)

	r.Route("/api", func(r chi.Router) {
		// Authentication endpoints (public)
		r.Post("/auth/token", authHandler.Token)
		r.Post("/auth/refresh", authHandler.Refresh)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			// Card endpoints
			r.Post("/cards", cardHandler.CreateCard)
			r.Get("/cards", cardHandler.ListCards)
			r.Get("/cards/due", cardHandler.GetDueCards)
			r.Get("/cards/{id}", cardHandler.GetCard)
			r.Patch("/cards/{id}", cardHandler.UpdateCard)
			r.Delete("/cards/{id}", cardHandler.DeleteCard)
			r.Post("/cards/{id}/review", cardHandler.ReviewCard)
			r.Get("/cards/{id}/history", cardHandler.GetReviewHistory)

			// Source endpoints
			r.Post("/sources", sourceHandler.CreateSource)
			r.Get("/sources", sourceHandler.ListSources)
			r.Get("/sources/{id}", sourceHandler.GetSource)
			r.Patch("/sources/{id}", sourceHandler.UpdateSource)
			r.Delete("/sources/{id}", sourceHandler.DeleteSource)
			r.Post("/sources/{id}/generate-cards", sourceHandler.GenerateCards)
			r.Post("/sources/{id}/approve", sourceHandler.ApproveSource)

			// Tag endpoints
			r.Get("/tags", tagHandler.ListTags)
			r.Post("/tags", tagHandler.CreateTags)
			r.Delete("/tags/{id}", tagHandler.DeleteTag)

			// Raindrop sync endpoints
			r.Post("/sync/raindrop", syncHandler.SyncRaindrop)
			r.Get("/sync/raindrop/status", syncHandler.RaindropStatus)

			// Obsidian export endpoints
			r.Post("/export/obsidian", exportHandler.ExportObsidian)
			r.Get("/export/obsidian/status", exportHandler.ObsidianStatus)
		})
	})

	// Health check endpoints
	r.Get("/health", healthHandler.Health)
	r.Get("/health/services", healthHandler.Services)

	return r
}
