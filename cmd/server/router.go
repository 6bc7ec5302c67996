package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"health-metrics-api/internal/api"
	apiMiddleware "health-metrics-api/internal/api/middleware"
	"health-metrics-api/internal/metrics"
)

// setupRouter creates and configures the application router with all routes
// and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware)

	authHandler := api.NewAuthHandler(
		app.userStore,
		app.jwtService,
		app.passwordVerifier,
		app.config.Auth,
	)
	measurementHandler := api.NewMeasurementHandler(
		app.glucoseStore,
		app.pressureStore,
		app.publisher,
		app.config.Broker,
	)
	userHandler := api.NewUserHandler(
		app.db,
		app.userStore,
		app.glucoseStore,
		app.pressureStore,
		app.passwordVerifier,
	)
	authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService)

	r.Route("/api", func(r chi.Router) {
		// Authentication endpoints (public)
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/refresh", authHandler.RefreshToken)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			// Blood glucose endpoints
			r.Post("/glucose", measurementHandler.SubmitGlucose)
			r.Get("/glucose", measurementHandler.ListGlucose)
			r.Get("/glucose/{id}", measurementHandler.GetGlucose)
			r.Put("/glucose/{id}", measurementHandler.UpdateGlucose)
			r.Delete("/glucose/{id}", measurementHandler.DeleteGlucose)

			// Blood pressure endpoints
			r.Post("/pressure", measurementHandler.SubmitPressure)
			r.Get("/pressure", measurementHandler.ListPressure)
			r.Get("/pressure/{id}", measurementHandler.GetPressure)
			r.Put("/pressure/{id}", measurementHandler.UpdatePressure)
			r.Delete("/pressure/{id}", measurementHandler.DeletePressure)

			// Account management endpoints
			r.Get("/users/me", userHandler.GetMe)
			r.Put("/users/me", userHandler.UpdateMe)
			r.Put("/users/me/password", userHandler.ChangePassword)
			r.Delete("/users/me", userHandler.DeactivateMe)
			r.Delete("/users/me/purge", userHandler.PurgeMe)
		})
	})

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("Failed to write health check response", "error", err)
		}
	})

	// Prometheus metrics endpoint
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	return r
}
