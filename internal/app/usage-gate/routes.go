// Package usagegate предоставляет маршруты для основного приложения.
package usagegate

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpSwagger "github.com/swaggo/http-swagger"

	analyticslist "github.com/magabrotheeeer/usage-gate/internal/http/handlers/analytics/list"
	"github.com/magabrotheeeer/usage-gate/internal/http/handlers/credential/assign"
	"github.com/magabrotheeeer/usage-gate/internal/http/handlers/credential/changeplan"
	"github.com/magabrotheeeer/usage-gate/internal/http/handlers/credential/deactivate"
	"github.com/magabrotheeeer/usage-gate/internal/http/handlers/credential/extend"
	"github.com/magabrotheeeer/usage-gate/internal/http/handlers/credential/history"
	credentialremove "github.com/magabrotheeeer/usage-gate/internal/http/handlers/credential/remove"
	featurecreate "github.com/magabrotheeeer/usage-gate/internal/http/handlers/feature/create"
	featurelist "github.com/magabrotheeeer/usage-gate/internal/http/handlers/feature/list"
	"github.com/magabrotheeeer/usage-gate/internal/http/handlers/plan/create"
	"github.com/magabrotheeeer/usage-gate/internal/http/handlers/plan/list"
	"github.com/magabrotheeeer/usage-gate/internal/http/handlers/plan/read"
	"github.com/magabrotheeeer/usage-gate/internal/http/handlers/plan/remove"
	"github.com/magabrotheeeer/usage-gate/internal/http/handlers/plan/update"
	"github.com/magabrotheeeer/usage-gate/internal/http/handlers/usage/reset"
	"github.com/magabrotheeeer/usage-gate/internal/http/handlers/usage/stats"
	"github.com/magabrotheeeer/usage-gate/internal/http/handlers/usage/track"
	"github.com/magabrotheeeer/usage-gate/internal/http/middlewarectx"
	analyticsservice "github.com/magabrotheeeer/usage-gate/internal/services/analytics"
	credentialservice "github.com/magabrotheeeer/usage-gate/internal/services/credential"
	featureservice "github.com/magabrotheeeer/usage-gate/internal/services/feature"
	planservice "github.com/magabrotheeeer/usage-gate/internal/services/plan"
	usageservice "github.com/magabrotheeeer/usage-gate/internal/services/usage"
)

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger,
	usageService *usageservice.UsageService,
	planService *planservice.PlanService,
	featureService *featureservice.FeatureService,
	credentialService *credentialservice.CredentialService,
	analyticsService *analyticsservice.AnalyticsService) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.Logger,
		middleware.Recoverer,
		middleware.URLFormat,
	)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middlewarectx.RateLimitMiddleware(logger))

		r.Post("/usage/track", track.New(logger, usageService).ServeHTTP)
		r.Get("/usage/stats/{organizationID}", stats.New(logger, usageService).ServeHTTP)
		r.Post("/usage/reset", reset.New(logger, usageService).ServeHTTP)

		r.Post("/plans", create.New(logger, planService).ServeHTTP)
		r.Get("/plans/{id}", read.New(logger, planService).ServeHTTP)
		r.Get("/plans/list/{organizationID}", list.New(logger, planService).ServeHTTP)
		r.Put("/plans/{id}", update.New(logger, planService).ServeHTTP)
		r.Delete("/plans/{id}", remove.New(logger, planService).ServeHTTP)

		r.Post("/features", featurecreate.New(logger, featureService).ServeHTTP)
		r.Get("/features/list/{organizationID}", featurelist.New(logger, featureService).ServeHTTP)

		r.Post("/credentials", assign.New(logger, credentialService).ServeHTTP)
		r.Post("/credentials/{id}/change-plan", changeplan.New(logger, credentialService).ServeHTTP)
		r.Post("/credentials/{id}/deactivate", deactivate.New(logger, credentialService).ServeHTTP)
		r.Post("/credentials/{id}/extend", extend.New(logger, credentialService).ServeHTTP)
		r.Delete("/credentials/{id}", credentialremove.New(logger, credentialService).ServeHTTP)
		r.Get("/credentials/history/{userID}", history.New(logger, credentialService).ServeHTTP)

		r.Get("/analytics/{organizationID}", analyticslist.New(logger, analyticsService).ServeHTTP)
	})

	r.Handle("/metrics", promhttp.Handler())
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
