package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes configures all HTTP routes
func SetupRoutes(app *fiber.App, handler *Handler, registry *prometheus.Registry) {
	// Health check
	app.Get("/health", handler.HealthCheck)

	// Prometheus scrape endpoint
	if registry != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	}

	// API v1 routes
	api := app.Group("/api/v1")
	{
		// Dashboard endpoints
		api.Get("/dashboard", handler.GetDashboard)
		api.Get("/sensors", handler.GetSensors)
		api.Get("/devices", handler.GetDevices)
		api.Get("/devices/:id/sensors", handler.GetDeviceSensors)
		api.Get("/heatmap", handler.GetHeatmap)

		// Alerts
		api.Get("/alerts", handler.GetAlerts)
		api.Post("/alerts/refresh", handler.RefreshAlerts)

		// Risk scoring
		api.Get("/risk", handler.GetRisk)
		api.Get("/risk/gauge", handler.GetGauge)
		api.Get("/risk/history", handler.GetRiskHistory)
		api.Post("/risk/evaluate", handler.EvaluateRisk)
		api.Get("/intensity", handler.GetIntensity)
		api.Get("/thresholds", handler.GetThresholds)
		api.Get("/baselines", handler.GetBaselines)
		api.Put("/baselines", handler.PutBaselines)

		// Broadcast messaging
		api.Post("/messages", handler.SendMessage)
		api.Get("/automated-rules", handler.ListRules)
		api.Put("/automated-rules", handler.PutRule)
		api.Post("/automated-rules/:metricId", handler.PutRule)
		api.Delete("/automated-rules/:metricId", handler.DeleteRule)

		// Prediction endpoint (proxies to Python ML service)
		api.Get("/predictions", handler.GetPrediction)
	}
}
