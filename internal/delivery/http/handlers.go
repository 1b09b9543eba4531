package http

import (
	"errors"
	"log"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/volcanowatch/backend/internal/domain"
	"github.com/volcanowatch/backend/internal/risk"
	"github.com/volcanowatch/backend/internal/service"
)

// Services bundles the dependencies of the HTTP handlers
type Services struct {
	Dashboard   *service.DashboardService
	Sensors     *service.SensorService
	Devices     *service.DeviceService
	Alerts      *service.AlertService
	Risk        *service.RiskService
	Baselines   *service.BaselineSource
	Broadcast   *service.BroadcastService
	Predictions *service.PredictionBridge
	Repo        service.DataRepository
}

// Handler contains all HTTP handlers
type Handler struct {
	svc Services
}

// NewHandler creates a new handler
func NewHandler(svc Services) *Handler {
	return &Handler{svc: svc}
}

// toFiberError maps domain errors to HTTP status codes
func toFiberError(err error, fallback string) error {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrRuleNotFound):
		return fiber.NewError(fiber.StatusNotFound, "Rule not found")
	case errors.Is(err, domain.ErrUnknownDevice):
		return fiber.NewError(fiber.StatusNotFound, "Device not found")
	default:
		log.Printf("%s: %v", fallback, err)
		return fiber.NewError(fiber.StatusInternalServerError, fallback)
	}
}

func ok(c *fiber.Ctx, data interface{}) error {
	return c.JSON(fiber.Map{
		"success": true,
		"data":    data,
	})
}

// splitList parses a comma separated query value, dropping blanks
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// HealthCheck returns service health status
func (h *Handler) HealthCheck(c *fiber.Ctx) error {
	db := "ok"
	if err := h.svc.Repo.Health(c.Context()); err != nil {
		db = "unavailable"
	}

	return c.JSON(fiber.Map{
		"status":   "ok",
		"service":  "volcano-backend",
		"version":  "1.0.0",
		"database": db,
	})
}

// GetDashboard returns aggregated live data
func (h *Handler) GetDashboard(c *fiber.Ctx) error {
	data, err := h.svc.Dashboard.GetDashboardData(c.Context())
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to fetch dashboard data")
	}

	return ok(c, data)
}

// GetSensors returns collective statistics for the requested sensor types
func (h *Handler) GetSensors(c *fiber.Ctx) error {
	rawTypes := c.Query("sensorTypes")
	rawProcessing := c.Query("processing")

	if rawTypes == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Missing sensorTypes parameter")
	}
	if rawProcessing == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Missing processing parameter")
	}

	var types []domain.SensorType
	for _, raw := range splitList(rawTypes) {
		if t := domain.SensorType(raw); t.IsQueryable() {
			types = append(types, t)
		}
	}
	if len(types) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "No valid sensor types provided")
	}

	aggregation := domain.AggregationType(rawProcessing)
	if !aggregation.Valid() {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid processing type")
	}

	stats, err := h.svc.Sensors.CollectiveStats(c.Context(), types, aggregation)
	if err != nil {
		return toFiberError(err, "Failed to fetch collective data")
	}

	return ok(c, stats)
}

// GetDevices returns the device list
func (h *Handler) GetDevices(c *fiber.Ctx) error {
	sortBy := service.DeviceSort(c.Query("sort", string(service.SortByID)))
	order := c.Query("order", "asc")
	if order != "asc" && order != "desc" {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid order, expected asc or desc")
	}

	devices, err := h.svc.Devices.ListDevices(c.Context(), sortBy, order == "desc")
	if err != nil {
		return toFiberError(err, "Failed to fetch devices")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    devices,
		"count":   len(devices),
	})
}

// GetDeviceSensors returns the latest readings of one device
func (h *Handler) GetDeviceSensors(c *fiber.Ctx) error {
	types := domain.QueryableSensorTypes
	if raw := c.Query("types"); raw != "" {
		types = nil
		for _, t := range splitList(raw) {
			st := domain.SensorType(t)
			if !st.IsQueryable() {
				return fiber.NewError(fiber.StatusBadRequest, "Invalid sensor type: "+t)
			}
			types = append(types, st)
		}
	}

	readings, err := h.svc.Sensors.DeviceReadings(c.Context(), c.Params("id"), types)
	if err != nil {
		return toFiberError(err, "Failed to fetch device data")
	}

	return ok(c, readings)
}

// GetHeatmap returns heatmap points for a metric
func (h *Handler) GetHeatmap(c *fiber.Ctx) error {
	metric := domain.HeatmapMetric(c.Query("metric", string(domain.HeatmapCO2)))

	points, err := h.svc.Sensors.Heatmap(c.Context(), metric)
	if err != nil {
		return toFiberError(err, "Failed to build heatmap")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    points,
		"count":   len(points),
	})
}

// GetAlerts returns the current alert cards, optionally filtered by severity
func (h *Handler) GetAlerts(c *fiber.Ctx) error {
	alerts, err := h.svc.Alerts.Alerts(c.Context())
	if err != nil {
		return toFiberError(err, "Failed to fetch alerts")
	}

	filtered, err := service.FilterBySeverity(alerts, c.Query("severity", "all"))
	if err != nil {
		return toFiberError(err, "Failed to filter alerts")
	}

	return ok(c, filtered)
}

// RefreshAlerts rebuilds the alert cards, keeping the old values for deltas
func (h *Handler) RefreshAlerts(c *fiber.Ctx) error {
	alerts, err := h.svc.Alerts.Refresh(c.Context())
	if err != nil {
		return toFiberError(err, "Failed to refresh alerts")
	}

	return ok(c, alerts)
}

// GetRisk returns the latest risk result and its short history
func (h *Handler) GetRisk(c *fiber.Ctx) error {
	snap := h.svc.Risk.Snapshot()
	if snap.UpdatedAt.IsZero() {
		var err error
		if snap, err = h.svc.Risk.Sample(c.Context()); err != nil {
			return toFiberError(err, "Failed to compute risk")
		}
	}

	return ok(c, snap)
}

// GetGauge returns the danger gauge
func (h *Handler) GetGauge(c *fiber.Ctx) error {
	return ok(c, h.svc.Risk.Gauge())
}

// GetRiskHistory returns persisted risk points within a time range
func (h *Handler) GetRiskHistory(c *fiber.Ctx) error {
	hours := c.QueryInt("hours", 24)
	if hours < 1 || hours > 720 { // max 30 days
		hours = 24
	}

	to := time.Now()
	from := to.Add(-time.Duration(hours) * time.Hour)

	data, err := h.svc.Repo.GetRiskHistory(c.Context(), from, to)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to fetch risk history")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    data,
		"count":   len(data),
	})
}

// EvaluateRequest is the body of POST /risk/evaluate
type EvaluateRequest struct {
	Current  map[domain.Metric]float64          `json:"current"`
	History  map[domain.Metric][]domain.Reading `json:"history"`
	Baseline map[domain.Metric]float64          `json:"baseline"`
}

// EvaluateRisk runs the aggregator on caller supplied readings.
// Baselines default to the configured ones when omitted.
func (h *Handler) EvaluateRisk(c *fiber.Ctx) error {
	var req EvaluateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if len(req.Current) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "current readings are required")
	}
	if req.Baseline == nil {
		req.Baseline = h.svc.Baselines.Snapshot()
	}

	return ok(c, risk.AggregateRisk(req.Current, req.History, req.Baseline))
}

// GetIntensity converts an acceleration to seismic intensity
func (h *Handler) GetIntensity(c *fiber.Ctx) error {
	raw := c.Query("acceleration")
	acceleration, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(acceleration) || math.IsInf(acceleration, 0) {
		return fiber.NewError(fiber.StatusBadRequest, "acceleration must be a finite number")
	}

	return ok(c, risk.AccelerationToIntensity(acceleration))
}

// GetThresholds exposes the classification tables
func (h *Handler) GetThresholds(c *fiber.Ctx) error {
	return ok(c, fiber.Map{
		"effective": risk.EffectiveCutoffs,
		"display":   risk.DisplayThresholds,
		"risk":      risk.RiskThresholds,
		"weights":   risk.Weights,
	})
}

// GetBaselines returns the configured baselines
func (h *Handler) GetBaselines(c *fiber.Ctx) error {
	return ok(c, h.svc.Baselines.Snapshot())
}

// PutBaselines updates a subset of the baselines
func (h *Handler) PutBaselines(c *fiber.Ctx) error {
	var updates map[domain.Metric]float64
	if err := c.BodyParser(&updates); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	if err := h.svc.Baselines.Set(updates); err != nil {
		return toFiberError(err, "Failed to update baselines")
	}

	return ok(c, h.svc.Baselines.Snapshot())
}

// SendMessage broadcasts an operator message
func (h *Handler) SendMessage(c *fiber.Ctx) error {
	var msg domain.BroadcastMessage
	if err := c.BodyParser(&msg); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	sent, err := h.svc.Broadcast.Send(c.Context(), msg)

	// Some channels may have received the message already; report instead of failing
	var partial *service.PartialSendError
	if errors.As(err, &partial) {
		log.Printf("Broadcast %s: %v", sent.ID, partial)
		if partial.AllFailed(sent) {
			return fiber.NewError(fiber.StatusBadGateway, "Failed to publish to any channel")
		}
		return c.JSON(fiber.Map{
			"success":        true,
			"data":           sent,
			"failedChannels": partial.Failed,
		})
	}
	if err != nil {
		return toFiberError(err, "Failed to send broadcast message")
	}

	return ok(c, sent)
}

// ListRules returns all automated rules keyed by metric
func (h *Handler) ListRules(c *fiber.Ctx) error {
	rules, err := h.svc.Broadcast.ListRules(c.Context())
	if err != nil {
		return toFiberError(err, "Failed to fetch automated rules")
	}

	return ok(c, rules)
}

// PutRule stores the rule for its metric, replacing any existing one.
// The metric comes from the body or from the :metricId path segment.
func (h *Handler) PutRule(c *fiber.Ctx) error {
	var rule domain.AutomatedMessageRule
	if err := c.BodyParser(&rule); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if param := domain.Metric(c.Params("metricId")); param != "" {
		if rule.MetricID != "" && rule.MetricID != param {
			return fiber.NewError(fiber.StatusBadRequest, "metricId in body does not match path")
		}
		rule.MetricID = param
	}

	saved, err := h.svc.Broadcast.PutRule(c.Context(), rule)
	if err != nil {
		return toFiberError(err, "Failed to set automated rule")
	}

	return ok(c, saved)
}

// DeleteRule removes the rule of a metric
func (h *Handler) DeleteRule(c *fiber.Ctx) error {
	metric := domain.Metric(c.Params("metricId"))

	if err := h.svc.Broadcast.DeleteRule(c.Context(), metric); err != nil {
		return toFiberError(err, "Failed to delete automated rule")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Deleted rule for metric " + string(metric),
	})
}

// GetPrediction projects the risk over a timeframe via the ML service
func (h *Handler) GetPrediction(c *fiber.Ctx) error {
	ctx := c.Context()

	current := h.svc.Risk.Snapshot().Current
	req, err := service.NewPredictionRequest(c.Query("timeframe", "6h"), current)
	if err != nil {
		return toFiberError(err, "Failed to build prediction request")
	}

	prediction, err := h.svc.Predictions.Predict(ctx, req, current)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to get prediction")
	}

	// Log prediction to database asynchronously
	h.svc.Dashboard.PersistPrediction(req, prediction)

	return ok(c, prediction)
}
