package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math/rand"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/volcanowatch/backend/internal/domain"
	"github.com/volcanowatch/backend/internal/repository/memory"
	"github.com/volcanowatch/backend/internal/repository/postgres"
	"github.com/volcanowatch/backend/internal/service"
)

type countingPublisher struct {
	mu    sync.Mutex
	count int
	fail  map[domain.Channel]bool
}

func (p *countingPublisher) Publish(ctx context.Context, channel domain.Channel, msg domain.BroadcastMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail[channel] {
		return errors.New("gateway unavailable")
	}
	p.count++
	return nil
}

type testEnv struct {
	app       *fiber.App
	publisher *countingPublisher
	repo      *postgres.MockRepository
	dashboard *service.DashboardService
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()

	repo := postgres.NewMockRepository()
	publisher := &countingPublisher{}
	metrics := service.NewMetrics()
	sensors := service.NewSensorService(rand.New(rand.NewSource(7)))
	baselines := service.NewBaselineSource()
	devices := service.NewDeviceService(sensors)
	alerts := service.NewAlertService(sensors, metrics)
	riskSvc := service.NewRiskService(sensors, baselines, metrics)
	dashboard := service.NewDashboardService(alerts, riskSvc, devices, repo)
	t.Cleanup(dashboard.WaitBackground)

	handler := NewHandler(Services{
		Dashboard:   dashboard,
		Sensors:     sensors,
		Devices:     devices,
		Alerts:      alerts,
		Risk:        riskSvc,
		Baselines:   baselines,
		Broadcast:   service.NewBroadcastService(publisher, memory.NewRuleStore(), repo, riskSvc, metrics),
		Predictions: service.NewPredictionBridge(""),
		Repo:        repo,
	})

	app := fiber.New()
	SetupRoutes(app, handler, metrics.Registry())
	return testEnv{app: app, publisher: publisher, repo: repo, dashboard: dashboard}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Count   int             `json:"count"`
}

func (e testEnv) do(t *testing.T, method, target, body string) (int, envelope) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var env envelope
	if resp.StatusCode == fiber.StatusOK && strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(raw, &env))
	}
	return resp.StatusCode, env
}

func TestHealthCheck(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(fiber.MethodGet, "/health", nil)
	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "ok", body["database"])
}

func TestGetSensors(t *testing.T) {
	env := newTestEnv(t)

	status, _ := env.do(t, fiber.MethodGet, "/api/v1/sensors?processing=average", "")
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = env.do(t, fiber.MethodGet, "/api/v1/sensors?sensorTypes=co2", "")
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = env.do(t, fiber.MethodGet, "/api/v1/sensors?sensorTypes=lava&processing=average", "")
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = env.do(t, fiber.MethodGet, "/api/v1/sensors?sensorTypes=co2&processing=median", "")
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, body := env.do(t, fiber.MethodGet, "/api/v1/sensors?sensorTypes=co2,lava,so2&processing=peak", "")
	require.Equal(t, fiber.StatusOK, status)

	var stats map[domain.SensorType]domain.CollectiveStats
	require.NoError(t, json.Unmarshal(body.Data, &stats))
	require.Len(t, stats, 2)
	assert.NotNil(t, stats[domain.SensorCO2].Metrics.Peak)
	assert.Nil(t, stats[domain.SensorCO2].Metrics.Average)
}

func TestDevices(t *testing.T) {
	env := newTestEnv(t)

	status, body := env.do(t, fiber.MethodGet, "/api/v1/devices?sort=battery&order=desc", "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, 5, body.Count)

	status, _ = env.do(t, fiber.MethodGet, "/api/v1/devices?order=sideways", "")
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = env.do(t, fiber.MethodGet, "/api/v1/devices?sort=altitude", "")
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = env.do(t, fiber.MethodGet, "/api/v1/devices/9/sensors", "")
	assert.Equal(t, fiber.StatusNotFound, status)

	status, body = env.do(t, fiber.MethodGet, "/api/v1/devices/5/sensors?types=co2,battery", "")
	require.Equal(t, fiber.StatusOK, status)
	var readings map[string]float64
	require.NoError(t, json.Unmarshal(body.Data, &readings))
	assert.Len(t, readings, 2)

	status, _ = env.do(t, fiber.MethodGet, "/api/v1/devices/5/sensors?types=tagClass", "")
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestHeatmap(t *testing.T) {
	env := newTestEnv(t)

	status, body := env.do(t, fiber.MethodGet, "/api/v1/heatmap?metric=so2", "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Greater(t, body.Count, 0)

	status, _ = env.do(t, fiber.MethodGet, "/api/v1/heatmap?metric=lava", "")
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestAlerts(t *testing.T) {
	env := newTestEnv(t)

	status, body := env.do(t, fiber.MethodGet, "/api/v1/alerts", "")
	require.Equal(t, fiber.StatusOK, status)
	var alerts []domain.Alert
	require.NoError(t, json.Unmarshal(body.Data, &alerts))
	assert.Len(t, alerts, 4)

	status, _ = env.do(t, fiber.MethodGet, "/api/v1/alerts?severity=critical", "")
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, body = env.do(t, fiber.MethodPost, "/api/v1/alerts/refresh", "")
	require.Equal(t, fiber.StatusOK, status)
	require.NoError(t, json.Unmarshal(body.Data, &alerts))
	for _, a := range alerts {
		assert.NotNil(t, a.PreviousValue)
	}
}

func TestRiskEndpoints(t *testing.T) {
	env := newTestEnv(t)

	status, body := env.do(t, fiber.MethodGet, "/api/v1/risk", "")
	require.Equal(t, fiber.StatusOK, status)
	var snap domain.RiskSnapshot
	require.NoError(t, json.Unmarshal(body.Data, &snap))
	assert.False(t, snap.UpdatedAt.IsZero())
	assert.Len(t, snap.Current.Factors, 4)

	status, _ = env.do(t, fiber.MethodGet, "/api/v1/risk/gauge", "")
	assert.Equal(t, fiber.StatusOK, status)

	status, _ = env.do(t, fiber.MethodGet, "/api/v1/risk/history?hours=5000", "")
	assert.Equal(t, fiber.StatusOK, status)

	status, _ = env.do(t, fiber.MethodGet, "/api/v1/thresholds", "")
	assert.Equal(t, fiber.StatusOK, status)
}

func TestEvaluateRisk(t *testing.T) {
	env := newTestEnv(t)

	status, body := env.do(t, fiber.MethodPost, "/api/v1/risk/evaluate",
		`{"current":{"co2":2000},"baseline":{"co2":1000}}`)
	require.Equal(t, fiber.StatusOK, status)

	var result domain.RiskResult
	require.NoError(t, json.Unmarshal(body.Data, &result))
	assert.InDelta(t, 35, result.Risk, 1e-9)
	assert.InDelta(t, 0.175, result.Confidence, 1e-9)

	// configured baselines are used when none are given
	status, body = env.do(t, fiber.MethodPost, "/api/v1/risk/evaluate", `{"current":{"so2":400}}`)
	require.Equal(t, fiber.StatusOK, status)
	require.NoError(t, json.Unmarshal(body.Data, &result))
	assert.InDelta(t, 20, result.Risk, 1e-9)

	status, _ = env.do(t, fiber.MethodPost, "/api/v1/risk/evaluate", `{"current":{}}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestIntensity(t *testing.T) {
	env := newTestEnv(t)

	status, body := env.do(t, fiber.MethodGet, "/api/v1/intensity?acceleration=10", "")
	require.Equal(t, fiber.StatusOK, status)
	var si domain.SeismicIntensity
	require.NoError(t, json.Unmarshal(body.Data, &si))
	assert.Equal(t, 7.0, si.Intensity)

	for _, bad := range []string{"abc", "NaN", "Inf", "-Inf", ""} {
		status, _ = env.do(t, fiber.MethodGet, "/api/v1/intensity?acceleration="+bad, "")
		assert.Equal(t, fiber.StatusBadRequest, status, "acceleration %q", bad)
	}
}

func TestBaselines(t *testing.T) {
	env := newTestEnv(t)

	status, _ := env.do(t, fiber.MethodPut, "/api/v1/baselines", `{"co2":-1}`)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, body := env.do(t, fiber.MethodPut, "/api/v1/baselines", `{"co2":900}`)
	require.Equal(t, fiber.StatusOK, status)
	var baselines map[domain.Metric]float64
	require.NoError(t, json.Unmarshal(body.Data, &baselines))
	assert.Equal(t, 900.0, baselines[domain.MetricCO2])

	status, body = env.do(t, fiber.MethodGet, "/api/v1/baselines", "")
	require.Equal(t, fiber.StatusOK, status)
	require.NoError(t, json.Unmarshal(body.Data, &baselines))
	assert.Equal(t, 900.0, baselines[domain.MetricCO2])
}

func TestSendMessage(t *testing.T) {
	env := newTestEnv(t)

	status, _ := env.do(t, fiber.MethodPost, "/api/v1/messages", `{"message":"hi","channels":["fax"]}`)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, body := env.do(t, fiber.MethodPost, "/api/v1/messages",
		`{"message":"Stay indoors","channels":["telegram","sms"]}`)
	require.Equal(t, fiber.StatusOK, status)

	var sent domain.BroadcastMessage
	require.NoError(t, json.Unmarshal(body.Data, &sent))
	assert.NotEmpty(t, sent.ID)
	assert.Equal(t, 2, env.publisher.count)
	assert.Len(t, env.repo.Broadcasts(), 1)
}

func TestSendMessageIgnoresClientIdentifiers(t *testing.T) {
	env := newTestEnv(t)

	status, body := env.do(t, fiber.MethodPost, "/api/v1/messages",
		`{"id":"not-a-uuid","ruleId":"spoofed","message":"Drill","channels":["sms"]}`)
	require.Equal(t, fiber.StatusOK, status)

	var sent domain.BroadcastMessage
	require.NoError(t, json.Unmarshal(body.Data, &sent))
	assert.NotEqual(t, "not-a-uuid", sent.ID)
	assert.Empty(t, sent.RuleID)
}

func TestSendMessagePartialFailure(t *testing.T) {
	env := newTestEnv(t)
	env.publisher.fail = map[domain.Channel]bool{domain.ChannelWhatsApp: true}

	req := httptest.NewRequest(fiber.MethodPost, "/api/v1/messages",
		strings.NewReader(`{"message":"Ash fall expected","channels":["whatsapp","sms"]}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Success        bool                    `json:"success"`
		Data           domain.BroadcastMessage `json:"data"`
		FailedChannels []domain.Channel        `json:"failedChannels"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body.Success)
	assert.NotEmpty(t, body.Data.ID)
	assert.Equal(t, []domain.Channel{domain.ChannelWhatsApp}, body.FailedChannels)
	assert.Equal(t, 1, env.publisher.count)

	// nothing delivered at all
	status, _ := env.do(t, fiber.MethodPost, "/api/v1/messages", `{"message":"Ash","channels":["whatsapp"]}`)
	assert.Equal(t, fiber.StatusBadGateway, status)
}

func TestPredictionLogIsPersisted(t *testing.T) {
	env := newTestEnv(t)

	status, _ := env.do(t, fiber.MethodGet, "/api/v1/predictions?timeframe=12h", "")
	require.Equal(t, fiber.StatusOK, status)

	env.dashboard.WaitBackground()
	require.Len(t, env.repo.Predictions(), 1)
	assert.Equal(t, "12h", env.repo.Predictions()[0].Timeframe)
}

func TestAutomatedRules(t *testing.T) {
	env := newTestEnv(t)

	status, _ := env.do(t, fiber.MethodPut, "/api/v1/automated-rules",
		`{"metricId":"co2","enabled":true,"threshold":1500,"comparison":"sideways","message":"x","channels":["sms"]}`)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = env.do(t, fiber.MethodPut, "/api/v1/automated-rules",
		`{"metricId":"co2","enabled":true,"threshold":1500,"comparison":"greater","message":"CO2 high","channels":["sms"]}`)
	require.Equal(t, fiber.StatusOK, status)

	status, body := env.do(t, fiber.MethodGet, "/api/v1/automated-rules", "")
	require.Equal(t, fiber.StatusOK, status)
	var rules map[domain.Metric]domain.AutomatedMessageRule
	require.NoError(t, json.Unmarshal(body.Data, &rules))
	require.Contains(t, rules, domain.MetricCO2)
	assert.Equal(t, 1500.0, rules[domain.MetricCO2].Threshold)

	status, _ = env.do(t, fiber.MethodDelete, "/api/v1/automated-rules/co2", "")
	assert.Equal(t, fiber.StatusOK, status)

	status, _ = env.do(t, fiber.MethodDelete, "/api/v1/automated-rules/co2", "")
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestPostRuleForPathMetric(t *testing.T) {
	env := newTestEnv(t)

	status, body := env.do(t, fiber.MethodPost, "/api/v1/automated-rules/so2",
		`{"enabled":true,"threshold":600,"comparison":"greater","message":"SO2 high","channels":["telegram"]}`)
	require.Equal(t, fiber.StatusOK, status)
	var rule domain.AutomatedMessageRule
	require.NoError(t, json.Unmarshal(body.Data, &rule))
	assert.Equal(t, domain.MetricSO2, rule.MetricID)

	status, _ = env.do(t, fiber.MethodPost, "/api/v1/automated-rules/so2",
		`{"metricId":"co2","enabled":false,"comparison":"less"}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestPredictions(t *testing.T) {
	env := newTestEnv(t)

	status, body := env.do(t, fiber.MethodGet, "/api/v1/predictions?timeframe=24h", "")
	require.Equal(t, fiber.StatusOK, status)
	var prediction domain.PredictionResponse
	require.NoError(t, json.Unmarshal(body.Data, &prediction))
	assert.True(t, prediction.IsMock)
	assert.Equal(t, "24h", prediction.Timeframe)

	status, _ = env.do(t, fiber.MethodGet, "/api/v1/predictions?timeframe=7h", "")
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestDashboardAndMetrics(t *testing.T) {
	env := newTestEnv(t)

	status, body := env.do(t, fiber.MethodGet, "/api/v1/dashboard", "")
	require.Equal(t, fiber.StatusOK, status)
	var data domain.DashboardData
	require.NoError(t, json.Unmarshal(body.Data, &data))
	assert.Len(t, data.Devices, 5)

	req := httptest.NewRequest(fiber.MethodGet, "/metrics", nil)
	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), "volcano_risk_score")
}
