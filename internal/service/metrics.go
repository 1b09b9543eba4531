package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/volcanowatch/backend/internal/domain"
)

// Metrics holds the Prometheus collectors of the service layer.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry       *prometheus.Registry
	riskScore      prometheus.Gauge
	riskConfidence prometheus.Gauge
	dangerGauge    prometheus.Gauge
	alerts         *prometheus.CounterVec
	broadcasts     *prometheus.CounterVec
	ruleTriggers   *prometheus.CounterVec
}

// NewMetrics creates the collectors on a dedicated registry
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		riskScore: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "volcano_risk_score",
			Help: "Latest aggregated risk index (0-100).",
		}),
		riskConfidence: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "volcano_risk_confidence",
			Help: "Confidence of the latest aggregated risk index (0-1).",
		}),
		dangerGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "volcano_danger_gauge",
			Help: "Latest tag classifier danger gauge value (0-100).",
		}),
		alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "volcano_alerts_total",
			Help: "Alerts built by metric type and severity.",
		}, []string{"type", "severity"}),
		broadcasts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "volcano_broadcasts_total",
			Help: "Broadcast messages published by channel.",
		}, []string{"channel"}),
		ruleTriggers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "volcano_rule_triggers_total",
			Help: "Automated rule firings by metric.",
		}, []string{"metric"}),
	}

	m.registry.MustRegister(
		m.riskScore,
		m.riskConfidence,
		m.dangerGauge,
		m.alerts,
		m.broadcasts,
		m.ruleTriggers,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the registry for the /metrics handler
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) observeRisk(r domain.RiskResult) {
	if m == nil {
		return
	}
	m.riskScore.Set(r.Risk)
	m.riskConfidence.Set(r.Confidence)
}

func (m *Metrics) observeGauge(v float64) {
	if m == nil {
		return
	}
	m.dangerGauge.Set(v)
}

func (m *Metrics) countAlert(a domain.Alert) {
	if m == nil {
		return
	}
	m.alerts.WithLabelValues(string(a.Type), string(a.Severity)).Inc()
}

func (m *Metrics) countBroadcast(ch domain.Channel) {
	if m == nil {
		return
	}
	m.broadcasts.WithLabelValues(string(ch)).Inc()
}

func (m *Metrics) countRuleTrigger(metric domain.Metric) {
	if m == nil {
		return
	}
	m.ruleTriggers.WithLabelValues(string(metric)).Inc()
}
