package domain

import "time"

// Channel is an outbound broadcast channel
type Channel string

const (
	ChannelTelegram Channel = "telegram"
	ChannelWhatsApp Channel = "whatsapp"
	ChannelSMS      Channel = "sms"
)

// Valid reports whether c is a supported channel
func (c Channel) Valid() bool {
	switch c {
	case ChannelTelegram, ChannelWhatsApp, ChannelSMS:
		return true
	}
	return false
}

// BroadcastMessage is an operator or rule generated message fanned out to channels
type BroadcastMessage struct {
	ID             string    `json:"id"`
	Message        string    `json:"message"`
	Channels       []Channel `json:"channels"`
	IncludeMetrics []Metric  `json:"includeMetrics,omitempty"`
	RuleID         string    `json:"ruleId,omitempty"`
	SentAt         time.Time `json:"sentAt"`
}

// Comparison decides how a rule threshold is applied
type Comparison string

const (
	ComparisonGreater Comparison = "greater"
	ComparisonLess    Comparison = "less"
	ComparisonEqual   Comparison = "equal"
)

// Valid reports whether c is a known comparison
func (c Comparison) Valid() bool {
	switch c {
	case ComparisonGreater, ComparisonLess, ComparisonEqual:
		return true
	}
	return false
}

// AutomatedMessageRule sends a message when a metric crosses a threshold.
// There is at most one rule per metric.
type AutomatedMessageRule struct {
	ID         string     `json:"id"`
	MetricID   Metric     `json:"metricId"`
	Enabled    bool       `json:"enabled"`
	Threshold  float64    `json:"threshold"`
	Comparison Comparison `json:"comparison"`
	Message    string     `json:"message"`
	Channels   []Channel  `json:"channels"`
}
