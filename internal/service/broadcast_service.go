package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/volcanowatch/backend/internal/domain"
)

// equalTolerance is the slack used by the "equal" rule comparison
const equalTolerance = 1e-9

// Publisher delivers a broadcast to one outbound channel
type Publisher interface {
	Publish(ctx context.Context, channel domain.Channel, msg domain.BroadcastMessage) error
}

// ReadingSource supplies the latest value per metric
type ReadingSource interface {
	LatestReadings() map[domain.Metric]float64
}

// BroadcastService sends operator messages and runs the automated message rules
type BroadcastService struct {
	publisher Publisher
	rules     domain.RuleStore
	repo      DataRepository
	readings  ReadingSource
	metrics   *Metrics

	mu     sync.Mutex
	firing map[string]bool // rule ID -> condition held on the last evaluation
}

// NewBroadcastService creates a new broadcast service
func NewBroadcastService(
	publisher Publisher,
	rules domain.RuleStore,
	repo DataRepository,
	readings ReadingSource,
	metrics *Metrics,
) *BroadcastService {
	return &BroadcastService{
		publisher: publisher,
		rules:     rules,
		repo:      repo,
		readings:  readings,
		metrics:   metrics,
		firing:    make(map[string]bool),
	}
}

func validateChannels(channels []domain.Channel) error {
	if len(channels) == 0 {
		return fmt.Errorf("broadcast: at least one channel is required: %w", domain.ErrInvalidInput)
	}
	for _, ch := range channels {
		if !ch.Valid() {
			return fmt.Errorf("broadcast: unknown channel %q: %w", ch, domain.ErrInvalidInput)
		}
	}
	return nil
}

// ComposeMessage appends the latest value of each included metric to the text
func ComposeMessage(text string, include []domain.Metric, readings map[domain.Metric]float64) string {
	if len(include) == 0 {
		return text
	}

	var b strings.Builder
	b.WriteString(text)
	b.WriteString("\n\nCurrent readings:")
	for _, metric := range include {
		if v, ok := readings[metric]; ok {
			fmt.Fprintf(&b, "\n- %s: %.2f", metric, v)
		} else {
			fmt.Fprintf(&b, "\n- %s: n/a", metric)
		}
	}
	return b.String()
}

// PartialSendError reports the channels a broadcast could not be published to.
// The message was still delivered to the remaining channels and persisted.
type PartialSendError struct {
	Failed []domain.Channel
	Err    error
}

func (e *PartialSendError) Error() string {
	return fmt.Sprintf("broadcast: failed to publish to %v: %v", e.Failed, e.Err)
}

func (e *PartialSendError) Unwrap() error {
	return e.Err
}

// AllFailed reports whether no channel received the message
func (e *PartialSendError) AllFailed(msg domain.BroadcastMessage) bool {
	return len(e.Failed) == len(msg.Channels)
}

// Send validates and publishes an operator message on every requested channel.
// The ID is always generated here and operator messages never carry a rule ID.
func (s *BroadcastService) Send(ctx context.Context, msg domain.BroadcastMessage) (domain.BroadcastMessage, error) {
	msg.ID = ""
	msg.RuleID = ""
	return s.send(ctx, msg)
}

func (s *BroadcastService) send(ctx context.Context, msg domain.BroadcastMessage) (domain.BroadcastMessage, error) {
	if strings.TrimSpace(msg.Message) == "" {
		return domain.BroadcastMessage{}, fmt.Errorf("broadcast: message is empty: %w", domain.ErrInvalidInput)
	}
	if err := validateChannels(msg.Channels); err != nil {
		return domain.BroadcastMessage{}, err
	}
	for _, metric := range msg.IncludeMetrics {
		if !metric.IsRiskMetric() {
			return domain.BroadcastMessage{}, fmt.Errorf("broadcast: unknown metric %q: %w", metric, domain.ErrInvalidInput)
		}
	}

	msg.ID = uuid.NewString()
	msg.SentAt = time.Now()
	msg.Message = ComposeMessage(msg.Message, msg.IncludeMetrics, s.readings.LatestReadings())

	var (
		failed []domain.Channel
		errs   []error
	)
	for _, ch := range msg.Channels {
		if err := s.publisher.Publish(ctx, ch, msg); err != nil {
			failed = append(failed, ch)
			errs = append(errs, fmt.Errorf("%s: %w", ch, err))
			continue
		}
		s.metrics.countBroadcast(ch)
	}

	if err := s.repo.SaveBroadcast(ctx, msg); err != nil {
		log.Printf("Failed to save broadcast %s: %v", msg.ID, err)
	}

	log.Printf("Broadcast %s sent to %d channel(s)", msg.ID, len(msg.Channels)-len(failed))
	if len(failed) > 0 {
		return msg, &PartialSendError{Failed: failed, Err: errors.Join(errs...)}
	}
	return msg, nil
}

// PutRule validates and stores the rule for its metric, replacing any existing one
func (s *BroadcastService) PutRule(ctx context.Context, rule domain.AutomatedMessageRule) (domain.AutomatedMessageRule, error) {
	if !rule.MetricID.IsRiskMetric() {
		return domain.AutomatedMessageRule{}, fmt.Errorf("rules: unknown metric %q: %w", rule.MetricID, domain.ErrInvalidInput)
	}
	if !rule.Comparison.Valid() {
		return domain.AutomatedMessageRule{}, fmt.Errorf("rules: comparison %q: %w", rule.Comparison, domain.ErrInvalidInput)
	}
	if rule.Enabled {
		if strings.TrimSpace(rule.Message) == "" {
			return domain.AutomatedMessageRule{}, fmt.Errorf("rules: message is empty: %w", domain.ErrInvalidInput)
		}
		if err := validateChannels(rule.Channels); err != nil {
			return domain.AutomatedMessageRule{}, err
		}
	}
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}

	if existing, err := s.rules.Get(ctx, rule.MetricID); err == nil {
		s.resetFiring(existing.ID)
	}
	if err := s.rules.Put(ctx, rule); err != nil {
		return domain.AutomatedMessageRule{}, fmt.Errorf("rules: failed to store rule: %w", err)
	}
	s.resetFiring(rule.ID)

	log.Printf("Automated rule set: metric=%s threshold=%v comparison=%s channels=%v",
		rule.MetricID, rule.Threshold, rule.Comparison, rule.Channels)
	return rule, nil
}

// DeleteRule removes the rule of a metric. It returns domain.ErrRuleNotFound if none exists.
func (s *BroadcastService) DeleteRule(ctx context.Context, metric domain.Metric) error {
	existing, err := s.rules.Get(ctx, metric)
	if err != nil {
		return err
	}
	if err := s.rules.Delete(ctx, metric); err != nil {
		return err
	}
	s.resetFiring(existing.ID)
	return nil
}

// ListRules returns all rules keyed by metric
func (s *BroadcastService) ListRules(ctx context.Context) (map[domain.Metric]domain.AutomatedMessageRule, error) {
	rules, err := s.rules.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("rules: failed to list rules: %w", err)
	}
	return rules, nil
}

func (s *BroadcastService) resetFiring(ruleID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.firing, ruleID)
}

// Matches reports whether value satisfies the rule's threshold comparison
func Matches(rule domain.AutomatedMessageRule, value float64) bool {
	switch rule.Comparison {
	case domain.ComparisonGreater:
		return value > rule.Threshold
	case domain.ComparisonLess:
		return value < rule.Threshold
	case domain.ComparisonEqual:
		return math.Abs(value-rule.Threshold) <= equalTolerance
	default:
		return false
	}
}

// EvaluateRules checks every enabled rule against readings and sends a
// message for each rule whose condition just became true.
func (s *BroadcastService) EvaluateRules(ctx context.Context, readings map[domain.Metric]float64) ([]domain.BroadcastMessage, error) {
	rules, err := s.rules.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("rules: failed to list rules: %w", err)
	}

	metrics := make([]domain.Metric, 0, len(rules))
	for metric := range rules {
		metrics = append(metrics, metric)
	}
	sort.Slice(metrics, func(i, j int) bool { return metrics[i] < metrics[j] })

	var (
		sent []domain.BroadcastMessage
		errs []error
	)
	for _, metric := range metrics {
		rule := rules[metric]
		value, ok := readings[metric]
		held := rule.Enabled && ok && Matches(rule, value)

		s.mu.Lock()
		wasHeld := s.firing[rule.ID]
		s.firing[rule.ID] = held
		s.mu.Unlock()

		if !held || wasHeld {
			continue
		}

		msg, err := s.send(ctx, domain.BroadcastMessage{
			Message:        rule.Message,
			Channels:       rule.Channels,
			IncludeMetrics: []domain.Metric{metric},
			RuleID:         rule.ID,
		})
		if err != nil {
			errs = append(errs, err)
			var partial *PartialSendError
			if !errors.As(err, &partial) || partial.AllFailed(msg) {
				continue
			}
		}
		s.metrics.countRuleTrigger(metric)
		sent = append(sent, msg)
	}

	return sent, errors.Join(errs...)
}
