package memory

import (
	"context"
	"sync"

	"github.com/volcanowatch/backend/internal/domain"
)

// RuleStore keeps automated rules in process memory
type RuleStore struct {
	mu    sync.RWMutex
	rules map[domain.Metric]domain.AutomatedMessageRule
}

// NewRuleStore creates an empty store
func NewRuleStore() *RuleStore {
	return &RuleStore{rules: make(map[domain.Metric]domain.AutomatedMessageRule)}
}

var _ domain.RuleStore = (*RuleStore)(nil)

func cloneRule(r domain.AutomatedMessageRule) domain.AutomatedMessageRule {
	r.Channels = append([]domain.Channel(nil), r.Channels...)
	return r
}

// Put stores or overwrites the rule for its metric
func (s *RuleStore) Put(ctx context.Context, rule domain.AutomatedMessageRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules[rule.MetricID] = cloneRule(rule)
	return nil
}

// Get returns the rule of a metric
func (s *RuleStore) Get(ctx context.Context, metric domain.Metric) (domain.AutomatedMessageRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rules[metric]
	if !ok {
		return domain.AutomatedMessageRule{}, domain.ErrRuleNotFound
	}
	return cloneRule(r), nil
}

// Delete removes the rule of a metric
func (s *RuleStore) Delete(ctx context.Context, metric domain.Metric) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rules[metric]; !ok {
		return domain.ErrRuleNotFound
	}
	delete(s.rules, metric)
	return nil
}

// List returns a copy of all rules
func (s *RuleStore) List(ctx context.Context) (map[domain.Metric]domain.AutomatedMessageRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[domain.Metric]domain.AutomatedMessageRule, len(s.rules))
	for k, v := range s.rules {
		out[k] = cloneRule(v)
	}
	return out, nil
}
