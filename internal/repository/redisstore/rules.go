package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/volcanowatch/backend/internal/domain"
)

// rulesKey is the hash holding one JSON rule per metric field
const rulesKey = "volcano:automated_rules"

// RuleStore keeps automated rules in a Redis hash so they survive restarts
// and are shared between replicas
type RuleStore struct {
	client *redis.Client
}

// NewRuleStore connects to Redis
func NewRuleStore(addr, password string, db int) *RuleStore {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RuleStore{client: client}
}

// NewRuleStoreWithClient wraps an existing client
func NewRuleStoreWithClient(client *redis.Client) *RuleStore {
	return &RuleStore{client: client}
}

var _ domain.RuleStore = (*RuleStore)(nil)

// Put stores or overwrites the rule for its metric
func (s *RuleStore) Put(ctx context.Context, rule domain.AutomatedMessageRule) error {
	data, err := json.Marshal(rule)
	if err != nil {
		return fmt.Errorf("redis: failed to marshal rule: %w", err)
	}
	if err := s.client.HSet(ctx, rulesKey, string(rule.MetricID), data).Err(); err != nil {
		return fmt.Errorf("redis: failed to save rule: %w", err)
	}
	return nil
}

// Get returns the rule of a metric
func (s *RuleStore) Get(ctx context.Context, metric domain.Metric) (domain.AutomatedMessageRule, error) {
	data, err := s.client.HGet(ctx, rulesKey, string(metric)).Result()
	if errors.Is(err, redis.Nil) {
		return domain.AutomatedMessageRule{}, domain.ErrRuleNotFound
	}
	if err != nil {
		return domain.AutomatedMessageRule{}, fmt.Errorf("redis: failed to get rule: %w", err)
	}

	var rule domain.AutomatedMessageRule
	if err := json.Unmarshal([]byte(data), &rule); err != nil {
		return domain.AutomatedMessageRule{}, fmt.Errorf("redis: failed to unmarshal rule: %w", err)
	}
	return rule, nil
}

// Delete removes the rule of a metric
func (s *RuleStore) Delete(ctx context.Context, metric domain.Metric) error {
	n, err := s.client.HDel(ctx, rulesKey, string(metric)).Result()
	if err != nil {
		return fmt.Errorf("redis: failed to delete rule: %w", err)
	}
	if n == 0 {
		return domain.ErrRuleNotFound
	}
	return nil
}

// List returns all rules. Malformed entries are skipped.
func (s *RuleStore) List(ctx context.Context) (map[domain.Metric]domain.AutomatedMessageRule, error) {
	raw, err := s.client.HGetAll(ctx, rulesKey).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: failed to list rules: %w", err)
	}

	out := make(map[domain.Metric]domain.AutomatedMessageRule, len(raw))
	for field, data := range raw {
		var rule domain.AutomatedMessageRule
		if err := json.Unmarshal([]byte(data), &rule); err != nil {
			continue
		}
		out[domain.Metric(field)] = rule
	}
	return out, nil
}

// Health pings the server
func (s *RuleStore) Health(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: health check failed: %w", err)
	}
	return nil
}

// Close releases the connection pool
func (s *RuleStore) Close() error {
	return s.client.Close()
}
