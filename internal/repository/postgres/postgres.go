package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/volcanowatch/backend/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS risk_snapshots (
	id          BIGSERIAL PRIMARY KEY,
	risk        DOUBLE PRECISION NOT NULL,
	confidence  DOUBLE PRECISION NOT NULL,
	factors     JSONB NOT NULL DEFAULT '{}',
	timestamp   TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS risk_snapshots_timestamp_idx ON risk_snapshots (timestamp);

CREATE TABLE IF NOT EXISTS alerts (
	id                  BIGSERIAL PRIMARY KEY,
	type                TEXT NOT NULL,
	value               DOUBLE PRECISION NOT NULL,
	unit                TEXT NOT NULL,
	severity            TEXT NOT NULL,
	trend               TEXT NOT NULL,
	is_risk_contributor BOOLEAN NOT NULL,
	timestamp           TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS broadcasts (
	id        UUID PRIMARY KEY,
	message   TEXT NOT NULL,
	channels  TEXT[] NOT NULL,
	rule_id   TEXT,
	sent_at   TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS prediction_logs (
	id             BIGSERIAL PRIMARY KEY,
	timeframe      TEXT NOT NULL,
	request_risk   DOUBLE PRECISION NOT NULL,
	projected_risk DOUBLE PRECISION NOT NULL,
	confidence     DOUBLE PRECISION NOT NULL,
	dominant_trend TEXT NOT NULL,
	is_mock        BOOLEAN NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// PostgresRepository implements domain.DataRepository
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

var _ domain.DataRepository = (*PostgresRepository)(nil)

// Migrate creates the tables if they do not exist
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("postgres: failed to migrate schema: %w", err)
	}
	return nil
}

// SaveRiskSnapshot persists one aggregated risk point
func (r *PostgresRepository) SaveRiskSnapshot(ctx context.Context, point domain.HistoricalRisk) error {
	query := `
		INSERT INTO risk_snapshots (risk, confidence, factors, timestamp)
		VALUES ($1, $2, $3, $4)
	`

	factors := point.Factors
	if factors == nil {
		factors = map[domain.Metric]float64{}
	}

	_, err := r.pool.Exec(ctx, query, point.Risk, point.Confidence, factors, point.Timestamp)
	if err != nil {
		return fmt.Errorf("postgres: failed to save risk snapshot: %w", err)
	}

	return nil
}

// SaveAlerts persists the alert cards of one refresh in a single batch
func (r *PostgresRepository) SaveAlerts(ctx context.Context, alerts []domain.Alert) error {
	query := `
		INSERT INTO alerts (type, value, unit, severity, trend, is_risk_contributor, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	batch := &pgx.Batch{}
	for _, a := range alerts {
		batch.Queue(query, a.Type, a.Value, a.Unit, a.Severity, a.Trend, a.IsRiskContributor, a.Timestamp)
	}

	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("postgres: failed to save alerts: %w", err)
	}

	return nil
}

// SaveBroadcast persists a sent broadcast
func (r *PostgresRepository) SaveBroadcast(ctx context.Context, msg domain.BroadcastMessage) error {
	query := `
		INSERT INTO broadcasts (id, message, channels, rule_id, sent_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	channels := make([]string, len(msg.Channels))
	for i, ch := range msg.Channels {
		channels[i] = string(ch)
	}

	var ruleID interface{}
	if msg.RuleID != "" {
		ruleID = msg.RuleID
	}

	_, err := r.pool.Exec(ctx, query, msg.ID, msg.Message, channels, ruleID, msg.SentAt)
	if err != nil {
		return fmt.Errorf("postgres: failed to save broadcast: %w", err)
	}

	return nil
}

// SavePredictionLog persists a prediction request/response to PostgreSQL
func (r *PostgresRepository) SavePredictionLog(ctx context.Context, req domain.PredictionRequest, resp domain.PredictionResponse) error {
	query := `
		INSERT INTO prediction_logs (
			timeframe, request_risk, projected_risk, confidence, dominant_trend, is_mock
		) VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.pool.Exec(ctx, query,
		req.Timeframe, req.Risk, resp.ProjectedRisk, resp.Confidence, resp.DominantTrend, resp.IsMock,
	)
	if err != nil {
		return fmt.Errorf("postgres: failed to save prediction log: %w", err)
	}

	return nil
}

// GetRiskHistory retrieves risk points from PostgreSQL, newest first
func (r *PostgresRepository) GetRiskHistory(ctx context.Context, from, to time.Time) ([]domain.HistoricalRisk, error) {
	query := `
		SELECT risk, confidence, factors, timestamp
		FROM risk_snapshots
		WHERE timestamp BETWEEN $1 AND $2
		ORDER BY timestamp DESC
		LIMIT 1000
	`

	rows, err := r.pool.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to query risk history: %w", err)
	}
	defer rows.Close()

	var results []domain.HistoricalRisk
	for rows.Next() {
		var h domain.HistoricalRisk
		if err := rows.Scan(&h.Risk, &h.Confidence, &h.Factors, &h.Timestamp); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan risk row: %w", err)
		}
		results = append(results, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: failed to iterate risk rows: %w", err)
	}

	return results, nil
}

// Health checks database connectivity
func (r *PostgresRepository) Health(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres: health check failed: %w", err)
	}
	return nil
}
