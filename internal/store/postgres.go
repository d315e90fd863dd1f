package store

import (
	"context"
	_ "embed"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/PratikDhanave/line-webhook-service/internal/models"
)

// schemaSQL is embedded so the service can self-bootstrap its database schema.
//
//go:embed schema.sql
var schemaSQL string

// PostgresStore is the durable delivery journal.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a connection pool and fails fast if DB is unreachable.
func NewPostgresStore(ctx context.Context, dbURL string) (*PostgresStore, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

// EnsureSchema applies schema.sql. Safe to run multiple times.
func (p *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, schemaSQL)
	return err
}

// Ping is used by readiness endpoint to validate DB connectivity.
func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Close shuts down the connection pool.
func (p *PostgresStore) Close() {
	p.pool.Close()
}

// Record stores the delivery and returns first=false when the webhook event id
// was already recorded. The unique key on webhook_event_id makes this safe
// under concurrent redeliveries.
func (p *PostgresStore) Record(ctx context.Context, event models.Event) (bool, error) {
	if event.WebhookEventID == "" {
		return false, errors.New("webhook event id required")
	}

	ts := event.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	// RETURNING 1 only when inserted; duplicates return no rows.
	var one int
	err := p.pool.QueryRow(ctx, `
		INSERT INTO webhook_deliveries(webhook_event_id, event_type, source_id, event_ts, redelivery, payload)
		VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (webhook_event_id) DO NOTHING
		RETURNING 1
	`, event.WebhookEventID, string(event.Type), event.Source.TargetID(), ts, event.Redelivery, []byte(event.Raw)).Scan(&one)

	if err == nil {
		return true, nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	return false, err
}

// CountDeliveries returns the number of recorded deliveries of eventType in [from,to).
func (p *PostgresStore) CountDeliveries(
	ctx context.Context,
	eventType models.EventType,
	from time.Time,
	to time.Time,
) (int64, error) {

	var count int64
	err := p.pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM webhook_deliveries
		WHERE event_type=$1
		  AND event_ts >= $2
		  AND event_ts <  $3
	`, string(eventType), from, to).Scan(&count)

	return count, err
}
