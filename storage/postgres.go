package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"car_tracker/models"
)

var snapshotColumns = []string{
	"ts", "location", "pickup_date", "pickup_time", "days", "supplier", "car",
	"price_text", "price_num", "currency", "link",
}

// PostgresStore mirrors price snapshots into Postgres for reporting.
type PostgresStore struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = 30 * time.Minute
	config.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	s := &PostgresStore{pool: pool, now: time.Now}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS price_snapshots (
			id BIGSERIAL PRIMARY KEY,
			ts TIMESTAMPTZ NOT NULL,
			location TEXT NOT NULL,
			pickup_date TEXT NOT NULL,
			pickup_time TEXT NOT NULL,
			days INTEGER NOT NULL,
			supplier TEXT,
			car TEXT,
			price_text TEXT,
			price_num DOUBLE PRECISION,
			currency TEXT,
			link TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_snapshots_search ON price_snapshots(location, days, ts);`)
	return err
}

// SaveSnapshots bulk-loads a batch with COPY.
func (s *PostgresStore) SaveSnapshots(ctx context.Context, key models.SnapshotKey, currency string, items []models.NormalizedListing) error {
	if len(items) == 0 {
		return nil
	}

	snaps := models.Snapshots(key, currency, items, s.now().UTC())
	rows := make([][]any, 0, len(snaps))
	for _, r := range snaps {
		rows = append(rows, []any{
			r.TS, r.Location, r.PickupDate, r.PickupTime, r.Days, r.Supplier, r.Car,
			r.PriceText, r.PriceNum, r.Currency, r.Link,
		})
	}

	_, err := s.pool.CopyFrom(ctx,
		pgx.Identifier{"price_snapshots"},
		snapshotColumns,
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("copy snapshots: %w", err)
	}
	return nil
}
