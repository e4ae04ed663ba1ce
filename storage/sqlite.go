package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"car_tracker/models"
)

type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db, now: time.Now}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS price_snapshots (
		id INTEGER PRIMARY KEY,
		ts DATETIME NOT NULL,
		location TEXT NOT NULL,
		pickup_date TEXT NOT NULL,
		pickup_time TEXT NOT NULL,
		days INTEGER NOT NULL,
		supplier TEXT,
		car TEXT,
		price_text TEXT,
		price_num REAL,
		currency TEXT,
		link TEXT
	);

	CREATE TABLE IF NOT EXISTS bulk_runs (
		id TEXT PRIMARY KEY,
		started_at DATETIME,
		finished_at DATETIME,
		status TEXT,
		units INTEGER DEFAULT 0,
		units_failed INTEGER DEFAULT 0,
		items_found INTEGER DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS run_logs (
		id INTEGER PRIMARY KEY,
		run_id TEXT,
		timestamp DATETIME,
		level TEXT,
		message TEXT,
		location TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_snapshots_search ON price_snapshots(location, days, ts);
	CREATE INDEX IF NOT EXISTS idx_logs_run ON run_logs(run_id, timestamp);
	CREATE INDEX IF NOT EXISTS idx_runs_status ON bulk_runs(status, started_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// SaveSnapshots appends one row per listing in a single transaction.
func (s *SQLiteStore) SaveSnapshots(ctx context.Context, key models.SnapshotKey, currency string, items []models.NormalizedListing) error {
	if len(items) == 0 {
		return nil
	}
	rows := models.Snapshots(key, currency, items, s.now().UTC())

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO price_snapshots (ts, location, pickup_date, pickup_time, days, supplier, car,
			price_text, price_num, currency, link)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, r.TS, r.Location, r.PickupDate, r.PickupTime, r.Days,
			r.Supplier, r.Car, r.PriceText, r.PriceNum, r.Currency, r.Link); err != nil {
			return fmt.Errorf("insert snapshot: %w", err)
		}
	}
	return tx.Commit()
}

// CountSnapshots returns how many observations exist for a search.
func (s *SQLiteStore) CountSnapshots(ctx context.Context, location string, days int) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM price_snapshots WHERE location = ? AND days = ?`, location, days).Scan(&n)
	return n, err
}

func (s *SQLiteStore) CreateRun(ctx context.Context, run *models.BulkRun) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO bulk_runs (id, started_at, status, units)
		VALUES (?, ?, ?, ?)`,
		run.ID, run.StartedAt, run.Status, run.Units)
	return err
}

func (s *SQLiteStore) FinishRun(ctx context.Context, run *models.BulkRun) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE bulk_runs SET finished_at = ?, status = ?, units = ?, units_failed = ?, items_found = ?
		WHERE id = ?`,
		run.FinishedAt, run.Status, run.Units, run.UnitsFailed, run.ItemsFound, run.ID)
	return err
}

func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*models.BulkRun, error) {
	var run models.BulkRun
	var finished sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT id, started_at, finished_at, status, units, units_failed, items_found
		FROM bulk_runs WHERE id = ?`, id).Scan(
		&run.ID, &run.StartedAt, &finished, &run.Status, &run.Units, &run.UnitsFailed, &run.ItemsFound)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if finished.Valid {
		run.FinishedAt = &finished.Time
	}
	return &run, nil
}

func (s *SQLiteStore) Log(ctx context.Context, runID string, level models.LogLevel, message, location string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO run_logs (run_id, timestamp, level, message, location)
		VALUES (?, ?, ?, ?, ?)`,
		runID, s.now(), level, message, location)
	return err
}

func (s *SQLiteStore) RunLogs(ctx context.Context, runID string) ([]models.RunLog, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_id, timestamp, level, message, location
		FROM run_logs WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []models.RunLog
	for rows.Next() {
		var l models.RunLog
		if err := rows.Scan(&l.ID, &l.RunID, &l.Timestamp, &l.Level, &l.Message, &l.Location); err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}
