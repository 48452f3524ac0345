package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// EnsureSchema creates the record-store tables when they do not exist.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS measurements (
			id BIGSERIAL PRIMARY KEY,
			timestamp TIMESTAMPTZ NOT NULL,
			spo2 INTEGER NOT NULL,
			heart_rate INTEGER NOT NULL,
			respiratory_rate INTEGER NOT NULL,
			temperature DOUBLE PRECISION NOT NULL,
			systolic_bp INTEGER NOT NULL,
			diastolic_bp INTEGER NOT NULL,
			activity_level TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS symptoms (
			id BIGSERIAL PRIMARY KEY,
			timestamp TIMESTAMPTZ NOT NULL,
			symptom TEXT NOT NULL,
			severity INTEGER NOT NULL,
			notes TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS alerts (
			id BIGSERIAL PRIMARY KEY,
			alert_id TEXT NOT NULL UNIQUE,
			timestamp TIMESTAMPTZ NOT NULL,
			alert_type TEXT NOT NULL,
			message TEXT NOT NULL,
			severity TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_measurements_timestamp ON measurements (timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_timestamp ON alerts (timestamp)`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}
