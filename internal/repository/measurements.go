package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"vital-monitor/internal/models"
)

// MeasurementsRepository is the append-only measurement log. Unbounded
// history, distinct from the in-memory rolling window.
type MeasurementsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewMeasurementsRepository creates a measurements repository.
func NewMeasurementsRepository(db *sql.DB, logger *zap.Logger) *MeasurementsRepository {
	return &MeasurementsRepository{
		db:     db,
		logger: logger,
	}
}

// AppendMeasurement inserts one measurement.
func (r *MeasurementsRepository) AppendMeasurement(ctx context.Context, m *models.Measurement) error {
	if m == nil {
		return fmt.Errorf("measurement is required")
	}
	if err := m.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO measurements (
			timestamp,
			spo2,
			heart_rate,
			respiratory_rate,
			temperature,
			systolic_bp,
			diastolic_bp,
			activity_level
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		m.Timestamp,
		m.SpO2,
		m.HeartRate,
		m.RespiratoryRate,
		m.Temperature,
		m.SystolicBP,
		m.DiastolicBP,
		m.ActivityLevel,
	)
	if err != nil {
		return fmt.Errorf("failed to insert measurement: %w", err)
	}

	return nil
}

// QueryMeasurements returns measurements in [since, until], insertion order
// preserved (timestamp ascending, id as tiebreaker).
func (r *MeasurementsRepository) QueryMeasurements(ctx context.Context, since, until time.Time) ([]models.Measurement, error) {
	if until.Before(since) {
		return nil, fmt.Errorf("until must not precede since")
	}

	query := `
		SELECT
			timestamp,
			spo2,
			heart_rate,
			respiratory_rate,
			temperature,
			systolic_bp,
			diastolic_bp,
			activity_level
		FROM measurements
		WHERE timestamp >= $1
		  AND timestamp <= $2
		ORDER BY timestamp, id
	`

	rows, err := r.db.QueryContext(ctx, query, since, until)
	if err != nil {
		return nil, fmt.Errorf("failed to query measurements: %w", err)
	}
	defer rows.Close()

	var measurements []models.Measurement
	for rows.Next() {
		var m models.Measurement
		if err := rows.Scan(
			&m.Timestamp,
			&m.SpO2,
			&m.HeartRate,
			&m.RespiratoryRate,
			&m.Temperature,
			&m.SystolicBP,
			&m.DiastolicBP,
			&m.ActivityLevel,
		); err != nil {
			return nil, fmt.Errorf("failed to scan measurement: %w", err)
		}
		measurements = append(measurements, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate measurements: %w", err)
	}

	return measurements, nil
}
