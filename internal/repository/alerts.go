package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"vital-monitor/internal/models"
)

// AlertsRepository is the append-only alert log.
type AlertsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAlertsRepository creates an alerts repository.
func NewAlertsRepository(db *sql.DB, logger *zap.Logger) *AlertsRepository {
	return &AlertsRepository{
		db:     db,
		logger: logger,
	}
}

// AppendAlert inserts one classified alert.
func (r *AlertsRepository) AppendAlert(ctx context.Context, alert *models.Alert) error {
	if alert == nil {
		return fmt.Errorf("alert is required")
	}
	if alert.AlertID == "" {
		return fmt.Errorf("alert_id is required")
	}
	if alert.Type == "" {
		return fmt.Errorf("alert_type is required")
	}

	query := `
		INSERT INTO alerts (
			alert_id,
			timestamp,
			alert_type,
			message,
			severity
		) VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.ExecContext(ctx, query,
		alert.AlertID,
		alert.Timestamp,
		string(alert.Type),
		alert.Message,
		string(alert.Severity),
	)
	if err != nil {
		return fmt.Errorf("failed to insert alert: %w", err)
	}

	return nil
}

// QueryAlerts returns the most recent limit alerts, newest first.
func (r *AlertsRepository) QueryAlerts(ctx context.Context, limit int) ([]models.Alert, error) {
	if limit < 1 {
		return nil, fmt.Errorf("limit must be >= 1, got %d", limit)
	}

	query := `
		SELECT
			alert_id,
			timestamp,
			alert_type,
			message,
			severity
		FROM alerts
		ORDER BY timestamp DESC, id DESC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []models.Alert
	for rows.Next() {
		var a models.Alert
		var alertType, severity string
		if err := rows.Scan(
			&a.AlertID,
			&a.Timestamp,
			&alertType,
			&a.Message,
			&severity,
		); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		a.Type = models.AlertType(alertType)
		a.Severity = models.Severity(severity)
		alerts = append(alerts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate alerts: %w", err)
	}

	return alerts, nil
}
