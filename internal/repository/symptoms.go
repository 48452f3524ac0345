package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"vital-monitor/internal/models"
)

// SymptomsRepository is the append-only symptom log.
type SymptomsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSymptomsRepository creates a symptoms repository.
func NewSymptomsRepository(db *sql.DB, logger *zap.Logger) *SymptomsRepository {
	return &SymptomsRepository{
		db:     db,
		logger: logger,
	}
}

// AppendSymptom inserts one symptom entry.
func (r *SymptomsRepository) AppendSymptom(ctx context.Context, entry *models.SymptomEntry) error {
	if entry == nil {
		return fmt.Errorf("symptom entry is required")
	}
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("invalid symptom entry: %w", err)
	}

	query := `
		INSERT INTO symptoms (
			timestamp,
			symptom,
			severity,
			notes
		) VALUES ($1, $2, $3, $4)
	`

	_, err := r.db.ExecContext(ctx, query,
		entry.Timestamp,
		entry.Symptom,
		entry.Severity,
		entry.Notes,
	)
	if err != nil {
		return fmt.Errorf("failed to insert symptom: %w", err)
	}

	return nil
}

// QuerySymptoms returns the most recent limit entries, newest first.
func (r *SymptomsRepository) QuerySymptoms(ctx context.Context, limit int) ([]models.SymptomEntry, error) {
	if limit < 1 {
		return nil, fmt.Errorf("limit must be >= 1, got %d", limit)
	}

	query := `
		SELECT
			timestamp,
			symptom,
			severity,
			notes
		FROM symptoms
		ORDER BY timestamp DESC, id DESC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query symptoms: %w", err)
	}
	defer rows.Close()

	var entries []models.SymptomEntry
	for rows.Next() {
		var e models.SymptomEntry
		if err := rows.Scan(
			&e.Timestamp,
			&e.Symptom,
			&e.Severity,
			&e.Notes,
		); err != nil {
			return nil, fmt.Errorf("failed to scan symptom: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate symptoms: %w", err)
	}

	return entries, nil
}
