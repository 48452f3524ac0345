package models

import (
	"fmt"
	"time"
)

// SymptomEntry is a self-reported symptom. Symptom labels are matched
// case-insensitively by the exacerbation rule. Immutable once logged.
type SymptomEntry struct {
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
	Symptom   string    `json:"symptom" db:"symptom"`
	Severity  int       `json:"severity" db:"severity"` // 1-10
	Notes     string    `json:"notes" db:"notes"`
}

// Validate checks required fields.
func (s *SymptomEntry) Validate() error {
	if s.Timestamp.IsZero() {
		return fmt.Errorf("timestamp is required")
	}
	if s.Symptom == "" {
		return fmt.Errorf("symptom is required")
	}
	if s.Severity < 1 || s.Severity > 10 {
		return fmt.Errorf("severity out of range: %d", s.Severity)
	}
	return nil
}
