package models

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidMeasurement indicates a measurement with a missing or
// out-of-range field. Such measurements are rejected before storage and
// before any rule evaluation.
var ErrInvalidMeasurement = errors.New("invalid measurement")

// Activity levels reported by the subject (fixed vocabulary).
const (
	ActivityRest     = "repos"
	ActivityLight    = "léger"
	ActivityModerate = "modéré"
	ActivityHigh     = "élevé"
)

// Measurement is a single multi-channel vital sign reading. Immutable once
// recorded.
type Measurement struct {
	Timestamp       time.Time `json:"timestamp" db:"timestamp"`
	SpO2            int       `json:"spo2" db:"spo2"`                         // percent, 0-100
	HeartRate       int       `json:"heart_rate" db:"heart_rate"`             // bpm
	RespiratoryRate int       `json:"respiratory_rate" db:"respiratory_rate"` // breaths/min
	Temperature     float64   `json:"temperature" db:"temperature"`           // °C
	SystolicBP      int       `json:"systolic_bp" db:"systolic_bp"`           // mmHg
	DiastolicBP     int       `json:"diastolic_bp" db:"diastolic_bp"`         // mmHg
	ActivityLevel   string    `json:"activity_level" db:"activity_level"`
}

// Validate checks required fields and physical ranges.
func (m *Measurement) Validate() error {
	if m.Timestamp.IsZero() {
		return fmt.Errorf("%w: timestamp is required", ErrInvalidMeasurement)
	}
	if m.SpO2 < 0 || m.SpO2 > 100 {
		return fmt.Errorf("%w: spo2 out of range: %d", ErrInvalidMeasurement, m.SpO2)
	}
	if m.HeartRate <= 0 {
		return fmt.Errorf("%w: heart_rate must be positive: %d", ErrInvalidMeasurement, m.HeartRate)
	}
	if m.RespiratoryRate <= 0 {
		return fmt.Errorf("%w: respiratory_rate must be positive: %d", ErrInvalidMeasurement, m.RespiratoryRate)
	}
	if m.Temperature <= 0 {
		return fmt.Errorf("%w: temperature is required", ErrInvalidMeasurement)
	}
	return nil
}
