package models

import (
	"time"
)

// AlertType enumerates the conditions that can produce an alert.
type AlertType string

const (
	AlertSpO2Low               AlertType = "spo2_low"
	AlertHeartRateHigh         AlertType = "heart_rate_high"
	AlertRespiratoryRateHigh   AlertType = "respiratory_rate_high"
	AlertTemperatureHigh       AlertType = "temperature_high"
	AlertExacerbation          AlertType = "exacerbation"
	AlertAnomaly               AlertType = "anomaly"
	AlertForecastDeterioration AlertType = "forecast_deterioration"
)

// Severity levels for classified alerts.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Finding is an in-flight rule or analytic result, before the dispatcher
// classifies and persists it.
type Finding struct {
	Type    AlertType `json:"type"`
	Message string    `json:"message"`
}

// Alert is a persisted, classified finding. Created only by the dispatcher;
// immutable.
type Alert struct {
	AlertID   string    `json:"alert_id" db:"alert_id"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
	Type      AlertType `json:"alert_type" db:"alert_type"`
	Message   string    `json:"message" db:"message"`
	Severity  Severity  `json:"severity" db:"severity"`
}
