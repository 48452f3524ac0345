package evaluator

import (
	"fmt"

	"go.uber.org/zap"

	"vital-monitor/internal/config"
	"vital-monitor/internal/models"
)

// ThresholdEvaluator runs the stateless per-measurement rule table. All
// rules are evaluated independently; every matching rule produces a
// finding.
type ThresholdEvaluator struct {
	config *config.Config
	logger *zap.Logger
}

// NewThresholdEvaluator creates a threshold evaluator.
func NewThresholdEvaluator(cfg *config.Config, logger *zap.Logger) *ThresholdEvaluator {
	return &ThresholdEvaluator{
		config: cfg,
		logger: logger,
	}
}

// Evaluate checks a single measurement against the configured thresholds
// and returns the fired findings in rule order. A malformed measurement is
// rejected with models.ErrInvalidMeasurement and not evaluated.
func (e *ThresholdEvaluator) Evaluate(m models.Measurement) ([]models.Finding, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	thresholds := e.config.Thresholds
	var findings []models.Finding

	if m.SpO2 < thresholds.SpO2Low {
		findings = append(findings, models.Finding{
			Type:    models.AlertSpO2Low,
			Message: fmt.Sprintf("SpO2 basse: %d%%", m.SpO2),
		})
	}
	if m.HeartRate > thresholds.HeartRateHigh {
		findings = append(findings, models.Finding{
			Type:    models.AlertHeartRateHigh,
			Message: fmt.Sprintf("Tachycardie: %d bpm", m.HeartRate),
		})
	}
	if m.RespiratoryRate > thresholds.RespiratoryRateHigh {
		findings = append(findings, models.Finding{
			Type:    models.AlertRespiratoryRateHigh,
			Message: fmt.Sprintf("Tachypnée: %d rpm", m.RespiratoryRate),
		})
	}
	if m.Temperature > thresholds.TemperatureHigh {
		findings = append(findings, models.Finding{
			Type:    models.AlertTemperatureHigh,
			Message: fmt.Sprintf("Fièvre: %.1f °C", m.Temperature),
		})
	}

	if len(findings) > 0 {
		e.logger.Debug("Threshold rules fired",
			zap.Int("finding_count", len(findings)),
			zap.Time("measured_at", m.Timestamp),
		)
	}

	return findings, nil
}
