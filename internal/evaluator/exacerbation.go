package evaluator

import (
	"strings"

	"go.uber.org/zap"

	"vital-monitor/internal/config"
	"vital-monitor/internal/models"
)

// ExacerbationCorrelator joins a just-logged symptom with the latest vital
// state under a narrow clinical heuristic: a respiratory symptom at high
// severity while SpO2 is already below the low threshold.
type ExacerbationCorrelator struct {
	config   *config.Config
	symptoms map[string]struct{} // lowercased respiratory symptom set
	logger   *zap.Logger
}

// NewExacerbationCorrelator creates a correlator from the configured
// symptom vocabulary.
func NewExacerbationCorrelator(cfg *config.Config, logger *zap.Logger) *ExacerbationCorrelator {
	symptoms := make(map[string]struct{}, len(cfg.Exacerbation.Symptoms))
	for _, s := range cfg.Exacerbation.Symptoms {
		symptoms[strings.ToLower(s)] = struct{}{}
	}
	return &ExacerbationCorrelator{
		config:   cfg,
		symptoms: symptoms,
		logger:   logger,
	}
}

// Correlate evaluates the rule against the entry and the most recent
// measurement. latest is nil when the window is empty, in which case the
// rule cannot fire.
func (c *ExacerbationCorrelator) Correlate(entry models.SymptomEntry, latest *models.Measurement) []models.Finding {
	if latest == nil {
		return nil
	}

	if _, ok := c.symptoms[strings.ToLower(entry.Symptom)]; !ok {
		return nil
	}
	if entry.Severity < c.config.Exacerbation.MinSeverity {
		return nil
	}
	if latest.SpO2 >= c.config.Thresholds.SpO2Low {
		return nil
	}

	c.logger.Info("Exacerbation rule fired",
		zap.String("symptom", entry.Symptom),
		zap.Int("severity", entry.Severity),
		zap.Int("latest_spo2", latest.SpO2),
	)

	return []models.Finding{{
		Type:    models.AlertExacerbation,
		Message: "Signes d'exacerbation possible",
	}}
}
