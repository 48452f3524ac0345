package evaluator

import (
	"go.uber.org/zap"

	"vital-monitor/internal/config"
	"vital-monitor/internal/models"
)

// Evaluator bundles the rule and analytic evaluators behind one surface.
// Threshold and exacerbation checks run synchronously on the ingestion
// path; forecast and anomaly scoring run on a snapshot of the window, on
// demand or on a cadence.
type Evaluator struct {
	config *config.Config
	logger *zap.Logger

	threshold    *ThresholdEvaluator
	forecaster   *Forecaster
	anomaly      *AnomalyScorer
	exacerbation *ExacerbationCorrelator
}

// NewEvaluator creates the evaluator set.
func NewEvaluator(cfg *config.Config, logger *zap.Logger) *Evaluator {
	return &Evaluator{
		config:       cfg,
		logger:       logger,
		threshold:    NewThresholdEvaluator(cfg, logger),
		forecaster:   NewForecaster(cfg, logger),
		anomaly:      NewAnomalyScorer(logger),
		exacerbation: NewExacerbationCorrelator(cfg, logger),
	}
}

// EvaluateMeasurement runs the threshold rule table against a single
// measurement.
func (e *Evaluator) EvaluateMeasurement(m models.Measurement) ([]models.Finding, error) {
	return e.threshold.Evaluate(m)
}

// EvaluateSymptom runs the exacerbation rule for a just-logged symptom
// against the latest measurement (nil when the window is empty).
func (e *Evaluator) EvaluateSymptom(entry models.SymptomEntry, latest *models.Measurement) []models.Finding {
	return e.exacerbation.Correlate(entry, latest)
}

// Analyze runs the forecaster and anomaly scorer over a window snapshot and
// returns both the raw results (for reports) and the findings that fired.
func (e *Evaluator) Analyze(snapshot []models.Measurement) (ForecastResult, AnomalyResult, []models.Finding) {
	forecast := e.forecaster.Forecast(snapshot)
	anomaly := e.anomaly.Score(snapshot)

	var findings []models.Finding
	if f := forecast.Finding(); f != nil {
		findings = append(findings, *f)
	}
	if f := anomaly.Finding(); f != nil {
		findings = append(findings, *f)
	}

	return forecast, anomaly, findings
}
