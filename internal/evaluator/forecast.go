package evaluator

import (
	"fmt"

	"go.uber.org/zap"

	"vital-monitor/internal/config"
	"vital-monitor/internal/models"
)

// TrendModel fits a series indexed 0..n-1 and predicts values at later
// indices. Implementations must be deterministic.
type TrendModel interface {
	Fit(series []float64)
	Predict(index int) float64
}

// leastSquares is the default TrendModel: a closed-form ordinary
// least-squares line over (index, value) pairs.
type leastSquares struct {
	slope     float64
	intercept float64
}

func (m *leastSquares) Fit(series []float64) {
	n := float64(len(series))
	if n == 0 {
		m.slope, m.intercept = 0, 0
		return
	}

	var sumX, sumY, sumXY, sumXX float64
	for i, y := range series {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}

	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		// Single sample: flat line at that value.
		m.slope = 0
		m.intercept = sumY / n
		return
	}

	m.slope = (n*sumXY - sumX*sumY) / denom
	m.intercept = (sumY - m.slope*sumX) / n
}

func (m *leastSquares) Predict(index int) float64 {
	return m.intercept + m.slope*float64(index)
}

// ForecastResult is the outcome of a deterioration forecast. An
// insufficient window is an ordinary result, not an error.
type ForecastResult struct {
	Sufficient    bool
	Deterioration bool
	Predictions   []float64
	Message       string
}

// Forecaster predicts whether SpO2 will cross the configured low threshold
// within the forecast horizon. Purely advisory.
type Forecaster struct {
	config *config.Config
	model  TrendModel
	logger *zap.Logger
}

// NewForecaster creates a forecaster with the default least-squares model.
func NewForecaster(cfg *config.Config, logger *zap.Logger) *Forecaster {
	return &Forecaster{
		config: cfg,
		model:  &leastSquares{},
		logger: logger,
	}
}

// Forecast fits a trend line over the most recent window_size samples of
// SpO2 and extrapolates forecast_hours points past the window.
func (f *Forecaster) Forecast(samples []models.Measurement) ForecastResult {
	windowSize := f.config.Prediction.WindowSize
	hours := f.config.Prediction.ForecastHours
	floor := f.config.Thresholds.SpO2Low

	if len(samples) < windowSize {
		return ForecastResult{
			Sufficient: false,
			Message:    "Données insuffisantes pour la prédiction",
		}
	}

	series := make([]float64, windowSize)
	for i, m := range samples[len(samples)-windowSize:] {
		series[i] = float64(m.SpO2)
	}

	f.model.Fit(series)

	predictions := make([]float64, hours)
	deterioration := false
	for i := 0; i < hours; i++ {
		predictions[i] = f.model.Predict(windowSize + i)
		if predictions[i] < float64(floor) {
			deterioration = true
		}
	}

	result := ForecastResult{
		Sufficient:    true,
		Deterioration: deterioration,
		Predictions:   predictions,
	}
	if deterioration {
		result.Message = fmt.Sprintf(
			"Détérioration prévue dans les %d heures. SpO2 pourrait descendre sous %d%%",
			hours, floor,
		)
	} else {
		result.Message = "Aucune détérioration significative prévue"
	}

	f.logger.Debug("Forecast computed",
		zap.Bool("deterioration", deterioration),
		zap.Int("window_size", windowSize),
		zap.Int("forecast_hours", hours),
	)

	return result
}

// Finding converts a deterioration forecast into a dispatchable finding,
// or nil when nothing fired.
func (r ForecastResult) Finding() *models.Finding {
	if !r.Sufficient || !r.Deterioration {
		return nil
	}
	return &models.Finding{
		Type:    models.AlertForecastDeterioration,
		Message: r.Message,
	}
}
