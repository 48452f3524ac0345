package evaluator

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"vital-monitor/internal/models"
)

// anomalyMinSamples is the minimum window size for outlier scoring.
const anomalyMinSamples = 10

// OutlierModel labels each row of a feature matrix as inlier or outlier.
// Implementations must be deterministic for identical input.
type OutlierModel interface {
	Label(features [][]float64) []bool
}

// centroidDistance is the default OutlierModel: columns are z-normalised
// against the window's own mean and standard deviation, and a row is an
// outlier when its euclidean distance to the centroid exceeds the cutoff
// (in standard-deviation units). The cutoff approximates a ~10%
// contamination assumption on typical vitals windows.
type centroidDistance struct {
	cutoff float64
}

func (m *centroidDistance) Label(features [][]float64) []bool {
	n := len(features)
	labels := make([]bool, n)
	if n == 0 {
		return labels
	}
	dims := len(features[0])

	means := make([]float64, dims)
	stds := make([]float64, dims)
	for d := 0; d < dims; d++ {
		var sum float64
		for i := 0; i < n; i++ {
			sum += features[i][d]
		}
		means[d] = sum / float64(n)

		var variance float64
		for i := 0; i < n; i++ {
			diff := features[i][d] - means[d]
			variance += diff * diff
		}
		stds[d] = math.Sqrt(variance / float64(n))
	}

	for i := 0; i < n; i++ {
		var dist float64
		for d := 0; d < dims; d++ {
			if stds[d] == 0 {
				continue
			}
			z := (features[i][d] - means[d]) / stds[d]
			dist += z * z
		}
		labels[i] = math.Sqrt(dist) > m.cutoff
	}

	return labels
}

// AnomalyResult is the outcome of a multivariate outlier scan.
type AnomalyResult struct {
	Sufficient   bool
	OutlierCount int
	Message      string
}

// AnomalyScorer flags measurements whose joint (spo2, heart_rate,
// respiratory_rate) profile is atypical relative to the rest of the window.
type AnomalyScorer struct {
	model  OutlierModel
	logger *zap.Logger
}

// NewAnomalyScorer creates a scorer with the default deterministic
// centroid-distance model.
func NewAnomalyScorer(logger *zap.Logger) *AnomalyScorer {
	return &AnomalyScorer{
		model:  &centroidDistance{cutoff: 2.0},
		logger: logger,
	}
}

// Score labels the most recent window and reports the outlier count. Fewer
// than anomalyMinSamples samples is an ordinary insufficient-data result.
func (s *AnomalyScorer) Score(samples []models.Measurement) AnomalyResult {
	if len(samples) < anomalyMinSamples {
		return AnomalyResult{
			Sufficient: false,
			Message:    "Données insuffisantes pour la détection d'anomalies",
		}
	}

	recent := samples[len(samples)-anomalyMinSamples:]
	features := make([][]float64, len(recent))
	for i, m := range recent {
		features[i] = []float64{
			float64(m.SpO2),
			float64(m.HeartRate),
			float64(m.RespiratoryRate),
		}
	}

	labels := s.model.Label(features)
	count := 0
	for _, outlier := range labels {
		if outlier {
			count++
		}
	}

	result := AnomalyResult{
		Sufficient:   true,
		OutlierCount: count,
	}
	if count > 2 {
		result.Message = fmt.Sprintf("%d anomalies détectées dans les signes vitaux", count)
	} else {
		result.Message = "Aucune anomalie détectée"
	}

	s.logger.Debug("Anomaly scan computed",
		zap.Int("outlier_count", count),
		zap.Int("sample_count", len(recent)),
	)

	return result
}

// Finding converts an anomaly result into a dispatchable finding, or nil
// when the outlier count stayed at or below the reporting floor.
func (r AnomalyResult) Finding() *models.Finding {
	if !r.Sufficient || r.OutlierCount <= 2 {
		return nil
	}
	return &models.Finding{
		Type:    models.AlertAnomaly,
		Message: r.Message,
	}
}
