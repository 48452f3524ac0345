package sink

import (
	"context"

	"go.uber.org/zap"

	"vital-monitor/internal/models"
)

// Sink forwards classified alerts to an external channel. Delivery failures
// are caught and logged at the dispatcher boundary; they never block
// ingestion of the next measurement.
type Sink interface {
	// Name identifies the sink in logs.
	Name() string
	// Notify forwards one alert. The context bounds delivery latency.
	Notify(ctx context.Context, alert models.Alert) error
}

// LogSink writes alerts to the structured log. Default sink when no
// external channel is configured.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a log-only sink.
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Name() string {
	return "log"
}

func (s *LogSink) Notify(_ context.Context, alert models.Alert) error {
	s.logger.Warn("ALERTE",
		zap.String("alert_id", alert.AlertID),
		zap.String("alert_type", string(alert.Type)),
		zap.String("severity", string(alert.Severity)),
		zap.String("message", alert.Message),
		zap.Time("triggered_at", alert.Timestamp),
	)
	return nil
}
