package dispatcher

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"vital-monitor/internal/models"
	"vital-monitor/internal/sink"
)

// AlertStore persists classified alerts.
type AlertStore interface {
	AppendAlert(ctx context.Context, alert *models.Alert) error
}

// Dispatcher is the single choke point through which findings become
// persisted, classified alerts. Every finding is stored, retained in the
// in-memory recent list, and forwarded to each sink under a bounded
// timeout. Sink failures are logged and dropped, never propagated.
// Repeated identical findings are never de-duplicated; each evaluation
// cycle that matches a rule produces a new alert.
type Dispatcher struct {
	store       AlertStore
	sinks       []sink.Sink
	sinkTimeout time.Duration
	logger      *zap.Logger

	mu        sync.Mutex
	recent    []models.Alert
	recentCap int
}

// New creates a dispatcher.
func New(store AlertStore, sinks []sink.Sink, recentCap int, sinkTimeout time.Duration, logger *zap.Logger) *Dispatcher {
	if recentCap < 1 {
		recentCap = 1
	}
	return &Dispatcher{
		store:       store,
		sinks:       sinks,
		sinkTimeout: sinkTimeout,
		logger:      logger,
		recentCap:   recentCap,
	}
}

// classify maps a finding type to its fixed severity: exacerbation is
// high, everything else medium.
func classify(t models.AlertType) models.Severity {
	if t == models.AlertExacerbation {
		return models.SeverityHigh
	}
	return models.SeverityMedium
}

// Dispatch turns findings into alerts and returns the created alerts in
// finding order. Store failures are logged and do not stop processing of
// the remaining findings.
func (d *Dispatcher) Dispatch(ctx context.Context, findings []models.Finding) []models.Alert {
	alerts := make([]models.Alert, 0, len(findings))

	for _, finding := range findings {
		alert := models.Alert{
			AlertID:   uuid.New().String(),
			Timestamp: time.Now(),
			Type:      finding.Type,
			Message:   finding.Message,
			Severity:  classify(finding.Type),
		}

		if err := d.store.AppendAlert(ctx, &alert); err != nil {
			d.logger.Error("Failed to persist alert",
				zap.String("alert_id", alert.AlertID),
				zap.String("alert_type", string(alert.Type)),
				zap.Error(err),
			)
			// Continue: a store failure must not drop the remaining findings.
		}

		d.retain(alert)
		d.forward(alert)

		d.logger.Info("Alert dispatched",
			zap.String("alert_id", alert.AlertID),
			zap.String("alert_type", string(alert.Type)),
			zap.String("severity", string(alert.Severity)),
			zap.String("message", alert.Message),
		)

		alerts = append(alerts, alert)
	}

	return alerts
}

// retain appends to the bounded in-memory recent list.
func (d *Dispatcher) retain(alert models.Alert) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.recent = append(d.recent, alert)
	if len(d.recent) > d.recentCap {
		d.recent = d.recent[len(d.recent)-d.recentCap:]
	}
}

// forward delivers the alert to every sink under the configured timeout.
// Failures are reported and dropped.
func (d *Dispatcher) forward(alert models.Alert) {
	for _, s := range d.sinks {
		ctx, cancel := context.WithTimeout(context.Background(), d.sinkTimeout)
		err := s.Notify(ctx, alert)
		cancel()

		if err != nil {
			d.logger.Error("Sink delivery failed",
				zap.String("sink", s.Name()),
				zap.String("alert_id", alert.AlertID),
				zap.Error(err),
			)
		}
	}
}

// Recent returns up to n of the most recent alerts, newest last.
func (d *Dispatcher) Recent(n int) []models.Alert {
	d.mu.Lock()
	defer d.mu.Unlock()

	if n > len(d.recent) {
		n = len(d.recent)
	}
	if n <= 0 {
		return nil
	}
	out := make([]models.Alert, n)
	copy(out, d.recent[len(d.recent)-n:])
	return out
}
