package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"vital-monitor/internal/config"
	"vital-monitor/internal/dispatcher"
	"vital-monitor/internal/evaluator"
	"vital-monitor/internal/ingest"
	"vital-monitor/internal/models"
	"vital-monitor/internal/report"
	"vital-monitor/internal/repository"
	"vital-monitor/internal/sink"
	"vital-monitor/internal/window"
)

// MonitorService wires the rolling window, evaluators, dispatcher, record
// store and sinks into the single-subject monitoring loop.
type MonitorService struct {
	config      *config.Config
	db          *sql.DB
	redisClient *redis.Client
	logger      *zap.Logger

	window           *window.Window
	evaluator        *evaluator.Evaluator
	dispatcher       *dispatcher.Dispatcher
	measurementsRepo *repository.MeasurementsRepository
	symptomsRepo     *repository.SymptomsRepository
	alertsRepo       *repository.AlertsRepository
	mqttSource       *ingest.MQTTSource
}

// NewMonitorService creates the service and its collaborators.
func NewMonitorService(cfg *config.Config, logger *zap.Logger) (*MonitorService, error) {
	// 1. Database connection
	db, err := sql.Open("postgres", buildDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if err := repository.EnsureSchema(context.Background(), db); err != nil {
		return nil, err
	}

	// 2. Redis connection (only when a redis sink is configured)
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			return nil, fmt.Errorf("failed to ping redis: %w", err)
		}
	}

	// 3. Repository layer
	measurementsRepo := repository.NewMeasurementsRepository(db, logger)
	symptomsRepo := repository.NewSymptomsRepository(db, logger)
	alertsRepo := repository.NewAlertsRepository(db, logger)

	// 4. Alert sinks
	sinks := []sink.Sink{sink.NewLogSink(logger)}
	if redisClient != nil {
		cacheKey := cfg.Alerts.CacheKeyPrefix + cfg.Subject.ID + ":alerts"
		sinks = append(sinks, sink.NewRedisSink(
			redisClient,
			cfg.Alerts.Stream,
			cacheKey,
			time.Duration(cfg.Alerts.CacheTTLSec)*time.Second,
			logger,
		))
	}
	if cfg.Webhook.Enabled && cfg.Webhook.URL != "" {
		sinks = append(sinks, sink.NewWebhookSink(
			cfg.Webhook.URL,
			time.Duration(cfg.Webhook.TimeoutSec)*time.Second,
			logger,
		))
	}

	s := &MonitorService{
		config:           cfg,
		db:               db,
		redisClient:      redisClient,
		logger:           logger,
		window:           window.New(cfg.Prediction.WindowSize),
		evaluator:        evaluator.NewEvaluator(cfg, logger),
		measurementsRepo: measurementsRepo,
		symptomsRepo:     symptomsRepo,
		alertsRepo:       alertsRepo,
	}
	s.dispatcher = dispatcher.New(
		alertsRepo,
		sinks,
		cfg.Alerts.RecentSize,
		time.Duration(cfg.Alerts.SinkTimeoutSec)*time.Second,
		logger,
	)

	// 5. Measurement transport
	if cfg.MQTT.Enabled {
		source, err := ingest.NewMQTTSource(cfg, logger)
		if err != nil {
			return nil, err
		}
		s.mqttSource = source
	}

	return s, nil
}

// IngestMeasurement is the single-writer ingestion path: validate, append
// to the rolling window and the store, then run the synchronous threshold
// rules. InvalidMeasurement and OutOfOrderInput are surfaced to the
// caller; a store failure is logged and does not block evaluation.
func (s *MonitorService) IngestMeasurement(ctx context.Context, m models.Measurement) error {
	if err := m.Validate(); err != nil {
		return err
	}

	if err := s.window.Append(m); err != nil {
		return err
	}

	if err := s.measurementsRepo.AppendMeasurement(ctx, &m); err != nil {
		s.logger.Error("Failed to persist measurement",
			zap.Time("measured_at", m.Timestamp),
			zap.Error(err),
		)
	}

	findings, err := s.evaluator.EvaluateMeasurement(m)
	if err != nil {
		return err
	}
	if len(findings) > 0 {
		s.dispatcher.Dispatch(ctx, findings)
	}

	return nil
}

// LogSymptom records a symptom entry and runs the exacerbation rule
// against the latest measurement.
func (s *MonitorService) LogSymptom(ctx context.Context, entry models.SymptomEntry) error {
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("invalid symptom entry: %w", err)
	}

	if err := s.symptomsRepo.AppendSymptom(ctx, &entry); err != nil {
		s.logger.Error("Failed to persist symptom",
			zap.String("symptom", entry.Symptom),
			zap.Error(err),
		)
	}

	var latestPtr *models.Measurement
	if latest, ok := s.window.Latest(); ok {
		latestPtr = &latest
	}

	findings := s.evaluator.EvaluateSymptom(entry, latestPtr)
	if len(findings) > 0 {
		s.dispatcher.Dispatch(ctx, findings)
	}

	return nil
}

// RunAnalyticsCycle runs the forecaster and anomaly scorer over a window
// snapshot and dispatches whatever fired. Insufficient data is an
// ordinary result; the cycle never fails the service.
func (s *MonitorService) RunAnalyticsCycle(ctx context.Context) {
	snapshot := s.window.Snapshot()
	forecast, anomaly, findings := s.evaluator.Analyze(snapshot)

	if len(findings) > 0 {
		s.dispatcher.Dispatch(ctx, findings)
	}

	s.logger.Debug("Analytics cycle completed",
		zap.Int("sample_count", len(snapshot)),
		zap.Bool("forecast_sufficient", forecast.Sufficient),
		zap.Bool("deterioration", forecast.Deterioration),
		zap.Bool("anomaly_sufficient", anomaly.Sufficient),
		zap.Int("outlier_count", anomaly.OutlierCount),
	)
}

// Start runs the measurement transport and the periodic analytics loop
// until the context is cancelled.
func (s *MonitorService) Start(ctx context.Context) error {
	s.logger.Info("Starting monitor service",
		zap.String("subject_id", s.config.Subject.ID),
		zap.Int("analytics_interval", s.config.Analytics.IntervalSec),
	)

	if s.mqttSource != nil {
		if err := s.mqttSource.Start(ctx, s.IngestMeasurement); err != nil {
			return fmt.Errorf("failed to start measurement source: %w", err)
		}
	}

	ticker := time.NewTicker(time.Duration(s.config.Analytics.IntervalSec) * time.Second)
	defer ticker.Stop()

	// Run once immediately.
	s.RunAnalyticsCycle(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Monitor service stopped")
			return nil
		case <-ticker.C:
			s.RunAnalyticsCycle(ctx)
		}
	}
}

// GenerateReport renders the comprehensive text report for the last
// hours of stored measurements.
func (s *MonitorService) GenerateReport(ctx context.Context, hours int) (string, error) {
	if hours < 1 {
		return "", fmt.Errorf("hours must be >= 1, got %d", hours)
	}

	until := time.Now()
	since := until.Add(-time.Duration(hours) * time.Hour)

	measurements, err := s.measurementsRepo.QueryMeasurements(ctx, since, until)
	if err != nil {
		return "", err
	}

	forecast, anomaly, _ := s.evaluator.Analyze(s.window.Snapshot())

	return report.Format(
		s.config.Subject.Name,
		hours,
		measurements,
		s.config.Thresholds.SpO2Low,
		forecast.Message,
		anomaly.Message,
	), nil
}

// ExportReport generates the xlsx export of the last hours of stored
// measurements.
func (s *MonitorService) ExportReport(ctx context.Context, hours int) ([]byte, error) {
	if hours < 1 {
		return nil, fmt.Errorf("hours must be >= 1, got %d", hours)
	}

	until := time.Now()
	since := until.Add(-time.Duration(hours) * time.Hour)

	measurements, err := s.measurementsRepo.QueryMeasurements(ctx, since, until)
	if err != nil {
		return nil, err
	}

	return report.ExportMeasurements(measurements)
}

// RecentAlerts returns up to n alerts from the in-memory retention list.
func (s *MonitorService) RecentAlerts(n int) []models.Alert {
	return s.dispatcher.Recent(n)
}

// Symptoms returns the most recent limit symptom entries from the store.
func (s *MonitorService) Symptoms(ctx context.Context, limit int) ([]models.SymptomEntry, error) {
	return s.symptomsRepo.QuerySymptoms(ctx, limit)
}

// Alerts returns the most recent limit alerts from the store.
func (s *MonitorService) Alerts(ctx context.Context, limit int) ([]models.Alert, error) {
	return s.alertsRepo.QueryAlerts(ctx, limit)
}

// Stop releases external connections.
func (s *MonitorService) Stop() error {
	s.logger.Info("Stopping monitor service")

	if s.mqttSource != nil {
		s.mqttSource.Stop()
	}

	if err := s.db.Close(); err != nil {
		s.logger.Error("Failed to close database",
			zap.Error(err),
		)
	}

	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			s.logger.Error("Failed to close redis",
				zap.Error(err),
			)
		}
	}

	return nil
}

// buildDSN builds the postgres connection string.
func buildDSN(cfg *config.Config) string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Database,
		cfg.Database.SSLMode,
	)
}
