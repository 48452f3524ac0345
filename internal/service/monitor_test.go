package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"vital-monitor/internal/config"
	"vital-monitor/internal/dispatcher"
	"vital-monitor/internal/evaluator"
	"vital-monitor/internal/models"
	"vital-monitor/internal/repository"
	"vital-monitor/internal/sink"
	"vital-monitor/internal/window"
)

type fakeSink struct {
	mu     sync.Mutex
	alerts []models.Alert
}

func (f *fakeSink) Name() string { return "fake" }

func (f *fakeSink) Notify(_ context.Context, alert models.Alert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = append(f.alerts, alert)
	return nil
}

func (f *fakeSink) all() []models.Alert {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Alert, len(f.alerts))
	copy(out, f.alerts)
	return out
}

func newTestService(t *testing.T) (*MonitorService, sqlmock.Sqlmock, *fakeSink) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg, err := config.Load("")
	require.NoError(t, err)

	logger := zap.NewNop()
	fs := &fakeSink{}

	s := &MonitorService{
		config:           cfg,
		db:               db,
		logger:           logger,
		window:           window.New(cfg.Prediction.WindowSize),
		evaluator:        evaluator.NewEvaluator(cfg, logger),
		measurementsRepo: repository.NewMeasurementsRepository(db, logger),
		symptomsRepo:     repository.NewSymptomsRepository(db, logger),
		alertsRepo:       repository.NewAlertsRepository(db, logger),
	}
	s.dispatcher = dispatcher.New(
		s.alertsRepo,
		[]sink.Sink{fs},
		cfg.Alerts.RecentSize,
		time.Second,
		logger,
	)

	return s, mock, fs
}

func measurementAt(ts time.Time, spo2 int) models.Measurement {
	return models.Measurement{
		Timestamp:       ts,
		SpO2:            spo2,
		HeartRate:       78,
		RespiratoryRate: 17,
		Temperature:     36.9,
		SystolicBP:      122,
		DiastolicBP:     81,
		ActivityLevel:   models.ActivityRest,
	}
}

func TestIngestMeasurement_NormalNoAlert(t *testing.T) {
	s, mock, fs := newTestService(t)

	mock.ExpectExec(`INSERT INTO measurements`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := s.IngestMeasurement(context.Background(), measurementAt(time.Now(), 96))

	require.NoError(t, err)
	assert.Equal(t, 1, s.window.Len())
	assert.Empty(t, fs.all())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIngestMeasurement_LowSpO2Alert(t *testing.T) {
	s, mock, fs := newTestService(t)

	mock.ExpectExec(`INSERT INTO measurements`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO alerts`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := s.IngestMeasurement(context.Background(), measurementAt(time.Now(), 90))

	require.NoError(t, err)

	alerts := fs.all()
	require.Len(t, alerts, 1)
	assert.Equal(t, models.AlertSpO2Low, alerts[0].Type)
	assert.Equal(t, models.SeverityMedium, alerts[0].Severity)
	assert.Equal(t, "SpO2 basse: 90%", alerts[0].Message)

	recent := s.RecentAlerts(10)
	require.Len(t, recent, 1)
	assert.Equal(t, alerts[0].AlertID, recent[0].AlertID)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIngestMeasurement_InvalidRejected(t *testing.T) {
	s, mock, fs := newTestService(t)

	m := measurementAt(time.Now(), 150)
	err := s.IngestMeasurement(context.Background(), m)

	assert.ErrorIs(t, err, models.ErrInvalidMeasurement)
	assert.Equal(t, 0, s.window.Len())
	assert.Empty(t, fs.all())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIngestMeasurement_OutOfOrderRejected(t *testing.T) {
	s, mock, fs := newTestService(t)

	now := time.Now()

	mock.ExpectExec(`INSERT INTO measurements`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, s.IngestMeasurement(context.Background(), measurementAt(now, 96)))

	err := s.IngestMeasurement(context.Background(), measurementAt(now.Add(-time.Minute), 96))

	assert.ErrorIs(t, err, window.ErrOutOfOrder)
	assert.Equal(t, 1, s.window.Len())
	assert.Empty(t, fs.all())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIngestMeasurement_StoreFailureStillEvaluates(t *testing.T) {
	s, mock, fs := newTestService(t)

	mock.ExpectExec(`INSERT INTO measurements`).
		WillReturnError(fmt.Errorf("connection refused"))
	mock.ExpectExec(`INSERT INTO alerts`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := s.IngestMeasurement(context.Background(), measurementAt(time.Now(), 90))

	require.NoError(t, err)
	assert.Equal(t, 1, s.window.Len())
	require.Len(t, fs.all(), 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLogSymptom_ExacerbationAlert(t *testing.T) {
	s, mock, fs := newTestService(t)

	mock.ExpectExec(`INSERT INTO measurements`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO alerts`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, s.IngestMeasurement(context.Background(), measurementAt(time.Now(), 90)))

	mock.ExpectExec(`INSERT INTO symptoms`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO alerts`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	entry := models.SymptomEntry{
		Timestamp: time.Now(),
		Symptom:   "essoufflement",
		Severity:  8,
	}
	require.NoError(t, s.LogSymptom(context.Background(), entry))

	alerts := fs.all()
	require.Len(t, alerts, 2)
	assert.Equal(t, models.AlertExacerbation, alerts[1].Type)
	assert.Equal(t, models.SeverityHigh, alerts[1].Severity)
	assert.Equal(t, "Signes d'exacerbation possible", alerts[1].Message)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLogSymptom_EmptyWindowNoAlert(t *testing.T) {
	s, mock, fs := newTestService(t)

	mock.ExpectExec(`INSERT INTO symptoms`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	entry := models.SymptomEntry{
		Timestamp: time.Now(),
		Symptom:   "essoufflement",
		Severity:  9,
	}
	require.NoError(t, s.LogSymptom(context.Background(), entry))

	assert.Empty(t, fs.all())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLogSymptom_InvalidRejected(t *testing.T) {
	s, mock, fs := newTestService(t)

	entry := models.SymptomEntry{
		Timestamp: time.Now(),
		Symptom:   "toux",
		Severity:  11,
	}
	err := s.LogSymptom(context.Background(), entry)

	assert.Error(t, err)
	assert.Empty(t, fs.all())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunAnalyticsCycle_InsufficientData(t *testing.T) {
	s, mock, fs := newTestService(t)

	s.RunAnalyticsCycle(context.Background())

	assert.Empty(t, fs.all())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunAnalyticsCycle_DecliningTrendAlert(t *testing.T) {
	s, mock, fs := newTestService(t)

	base := time.Now().Add(-10 * time.Hour)
	// Steady decline, all readings above the threshold. The fitted trend
	// crosses 92% within the forecast horizon.
	series := []int{98, 98, 97, 97, 96, 96, 95, 95, 94, 94}
	for i, spo2 := range series {
		mock.ExpectExec(`INSERT INTO measurements`).
			WillReturnResult(sqlmock.NewResult(int64(i+1), 1))
		m := measurementAt(base.Add(time.Duration(i)*time.Hour), spo2)
		require.NoError(t, s.IngestMeasurement(context.Background(), m))
	}
	require.Empty(t, fs.all())

	mock.ExpectExec(`INSERT INTO alerts`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	s.RunAnalyticsCycle(context.Background())

	alerts := fs.all()
	require.Len(t, alerts, 1)
	assert.Equal(t, models.AlertForecastDeterioration, alerts[0].Type)
	assert.Equal(t, models.SeverityMedium, alerts[0].Severity)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIngestion_DeterministicReplay(t *testing.T) {
	base := time.Now().Add(-3 * time.Hour)
	series := []int{96, 90, 91}

	run := func() ([]models.Alert, []models.Measurement) {
		s, mock, fs := newTestService(t)
		for i, spo2 := range series {
			mock.ExpectExec(`INSERT INTO measurements`).
				WillReturnResult(sqlmock.NewResult(int64(i+1), 1))
			if spo2 < 92 {
				mock.ExpectExec(`INSERT INTO alerts`).
					WillReturnResult(sqlmock.NewResult(1, 1))
			}
			m := measurementAt(base.Add(time.Duration(i)*time.Hour), spo2)
			require.NoError(t, s.IngestMeasurement(context.Background(), m))
		}
		require.NoError(t, mock.ExpectationsWereMet())
		return fs.all(), s.window.Snapshot()
	}

	alerts1, window1 := run()
	alerts2, window2 := run()

	assert.Equal(t, window1, window2)
	require.Equal(t, len(alerts1), len(alerts2))
	for i := range alerts1 {
		assert.Equal(t, alerts1[i].Type, alerts2[i].Type)
		assert.Equal(t, alerts1[i].Message, alerts2[i].Message)
		assert.Equal(t, alerts1[i].Severity, alerts2[i].Severity)
	}
}

func TestGenerateReport(t *testing.T) {
	s, mock, _ := newTestService(t)

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"timestamp", "spo2", "heart_rate", "respiratory_rate",
		"temperature", "systolic_bp", "diastolic_bp", "activity_level",
	}).
		AddRow(now.Add(-2*time.Hour), 96, 80, 16, 36.8, 120, 80, "repos").
		AddRow(now.Add(-time.Hour), 90, 100, 22, 37.5, 130, 85, "léger")

	mock.ExpectQuery(`SELECT`).
		WillReturnRows(rows)

	text, err := s.GenerateReport(context.Background(), 24)

	require.NoError(t, err)
	assert.Contains(t, text, "RAPPORT COMPLET - Subject")
	assert.Contains(t, text, "Période: 24 heures")
	assert.Contains(t, text, "Épisodes de désaturation (SpO2 < 92%): 1")
	assert.Contains(t, text, "Données insuffisantes pour la prédiction")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGenerateReport_NoData(t *testing.T) {
	s, mock, _ := newTestService(t)

	rows := sqlmock.NewRows([]string{
		"timestamp", "spo2", "heart_rate", "respiratory_rate",
		"temperature", "systolic_bp", "diastolic_bp", "activity_level",
	})
	mock.ExpectQuery(`SELECT`).
		WillReturnRows(rows)

	text, err := s.GenerateReport(context.Background(), 24)

	require.NoError(t, err)
	assert.Equal(t, "Aucune donnée disponible pour cette période", text)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGenerateReport_InvalidHours(t *testing.T) {
	s, _, _ := newTestService(t)

	_, err := s.GenerateReport(context.Background(), 0)
	assert.Error(t, err)
}

func TestExportReport(t *testing.T) {
	s, mock, _ := newTestService(t)

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"timestamp", "spo2", "heart_rate", "respiratory_rate",
		"temperature", "systolic_bp", "diastolic_bp", "activity_level",
	}).
		AddRow(now.Add(-time.Hour), 96, 80, 16, 36.8, 120, 80, "repos")

	mock.ExpectQuery(`SELECT`).
		WillReturnRows(rows)

	data, err := s.ExportReport(context.Background(), 24)

	require.NoError(t, err)
	assert.NotEmpty(t, data)
	require.NoError(t, mock.ExpectationsWereMet())
}
