package dispatcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"vital-monitor/internal/models"
	"vital-monitor/internal/sink"
)

type fakeStore struct {
	alerts []models.Alert
	err    error
}

func (s *fakeStore) AppendAlert(_ context.Context, alert *models.Alert) error {
	if s.err != nil {
		return s.err
	}
	s.alerts = append(s.alerts, *alert)
	return nil
}

type fakeSink struct {
	notified []models.Alert
	err      error
}

func (s *fakeSink) Name() string { return "fake" }

func (s *fakeSink) Notify(_ context.Context, alert models.Alert) error {
	if s.err != nil {
		return s.err
	}
	s.notified = append(s.notified, alert)
	return nil
}

func newTestDispatcher(store *fakeStore, sinks ...sink.Sink) *Dispatcher {
	return New(store, sinks, 5, time.Second, zap.NewNop())
}

func TestDispatch_PersistsClassifiesAndForwards(t *testing.T) {
	store := &fakeStore{}
	snk := &fakeSink{}
	d := newTestDispatcher(store, snk)

	findings := []models.Finding{
		{Type: models.AlertSpO2Low, Message: "SpO2 basse: 89%"},
		{Type: models.AlertExacerbation, Message: "Signes d'exacerbation possible"},
	}

	alerts := d.Dispatch(context.Background(), findings)
	require.Len(t, alerts, 2)

	// Exactly one persisted alert per finding, with the fixed severity
	// mapping.
	require.Len(t, store.alerts, 2)
	assert.Equal(t, models.SeverityMedium, store.alerts[0].Severity)
	assert.Equal(t, models.SeverityHigh, store.alerts[1].Severity)
	assert.Equal(t, models.AlertSpO2Low, store.alerts[0].Type)
	assert.Equal(t, models.AlertExacerbation, store.alerts[1].Type)
	assert.NotEmpty(t, store.alerts[0].AlertID)

	require.Len(t, snk.notified, 2)
	assert.Equal(t, store.alerts[0].AlertID, snk.notified[0].AlertID)
}

func TestDispatch_AllNonExacerbationTypesAreMedium(t *testing.T) {
	store := &fakeStore{}
	d := newTestDispatcher(store)

	types := []models.AlertType{
		models.AlertSpO2Low,
		models.AlertHeartRateHigh,
		models.AlertRespiratoryRateHigh,
		models.AlertTemperatureHigh,
		models.AlertAnomaly,
		models.AlertForecastDeterioration,
	}
	for _, typ := range types {
		d.Dispatch(context.Background(), []models.Finding{{Type: typ, Message: "m"}})
	}

	require.Len(t, store.alerts, len(types))
	for _, alert := range store.alerts {
		assert.Equal(t, models.SeverityMedium, alert.Severity)
	}
}

func TestDispatch_SinkFailureDoesNotPropagate(t *testing.T) {
	store := &fakeStore{}
	failing := &fakeSink{err: errors.New("smtp unreachable")}
	working := &fakeSink{}
	d := newTestDispatcher(store, failing, working)

	alerts := d.Dispatch(context.Background(), []models.Finding{
		{Type: models.AlertSpO2Low, Message: "SpO2 basse: 89%"},
	})

	// The alert is still persisted and delivered to the healthy sink.
	require.Len(t, alerts, 1)
	assert.Len(t, store.alerts, 1)
	assert.Len(t, working.notified, 1)
}

func TestDispatch_StoreFailureDoesNotDropRemainingFindings(t *testing.T) {
	store := &fakeStore{err: errors.New("db down")}
	snk := &fakeSink{}
	d := newTestDispatcher(store, snk)

	alerts := d.Dispatch(context.Background(), []models.Finding{
		{Type: models.AlertSpO2Low, Message: "a"},
		{Type: models.AlertHeartRateHigh, Message: "b"},
	})

	assert.Len(t, alerts, 2)
	assert.Len(t, snk.notified, 2)
}

func TestDispatch_NoDeduplication(t *testing.T) {
	store := &fakeStore{}
	d := newTestDispatcher(store)

	finding := []models.Finding{{Type: models.AlertSpO2Low, Message: "SpO2 basse: 89%"}}
	d.Dispatch(context.Background(), finding)
	d.Dispatch(context.Background(), finding)

	require.Len(t, store.alerts, 2)
	assert.NotEqual(t, store.alerts[0].AlertID, store.alerts[1].AlertID)
}

func TestRecent_BoundedNewestLast(t *testing.T) {
	store := &fakeStore{}
	d := New(store, nil, 3, time.Second, zap.NewNop())

	for i := 0; i < 5; i++ {
		d.Dispatch(context.Background(), []models.Finding{
			{Type: models.AlertHeartRateHigh, Message: "m"},
		})
	}

	recent := d.Recent(10)
	require.Len(t, recent, 3)
	assert.Equal(t, store.alerts[4].AlertID, recent[2].AlertID)

	assert.Len(t, d.Recent(2), 2)
	assert.Nil(t, d.Recent(0))
}
