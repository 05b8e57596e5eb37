package providers

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"

	"msd/internal/models"
	"msd/internal/progress"
	"msd/internal/services"
	"msd/internal/structures"
)

// --- minimal mock for MigrationServiceInterface ---

type metricsTestService struct{}

func (m *metricsTestService) CreateMigration(_ services.CreateMigrationInput) (models.MigrationRecord, error) {
	return models.MigrationRecord{}, nil
}
func (m *metricsTestService) Transition(_ string, _ models.Phase) (models.MigrationRecord, error) {
	return models.MigrationRecord{}, nil
}
func (m *metricsTestService) RecordSnapshot(_ string, _ int64, _ int, _ bool) (models.StorageSnapshot, error) {
	return models.StorageSnapshot{}, nil
}
func (m *metricsTestService) UpdateTrack(_ string, _ models.MediaType, _ int, _ int64, _ models.TrackStatus, _ int) (models.TransferTrack, error) {
	return models.TransferTrack{}, nil
}
func (m *metricsTestService) Complete(_ string) (models.MigrationRecord, error) {
	return models.MigrationRecord{}, nil
}
func (m *metricsTestService) AttachTransfer(_, _ string) error { return nil }
func (m *metricsTestService) PutPerson(_ models.Person)        {}
func (m *metricsTestService) RecordAdoptionEvent(_ string, _ models.Capability, _ models.AdoptionState) (models.AdoptionStatus, error) {
	return models.AdoptionStatus{}, nil
}
func (m *metricsTestService) Migration(_ string) (models.MigrationRecord, error) {
	return models.MigrationRecord{}, nil
}
func (m *metricsTestService) ActiveMigration() (models.MigrationRecord, bool) {
	return models.MigrationRecord{}, false
}
func (m *metricsTestService) Tracks(_ string) (map[models.MediaType]models.TransferTrack, error) {
	return nil, nil
}
func (m *metricsTestService) Snapshots(_ string) ([]models.StorageSnapshot, error) { return nil, nil }
func (m *metricsTestService) Progress(_ string, _ int) (progress.Report, error) {
	return progress.Report{}, nil
}
func (m *metricsTestService) People() []models.Person                        { return nil }
func (m *metricsTestService) PendingFor(_ models.Capability) []models.Person { return nil }
func (m *metricsTestService) AdoptionMatrix() map[string]map[models.Capability]models.AdoptionState {
	return map[string]map[models.Capability]models.AdoptionState{
		"p-test": {models.CapabilityMessaging: models.AdoptionInvited},
	}
}
func (m *metricsTestService) Milestone(_ string, _ int) (models.DayMilestone, bool, error) {
	return models.DayMilestone{}, false, nil
}
func (m *metricsTestService) PutMilestone(_ string, d models.DayMilestone, _ bool) (models.DayMilestone, error) {
	return d, nil
}
func (m *metricsTestService) FinalDay() int                 { return 7 }
func (m *metricsTestService) RejectedWrites() int64         { return 0 }
func (m *metricsTestService) MigrationCount() int           { return 1 }
func (m *metricsTestService) GetSnapshot() models.StorageV2 { return models.StorageV2{Version: 2} }
func (m *metricsTestService) PutData(_ models.StorageV2)    {}

func TestNoopMetrics_WhenDisabled(t *testing.T) {
	conf := &structures.Config{
		Metrics: structures.MetricsConfig{Enabled: false},
	}
	m := NewMetricsProvider(conf, &metricsTestService{})
	_, ok := m.(*noopMetrics)
	assert.True(t, ok, "should return noopMetrics when disabled")

	// Ensure no-op methods don't panic
	m.IncRequestsTotal("/overview", 200)
	m.ObserveRequestDuration("/overview", time.Millisecond)
	m.IncCacheHits()
	m.IncCacheMisses()
	m.ObservePersistenceDuration(time.Millisecond)
}

func TestMetricsProvider_WhenEnabled(t *testing.T) {
	reg := prometheus.NewRegistry()
	prometheus.DefaultRegisterer = reg
	prometheus.DefaultGatherer = reg
	defer func() {
		prometheus.DefaultRegisterer = prometheus.NewRegistry()
		prometheus.DefaultGatherer = prometheus.DefaultRegisterer.(prometheus.Gatherer)
	}()

	conf := &structures.Config{
		Metrics: structures.MetricsConfig{Enabled: true},
	}
	m := NewMetricsProvider(conf, &metricsTestService{})
	_, ok := m.(*MetricsProvider)
	assert.True(t, ok, "should return MetricsProvider when enabled")
}

func TestMetricsProvider_IncrementCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	prometheus.DefaultRegisterer = reg
	prometheus.DefaultGatherer = reg
	defer func() {
		prometheus.DefaultRegisterer = prometheus.NewRegistry()
		prometheus.DefaultGatherer = prometheus.DefaultRegisterer.(prometheus.Gatherer)
	}()

	conf := &structures.Config{
		Metrics: structures.MetricsConfig{Enabled: true},
	}
	m := NewMetricsProvider(conf, &metricsTestService{})

	// These should not panic
	m.IncRequestsTotal("/overview", 200)
	m.IncRequestsTotal("/overview", 404)
	m.ObserveRequestDuration("/overview", 5*time.Millisecond)
	m.IncCacheHits()
	m.IncCacheMisses()
	m.ObservePersistenceDuration(100 * time.Millisecond)
}

func TestHttpStatusBucket(t *testing.T) {
	tests := []struct {
		code     int
		expected string
	}{
		{100, "1xx"},
		{200, "2xx"},
		{201, "2xx"},
		{301, "3xx"},
		{400, "4xx"},
		{404, "4xx"},
		{500, "5xx"},
		{503, "5xx"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, httpStatusBucket(tt.code))
	}
}
