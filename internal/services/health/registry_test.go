package health

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/fiscus/internal/models"
)

// mockMetricStorage records appended metrics in memory
type mockMetricStorage struct {
	mu      sync.Mutex
	metrics []*models.JobMetric
	fail    bool
}

func (m *mockMetricStorage) Append(ctx context.Context, metric *models.JobMetric) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("storage down")
	}
	m.metrics = append(m.metrics, metric)
	return nil
}

func (m *mockMetricStorage) RecentFailures(ctx context.Context, limit int) ([]*models.JobMetric, error) {
	return nil, nil
}

func (m *mockMetricStorage) PruneOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	return 0, nil
}

func (m *mockMetricStorage) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.metrics)
}

func newTestRegistry(storage *mockMetricStorage) *Registry {
	return NewRegistry(storage, 3, arbor.NewLogger())
}

func TestFailureThenSuccessResetsConsecutive(t *testing.T) {
	registry := newTestRegistry(&mockMetricStorage{})

	registry.MarkStarted("candlesticks")
	registry.MarkFailure("candlesticks", errors.New("upstream 503"), time.Second)
	registry.MarkStarted("candlesticks")
	registry.MarkFailure("candlesticks", errors.New("upstream 503"), time.Second)

	assert.Equal(t, 2, registry.ConsecutiveFailures("candlesticks"))

	registry.MarkStarted("candlesticks")
	registry.MarkSuccess("candlesticks", 2*time.Second, 14)

	record, err := registry.Snapshot("candlesticks")
	require.NoError(t, err)
	assert.Equal(t, 0, record.ConsecutiveFailures)
	assert.Equal(t, 3, record.TotalRuns)
	assert.Equal(t, 2, record.TotalFailures)
	assert.Equal(t, 14, record.LastRows)
	assert.Empty(t, record.LastError)
	assert.False(t, record.Running)
}

func TestShouldAlertAtThreshold(t *testing.T) {
	registry := newTestRegistry(&mockMetricStorage{})

	for i := 0; i < 2; i++ {
		registry.MarkFailure("delivery", errors.New("timeout"), time.Second)
	}
	assert.False(t, registry.ShouldAlert("delivery"))

	registry.MarkFailure("delivery", errors.New("timeout"), time.Second)
	assert.True(t, registry.ShouldAlert("delivery"))
}

func TestResumeClearsConsecutiveFailures(t *testing.T) {
	registry := newTestRegistry(&mockMetricStorage{})

	registry.MarkFailure("quarterly", errors.New("bad gateway"), time.Second)
	registry.MarkFailure("quarterly", errors.New("bad gateway"), time.Second)
	registry.MarkFailure("quarterly", errors.New("bad gateway"), time.Second)
	require.True(t, registry.ShouldAlert("quarterly"))

	registry.Pause("quarterly")
	assert.True(t, registry.IsPaused("quarterly"))

	registry.Resume("quarterly")
	assert.False(t, registry.IsPaused("quarterly"))
	assert.Equal(t, 0, registry.ConsecutiveFailures("quarterly"))
	assert.False(t, registry.ShouldAlert("quarterly"))
}

func TestMetricsPersistedPerRun(t *testing.T) {
	storage := &mockMetricStorage{}
	registry := newTestRegistry(storage)

	registry.MarkSuccess("live price", 100*time.Millisecond, 5)
	registry.MarkFailure("live price", errors.New("boom"), 50*time.Millisecond)

	require.Equal(t, 2, storage.count())
	assert.True(t, storage.metrics[0].Success)
	assert.Equal(t, 5, storage.metrics[0].Rows)
	assert.False(t, storage.metrics[1].Success)
	assert.Equal(t, "boom", storage.metrics[1].Error)
}

func TestMetricPersistenceFailureIsSwallowed(t *testing.T) {
	storage := &mockMetricStorage{fail: true}
	registry := newTestRegistry(storage)

	// Must not panic or propagate
	registry.MarkSuccess("live price", time.Millisecond, 1)

	record, err := registry.Snapshot("live price")
	require.NoError(t, err)
	assert.Equal(t, 1, record.TotalRuns)
}

func TestSnapshotUnknownJob(t *testing.T) {
	registry := newTestRegistry(&mockMetricStorage{})

	_, err := registry.Snapshot("ghost")
	assert.Error(t, err)
}

func TestAvgDurationRolls(t *testing.T) {
	registry := newTestRegistry(&mockMetricStorage{})

	registry.MarkSuccess("candlesticks", 2*time.Second, 1)
	registry.MarkSuccess("candlesticks", 4*time.Second, 1)

	record, err := registry.Snapshot("candlesticks")
	require.NoError(t, err)
	assert.Equal(t, "3s", record.AvgDuration)
}

func TestAvgDurationExcludesFailures(t *testing.T) {
	registry := newTestRegistry(&mockMetricStorage{})

	// A failed run's duration must not dilute the average.
	registry.MarkFailure("candlesticks", errors.New("upstream 503"), time.Second)
	registry.MarkSuccess("candlesticks", 2*time.Second, 1)

	record, err := registry.Snapshot("candlesticks")
	require.NoError(t, err)
	assert.Equal(t, "2s", record.AvgDuration)

	registry.MarkSuccess("candlesticks", 4*time.Second, 1)
	record, err = registry.Snapshot("candlesticks")
	require.NoError(t, err)
	assert.Equal(t, "3s", record.AvgDuration)
}
