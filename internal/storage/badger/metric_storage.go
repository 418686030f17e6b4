package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/fiscus/internal/interfaces"
	"github.com/ternarybob/fiscus/internal/models"
)

// MetricStorage implements the MetricStorage interface for Badger
type MetricStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewMetricStorage creates a new MetricStorage instance
func NewMetricStorage(db *BadgerDB, logger arbor.ILogger) interfaces.MetricStorage {
	return &MetricStorage{
		db:     db,
		logger: logger,
	}
}

// Append stores one job run metric
func (s *MetricStorage) Append(ctx context.Context, metric *models.JobMetric) error {
	if metric.ID == "" {
		metric.ID = uuid.New().String()
	}

	if err := s.db.Store().Insert(metric.ID, metric); err != nil {
		return fmt.Errorf("failed to append job metric: %w", err)
	}
	return nil
}

// RecentFailures returns the most recent failed runs, newest first
func (s *MetricStorage) RecentFailures(ctx context.Context, limit int) ([]*models.JobMetric, error) {
	var metrics []models.JobMetric
	query := badgerhold.Where("Success").Eq(false).SortBy("StartedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := s.db.Store().Find(&metrics, query); err != nil {
		return nil, fmt.Errorf("failed to list recent failures: %w", err)
	}

	result := make([]*models.JobMetric, len(metrics))
	for i := range metrics {
		result[i] = &metrics[i]
	}
	return result, nil
}

// PruneOlderThan deletes metrics started before cutoff and returns the count
func (s *MetricStorage) PruneOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	var stale []models.JobMetric
	if err := s.db.Store().Find(&stale, badgerhold.Where("StartedAt").Lt(cutoff)); err != nil {
		return 0, fmt.Errorf("failed to find stale metrics: %w", err)
	}

	deleted := 0
	for _, metric := range stale {
		if err := s.db.Store().Delete(metric.ID, &models.JobMetric{}); err != nil {
			s.logger.Warn().Str("id", metric.ID).Err(err).Msg("Failed to delete metric during prune")
			continue
		}
		deleted++
	}

	s.logger.Debug().Int("deleted", deleted).Msg("Pruned job metrics")
	return deleted, nil
}
