package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/fiscus/internal/interfaces"
	"github.com/ternarybob/fiscus/internal/models"
)

// SeriesStorage implements the SeriesStorage interface for Badger.
// Candles and deliveries are both keyed by symbol|date, so re-syncing an
// overlapping window is a pure upsert.
type SeriesStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewSeriesStorage creates a new SeriesStorage instance
func NewSeriesStorage(db *BadgerDB, logger arbor.ILogger) interfaces.SeriesStorage {
	return &SeriesStorage{
		db:     db,
		logger: logger,
	}
}

// UpsertCandle inserts or replaces one daily bar
func (s *SeriesStorage) UpsertCandle(ctx context.Context, candle *models.Candle) error {
	if err := s.db.Store().Upsert(candle.Key(), candle); err != nil {
		return fmt.Errorf("failed to upsert candle: %w", err)
	}
	return nil
}

// UpsertDelivery inserts or replaces one daily delivery record
func (s *SeriesStorage) UpsertDelivery(ctx context.Context, delivery *models.Delivery) error {
	if err := s.db.Store().Upsert(delivery.Key(), delivery); err != nil {
		return fmt.Errorf("failed to upsert delivery: %w", err)
	}
	return nil
}

// GetCandles returns bars for a symbol within [from, to], ascending by date
func (s *SeriesStorage) GetCandles(ctx context.Context, symbol string, from, to time.Time) ([]*models.Candle, error) {
	var candles []models.Candle
	err := s.db.Store().Find(&candles,
		badgerhold.Where("Symbol").Eq(symbol).
			And("Date").Ge(from).
			And("Date").Le(to).
			SortBy("Date"))
	if err != nil {
		return nil, fmt.Errorf("failed to get candles: %w", err)
	}

	result := make([]*models.Candle, len(candles))
	for i := range candles {
		result[i] = &candles[i]
	}
	return result, nil
}

// GetDeliveries returns delivery records for a symbol within [from, to],
// ascending by date
func (s *SeriesStorage) GetDeliveries(ctx context.Context, symbol string, from, to time.Time) ([]*models.Delivery, error) {
	var deliveries []models.Delivery
	err := s.db.Store().Find(&deliveries,
		badgerhold.Where("Symbol").Eq(symbol).
			And("Date").Ge(from).
			And("Date").Le(to).
			SortBy("Date"))
	if err != nil {
		return nil, fmt.Errorf("failed to get deliveries: %w", err)
	}

	result := make([]*models.Delivery, len(deliveries))
	for i := range deliveries {
		result[i] = &deliveries[i]
	}
	return result, nil
}
