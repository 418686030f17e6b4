package badger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/fiscus/internal/interfaces"
	"github.com/ternarybob/fiscus/internal/models"
)

// InstrumentStorage implements the InstrumentStorage interface for Badger
type InstrumentStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewInstrumentStorage creates a new InstrumentStorage instance
func NewInstrumentStorage(db *BadgerDB, logger arbor.ILogger) interfaces.InstrumentStorage {
	return &InstrumentStorage{
		db:     db,
		logger: logger,
	}
}

// normalizeSymbol uppercases for case-insensitive lookups
func (s *InstrumentStorage) normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// Get retrieves an instrument by symbol
func (s *InstrumentStorage) Get(ctx context.Context, symbol string) (*models.Instrument, error) {
	key := s.normalizeSymbol(symbol)
	var instrument models.Instrument
	err := s.db.Store().Get(key, &instrument)
	if err == badgerhold.ErrNotFound {
		return nil, interfaces.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get instrument: %w", err)
	}

	return &instrument, nil
}

// List returns instruments ordered by symbol
func (s *InstrumentStorage) List(ctx context.Context, activeOnly bool) ([]*models.Instrument, error) {
	var instruments []models.Instrument
	query := badgerhold.Where("Symbol").Ne("").SortBy("Symbol")
	if activeOnly {
		query = badgerhold.Where("Active").Eq(true).SortBy("Symbol")
	}

	if err := s.db.Store().Find(&instruments, query); err != nil {
		return nil, fmt.Errorf("failed to list instruments: %w", err)
	}

	result := make([]*models.Instrument, len(instruments))
	for i := range instruments {
		result[i] = &instruments[i]
	}
	return result, nil
}

// Upsert inserts or updates an instrument, preserving CreatedAt
func (s *InstrumentStorage) Upsert(ctx context.Context, instrument *models.Instrument) error {
	key := s.normalizeSymbol(instrument.Symbol)
	instrument.Symbol = key
	now := time.Now()
	instrument.UpdatedAt = now
	if instrument.CreatedAt.IsZero() {
		instrument.CreatedAt = now
	}

	var existing models.Instrument
	if err := s.db.Store().Get(key, &existing); err == nil {
		instrument.CreatedAt = existing.CreatedAt
	}

	if err := s.db.Store().Upsert(key, instrument); err != nil {
		return fmt.Errorf("failed to upsert instrument: %w", err)
	}

	return nil
}

// UpdateLive writes live quote fields, leaving sync bookkeeping untouched
func (s *InstrumentStorage) UpdateLive(ctx context.Context, symbol string, price, changePct decimal.Decimal, volume int64, quotedAt time.Time) error {
	key := s.normalizeSymbol(symbol)

	var instrument models.Instrument
	err := s.db.Store().Get(key, &instrument)
	if err == badgerhold.ErrNotFound {
		return interfaces.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load instrument for live update: %w", err)
	}

	instrument.LastPrice = price
	instrument.ChangePercent = changePct
	instrument.Volume = volume
	instrument.QuotedAt = quotedAt
	instrument.UpdatedAt = time.Now()

	if err := s.db.Store().Upsert(key, &instrument); err != nil {
		return fmt.Errorf("failed to update live quote: %w", err)
	}

	return nil
}

// MarkEODCaptured stamps the session date of the last end-of-day capture
func (s *InstrumentStorage) MarkEODCaptured(ctx context.Context, symbol, sessionDate string) error {
	key := s.normalizeSymbol(symbol)

	var instrument models.Instrument
	err := s.db.Store().Get(key, &instrument)
	if err == badgerhold.ErrNotFound {
		return interfaces.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load instrument for EOD mark: %w", err)
	}

	instrument.EODCapturedOn = sessionDate
	instrument.UpdatedAt = time.Now()

	if err := s.db.Store().Upsert(key, &instrument); err != nil {
		return fmt.Errorf("failed to mark EOD captured: %w", err)
	}

	return nil
}

// SetLastCandleDate advances the latest synced candle date
func (s *InstrumentStorage) SetLastCandleDate(ctx context.Context, symbol string, date time.Time) error {
	return s.setSyncDate(symbol, date, func(i *models.Instrument, d time.Time) {
		i.LastCandleDate = &d
	}, func(i *models.Instrument) *time.Time { return i.LastCandleDate })
}

// SetLastDeliveryDate advances the latest synced delivery date
func (s *InstrumentStorage) SetLastDeliveryDate(ctx context.Context, symbol string, date time.Time) error {
	return s.setSyncDate(symbol, date, func(i *models.Instrument, d time.Time) {
		i.LastDeliveryDate = &d
	}, func(i *models.Instrument) *time.Time { return i.LastDeliveryDate })
}

func (s *InstrumentStorage) setSyncDate(symbol string, date time.Time, set func(*models.Instrument, time.Time), get func(*models.Instrument) *time.Time) error {
	key := s.normalizeSymbol(symbol)

	var instrument models.Instrument
	err := s.db.Store().Get(key, &instrument)
	if err == badgerhold.ErrNotFound {
		return interfaces.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to load instrument for sync date: %w", err)
	}

	// Sync dates only move forward; a re-fetch of an older window must not
	// shrink the planner's view of what is already stored.
	if current := get(&instrument); current != nil && !date.After(*current) {
		return nil
	}

	set(&instrument, date)
	instrument.UpdatedAt = time.Now()

	if err := s.db.Store().Upsert(key, &instrument); err != nil {
		return fmt.Errorf("failed to set sync date: %w", err)
	}

	return nil
}
