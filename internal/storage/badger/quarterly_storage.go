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

// QuarterlyStorage implements the QuarterlyStorage interface for Badger
type QuarterlyStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewQuarterlyStorage creates a new QuarterlyStorage instance
func NewQuarterlyStorage(db *BadgerDB, logger arbor.ILogger) interfaces.QuarterlyStorage {
	return &QuarterlyStorage{
		db:     db,
		logger: logger,
	}
}

func quarterlyKey(symbol string, fyStart, quarter int) string {
	return fmt.Sprintf("%s|%d|Q%d", symbol, fyStart, quarter)
}

// Get retrieves one quarterly record
func (s *QuarterlyStorage) Get(ctx context.Context, symbol string, fyStart, quarter int) (*models.QuarterlyResult, error) {
	var result models.QuarterlyResult
	err := s.db.Store().Get(quarterlyKey(symbol, fyStart, quarter), &result)
	if err == badgerhold.ErrNotFound {
		return nil, interfaces.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get quarterly result: %w", err)
	}

	return &result, nil
}

// InsertIfAbsent stores the record unless one already exists. An existing
// record is never overwritten.
func (s *QuarterlyStorage) InsertIfAbsent(ctx context.Context, result *models.QuarterlyResult) error {
	key := result.Key()

	var existing models.QuarterlyResult
	err := s.db.Store().Get(key, &existing)
	if err == nil {
		return interfaces.ErrAlreadyExists
	}
	if err != badgerhold.ErrNotFound {
		return fmt.Errorf("failed to check quarterly existence: %w", err)
	}

	if result.CreatedAt.IsZero() {
		result.CreatedAt = time.Now()
	}

	if err := s.db.Store().Insert(key, result); err != nil {
		if err == badgerhold.ErrKeyExists {
			return interfaces.ErrAlreadyExists
		}
		return fmt.Errorf("failed to insert quarterly result: %w", err)
	}

	s.logger.Debug().
		Str("symbol", result.Symbol).
		Str("quarter", result.QuarterLabel()).
		Msg("Quarterly result stored")

	return nil
}

// ListBySymbol returns all quarterly records for a symbol, newest fiscal
// year first
func (s *QuarterlyStorage) ListBySymbol(ctx context.Context, symbol string) ([]*models.QuarterlyResult, error) {
	var results []models.QuarterlyResult
	err := s.db.Store().Find(&results,
		badgerhold.Where("Symbol").Eq(symbol).SortBy("FYStart", "Quarter").Reverse())
	if err != nil {
		return nil, fmt.Errorf("failed to list quarterly results: %w", err)
	}

	out := make([]*models.QuarterlyResult, len(results))
	for i := range results {
		out[i] = &results[i]
	}
	return out, nil
}
