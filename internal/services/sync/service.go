package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/fiscus/internal/common"
	"github.com/ternarybob/fiscus/internal/interfaces"
	"github.com/ternarybob/fiscus/internal/models"
)

// Service runs the incremental candle and delivery sync jobs across the
// active instrument universe.
type Service struct {
	instruments interfaces.InstrumentStorage
	series      interfaces.SeriesStorage
	client      interfaces.MarketDataClient
	calendar    *common.MarketCalendar
	config      common.SyncConfig
	logger      arbor.ILogger
	now         func() time.Time
}

// NewService creates a sync service.
func NewService(
	instruments interfaces.InstrumentStorage,
	series interfaces.SeriesStorage,
	client interfaces.MarketDataClient,
	calendar *common.MarketCalendar,
	config common.SyncConfig,
	logger arbor.ILogger,
) *Service {
	return &Service{
		instruments: instruments,
		series:      series,
		client:      client,
		calendar:    calendar,
		config:      config,
		logger:      logger,
		now:         time.Now,
	}
}

// SyncCandles fetches missing daily bars for every active instrument.
// Returns the number of rows upserted. A failing instrument is logged and
// skipped; the run only fails when nothing at all could be synced.
func (s *Service) SyncCandles(ctx context.Context) (int, error) {
	return s.syncSeries(ctx, "candles",
		func(inst *models.Instrument) *time.Time { return inst.LastCandleDate },
		s.syncInstrumentCandles)
}

// SyncDeliveries fetches missing delivery records for every active
// instrument.
func (s *Service) SyncDeliveries(ctx context.Context) (int, error) {
	return s.syncSeries(ctx, "deliveries",
		func(inst *models.Instrument) *time.Time { return inst.LastDeliveryDate },
		s.syncInstrumentDeliveries)
}

type instrumentSyncFunc func(ctx context.Context, symbol string, from, to time.Time) (rows int, latest time.Time, err error)

func (s *Service) syncSeries(ctx context.Context, kind string, lastDate func(*models.Instrument) *time.Time, sync instrumentSyncFunc) (int, error) {
	instruments, err := s.instruments.List(ctx, true)
	if err != nil {
		return 0, fmt.Errorf("failed to list instruments: %w", err)
	}

	today := s.today()
	totalRows := 0
	failed := 0

	for _, inst := range instruments {
		window := PlanWindow(lastDate(inst), today, s.config.DefaultWindowDays, s.config.MaxWindowDays)
		if window == 0 {
			continue
		}

		from := today.AddDate(0, 0, -(window - 1))
		rows, latest, err := sync(ctx, inst.Symbol, from, today)
		if err != nil {
			failed++
			s.logger.Warn().
				Err(err).
				Str("symbol", inst.Symbol).
				Str("kind", kind).
				Msg("Instrument sync failed, skipping")
			continue
		}

		totalRows += rows
		if rows > 0 {
			s.advanceSyncDate(ctx, kind, inst.Symbol, latest)
		}
	}

	s.logger.Info().
		Str("kind", kind).
		Int("instruments", len(instruments)).
		Int("failed", failed).
		Int("rows", totalRows).
		Msg("Series sync completed")

	if totalRows == 0 && failed > 0 && failed == len(instruments) {
		return 0, fmt.Errorf("%s sync failed for all %d instruments", kind, failed)
	}
	return totalRows, nil
}

func (s *Service) syncInstrumentCandles(ctx context.Context, symbol string, from, to time.Time) (int, time.Time, error) {
	candles, err := s.client.GetCandles(ctx, symbol, from, to)
	if err != nil {
		return 0, time.Time{}, err
	}

	rows := 0
	var latest time.Time
	for _, candle := range candles {
		if err := s.series.UpsertCandle(ctx, candle); err != nil {
			s.logger.Warn().Err(err).Str("symbol", symbol).Msg("Failed to upsert candle, skipping row")
			continue
		}
		rows++
		if candle.Date.After(latest) {
			latest = candle.Date
		}
	}
	return rows, latest, nil
}

func (s *Service) syncInstrumentDeliveries(ctx context.Context, symbol string, from, to time.Time) (int, time.Time, error) {
	deliveries, err := s.client.GetDeliveries(ctx, symbol, from, to)
	if err != nil {
		return 0, time.Time{}, err
	}

	rows := 0
	var latest time.Time
	for _, delivery := range deliveries {
		if err := s.series.UpsertDelivery(ctx, delivery); err != nil {
			s.logger.Warn().Err(err).Str("symbol", symbol).Msg("Failed to upsert delivery, skipping row")
			continue
		}
		rows++
		if delivery.Date.After(latest) {
			latest = delivery.Date
		}
	}
	return rows, latest, nil
}

func (s *Service) advanceSyncDate(ctx context.Context, kind, symbol string, latest time.Time) {
	var err error
	switch kind {
	case "candles":
		err = s.instruments.SetLastCandleDate(ctx, symbol, latest)
	case "deliveries":
		err = s.instruments.SetLastDeliveryDate(ctx, symbol, latest)
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("symbol", symbol).Str("kind", kind).Msg("Failed to advance sync date")
	}
}

// today returns the current date in the exchange timezone.
func (s *Service) today() time.Time {
	now := s.now().In(s.calendar.Location())
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
