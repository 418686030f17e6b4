package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/fiscus/internal/common"
	"github.com/ternarybob/fiscus/internal/interfaces"
	"github.com/ternarybob/fiscus/internal/models"
)

type mockInstrumentStorage struct {
	instruments map[string]*models.Instrument
	listErr     error
}

func newMockInstrumentStorage(instruments ...*models.Instrument) *mockInstrumentStorage {
	m := &mockInstrumentStorage{instruments: make(map[string]*models.Instrument)}
	for _, inst := range instruments {
		m.instruments[inst.Symbol] = inst
	}
	return m
}

func (m *mockInstrumentStorage) Get(ctx context.Context, symbol string) (*models.Instrument, error) {
	if inst, ok := m.instruments[symbol]; ok {
		return inst, nil
	}
	return nil, interfaces.ErrNotFound
}

func (m *mockInstrumentStorage) List(ctx context.Context, activeOnly bool) ([]*models.Instrument, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []*models.Instrument
	for _, inst := range m.instruments {
		if !activeOnly || inst.Active {
			out = append(out, inst)
		}
	}
	return out, nil
}

func (m *mockInstrumentStorage) Upsert(ctx context.Context, inst *models.Instrument) error {
	m.instruments[inst.Symbol] = inst
	return nil
}

func (m *mockInstrumentStorage) UpdateLive(ctx context.Context, symbol string, price, changePct decimal.Decimal, volume int64, quotedAt time.Time) error {
	return nil
}

func (m *mockInstrumentStorage) MarkEODCaptured(ctx context.Context, symbol, sessionDate string) error {
	return nil
}

func (m *mockInstrumentStorage) SetLastCandleDate(ctx context.Context, symbol string, date time.Time) error {
	inst, ok := m.instruments[symbol]
	if !ok {
		return interfaces.ErrNotFound
	}
	inst.LastCandleDate = &date
	return nil
}

func (m *mockInstrumentStorage) SetLastDeliveryDate(ctx context.Context, symbol string, date time.Time) error {
	inst, ok := m.instruments[symbol]
	if !ok {
		return interfaces.ErrNotFound
	}
	inst.LastDeliveryDate = &date
	return nil
}

type mockSeriesStorage struct {
	candles    map[string]*models.Candle
	deliveries map[string]*models.Delivery
	upsertErr  error
}

func newMockSeriesStorage() *mockSeriesStorage {
	return &mockSeriesStorage{
		candles:    make(map[string]*models.Candle),
		deliveries: make(map[string]*models.Delivery),
	}
}

func (m *mockSeriesStorage) UpsertCandle(ctx context.Context, candle *models.Candle) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.candles[candle.Key()] = candle
	return nil
}

func (m *mockSeriesStorage) UpsertDelivery(ctx context.Context, delivery *models.Delivery) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.deliveries[delivery.Key()] = delivery
	return nil
}

func (m *mockSeriesStorage) GetCandles(ctx context.Context, symbol string, from, to time.Time) ([]*models.Candle, error) {
	return nil, nil
}

func (m *mockSeriesStorage) GetDeliveries(ctx context.Context, symbol string, from, to time.Time) ([]*models.Delivery, error) {
	return nil, nil
}

// mockMarketData serves candles and deliveries from canned per-symbol data,
// recording the windows it was asked for.
type mockMarketData struct {
	candles    map[string][]*models.Candle
	deliveries map[string][]*models.Delivery
	failFor    map[string]error
	windows    map[string][2]time.Time
}

func newMockMarketData() *mockMarketData {
	return &mockMarketData{
		candles:    make(map[string][]*models.Candle),
		deliveries: make(map[string][]*models.Delivery),
		failFor:    make(map[string]error),
		windows:    make(map[string][2]time.Time),
	}
}

func (m *mockMarketData) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	return nil, interfaces.ErrNotFound
}

func (m *mockMarketData) GetCandles(ctx context.Context, symbol string, from, to time.Time) ([]*models.Candle, error) {
	m.windows[symbol] = [2]time.Time{from, to}
	if err, ok := m.failFor[symbol]; ok {
		return nil, err
	}
	var out []*models.Candle
	for _, c := range m.candles[symbol] {
		if !c.Date.Before(from) && !c.Date.After(to) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockMarketData) GetDeliveries(ctx context.Context, symbol string, from, to time.Time) ([]*models.Delivery, error) {
	m.windows[symbol] = [2]time.Time{from, to}
	if err, ok := m.failFor[symbol]; ok {
		return nil, err
	}
	var out []*models.Delivery
	for _, d := range m.deliveries[symbol] {
		if !d.Date.Before(from) && !d.Date.After(to) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *mockMarketData) GetAnnouncements(ctx context.Context, from, to time.Time) ([]*interfaces.Announcement, error) {
	return nil, nil
}

func testCalendar(t *testing.T) *common.MarketCalendar {
	t.Helper()
	cal, err := common.NewMarketCalendar(common.MarketConfig{
		Timezone: "UTC",
		Open:     "09:15",
		Close:    "15:30",
		Weekdays: []int{1, 2, 3, 4, 5},
	})
	require.NoError(t, err)
	return cal
}

func newTestService(t *testing.T, instruments *mockInstrumentStorage, series *mockSeriesStorage, client *mockMarketData, today time.Time) *Service {
	t.Helper()
	svc := NewService(instruments, series, client, testCalendar(t),
		common.SyncConfig{DefaultWindowDays: 7, MaxWindowDays: 30}, arbor.NewLogger())
	svc.now = func() time.Time { return today }
	return svc
}

func candleOn(symbol string, date time.Time, close string) *models.Candle {
	c := decimal.RequireFromString(close)
	return &models.Candle{Symbol: symbol, Date: date, Open: c, High: c, Low: c, Close: c, Volume: 1000}
}

func TestSyncCandlesFirstSync(t *testing.T) {
	today := time.Date(2026, 1, 7, 10, 0, 0, 0, time.UTC)
	instruments := newMockInstrumentStorage(&models.Instrument{Symbol: "FOO", Active: true})
	series := newMockSeriesStorage()
	client := newMockMarketData()
	client.candles["FOO"] = []*models.Candle{
		candleOn("FOO", time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC), "100"),
		candleOn("FOO", time.Date(2026, 1, 6, 0, 0, 0, 0, time.UTC), "101"),
	}

	svc := newTestService(t, instruments, series, client, today)
	rows, err := svc.SyncCandles(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, rows)
	assert.Len(t, series.candles, 2)

	// Default window: [today-6, today].
	window := client.windows["FOO"]
	assert.Equal(t, "2026-01-01", window[0].Format("2006-01-02"))
	assert.Equal(t, "2026-01-07", window[1].Format("2006-01-02"))

	// Sync date advanced to the latest fetched bar.
	inst, err := instruments.Get(context.Background(), "FOO")
	require.NoError(t, err)
	require.NotNil(t, inst.LastCandleDate)
	assert.Equal(t, "2026-01-06", inst.LastCandleDate.Format("2006-01-02"))
}

func TestSyncCandlesUpToDateSkipsFetch(t *testing.T) {
	today := time.Date(2026, 1, 7, 10, 0, 0, 0, time.UTC)
	last := time.Date(2026, 1, 7, 0, 0, 0, 0, time.UTC)
	instruments := newMockInstrumentStorage(&models.Instrument{Symbol: "FOO", Active: true, LastCandleDate: &last})
	client := newMockMarketData()

	svc := newTestService(t, instruments, newMockSeriesStorage(), client, today)
	rows, err := svc.SyncCandles(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, rows)
	assert.Empty(t, client.windows, "no fetch should happen when up to date")
}

func TestSyncCandlesFailingInstrumentSkipped(t *testing.T) {
	today := time.Date(2026, 1, 7, 10, 0, 0, 0, time.UTC)
	instruments := newMockInstrumentStorage(
		&models.Instrument{Symbol: "FOO", Active: true},
		&models.Instrument{Symbol: "BAR", Active: true},
	)
	series := newMockSeriesStorage()
	client := newMockMarketData()
	client.failFor["FOO"] = errors.New("upstream 503")
	client.candles["BAR"] = []*models.Candle{
		candleOn("BAR", time.Date(2026, 1, 6, 0, 0, 0, 0, time.UTC), "50"),
	}

	svc := newTestService(t, instruments, series, client, today)
	rows, err := svc.SyncCandles(context.Background())
	require.NoError(t, err, "one failing instrument must not fail the run")
	assert.Equal(t, 1, rows)

	foo, _ := instruments.Get(context.Background(), "FOO")
	assert.Nil(t, foo.LastCandleDate, "failed instrument keeps its sync state")
}

func TestSyncCandlesAllInstrumentsFailing(t *testing.T) {
	today := time.Date(2026, 1, 7, 10, 0, 0, 0, time.UTC)
	instruments := newMockInstrumentStorage(&models.Instrument{Symbol: "FOO", Active: true})
	client := newMockMarketData()
	client.failFor["FOO"] = errors.New("upstream 503")

	svc := newTestService(t, instruments, newMockSeriesStorage(), client, today)
	_, err := svc.SyncCandles(context.Background())
	assert.Error(t, err)
}

func TestSyncCandlesIgnoresInactiveInstruments(t *testing.T) {
	today := time.Date(2026, 1, 7, 10, 0, 0, 0, time.UTC)
	instruments := newMockInstrumentStorage(&models.Instrument{Symbol: "OLD", Active: false})
	client := newMockMarketData()

	svc := newTestService(t, instruments, newMockSeriesStorage(), client, today)
	rows, err := svc.SyncCandles(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, rows)
	assert.Empty(t, client.windows)
}

func TestSyncDeliveriesAdvancesOwnDate(t *testing.T) {
	today := time.Date(2026, 1, 7, 10, 0, 0, 0, time.UTC)
	lastCandle := time.Date(2026, 1, 7, 0, 0, 0, 0, time.UTC)
	instruments := newMockInstrumentStorage(&models.Instrument{
		Symbol:         "FOO",
		Active:         true,
		LastCandleDate: &lastCandle,
	})
	series := newMockSeriesStorage()
	client := newMockMarketData()
	client.deliveries["FOO"] = []*models.Delivery{
		{
			Symbol:          "FOO",
			Date:            time.Date(2026, 1, 6, 0, 0, 0, 0, time.UTC),
			TradedQuantity:  10000,
			DeliveredQty:    6000,
			DeliveryPercent: decimal.RequireFromString("60.00"),
		},
	}

	svc := newTestService(t, instruments, series, client, today)
	rows, err := svc.SyncDeliveries(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, rows)
	assert.Len(t, series.deliveries, 1)

	inst, _ := instruments.Get(context.Background(), "FOO")
	require.NotNil(t, inst.LastDeliveryDate)
	assert.Equal(t, "2026-01-06", inst.LastDeliveryDate.Format("2006-01-02"))
	// Candle sync state untouched by the delivery job.
	assert.Equal(t, "2026-01-07", inst.LastCandleDate.Format("2006-01-02"))
}

func TestSyncCandlesOverlapIsIdempotent(t *testing.T) {
	today := time.Date(2026, 1, 7, 10, 0, 0, 0, time.UTC)
	last := time.Date(2026, 1, 6, 0, 0, 0, 0, time.UTC)
	instruments := newMockInstrumentStorage(&models.Instrument{Symbol: "FOO", Active: true, LastCandleDate: &last})
	series := newMockSeriesStorage()
	client := newMockMarketData()
	client.candles["FOO"] = []*models.Candle{
		candleOn("FOO", time.Date(2026, 1, 6, 0, 0, 0, 0, time.UTC), "100"),
		candleOn("FOO", time.Date(2026, 1, 7, 0, 0, 0, 0, time.UTC), "102"),
	}

	svc := newTestService(t, instruments, series, client, today)

	// Two consecutive runs over the overlapping window leave one row per day.
	for i := 0; i < 2; i++ {
		_, err := svc.SyncCandles(context.Background())
		require.NoError(t, err)
	}
	assert.Len(t, series.candles, 2)

	// Window starts at the last stored day (re-fetch of a possibly revised bar).
	window := client.windows["FOO"]
	assert.Equal(t, "2026-01-06", window[0].Format("2006-01-02"))
}
