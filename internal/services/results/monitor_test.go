package results

import (
	"context"
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
	symbols []string
}

func (m *mockInstrumentStorage) Get(ctx context.Context, symbol string) (*models.Instrument, error) {
	for _, s := range m.symbols {
		if s == symbol {
			return &models.Instrument{Symbol: s, Active: true}, nil
		}
	}
	return nil, interfaces.ErrNotFound
}

func (m *mockInstrumentStorage) List(ctx context.Context, activeOnly bool) ([]*models.Instrument, error) {
	var out []*models.Instrument
	for _, s := range m.symbols {
		out = append(out, &models.Instrument{Symbol: s, Active: true})
	}
	return out, nil
}

func (m *mockInstrumentStorage) Upsert(ctx context.Context, inst *models.Instrument) error {
	return nil
}

func (m *mockInstrumentStorage) UpdateLive(ctx context.Context, symbol string, price, changePct decimal.Decimal, volume int64, quotedAt time.Time) error {
	return nil
}

func (m *mockInstrumentStorage) MarkEODCaptured(ctx context.Context, symbol, sessionDate string) error {
	return nil
}

func (m *mockInstrumentStorage) SetLastCandleDate(ctx context.Context, symbol string, date time.Time) error {
	return nil
}

func (m *mockInstrumentStorage) SetLastDeliveryDate(ctx context.Context, symbol string, date time.Time) error {
	return nil
}

type mockAnnouncementClient struct {
	announcements []*interfaces.Announcement
	calls         int
}

func (m *mockAnnouncementClient) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	return nil, interfaces.ErrNotFound
}

func (m *mockAnnouncementClient) GetCandles(ctx context.Context, symbol string, from, to time.Time) ([]*models.Candle, error) {
	return nil, nil
}

func (m *mockAnnouncementClient) GetDeliveries(ctx context.Context, symbol string, from, to time.Time) ([]*models.Delivery, error) {
	return nil, nil
}

func (m *mockAnnouncementClient) GetAnnouncements(ctx context.Context, from, to time.Time) ([]*interfaces.Announcement, error) {
	m.calls++
	return m.announcements, nil
}

func announcement(id, symbol, headline string) *interfaces.Announcement {
	return &interfaces.Announcement{
		ID:          id,
		Symbol:      symbol,
		Headline:    headline,
		AnnouncedAt: time.Date(2025, 10, 20, 9, 0, 0, 0, time.UTC),
		DocumentURL: "https://example.com/" + id + ".pdf",
	}
}

func newTestMonitor(client *mockAnnouncementClient, pubs *mockPublicationStorage, symbols ...string) *Monitor {
	return NewMonitor(client, &mockInstrumentStorage{symbols: symbols}, pubs,
		common.FiscalConfig{StartMonth: 4}, 3, arbor.NewLogger())
}

func TestScanDetectsResultsPublications(t *testing.T) {
	ctx := context.Background()
	pubs := newMockPublicationStorage()
	client := &mockAnnouncementClient{announcements: []*interfaces.Announcement{
		announcement("ann-1", "FOO", "Unaudited Financial Results Q2 FY2526"),
		announcement("ann-2", "FOO", "Investor Presentation November 2025"),
		announcement("ann-3", "UNTRACKED", "Quarterly Results Q2 FY2526"),
	}}
	monitor := newTestMonitor(client, pubs, "FOO")

	created, err := monitor.Scan(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	pub, err := pubs.Get(ctx, "ann-1")
	require.NoError(t, err)
	assert.Equal(t, models.PublicationDetected, pub.Status)
	assert.Equal(t, 2, pub.Quarter)
	assert.Equal(t, 2025, pub.FYStart)
}

func TestScanIsIdempotent(t *testing.T) {
	ctx := context.Background()
	pubs := newMockPublicationStorage()
	client := &mockAnnouncementClient{announcements: []*interfaces.Announcement{
		announcement("ann-1", "FOO", "Quarterly Results Q1 FY2526"),
	}}
	monitor := newTestMonitor(client, pubs, "FOO")

	created, err := monitor.Scan(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	// Mark processed, then rescan: the record must survive untouched.
	pub, _ := pubs.Get(ctx, "ann-1")
	pub.Status = models.PublicationProcessed
	require.NoError(t, pubs.Upsert(ctx, pub))

	created, err = monitor.Scan(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, created)

	pub, _ = pubs.Get(ctx, "ann-1")
	assert.Equal(t, models.PublicationProcessed, pub.Status)
}

func TestScanUnrecognizedLabelMarksFailed(t *testing.T) {
	ctx := context.Background()
	pubs := newMockPublicationStorage()
	client := &mockAnnouncementClient{announcements: []*interfaces.Announcement{
		announcement("ann-odd", "FOO", "Unaudited Financial Results approved by the Board"),
	}}
	monitor := newTestMonitor(client, pubs, "FOO")

	created, err := monitor.Scan(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	pub, err := pubs.Get(ctx, "ann-odd")
	require.NoError(t, err)
	assert.Equal(t, models.PublicationFailed, pub.Status)
	assert.Equal(t, "unrecognized quarter label", pub.FailReason)
	assert.Equal(t, 0, pub.Quarter, "no silent default to the current quarter")
}
