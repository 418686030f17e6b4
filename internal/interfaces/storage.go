package interfaces

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ternarybob/fiscus/internal/models"
)

// InstrumentStorage persists the tracked instrument universe and its live
// quote fields.
type InstrumentStorage interface {
	Get(ctx context.Context, symbol string) (*models.Instrument, error)
	List(ctx context.Context, activeOnly bool) ([]*models.Instrument, error)
	Upsert(ctx context.Context, instrument *models.Instrument) error

	// UpdateLive writes the live quote fields without touching sync state.
	UpdateLive(ctx context.Context, symbol string, price, changePct decimal.Decimal, volume int64, quotedAt time.Time) error

	// MarkEODCaptured records that the end-of-day snapshot for sessionDate
	// has been taken for this symbol.
	MarkEODCaptured(ctx context.Context, symbol, sessionDate string) error

	SetLastCandleDate(ctx context.Context, symbol string, date time.Time) error
	SetLastDeliveryDate(ctx context.Context, symbol string, date time.Time) error
}

// SeriesStorage persists daily candles and delivery records keyed by
// (symbol, date). Upserts make overlapping sync windows idempotent.
type SeriesStorage interface {
	UpsertCandle(ctx context.Context, candle *models.Candle) error
	UpsertDelivery(ctx context.Context, delivery *models.Delivery) error
	GetCandles(ctx context.Context, symbol string, from, to time.Time) ([]*models.Candle, error)
	GetDeliveries(ctx context.Context, symbol string, from, to time.Time) ([]*models.Delivery, error)
}

// QuarterlyStorage persists denormalized quarterly comparison records.
type QuarterlyStorage interface {
	Get(ctx context.Context, symbol string, fyStart, quarter int) (*models.QuarterlyResult, error)

	// InsertIfAbsent stores the record unless one already exists for the
	// same (symbol, fiscal year, quarter). Returns ErrAlreadyExists when
	// the record was present; the existing record is never overwritten.
	InsertIfAbsent(ctx context.Context, result *models.QuarterlyResult) error

	ListBySymbol(ctx context.Context, symbol string) ([]*models.QuarterlyResult, error)
}

// PublicationStorage tracks detected results announcements.
type PublicationStorage interface {
	Get(ctx context.Context, id string) (*models.ResultPublication, error)
	Upsert(ctx context.Context, pub *models.ResultPublication) error
	ListByStatus(ctx context.Context, status string) ([]*models.ResultPublication, error)
}

// MetricStorage appends durable job run metrics.
type MetricStorage interface {
	Append(ctx context.Context, metric *models.JobMetric) error
	RecentFailures(ctx context.Context, limit int) ([]*models.JobMetric, error)
	PruneOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

// StorageManager aggregates the typed storages over one database.
type StorageManager interface {
	InstrumentStorage() InstrumentStorage
	SeriesStorage() SeriesStorage
	QuarterlyStorage() QuarterlyStorage
	PublicationStorage() PublicationStorage
	MetricStorage() MetricStorage

	// RunGC reclaims value-log space; scheduled alongside metric pruning.
	RunGC() error
	Close() error
}
