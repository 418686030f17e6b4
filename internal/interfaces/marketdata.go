package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/fiscus/internal/models"
)

// Announcement is one corporate filing from the upstream exchange feed.
type Announcement struct {
	ID          string
	Symbol      string
	Headline    string
	Description string
	AnnouncedAt time.Time
	DocumentURL string
}

// MarketDataClient is the upstream exchange source. Implementations are
// expected to be rate-limited and session-aware; callers treat every method
// as a blocking network call.
type MarketDataClient interface {
	GetQuote(ctx context.Context, symbol string) (*models.Quote, error)
	GetCandles(ctx context.Context, symbol string, from, to time.Time) ([]*models.Candle, error)
	GetDeliveries(ctx context.Context, symbol string, from, to time.Time) ([]*models.Delivery, error)
	GetAnnouncements(ctx context.Context, from, to time.Time) ([]*Announcement, error)
}
