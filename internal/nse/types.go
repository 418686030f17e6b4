package nse

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ternarybob/fiscus/internal/interfaces"
	"github.com/ternarybob/fiscus/internal/models"
)

// APIError represents an error response from the NSE API.
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("NSE API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// RateLimitError represents a rate limit or throttling error.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("NSE rate limit exceeded, retry after %v", e.RetryAfter)
}

// quoteResponse is the shape of /api/quote-equity.
type quoteResponse struct {
	PriceInfo struct {
		LastPrice float64 `json:"lastPrice"`
		PChange   float64 `json:"pChange"`
	} `json:"priceInfo"`
	SecurityWiseDP struct {
		QuantityTraded int64 `json:"quantityTraded"`
	} `json:"securityWiseDP"`
	Metadata struct {
		LastUpdateTime string `json:"lastUpdateTime"`
	} `json:"metadata"`
}

func (r *quoteResponse) toQuote(symbol string) *models.Quote {
	quotedAt := time.Now()
	// "06-Jan-2026 15:29:45" when present
	if t, err := time.Parse("02-Jan-2006 15:04:05", r.Metadata.LastUpdateTime); err == nil {
		quotedAt = t
	}

	return &models.Quote{
		Symbol:        symbol,
		LastPrice:     decimal.NewFromFloat(r.PriceInfo.LastPrice),
		ChangePercent: decimal.NewFromFloat(r.PriceInfo.PChange),
		Volume:        r.SecurityWiseDP.QuantityTraded,
		QuotedAt:      quotedAt,
	}
}

// historicalResponse is the shape of /api/historical/cm/equity.
type historicalResponse struct {
	Data []historicalRow `json:"data"`
}

type historicalRow struct {
	DateStr string  `json:"CH_TIMESTAMP"` // "2026-01-06"
	Open    float64 `json:"CH_OPENING_PRICE"`
	High    float64 `json:"CH_TRADE_HIGH_PRICE"`
	Low     float64 `json:"CH_TRADE_LOW_PRICE"`
	Close   float64 `json:"CH_CLOSING_PRICE"`
	Volume  int64   `json:"CH_TOT_TRADED_QTY"`
}

func (r *historicalRow) toCandle(symbol string) (*models.Candle, error) {
	date, err := time.Parse("2006-01-02", r.DateStr)
	if err != nil {
		return nil, fmt.Errorf("invalid candle date %q: %w", r.DateStr, err)
	}

	return &models.Candle{
		Symbol: symbol,
		Date:   date,
		Open:   decimal.NewFromFloat(r.Open),
		High:   decimal.NewFromFloat(r.High),
		Low:    decimal.NewFromFloat(r.Low),
		Close:  decimal.NewFromFloat(r.Close),
		Volume: r.Volume,
	}, nil
}

// deliveryResponse is the shape of /api/historical/securityArchives.
type deliveryResponse struct {
	Data []deliveryRow `json:"data"`
}

type deliveryRow struct {
	DateStr      string  `json:"COP_TRADED_DT"` // "2026-01-06"
	TradedQty    int64   `json:"COP_TRADED_QTY"`
	DeliveredQty int64   `json:"COP_DELIV_QTY"`
	DeliveryPerc float64 `json:"COP_DELIV_PERC"`
}

func (r *deliveryRow) toDelivery(symbol string) (*models.Delivery, error) {
	date, err := time.Parse("2006-01-02", r.DateStr)
	if err != nil {
		return nil, fmt.Errorf("invalid delivery date %q: %w", r.DateStr, err)
	}

	return &models.Delivery{
		Symbol:          symbol,
		Date:            date,
		TradedQuantity:  r.TradedQty,
		DeliveredQty:    r.DeliveredQty,
		DeliveryPercent: decimal.NewFromFloat(r.DeliveryPerc),
	}, nil
}

// announcementRow is one entry of /api/corporate-announcements.
type announcementRow struct {
	ID          string `json:"seq_id"`
	Symbol      string `json:"symbol"`
	Headline    string `json:"desc"`
	Description string `json:"attchmntText"`
	DateStr     string `json:"an_dt"` // "06-Jan-2026 18:03:12"
	Attachment  string `json:"attchmntFile"`
}

func (r *announcementRow) toAnnouncement() *interfaces.Announcement {
	announcedAt := time.Time{}
	if t, err := time.Parse("02-Jan-2006 15:04:05", r.DateStr); err == nil {
		announcedAt = t
	} else if t, err := time.Parse("2006-01-02 15:04:05", r.DateStr); err == nil {
		announcedAt = t
	}

	return &interfaces.Announcement{
		ID:          r.ID,
		Symbol:      r.Symbol,
		Headline:    r.Headline,
		Description: r.Description,
		AnnouncedAt: announcedAt,
		DocumentURL: r.Attachment,
	}
}
