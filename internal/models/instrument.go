package models

import (
	"encoding/gob"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Register types for Badger gob serialization
	gob.Register(&Instrument{})
	gob.Register(&Quote{})
}

// Instrument is a tracked exchange-listed security. Live quote fields are
// updated in place by the price poller; the latest synced dates drive the
// incremental window planner.
type Instrument struct {
	Symbol string `badgerhold:"key"`
	Name   string
	Active bool

	// Live quote snapshot, authoritative until the next successful fetch.
	LastPrice     decimal.Decimal
	ChangePercent decimal.Decimal
	Volume        int64
	QuotedAt      time.Time

	// EODCapturedOn is the session date (YYYY-MM-DD) of the last end-of-day
	// capture. Guards the once-per-session close snapshot.
	EODCapturedOn string

	// Latest synced dates per series, nil until first sync.
	LastCandleDate   *time.Time
	LastDeliveryDate *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Quote is a live price snapshot served from the in-memory cache.
type Quote struct {
	Symbol        string          `json:"symbol"`
	LastPrice     decimal.Decimal `json:"last_price"`
	ChangePercent decimal.Decimal `json:"change_percent"`
	Volume        int64           `json:"volume"`
	QuotedAt      time.Time       `json:"quoted_at"`
	EndOfDay      bool            `json:"end_of_day"`
}
