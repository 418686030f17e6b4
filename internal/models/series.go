package models

import (
	"encoding/gob"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	gob.Register(&Candle{})
	gob.Register(&Delivery{})
}

// Candle is one daily OHLCV bar. The natural key (symbol, date) makes
// re-fetches of overlapping windows idempotent upserts.
type Candle struct {
	Symbol string
	Date   time.Time
	Open   decimal.Decimal
	High   decimal.Decimal
	Low    decimal.Decimal
	Close  decimal.Decimal
	Volume int64
}

// Key returns the storage key for this bar.
func (c *Candle) Key() string {
	return c.Symbol + "|" + c.Date.Format("2006-01-02")
}

// Delivery is one daily delivery-volume record: how much of the traded
// quantity was actually taken into demat accounts rather than intraday.
type Delivery struct {
	Symbol          string
	Date            time.Time
	TradedQuantity  int64
	DeliveredQty    int64
	DeliveryPercent decimal.Decimal
}

// Key returns the storage key for this record.
func (d *Delivery) Key() string {
	return d.Symbol + "|" + d.Date.Format("2006-01-02")
}
