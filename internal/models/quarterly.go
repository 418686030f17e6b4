package models

import (
	"encoding/gob"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	gob.Register(&QuarterlyResult{})
	gob.Register(&FinancialFigures{})
}

// FinancialFigures holds the reported headline metrics for one quarter.
// Nil fields were not reported or could not be extracted.
type FinancialFigures struct {
	Revenue         *decimal.Decimal
	OperatingProfit *decimal.Decimal
	NetProfit       *decimal.Decimal
	EPS             *decimal.Decimal
	Margin          *decimal.Decimal
}

// QuarterlyResult is the denormalized comparison record for one instrument
// and fiscal quarter. Prior-quarter and year-ago figures are copied in at
// build time so a single read serves the whole comparison.
type QuarterlyResult struct {
	Symbol  string
	Quarter int // 1..4 within the fiscal year
	FYStart int // Calendar year the fiscal year starts in

	Current FinancialFigures
	// Previous holds the immediately preceding quarter's figures, if that
	// record existed when this one was built.
	Previous *FinancialFigures
	// YearAgo holds the same quarter of the prior fiscal year, if present.
	YearAgo *FinancialFigures

	// Percent deltas, two decimal places. Nil when the base figure was
	// missing or zero.
	RevenueQoQ         *decimal.Decimal
	RevenueYoY         *decimal.Decimal
	OperatingProfitQoQ *decimal.Decimal
	OperatingProfitYoY *decimal.Decimal
	NetProfitQoQ       *decimal.Decimal
	NetProfitYoY       *decimal.Decimal
	EPSQoQ             *decimal.Decimal
	EPSYoY             *decimal.Decimal
	MarginQoQ          *decimal.Decimal
	MarginYoY          *decimal.Decimal

	SourceURL string
	CreatedAt time.Time
}

// QuarterLabel renders the human label, e.g. "Q2 FY2526".
func (r *QuarterlyResult) QuarterLabel() string {
	return fmt.Sprintf("Q%d FY%02d%02d", r.Quarter, r.FYStart%100, (r.FYStart+1)%100)
}

// Key returns the storage key for this record.
func (r *QuarterlyResult) Key() string {
	return fmt.Sprintf("%s|%d|Q%d", r.Symbol, r.FYStart, r.Quarter)
}
