package fiscal

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/fiscus/internal/interfaces"
	"github.com/ternarybob/fiscus/internal/models"
)

// PercentChange returns the percent delta from prev to curr, rounded to two
// decimal places. It is nil (undefined) when either figure is missing or
// the base is zero; callers render nil as "n/a" rather than inventing a
// number.
func PercentChange(curr, prev *decimal.Decimal) *decimal.Decimal {
	if curr == nil || prev == nil || prev.IsZero() {
		return nil
	}

	change := curr.Sub(*prev).Div(*prev).Mul(decimal.NewFromInt(100)).Round(2)
	return &change
}

// Comparator assembles denormalized quarterly comparison records.
type Comparator struct {
	quarterly interfaces.QuarterlyStorage
	logger    arbor.ILogger
}

// NewComparator creates a Comparator over the quarterly store.
func NewComparator(quarterly interfaces.QuarterlyStorage, logger arbor.ILogger) *Comparator {
	return &Comparator{
		quarterly: quarterly,
		logger:    logger,
	}
}

// BuildComparison constructs the record for (symbol, quarter) from freshly
// extracted figures, copying in prior-quarter and year-ago figures where
// those records already exist. Missing history simply leaves the
// corresponding deltas nil.
func (c *Comparator) BuildComparison(ctx context.Context, symbol string, quarter Quarter, figures models.FinancialFigures, sourceURL string) (*models.QuarterlyResult, error) {
	if !quarter.Valid() {
		return nil, fmt.Errorf("invalid quarter Q%d FY%d", quarter.Q, quarter.FYStart)
	}

	result := &models.QuarterlyResult{
		Symbol:    symbol,
		Quarter:   quarter.Q,
		FYStart:   quarter.FYStart,
		Current:   figures,
		SourceURL: sourceURL,
		CreatedAt: time.Now(),
	}

	prev := c.lookup(ctx, symbol, quarter.Previous())
	if prev != nil {
		prevFigures := prev.Current
		result.Previous = &prevFigures
		result.RevenueQoQ = PercentChange(figures.Revenue, prevFigures.Revenue)
		result.OperatingProfitQoQ = PercentChange(figures.OperatingProfit, prevFigures.OperatingProfit)
		result.NetProfitQoQ = PercentChange(figures.NetProfit, prevFigures.NetProfit)
		result.EPSQoQ = PercentChange(figures.EPS, prevFigures.EPS)
		result.MarginQoQ = PercentChange(figures.Margin, prevFigures.Margin)
	}

	yearAgo := c.lookup(ctx, symbol, quarter.YearAgo())
	if yearAgo != nil {
		yearAgoFigures := yearAgo.Current
		result.YearAgo = &yearAgoFigures
		result.RevenueYoY = PercentChange(figures.Revenue, yearAgoFigures.Revenue)
		result.OperatingProfitYoY = PercentChange(figures.OperatingProfit, yearAgoFigures.OperatingProfit)
		result.NetProfitYoY = PercentChange(figures.NetProfit, yearAgoFigures.NetProfit)
		result.EPSYoY = PercentChange(figures.EPS, yearAgoFigures.EPS)
		result.MarginYoY = PercentChange(figures.Margin, yearAgoFigures.Margin)
	}

	return result, nil
}

// Store persists the comparison without overwriting an existing record.
// Returns false when the quarter was already recorded.
func (c *Comparator) Store(ctx context.Context, result *models.QuarterlyResult) (bool, error) {
	err := c.quarterly.InsertIfAbsent(ctx, result)
	if errors.Is(err, interfaces.ErrAlreadyExists) {
		c.logger.Debug().
			Str("symbol", result.Symbol).
			Str("quarter", result.QuarterLabel()).
			Msg("Quarterly result already recorded, skipping")
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (c *Comparator) lookup(ctx context.Context, symbol string, quarter Quarter) *models.QuarterlyResult {
	result, err := c.quarterly.Get(ctx, symbol, quarter.FYStart, quarter.Q)
	if err != nil {
		if !errors.Is(err, interfaces.ErrNotFound) {
			c.logger.Warn().
				Err(err).
				Str("symbol", symbol).
				Str("quarter", quarter.Label()).
				Msg("Failed to load comparison quarter")
		}
		return nil
	}
	return result
}
