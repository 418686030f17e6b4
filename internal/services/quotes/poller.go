// Package quotes keeps live prices fresh: an in-memory TTL cache fed by a
// market-hours poller, with a single forced end-of-day capture at close.
package quotes

import (
	"context"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/sync/errgroup"

	"github.com/ternarybob/fiscus/internal/common"
	"github.com/ternarybob/fiscus/internal/interfaces"
	"github.com/ternarybob/fiscus/internal/models"
)

// Poller drives live price collection off the market session state.
//
// It is a two-state machine, Idle and Polling, advanced by Tick. The open
// transition starts polling; the close transition fires exactly one forced
// end-of-day capture per session date.
type Poller struct {
	instruments interfaces.InstrumentStorage
	client      interfaces.MarketDataClient
	calendar    *common.MarketCalendar
	cache       *common.TTLCache[models.Quote]
	config      common.QuotesConfig
	logger      arbor.ILogger

	mu          sync.Mutex
	polling     bool
	inFlight    bool
	eodSession  string // session date of the last end-of-day capture
	lastRefresh time.Time
}

// NewPoller creates a live price poller.
func NewPoller(
	instruments interfaces.InstrumentStorage,
	client interfaces.MarketDataClient,
	calendar *common.MarketCalendar,
	config common.QuotesConfig,
	logger arbor.ILogger,
) *Poller {
	if config.CacheTTL <= 0 {
		config.CacheTTL = 2 * time.Minute
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 5
	}
	if config.StaleThreshold <= 0 {
		config.StaleThreshold = 6 * time.Hour
	}

	return &Poller{
		instruments: instruments,
		client:      client,
		calendar:    calendar,
		cache:       common.NewTTLCache[models.Quote](config.CacheTTL),
		config:      config,
		logger:      logger,
	}
}

// Tick advances the session state machine and returns the number of quotes
// refreshed. Wired to the sub-minute live-price job.
func (p *Poller) Tick(ctx context.Context, now time.Time) (int, error) {
	open := p.calendar.IsOpen(now)
	session := p.calendar.SessionDate(now)

	p.mu.Lock()
	wasPolling := p.polling
	p.polling = open
	// A new session clears the end-of-day guard.
	if open && p.eodSession != "" && p.eodSession != session {
		p.eodSession = ""
	}
	closeCapture := wasPolling && !open && p.eodSession != session
	if closeCapture {
		p.eodSession = session
	}
	p.mu.Unlock()

	switch {
	case open:
		if !wasPolling {
			p.logger.Info().Str("session", session).Msg("📈 Market open, live polling started")
		}
		return p.refreshAll(ctx, now, false)

	case closeCapture:
		p.logger.Info().Str("session", session).Msg("🔔 Market closed, capturing end-of-day quotes")
		rows, err := p.refreshAll(ctx, now, true)
		if err != nil {
			return rows, err
		}
		p.markEODCaptured(ctx, session)
		return rows, nil

	default:
		return 0, nil
	}
}

// KeepAlive is the slow off-hours refresh. It touches the upstream only when
// today's end-of-day capture is missing and the live values have gone stale.
func (p *Poller) KeepAlive(ctx context.Context, now time.Time) (int, error) {
	if p.calendar.IsOpen(now) {
		// The live poller owns market hours.
		return 0, nil
	}

	session := p.calendar.SessionDate(now)

	p.mu.Lock()
	captured := p.eodSession == session
	lastRefresh := p.lastRefresh
	p.mu.Unlock()

	if !captured {
		// Survive restarts: the capture flag also lives on the instruments.
		captured = p.eodCapturedPersisted(ctx, session)
	}
	if captured {
		return 0, nil
	}
	if !lastRefresh.IsZero() && now.Sub(lastRefresh) < p.config.StaleThreshold {
		return 0, nil
	}

	p.logger.Info().Str("session", session).Msg("Quotes stale off-hours, refreshing")
	return p.refreshAll(ctx, now, false)
}

// Quote returns the cached live quote for symbol, falling back to the last
// persisted snapshot when the cache entry has expired.
func (p *Poller) Quote(ctx context.Context, symbol string) (*models.Quote, error) {
	if quote, ok := p.cache.Get(symbol); ok {
		return &quote, nil
	}

	inst, err := p.instruments.Get(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if inst.QuotedAt.IsZero() {
		return nil, interfaces.ErrNotFound
	}

	return &models.Quote{
		Symbol:        inst.Symbol,
		LastPrice:     inst.LastPrice,
		ChangePercent: inst.ChangePercent,
		Volume:        inst.Volume,
		QuotedAt:      inst.QuotedAt,
		EndOfDay:      inst.EODCapturedOn == p.calendar.SessionDate(inst.QuotedAt),
	}, nil
}

// refreshAll fetches quotes for every active instrument in bounded batches.
// Symbols whose cached quote is still fresh are skipped unless force is set,
// so the sub-minute tick only touches the upstream once per cache TTL.
// Only one refresh runs at a time; overlapping job firings are dropped.
func (p *Poller) refreshAll(ctx context.Context, now time.Time, force bool) (int, error) {
	p.mu.Lock()
	if p.inFlight {
		p.mu.Unlock()
		p.logger.Debug().Msg("Quote refresh already in flight, skipping")
		return 0, nil
	}
	p.inFlight = true
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.inFlight = false
		p.lastRefresh = now
		p.mu.Unlock()
	}()

	instruments, err := p.instruments.List(ctx, true)
	if err != nil {
		return 0, err
	}

	var (
		countMu   sync.Mutex
		refreshed int
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(p.config.BatchSize)

	scheduled := 0
	for _, inst := range instruments {
		symbol := inst.Symbol
		if !force {
			if _, ok := p.cache.GetAt(symbol, now); ok {
				continue
			}
		}

		if p.config.BatchDelay > 0 && scheduled > 0 && scheduled%p.config.BatchSize == 0 {
			time.Sleep(p.config.BatchDelay)
		}
		scheduled++

		group.Go(func() error {
			quote, err := p.client.GetQuote(groupCtx, symbol)
			if err != nil {
				// Previous live values stay authoritative.
				p.logger.Warn().Err(err).Str("symbol", symbol).Msg("Quote fetch failed, keeping previous values")
				return nil
			}

			quote.EndOfDay = force
			p.cache.SetAt(symbol, *quote, now)

			if err := p.instruments.UpdateLive(groupCtx, symbol, quote.LastPrice, quote.ChangePercent, quote.Volume, quote.QuotedAt); err != nil {
				p.logger.Warn().Err(err).Str("symbol", symbol).Msg("Failed to persist live quote")
				return nil
			}

			countMu.Lock()
			refreshed++
			countMu.Unlock()
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return refreshed, err
	}
	return refreshed, nil
}

// eodCapturedPersisted reports whether every active instrument already has
// an end-of-day capture recorded for the session.
func (p *Poller) eodCapturedPersisted(ctx context.Context, session string) bool {
	instruments, err := p.instruments.List(ctx, true)
	if err != nil || len(instruments) == 0 {
		return false
	}
	for _, inst := range instruments {
		if inst.EODCapturedOn != session {
			return false
		}
	}
	return true
}

func (p *Poller) markEODCaptured(ctx context.Context, session string) {
	instruments, err := p.instruments.List(ctx, true)
	if err != nil {
		p.logger.Warn().Err(err).Msg("Failed to list instruments for end-of-day marking")
		return
	}
	for _, inst := range instruments {
		if err := p.instruments.MarkEODCaptured(ctx, inst.Symbol, session); err != nil {
			p.logger.Warn().Err(err).Str("symbol", inst.Symbol).Msg("Failed to mark end-of-day capture")
		}
	}
}

// CacheLen reports the number of live cache entries, expired included.
func (p *Poller) CacheLen() int {
	return p.cache.Len()
}
