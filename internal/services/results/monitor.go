package results

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/fiscus/internal/common"
	"github.com/ternarybob/fiscus/internal/interfaces"
	"github.com/ternarybob/fiscus/internal/models"
)

// Monitor scans the announcement feed for results publications of tracked
// instruments and records each one exactly once.
type Monitor struct {
	client       interfaces.MarketDataClient
	instruments  interfaces.InstrumentStorage
	publications interfaces.PublicationStorage
	fiscalCfg    common.FiscalConfig
	lookbackDays int
	logger       arbor.ILogger
	now          func() time.Time
}

// NewMonitor creates a results publication monitor.
func NewMonitor(
	client interfaces.MarketDataClient,
	instruments interfaces.InstrumentStorage,
	publications interfaces.PublicationStorage,
	fiscalCfg common.FiscalConfig,
	lookbackDays int,
	logger arbor.ILogger,
) *Monitor {
	if lookbackDays <= 0 {
		lookbackDays = 3
	}
	return &Monitor{
		client:       client,
		instruments:  instruments,
		publications: publications,
		fiscalCfg:    fiscalCfg,
		lookbackDays: lookbackDays,
		logger:       logger,
		now:          time.Now,
	}
}

// Scan fetches recent announcements and records new results publications.
// Returns the number of publications created this run. Announcements already
// recorded, for untracked symbols, or unrelated to results are skipped.
func (m *Monitor) Scan(ctx context.Context) (int, error) {
	now := m.now()
	from := now.AddDate(0, 0, -m.lookbackDays)

	announcements, err := m.client.GetAnnouncements(ctx, from, now)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch announcements: %w", err)
	}

	tracked, err := m.trackedSymbols(ctx)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, ann := range announcements {
		if !tracked[ann.Symbol] {
			continue
		}

		isResults, keyword := IsResultsAnnouncement(ann.Headline, ann.Description)
		if !isResults {
			continue
		}

		// Re-detection of a known announcement is a no-op.
		if _, err := m.publications.Get(ctx, ann.ID); err == nil {
			continue
		} else if !errors.Is(err, interfaces.ErrNotFound) {
			m.logger.Warn().Err(err).Str("id", ann.ID).Msg("Failed to check publication, skipping")
			continue
		}

		pub := m.buildPublication(ann, keyword, now)
		if err := m.publications.Upsert(ctx, pub); err != nil {
			m.logger.Warn().Err(err).Str("id", ann.ID).Str("symbol", ann.Symbol).Msg("Failed to record publication")
			continue
		}
		created++
	}

	m.logger.Info().
		Int("announcements", len(announcements)).
		Int("created", created).
		Msg("Results scan completed")
	return created, nil
}

func (m *Monitor) buildPublication(ann *interfaces.Announcement, keyword string, now time.Time) *models.ResultPublication {
	pub := &models.ResultPublication{
		ID:          ann.ID,
		Symbol:      ann.Symbol,
		Headline:    ann.Headline,
		AnnouncedAt: ann.AnnouncedAt,
		DocumentURL: ann.DocumentURL,
		Status:      models.PublicationDetected,
		DetectedAt:  now,
	}

	quarter, ok := ClassifyQuarter(ann.Headline+" "+ann.Description, ann.AnnouncedAt, time.Month(m.fiscalCfg.StartMonth))
	if !ok {
		// No guessing: figures filed under a guessed quarter corrupt every
		// comparison that touches it.
		pub.Status = models.PublicationFailed
		pub.FailReason = "unrecognized quarter label"
		m.logger.Warn().
			Str("symbol", ann.Symbol).
			Str("headline", ann.Headline).
			Msg("Results publication has no recognizable quarter label")
		return pub
	}

	pub.Quarter = quarter.Q
	pub.FYStart = quarter.FYStart

	m.logger.Info().
		Str("symbol", ann.Symbol).
		Str("quarter", quarter.Label()).
		Str("keyword", keyword).
		Msg("📋 Results publication detected")
	return pub
}

func (m *Monitor) trackedSymbols(ctx context.Context) (map[string]bool, error) {
	instruments, err := m.instruments.List(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list instruments: %w", err)
	}
	tracked := make(map[string]bool, len(instruments))
	for _, inst := range instruments {
		tracked[inst.Symbol] = true
	}
	return tracked, nil
}
