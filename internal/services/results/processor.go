package results

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/fiscus/internal/interfaces"
	"github.com/ternarybob/fiscus/internal/models"
	"github.com/ternarybob/fiscus/internal/services/fiscal"
)

// Processor turns detected results publications into stored quarterly
// comparisons via the external extraction service.
type Processor struct {
	publications        interfaces.PublicationStorage
	extractor           interfaces.ResultsExtractor
	comparator          *fiscal.Comparator
	confidenceThreshold int
	logger              arbor.ILogger
	now                 func() time.Time
}

// NewProcessor creates a results processor.
func NewProcessor(
	publications interfaces.PublicationStorage,
	extractor interfaces.ResultsExtractor,
	comparator *fiscal.Comparator,
	confidenceThreshold int,
	logger arbor.ILogger,
) *Processor {
	return &Processor{
		publications:        publications,
		extractor:           extractor,
		comparator:          comparator,
		confidenceThreshold: confidenceThreshold,
		logger:              logger,
		now:                 time.Now,
	}
}

// ProcessPending handles every publication still in the detected state.
// Returns the number processed successfully. Failures are terminal: a
// publication marked failed is never retried automatically.
func (p *Processor) ProcessPending(ctx context.Context) (int, error) {
	pending, err := p.publications.ListByStatus(ctx, models.PublicationDetected)
	if err != nil {
		return 0, fmt.Errorf("failed to list pending publications: %w", err)
	}

	processed := 0
	for _, pub := range pending {
		if err := p.Process(ctx, pub); err != nil {
			p.logger.Warn().
				Err(err).
				Str("symbol", pub.Symbol).
				Str("id", pub.ID).
				Msg("Publication processing failed")
			continue
		}
		processed++
	}

	if len(pending) > 0 {
		p.logger.Info().
			Int("pending", len(pending)).
			Int("processed", processed).
			Msg("Publication processing completed")
	}
	return processed, nil
}

// Process runs extraction and comparison for a single publication.
// Processed publications are skipped; rejected extractions mark the
// publication failed and return an error.
func (p *Processor) Process(ctx context.Context, pub *models.ResultPublication) error {
	if pub.Status == models.PublicationProcessed {
		return nil
	}

	if pub.DocumentURL == "" {
		return p.fail(ctx, pub, "no document attached")
	}

	quarter := fiscal.Quarter{Q: pub.Quarter, FYStart: pub.FYStart}
	if !quarter.Valid() {
		return p.fail(ctx, pub, "unrecognized quarter label")
	}

	extraction, err := p.extractor.Parse(ctx, pub.Symbol, pub.DocumentURL)
	if err != nil {
		return p.fail(ctx, pub, fmt.Sprintf("extraction failed: %v", err))
	}

	if extraction.Confidence < p.confidenceThreshold {
		return p.fail(ctx, pub, fmt.Sprintf("extraction confidence %d below threshold %d", extraction.Confidence, p.confidenceThreshold))
	}

	// The parser's own reading of the document wins over the headline when
	// the two disagree.
	if parsed := (fiscal.Quarter{Q: extraction.Quarter, FYStart: extraction.FYStart}); parsed.Valid() && parsed != quarter {
		p.logger.Warn().
			Str("symbol", pub.Symbol).
			Str("headline_quarter", quarter.Label()).
			Str("document_quarter", parsed.Label()).
			Msg("Document quarter differs from headline, using document")
		quarter = parsed
	}

	result, err := p.comparator.BuildComparison(ctx, pub.Symbol, quarter, extraction.Figures, pub.DocumentURL)
	if err != nil {
		return p.fail(ctx, pub, fmt.Sprintf("comparison failed: %v", err))
	}

	created, err := p.comparator.Store(ctx, result)
	if err != nil {
		return fmt.Errorf("failed to store quarterly result: %w", err)
	}

	now := p.now()
	pub.Status = models.PublicationProcessed
	pub.FailReason = ""
	pub.Quarter = quarter.Q
	pub.FYStart = quarter.FYStart
	pub.ProcessedAt = &now
	if err := p.publications.Upsert(ctx, pub); err != nil {
		return fmt.Errorf("failed to mark publication processed: %w", err)
	}

	if created {
		p.logger.Info().
			Str("symbol", pub.Symbol).
			Str("quarter", quarter.Label()).
			Msg("💹 Quarterly result recorded")
	} else {
		p.logger.Info().
			Str("symbol", pub.Symbol).
			Str("quarter", quarter.Label()).
			Msg("Quarterly result already recorded for this quarter")
	}
	return nil
}

// fail marks the publication terminally failed and surfaces the reason.
func (p *Processor) fail(ctx context.Context, pub *models.ResultPublication, reason string) error {
	pub.Status = models.PublicationFailed
	pub.FailReason = reason
	if err := p.publications.Upsert(ctx, pub); err != nil {
		return fmt.Errorf("failed to mark publication failed: %w", err)
	}
	return fmt.Errorf("publication rejected: %s", reason)
}
