package interfaces

import (
	"context"

	"github.com/ternarybob/fiscus/internal/models"
)

// ExtractionResult is what the external document parser returns for one
// results filing.
type ExtractionResult struct {
	Figures models.FinancialFigures
	// Quarter and FYStart are the parser's own reading of the document,
	// used to cross-check the headline classification.
	Quarter int
	FYStart int
	// Confidence is the parser's 0-100 self-assessment.
	Confidence int
}

// ResultsExtractor parses a published results document into financial
// figures. The implementation lives outside this service; only the contract
// matters here.
type ResultsExtractor interface {
	Parse(ctx context.Context, symbol, documentURL string) (*ExtractionResult, error)
}
