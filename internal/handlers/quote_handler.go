package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/fiscus/internal/interfaces"
	"github.com/ternarybob/fiscus/internal/services/quotes"
)

// QuoteHandler serves live quotes from the poller cache
type QuoteHandler struct {
	poller *quotes.Poller
	logger arbor.ILogger
}

// NewQuoteHandler creates a new quote handler
func NewQuoteHandler(poller *quotes.Poller, logger arbor.ILogger) *QuoteHandler {
	return &QuoteHandler{
		poller: poller,
		logger: logger,
	}
}

// GetQuoteHandler returns the live quote for one symbol
// GET /api/quotes/{symbol}
func (h *QuoteHandler) GetQuoteHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	symbol := strings.ToUpper(strings.TrimPrefix(r.URL.Path, "/api/quotes/"))
	if symbol == "" || strings.Contains(symbol, "/") {
		WriteError(w, http.StatusBadRequest, "Symbol is required")
		return
	}

	quote, err := h.poller.Quote(r.Context(), symbol)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "No quote for symbol "+symbol)
			return
		}
		h.logger.Error().Err(err).Str("symbol", symbol).Msg("Failed to load quote")
		WriteError(w, http.StatusInternalServerError, "Failed to load quote")
		return
	}

	WriteJSON(w, http.StatusOK, quote)
}
