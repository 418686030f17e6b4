// Package extractor provides a thin HTTP client for the external
// results-extraction service. Document parsing itself happens out of
// process; this client only carries the contract.
package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/fiscus/internal/interfaces"
	"github.com/ternarybob/fiscus/internal/models"
)

// DefaultTimeout is generous because the remote service downloads and
// parses PDF filings.
const DefaultTimeout = 60 * time.Second

// Client calls the extraction service over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     arbor.ILogger
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets a logger.
func WithLogger(logger arbor.ILogger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates an extraction service client.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

type parseRequest struct {
	Symbol      string `json:"symbol"`
	DocumentURL string `json:"document_url"`
}

type parseResponse struct {
	Revenue         *float64 `json:"revenue"`
	OperatingProfit *float64 `json:"operating_profit"`
	NetProfit       *float64 `json:"net_profit"`
	EPS             *float64 `json:"eps"`
	Margin          *float64 `json:"margin"`
	Quarter         int      `json:"quarter"`
	FYStart         int      `json:"fy_start"`
	Confidence      int      `json:"confidence"`
}

// Parse submits a results document to the extraction service.
func (c *Client) Parse(ctx context.Context, symbol, documentURL string) (*interfaces.ExtractionResult, error) {
	payload, err := json.Marshal(parseRequest{Symbol: symbol, DocumentURL: documentURL})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal parse request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/parse", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if c.logger != nil {
		c.logger.Debug().
			Str("symbol", symbol).
			Str("document_url", documentURL).
			Msg("Extraction request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("extraction service returned %d: %s", resp.StatusCode, string(body))
	}

	var parsed parseResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &interfaces.ExtractionResult{
		Figures: models.FinancialFigures{
			Revenue:         toDecimal(parsed.Revenue),
			OperatingProfit: toDecimal(parsed.OperatingProfit),
			NetProfit:       toDecimal(parsed.NetProfit),
			EPS:             toDecimal(parsed.EPS),
			Margin:          toDecimal(parsed.Margin),
		},
		Quarter:    parsed.Quarter,
		FYStart:    parsed.FYStart,
		Confidence: parsed.Confidence,
	}, nil
}

func toDecimal(f *float64) *decimal.Decimal {
	if f == nil {
		return nil
	}
	d := decimal.NewFromFloat(*f)
	return &d
}
