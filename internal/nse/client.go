// Package nse provides a client for the NSE public market data endpoints.
// This package centralizes all upstream exchange interactions for the
// application.
package nse

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/ternarybob/fiscus/internal/interfaces"
	"github.com/ternarybob/fiscus/internal/models"
)

const (
	// DefaultBaseURL is the base URL for the NSE site and API.
	DefaultBaseURL = "https://www.nseindia.com"

	// DefaultTimeout is the default HTTP timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultRateLimit is the default rate limit (requests per second).
	DefaultRateLimit = 3

	// sessionLifetime is how long primed cookies are trusted before the
	// bootstrap request is repeated.
	sessionLifetime = 5 * time.Minute
)

// Client is an NSE API client. The upstream rejects cookie-less API calls,
// so every request rides on a session primed by a plain page GET.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	logger     arbor.ILogger
	limiter    *rate.Limiter

	sessionMu sync.Mutex
	sessionAt time.Time
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient sets a custom HTTP client. A cookie jar is attached if the
// client has none, since the session bootstrap depends on one.
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

// WithRateLimit sets a custom rate limit.
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithUserAgent sets the User-Agent header sent on every request.
func WithUserAgent(userAgent string) ClientOption {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// NewClient creates a new NSE API client.
func NewClient(opts ...ClientOption) *Client {
	jar, _ := cookiejar.New(nil)
	c := &Client{
		baseURL:   DefaultBaseURL,
		userAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
			Jar:     jar,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient.Jar == nil {
		c.httpClient.Jar = jar
	}

	return c
}

// primeSession performs the cookie bootstrap GET when the current session
// is missing or aged out.
func (c *Client) primeSession(ctx context.Context) error {
	c.sessionMu.Lock()
	defer c.sessionMu.Unlock()

	if time.Since(c.sessionAt) < sessionLifetime {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create session request: %w", err)
	}
	c.setHeaders(req)

	if c.logger != nil {
		c.logger.Debug().Str("url", c.baseURL).Msg("NSE session bootstrap")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to prime session: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    "session bootstrap rejected",
			Endpoint:   "/",
		}
	}

	c.sessionAt = time.Now()
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json, text/html, */*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Referer", c.baseURL)
}

// get performs a rate-limited GET against an API path.
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	// Wait for rate limiter
	if err := c.limiter.Wait(ctx); err != nil {
		return &RateLimitError{RetryAfter: time.Second}
	}

	if err := c.primeSession(ctx); err != nil {
		return err
	}

	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	if c.logger != nil {
		c.logger.Debug().
			Str("path", path).
			Msg("NSE API request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		// Session cookies age out server-side; force a re-prime next call.
		c.sessionMu.Lock()
		c.sessionAt = time.Time{}
		c.sessionMu.Unlock()
		return &RateLimitError{RetryAfter: 30 * time.Second}
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
			Endpoint:   path,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// GetQuote retrieves the live quote for a symbol.
func (c *Client) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	var result quoteResponse
	if err := c.get(ctx, "/api/quote-equity", params, &result); err != nil {
		return nil, err
	}

	return result.toQuote(symbol), nil
}

// GetCandles retrieves daily OHLCV bars for a symbol within [from, to].
func (c *Client) GetCandles(ctx context.Context, symbol string, from, to time.Time) ([]*models.Candle, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("series", `["EQ"]`)
	params.Set("from", from.Format("02-01-2006"))
	params.Set("to", to.Format("02-01-2006"))

	var result historicalResponse
	if err := c.get(ctx, "/api/historical/cm/equity", params, &result); err != nil {
		return nil, err
	}

	candles := make([]*models.Candle, 0, len(result.Data))
	for _, row := range result.Data {
		candle, err := row.toCandle(symbol)
		if err != nil {
			if c.logger != nil {
				c.logger.Warn().Err(err).Str("symbol", symbol).Msg("Skipping unparseable candle row")
			}
			continue
		}
		candles = append(candles, candle)
	}

	return candles, nil
}

// GetDeliveries retrieves daily delivery-volume records for a symbol within
// [from, to].
func (c *Client) GetDeliveries(ctx context.Context, symbol string, from, to time.Time) ([]*models.Delivery, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("dataType", "deliverable")
	params.Set("from", from.Format("02-01-2006"))
	params.Set("to", to.Format("02-01-2006"))

	var result deliveryResponse
	if err := c.get(ctx, "/api/historical/securityArchives", params, &result); err != nil {
		return nil, err
	}

	deliveries := make([]*models.Delivery, 0, len(result.Data))
	for _, row := range result.Data {
		delivery, err := row.toDelivery(symbol)
		if err != nil {
			if c.logger != nil {
				c.logger.Warn().Err(err).Str("symbol", symbol).Msg("Skipping unparseable delivery row")
			}
			continue
		}
		deliveries = append(deliveries, delivery)
	}

	return deliveries, nil
}

// GetAnnouncements retrieves corporate announcements across the index
// within [from, to].
func (c *Client) GetAnnouncements(ctx context.Context, from, to time.Time) ([]*interfaces.Announcement, error) {
	params := url.Values{}
	params.Set("index", "equities")
	params.Set("from_date", from.Format("02-01-2006"))
	params.Set("to_date", to.Format("02-01-2006"))

	var result []announcementRow
	if err := c.get(ctx, "/api/corporate-announcements", params, &result); err != nil {
		return nil, err
	}

	announcements := make([]*interfaces.Announcement, 0, len(result))
	for _, row := range result {
		announcements = append(announcements, row.toAnnouncement())
	}

	return announcements, nil
}
