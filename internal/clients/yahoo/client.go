// Package yahoo implements the price feed adapter over the Yahoo Finance API.
// The core treats every call here as a possibly-slow, possibly-failing remote
// call; callers decide whether a failure is fatal (trade pricing) or tolerated
// (portfolio valuation).
package yahoo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ErrQuoteUnavailable is returned when the price feed cannot supply a quote.
var ErrQuoteUnavailable = errors.New("quote unavailable")

// nseExchangeCode is the search API exchange code for NSE-listed symbols
const nseExchangeCode = "NSI"

// Index symbols tracked by the dashboard
const (
	niftySymbol  = "^NSEI"
	sensexSymbol = "^BSESN"
)

// Client is a Yahoo Finance API client
type Client struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// NewClient creates a new Yahoo Finance client.
// baseURL is the API root (e.g. https://query1.finance.yahoo.com); tests point
// it at a local httptest server.
func NewClient(baseURL string, log zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: log.With().Str("client", "yahoo").Logger(),
	}
}

// GetQuote fetches the current quote and daily OHLC for a symbol.
// The symbol is passed as-is; exchange suffix handling is the caller's concern.
func (c *Client) GetQuote(ctx context.Context, symbol string) (*Quote, error) {
	chart, err := c.getChart(ctx, symbol)
	if err != nil {
		return nil, err
	}

	meta := chart.Meta

	// Prefer the latest intraday close; fall back to regularMarketPrice
	price := meta.RegularMarketPrice
	if len(chart.Indicators.Quote) > 0 {
		closes := chart.Indicators.Quote[0].Close
		for i := len(closes) - 1; i >= 0; i-- {
			if closes[i] != nil && *closes[i] > 0 {
				price = *closes[i]
				break
			}
		}
	}

	if price <= 0 {
		return nil, fmt.Errorf("%w: no price for %s", ErrQuoteUnavailable, symbol)
	}

	change := meta.RegularMarketPrice - meta.ChartPreviousClose
	changePercent := 0.0
	if meta.ChartPreviousClose != 0 {
		changePercent = change / meta.ChartPreviousClose * 100
	}

	return &Quote{
		Symbol:        symbol,
		Price:         price,
		Change:        change,
		ChangePercent: changePercent,
		High:          meta.RegularMarketHigh,
		Low:           meta.RegularMarketLow,
		Open:          meta.RegularMarketOpen,
		PreviousClose: meta.ChartPreviousClose,
	}, nil
}

// Search looks up symbols matching a query, filtered to NSE listings
func (c *Client) Search(ctx context.Context, query string) ([]SearchResult, error) {
	params := url.Values{}
	params.Add("q", query)
	params.Add("quotesCount", "10")
	params.Add("newsCount", "0")

	reqURL := c.baseURL + "/v1/finance/search?" + params.Encode()

	body, err := c.get(ctx, reqURL)
	if err != nil {
		return nil, err
	}

	var result searchResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}

	results := make([]SearchResult, 0, len(result.Quotes))
	for _, q := range result.Quotes {
		if q.Exchange != nseExchangeCode {
			continue
		}

		name := q.LongName
		if name == "" {
			name = q.ShortName
		}

		results = append(results, SearchResult{
			Symbol:   q.Symbol,
			Name:     name,
			Exchange: q.Exchange,
		})
	}

	return results, nil
}

// GetIndices fetches the tracked market indices (NIFTY and SENSEX)
func (c *Client) GetIndices(ctx context.Context) (map[string]IndexQuote, error) {
	indices := map[string]string{
		"nifty":  niftySymbol,
		"sensex": sensexSymbol,
	}

	result := make(map[string]IndexQuote, len(indices))
	for name, symbol := range indices {
		chart, err := c.getChart(ctx, symbol)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch index %s: %w", name, err)
		}

		meta := chart.Meta
		change := meta.RegularMarketPrice - meta.ChartPreviousClose
		changePercent := 0.0
		if meta.ChartPreviousClose != 0 {
			changePercent = change / meta.ChartPreviousClose * 100
		}

		result[name] = IndexQuote{
			Value:         meta.RegularMarketPrice,
			Change:        change,
			ChangePercent: changePercent,
			PreviousClose: meta.ChartPreviousClose,
		}
	}

	return result, nil
}

// getChart fetches chart data for a symbol from the Yahoo Finance chart API
func (c *Client) getChart(ctx context.Context, symbol string) (*chartResult, error) {
	reqURL := c.baseURL + "/v8/finance/chart/" + url.PathEscape(symbol) + "?interval=1d"

	body, err := c.get(ctx, reqURL)
	if err != nil {
		return nil, err
	}

	var result chartResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse chart response: %w", err)
	}

	if result.Chart.Error != nil {
		return nil, fmt.Errorf("%w: %v", ErrQuoteUnavailable, result.Chart.Error)
	}

	if len(result.Chart.Result) == 0 {
		return nil, fmt.Errorf("%w: no chart data for %s", ErrQuoteUnavailable, symbol)
	}

	return &result.Chart.Result[0], nil
}

// get performs an HTTP GET and returns the response body
func (c *Client) get(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// Set headers to mimic browser
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQuoteUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: status %d: %s", ErrQuoteUnavailable, resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return body, nil
}
