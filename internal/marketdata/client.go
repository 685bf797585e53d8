package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"github.com/gudapatin/sentalpha/internal/contracts"
	"github.com/gudapatin/sentalpha/pkg/config"
	"github.com/gudapatin/sentalpha/pkg/httputil"
	"github.com/gudapatin/sentalpha/pkg/logger"
)

// Client fetches daily close series from a Yahoo-compatible chart API.
// SSOT: all price provider calls go through this client. It enforces
// the shared quota with a token bucket and bounds concurrent fetches
// across all company pipelines with a semaphore; retries on transient
// failures belong to the series cache, not here.
type Client struct {
	baseURL    string
	httpClient *httputil.Client
	limiter    *rate.Limiter
	inflight   chan struct{}
	logger     *logger.Logger
}

// NewClient creates a provider client from config
func NewClient(cfg *config.Config, httpClient *httputil.Client, log *logger.Logger) *Client {
	// HTTP-level retries stay off: the cache owns the retry budget
	httpClient.DisableRetry()

	return &Client{
		baseURL:    strings.TrimRight(cfg.MarketData.BaseURL, "/"),
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(cfg.MarketData.RateLimit), cfg.MarketData.RateLimit),
		inflight:   make(chan struct{}, cfg.MarketData.MaxInflight),
		logger:     log.WithField("module", "marketdata"),
	}
}

// Fetch retrieves the daily close series for a ticker and range
func (c *Client) Fetch(ctx context.Context, ticker string, rng contracts.DateRange) ([]contracts.PricePoint, error) {
	select {
	case c.inflight <- struct{}{}:
		defer func() { <-c.inflight }()
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	fullURL := fmt.Sprintf(
		"%s/v8/finance/chart/%s?period1=%d&period2=%d&interval=1d&events=history",
		c.baseURL, ticker, rng.From.Unix(), rng.To.Unix(),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransient, err)
	}
	defer resp.Body.Close()

	if httputil.IsRetryableStatus(resp.StatusCode) {
		return nil, fmt.Errorf("%w: provider returned %d", ErrTransient, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrTransient, err)
	}

	points, err := c.parseChartJSON(body)
	if err != nil {
		// Some mirrors serve the history page instead of chart JSON.
		// Only a body that is not chart JSON at all takes the HTML
		// path; a definitive provider error surfaces as-is.
		if !errors.Is(err, errNotChartJSON) {
			return nil, err
		}
		points, err = c.parseHistoryHTML(body)
		if err != nil {
			return nil, fmt.Errorf("parse response failed: %w", err)
		}
	}

	if len(points) == 0 {
		return nil, fmt.Errorf("%w: empty series for %s", ErrTransient, ticker)
	}

	sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })

	c.logger.WithFields(map[string]interface{}{
		"ticker": ticker,
		"from":   rng.From.Format("2006-01-02"),
		"to":     rng.To.Format("2006-01-02"),
		"count":  len(points),
	}).Debug("Fetched price series")

	return points, nil
}

// chartResponse mirrors the chart API envelope
type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// errNotChartJSON marks a body that failed to decode as the chart
// envelope, the only case where the HTML fallback applies.
var errNotChartJSON = errors.New("body is not chart JSON")

// parseChartJSON parses the chart API JSON body
func (c *Client) parseChartJSON(body []byte) ([]contracts.PricePoint, error) {
	var parsed chartResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", errNotChartJSON, err)
	}

	if parsed.Chart.Error != nil {
		return nil, fmt.Errorf("provider error: %s (%s)",
			parsed.Chart.Error.Code, parsed.Chart.Error.Description)
	}
	if len(parsed.Chart.Result) == 0 {
		return nil, fmt.Errorf("chart response has no result")
	}

	result := parsed.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("chart response has no quote data")
	}

	closes := result.Indicators.Quote[0].Close
	var points []contracts.PricePoint
	for i, ts := range result.Timestamp {
		if i >= len(closes) || closes[i] == nil {
			continue // holiday or null close
		}
		points = append(points, contracts.PricePoint{
			Date:  time.Unix(ts, 0).UTC(),
			Close: *closes[i],
		})
	}
	return points, nil
}

// parseHistoryHTML parses a history page table (fallback).
// Expected row layout: date cell followed by OHLC cells with the
// close in the fifth column.
func (c *Client) parseHistoryHTML(body []byte) ([]contracts.PricePoint, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, err
	}

	var points []contracts.PricePoint
	doc.Find("table tbody tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 5 {
			return
		}

		date, err := parseHistoryDate(strings.TrimSpace(cells.Eq(0).Text()))
		if err != nil {
			return
		}

		closeText := strings.ReplaceAll(strings.TrimSpace(cells.Eq(4).Text()), ",", "")
		closePrice, err := strconv.ParseFloat(closeText, 64)
		if err != nil || closePrice <= 0 {
			return
		}

		points = append(points, contracts.PricePoint{Date: date, Close: closePrice})
	})

	if len(points) == 0 {
		return nil, fmt.Errorf("no price rows found in HTML")
	}
	return points, nil
}

// parseHistoryDate accepts the date formats history pages use
func parseHistoryDate(s string) (time.Time, error) {
	for _, layout := range []string{"Jan 02, 2006", "2006-01-02", "02-01-2006"} {
		if d, err := time.Parse(layout, s); err == nil {
			return d.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}
