// Package yahoo fetches daily benchmark index history from the chart
// JSON API. Only the adjusted close is kept; the Ibovespa series needs
// nothing else.
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/quantbr/fundsdb/internal/model"
)

// Client fetches index price history.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a client for the chart API at baseURL.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Adjclose []struct {
					Adjclose []*float64 `json:"adjclose"`
				} `json:"adjclose"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// FetchDaily returns the daily adjusted-close history for symbol in
// [from, to), as points of the given stored series. Days the API
// reports as null (holidays, gaps) are skipped.
func (c *Client) FetchDaily(ctx context.Context, symbol, series string, from, to time.Time) ([]model.BenchmarkPoint, error) {
	q := url.Values{}
	q.Set("period1", strconv.FormatInt(from.Unix(), 10))
	q.Set("period2", strconv.FormatInt(to.Unix(), 10))
	q.Set("interval", "1d")
	q.Set("events", "history")

	fullURL := c.baseURL + "/" + url.PathEscape(symbol) + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("chart http error %d: %s", resp.StatusCode, symbol)
	}

	var cr chartResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		return nil, fmt.Errorf("unmarshal chart response: %w", err)
	}
	if cr.Chart.Error != nil {
		return nil, fmt.Errorf("chart api error: %s (%s)", cr.Chart.Error.Description, cr.Chart.Error.Code)
	}
	if len(cr.Chart.Result) == 0 || len(cr.Chart.Result[0].Indicators.Adjclose) == 0 {
		return nil, nil
	}

	result := cr.Chart.Result[0]
	closes := result.Indicators.Adjclose[0].Adjclose

	var pts []model.BenchmarkPoint
	for i, ts := range result.Timestamp {
		if i >= len(closes) || closes[i] == nil {
			continue
		}
		day := time.Unix(ts, 0).UTC()
		day = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
		pts = append(pts, model.BenchmarkPoint{
			Series: series,
			Date:   day,
			Value:  *closes[i],
		})
	}

	c.logger.Debug("fetched index history", "symbol", symbol, "points", len(pts))
	return pts, nil
}
