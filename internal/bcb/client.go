// Package bcb fetches the SELIC policy rate from the Brazilian Central
// Bank's SGS time-series API and derives a compounded unit-price series
// so the risk-free rate can be consumed like any other price series.
package bcb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quantbr/fundsdb/internal/model"
)

// Client fetches one SGS series.
type Client struct {
	seriesURL  string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a client for the SGS endpoint at seriesURL.
func NewClient(seriesURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		seriesURL:  seriesURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Observation is one daily SELIC observation. Rate is the decimal
// fraction (API publishes percent); Price is the unit investment value
// compounded from the start of the series, base 1.0.
type Observation struct {
	Date  time.Time
	Rate  decimal.Decimal
	Price decimal.Decimal
}

// sgsEntry matches the SGS wire format. Values arrive as strings with
// the date in Brazilian day-first order.
type sgsEntry struct {
	Data  string `json:"data"`
	Valor string `json:"valor"`
}

var hundred = decimal.NewFromInt(100)

// Fetch downloads the full rate history and compounds the unit price.
// The compounding always runs from the first observation: the price of
// day N depends on every prior day, so partial fetches would drift.
func (c *Client) Fetch(ctx context.Context) ([]Observation, error) {
	url := c.seriesURL + "?formato=json"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

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
		return nil, fmt.Errorf("sgs http error %d: %s", resp.StatusCode, url)
	}

	var entries []sgsEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("unmarshal sgs response: %w", err)
	}

	obs := make([]Observation, 0, len(entries))
	price := decimal.NewFromInt(1)
	one := decimal.NewFromInt(1)
	for _, e := range entries {
		date, err := time.Parse("02/01/2006", e.Data)
		if err != nil {
			return nil, fmt.Errorf("parse sgs date %q: %w", e.Data, err)
		}
		pct, err := decimal.NewFromString(e.Valor)
		if err != nil {
			return nil, fmt.Errorf("parse sgs value %q: %w", e.Valor, err)
		}
		rate := pct.Div(hundred)
		price = price.Mul(one.Add(rate))
		obs = append(obs, Observation{Date: date.UTC(), Rate: rate, Price: price})
	}

	c.logger.Debug("fetched selic series", "observations", len(obs))
	return obs, nil
}

// Points flattens observations into the two stored benchmark series.
func Points(obs []Observation) []model.BenchmarkPoint {
	pts := make([]model.BenchmarkPoint, 0, 2*len(obs))
	for _, o := range obs {
		rate, _ := o.Rate.Float64()
		price, _ := o.Price.Float64()
		pts = append(pts,
			model.BenchmarkPoint{Series: model.SeriesSelic, Date: o.Date, Value: rate},
			model.BenchmarkPoint{Series: model.SeriesSelicAcc, Date: o.Date, Value: price},
		)
	}
	return pts
}
