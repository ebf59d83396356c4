package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/shopspring/decimal"

	"github.com/quantfolio/portfolio-service/internal/models"
	"github.com/quantfolio/portfolio-service/internal/options"
)

const dateLayout = "2006-01-02"

// Client is an HTTP JSON Provider. Transient upstream failures (network
// errors, 5xx, 429) are retried with exponential backoff; other errors
// return immediately.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	maxRetries int
}

// NewClient returns a Client for the given base URL. An empty apiKey
// sends no auth header.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		apiKey:     apiKey,
		maxRetries: 4,
	}
}

// GetQuote fetches the latest price for one symbol.
func (c *Client) GetQuote(ctx context.Context, symbol string) (models.Quote, error) {
	var payload struct {
		Symbol    string `json:"symbol"`
		Price     string `json:"price"`
		Change    string `json:"change"`
		Timestamp string `json:"timestamp"`
	}
	endpoint := fmt.Sprintf("%s/v1/quote?symbol=%s", c.baseURL, url.QueryEscape(symbol))
	if err := c.getJSON(ctx, endpoint, &payload); err != nil {
		return models.Quote{}, fmt.Errorf("quote %s: %w", symbol, err)
	}

	price, err := decimal.NewFromString(payload.Price)
	if err != nil {
		return models.Quote{}, fmt.Errorf("quote %s: bad price %q: %w", symbol, payload.Price, err)
	}
	change := decimal.Zero
	if v, err := decimal.NewFromString(payload.Change); err == nil {
		change = v
	}
	asOf := time.Now().UTC()
	if ts, err := time.Parse(time.RFC3339, payload.Timestamp); err == nil {
		asOf = ts
	}
	return models.Quote{Symbol: symbol, Price: price, DailyChange: change, AsOf: asOf}, nil
}

// GetDailyHistory fetches the daily close series for a symbol between
// two dates inclusive, sorted ascending. Bars that fail to parse are
// skipped.
func (c *Client) GetDailyHistory(ctx context.Context, symbol string, from, to time.Time) ([]models.PricePoint, error) {
	var payload struct {
		Symbol string `json:"symbol"`
		Bars   []struct {
			Date  string `json:"date"`
			Close string `json:"close"`
		} `json:"bars"`
	}
	endpoint := fmt.Sprintf("%s/v1/history?symbol=%s&from=%s&to=%s",
		c.baseURL, url.QueryEscape(symbol), from.Format(dateLayout), to.Format(dateLayout))
	if err := c.getJSON(ctx, endpoint, &payload); err != nil {
		return nil, fmt.Errorf("history %s: %w", symbol, err)
	}

	points := make([]models.PricePoint, 0, len(payload.Bars))
	for _, bar := range payload.Bars {
		date, err := time.Parse(dateLayout, bar.Date)
		if err != nil {
			continue
		}
		closePrice, err := decimal.NewFromString(bar.Close)
		if err != nil {
			continue
		}
		points = append(points, models.PricePoint{Date: date, Close: closePrice})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })
	return points, nil
}

// GetOptionChain fetches the option chain for a symbol. Expiry metadata
// (days to expiry, LEAP flag) is derived client-side.
func (c *Client) GetOptionChain(ctx context.Context, symbol string) (models.OptionChain, error) {
	var payload struct {
		Symbol  string            `json:"symbol"`
		Strikes []float64         `json:"strikes"`
		Calls   []contractPayload `json:"calls"`
		Puts    []contractPayload `json:"puts"`
	}
	endpoint := fmt.Sprintf("%s/v1/options?symbol=%s", c.baseURL, url.QueryEscape(symbol))
	if err := c.getJSON(ctx, endpoint, &payload); err != nil {
		return models.OptionChain{}, fmt.Errorf("option chain %s: %w", symbol, err)
	}

	now := time.Now().UTC()
	chain := models.OptionChain{
		Symbol:    symbol,
		UpdatedAt: now,
		Strikes:   payload.Strikes,
	}
	sort.Float64s(chain.Strikes)
	for _, p := range payload.Calls {
		chain.Calls = append(chain.Calls, p.toContract(symbol, models.OptionTypeCall, now))
	}
	for _, p := range payload.Puts {
		chain.Puts = append(chain.Puts, p.toContract(symbol, models.OptionTypePut, now))
	}
	return chain, nil
}

type contractPayload struct {
	Strike            float64 `json:"strike"`
	Expiration        string  `json:"expiration"`
	Bid               float64 `json:"bid"`
	Ask               float64 `json:"ask"`
	LastPrice         float64 `json:"last_price"`
	ImpliedVolatility float64 `json:"implied_volatility"`
	OpenInterest      int64   `json:"open_interest"`
}

func (p contractPayload) toContract(symbol, optionType string, now time.Time) models.OptionContract {
	contract := models.OptionContract{
		Symbol:            symbol,
		OptionType:        optionType,
		Strike:            p.Strike,
		Bid:               p.Bid,
		Ask:               p.Ask,
		LastPrice:         p.LastPrice,
		ImpliedVolatility: p.ImpliedVolatility,
		OpenInterest:      p.OpenInterest,
	}
	if exp, err := time.Parse(dateLayout, p.Expiration); err == nil {
		contract.Expiration = exp
		contract.DaysToExpiry = int(exp.Sub(now).Hours() / 24)
		contract.IsLEAP = options.IsLEAP(contract.DaysToExpiry)
	}
	return contract
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	backoffCfg := backoff.NewExponentialBackOff()
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			sleep := backoffCfg.NextBackOff()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(sleep):
			}
		}
		lastErr = c.fetch(ctx, endpoint, out)
		if lastErr == nil {
			return nil
		}
		if !retryable(lastErr) {
			return lastErr
		}
	}
	return fmt.Errorf("giving up after %d attempts: %w", c.maxRetries+1, lastErr)
}

func (c *Client) fetch(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &statusError{code: resp.StatusCode}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.code)
}

func retryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.code >= http.StatusInternalServerError || se.code == http.StatusTooManyRequests
	}
	// Network-level failures are worth retrying.
	return true
}
