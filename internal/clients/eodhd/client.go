// Package eodhd provides a market data provider backed by the EODHD API
package eodhd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/bobmcallan/momentum/internal/common"
	"github.com/bobmcallan/momentum/internal/interfaces"
	"github.com/bobmcallan/momentum/internal/models"
)

// flexFloat64 handles JSON values that may be either a number or a string.
type flexFloat64 float64

func (f *flexFloat64) UnmarshalJSON(data []byte) error {
	var num float64
	if err := json.Unmarshal(data, &num); err == nil {
		*f = flexFloat64(num)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s == "" || s == "N/A" {
			*f = 0
			return nil
		}
		num, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(num) || math.IsInf(num, 0) {
			*f = 0
			return nil
		}
		*f = flexFloat64(num)
		return nil
	}
	return fmt.Errorf("cannot unmarshal %s into float64", string(data))
}

const (
	DefaultBaseURL   = "https://eodhd.com/api"
	DefaultTimeout   = 30 * time.Second
	DefaultRateLimit = 10 // requests per second
	DefaultExchange  = "US"
)

// neutralAnalystRating is the midpoint of EODHD's 1-5 consensus scale.
const neutralAnalystRating = 3.0

// Client implements interfaces.MarketDataProvider
type Client struct {
	baseURL    string
	apiKey     string
	exchange   string
	sectorPE   map[string]float64
	httpClient *http.Client
	logger     *common.Logger
	limiter    *rate.Limiter
	now        func() time.Time
}

// ClientOption configures the client
type ClientOption func(*Client)

// WithBaseURL sets the base URL
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithLogger sets the logger
func WithLogger(logger *common.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRateLimit sets the rate limit
func WithRateLimit(requestsPerSecond int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond)
	}
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithDefaultExchange sets the exchange suffix appended to bare tickers
func WithDefaultExchange(exchange string) ClientOption {
	return func(c *Client) {
		c.exchange = strings.ToUpper(strings.TrimSpace(exchange))
	}
}

// WithSectorPE sets the sector P/E baselines reported as sector_pe
func WithSectorPE(sectorPE map[string]float64) ClientOption {
	return func(c *Client) {
		c.sectorPE = make(map[string]float64, len(sectorPE))
		for k, v := range sectorPE {
			c.sectorPE[strings.ToLower(k)] = v
		}
	}
}

// NewClient creates a new EODHD client
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:  DefaultBaseURL,
		apiKey:   apiKey,
		exchange: DefaultExchange,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(DefaultRateLimit), DefaultRateLimit),
		logger:  common.NewSilentLogger(),
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError represents an API error
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("EODHD API error: %s (status: %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

// get performs a rate-limited GET request
func (c *Client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	// Wait for rate limiter
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	// Add API key
	if params == nil {
		params = url.Values{}
	}
	params.Set("api_token", c.apiKey)
	params.Set("fmt", "json")

	reqURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	c.logger.Debug().Str("url", c.baseURL+path).Msg("EODHD API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(body)),
			Endpoint:   path,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	return nil
}

// classify maps transport and API failures onto the provider error types.
func (c *Client) classify(ticker, op string, err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		return &common.TickerNotFoundError{Ticker: ticker}
	}
	return &common.MarketDataError{Ticker: ticker, Op: op, Err: err}
}

// symbol converts a ticker to EODHD's CODE.EXCHANGE form. Index tickers
// (^GSPC) map to the INDX exchange.
func (c *Client) symbol(ticker string) string {
	switch {
	case strings.HasPrefix(ticker, "^"):
		return strings.TrimPrefix(ticker, "^") + ".INDX"
	case strings.Contains(ticker, "."), c.exchange == "":
		return ticker
	default:
		return ticker + "." + c.exchange
	}
}

// GetPriceSeries retrieves up to lookbackDays daily bars, oldest first
func (c *Client) GetPriceSeries(ctx context.Context, ticker string, lookbackDays int) ([]models.EODBar, error) {
	if lookbackDays <= 0 {
		return nil, &common.ValidationError{Field: "lookback_days", Value: strconv.Itoa(lookbackDays), Reason: "must be > 0"}
	}

	// About 252 trading days per 365 calendar days, padded for exchange holidays.
	calendarDays := lookbackDays*365/252 + 30
	params := url.Values{}
	params.Set("period", "d")
	params.Set("order", "a")
	params.Set("from", c.now().AddDate(0, 0, -calendarDays).Format("2006-01-02"))

	path := fmt.Sprintf("/eod/%s", c.symbol(ticker))

	var bars []eodBarResponse
	if err := c.get(ctx, path, params, &bars); err != nil {
		return nil, c.classify(ticker, "eod", err)
	}
	if len(bars) == 0 {
		return nil, &common.TickerNotFoundError{Ticker: ticker}
	}

	series := make([]models.EODBar, 0, len(bars))
	for _, bar := range bars {
		date, err := time.Parse("2006-01-02", bar.Date)
		if err != nil {
			c.logger.Warn().Str("ticker", ticker).Str("date", bar.Date).Msg("Skipping bar with unparseable date")
			continue
		}
		if px := float64(bar.Close); math.IsNaN(px) || math.IsInf(px, 0) || px <= 0 {
			c.logger.Warn().Str("ticker", ticker).Str("date", bar.Date).Msg("Skipping bar with invalid close")
			continue
		}
		series = append(series, models.EODBar{
			Date:     date,
			Open:     float64(bar.Open),
			High:     float64(bar.High),
			Low:      float64(bar.Low),
			Close:    float64(bar.Close),
			AdjClose: float64(bar.AdjustedClose),
			Volume:   int64(bar.Volume),
		})
	}

	if len(series) == 0 {
		return nil, &common.MarketDataError{Ticker: ticker, Op: "eod", Err: errors.New("no valid bars in response")}
	}
	if len(series) > lookbackDays {
		series = series[len(series)-lookbackDays:]
	}
	return series, nil
}

// eodBarResponse represents the API response for EOD data
type eodBarResponse struct {
	Date          string      `json:"date"`
	Open          flexFloat64 `json:"open"`
	High          flexFloat64 `json:"high"`
	Low           flexFloat64 `json:"low"`
	Close         flexFloat64 `json:"close"`
	AdjustedClose flexFloat64 `json:"adjusted_close"`
	Volume        flexFloat64 `json:"volume"`
}

// GetFundamentals retrieves the metrics used by fundamental momentum. Zero
// or absent values are left out of the map.
func (c *Client) GetFundamentals(ctx context.Context, ticker string) (models.Fundamentals, error) {
	path := fmt.Sprintf("/fundamentals/%s", c.symbol(ticker))

	var resp fundamentalsResponse
	if err := c.get(ctx, path, nil, &resp); err != nil {
		return nil, c.classify(ticker, "fundamentals", err)
	}

	f := models.Fundamentals{}
	if pe := float64(resp.Highlights.PERatio); pe != 0 {
		f[models.MetricPERatio] = pe
	}
	if pe, ok := c.sectorPE[strings.ToLower(resp.General.Sector)]; ok && pe > 0 {
		f[models.MetricSectorPE] = pe
	}

	growth := float64(resp.Highlights.QuarterlyEarningsGrowthYOY)
	if growth == 0 {
		growth = float64(resp.Highlights.QuarterlyRevenueGrowthYOY)
	}
	if growth != 0 {
		f[models.MetricGrowthRate] = growth * 100
	}

	if rating := float64(resp.AnalystRatings.Rating); rating > 0 {
		f[models.MetricAnalystRatingDelta] = rating - neutralAnalystRating
	}

	c.logger.Debug().Str("ticker", ticker).Int("metrics", len(f)).Msg("Fundamentals fetched")
	return f, nil
}

// fundamentalsResponse represents the API response structure
type fundamentalsResponse struct {
	General struct {
		Code   string `json:"Code"`
		Type   string `json:"Type"` // "Common Stock", "ETF", etc.
		Sector string `json:"Sector"`
	} `json:"General"`
	Highlights struct {
		PERatio                    flexFloat64 `json:"PERatio"`
		QuarterlyRevenueGrowthYOY  flexFloat64 `json:"QuarterlyRevenueGrowthYOY"`
		QuarterlyEarningsGrowthYOY flexFloat64 `json:"QuarterlyEarningsGrowthYOY"`
	} `json:"Highlights"`
	AnalystRatings struct {
		Rating      flexFloat64 `json:"Rating"`
		TargetPrice flexFloat64 `json:"TargetPrice"`
	} `json:"AnalystRatings"`
}

var _ interfaces.MarketDataProvider = (*Client)(nil)
