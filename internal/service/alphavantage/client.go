package alphavantage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"StockCast/internal/domain/models"
	drepo "StockCast/internal/domain/repository"
	"StockCast/internal/service/ratelimit"
	xhttp "StockCast/pkg/http"
	"StockCast/pkg/logger"
)

const limiterKey = "alphavantage"

type Config struct {
	BaseURL           string
	APIKey            string
	OutputSize        string
	ConnectTimeout    time.Duration
	ReadTimeout       time.Duration
	RequestsPerMinute float64
	Burst             float64
}

// Client implements an UpstreamSource backed by the Alpha Vantage REST API.
type Client struct {
	cfg     Config
	http    *xhttp.Client
	limiter *ratelimit.Limiter
	logger  *logger.Logger
}

// New creates a new daily-series upstream.
func New(cfg Config, limiter *ratelimit.Limiter, lgr *logger.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://www.alphavantage.co/query"
	}
	if cfg.OutputSize == "" {
		cfg.OutputSize = "compact"
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 5
	}
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}
	if limiter == nil {
		limiter = ratelimit.New()
	}
	if lgr == nil {
		lgr = logger.Nop()
	}
	return &Client{
		cfg: cfg,
		http: xhttp.NewClient(
			xhttp.WithConnectTimeout(cfg.ConnectTimeout),
			xhttp.WithReadTimeout(cfg.ReadTimeout),
		),
		limiter: limiter,
		logger:  lgr.With(logger.String("component", "alphavantage")),
	}
}

var _ drepo.UpstreamSource = (*Client)(nil)

// FetchDaily requests the daily series for symbol and parses it.
func (c *Client) FetchDaily(ctx context.Context, symbol string) (*models.DailySeries, error) {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return nil, fmt.Errorf("%w: api key not configured", drepo.ErrUpstreamUnavailable)
	}
	if err := c.limiter.Wait(ctx, limiterKey, c.cfg.Burst, c.cfg.RequestsPerMinute/60); err != nil {
		return nil, fmt.Errorf("%w: %v", drepo.ErrUpstreamUnavailable, err)
	}

	start := time.Now()
	body, err := c.http.Fetch(ctx, &xhttp.RequestOptions{
		Method: http.MethodGet,
		URL:    c.cfg.BaseURL,
		QueryParams: map[string][]string{
			"function":   {"TIME_SERIES_DAILY"},
			"symbol":     {symbol},
			"outputsize": {c.cfg.OutputSize},
			"apikey":     {c.cfg.APIKey},
		},
	})
	if err != nil {
		var se *xhttp.StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusTooManyRequests {
			return nil, fmt.Errorf("%w: %s: http 429", drepo.ErrRateLimited, symbol)
		}
		return nil, fmt.Errorf("%w: %s: %v", drepo.ErrUpstreamUnavailable, symbol, err)
	}

	series, err := ParseDaily(symbol, body)
	if err != nil {
		c.logger.Warn("daily series rejected",
			logger.String("symbol", symbol),
			logger.Duration("took", time.Since(start)),
			logger.Error(err))
		return nil, err
	}
	c.logger.Debug("daily series fetched",
		logger.String("symbol", symbol),
		logger.Int("bars", len(series.Bars)),
		logger.Duration("took", time.Since(start)))
	return series, nil
}
