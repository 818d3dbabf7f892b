// Package wcis fetches CSV reports from the NRCS report generator.
package wcis

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sony/gobreaker"

	"github.com/couchcryptid/snowpack-etl/internal/domain"
	"github.com/couchcryptid/snowpack-etl/internal/observability"
)

// Client implements pipeline.Extractor against the report generator.
type Client struct {
	baseURL    string
	httpClient *http.Client
	backoff    BackoffConfig
	breaker    *gobreaker.CircuitBreaker
	clock      clockwork.Clock
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client. Its timeout is kept.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithClock sets the clock used for retry backoff.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Client) { c.clock = clock }
}

// WithBackoff overrides the retry intervals. MaxRetries is taken from
// NewClient.
func WithBackoff(initial, maxInterval time.Duration) Option {
	return func(c *Client) {
		c.backoff.InitialInterval = initial
		c.backoff.MaxInterval = maxInterval
	}
}

// NewClient creates a report generator client. timeout bounds each attempt;
// maxRetries extra attempts are made on network errors, 429 and 5xx.
func NewClient(baseURL string, timeout time.Duration, maxRetries int, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		backoff: BackoffConfig{
			MaxRetries:      maxRetries,
			InitialInterval: time.Second,
			MaxInterval:     30 * time.Second,
		},
		breaker: newBreaker("wcis", tripThreshold(maxRetries)),
		clock:   clockwork.NewRealClock(),
		logger:  logger,
		metrics: metrics,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Extract downloads the report for req.
func (c *Client) Extract(ctx context.Context, req domain.Request) (domain.RawReport, error) {
	if err := req.Validate(); err != nil {
		return domain.RawReport{}, err
	}
	url := domain.BuildURL(c.baseURL, req)

	start := c.clock.Now()
	body, err := c.fetchWithRetry(ctx, url)
	c.metrics.ReportDuration.Observe(c.clock.Since(start).Seconds())
	if err != nil {
		c.metrics.ReportRequests.WithLabelValues("error").Inc()
		return domain.RawReport{}, err
	}
	c.metrics.ReportRequests.WithLabelValues("success").Inc()
	c.metrics.ReportBytes.Add(float64(len(body)))

	c.logger.Debug("report fetched", "request", req.String(), "url", url, "bytes", len(body))
	return domain.RawReport{
		Request:   req,
		URL:       url,
		Body:      body,
		FetchedAt: domain.Now(),
	}, nil
}
