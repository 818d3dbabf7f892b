package wcis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"
	"github.com/sony/gobreaker"
)

var (
	ErrRateLimited      = errors.New("rate limited")
	ErrServerError      = errors.New("server error")
	ErrUnexpectedStatus = errors.New("unexpected status code")
	ErrCircuitOpen      = errors.New("circuit breaker open")
)

// maxExcerpt bounds the response text quoted in status errors.
const maxExcerpt = 512

// BackoffConfig controls retry behavior. MaxRetries of zero fails on the
// first error.
type BackoffConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// minTripFailures is the breaker threshold when retries are disabled.
const minTripFailures = 5

// tripThreshold returns the number of consecutive failures that opens the
// breaker. It always exceeds the attempts of a single request, so a request
// can spend its whole retry budget.
func tripThreshold(maxRetries int) uint32 {
	if maxRetries+1 > minTripFailures {
		return uint32(maxRetries + 1)
	}
	return minTripFailures
}

// newBreaker trips after threshold consecutive failed attempts and lets one
// request through again after two minutes.
func newBreaker(name string, threshold uint32) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
	})
}

// statusError builds the error for a non-2xx response.
func statusError(code int, body []byte) error {
	excerpt := body
	if len(excerpt) > maxExcerpt {
		excerpt = excerpt[:maxExcerpt]
	}
	var kind error
	switch {
	case code == http.StatusTooManyRequests:
		kind = ErrRateLimited
	case code >= 500:
		kind = ErrServerError
	default:
		kind = ErrUnexpectedStatus
	}
	return fmt.Errorf("%w: status %d: %s", kind, code, excerpt)
}

// retryable reports whether another attempt may succeed. Client errors other
// than 429 are permanent.
func retryable(err error) bool {
	return !errors.Is(err, ErrUnexpectedStatus) && !errors.Is(err, ErrCircuitOpen)
}

// fetch performs one GET through the breaker and returns the full body.
func (c *Client) fetch(ctx context.Context, url string) ([]byte, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "text/csv")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, statusError(resp.StatusCode, body)
		}
		return body, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", ErrCircuitOpen, err)
		}
		return nil, err
	}

	body, ok := result.([]byte)
	if !ok {
		return nil, errors.New("unexpected result type from circuit breaker")
	}
	return body, nil
}

// fetchWithRetry calls fetch until it succeeds, fails permanently, or the
// retry budget is spent, sleeping on the client clock between attempts.
func (c *Client) fetchWithRetry(ctx context.Context, url string) ([]byte, error) {
	wait := c.backoff.InitialInterval
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		body, err := c.fetch(ctx, url)
		if err == nil {
			return body, nil
		}
		if ctx.Err() != nil || attempt >= c.backoff.MaxRetries || !retryable(err) {
			return nil, err
		}

		c.metrics.ReportRequests.WithLabelValues("retry").Inc()
		c.logger.Warn("report request failed, retrying",
			"attempt", attempt+1,
			"max_retries", c.backoff.MaxRetries,
			"backoff", wait,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-c.clock.After(wait):
		}
		wait = retry.NextBackoff(wait, c.backoff.MaxInterval)
	}
}
