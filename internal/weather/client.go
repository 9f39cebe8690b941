// Package weather implements the providers adapter: a uniform interface for
// fetching a point-in-time sample from a named external provider, with each
// provider's field names and units normalized into one schema.
//
// All outbound HTTP goes through a shared resilient client that enforces a
// per-call timeout, retries transient failures with exponential backoff, and
// trips a circuit breaker per provider so a dead upstream fails fast instead
// of burning the whole timeout budget on every subscriber.
package weather

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker/v2"

	"pestwatch/internal/types"
)

// ClientConfig tunes the resilient provider HTTP client.
type ClientConfig struct {
	// Name identifies the provider for circuit breaker naming.
	Name string

	// Timeout bounds each individual HTTP call.
	Timeout time.Duration

	// MaxRetries is the number of retry attempts after the first call.
	MaxRetries uint64

	// InitialInterval and MaxInterval bound the exponential backoff.
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultClientConfig returns the standard settings for a provider client.
func DefaultClientConfig(name string, timeout time.Duration) ClientConfig {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return ClientConfig{
		Name:            name,
		Timeout:         timeout,
		MaxRetries:      2,
		InitialInterval: 200 * time.Millisecond,
		MaxInterval:     2 * time.Second,
	}
}

// Client is a resilient HTTP client shared by the provider implementations.
type Client struct {
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[*http.Response]
	cfg        ClientConfig
}

// NewClient creates a Client for one provider.
func NewClient(cfg ClientConfig) *Client {
	cb := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	})

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		breaker:    cb,
		cfg:        cfg,
	}
}

// serverError marks an HTTP 5xx response so the circuit breaker and the retry
// loop both treat it as transient.
type serverError struct {
	status int
}

func (e *serverError) Error() string {
	return fmt.Sprintf("upstream returned %d", e.status)
}

// GetJSON performs a GET against url and returns the raw response body.
// Transient failures (network errors, 5xx) are retried with backoff; 429 and
// non-2xx statuses, exhausted retries, and an open breaker all map to typed
// AppErrors from the provider error taxonomy.
func (c *Client) GetJSON(ctx context.Context, url string) ([]byte, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.cfg.InitialInterval
	bo.MaxInterval = c.cfg.MaxInterval
	bo.MaxElapsedTime = 0 // retries are bounded by WithMaxRetries

	var body []byte

	operation := func() error {
		resp, err := c.breaker.Execute(func() (*http.Response, error) {
			req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if reqErr != nil {
				return nil, backoff.Permanent(reqErr)
			}
			r, doErr := c.httpClient.Do(req)
			if doErr != nil {
				return nil, doErr
			}
			if r.StatusCode >= 500 {
				r.Body.Close()
				return nil, &serverError{status: r.StatusCode}
			}
			return r, nil
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return backoff.Permanent(types.NewAppError(
					types.ErrCodeProviderUnavailable,
					fmt.Sprintf("%s: circuit breaker open", c.cfg.Name),
					err,
				))
			}
			// Network errors and 5xx are retryable.
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			return backoff.Permanent(types.NewAppError(
				types.ErrCodeProviderRateLimited,
				fmt.Sprintf("%s: rate limited", c.cfg.Name),
				nil,
			))
		}
		if resp.StatusCode != http.StatusOK {
			// 4xx from a weather provider means bad credentials or a bad
			// request; retrying will not help.
			return backoff.Permanent(types.NewAppError(
				types.ErrCodeProviderUnavailable,
				fmt.Sprintf("%s: unexpected status %d", c.cfg.Name, resp.StatusCode),
				nil,
			))
		}

		b, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return readErr
		}
		body = b
		return nil
	}

	retryPolicy := backoff.WithContext(backoff.WithMaxRetries(bo, c.cfg.MaxRetries), ctx)
	if err := backoff.Retry(operation, retryPolicy); err != nil {
		var appErr *types.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, types.NewAppError(
			types.ErrCodeProviderUnavailable,
			fmt.Sprintf("%s: request failed", c.cfg.Name),
			err,
		)
	}

	return body, nil
}
