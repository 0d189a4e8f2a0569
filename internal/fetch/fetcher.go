// Package fetch acquires JSON payloads from source APIs with bounded retries.
package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bashoori/sustainable-energy-data-platform/internal/config"
	"github.com/bashoori/sustainable-energy-data-platform/internal/logger"
	"github.com/bashoori/sustainable-energy-data-platform/pkg/utils"
)

// Sleeper waits between attempts. It returns early with an error when ctx ends.
type Sleeper func(ctx context.Context, d time.Duration) error

// Fetcher performs HTTP GET requests with config-driven retry logic.
type Fetcher struct {
	client      *http.Client
	retryPolicy *config.RetryPolicy
	helper      *utils.HTTPHelper
	log         logger.Sink
	sleep       Sleeper
}

// Response is a decoded payload plus acquisition metrics.
type Response struct {
	// Payload is the decoded JSON document; numbers are json.Number.
	Payload    any
	URL        string
	StatusCode int
	Attempts   int
	Bytes      int
	Duration   time.Duration
}

// NewFetcher creates a fetcher whose client timeout comes from the retry policy.
func NewFetcher(retryPolicy *config.RetryPolicy, log logger.Sink) *Fetcher {
	client := &http.Client{
		Timeout: retryPolicy.GetTimeout(),
	}

	return NewFetcherWithDeps(client, retryPolicy, log, SleepContext)
}

// NewFetcherWithDeps creates a fetcher with injected dependencies.
func NewFetcherWithDeps(client *http.Client, retryPolicy *config.RetryPolicy, log logger.Sink, sleep Sleeper) *Fetcher {
	if sleep == nil {
		sleep = SleepContext
	}

	return &Fetcher{
		client:      client,
		retryPolicy: retryPolicy,
		helper:      utils.NewHTTPHelper(),
		log:         log,
		sleep:       sleep,
	}
}

// Fetch returns the decoded JSON body of url with params as its query string.
func (f *Fetcher) Fetch(ctx context.Context, url string, params map[string]string) (any, error) {
	resp, err := f.FetchWithMetrics(ctx, url, params)
	if err != nil {
		return nil, err
	}

	return resp.Payload, nil
}

// FetchWithMetrics is Fetch returning attempt count, size and timing as well.
//
// Network errors, 429 and 5xx responses are retried up to MaxAttempts times,
// sleeping BackoffBase^(attempt-1) seconds between attempts. Every other
// failure returns a *FetchError at once; an exhausted budget returns a
// *TransientFetchError.
func (f *Fetcher) FetchWithMetrics(ctx context.Context, url string, params map[string]string) (*Response, error) {
	target, err := f.helper.WithQuery(url, params)
	if err != nil {
		return nil, &FetchError{URL: url, Err: fmt.Errorf("invalid url: %w", err)}
	}

	maxAttempts := f.retryPolicy.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error

	totalDuration := time.Duration(0)

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		startTime := time.Now()
		body, statusCode, retryable, reqErr := f.attempt(ctx, target)
		totalDuration += time.Since(startTime)

		if reqErr == nil {
			payload, decodeErr := decodeJSON(body)
			if decodeErr != nil {
				return nil, &FetchError{URL: target, StatusCode: statusCode, Err: decodeErr}
			}

			f.log.Debug("API request succeeded",
				"url", target, "status", statusCode, "attempt", attempt, "bytes", len(body))

			return &Response{
				Payload:    payload,
				URL:        target,
				StatusCode: statusCode,
				Attempts:   attempt,
				Bytes:      len(body),
				Duration:   totalDuration,
			}, nil
		}

		if !retryable {
			return nil, &FetchError{URL: target, StatusCode: statusCode, Err: reqErr}
		}

		lastErr = reqErr

		if attempt == maxAttempts {
			break
		}

		delay := f.retryPolicy.GetRetryDelay(attempt)
		f.log.Warn("API request failed, retrying",
			"url", target,
			"attempt", attempt,
			"max_attempts", maxAttempts,
			"delay", delay,
			"error", reqErr,
		)

		if sleepErr := f.sleep(ctx, delay); sleepErr != nil {
			return nil, &FetchError{URL: target, Err: sleepErr}
		}
	}

	return nil, &TransientFetchError{URL: target, Attempts: maxAttempts, Err: lastErr}
}

// attempt performs one GET and reports whether a failure may be retried.
func (f *Fetcher) attempt(ctx context.Context, target string) ([]byte, int, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return nil, 0, false, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header = f.helper.BuildHeaders(nil)

	resp, err := f.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, 0, false, ctxErr
		}

		return nil, 0, true, fmt.Errorf("request failed: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused by the next attempt.
		_, _ = io.Copy(io.Discard, resp.Body)

		return nil, resp.StatusCode, isRetryableStatus(resp.StatusCode),
			fmt.Errorf("%w: %d", ErrUnexpectedStatusCode, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, true, fmt.Errorf("failed to read response body: %w", err)
	}

	return body, resp.StatusCode, false, nil
}

// isRetryableStatus reports rate limiting and server-side failures.
func isRetryableStatus(statusCode int) bool {
	return statusCode == http.StatusTooManyRequests || statusCode >= 500
}

func decodeJSON(body []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var payload any
	if err := dec.Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode JSON body: %w", err)
	}

	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("failed to decode JSON body: trailing data after document")
	}

	return payload, nil
}

// SleepContext blocks for d or until ctx is done.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
