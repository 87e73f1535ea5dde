package genius

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// envelope is the JSON wrapper around every Genius API response.
type envelope struct {
	Meta struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"meta"`
	Response json.RawMessage `json:"response"`

	// OAuth failures use a different shape.
	OAuthError       string `json:"error"`
	OAuthDescription string `json:"error_description"`
}

// initialBackoff is the first retry delay; tests shorten it.
var initialBackoff = 1 * time.Second

// call makes a GET request to the Genius API with retry logic and decodes the
// "response" member of the envelope into out.
//
// Temporary failures (network errors, 429, 5xx) are retried with exponential
// backoff up to the client's MaxRetries. Context cancellation stops retrying.
func (c *Client) call(ctx context.Context, path string, params url.Values, out interface{}) error {
	reqURL := strings.TrimRight(c.baseURL, "/") + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	var lastErr error
	backoff := initialBackoff

	for i := 0; i < c.maxRetries; i++ {
		c.logDebugf("genius: GET %s (attempt %d/%d)", path, i+1, c.maxRetries)

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
		if err != nil {
			return fmt.Errorf("genius: failed to create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.accessToken)
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", c.userAgent)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			if shouldRetryNetworkError(err) && i < c.maxRetries-1 {
				c.logDebugf("genius: network error, retrying: %v", err)
				if !sleep(ctx, backoff) {
					return ctx.Err()
				}
				backoff = nextBackoff(backoff)
				continue
			}
			return fmt.Errorf("genius: http request failed: %w", err)
		}

		body, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			return fmt.Errorf("genius: failed to read response: %w", err)
		}

		if resp.StatusCode != http.StatusOK {
			apiErr := errorFromResponse(resp.StatusCode, body)
			if apiErr.Temporary() && i < c.maxRetries-1 {
				lastErr = apiErr
				wait := backoff
				if ra := retryAfter(resp.Header.Get("Retry-After")); ra > 0 {
					wait = ra
				}
				c.logDebugf("genius: temporary error, retrying in %s: %v", wait, apiErr)
				if !sleep(ctx, wait) {
					return ctx.Err()
				}
				backoff = nextBackoff(backoff)
				continue
			}
			return apiErr
		}

		var env envelope
		if err := json.Unmarshal(body, &env); err != nil {
			return fmt.Errorf("genius: failed to parse response: %w", err)
		}
		if env.Meta.Status != 0 && env.Meta.Status != http.StatusOK {
			return &Error{Status: env.Meta.Status, Message: env.Meta.Message}
		}

		if out != nil {
			if err := json.Unmarshal(env.Response, out); err != nil {
				return fmt.Errorf("genius: failed to decode %s: %w", path, err)
			}
		}

		c.logDebugf("genius: GET %s succeeded", path)
		return nil
	}

	return fmt.Errorf("genius: max retries exceeded: %w", lastErr)
}

// errorFromResponse builds an *Error from a non-200 response body, falling
// back to the HTTP status text when the body is not a Genius envelope.
func errorFromResponse(status int, body []byte) *Error {
	apiErr := &Error{Status: status, Message: http.StatusText(status)}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return apiErr
	}
	switch {
	case env.Meta.Message != "":
		apiErr.Message = env.Meta.Message
	case env.OAuthDescription != "":
		apiErr.Message = env.OAuthDescription
	case env.OAuthError != "":
		apiErr.Message = env.OAuthError
	}
	return apiErr
}

// shouldRetryNetworkError checks if a network error is retryable.
func shouldRetryNetworkError(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// retryAfter parses a Retry-After header given in seconds.
func retryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs <= 0 {
		return 0
	}
	d := time.Duration(secs) * time.Second
	if d > 30*time.Second {
		return 30 * time.Second
	}
	return d
}

// sleep waits for the specified duration or until context is cancelled.
// Returns true if sleep completed, false if context was cancelled.
func sleep(ctx context.Context, duration time.Duration) bool {
	t := time.NewTimer(duration)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// nextBackoff calculates the next backoff duration with exponential increase.
// Maximum backoff is capped at 30 seconds.
func nextBackoff(current time.Duration) time.Duration {
	next := current * 2
	if next > 30*time.Second {
		return 30 * time.Second
	}
	return next
}
