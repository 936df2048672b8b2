// Package fetch performs JSON GET requests against external services with a
// bounded per-attempt timeout and a retry policy for transient failures.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultTimeout bounds a single attempt when Client.Timeout is zero.
const DefaultTimeout = 10 * time.Second

// maxBody caps how much of a response is read.
const maxBody = 8 << 20

var (
	// ErrStatus marks a non-2xx response.
	ErrStatus = errors.New("unexpected status")
	// ErrDecode marks a response body that is not the expected JSON.
	ErrDecode = errors.New("malformed response")
)

// Error describes a failed fetch after all attempts.
type Error struct {
	URL        string
	StatusCode int
	Attempts   int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: %d after %d attempt(s): %v", e.URL, e.StatusCode, e.Attempts, e.Err)
	}
	return fmt.Sprintf("fetch %s after %d attempt(s): %v", e.URL, e.Attempts, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Transient reports whether the failure came from the network or the remote
// side (timeouts, 5xx, 429, malformed payloads) rather than a caller mistake.
func (e *Error) Transient() bool {
	if errors.Is(e.Err, ErrDecode) {
		return true
	}
	if e.StatusCode == 0 {
		return true
	}
	return retryableStatus(e.StatusCode)
}

// ObserveFunc receives one call per GetJSON with the total duration and final error.
type ObserveFunc func(endpoint string, d time.Duration, err error)

// Client issues JSON GET requests.
type Client struct {
	HTTP    *http.Client
	Policy  Policy
	Timeout time.Duration
	Observe ObserveFunc
	// UserAgent is sent with every request when set.
	UserAgent string
}

// New returns a Client with the given timeout and policy.
func New(timeout time.Duration, policy Policy) *Client {
	return &Client{HTTP: &http.Client{}, Policy: policy, Timeout: timeout}
}

// GetJSON fetches url and decodes the JSON body into v. The endpoint label
// only identifies the call for observation.
func (c *Client) GetJSON(ctx context.Context, endpoint, url string, v any) error {
	start := time.Now()
	err := c.getJSON(ctx, url, v)
	if c.Observe != nil {
		c.Observe(endpoint, time.Since(start), err)
	}
	return err
}

func (c *Client) getJSON(ctx context.Context, url string, v any) error {
	attempts := 0
	for {
		attempts++
		status, err := c.attempt(ctx, url, v)
		if err == nil {
			return nil
		}
		ferr := &Error{URL: url, StatusCode: status, Attempts: attempts, Err: err}
		if attempts > c.Policy.MaxRetries || !retryable(status, err) || ctx.Err() != nil {
			return ferr
		}
		t := time.NewTimer(c.Policy.Delay(attempts))
		select {
		case <-ctx.Done():
			t.Stop()
			return ferr
		case <-t.C:
		}
	}
}

func (c *Client) attempt(ctx context.Context, url string, v any) (int, error) {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBody))
		return resp.StatusCode, ErrStatus
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(v); err != nil {
		return resp.StatusCode, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return resp.StatusCode, nil
}

func retryable(status int, err error) bool {
	if errors.Is(err, ErrDecode) {
		return false
	}
	if status == 0 {
		return true
	}
	return retryableStatus(status)
}

func retryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}
