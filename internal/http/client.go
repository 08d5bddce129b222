package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"
)

// Common errors.
var (
	ErrNotFound     = errors.New("http: resource not found")
	ErrForbidden    = errors.New("http: access forbidden")
	ErrUnauthorized = errors.New("http: unauthorized")
	ErrServerError  = errors.New("http: server error")
)

// Options configures the HTTP client.
type Options struct {
	// Timeout for individual requests. Zero means no client-side timeout;
	// callers bound requests with a context deadline instead.
	// Default: 0
	Timeout time.Duration

	// RetryAttempts is the number of retries after the first attempt.
	// Only transport errors and 5xx responses are retried.
	// Default: 0
	RetryAttempts int

	// RetryBackoff is the initial backoff duration.
	// Default: 1s
	RetryBackoff time.Duration

	// RetryMaxBackoff is the maximum backoff duration.
	// Default: 30s
	RetryMaxBackoff time.Duration

	// UserAgent is sent with every request when set.
	UserAgent string

	// WrapTransport, if set, wraps the base transport (e.g. for tracing).
	WrapTransport func(http.RoundTripper) http.RoundTripper
}

// DefaultOptions returns options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		RetryAttempts:   0,
		RetryBackoff:    time.Second,
		RetryMaxBackoff: 30 * time.Second,
	}
}

// Response is a successful GET response whose body has not been read.
type Response struct {
	Body          io.ReadCloser
	Header        http.Header
	ContentLength int64
	StatusCode    int
}

// BodyFunc produces a fresh request body and its content type. It is called
// once per attempt so bodies backed by files or pipes can be rebuilt.
type BodyFunc func() (body io.ReadCloser, contentType string, err error)

// Client is an HTTP client for streaming downloads and webhook uploads.
type Client struct {
	client *http.Client
	opts   Options
}

// NewClient creates a new HTTP client with the given options.
func NewClient(opts Options) *Client {
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = time.Second
	}
	if opts.RetryMaxBackoff <= 0 {
		opts.RetryMaxBackoff = 30 * time.Second
	}

	var transport http.RoundTripper = &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
		DisableCompression:  true, // We want raw bytes for audio payloads
	}
	if opts.WrapTransport != nil {
		transport = opts.WrapTransport(transport)
	}

	return &Client{
		client: &http.Client{
			Transport: transport,
			Timeout:   opts.Timeout,
		},
		opts: opts,
	}
}

// Get performs a GET request and returns the unread body on a 2xx status.
func (c *Client) Get(ctx context.Context, url string) (*Response, error) {
	var lastErr error

	for attempt := 0; attempt <= c.opts.RetryAttempts; attempt++ {
		if attempt > 0 {
			if err := c.backoff(ctx, attempt); err != nil {
				return nil, err
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		c.setUserAgent(req)

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			lastErr = err
			continue
		}

		if resp.StatusCode >= 500 {
			drain(resp.Body)
			lastErr = fmt.Errorf("%w: %s", ErrServerError, resp.Status)
			continue
		}

		if err := checkStatusCode(resp.StatusCode); err != nil {
			drain(resp.Body)
			return nil, err
		}

		return &Response{
			Body:          resp.Body,
			Header:        resp.Header,
			ContentLength: resp.ContentLength,
			StatusCode:    resp.StatusCode,
		}, nil
	}

	return nil, fmt.Errorf("get request failed after %d attempts: %w", c.opts.RetryAttempts+1, lastErr)
}

// Post sends a POST with a body from newBody. Transport errors and 5xx
// responses are retried; any other response is returned to the caller, who
// owns its body. After the last attempt a 5xx response is returned as well.
func (c *Client) Post(ctx context.Context, url string, header http.Header, newBody BodyFunc) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= c.opts.RetryAttempts; attempt++ {
		if attempt > 0 {
			if err := c.backoff(ctx, attempt); err != nil {
				return nil, err
			}
		}

		body, contentType, err := newBody()
		if err != nil {
			return nil, fmt.Errorf("create body: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
		if err != nil {
			body.Close()
			return nil, fmt.Errorf("create request: %w", err)
		}
		for k, vs := range header {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}
		req.Header.Set("Content-Type", contentType)
		c.setUserAgent(req)

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			lastErr = err
			continue
		}

		if resp.StatusCode >= 500 && attempt < c.opts.RetryAttempts {
			drain(resp.Body)
			lastErr = fmt.Errorf("%w: %s", ErrServerError, resp.Status)
			continue
		}

		return resp, nil
	}

	return nil, fmt.Errorf("post request failed after %d attempts: %w", c.opts.RetryAttempts+1, lastErr)
}

func (c *Client) setUserAgent(req *http.Request) {
	if c.opts.UserAgent != "" {
		req.Header.Set("User-Agent", c.opts.UserAgent)
	}
}

// backoff waits for an exponentially increasing duration with jitter.
func (c *Client) backoff(ctx context.Context, attempt int) error {
	backoff := c.opts.RetryBackoff * time.Duration(1<<uint(attempt-1))
	if backoff > c.opts.RetryMaxBackoff {
		backoff = c.opts.RetryMaxBackoff
	}

	// Add jitter: 0.5 to 1.5 of backoff
	jitter := time.Duration(float64(backoff) * (0.5 + rand.Float64()))

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(jitter):
		return nil
	}
}

// drain discards up to 64 KiB so the connection can be reused, then closes.
func drain(body io.ReadCloser) {
	_, _ = io.CopyN(io.Discard, body, 64*1024)
	body.Close()
}

// checkStatusCode returns an appropriate error for non-success status codes.
func checkStatusCode(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound:
		return ErrNotFound
	case code == http.StatusForbidden:
		return ErrForbidden
	case code == http.StatusUnauthorized:
		return ErrUnauthorized
	default:
		return fmt.Errorf("unexpected status code: %d", code)
	}
}
