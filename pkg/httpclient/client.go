// Package httpclient is the JSON-over-HTTP transport shared by the ticket,
// platform and chat clients. HTTPClient exposes the same retry policy as a
// standard *http.Client for SDKs that build their own requests.
//
// Requests are retried on network errors, 429 and 5xx responses with
// exponential backoff. 4xx responses are returned immediately. A client
// with MaxRetries 0 makes exactly one attempt.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Config configures a Client.
type Config struct {
	// Name identifies the remote service in errors and logs
	Name string

	// Timeout bounds each attempt
	Timeout time.Duration

	// MaxRetries is the number of retries after the first attempt
	MaxRetries int

	// InitialBackoff is the first retry delay (default 1s)
	InitialBackoff time.Duration

	// MaxBackoff caps a single retry delay (default 60s)
	MaxBackoff time.Duration

	// Transport overrides the HTTP transport (tests)
	Transport http.RoundTripper
}

// Client performs JSON requests with retry.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

// New creates a client.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = time.Second
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 60 * time.Second
	}
	transport := cfg.Transport
	if transport == nil {
		transport = &http.Transport{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 2,
			IdleConnTimeout:     90 * time.Second,
			ForceAttemptHTTP2:   true,
		}
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Transport: transport, Timeout: cfg.Timeout},
		logger: slog.Default().With("component", "httpclient", "service", cfg.Name),
	}
}

// Name returns the configured service name.
func (c *Client) Name() string {
	return c.cfg.Name
}

// Response is a completed 2xx response.
type Response struct {
	StatusCode int
	Body       []byte
}

func (c *Client) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.InitialBackoff
	b.MaxInterval = c.cfg.MaxBackoff
	b.Multiplier = 2
	return b
}

// Do sends a request and returns the body of the first 2xx response.
func (c *Client) Do(ctx context.Context, method, url string, body []byte, headers map[string]string) (*Response, error) {
	b := c.newBackOff()

	attempt := 0
	op := func() (*Response, error) {
		attempt++
		resp, err := c.once(ctx, method, url, body, headers)
		if err == nil {
			return resp, nil
		}

		var apiErr *APIError
		switch {
		case ctx.Err() != nil:
			return nil, backoff.Permanent(&TimeoutError{Service: c.cfg.Name, Timeout: c.cfg.Timeout})
		case errors.As(err, &apiErr) && !apiErr.Retryable():
			return nil, backoff.Permanent(err)
		case errors.As(err, new(*AuthError)):
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}

	resp, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(c.cfg.MaxRetries+1)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			c.logger.Warn("request failed, will retry",
				"method", method,
				"attempt", attempt,
				"max_retries", c.cfg.MaxRetries,
				"backoff", next,
				"error", err,
			)
		}),
	)
	if err != nil {
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			err = perm.Unwrap()
		}
		var timeoutErr *TimeoutError
		if ctx.Err() != nil && !errors.As(err, &timeoutErr) {
			return nil, &TimeoutError{Service: c.cfg.Name, Timeout: c.cfg.Timeout}
		}
		return nil, err
	}
	return resp, nil
}

func (c *Client) once(ctx context.Context, method, url string, body []byte, headers map[string]string) (*Response, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	if req.Header.Get("Content-Type") == "" && body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}

	c.logger.Debug("sending request", "method", method, "url", url)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return &Response{StatusCode: resp.StatusCode, Body: data}, nil
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, &AuthError{Service: c.cfg.Name, Message: string(data)}
	}
	return nil, &APIError{Service: c.cfg.Name, StatusCode: resp.StatusCode, Message: string(data)}
}

// DoJSON encodes reqBody, sends the request and decodes the response into
// respBody. Either may be nil.
func (c *Client) DoJSON(ctx context.Context, method, url string, reqBody, respBody any, headers map[string]string) error {
	var body []byte
	if reqBody != nil {
		var err error
		body, err = json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	resp, err := c.Do(ctx, method, url, body, headers)
	if err != nil {
		return err
	}

	if respBody != nil && len(resp.Body) > 0 {
		if err := json.Unmarshal(resp.Body, respBody); err != nil {
			return &ParseError{
				Service:     c.cfg.Name,
				RawResponse: string(resp.Body),
				Cause:       fmt.Errorf("failed to unmarshal response: %w", err),
			}
		}
	}
	return nil
}
