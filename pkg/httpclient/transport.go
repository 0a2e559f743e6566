package httpclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// HTTPClient returns a client whose transport applies the retry policy of
// Do: network errors, 429 and 5xx responses are retried, everything else
// is handed back to the caller. Timeout bounds each attempt. When retries
// are exhausted on a status error the last response is returned, so the
// SDK sees the real status code.
func (c *Client) HTTPClient() *http.Client {
	return &http.Client{Transport: &retryTransport{client: c, base: c.http.Transport}}
}

type retryTransport struct {
	client *Client
	base   http.RoundTripper
}

// statusError carries a retryable response whose body was already read.
type statusError struct {
	resp *http.Response
	body []byte
}

func (e *statusError) Error() string {
	return fmt.Sprintf("retryable status %d", e.resp.StatusCode)
}

// cancelBody releases the attempt context once the caller is done with
// the body.
type cancelBody struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b cancelBody) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil && req.Body != http.NoBody {
		data, err := io.ReadAll(req.Body)
		_ = req.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read request body: %w", err)
		}
		body = data
	}

	ctx := req.Context()
	cfg := t.client.cfg
	attempt := 0
	op := func() (*http.Response, error) {
		attempt++
		attemptCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
		r := req.Clone(attemptCtx)
		if body != nil {
			r.Body = io.NopCloser(bytes.NewReader(body))
			r.ContentLength = int64(len(body))
		}

		resp, err := t.base.RoundTrip(r)
		if err != nil {
			cancel()
			if ctx.Err() != nil {
				return nil, backoff.Permanent(ctx.Err())
			}
			return nil, err
		}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			data, _ := io.ReadAll(resp.Body)
			_ = resp.Body.Close()
			cancel()
			return nil, &statusError{resp: resp, body: data}
		}
		resp.Body = cancelBody{ReadCloser: resp.Body, cancel: cancel}
		return resp, nil
	}

	resp, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(t.client.newBackOff()),
		backoff.WithMaxTries(uint(cfg.MaxRetries+1)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			t.client.logger.Warn("request failed, will retry",
				"method", req.Method,
				"attempt", attempt,
				"max_retries", cfg.MaxRetries,
				"backoff", next,
				"error", err,
			)
		}),
	)
	var serr *statusError
	if errors.As(err, &serr) {
		last := serr.resp
		last.Body = io.NopCloser(bytes.NewReader(serr.body))
		return last, nil
	}
	return resp, err
}
