package base

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"

	"payhub/internal/connector"
)

// HTTPClient sends built connector requests over HTTP. It is the
// connector.Executor used in production.
type HTTPClient struct {
	client  *http.Client
	name    string // for logging
	retries uint64
}

// NewHTTPClient creates a client with the given timeout in seconds. Idempotent
// requests are retried up to retries times on transport errors and gateway
// failures.
func NewHTTPClient(name string, timeoutSec int, retries uint64) *HTTPClient {
	if timeoutSec == 0 {
		timeoutSec = 30 // default timeout
	}
	return &HTTPClient{
		client:  &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
		name:    name,
		retries: retries,
	}
}

// WithTransport swaps the underlying client, mostly for tests.
func (c *HTTPClient) WithTransport(hc *http.Client) *HTTPClient {
	c.client = hc
	return c
}

// Do implements connector.Executor.
func (c *HTTPClient) Do(ctx context.Context, req *connector.Request) (connector.Response, error) {
	var (
		body        []byte
		contentType string
	)
	if req.Body != nil {
		var err error
		body, contentType, err = req.Body.Encode()
		if err != nil {
			return connector.Response{}, connector.RequestEncodingFailed(err)
		}
	}

	var out connector.Response
	op := func() error {
		res, err := c.send(ctx, req, body, contentType)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		out = res
		if retryable(res.StatusCode) {
			return fmt.Errorf("%s answered %d", c.name, res.StatusCode)
		}
		return nil
	}

	var b backoff.BackOff = &backoff.StopBackOff{}
	if req.Method == connector.MethodGet && c.retries > 0 {
		b = backoff.WithMaxRetries(backoff.NewExponentialBackOff(), c.retries)
	}
	err := backoff.RetryNotify(op, backoff.WithContext(b, ctx), func(err error, wait time.Duration) {
		log.Warn().Str("provider", c.name).Str("url", req.URL).Dur("wait", wait).Err(err).Msg("retrying connector call")
	})
	if err != nil && out.StatusCode == 0 {
		return connector.Response{}, err
	}
	return out, nil
}

func (c *HTTPClient) send(ctx context.Context, req *connector.Request, body []byte, contentType string) (connector.Response, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	hr, err := http.NewRequestWithContext(ctx, string(req.Method), req.URL, rd)
	if err != nil {
		return connector.Response{}, fmt.Errorf("failed to create request: %w", err)
	}
	hr.Header.Set("User-Agent", "payhub/"+c.name)
	for _, h := range req.Headers {
		hr.Header.Set(h.Name, h.Value.Expose())
	}
	// multipart bodies carry their boundary in the content type
	if contentType != "" && (hr.Header.Get(connector.HeaderContentType) == "" || req.Body.Kind() == connector.BodyFormData) {
		hr.Header.Set(connector.HeaderContentType, contentType)
	}

	log.Debug().
		Str("provider", c.name).
		Str("method", string(req.Method)).
		Str("url", req.URL).
		Msg("making HTTP request")

	resp, err := c.client.Do(hr)
	if err != nil {
		log.Error().
			Str("provider", c.name).
			Str("url", req.URL).
			Err(err).
			Msg("HTTP request failed")
		return connector.Response{}, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return connector.Response{}, fmt.Errorf("failed to read response body: %w", err)
	}
	log.Debug().
		Str("provider", c.name).
		Int("status_code", resp.StatusCode).
		Int("body_length", len(b)).
		Msg("received HTTP response")

	return connector.Response{StatusCode: resp.StatusCode, Headers: resp.Header, Body: b}, nil
}

func retryable(code int) bool {
	return code == http.StatusBadGateway || code == http.StatusServiceUnavailable || code == http.StatusGatewayTimeout
}
