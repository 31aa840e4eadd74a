package reader

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"walletscope/config"
	"walletscope/internal/metrics"
	"walletscope/logger"
	"walletscope/models"
)

const maxBodyBytes = 16 << 20

// StatusError is a non-2xx HTTP response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

func (e *StatusError) retriable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Client is an HTTP JSON client with a bounded retry policy. Every
// error it returns wraps its sentinel, models.ErrProviderUnavailable
// unless overridden.
type Client struct {
	name     string
	http     *http.Client
	retry    config.RetryConfig
	sentinel error
	log      *logger.Log
	rpcID    atomic.Int64
	sleep    func(ctx context.Context, d time.Duration) error
}

type Option func(*Client)

// WithRetry replaces the retry policy. MaxAttempts below 1 means one attempt.
func WithRetry(r config.RetryConfig) Option {
	return func(c *Client) { c.retry = r }
}

// WithSentinel sets the error every failure wraps.
func WithSentinel(err error) Option {
	return func(c *Client) { c.sentinel = err }
}

// WithHTTPClient replaces the pooled HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// NewClient builds a client with its own connection pool.
func NewClient(name string, cfg config.ReaderConfig, opts ...Option) *Client {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        cfg.ConnectionPool.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.ConnectionPool.MaxIdleConns,
		MaxConnsPerHost:     cfg.ConnectionPool.MaxConnsPerHost,
		IdleConnTimeout:     cfg.ConnectionPool.IdleConnTimeout,
		ForceAttemptHTTP2:   true,
	}
	agent := cfg.UserAgent
	if agent == "" {
		agent = "walletscope/1.0"
	}

	c := &Client{
		name:     name,
		http:     &http.Client{Transport: userAgentTransport{agent: agent, base: transport}, Timeout: cfg.Timeout},
		retry:    cfg.Retry,
		sentinel: models.ErrProviderUnavailable,
		log:      logger.GetLogger(),
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Name() string { return c.name }

// HTTPClient exposes the pooled client for SDKs that bring their own
// request handling.
func (c *Client) HTTPClient() *http.Client { return c.http }

// GetJSON issues a GET and decodes the JSON body into out.
func (c *Client) GetJSON(ctx context.Context, url string, header http.Header, out any) error {
	body, err := c.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		for k, vs := range header {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}
		return req, nil
	})
	if err != nil {
		return err
	}
	return c.decode(body, out)
}

// PostJSON marshals in, POSTs it and decodes the JSON body into out.
func (c *Client) PostJSON(ctx context.Context, url string, in any, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%s: encode request: %w", c.name, err)
	}
	body, err := c.Do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return err
	}
	return c.decode(body, out)
}

// CallRPC performs a JSON-RPC 2.0 call. A null result leaves out untouched.
func (c *Client) CallRPC(ctx context.Context, url, method string, params any, out any) error {
	req := models.RPCRequest{
		JSONRPC: "2.0",
		ID:      int(c.rpcID.Add(1)),
		Method:  method,
		Params:  params,
	}
	var resp models.RPCResponse
	if err := c.PostJSON(ctx, url, req, &resp); err != nil {
		return err
	}
	if resp.Error != nil {
		return fmt.Errorf("%s: %s: %w: rpc error %d: %s", c.name, method, c.sentinel, resp.Error.Code, resp.Error.Message)
	}
	if len(resp.Result) == 0 || string(resp.Result) == "null" {
		return nil
	}
	return c.decode(resp.Result, out)
}

// Do sends the request produced by build, retrying transport errors,
// 429 and 5xx responses with exponential backoff.
func (c *Client) Do(ctx context.Context, build func(ctx context.Context) (*http.Request, error)) ([]byte, error) {
	log := c.log.WithComponent("reader").WithFields(logger.Fields{"provider": c.name})
	attempts := c.retry.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		req, err := build(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s: build request: %w: %w", c.name, c.sentinel, err)
		}

		start := time.Now()
		body, retryAfter, err := c.once(req)
		if err == nil {
			logger.LogPerformanceEntry(log, "reader", "api_request", time.Since(start), logger.Fields{"attempt": attempt})
			return body, nil
		}
		lastErr = err

		var status *StatusError
		if errors.As(err, &status) && !status.retriable() {
			break
		}
		if ctx.Err() != nil || attempt == attempts {
			break
		}

		delay := c.backoff(attempt)
		if retryAfter > delay {
			delay = min(retryAfter, c.maxDelay())
		}
		log.WithError(err).WithFields(logger.Fields{
			"attempt":  attempt,
			"delay_ms": delay.Milliseconds(),
		}).Warn("request failed, retrying")
		if err := c.sleep(ctx, delay); err != nil {
			lastErr = err
			break
		}
	}

	if errors.Is(c.sentinel, models.ErrProviderUnavailable) {
		metrics.IncrementProviderError(c.name)
		c.log.LogMetric("reader", "provider_errors", 1, "counter", logger.Fields{"provider": c.name})
	}
	return nil, fmt.Errorf("%s: %w: %w", c.name, c.sentinel, lastErr)
}

func (c *Client) once(req *http.Request) ([]byte, time.Duration, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, 0, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, parseRetryAfter(resp.Header.Get("Retry-After")), &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(body), 256)}
	}
	return body, 0, nil
}

func (c *Client) decode(body []byte, out any) error {
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", c.name, err)
	}
	return nil
}

func (c *Client) backoff(attempt int) time.Duration {
	delay := c.retry.BaseDelay
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}
	mult := c.retry.BackoffMultiplier
	if mult < 1 {
		mult = 2
	}
	for i := 1; i < attempt; i++ {
		delay *= time.Duration(mult)
	}
	return min(delay, c.maxDelay())
}

func (c *Client) maxDelay() time.Duration {
	if c.retry.MaxDelay > 0 {
		return c.retry.MaxDelay
	}
	return 5 * time.Second
}

func parseRetryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
