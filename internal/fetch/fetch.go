// Package fetch provides a resilient HTTP client for marketplace sources.
//
// Every call is throttled by the per-source rate limiter, retried on
// transient failures with jittered exponential backoff, and rotated across
// a proxy pool when one is configured. Response bytes are returned
// unmodified; parsing is the caller's responsibility.
package fetch

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net"
	"net/http"
	"net/url"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/kwscout/kw-scout/internal/pkg/errors"
	"github.com/kwscout/kw-scout/internal/pkg/logger"
)

// defaultUserAgents is the rotation pool for outbound requests.
var defaultUserAgents = []string{
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
}

// Limiter grants outbound request tokens per source.
type Limiter interface {
	Acquire(ctx context.Context, source string) error
}

// Config configures the client.
type Config struct {
	// MaxAttempts bounds network round-trips per logical fetch.
	MaxAttempts int

	// BackoffBase is the delay before the first retry; subsequent retries
	// double it, with up to ±25% random jitter.
	BackoffBase time.Duration

	// Timeout is the per-attempt request timeout.
	Timeout time.Duration

	// ProxyPool lists alternate proxy URLs. After a failed attempt the
	// client rotates to the next pool entry, returning to the direct
	// connection on success or pool exhaustion.
	ProxyPool []string

	// CacheTTL enables a response cache for GET requests when positive.
	CacheTTL time.Duration

	// UserAgents overrides the default user-agent rotation pool.
	UserAgents []string
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 3,
		BackoffBase: time.Second,
		Timeout:     15 * time.Second,
	}
}

// Request describes one logical fetch.
type Request struct {
	// Source selects the rate limit bucket (e.g. "autocomplete").
	Source string

	// Method defaults to GET.
	Method string

	// URL is the target, without query parameters.
	URL string

	// Query holds query parameters, may be nil.
	Query url.Values

	// Header holds extra headers, may be nil.
	Header http.Header

	// Body is the request body for POST, may be nil.
	Body []byte
}

// Client is a resilient HTTP fetcher.
type Client struct {
	cfg        Config
	limiter    Limiter
	transports []*http.Client // index 0 is the direct connection
	cache      *gocache.Cache
	log        *logger.Logger
	sleep      func(ctx context.Context, d time.Duration) error
	jitter     func() float64 // in [-1, 1)
}

// New creates a fetch client. Each proxy pool entry gets its own underlying
// http.Client so connections are not shared across proxies.
func New(cfg Config, limiter Limiter, log *logger.Logger) (*Client, error) {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if len(cfg.UserAgents) == 0 {
		cfg.UserAgents = defaultUserAgents
	}

	transports := []*http.Client{{Timeout: cfg.Timeout}}
	for _, proxy := range cfg.ProxyPool {
		proxyURL, err := url.Parse(proxy)
		if err != nil {
			return nil, errors.ConfigError(fmt.Sprintf("invalid proxy URL %q", proxy), err)
		}
		transports = append(transports, &http.Client{
			Timeout:   cfg.Timeout,
			Transport: &http.Transport{Proxy: http.ProxyURL(proxyURL)},
		})
	}

	c := &Client{
		cfg:        cfg,
		limiter:    limiter,
		transports: transports,
		log:        log,
		sleep:      sleepCtx,
		jitter:     func() float64 { return rand.Float64()*2 - 1 },
	}

	if cfg.CacheTTL > 0 {
		c.cache = gocache.New(cfg.CacheTTL, 2*cfg.CacheTTL)
	}

	return c, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Do performs one logical fetch and returns the raw response bytes.
//
// Transient failures (timeout, connection reset, HTTP 429/5xx) are retried
// up to MaxAttempts with backoff; other 4xx responses and malformed
// transport errors fail immediately. Every attempt consumes one limiter
// token regardless of outcome. When all attempts fail the returned error
// carries code FETCH_EXHAUSTED and wraps the last underlying error.
func (c *Client) Do(ctx context.Context, req Request) ([]byte, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	target := req.URL
	if len(req.Query) > 0 {
		target = req.URL + "?" + req.Query.Encode()
	}

	if method == http.MethodGet && c.cache != nil {
		if cached, ok := c.cache.Get(target); ok {
			return cached.([]byte), nil
		}
	}

	var lastErr error
	for attempt := 0; attempt < c.cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			if err := c.sleep(ctx, c.backoff(attempt)); err != nil {
				return nil, err
			}
		}

		if err := c.limiter.Acquire(ctx, req.Source); err != nil {
			return nil, err
		}

		body, err := c.attempt(ctx, method, target, req, attempt)
		if err == nil {
			if method == http.MethodGet && c.cache != nil {
				c.cache.SetDefault(target, body)
			}
			return body, nil
		}

		if !errors.IsTransient(err) {
			return nil, err
		}

		lastErr = err
		c.log.Debug("fetch attempt failed",
			"source", req.Source,
			"url", req.URL,
			"attempt", attempt+1,
			"error", err,
		)
	}

	return nil, errors.FetchExhaustedError(c.cfg.MaxAttempts, lastErr)
}

// attempt performs one round-trip on the pool entry for this attempt.
func (c *Client) attempt(ctx context.Context, method, target string, req Request, attempt int) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, method, target, bytes.NewReader(req.Body))
	if err != nil {
		return nil, errors.PermanentFetchError("building request", err)
	}

	for key, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	if httpReq.Header.Get("User-Agent") == "" {
		httpReq.Header.Set("User-Agent", c.cfg.UserAgents[rand.IntN(len(c.cfg.UserAgents))])
	}
	if httpReq.Header.Get("Accept") == "" {
		httpReq.Header.Set("Accept", "application/json, text/html, */*")
	}

	resp, err := c.transport(attempt).Do(httpReq)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.TransientFetchError("reading response body", err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return body, nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, errors.TransientFetchError(
			fmt.Sprintf("HTTP %d from %s", resp.StatusCode, req.URL), nil)
	default:
		return nil, errors.PermanentFetchError(
			fmt.Sprintf("HTTP %d from %s", resp.StatusCode, req.URL), nil)
	}
}

// transport returns the pool entry for an attempt. Attempt 0 uses the
// direct connection; each subsequent attempt rotates through the pool.
func (c *Client) transport(attempt int) *http.Client {
	return c.transports[attempt%len(c.transports)]
}

// HTTPClient exposes the direct-connection client, mainly so tests can
// install mock transports.
func (c *Client) HTTPClient() *http.Client {
	return c.transports[0]
}

// backoff returns base * 2^(attempt-1) with up to ±25% jitter.
func (c *Client) backoff(attempt int) time.Duration {
	d := c.cfg.BackoffBase << (attempt - 1)
	jittered := float64(d) * (1 + 0.25*c.jitter())
	return time.Duration(jittered)
}

func classifyTransportError(err error) error {
	var netErr net.Error
	if stderrors.As(err, &netErr) && netErr.Timeout() {
		return errors.TransientFetchError("request timed out", err)
	}

	// Connection resets, refused connections, and DNS hiccups are all
	// worth retrying; there is no permanent transport failure class.
	return errors.TransientFetchError("transport failure", err)
}
