package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultTimeout bounds a single HTTP request. Resolution applies its
	// own, usually shorter, per-source deadline on top.
	DefaultTimeout = 30 * time.Second

	// userAgent identifies the pipeline to public APIs.
	userAgent = "citeweave/1.0 (+https://github.com/matsen/citeweave)"

	// maxBodyBytes caps how much of a response is read.
	maxBodyBytes = 4 << 20
)

// client is the rate-limited HTTP plumbing shared by the API adapters.
type client struct {
	name       string
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	apiKey     string
	header     http.Header
}

// Option configures an HTTP-backed source.
type Option func(*client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) {
		c.httpClient = hc
	}
}

// WithBaseURL sets a custom base URL (for testing or mirrors).
func WithBaseURL(u string) Option {
	return func(c *client) {
		if u != "" {
			c.baseURL = strings.TrimSuffix(u, "/")
		}
	}
}

// WithAPIKey sets the credential the source sends with each request.
func WithAPIKey(key string) Option {
	return func(c *client) {
		c.apiKey = key
	}
}

// WithRateLimit sets the sustained requests per second. Zero keeps the
// source default.
func WithRateLimit(rps float64) Option {
	return func(c *client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

func newClient(name, baseURL string, rps float64, opts []Option) *client {
	c := &client{
		name:       name,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		baseURL:    baseURL,
		header:     make(http.Header),
	}
	c.header.Set("User-Agent", userAgent)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// get performs a rate-limited GET and returns the body of a 2xx response.
func (c *client) get(ctx context.Context, rawURL string, accept string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%s: rate limiter: %w", c.name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: creating request: %w", c.name, err)
	}
	for k, vs := range c.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%s: %w: %v", c.name, ErrNetworkError, err)
	}
	defer resp.Body.Close()

	if err := checkHTTPErrors(c.name, resp); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%s: %w: reading body: %v", c.name, ErrNetworkError, err)
	}
	return body, nil
}

// getJSON GETs baseURL+path with params and decodes the JSON body into out.
func (c *client) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	body, err := c.get(ctx, u, "application/json")
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%s: %w: %v", c.name, ErrInvalidResponse, err)
	}
	return nil
}
