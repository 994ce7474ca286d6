package openrouter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/germanamz/studio/pkg/catalog"
)

// DefaultBaseURL is the public OpenRouter API root.
const DefaultBaseURL = "https://openrouter.ai/api/v1"

// Client talks to the aggregator API. The zero value is not usable; build
// one with New.
type Client struct {
	BaseURL  string            // API base URL (no trailing slash).
	AppURL   string            // Sent as HTTP-Referer when set.
	AppTitle string            // Sent as X-Title when set.
	Headers  map[string]string // Extra headers applied to every request.
	HTTP     *http.Client      // HTTP client; falls back to a client without timeout.
	Logger   *slog.Logger

	clientOnce    sync.Once
	defaultClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for every request.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.HTTP = hc }
}

// WithAttribution sets the HTTP-Referer and X-Title headers.
func WithAttribution(appURL, appTitle string) Option {
	return func(c *Client) {
		c.AppURL = appURL
		c.AppTitle = appTitle
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.Logger = l }
}

// New creates a client for baseURL. An empty baseURL uses DefaultBaseURL.
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	c := &Client{BaseURL: strings.TrimRight(baseURL, "/")}
	for _, o := range opts {
		o(c)
	}

	if c.Logger == nil {
		c.Logger = slog.Default()
	}

	return c
}

func (c *Client) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

// httpClient returns the configured client or a cached default. Streams can
// run for minutes, so the default has no overall timeout and relies on the
// request context instead.
func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}

	c.clientOnce.Do(func() {
		c.defaultClient = &http.Client{
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				ResponseHeaderTimeout: 2 * time.Minute,
				IdleConnTimeout:       90 * time.Second,
			},
		}
	})

	return c.defaultClient
}

// NewRequest builds an *http.Request with the base URL, bearer auth, the
// attribution headers and custom headers already applied. An empty key
// sends no Authorization header.
func (c *Client) NewRequest(ctx context.Context, method, path, key string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, err
	}

	if key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}
	if c.AppURL != "" {
		req.Header.Set("HTTP-Referer", c.AppURL)
	}
	if c.AppTitle != "" {
		req.Header.Set("X-Title", c.AppTitle)
	}

	for k, v := range c.Headers {
		req.Header.Set(k, v)
	}

	return req, nil
}

// Do sends the request using the configured HTTP client.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	return c.httpClient().Do(req) //nolint:gosec // URL is built from trusted BaseURL config.
}

// ListModels fetches the model list. Any failure is logged and yields an
// empty, non-nil slice.
func (c *Client) ListModels(ctx context.Context) []catalog.Model {
	models, err := c.listModels(ctx)
	if err != nil {
		c.logger().WarnContext(ctx, "openrouter: list models failed", "error", err)
		return []catalog.Model{}
	}

	return models
}

func (c *Client) listModels(ctx context.Context) ([]catalog.Model, error) {
	req, err := c.NewRequest(ctx, http.MethodGet, "/models", "", nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Accept", "application/json")

	resp, err := c.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Code: resp.StatusCode}
	}

	var payload struct {
		Data []catalog.Model `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if payload.Data == nil {
		return []catalog.Model{}, nil
	}

	return payload.Data, nil
}

// Stream runs a new session to completion. See Session.Run.
func (c *Client) Stream(ctx context.Context, req Request, sink Sink) (State, error) {
	return c.NewSession(req, sink).Run(ctx)
}
