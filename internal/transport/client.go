// Package transport is the HTTP client shared by the registry client and the
// installer: resty on top of a retrying transport, with the tool's
// User-Agent and optional GitHub token applied to every request.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/extpm-labs/extpm/internal/branding"
	"github.com/extpm-labs/extpm/internal/logging"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

// StatusError reports a non-2xx response.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	switch e.Code {
	case http.StatusForbidden, http.StatusTooManyRequests:
		return fmt.Sprintf("GET %s: status %d (rate limited? set GITHUB_TOKEN for higher limits)", e.URL, e.Code)
	default:
		return fmt.Sprintf("GET %s: status %d", e.URL, e.Code)
	}
}

// Client performs GET requests against the hosting service.
type Client struct {
	resty *resty.Client
}

type options struct {
	timeout    time.Duration
	retries    int
	userAgent  string
	token      string
	logger     *zap.Logger
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*options)

// WithTimeout bounds each request, including retries.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithRetries sets how many times a failed request is retried.
func WithRetries(n int) Option {
	return func(o *options) { o.retries = n }
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(o *options) { o.userAgent = ua }
}

// WithToken sets a bearer token. By default GITHUB_TOKEN is used when set.
func WithToken(token string) Option {
	return func(o *options) { o.token = token }
}

// WithLogger routes retry diagnostics to l.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithHTTPClient sets the underlying HTTP client (useful for testing).
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// New creates a Client.
func New(opts ...Option) *Client {
	o := options{
		timeout:   30 * time.Second,
		retries:   2,
		userAgent: branding.UserAgent(),
		token:     os.Getenv("GITHUB_TOKEN"),
	}
	for _, opt := range opts {
		opt(&o)
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = o.retries
	retryClient.RetryWaitMin = 200 * time.Millisecond
	retryClient.RetryWaitMax = 2 * time.Second
	retryClient.Logger = logging.NewLeveled(o.logger)
	if o.httpClient != nil {
		retryClient.HTTPClient = o.httpClient
	}

	r := resty.NewWithClient(retryClient.StandardClient()).
		SetTimeout(o.timeout).
		SetHeader("User-Agent", o.userAgent)
	if o.token != "" {
		r.SetAuthToken(o.token)
	}

	return &Client{resty: r}
}

// Get fetches url and returns the response body.
func (c *Client) Get(ctx context.Context, url string, headers map[string]string) ([]byte, error) {
	resp, err := c.resty.R().
		SetContext(ctx).
		SetHeaders(headers).
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", url, err)
	}
	if resp.IsError() {
		return nil, &StatusError{URL: url, Code: resp.StatusCode()}
	}
	return resp.Body(), nil
}

// GetJSON fetches url and decodes the JSON response into out.
func (c *Client) GetJSON(ctx context.Context, url string, out interface{}) error {
	body, err := c.Get(ctx, url, map[string]string{"Accept": "application/vnd.github+json"})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding %s: %w", url, err)
	}
	return nil
}

// Download streams url into the file at dest. A partial file is removed on
// failure.
func (c *Client) Download(ctx context.Context, url, dest string) error {
	resp, err := c.resty.R().
		SetContext(ctx).
		SetOutput(dest).
		Get(url)
	if err != nil {
		os.Remove(dest)
		return fmt.Errorf("GET %s: %w", url, err)
	}
	if resp.IsError() {
		os.Remove(dest)
		return &StatusError{URL: url, Code: resp.StatusCode()}
	}
	return nil
}
