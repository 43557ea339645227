// Package jina provides a client for the Jina AI Reader, which renders a page
// remotely and returns its content as markdown.
package jina

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/procurement-leads/internal/resilience"
)

// Client defines the Jina AI Reader operations.
type Client interface {
	// Read fetches a URL via Jina AI Reader and returns the markdown content.
	Read(ctx context.Context, targetURL string, opts ...ReadOption) (*ReadResponse, error)
}

// ReadResponse is the parsed Jina API response.
type ReadResponse struct {
	Code int      `json:"code"`
	Data ReadData `json:"data"`
}

// ReadData holds the content from Jina.
type ReadData struct {
	Title   string    `json:"title"`
	URL     string    `json:"url"`
	Content string    `json:"content"`
	Usage   ReadUsage `json:"usage"`
}

// ReadUsage tracks token consumption.
type ReadUsage struct {
	Tokens int `json:"tokens"`
}

// ReadOption configures a single Read call.
type ReadOption func(*readOpts)

type readOpts struct {
	waitForSelector string
	timeoutSecs     int
}

// WithWaitForSelector asks the reader to wait until selector is present
// before capturing the page.
func WithWaitForSelector(selector string) ReadOption {
	return func(o *readOpts) {
		o.waitForSelector = selector
	}
}

// WithTimeout bounds the remote render in seconds.
func WithTimeout(secs int) ReadOption {
	return func(o *readOpts) {
		o.timeoutSecs = secs
	}
}

// Option configures the Jina client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithBackoff replaces the retry schedule.
func WithBackoff(b resilience.Backoff) Option {
	return func(c *httpClient) {
		c.backoff = b
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	backoff resilience.Backoff
}

// NewClient creates a new Jina AI Reader client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: "https://r.jina.ai",
		http: &http.Client{
			Timeout: 90 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		backoff: resilience.Backoff{Attempts: 3, Base: time.Second, Max: 8 * time.Second, Factor: 2, Name: "jina.read"},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type rawResponse struct {
	body   []byte
	status int
}

// send executes req, retrying network failures and 429/5xx replies.
func (c *httpClient) send(ctx context.Context, req *http.Request) (rawResponse, error) {
	return resilience.Retry(ctx, c.backoff, func(ctx context.Context) (rawResponse, error) {
		resp, err := c.http.Do(req.Clone(ctx))
		if err != nil {
			return rawResponse{}, resilience.Transient(err, 0)
		}
		defer resp.Body.Close() //nolint:errcheck

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return rawResponse{}, eris.Wrap(err, "jina: read response body")
		}
		if resilience.TransientStatus(resp.StatusCode) {
			return rawResponse{}, resilience.Transient(
				eris.Errorf("jina: status %d: %s", resp.StatusCode, string(body)), resp.StatusCode)
		}
		return rawResponse{body: body, status: resp.StatusCode}, nil
	})
}

func (c *httpClient) Read(ctx context.Context, targetURL string, opts ...ReadOption) (*ReadResponse, error) {
	ro := &readOpts{}
	for _, opt := range opts {
		opt(ro)
	}

	reqURL := fmt.Sprintf("%s/%s", c.baseURL, targetURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "jina: create request")
	}

	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Return-Format", "markdown")
	if ro.waitForSelector != "" {
		req.Header.Set("X-Wait-For-Selector", ro.waitForSelector)
	}
	if ro.timeoutSecs > 0 {
		req.Header.Set("X-Timeout", strconv.Itoa(ro.timeoutSecs))
	}

	raw, err := c.send(ctx, req)
	if err != nil {
		return nil, eris.Wrap(err, "jina: request failed")
	}

	if raw.status != http.StatusOK {
		return nil, eris.Errorf("jina: unexpected status %d: %s", raw.status, string(raw.body))
	}

	var result ReadResponse
	if err := json.Unmarshal(raw.body, &result); err != nil {
		return nil, eris.Wrap(err, "jina: unmarshal response")
	}

	return &result, nil
}
