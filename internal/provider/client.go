// Package provider talks to the external image sources (Wikimedia Commons,
// Open Library, TMDB, OpenAI), downloads what they return into the vault and
// dispatches each marker kind to its lookup strategy.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/starford/vaultfill/internal/apperr"
)

// DefaultUserAgent identifies the tool to the public APIs, which reject
// anonymous clients.
const DefaultUserAgent = "vaultfill/0.1.0 (+https://github.com/starford/vaultfill)"

// DefaultTimeout bounds a single lookup request.
const DefaultTimeout = 20 * time.Second

// ImageRef is a resolved, fetchable image.
type ImageRef struct {
	Label string
	URL   string
}

// Client is the HTTP plumbing shared by every lookup service.
type Client struct {
	httpClient *http.Client
	userAgent  string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// NewClient returns a Client with the default timeout and user agent.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		userAgent:  DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, params url.Values, header http.Header) (*http.Request, error) {
	u := endpoint
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return nil, fmt.Errorf("provider: build request %s: %w", endpoint, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	return req, nil
}

// getJSON issues a GET and decodes a 2xx JSON response into out. Errors
// never include params, which may carry credentials.
func (c *Client) getJSON(ctx context.Context, endpoint string, params url.Values, header http.Header, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, endpoint, params, header)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperr.Provider(fmt.Errorf("GET %s: %w", endpoint, err), "lookup request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apperr.Provider(fmt.Errorf("GET %s: status %d", endpoint, resp.StatusCode), "lookup request failed")
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperr.Provider(fmt.Errorf("decode %s: %w", endpoint, err), "lookup response invalid")
	}
	return nil
}

// headStatus issues a HEAD request (redirects followed) and returns the final
// status code.
func (c *Client) headStatus(ctx context.Context, endpoint string) (int, error) {
	req, err := c.newRequest(ctx, http.MethodHead, endpoint, nil, nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("HEAD %s: %w", endpoint, err)
	}
	resp.Body.Close()
	return resp.StatusCode, nil
}

// open issues a GET and returns the response for a 2xx status. The caller
// closes the body.
func (c *Client) open(ctx context.Context, endpoint string) (*http.Response, error) {
	req, err := c.newRequest(ctx, http.MethodGet, endpoint, nil, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperr.Provider(fmt.Errorf("GET %s: %w", endpoint, err), "download failed")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, apperr.Provider(fmt.Errorf("GET %s: status %d", endpoint, resp.StatusCode), "download failed")
	}
	return resp, nil
}
