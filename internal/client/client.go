// Package client talks to a delayd instance.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var ErrUnexpectedStatus = errors.New("unexpected status")

type Client struct {
	endpoint string
	timeout  time.Duration
	http     *http.Client
}

type Option func(*Client)

// WithTimeout bounds each request. Default 10s.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithHTTPClient replaces the built-in client; WithTimeout is then ignored.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// New builds a client for baseURL. route defaults to /api/delay.
func New(baseURL, route string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid base url %q: scheme must be http or https", baseURL)
	}
	if route == "" {
		route = "/api/delay"
	}
	if !strings.HasPrefix(route, "/") {
		route = "/" + route
	}

	c := &Client{
		endpoint: u.String() + route,
		timeout:  10 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = &http.Client{
			Timeout:   c.timeout,
			Transport: newTransport(c.timeout),
		}
	}
	return c, nil
}

func (c *Client) Endpoint() string { return c.endpoint }

type delayBody struct {
	Delay *int `json:"delay"`
}

func (c *Client) Get(ctx context.Context) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return 0, err
	}
	return c.do(req)
}

// Set asks the service to store v and returns the value it stored, which
// may differ from v after clamping.
func (c *Client) Set(ctx context.Context, v int) (int, error) {
	b, err := json.Marshal(map[string]int{"delay": v})
	if err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(b))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *Client) do(req *http.Request) (int, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	if err != nil {
		return 0, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: %d %s", ErrUnexpectedStatus, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out delayBody
	if err := json.Unmarshal(body, &out); err != nil {
		return 0, fmt.Errorf("decode response: %w", err)
	}
	if out.Delay == nil {
		return 0, errors.New("decode response: missing delay")
	}
	return *out.Delay, nil
}
