// Package rest provides the stateless REST transport used for the Ftx-style
// exchange venue's login, order placement, and wallet reads.
package rest

import (
	"context"
	"encoding/json"
	"time"

	"github.com/banky/relay/constants"
	"github.com/go-resty/resty/v2"
	"github.com/samber/mo"
)

// Client is a thin, stateless wrapper over a venue's REST base URL. A
// Client carries no credentials of its own; callers attach auth headers
// per request (see exchange.FtxOrderClient for the signing scheme).
type Client struct {
	baseURL string
	timeout mo.Option[time.Duration]
	client  *resty.Client
}

// Config configures a Client.
type Config struct {
	// BaseURL is the venue's REST base URL. If empty, the mainnet URL is
	// used.
	BaseURL string
	// Timeout bounds each request. Zero means no client-side timeout.
	Timeout time.Duration
}

// New creates a Client from the given configuration.
func New(c Config) *Client {
	baseURL := c.BaseURL
	if baseURL == "" {
		baseURL = constants.FtxMainnetAPIURL
	}

	var timeout mo.Option[time.Duration]
	if c.Timeout != 0 {
		timeout = mo.Some(c.Timeout)
	}

	return &Client{
		baseURL: baseURL,
		timeout: timeout,
		client: resty.New().
			SetJSONMarshaler(json.Marshal).
			SetJSONUnmarshaler(json.Unmarshal),
	}
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// IsMainnet reports whether the client points at the mainnet API.
func (c *Client) IsMainnet() bool { return c.baseURL == constants.FtxMainnetAPIURL }

// Do sends an HTTP request with the given method, path, headers and body,
// decoding the JSON response body into result on success.
func (c *Client) Do(ctx context.Context, method, path string, headers map[string]string, body any, result any) error {
	if timeout, ok := c.timeout.Get(); ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeaders(headers)

	if body != nil {
		req = req.SetBody(body)
	}
	if result != nil {
		req = req.SetResult(result)
	}

	resp, err := req.Execute(method, c.baseURL+path)
	if err != nil {
		return err
	}
	return handleException(resp)
}

// Post is a convenience wrapper for Do with method POST and no extra
// headers.
func (c *Client) Post(ctx context.Context, path string, body any, result any) error {
	return c.Do(ctx, "POST", path, nil, body, result)
}

// Get is a convenience wrapper for Do with method GET and no body.
func (c *Client) Get(ctx context.Context, path string, headers map[string]string, result any) error {
	return c.Do(ctx, "GET", path, headers, nil, result)
}

// Post decodes the venue's response into a freshly allocated T, the
// generic counterpart to (*Client).Post used where the caller wants the
// value back rather than an out-parameter.
func Post[T any](ctx context.Context, c *Client, path string, headers map[string]string, body any) (T, error) {
	var result T
	err := c.Do(ctx, "POST", path, headers, body, &result)
	return result, err
}
