package yahoo

import (
	"net/http"
	"net/url"
)

const (
	baseURL = "https://query1.finance.yahoo.com"
	// cookieURL hands out the session cookie the crumb is bound to.
	cookieURL = "https://fc.yahoo.com/"
)

// HTTPClient describes an HTTP client.
//
//go:generate mockgen -package=yahoo_test -destination=mock_http_client_test.go -source=client.go HTTPClient
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is a client for the Yahoo Finance quote and chart endpoints.
type Client struct {
	// baseURL is the base URL for the API.
	baseURL string
	// httpClient is the HTTP httpClient.
	httpClient HTTPClient
	// header contains additional headers to be sent with each request.
	header http.Header
	// query contains additional query parameters to be sent with each request.
	query url.Values
	// cookieURL is fetched once per session to obtain Yahoo's cookie.
	cookieURL string
	// session is shared between a client and its per-call clones.
	session *session
}

// ClientOption is a configuration option for the Yahoo Finance client.
type ClientOption func(*Client)

// WithBaseURL sets the base URL for the API.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

// WithHTTPClient sets the HTTP client for the API.
func WithHTTPClient(httpClient HTTPClient) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithHeader sets additional headers to be sent with each request.
func WithHeader(header http.Header) ClientOption {
	return func(c *Client) {
		for key, values := range header {
			for _, value := range values {
				c.header.Add(key, value)
			}
		}
	}
}

// WithQuery sets additional query parameters to be sent with each request.
func WithQuery(query url.Values) ClientOption {
	return func(c *Client) {
		for key, values := range query {
			for _, value := range values {
				c.query.Add(key, value)
			}
		}
	}
}

// WithCookieURL sets the URL used to obtain the session cookie.
func WithCookieURL(u string) ClientOption {
	return func(c *Client) {
		if u != "" {
			c.cookieURL = u
		}
	}
}

// WithCrumb starts the client with a known crumb, skipping the handshake
// until Yahoo rejects it.
func WithCrumb(crumb string) ClientOption {
	return func(c *Client) {
		c.session = &session{crumb: crumb}
	}
}

// NewClient creates a new Yahoo Finance client.
func NewClient(options ...ClientOption) (*Client, error) {
	var client = &Client{
		baseURL:    baseURL,
		httpClient: http.DefaultClient,
		header:     http.Header{},
		query:      url.Values{},
		cookieURL:  cookieURL,
		session:    &session{},
	}
	for _, option := range options {
		option(client)
	}
	return client, nil
}

// clone returns a copy of c with opts applied, for per-call overrides.
func (c *Client) clone(opts ...ClientOption) *Client {
	var override = &Client{
		baseURL:    c.baseURL,
		httpClient: c.httpClient,
		header:     c.header.Clone(),
		query:      url.Values{},
		cookieURL:  c.cookieURL,
		session:    c.session,
	}
	for key, values := range c.query {
		override.query[key] = append([]string(nil), values...)
	}
	for _, opt := range opts {
		opt(override)
	}
	return override
}
