package provider

import (
	"log/slog"
	"net/http"
	"time"
)

// Endpoint identifies one upstream service: where it lives and how to
// authenticate against it.
type Endpoint struct {
	BaseURL string
	APIKey  string
}

// Client fans requests out to the three upstream families the sync core
// consumes: fast prices, detailed reference data, and the derivatives
// feed. Each family can point at its own host and key; by default all
// three share the pair given to NewClient.
type Client struct {
	fast     Endpoint
	detailed Endpoint
	feed     Endpoint

	httpClient *http.Client
	logger     *slog.Logger

	maxRetries   int
	retryBackoff time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a REST provider client. All three endpoint families
// start on the shared base URL and key; use the endpoint options to
// split them across providers.
func NewClient(baseURL, apiKey string, opts ...ClientOption) *Client {
	shared := Endpoint{BaseURL: baseURL, APIKey: apiKey}
	c := &Client{
		fast:     shared,
		detailed: shared,
		feed:     shared,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		logger:       slog.Default(),
		maxRetries:   2,
		retryBackoff: time.Second,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithFastEndpoint points the low-latency price family at its own provider.
func WithFastEndpoint(ep Endpoint) ClientOption {
	return func(c *Client) {
		c.fast = ep
	}
}

// WithDetailedEndpoint points the reference-data family at its own provider.
func WithDetailedEndpoint(ep Endpoint) ClientOption {
	return func(c *Client) {
		c.detailed = ep
	}
}

// WithFeedEndpoint points the derivatives feed family at its own provider.
func WithFeedEndpoint(ep Endpoint) ClientOption {
	return func(c *Client) {
		c.feed = ep
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithRetries sets the retry configuration.
func WithRetries(max int, backoff time.Duration) ClientOption {
	return func(c *Client) {
		c.maxRetries = max
		c.retryBackoff = backoff
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}
