// Package cvm fetches bulk open-data files from the CVM portal: the
// monthly daily-report (informe diario) CSVs, the legacy yearly ZIP
// archives, and the full fund registry.
package cvm

import (
	"log/slog"
	"net/http"
	"time"
)

// Client downloads CVM bulk files. It holds no local state beyond the
// HTTP client; every fetch is a plain GET against the open-data portal.
type Client struct {
	baseURL     string
	registryURL string
	httpClient  *http.Client
	logger      *slog.Logger

	maxRetries   int
	retryBackoff time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a client for the daily-report directory at baseURL
// and the registry CSV at registryURL.
func NewClient(baseURL, registryURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:     baseURL,
		registryURL: registryURL,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger:       slog.Default(),
		maxRetries:   3,
		retryBackoff: time.Second,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
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
