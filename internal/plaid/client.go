// Package plaid provides a client for the Plaid connect API: institution
// catalogs, credential submission, MFA, credential updates and transaction sync.
package plaid

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Veraticus/plaid-connect/internal/common"
	"github.com/plaid/plaid-go/v20/plaid"
)

// Config holds Plaid API configuration.
type Config struct {
	ClientID    string
	Secret      string
	Environment string        // tartan, sandbox, or production
	BaseURL     string        // overrides the environment host when set
	Timeout     time.Duration // zero keeps the transport default
}

// Validate ensures all required fields are present.
func (c *Config) Validate() error {
	if c.ClientID == "" {
		return fmt.Errorf("%w: plaid client ID is required", common.ErrMissingConfig)
	}
	if c.Secret == "" {
		return fmt.Errorf("%w: plaid secret is required", common.ErrMissingConfig)
	}
	if c.Environment == "" && c.BaseURL == "" {
		return fmt.Errorf("%w: plaid environment is required", common.ErrMissingConfig)
	}
	if c.Environment != "" {
		if _, ok := LookupEnvironment(c.Environment); !ok {
			return fmt.Errorf("%w: invalid Plaid environment %q: must be one of %s",
				common.ErrInvalidConfig, c.Environment, strings.Join(EnvironmentNames(), ", "))
		}
	}
	if c.BaseURL != "" && !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		return fmt.Errorf("%w: plaid base URL must be http(s): %s", common.ErrInvalidConfig, c.BaseURL)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("%w: plaid timeout cannot be negative", common.ErrInvalidConfig)
	}

	return nil
}

// String renders the config without its secret.
func (c Config) String() string {
	return fmt.Sprintf("Config{ClientID: %s, Secret: [redacted], Environment: %s, BaseURL: %s, Timeout: %s}",
		c.ClientID, c.Environment, c.BaseURL, c.Timeout)
}

// Client talks to the Plaid connect API. It holds no per-call state and is
// safe for concurrent use; access tokens are always supplied by the caller.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *Metrics
	headers    map[string]string
	env        Environment
	clientID   string
	secret     string
	userAgent  string
	dates      DateFormatter
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client used for every request.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics records request metrics into m.
func WithMetrics(m *Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithDateFormatter sets the formatter used for sync date bounds.
func WithDateFormatter(f DateFormatter) Option {
	return func(c *Client) {
		c.dates = f
	}
}

// NewClient creates a new Plaid client with the given configuration.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	env, ok := LookupEnvironment(cfg.Environment)
	if !ok {
		env = Environment{Name: "custom"}
	}
	if cfg.BaseURL != "" {
		env = env.WithBaseURL(cfg.BaseURL)
	}

	// The generated SDK configuration carries the user agent, default
	// headers and HTTP client shared with the rest of the Plaid tooling.
	configuration := plaid.NewConfiguration()
	configuration.AddDefaultHeader("Content-Type", "application/json")

	httpClient := configuration.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if cfg.Timeout > 0 {
		withTimeout := *httpClient
		withTimeout.Timeout = cfg.Timeout
		httpClient = &withTimeout
	}

	headers := make(map[string]string, len(configuration.DefaultHeader))
	for k, v := range configuration.DefaultHeader {
		headers[k] = v
	}

	client := &Client{
		httpClient: httpClient,
		logger:     slog.Default().With("component", "plaid"),
		headers:    headers,
		env:        env,
		clientID:   cfg.ClientID,
		secret:     cfg.Secret,
		userAgent:  configuration.UserAgent,
		dates:      NewDateFormatter(time.UTC),
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// Environment returns the endpoints this client talks to.
func (c *Client) Environment() Environment {
	return c.env
}
