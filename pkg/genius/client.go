package genius

import (
	"fmt"
	"net/http"
	"time"
)

// Config holds client configuration.
type Config struct {
	AccessToken string       // Required: Genius API client access token
	HTTPClient  *http.Client // Optional: HTTP client (defaults to a client with a 30s timeout)
	BaseURL     string       // Optional: Base URL for API (defaults to Genius API, used for testing)
	UserAgent   string       // Optional: User-Agent header (defaults to DefaultUserAgent)
	MaxRetries  int          // Optional: attempts per request for temporary failures (defaults to 3)
	Logger      Logger       // Optional: Logger interface for debug logging
}

// Logger is an optional interface for logging.
type Logger interface {
	// Debugf logs a debug message with format and arguments.
	Debugf(format string, args ...interface{})
}

// Client is the main entry point for Genius API operations.
type Client struct {
	accessToken string
	httpClient  *http.Client
	baseURL     string
	userAgent   string
	maxRetries  int
	logger      Logger

	artists *ArtistService
	search  *SearchService
}

const (
	// DefaultBaseURL is the default Genius API endpoint.
	DefaultBaseURL = "https://api.genius.com"

	// DefaultUserAgent is sent when Config.UserAgent is empty.
	DefaultUserAgent = "lyricqueue/1.0"

	defaultMaxRetries = 3
)

// NewClient creates a new Genius API client.
//
// Returns an error if the access token is missing.
func NewClient(cfg Config) (*Client, error) {
	if cfg.AccessToken == "" {
		return nil, fmt.Errorf("%w: AccessToken is required", ErrInvalidConfig)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}

	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	c := &Client{
		accessToken: cfg.AccessToken,
		httpClient:  httpClient,
		baseURL:     baseURL,
		userAgent:   userAgent,
		maxRetries:  maxRetries,
		logger:      cfg.Logger,
	}

	c.artists = &ArtistService{client: c}
	c.search = &SearchService{client: c}

	return c, nil
}

// Artists returns the artist service.
func (c *Client) Artists() *ArtistService {
	return c.artists
}

// Search returns the search service.
func (c *Client) Search() *SearchService {
	return c.search
}

// logDebugf logs a debug message if a logger is configured.
func (c *Client) logDebugf(format string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Debugf(format, args...)
	}
}
