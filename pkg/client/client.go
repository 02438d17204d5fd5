// Package client provides the web API HTTP client used to fetch feed pages
// and post/profile details, with rate limiting, retries and error
// classification.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/igstream/pkg/model"
	"github.com/Sternrassler/igstream/pkg/pagination"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for API client operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "igstream_requests_total",
		Help: "Total API requests by endpoint and status",
	}, []string{"endpoint", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "igstream_request_duration_seconds",
		Help:    "API request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "igstream_errors_total",
		Help: "Total API errors by class",
	}, []string{"class"})
)

// maxBodySize caps how much of a response body is read.
const maxBodySize = 16 << 20

// Limiter spaces requests. *ratelimit.Tracker implements it.
type Limiter interface {
	Wait(ctx context.Context) error
	Penalize(ctx context.Context, d time.Duration) error
}

// Client is the web API client.
type Client struct {
	httpClient *http.Client
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL of the web API, without trailing slash.
	BaseURL string

	// User-Agent header (REQUIRED)
	UserAgent string

	// Timeout per HTTP request.
	Timeout time.Duration

	// Limiter is consulted before every request. Optional.
	Limiter Limiter

	// Cooldown applied through the Limiter after a 429.
	Cooldown time.Duration

	// Retry selects backoff per error class. Defaults to RetryConfigForErrorClass.
	Retry RetryPolicy
}

// DefaultBaseURL is the public web API endpoint.
const DefaultBaseURL = "https://www.instagram.com"

// DefaultConfig returns a safe default configuration.
func DefaultConfig(userAgent string) Config {
	return Config{
		BaseURL:   DefaultBaseURL,
		UserAgent: userAgent,
		Timeout:   30 * time.Second,
		Cooldown:  60 * time.Second,
		Retry:     RetryConfigForErrorClass,
	}
}

// New creates a new API client.
func New(cfg Config) (*Client, error) {
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", cfg.BaseURL)
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Retry == nil {
		cfg.Retry = RetryConfigForErrorClass
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		config: cfg,
		logger: log.With().Str("component", "api-client").Logger(),
	}, nil
}

// Fetch retrieves one page of a feed. An empty cursor requests the first
// page. It matches pagination.FetchFunc once req is bound.
func (c *Client) Fetch(ctx context.Context, req model.FeedRequest, cursor string) (pagination.Page, error) {
	hash := req.Kind.QueryHash()
	if hash == "" {
		return pagination.Page{}, fmt.Errorf("unsupported feed kind %q", req.Kind)
	}
	if req.PageSize <= 0 {
		req.PageSize = model.DefaultPageSize
	}
	vars, err := queryVariables(req, cursor)
	if err != nil {
		return pagination.Page{}, err
	}

	q := url.Values{}
	q.Set("query_hash", hash)
	q.Set("variables", vars)

	body, err := c.get(ctx, "graphql:"+string(req.Kind), "/graphql/query/", q)
	if err != nil {
		return pagination.Page{}, err
	}

	page, err := decodePage(req.Kind, body)
	if err != nil {
		return pagination.Page{}, fmt.Errorf("%s: %w", req, err)
	}
	return page, nil
}

// FetchFunc binds req for pagination.Paginate.
func (c *Client) FetchFunc(req model.FeedRequest) pagination.FetchFunc {
	return func(ctx context.Context, cursor string) (pagination.Page, error) {
		return c.Fetch(ctx, req, cursor)
	}
}

// PostInfo returns the raw detail object of the post with shortcode.
func (c *Client) PostInfo(ctx context.Context, shortcode string) (json.RawMessage, error) {
	if shortcode == "" {
		return nil, fmt.Errorf("shortcode is required")
	}
	body, err := c.get(ctx, "post_info", "/p/"+url.PathEscape(shortcode)+"/", infoQuery())
	if err != nil {
		return nil, err
	}
	var r infoResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("post %s: %w: %v", shortcode, ErrUnexpectedResponse, err)
	}
	if isNull(r.GraphQL.ShortcodeMedia) {
		return nil, fmt.Errorf("post %s: %w", shortcode, ErrNotFound)
	}
	return r.GraphQL.ShortcodeMedia, nil
}

// UserInfo returns the raw profile object of username.
func (c *Client) UserInfo(ctx context.Context, username string) (json.RawMessage, error) {
	if username == "" {
		return nil, fmt.Errorf("username is required")
	}
	body, err := c.get(ctx, "user_info", "/"+url.PathEscape(username)+"/", infoQuery())
	if err != nil {
		return nil, err
	}
	var r infoResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("user %s: %w: %v", username, ErrUnexpectedResponse, err)
	}
	if isNull(r.GraphQL.User) {
		return nil, fmt.Errorf("user %s: %w", username, ErrNotFound)
	}
	return r.GraphQL.User, nil
}

func infoQuery() url.Values {
	q := url.Values{}
	q.Set("__a", "1")
	return q
}

// get performs a GET request with rate limiting, retries and error
// classification, and returns the body of a 2xx response. endpoint is the
// low-cardinality metrics label.
func (c *Client) get(ctx context.Context, endpoint, path string, query url.Values) ([]byte, error) {
	startTime := time.Now()
	defer func() {
		requestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	target := c.config.BaseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var body []byte
	err := retryWithBackoff(ctx, c.config.Retry, func() error {
		if c.config.Limiter != nil {
			if err := c.config.Limiter.Wait(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				// Fail open when the shared state is unreachable.
				c.logger.Warn().Err(err).Msg("Rate limiter unavailable, sending request anyway")
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("User-Agent", c.config.UserAgent)
		req.Header.Set("Accept", "application/json")

		c.logger.Debug().
			Str("endpoint", endpoint).
			Str("path", path).
			Msg("Executing API request")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Error().Err(err).Str("endpoint", endpoint).Msg("HTTP request failed")
			errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			requestsTotal.WithLabelValues(endpoint, "network_error").Inc()
			return &APIError{
				ErrorClass: ErrorClassNetwork,
				Endpoint:   endpoint,
				Message:    "request failed",
				Err:        err,
			}
		}
		defer resp.Body.Close()

		status := strconv.Itoa(resp.StatusCode)
		requestsTotal.WithLabelValues(endpoint, status).Inc()

		if errorClass := classifyStatus(resp.StatusCode); errorClass != "" {
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
			errorsTotal.WithLabelValues(string(errorClass)).Inc()

			c.logger.Warn().
				Str("endpoint", endpoint).
				Int("status", resp.StatusCode).
				Str("error_class", string(errorClass)).
				Msg("API request error")

			if errorClass == ErrorClassRateLimit && c.config.Limiter != nil {
				if err := c.config.Limiter.Penalize(ctx, c.config.Cooldown); err != nil {
					c.logger.Warn().Err(err).Msg("Failed to record cooldown")
				}
			}

			apiErr := &APIError{
				StatusCode: resp.StatusCode,
				ErrorClass: errorClass,
				Endpoint:   endpoint,
				Message:    resp.Status,
			}
			if resp.StatusCode == http.StatusNotFound {
				apiErr.Err = ErrNotFound
			}
			return apiErr
		}

		b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
		if err != nil {
			errorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			return &APIError{
				StatusCode: resp.StatusCode,
				ErrorClass: ErrorClassNetwork,
				Endpoint:   endpoint,
				Message:    "read body",
				Err:        err,
			}
		}
		body = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
