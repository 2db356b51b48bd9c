package persistence

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"keepsake/internal/capsule"
	"keepsake/internal/logging"
	"keepsake/internal/services"
)

const component = "persistence"

// HTTPDoer abstracts http.Client.Do for testing.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Client talks to the capsule persistence API.
type Client struct {
	baseURL    string
	token      string
	httpClient HTTPDoer
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client HTTPDoer) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout sets the per-request timeout on the default HTTP client. Zero
// or negative keeps the current timeout. No effect after WithHTTPClient.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout <= 0 {
			return
		}
		if client, ok := c.httpClient.(*http.Client); ok {
			client.Timeout = timeout
		}
	}
}

// WithRateLimit paces outgoing requests at the given rate per second. Zero or
// negative disables pacing.
func WithRateLimit(requestsPerSecond float64) Option {
	return func(c *Client) {
		if requestsPerSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
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

// New creates a persistence client. The bearer token is fixed at construction
// time; callers with a new token build a new client.
func New(baseURL, token string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("persistence base url required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("persistence base url: %w", err)
	}
	c := &Client{
		baseURL:    baseURL,
		token:      strings.TrimSpace(token),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.NewComponentLogger(c.logger, component)
	return c, nil
}

// Fetch loads one capsule by id.
func (c *Client) Fetch(ctx context.Context, id string) (capsule.Document, error) {
	body, err := c.do(ctx, http.MethodGet, "/capsules/"+url.PathEscape(id), nil, "fetch")
	if err != nil {
		return capsule.Document{}, err
	}
	doc, err := capsule.Unmarshal(body)
	if err != nil {
		return capsule.Document{}, services.Wrap(services.ErrTransient, component, "fetch",
			"decode response", err)
	}
	return doc, nil
}

// Create submits a new capsule and returns the server-assigned id.
func (c *Client) Create(ctx context.Context, doc capsule.Document) (string, error) {
	payload, err := capsule.Marshal(doc)
	if err != nil {
		return "", services.Wrap(services.ErrValidation, component, "create", "encode request", err)
	}
	body, err := c.do(ctx, http.MethodPost, "/capsules", payload, "create")
	if err != nil {
		return "", err
	}
	created, err := capsule.Unmarshal(body)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, component, "create", "decode response", err)
	}
	if created.ID == "" {
		return "", services.Wrap(services.ErrTransient, component, "create",
			"response carried no capsule id", nil)
	}
	c.logger.Info("capsule created", logging.CapsuleID(created.ID))
	return created.ID, nil
}

// Update replaces the capsule stored under id.
func (c *Client) Update(ctx context.Context, id string, doc capsule.Document) error {
	payload, err := capsule.Marshal(doc)
	if err != nil {
		return services.Wrap(services.ErrValidation, component, "update", "encode request", err)
	}
	if _, err := c.do(ctx, http.MethodPut, "/capsules/"+url.PathEscape(id), payload, "update"); err != nil {
		return err
	}
	c.logger.Info("capsule updated", logging.CapsuleID(id))
	return nil
}

// Delete removes the capsule stored under id.
func (c *Client) Delete(ctx context.Context, id string) error {
	if _, err := c.do(ctx, http.MethodDelete, "/capsules/"+url.PathEscape(id), nil, "delete"); err != nil {
		return err
	}
	c.logger.Info("capsule deleted", logging.CapsuleID(id))
	return nil
}

// ListPublic returns the public capsule listing.
func (c *Client) ListPublic(ctx context.Context) ([]capsule.Document, error) {
	body, err := c.do(ctx, http.MethodGet, "/public-capsules", nil, "list-public")
	if err != nil {
		return nil, err
	}
	docs, err := capsule.UnmarshalList(body)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, component, "list-public",
			"decode response", err)
	}
	return docs, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte, operation string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, services.Wrap(services.ErrTimeout, component, operation, "rate limit wait", err)
		}
	}

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, component, operation, "build request", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, services.Wrap(services.ErrTimeout, component, operation, "request cancelled", err)
		}
		return nil, services.Wrap(services.ErrTransient, component, operation, "request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, component, operation, "read response", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return body, nil
	}
	return nil, c.statusError(resp.StatusCode, operation, body)
}

// statusError maps an API status onto the shared error markers so callers can
// classify failures without knowing HTTP.
func (c *Client) statusError(status int, operation string, body []byte) error {
	detail := strings.TrimSpace(string(body))
	if len(detail) > 200 {
		detail = detail[:200]
	}
	message := fmt.Sprintf("status %d", status)
	if detail != "" {
		message = fmt.Sprintf("status %d: %s", status, detail)
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return services.Wrap(services.ErrPermission, component, operation, message, nil)
	case status == http.StatusNotFound:
		return services.Wrap(services.ErrNotFound, component, operation, message, nil)
	case status == http.StatusConflict:
		return services.Wrap(services.ErrConflict, component, operation, message, nil)
	case status == http.StatusRequestTimeout:
		return services.Wrap(services.ErrTimeout, component, operation, message, nil)
	case status >= 500:
		return services.Wrap(services.ErrTransient, component, operation, message, nil)
	default:
		return services.Wrap(services.ErrValidation, component, operation, message, nil)
	}
}
