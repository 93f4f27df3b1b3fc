// Package rest implements the driven ports against the back-office REST API.
//
// Every endpoint answers with the {success, data | error} envelope. A
// {success: false} answer becomes a *domain.ServiceError carrying the
// server's message; a 404 becomes domain.ErrEntityNotFound.
//
// Routes:
//
//	GET  /customers?search=q        GET  /colors
//	GET  /vehicles?search=q         GET  /makes
//	GET  /inspectors?search=q       GET  /makes/{id}/models
//	GET  /{resource}/{id}           POST /{resource}
//	PUT  /{resource}/{id}
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aretw0/rentdesk/internal/logging"
	"github.com/aretw0/rentdesk/pkg/domain"
)

// Client talks to the REST API. Safe for concurrent use.
type Client struct {
	base   *url.URL
	http   *http.Client
	token  string
	logger *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.http = c
	}
}

// WithTimeout sets the per-request timeout of the default client.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		cl.http.Timeout = d
	}
}

// WithToken sends "Authorization: Bearer <token>" on every request.
func WithToken(token string) Option {
	return func(cl *Client) {
		cl.token = token
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(cl *Client) {
		cl.logger = logger
	}
}

// New creates a client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid api base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid api base url %q: scheme and host required", baseURL)
	}
	c := &Client{
		base:   u,
		http:   &http.Client{Timeout: 10 * time.Second},
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) SearchCustomers(ctx context.Context, query string) ([]domain.Customer, error) {
	return get[[]domain.Customer](ctx, c, "search customers", searchPath("customers", query))
}

func (c *Client) SearchVehicles(ctx context.Context, query string) ([]domain.Vehicle, error) {
	return get[[]domain.Vehicle](ctx, c, "search vehicles", searchPath("vehicles", query))
}

func (c *Client) SearchInspectors(ctx context.Context, query string) ([]domain.Inspector, error) {
	return get[[]domain.Inspector](ctx, c, "search inspectors", searchPath("inspectors", query))
}

func (c *Client) Colors(ctx context.Context) ([]domain.Option, error) {
	return get[[]domain.Option](ctx, c, "list colors", "/colors")
}

func (c *Client) Makes(ctx context.Context) ([]domain.Option, error) {
	return get[[]domain.Option](ctx, c, "list makes", "/makes")
}

// Models lists the models of makeID. An unknown make yields an empty list.
func (c *Client) Models(ctx context.Context, makeID string) ([]domain.Option, error) {
	models, err := get[[]domain.Option](ctx, c, "list models", "/makes/"+url.PathEscape(makeID)+"/models")
	if errors.Is(err, domain.ErrEntityNotFound) {
		return []domain.Option{}, nil
	}
	return models, err
}

func (c *Client) Fetch(ctx context.Context, resource, id string) (map[string]any, error) {
	return get[map[string]any](ctx, c, "fetch "+resource, recordPath(resource, id))
}

// Create posts payload and returns the identifier of the new record.
func (c *Client) Create(ctx context.Context, resource string, payload domain.Payload) (string, error) {
	created, err := send[map[string]any](ctx, c, http.MethodPost, "create "+resource, "/"+url.PathEscape(resource), payload)
	if err != nil {
		return "", err
	}
	id := domain.Text(created["id"])
	if id == "" {
		return "", &domain.ServiceError{Op: "create " + resource, Message: "response carries no id"}
	}
	return id, nil
}

func (c *Client) Update(ctx context.Context, resource, id string, payload domain.Payload) error {
	_, err := send[json.RawMessage](ctx, c, http.MethodPut, "update "+resource, recordPath(resource, id), payload)
	return err
}

func searchPath(collection, query string) string {
	p := "/" + collection
	if q := strings.TrimSpace(query); q != "" {
		p += "?" + url.Values{"search": {q}}.Encode()
	}
	return p
}

func recordPath(resource, id string) string {
	return "/" + url.PathEscape(resource) + "/" + url.PathEscape(id)
}

func get[T any](ctx context.Context, c *Client, op, path string) (T, error) {
	return send[T](ctx, c, http.MethodGet, op, path, nil)
}

func send[T any](ctx context.Context, c *Client, method, op, path string, body domain.Payload) (T, error) {
	var zero T

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return zero, fmt.Errorf("%s: encode payload: %w", op, err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, reader)
	if err != nil {
		return zero, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return zero, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()
	c.logger.Debug("api call", "method", method, "path", path, "status", resp.StatusCode, "duration", time.Since(start))

	var env domain.Envelope[T]
	decodeErr := json.NewDecoder(io.LimitReader(resp.Body, 4<<20)).Decode(&env)

	if resp.StatusCode == http.StatusNotFound {
		return zero, fmt.Errorf("%s: %w", op, domain.ErrEntityNotFound)
	}
	if decodeErr != nil {
		if resp.StatusCode >= 300 {
			return zero, &domain.ServiceError{Op: op, Message: fmt.Sprintf("http %d", resp.StatusCode)}
		}
		return zero, fmt.Errorf("%s: decode envelope: %w", op, decodeErr)
	}
	if resp.StatusCode >= 300 && env.Success {
		return zero, &domain.ServiceError{Op: op, Message: fmt.Sprintf("http %d", resp.StatusCode)}
	}
	return env.Unwrap(op)
}
