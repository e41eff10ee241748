// Package client is a PropertyStore backed by the rentals HTTP API, so a
// state.Container can run against a remote server.
package client

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

	"github.com/dcode-github/property_rentals/backend/models"
)

// APIError is a non-2xx response the client has no sentinel for.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("%s (%d)", e.Message, e.StatusCode)
}

func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusForbidden {
		return models.ErrForbidden
	}
	return nil
}

type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// New returns a client for the API at baseURL that authenticates with the
// bearer token.
func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 15 * time.Second},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type idResponse struct {
	ID string `json:"id"`
}

type errorResponse struct {
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields"`
}

func (c *Client) CreateProperty(ctx context.Context, data models.CreatePropertyData, _, _ string) (string, error) {
	var resp idResponse
	if err := c.do(ctx, "create property", http.MethodPost, "/api/properties", data, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (c *Client) GetProperties(ctx context.Context, filters *models.PropertyFilters) ([]models.Property, error) {
	path := "/api/properties"
	if q := filters.Values(); len(q) > 0 {
		path += "?" + q.Encode()
	}
	var props []models.Property
	if err := c.do(ctx, "get properties", http.MethodGet, path, nil, &props); err != nil {
		return nil, err
	}
	return props, nil
}

func (c *Client) GetPropertiesByRealtor(ctx context.Context, realtorID string) ([]models.Property, error) {
	var props []models.Property
	path := "/api/realtors/" + url.PathEscape(realtorID) + "/properties"
	if err := c.do(ctx, "get properties by realtor", http.MethodGet, path, nil, &props); err != nil {
		return nil, err
	}
	return props, nil
}

func (c *Client) GetPropertyByID(ctx context.Context, id string) (*models.Property, error) {
	var p models.Property
	err := c.do(ctx, "get property", http.MethodGet, "/api/properties/"+url.PathEscape(id), nil, &p)
	if errors.Is(err, models.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) UpdateProperty(ctx context.Context, id string, data models.UpdatePropertyData) error {
	return c.do(ctx, "update property", http.MethodPatch, "/api/properties/"+url.PathEscape(id), data, nil)
}

func (c *Client) DeleteProperty(ctx context.Context, id string) error {
	return c.do(ctx, "delete property", http.MethodDelete, "/api/properties/"+url.PathEscape(id), nil, nil)
}

func (c *Client) TogglePropertyAvailability(ctx context.Context, id string, isAvailable bool) error {
	body := map[string]bool{"isAvailable": isAvailable}
	return c.do(ctx, "toggle availability", http.MethodPut, "/api/properties/"+url.PathEscape(id)+"/availability", body, nil)
}

func (c *Client) SearchProperties(ctx context.Context, term string) ([]models.Property, error) {
	path := "/api/properties/search?" + url.Values{"q": {term}}.Encode()
	var props []models.Property
	if err := c.do(ctx, "search properties", http.MethodGet, path, nil, &props); err != nil {
		return nil, err
	}
	return props, nil
}

// Me is the caller as the server sees it.
type Me struct {
	UID   string      `json:"uid"`
	Email string      `json:"email"`
	Role  models.Role `json:"role"`
}

func (c *Client) GetMe(ctx context.Context) (Me, error) {
	var me Me
	err := c.do(ctx, "get role", http.MethodGet, "/api/me/role", nil, &me)
	return me, err
}

func (c *Client) SetRole(ctx context.Context, role models.Role) (Me, error) {
	var me Me
	err := c.do(ctx, "set role", http.MethodPut, "/api/me/role", map[string]models.Role{"role": role}, &me)
	return me, err
}

// do sends one request. 404 becomes ErrNotFound, 400 with field messages a
// ValidationError, and any other failure a StoreError.
func (c *Client) do(ctx context.Context, op, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", op, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return models.NewStoreError(op, err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return models.NewStoreError(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var apiErr errorResponse
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		// fromAPI is false for bodies the API never writes, such as a router's
		// plain-text 404 for an unknown path.
		fromAPI := json.Unmarshal(raw, &apiErr) == nil && apiErr.Message != ""
		if !fromAPI {
			apiErr.Message = strings.TrimSpace(string(raw))
		}
		c.logger.Debug("API request failed", slog.String("op", op), slog.Int("status", resp.StatusCode), slog.String("message", apiErr.Message))

		switch {
		case resp.StatusCode == http.StatusNotFound && fromAPI:
			return models.ErrNotFound
		case resp.StatusCode == http.StatusBadRequest && len(apiErr.Fields) > 0:
			return &models.ValidationError{Fields: apiErr.Fields}
		default:
			return models.NewStoreError(op, &APIError{StatusCode: resp.StatusCode, Message: apiErr.Message})
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return models.NewStoreError(op, fmt.Errorf("decode response: %w", err))
	}
	return nil
}
