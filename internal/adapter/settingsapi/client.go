// Package settingsapi provides an HTTP client for the settings REST API.
package settingsapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/Strob0t/settingsadmin/internal/adapter/otel"
	"github.com/Strob0t/settingsadmin/internal/domain"
	"github.com/Strob0t/settingsadmin/internal/domain/settings"
)

// APIError is returned for any non-2xx answer from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("settings API error %d", e.StatusCode)
	}
	return fmt.Sprintf("settings API error %d: %s", e.StatusCode, e.Message)
}

// Is lets errors.Is(err, domain.ErrNotFound) match a 404 answer.
func (e *APIError) Is(target error) bool {
	return target == domain.ErrNotFound && e.StatusCode == http.StatusNotFound
}

// IsNotFound reports whether err is a 404 answer from the server.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// Client talks to the settings REST API. One request per call: no retries,
// no timeout beyond the caller's context.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Transport: otel.HTTPTransport(nil)},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root the client was built with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ListSettings returns one page of the collection as reported by the server.
func (c *Client) ListSettings(ctx context.Context, page, pageSize int) (*settings.Page, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("page_size", strconv.Itoa(pageSize))

	var result settings.Page
	if err := c.doJSON(ctx, http.MethodGet, "/settings?"+q.Encode(), nil, &result); err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	return &result, nil
}

// GetSetting returns a single record.
func (c *Client) GetSetting(ctx context.Context, id string) (*settings.Setting, error) {
	var result settings.Setting
	if err := c.doJSON(ctx, http.MethodGet, itemPath(id), nil, &result); err != nil {
		return nil, fmt.Errorf("get setting %s: %w", id, err)
	}
	return &result, nil
}

// CreateSetting stores data as a new record and returns it with its server-assigned ID.
func (c *Client) CreateSetting(ctx context.Context, data json.RawMessage) (*settings.Setting, error) {
	var result settings.Setting
	if err := c.doJSON(ctx, http.MethodPost, "/settings", settings.WriteRequest{Data: data}, &result); err != nil {
		return nil, fmt.Errorf("create setting: %w", err)
	}
	return &result, nil
}

// UpdateSetting replaces the data of an existing record.
func (c *Client) UpdateSetting(ctx context.Context, id string, data json.RawMessage) (*settings.Setting, error) {
	var result settings.Setting
	if err := c.doJSON(ctx, http.MethodPut, itemPath(id), settings.WriteRequest{Data: data}, &result); err != nil {
		return nil, fmt.Errorf("update setting %s: %w", id, err)
	}
	return &result, nil
}

// DeleteSetting removes a record. A 404 answer counts as success.
func (c *Client) DeleteSetting(ctx context.Context, id string) error {
	err := c.doJSON(ctx, http.MethodDelete, itemPath(id), nil, nil)
	if err != nil && !IsNotFound(err) {
		return fmt.Errorf("delete setting %s: %w", id, err)
	}
	return nil
}

func itemPath(id string) string {
	return "/settings/" + url.PathEscape(id)
}

// doJSON sends body (if any) as JSON and decodes a 2xx answer into out (if any).
func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var bodyReader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(data)}
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// errorMessage extracts {"detail": "..."} or {"error": "..."} text, falling
// back to the raw body.
func errorMessage(body []byte) string {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
		Error  string          `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		if len(envelope.Detail) > 0 {
			var s string
			if json.Unmarshal(envelope.Detail, &s) == nil {
				return s
			}
			return string(envelope.Detail)
		}
		if envelope.Error != "" {
			return envelope.Error
		}
	}
	return strings.TrimSpace(string(body))
}
