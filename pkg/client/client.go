package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/terra-clan/practice-engine/internal/models"
)

// Client is a Go SDK for the practice-engine API
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Option configures the client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the client timeout
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// NewClient creates a new practice-engine client. The default timeout
// leaves room for slow generation calls.
func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 3 * time.Minute,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// APIError is an error returned in the response envelope
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d: %s - %s", e.Status, e.Code, e.Message)
}

type envelope[T any] struct {
	Success bool      `json:"success"`
	Data    T         `json:"data"`
	Error   *APIError `json:"error"`
}

// ListSession schedules a practice session
func (c *Client) ListSession(ctx context.Context, cfg models.SessionConfig) ([]models.ScheduledItem, error) {
	return call[[]models.ScheduledItem](ctx, c, http.MethodPost, "/api/questions", cfg)
}

// Catalog returns the full question catalog
func (c *Client) Catalog(ctx context.Context) ([]models.CatalogItem, error) {
	return call[[]models.CatalogItem](ctx, c, http.MethodGet, "/api/questions/catalog", nil)
}

// LoadRecords returns the existing records among ids
func (c *Client) LoadRecords(ctx context.Context, ids []string) (map[string]*models.Record, error) {
	data, err := call[struct {
		Records map[string]*models.Record `json:"records"`
	}](ctx, c, http.MethodPost, "/api/questions/records", models.LoadRecordsRequest{IDs: ids})
	if err != nil {
		return nil, err
	}
	return data.Records, nil
}

// CacheResult stores a generation result for a question
func (c *Client) CacheResult(ctx context.Context, question models.CatalogItem, result *models.GenerationResult) (*models.Record, error) {
	data, err := call[struct {
		Record *models.Record `json:"record"`
	}](ctx, c, http.MethodPost, "/api/questions/cache", models.CacheRequest{Question: question, Result: result})
	if err != nil {
		return nil, err
	}
	return data.Record, nil
}

// Evaluate submits an answer for judging
func (c *Client) Evaluate(ctx context.Context, req models.EvaluateRequest) (*models.EvaluateResponse, error) {
	return call[*models.EvaluateResponse](ctx, c, http.MethodPost, "/api/questions/evaluate", req)
}

// Generate requests full content, or one module when req.Module is set
func (c *Client) Generate(ctx context.Context, req models.GenerateRequest) (*models.GenerateResponse, error) {
	return call[*models.GenerateResponse](ctx, c, http.MethodPost, "/api/gemini", req)
}

// Prefetch starts background generation for the session of cfg
func (c *Client) Prefetch(ctx context.Context, cfg models.SessionConfig) (*models.PrefetchResponse, error) {
	return call[*models.PrefetchResponse](ctx, c, http.MethodPost, "/api/session/prefetch", cfg)
}

// Health checks if the service is healthy
func (c *Client) Health(ctx context.Context) error {
	_, err := call[map[string]string](ctx, c, http.MethodGet, "/health", nil)
	return err
}

func call[T any](ctx context.Context, c *Client, method, path string, payload interface{}) (T, error) {
	var zero T

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return zero, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	status, resp, err := c.doRequest(ctx, method, path, body)
	if err != nil {
		return zero, err
	}

	var result envelope[T]
	if err := json.Unmarshal(resp, &result); err != nil {
		if status >= 400 {
			return zero, &APIError{Status: status, Code: "http_error", Message: string(resp)}
		}
		return zero, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if !result.Success || status >= 400 {
		apiErr := result.Error
		if apiErr == nil {
			apiErr = &APIError{Code: "unknown", Message: http.StatusText(status)}
		}
		apiErr.Status = status
		return zero, apiErr
	}

	return result.Data, nil
}

// doRequest performs an HTTP request
func (c *Client) doRequest(ctx context.Context, method, path string, body io.Reader) (int, []byte, error) {
	url := c.baseURL + path

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read response: %w", err)
	}

	return resp.StatusCode, respBody, nil
}
