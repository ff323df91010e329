package loadtest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/okian/statboard/internal/domain/model"
)

// Client talks to the statboard HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client with a per-request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// StatusError is a non-200 answer from the service.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Code, e.Body)
}

// Health checks GET /healthz.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/healthz", nil)
	return err
}

// PostStat submits one record.
func (c *Client) PostStat(ctx context.Context, r Record) (model.StatView, error) {
	body, err := json.Marshal(r)
	if err != nil {
		return model.StatView{}, fmt.Errorf("marshal record: %w", err)
	}
	data, err := c.do(ctx, http.MethodPost, "/stats", body)
	if err != nil {
		return model.StatView{}, err
	}
	var view model.StatView
	if err := json.Unmarshal(data, &view); err != nil {
		return model.StatView{}, fmt.Errorf("decode stat: %w", err)
	}
	return view, nil
}

// Query runs GET /stats with params.
func (c *Client) Query(ctx context.Context, params url.Values) ([]model.StatView, error) {
	data, err := c.do(ctx, http.MethodGet, "/stats?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	var views []model.StatView
	if err := json.Unmarshal(data, &views); err != nil {
		return nil, fmt.Errorf("decode stats: %w", err)
	}
	return views, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Code: resp.StatusCode, Body: string(bytes.TrimSpace(data))}
	}
	return data, nil
}
