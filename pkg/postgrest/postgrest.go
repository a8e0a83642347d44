package postgrest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const maxResponseSizeBytes = 4 << 20

var ErrEmptyCollection = errors.New("collection name is empty")

type Config struct {
	URL     string        `envconfig:"URL" split_words:"true" required:"true"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
}

// APIError is a non-2xx response from the data gateway.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("postgrest: status %d: %s", e.StatusCode, e.Body)
}

// Client speaks the PostgREST wire contract: filtered reads and writes
// against named collections, with representation returned on mutation.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

func NewClient(cfg Config, opts ...Option) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if baseURL == "" {
		return nil, errors.New("postgrest url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid postgrest url: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client := &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	return client, nil
}

func MustNew(cfg Config, opts ...Option) *Client {
	client, err := NewClient(cfg, opts...)
	if err != nil {
		panic(err)
	}
	return client
}

func (c *Client) Get(ctx context.Context, collection string, q Query) ([]Record, error) {
	raw, err := c.do(ctx, http.MethodGet, collection, q, nil)
	if err != nil {
		return nil, err
	}
	return decodeRecords(raw)
}

func (c *Client) Create(ctx context.Context, collection string, fields map[string]any) (Record, error) {
	raw, err := c.do(ctx, http.MethodPost, collection, Query{}, fields)
	if err != nil {
		return nil, err
	}
	records, err := decodeRecords(raw)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.New("postgrest: create returned no representation")
	}
	return records[0], nil
}

// Update patches every record matched by q. An empty result means the filter
// matched nothing; callers decide whether that is a not-found condition.
func (c *Client) Update(ctx context.Context, collection string, q Query, fields map[string]any) ([]Record, error) {
	raw, err := c.do(ctx, http.MethodPatch, collection, q, fields)
	if err != nil {
		return nil, err
	}
	return decodeRecords(raw)
}

func (c *Client) Delete(ctx context.Context, collection string, q Query) error {
	_, err := c.do(ctx, http.MethodDelete, collection, q, nil)
	return err
}

func (c *Client) do(ctx context.Context, method, collection string, q Query, body map[string]any) ([]byte, error) {
	collection = strings.TrimSpace(collection)
	if collection == "" {
		return nil, ErrEmptyCollection
	}

	endpoint := c.baseURL + "/" + collection
	if encoded := q.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method == http.MethodPost || method == http.MethodPatch {
		req.Header.Set("Prefer", "return=representation")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Body:       excerpt(raw),
		}
	}
	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}

	return raw, nil
}

func decodeRecords(raw []byte) ([]Record, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	if trimmed[0] == '[' {
		var records []Record
		if err := json.Unmarshal(trimmed, &records); err != nil {
			return nil, fmt.Errorf("decode records: %w", err)
		}
		return records, nil
	}

	var record Record
	if err := json.Unmarshal(trimmed, &record); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return []Record{record}, nil
}

func excerpt(raw []byte) string {
	const limit = 512
	body := strings.TrimSpace(string(raw))
	if len(body) > limit {
		return body[:limit]
	}
	return body
}
