package pdfgen

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

const maxResponseSizeBytes = 1 << 20

// ErrRenderFailed means the renderer answered but reported a failure.
var ErrRenderFailed = errors.New("document render failed")

type Config struct {
	URL     string        `envconfig:"URL" split_words:"true" required:"true"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"120s"`
}

// Document is a rendered artifact: a time-limited signed URL plus its
// storage path.
type Document struct {
	URL       string `json:"pdf_url"`
	Path      string `json:"pdf_path"`
	ExpiresAt string `json:"expires_at"`
	Message   string `json:"message"`
}

// TokenSource supplies an identity token for the renderer, when it runs
// behind authenticated ingress. A nil source sends unauthenticated requests.
type TokenSource func(ctx context.Context, audience string) (string, error)

type Client struct {
	baseURL     string
	httpClient  *http.Client
	tokenSource TokenSource
}

type Option func(*Client)

func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

func WithTokenSource(source TokenSource) Option {
	return func(c *Client) {
		c.tokenSource = source
	}
}

func NewClient(cfg Config, opts ...Option) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if baseURL == "" {
		return nil, errors.New("pdf generator url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid pdf generator url: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
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

type renderRequest struct {
	QuoteData any    `json:"quote_data"`
	Template  string `json:"template"`
}

type renderResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	PDFURL    string `json:"pdf_url"`
	PDFPath   string `json:"pdf_path"`
	ExpiresAt string `json:"expires_at"`
}

// Render posts the structured payload for the named template and returns the
// signed document reference.
func (c *Client) Render(ctx context.Context, template string, payload any) (*Document, error) {
	body, err := json.Marshal(renderRequest{QuoteData: payload, Template: template})
	if err != nil {
		return nil, fmt.Errorf("marshal render request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build render request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if c.tokenSource != nil {
		token, err := c.tokenSource(ctx, c.baseURL)
		if err == nil && token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute render request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return nil, fmt.Errorf("read render response: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, fmt.Errorf("%w: renderer authentication failed", ErrRenderFailed)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d", ErrRenderFailed, resp.StatusCode)
	}

	var decoded renderResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("decode render response: %w", err)
	}
	if !decoded.Success {
		message := decoded.Message
		if message == "" {
			message = "renderer reported failure"
		}
		return nil, fmt.Errorf("%w: %s", ErrRenderFailed, message)
	}

	return &Document{
		URL:       decoded.PDFURL,
		Path:      decoded.PDFPath,
		ExpiresAt: decoded.ExpiresAt,
		Message:   decoded.Message,
	}, nil
}
