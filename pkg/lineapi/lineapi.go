package lineapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultPushURL       = "https://api.line.me/v2/bot/message/push"
	maxResponseSizeBytes = 1 << 20
)

var (
	// ErrNotConfigured means no channel access token was provided.
	ErrNotConfigured = errors.New("line messaging is not configured")
	// ErrRejected means the push API returned a non-200 response.
	ErrRejected = errors.New("line push rejected")
)

type Config struct {
	ChannelAccessToken string        `envconfig:"CHANNEL_ACCESS_TOKEN" split_words:"true"`
	PushURL            string        `envconfig:"PUSH_URL" split_words:"true"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
}

type Message struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func TextMessage(text string) Message {
	return Message{Type: "text", Text: text}
}

// Client pushes messages to a single LINE user.
type Client struct {
	pushURL    string
	token      string
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

func NewClient(cfg Config, opts ...Option) *Client {
	pushURL := strings.TrimSpace(cfg.PushURL)
	if pushURL == "" {
		pushURL = defaultPushURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	client := &Client{
		pushURL: pushURL,
		token:   strings.TrimSpace(cfg.ChannelAccessToken),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	return client
}

type pushRequest struct {
	To       string    `json:"to"`
	Messages []Message `json:"messages"`
}

func (c *Client) Push(ctx context.Context, to string, messages []Message) error {
	if c.token == "" {
		return ErrNotConfigured
	}
	if strings.TrimSpace(to) == "" {
		return errors.New("line user id is empty")
	}
	if len(messages) == 0 {
		return errors.New("no messages to push")
	}

	payload, err := json.Marshal(pushRequest{To: to, Messages: messages})
	if err != nil {
		return fmt.Errorf("marshal push request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.pushURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute push request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
		return fmt.Errorf("%w: status %d: %s", ErrRejected, resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	return nil
}
