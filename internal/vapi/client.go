package vapi

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
	defaultBaseURL     = "https://api.vapi.ai"
	defaultHTTPTimeout = 30 * time.Second
	errorBodyLimit     = 200
)

// APIError is returned for any non-2xx response from the provider.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("VAPI API Error [%d]: %s", e.StatusCode, e.Body)
}

// CallResponse is the subset of the created call the dispatch path records.
type CallResponse struct {
	ID          string          `json:"id"`
	Status      string          `json:"status"`
	AssistantID string          `json:"assistantId"`
	Raw         json.RawMessage `json:"-"`
}

// Caller places outbound calls. The dispatcher depends on this, not on Client.
type Caller interface {
	CreateCall(ctx context.Context, apiKey string, req CreateCallRequest) (CallResponse, error)
}

// Client talks to the provider's REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) CreateCall(ctx context.Context, apiKey string, req CreateCallRequest) (CallResponse, error) {
	if strings.TrimSpace(apiKey) == "" {
		return CallResponse{}, errors.New("vapi: api key required")
	}
	body, err := json.Marshal(req)
	if err != nil {
		return CallResponse{}, fmt.Errorf("vapi: encode request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/call", bytes.NewReader(body))
	if err != nil {
		return CallResponse{}, fmt.Errorf("vapi: build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return CallResponse{}, fmt.Errorf("vapi: create call: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return CallResponse{}, fmt.Errorf("vapi: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return CallResponse{}, &APIError{StatusCode: resp.StatusCode, Body: truncate(string(raw), errorBodyLimit)}
	}

	var out CallResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return CallResponse{}, fmt.Errorf("vapi: decode response: %w", err)
	}
	out.Raw = json.RawMessage(raw)
	return out, nil
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
