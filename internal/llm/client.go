// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm calls the generative language service's Messages API, either
// streaming (decoded through package stream) or as one aggregated message.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/course-engine/internal/stream"
	"github.com/pdiddy/course-engine/pkg/types"
)

const (
	defaultBaseURL   = "https://api.anthropic.com"
	apiVersion       = "2023-06-01"
	defaultMaxTokens = 8192
	defaultTimeout   = 10 * time.Minute
)

// APIError is a non-success HTTP response from the service.
type APIError struct {
	StatusCode int
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("API returned %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API returned %d (%s): %s", e.StatusCode, e.Type, e.Message)
}

// Client talks to one API endpoint with one credential.
type Client struct {
	apiKey    string
	baseURL   string
	userAgent string
	http      *http.Client
	logger    *zap.Logger
}

// NewClient builds a client from cfg. A nil logger disables logging.
func NewClient(cfg types.AIConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		apiKey:    cfg.APIKey,
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: cfg.UserAgent,
		http:      &http.Client{Timeout: timeout},
		logger:    logger,
	}
}

// APIKey returns the credential the client was built with.
func (c *Client) APIKey() string { return c.apiKey }

type messagesRequest struct {
	Model     string          `json:"model"`
	MaxTokens int             `json:"max_tokens"`
	System    string          `json:"system,omitempty"`
	Messages  []message       `json:"messages"`
	Stream    bool            `json:"stream,omitempty"`
	Thinking  *thinkingConfig `json:"thinking,omitempty"`
	Tools     []toolParam     `json:"tools,omitempty"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type thinkingConfig struct {
	Type         string `json:"type"`
	BudgetTokens int    `json:"budget_tokens"`
}

type toolParam struct {
	Type        string          `json:"type,omitempty"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"input_schema,omitempty"`
	MaxUses     int             `json:"max_uses,omitempty"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

type errorBody struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// buildRequest maps a generation request onto the wire shape. When a
// reasoning tier is set, max_tokens is raised above the reasoning budget.
func buildRequest(req types.GenerationRequest, streaming bool) messagesRequest {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	body := messagesRequest{
		Model:     req.Model,
		MaxTokens: maxTokens,
		System:    req.System,
		Stream:    streaming,
	}
	for _, t := range req.Turns {
		body.Messages = append(body.Messages, message{Role: string(t.Role), Content: t.Content})
	}
	if budget := req.Reasoning.BudgetTokens(); budget > 0 {
		body.Thinking = &thinkingConfig{Type: "enabled", BudgetTokens: budget}
		if body.MaxTokens <= budget {
			body.MaxTokens = budget + maxTokens
		}
	}
	for _, t := range req.Tools {
		body.Tools = append(body.Tools, toolParam{
			Type:        t.Type,
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.InputSchema,
			MaxUses:     t.MaxUses,
		})
	}
	return body
}

// post sends the request and returns the response when the status is 2xx.
// Otherwise it returns an *APIError built from the error body.
func (c *Client) post(ctx context.Context, body messagesRequest) (*http.Response, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("API key not configured")
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", apiVersion)
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if body.Stream {
		req.Header.Set("Accept", "text/event-stream")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling messages API: %w", err)
	}
	if resp.StatusCode/100 == 2 {
		return resp, nil
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	apiErr := &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
	var eb errorBody
	if json.Unmarshal(raw, &eb) == nil && eb.Error.Message != "" {
		apiErr.Type, apiErr.Message = eb.Error.Type, eb.Error.Message
	}
	return nil, apiErr
}

// Stream performs a streaming generation call, reporting decoded events to
// h, and returns the full text.
func (c *Client) Stream(ctx context.Context, req types.GenerationRequest, h stream.Handler) (string, error) {
	start := time.Now()
	c.logger.Debug("starting stream",
		zap.String("model", req.Model),
		zap.Int("turns", len(req.Turns)),
		zap.Int("tools", len(req.Tools)))

	resp, err := c.post(ctx, buildRequest(req, true))
	if err != nil {
		if h != nil {
			h(stream.Error{Cause: err})
		}
		return "", err
	}
	defer resp.Body.Close()

	text, err := stream.Decode(stream.NewSSESource(resp), h)
	if err != nil {
		c.logger.Warn("stream failed", zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		return "", err
	}
	c.logger.Debug("stream completed", zap.Duration("elapsed", time.Since(start)), zap.Int("text_len", len(text)))
	return text, nil
}

// Complete performs a non-streaming call and returns the concatenated text
// blocks of the single aggregated message.
func (c *Client) Complete(ctx context.Context, req types.GenerationRequest) (string, error) {
	resp, err := c.post(ctx, buildRequest(req, false))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var mr messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&mr); err != nil {
		return "", fmt.Errorf("decoding messages response: %w", err)
	}

	var sb strings.Builder
	for _, block := range mr.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("no text content in messages response")
	}
	return sb.String(), nil
}
