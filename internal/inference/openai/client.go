// Package openai implements inference.Client against the OpenAI Responses API.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"

	"github.com/kanpai-app/kanpai/internal/config"
	"github.com/kanpai-app/kanpai/internal/inference"
)

// Sentinel errors for OpenAI client failures.
var (
	ErrUnreachable = errors.New("openai unreachable")
	ErrAPIError    = errors.New("openai api error")
	ErrTimeout     = errors.New("openai request timeout")
)

// HTTPClient implements inference.Client using the Responses HTTP API.
type HTTPClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPClient creates a new OpenAI Responses client.
func NewHTTPClient(cfg config.OpenAIConfig) *HTTPClient {
	return &HTTPClient{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

type inputContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type inputMessage struct {
	Role    string         `json:"role"`
	Content []inputContent `json:"content"`
}

type textFormat struct {
	Type   string          `json:"type"`
	Name   string          `json:"name"`
	Strict bool            `json:"strict"`
	Schema json.RawMessage `json:"schema"`
}

type createRequest struct {
	Model           string            `json:"model"`
	Reasoning       map[string]string `json:"reasoning,omitempty"`
	Input           []inputMessage    `json:"input"`
	Tools           []map[string]any  `json:"tools,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	MaxOutputTokens int               `json:"max_output_tokens,omitempty"`
	Background      bool              `json:"background"`
	Text            map[string]any    `json:"text,omitempty"`
}

func (c *HTTPClient) Submit(ctx context.Context, req inference.Request) (*inference.Response, error) {
	body := createRequest{
		Model:     req.Model,
		Reasoning: map[string]string{"effort": "medium"},
		Input: []inputMessage{
			{Role: "system", Content: []inputContent{{Type: "input_text", Text: req.Instructions}}},
			{Role: "user", Content: []inputContent{{Type: "input_text", Text: req.Input}}},
		},
		Tools: []map[string]any{
			{
				"type":                "web_search",
				"search_context_size": "medium",
				"user_location": map[string]string{
					"type":     "approximate",
					"country":  "JP",
					"timezone": "Asia/Tokyo",
				},
			},
		},
		Metadata:        req.Metadata,
		MaxOutputTokens: req.MaxOutputTokens,
		Background:      req.Background,
	}
	if len(req.Schema) > 0 {
		body.Text = map[string]any{
			"format": textFormat{
				Type:   "json_schema",
				Name:   req.SchemaName,
				Strict: true,
				Schema: req.Schema,
			},
		}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/responses", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	c.setHeaders(httpReq)

	return c.do(httpReq)
}

func (c *HTTPClient) Retrieve(ctx context.Context, responseID string) (*inference.Response, error) {
	u := fmt.Sprintf("%s/responses/%s", c.baseURL, url.PathEscape(responseID))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	c.setHeaders(httpReq)

	return c.do(httpReq)
}

func (c *HTTPClient) do(req *http.Request) (*inference.Response, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if decErr := json.NewDecoder(resp.Body).Decode(&apiErr); decErr == nil && apiErr.Error.Message != "" {
			return nil, fmt.Errorf("%w: status %d: %s", ErrAPIError, resp.StatusCode, apiErr.Error.Message)
		}
		return nil, fmt.Errorf("%w: status %d", ErrAPIError, resp.StatusCode)
	}

	var out inference.Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return &out, nil
}

func (c *HTTPClient) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
}

func classifyError(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrUnreachable, err)
}

var _ inference.Client = (*HTTPClient)(nil)
