package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultOpenAIEndpoint = "https://api.openai.com/v1"
	defaultOpenAIModel    = "gpt-4o-mini"
	defaultOllamaEndpoint = "http://localhost:11434/v1"
)

// openAIClient implements Client against any OpenAI-compatible
// chat-completions endpoint. Ollama is served by the same wire shape.
type openAIClient struct {
	kind     string
	endpoint string
	apiKey   string
	model    string
	client   *http.Client
}

func newOpenAIClient(cfg Config) *openAIClient {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultOpenAIEndpoint
	}
	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}
	return &openAIClient{
		kind:     "openai",
		endpoint: endpoint,
		apiKey:   cfg.APIKey,
		model:    model,
		client:   &http.Client{Timeout: 120 * time.Second},
	}
}

func newOllamaClient(cfg Config) *openAIClient {
	c := newOpenAIClient(cfg)
	c.kind = "ollama"
	if cfg.Endpoint == "" {
		c.endpoint = defaultOllamaEndpoint
	}
	return c
}

func (c *openAIClient) Kind() string { return c.kind }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    float64        `json:"temperature,omitempty"`
	ResponseFormat map[string]any `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *openAIClient) Complete(ctx context.Context, req *Request) (string, error) {
	return c.call(ctx, &chatRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "user", Content: req.Prompt}},
		Temperature: req.Temperature,
	})
}

func (c *openAIClient) CompleteJSON(ctx context.Context, req *Request) (json.RawMessage, error) {
	body := &chatRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "user", Content: req.Prompt}},
		Temperature: req.Temperature,
		ResponseFormat: map[string]any{
			"type": "json_schema",
			"json_schema": map[string]any{
				"name":   "response",
				"schema": req.Schema,
			},
		},
	}

	content, err := c.call(ctx, body)
	if err != nil {
		return nil, err
	}
	if content == "" {
		return nil, fmt.Errorf("%s: empty structured response", c.kind)
	}
	return json.RawMessage(content), nil
}

func (c *openAIClient) call(ctx context.Context, body *chatRequest) (string, error) {
	payload, _ := json.Marshal(body)

	url := c.endpoint + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%s: create request: %w", c.kind, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	httpResp, err := c.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%s: request failed: %w", c.kind, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(httpResp.Body)
		return "", fmt.Errorf("%s: status %d: %s", c.kind, httpResp.StatusCode, string(respBody))
	}

	var resp chatResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return "", fmt.Errorf("%s: decode response: %w", c.kind, err)
	}

	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}
