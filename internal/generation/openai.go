package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"coursecoach/internal/domain"
)

// OpenAIClient calls an OpenAI-compatible Responses endpoint. It performs
// exactly one request per call; retries belong to the backend.
type OpenAIClient struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

var _ domain.Generator = (*OpenAIClient)(nil)

// OpenAIConfig configures the OpenAI-compatible client.
type OpenAIConfig struct {
	BaseURL   string
	APIKeyEnv string
	Model     string
	Timeout   time.Duration
}

// NewOpenAIClient creates a client, reading the API key from the configured env var.
func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	if cfg.APIKeyEnv == "" {
		cfg.APIKeyEnv = "OPENAI_API_KEY"
	}
	key := strings.TrimSpace(os.Getenv(cfg.APIKeyEnv))
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-5.2"
	}
	t := cfg.Timeout
	if t == 0 {
		t = 30 * time.Second
	}
	return &OpenAIClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  key,
		model:   cfg.Model,
		client:  &http.Client{Timeout: t},
	}, nil
}

// Name returns the identifier of this generator implementation.
func (c *OpenAIClient) Name() string { return "openai" }

type responsesRequest struct {
	Model           string          `json:"model"`
	Input           []inputMessage  `json:"input"`
	Temperature     *float64        `json:"temperature,omitempty"`
	MaxOutputTokens int             `json:"max_output_tokens,omitempty"`
	Reasoning       *reasoningParam `json:"reasoning,omitempty"`
}

type inputMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type reasoningParam struct {
	Effort string `json:"effort"`
}

type responsesResponse struct {
	OutputText string `json:"output_text"`
	Output     []struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"output"`
}

// Generate sends prompt as a single user message and returns the output text.
func (c *OpenAIClient) Generate(ctx context.Context, prompt string, opts domain.GenerateOptions) (string, error) {
	model := c.model
	if opts.Model != "" {
		model = opts.Model
	}
	body := responsesRequest{
		Model:           model,
		Input:           []inputMessage{{Role: "user", Content: prompt}},
		MaxOutputTokens: opts.MaxOutputTokens,
	}
	if opts.Temperature != nil {
		temp := *opts.Temperature
		body.Temperature = &temp
	}
	if opts.ReasoningEffort != "" {
		body.Reasoning = &reasoningParam{Effort: opts.ReasoningEffort}
	}
	data, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal responses payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/responses", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", &StatusError{Status: resp.Status, Code: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}

	var out responsesResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode responses payload: %w", err)
	}
	if out.OutputText != "" {
		return out.OutputText, nil
	}
	var b strings.Builder
	for _, item := range out.Output {
		for _, block := range item.Content {
			if block.Type == "output_text" {
				b.WriteString(block.Text)
			}
		}
	}
	if b.Len() == 0 {
		return "", errors.New("empty response output")
	}
	return b.String(), nil
}
