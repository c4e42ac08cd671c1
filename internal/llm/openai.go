package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"autopost/internal/httpkit"
)

const openaiAPIURL = "https://api.openai.com/v1/chat/completions"

// OpenAIClient is a client for the OpenAI Chat Completions API.
type OpenAIClient struct {
	apiKey     string
	model      string
	httpClient *http.Client
	logger     *slog.Logger

	// baseURL overrides the API endpoint in tests.
	baseURL string
}

// NewOpenAIClient creates a new OpenAI client.
func NewOpenAIClient(apiKey, model string, logger *slog.Logger) *OpenAIClient {
	if logger == nil {
		logger = slog.Default()
	}
	if model == "" {
		model = "gpt-4o"
	}
	// Vision requests with large images can take a while before headers
	// arrive. Use a transport with a generous response header timeout.
	t := httpkit.NewTransport()
	t.ResponseHeaderTimeout = 120 * time.Second

	return &OpenAIClient{
		apiKey: apiKey,
		model:  model,
		logger: logger.With("provider", "openai"),
		httpClient: httpkit.NewClient(
			httpkit.WithTimeout(0),
			httpkit.WithTransport(t),
		),
	}
}

type openaiRequest struct {
	Model       string          `json:"model"`
	Messages    []openaiMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature float64         `json:"temperature,omitempty"`
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"` // string or []openaiContent
}

type openaiContent struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	ImageURL *openaiImageURL `json:"image_url,omitempty"`
}

type openaiImageURL struct {
	URL string `json:"url"`
}

type openaiResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Complete sends a single-turn chat completion request.
func (c *OpenAIClient) Complete(ctx context.Context, req Request) (string, error) {
	messages := []openaiMessage{
		{Role: "system", Content: req.System},
	}

	if req.Image != nil {
		dataURL := fmt.Sprintf("data:%s;base64,%s", req.Image.MIME,
			base64.StdEncoding.EncodeToString(req.Image.Data))
		messages = append(messages, openaiMessage{
			Role: "user",
			Content: []openaiContent{
				{Type: "text", Text: req.User},
				{Type: "image_url", ImageURL: &openaiImageURL{URL: dataURL}},
			},
		})
	} else {
		messages = append(messages, openaiMessage{Role: "user", Content: req.User})
	}

	body := openaiRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.endpoint(), bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		errBody := httpkit.ReadErrorBody(httpResp.Body, 4096)
		c.logger.Error("API error", "status", httpResp.StatusCode, "body", errBody)
		return "", fmt.Errorf("openai API error %d: %s", httpResp.StatusCode, errBody)
	}

	var resp openaiResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai response has no choices")
	}

	c.logger.Debug("response received",
		"model", c.model,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
	)

	return resp.Choices[0].Message.Content, nil
}

// Verify sends a minimal request to confirm the API key works.
func (c *OpenAIClient) Verify(ctx context.Context) error {
	_, err := c.Complete(ctx, Request{
		System:    "You are a health check.",
		User:      "ping",
		MaxTokens: 1,
	})
	return err
}

func (c *OpenAIClient) endpoint() string {
	if c.baseURL != "" {
		return c.baseURL
	}
	return openaiAPIURL
}
