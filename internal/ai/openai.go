package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OpenAI API types
type chatCompletionRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Client is the real Provider implementation speaking the OpenAI
// chat-completions protocol.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// Compile-time check that Client implements Provider
var _ Provider = (*Client)(nil)

// NewClient creates a provider client. Model defaults to gpt-4o.
func NewClient(apiKey, model string) *Client {
	if model == "" {
		model = "gpt-4o"
	}
	return &Client{
		apiKey:  apiKey,
		model:   model,
		baseURL: "https://api.openai.com/v1",
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Summarize produces a short plain-text summary of the input.
func (c *Client) Summarize(ctx context.Context, text string) (string, error) {
	return c.complete(ctx,
		"You are an assistant for a small-business back office. Summarize the input in two or three plain sentences.",
		text, nil)
}

// ExtractStructured asks the model for JSON and unmarshals it into out.
func (c *Client) ExtractStructured(ctx context.Context, prompt string, out any) error {
	raw, err := c.complete(ctx,
		"You are a data extraction assistant. Always respond with valid JSON and nothing else.",
		prompt, &responseFormat{Type: "json_object"})
	if err != nil {
		return err
	}
	if err := parseJSON(raw, out); err != nil {
		return fmt.Errorf("parse model output: %w", err)
	}
	return nil
}

// Categorize picks the best category for a transaction description.
func (c *Client) Categorize(ctx context.Context, description string, categories []Category) (*Suggestion, error) {
	var sb strings.Builder
	sb.WriteString("Pick the best category for this transaction.\n\nTransaction: ")
	sb.WriteString(description)
	sb.WriteString("\n\nAvailable categories:\n")
	for _, cat := range categories {
		fmt.Fprintf(&sb, "- %s (id: %s)\n", cat.Name, cat.ID)
	}
	sb.WriteString("\nRespond with JSON: {\"category_id\": \"...\", \"category_name\": \"...\", \"confidence\": 0.0, \"reasoning\": \"...\"}")

	raw, err := c.complete(ctx,
		"You are a helpful assistant that categorizes business transactions. Always respond with valid JSON.",
		sb.String(), &responseFormat{Type: "json_object"})
	if err != nil {
		return nil, err
	}

	var suggestion Suggestion
	if err := parseJSON(raw, &suggestion); err != nil {
		return nil, fmt.Errorf("parse model output: %w", err)
	}
	return &suggestion, nil
}

// complete runs one chat completion and returns the first choice's content.
func (c *Client) complete(ctx context.Context, system, user string, format *responseFormat) (string, error) {
	request := chatCompletionRequest{
		Model:          c.model,
		Temperature:    0.1, // Low temperature for consistent output
		ResponseFormat: format,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	}

	requestBody, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewBuffer(requestBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errorResp struct {
			Error struct {
				Message string `json:"message"`
				Type    string `json:"type"`
			} `json:"error"`
		}
		if err := json.Unmarshal(body, &errorResp); err == nil && errorResp.Error.Message != "" {
			return "", fmt.Errorf("model API error: %s (type: %s)", errorResp.Error.Message, errorResp.Error.Type)
		}
		return "", fmt.Errorf("model API returned status %d: %s", resp.StatusCode, string(body))
	}

	var response chatCompletionResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("model returned no choices")
	}
	return response.Choices[0].Message.Content, nil
}
