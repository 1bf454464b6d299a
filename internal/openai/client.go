// Package openai is the text-generation provider client used for
// structured post analysis, rewriting, translation and brief generation.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/AzaliaAlisheva/TgChannelRec/pkg/config"
	"github.com/AzaliaAlisheva/TgChannelRec/pkg/logging"
	"github.com/AzaliaAlisheva/TgChannelRec/pkg/telemetry"
)

// APIError represents a provider error with its HTTP status, so callers
// can classify quota, auth and permission failures.
type APIError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("text generation API error %d: %s", e.StatusCode, e.Message)
}

// Client wraps the chat-completions HTTP API
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	logger     *zap.Logger
}

// New creates a new text-generation client
func New(cfg *config.OpenAIConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai_api_key is required")
	}

	return &Client{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		logger:     logging.GetLogger().With(zap.String("component", "openai-client")),
	}, nil
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Complete submits a prompt and returns the completion text. An empty
// systemRole omits the system message.
func (c *Client) Complete(ctx context.Context, model, systemRole, prompt string, temperature float64) (string, error) {
	ctx, span := telemetry.StartSpan(ctx, "openai.complete")
	defer span.End()

	messages := make([]message, 0, 2)
	if systemRole != "" {
		messages = append(messages, message{Role: "system", Content: systemRole})
	}
	messages = append(messages, message{Role: "user", Content: prompt})

	payload, err := json.Marshal(map[string]interface{}{
		"model":       model,
		"messages":    messages,
		"temperature": temperature,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		message := string(data)
		if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Error.Message != "" {
			message = apiErr.Error.Message
		}
		c.logger.Warn("Completion request rejected",
			zap.Int("status", resp.StatusCode), zap.String("model", model))
		return "", &APIError{StatusCode: resp.StatusCode, Message: message}
	}

	var completion struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(data, &completion); err != nil {
		return "", fmt.Errorf("failed to unmarshal completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("no choices in completion")
	}

	return completion.Choices[0].Message.Content, nil
}
