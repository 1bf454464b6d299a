// Package twelvelabs is the video-intelligence provider client: video
// index management, indexing tasks and prompt-guided summaries.
package twelvelabs

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"

	"go.uber.org/zap"

	"github.com/AzaliaAlisheva/TgChannelRec/pkg/config"
	"github.com/AzaliaAlisheva/TgChannelRec/pkg/logging"
	"github.com/AzaliaAlisheva/TgChannelRec/pkg/telemetry"
)

// APIError represents a provider error with its HTTP status
type APIError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("video intelligence API error %d: %s", e.StatusCode, e.Message)
}

// Index is one video index
type Index struct {
	ID   string `json:"_id"`
	Name string `json:"index_name"`
}

// Task is one video indexing task
type Task struct {
	ID      string `json:"_id"`
	VideoID string `json:"video_id"`
	Status  string `json:"status"`
}

// Client wraps the video-intelligence HTTP API
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	logger     *zap.Logger
}

// New creates a new video-intelligence client
func New(cfg *config.TwelveLabsConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("twelvelabs_api_key is required")
	}

	return &Client{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		logger:     logging.GetLogger().With(zap.String("component", "twelvelabs-client")),
	}, nil
}

// IndexName derives a deterministic index name from a video URL so
// repeated runs on the same video reuse the existing index.
func IndexName(videoURL string) string {
	basename := ""
	if parsed, err := url.Parse(videoURL); err == nil {
		basename = path.Base(parsed.Path)
	}
	sum := md5.Sum([]byte(videoURL))
	return fmt.Sprintf("video-index-%s-%s", basename, hex.EncodeToString(sum[:])[:6])
}

// do performs an authenticated request and decodes the JSON response
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Message string `json:"message"`
		}
		message := string(data)
		if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Message != "" {
			message = apiErr.Message
		}
		return &APIError{StatusCode: resp.StatusCode, Message: message}
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}

	return nil
}

// ListIndexes returns all video indexes
func (c *Client) ListIndexes(ctx context.Context) ([]Index, error) {
	ctx, span := telemetry.StartSpan(ctx, "twelvelabs.list_indexes")
	defer span.End()

	var result struct {
		Data []Index `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/indexes", nil, &result); err != nil {
		return nil, fmt.Errorf("failed to list indexes: %w", err)
	}
	return result.Data, nil
}

// CreateIndex creates a video index with the configured model
func (c *Client) CreateIndex(ctx context.Context, name string) (*Index, error) {
	ctx, span := telemetry.StartSpan(ctx, "twelvelabs.create_index")
	defer span.End()

	body := map[string]interface{}{
		"index_name": name,
		"models": []map[string]interface{}{
			{"model_name": c.model, "model_options": []string{"visual", "audio"}},
		},
	}
	var result Index
	if err := c.do(ctx, http.MethodPost, "/indexes", body, &result); err != nil {
		return nil, fmt.Errorf("failed to create index %q: %w", name, err)
	}
	if result.Name == "" {
		result.Name = name
	}

	c.logger.Info("Video index created", zap.String("index_id", result.ID), zap.String("name", name))
	return &result, nil
}

// CreateTask starts indexing a video URL into an index
func (c *Client) CreateTask(ctx context.Context, indexID, videoURL string) (*Task, error) {
	ctx, span := telemetry.StartSpan(ctx, "twelvelabs.create_task")
	defer span.End()

	body := map[string]interface{}{
		"index_id":  indexID,
		"video_url": videoURL,
	}
	var result Task
	if err := c.do(ctx, http.MethodPost, "/tasks", body, &result); err != nil {
		return nil, fmt.Errorf("failed to create indexing task: %w", err)
	}

	c.logger.Info("Indexing task started",
		zap.String("task_id", result.ID), zap.String("video_id", result.VideoID))
	return &result, nil
}

// Task fetches the current state of an indexing task
func (c *Client) Task(ctx context.Context, taskID string) (*Task, error) {
	ctx, span := telemetry.StartSpan(ctx, "twelvelabs.task")
	defer span.End()

	var result Task
	if err := c.do(ctx, http.MethodGet, "/tasks/"+taskID, nil, &result); err != nil {
		return nil, fmt.Errorf("failed to get task %s: %w", taskID, err)
	}
	return &result, nil
}

// Summarize requests a prompt-guided summary of an indexed video
func (c *Client) Summarize(ctx context.Context, videoID, prompt string) (string, error) {
	ctx, span := telemetry.StartSpan(ctx, "twelvelabs.summarize")
	defer span.End()

	body := map[string]interface{}{
		"video_id": videoID,
		"type":     "summary",
		"prompt":   prompt,
	}
	var result struct {
		Summary string `json:"summary"`
	}
	if err := c.do(ctx, http.MethodPost, "/summarize", body, &result); err != nil {
		return "", fmt.Errorf("failed to summarize video %s: %w", videoID, err)
	}
	return result.Summary, nil
}
