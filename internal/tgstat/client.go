// Package tgstat is the analytics provider client: channel metadata,
// channel posts and per-post engagement counters.
package tgstat

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/AzaliaAlisheva/TgChannelRec/pkg/config"
	"github.com/AzaliaAlisheva/TgChannelRec/pkg/logging"
	"github.com/AzaliaAlisheva/TgChannelRec/pkg/telemetry"
)

// ChannelInfo is the resolved metadata of one channel
type ChannelInfo struct {
	ID           int64  `json:"id"`
	Title        string `json:"title"`
	Username     string `json:"username"`
	Participants int    `json:"participants_count"`
}

// Post is one channel publication as returned by the provider
type Post struct {
	Text  string `json:"text"`
	Link  string `json:"link"`
	Date  int64  `json:"date"`
	Media struct {
		FileURL string `json:"file_url"`
	} `json:"media"`

	// Raw keeps the original payload for the snapshot archive.
	Raw json.RawMessage `json:"-"`
}

// PostStats holds the engagement counters of one post
type PostStats struct {
	Views     int `json:"viewsCount"`
	Reactions int `json:"reactionsCount"`
	Comments  int `json:"commentsCount"`
	Forwards  int `json:"forwardsCount"`

	// Raw keeps the original payload for the snapshot archive.
	Raw json.RawMessage `json:"-"`
}

// Client wraps the analytics provider HTTP API
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	logger     *zap.Logger
}

// New creates a new analytics client
func New(cfg *config.TGStatConfig) (*Client, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("tgstat_token is required")
	}

	logger := logging.GetLogger().With(zap.String("component", "tgstat-client"))
	logger.Info("Analytics client initialized", zap.String("url", cfg.BaseURL))

	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    cfg.BaseURL,
		token:      cfg.Token,
		logger:     logger,
	}, nil
}

// envelope is the provider's common response wrapper
type envelope struct {
	Status   string          `json:"status"`
	Error    string          `json:"error"`
	Response json.RawMessage `json:"response"`
}

// get performs a GET request and unwraps the provider envelope
func (c *Client) get(ctx context.Context, path string, params url.Values) (json.RawMessage, error) {
	params.Set("token", c.token)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if env.Status == "error" {
		return nil, fmt.Errorf("provider error: %s", env.Error)
	}
	if env.Status != "ok" {
		return nil, fmt.Errorf("unexpected provider status %q", env.Status)
	}

	return env.Response, nil
}

// Channel fetches metadata for one channel id or link
func (c *Client) Channel(ctx context.Context, channelID string) (*ChannelInfo, error) {
	ctx, span := telemetry.StartSpan(ctx, "tgstat.channel")
	defer span.End()

	params := url.Values{}
	params.Set("channelId", channelID)

	response, err := c.get(ctx, "/channels/get", params)
	if err != nil {
		return nil, fmt.Errorf("failed to get channel %s: %w", channelID, err)
	}

	var info ChannelInfo
	if err := json.Unmarshal(response, &info); err != nil {
		return nil, fmt.Errorf("failed to unmarshal channel %s: %w", channelID, err)
	}

	return &info, nil
}

// ChannelPosts fetches posts of a channel published inside [from, to]
func (c *Client) ChannelPosts(ctx context.Context, channelID string, from, to time.Time, limit int) ([]Post, error) {
	ctx, span := telemetry.StartSpan(ctx, "tgstat.channel_posts")
	defer span.End()

	params := url.Values{}
	params.Set("channelId", channelID)
	params.Set("limit", strconv.Itoa(limit))
	params.Set("startDate", from.Format("2006-01-02"))
	params.Set("endDate", to.Format("2006-01-02"))
	params.Set("extended", "1")

	response, err := c.get(ctx, "/channels/posts", params)
	if err != nil {
		return nil, fmt.Errorf("failed to get posts of channel %s: %w", channelID, err)
	}

	var payload struct {
		Items []json.RawMessage `json:"items"`
	}
	if err := json.Unmarshal(response, &payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal posts of channel %s: %w", channelID, err)
	}

	posts := make([]Post, 0, len(payload.Items))
	for _, raw := range payload.Items {
		var post Post
		if err := json.Unmarshal(raw, &post); err != nil {
			c.logger.Warn("Skipping malformed post payload",
				zap.String("channel", channelID), zap.Error(err))
			continue
		}
		post.Raw = raw
		posts = append(posts, post)
	}

	return posts, nil
}

// PostStats fetches engagement counters for one post link. Returns
// (nil, nil) when the provider has no stats for the post.
func (c *Client) PostStats(ctx context.Context, postLink string) (*PostStats, error) {
	ctx, span := telemetry.StartSpan(ctx, "tgstat.post_stats")
	defer span.End()

	params := url.Values{}
	params.Set("postId", postLink)

	response, err := c.get(ctx, "/posts/stat", params)
	if err != nil {
		c.logger.Debug("Stats unavailable", zap.String("post", postLink), zap.Error(err))
		return nil, nil
	}

	var stats PostStats
	if err := json.Unmarshal(response, &stats); err != nil {
		return nil, fmt.Errorf("failed to unmarshal stats of %s: %w", postLink, err)
	}
	stats.Raw = response

	return &stats, nil
}
