package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/AzaliaAlisheva/TgChannelRec/internal/audit"
	"github.com/AzaliaAlisheva/TgChannelRec/internal/sheets"
	"github.com/AzaliaAlisheva/TgChannelRec/internal/tgstat"
	"github.com/AzaliaAlisheva/TgChannelRec/internal/twelvelabs"
)

// fakeChannelAPI returns canned channel data keyed by link or id.
type fakeChannelAPI struct {
	channels map[string]*tgstat.ChannelInfo
	posts    map[string][]tgstat.Post
	stats    map[string]*tgstat.PostStats

	channelErr map[string]error
	postsErr   map[string]error
}

func newFakeChannelAPI() *fakeChannelAPI {
	return &fakeChannelAPI{
		channels:   map[string]*tgstat.ChannelInfo{},
		posts:      map[string][]tgstat.Post{},
		stats:      map[string]*tgstat.PostStats{},
		channelErr: map[string]error{},
		postsErr:   map[string]error{},
	}
}

func (f *fakeChannelAPI) Channel(ctx context.Context, channelID string) (*tgstat.ChannelInfo, error) {
	if err := f.channelErr[channelID]; err != nil {
		return nil, err
	}
	info, ok := f.channels[channelID]
	if !ok {
		return nil, fmt.Errorf("unknown channel %s", channelID)
	}
	return info, nil
}

func (f *fakeChannelAPI) ChannelPosts(ctx context.Context, channelID string, from, to time.Time, limit int) ([]tgstat.Post, error) {
	if err := f.postsErr[channelID]; err != nil {
		return nil, err
	}
	return f.posts[channelID], nil
}

func (f *fakeChannelAPI) PostStats(ctx context.Context, postLink string) (*tgstat.PostStats, error) {
	return f.stats[postLink], nil
}

// fakeTextAPI answers completions from a queue per prompt substring.
type fakeTextAPI struct {
	responses []textResponse
	calls     []string
}

type textResponse struct {
	contains string
	content  string
	err      error
}

func (f *fakeTextAPI) Complete(ctx context.Context, model, systemRole, prompt string, temperature float64) (string, error) {
	f.calls = append(f.calls, prompt)
	for _, r := range f.responses {
		if r.contains == "" || strings.Contains(prompt, r.contains) {
			if r.err != nil {
				return "", r.err
			}
			return r.content, nil
		}
	}
	return "", fmt.Errorf("no response configured for prompt %q", prompt)
}

// fakeVideoAPI simulates the video-intelligence provider with a single
// immediately-ready indexing task.
type fakeVideoAPI struct {
	indexes   []twelvelabs.Index
	summary   string
	taskErr   error
	createErr error
}

func (f *fakeVideoAPI) ListIndexes(ctx context.Context) ([]twelvelabs.Index, error) {
	return f.indexes, nil
}

func (f *fakeVideoAPI) CreateIndex(ctx context.Context, name string) (*twelvelabs.Index, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	idx := twelvelabs.Index{ID: "idx-" + name, Name: name}
	f.indexes = append(f.indexes, idx)
	return &idx, nil
}

func (f *fakeVideoAPI) CreateTask(ctx context.Context, indexID, videoURL string) (*twelvelabs.Task, error) {
	if f.taskErr != nil {
		return nil, f.taskErr
	}
	return &twelvelabs.Task{ID: "task-1", Status: twelvelabs.StatusQueued}, nil
}

func (f *fakeVideoAPI) Task(ctx context.Context, taskID string) (*twelvelabs.Task, error) {
	return &twelvelabs.Task{ID: taskID, VideoID: "video-1", Status: twelvelabs.StatusReady}, nil
}

func (f *fakeVideoAPI) Summarize(ctx context.Context, videoID, prompt string) (string, error) {
	return f.summary, nil
}

func testAudit() (*audit.Logger, *sheets.MemoryWorksheet) {
	ss := sheets.NewMemorySpreadsheet()
	ws := ss.AddWorksheet("Log", nil)
	return audit.New(ws), ws
}
