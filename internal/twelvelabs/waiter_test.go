package twelvelabs

import (
	"context"
	"strings"
	"testing"
	"time"
)

// fakeClock advances instantly on Sleep
type fakeClock struct {
	now    time.Time
	sleeps int
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.now = c.now.Add(d)
	c.sleeps++
	return ctx.Err()
}

// scriptedTasks replays a fixed status sequence
type scriptedTasks struct {
	statuses []string
	calls    int
}

func (s *scriptedTasks) Task(ctx context.Context, taskID string) (*Task, error) {
	status := s.statuses[len(s.statuses)-1]
	if s.calls < len(s.statuses) {
		status = s.statuses[s.calls]
	}
	s.calls++
	return &Task{ID: taskID, VideoID: "video-1", Status: status}, nil
}

func TestWaiterReady(t *testing.T) {
	tasks := &scriptedTasks{statuses: []string{StatusQueued, StatusProcessing, StatusProcessing, StatusReady}}
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}

	var seen []string
	waiter := NewWaiter(tasks, 5*time.Second, time.Minute).
		WithClock(clock).
		OnUpdate(func(task *Task) { seen = append(seen, task.Status) })

	task, err := waiter.Wait(context.Background(), "task-1")
	if err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if task.VideoID != "video-1" {
		t.Errorf("Expected video id from final task, got %q", task.VideoID)
	}
	if clock.sleeps != 3 {
		t.Errorf("Expected 3 sleeps, got %d", clock.sleeps)
	}

	want := []string{StatusQueued, StatusProcessing, StatusProcessing, StatusReady}
	if len(seen) != len(want) {
		t.Fatalf("Expected %d progress callbacks, got %d", len(want), len(seen))
	}
	for i, status := range want {
		if seen[i] != status {
			t.Errorf("Callback %d = %q, want %q", i, seen[i], status)
		}
	}
}

func TestWaiterFailed(t *testing.T) {
	tasks := &scriptedTasks{statuses: []string{StatusQueued, StatusFailed}}
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}

	waiter := NewWaiter(tasks, 5*time.Second, time.Minute).WithClock(clock)
	if _, err := waiter.Wait(context.Background(), "task-1"); err == nil {
		t.Fatal("Expected error for failed task")
	}
}

func TestWaiterTimeout(t *testing.T) {
	tasks := &scriptedTasks{statuses: []string{StatusProcessing}}
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}

	waiter := NewWaiter(tasks, 10*time.Second, 25*time.Second).WithClock(clock)
	_, err := waiter.Wait(context.Background(), "task-1")
	if err == nil {
		t.Fatal("Expected timeout error")
	}
	if !strings.Contains(err.Error(), "did not finish") {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestWaiterUnknownStatusKeepsPolling(t *testing.T) {
	tasks := &scriptedTasks{statuses: []string{"validating", "pending", StatusReady}}
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}

	waiter := NewWaiter(tasks, 5*time.Second, time.Minute).WithClock(clock)
	if _, err := waiter.Wait(context.Background(), "task-1"); err != nil {
		t.Fatalf("Wait failed on transitional statuses: %v", err)
	}
}

func TestIndexName(t *testing.T) {
	url := "https://cdn.example.com/videos/clip.mp4"
	name := IndexName(url)

	if !strings.HasPrefix(name, "video-index-clip.mp4-") {
		t.Errorf("Unexpected index name shape: %q", name)
	}
	suffix := strings.TrimPrefix(name, "video-index-clip.mp4-")
	if len(suffix) != 6 {
		t.Errorf("Expected 6-char hash suffix, got %q", suffix)
	}

	// Deterministic across calls
	if IndexName(url) != name {
		t.Error("IndexName must be stable for the same URL")
	}
	// Distinct URLs get distinct names
	if IndexName("https://cdn.example.com/videos/other.mp4") == name {
		t.Error("IndexName must differ for different URLs")
	}
}
