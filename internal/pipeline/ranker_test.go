package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/AzaliaAlisheva/TgChannelRec/internal/models"
	"github.com/AzaliaAlisheva/TgChannelRec/internal/sheets"
	"github.com/AzaliaAlisheva/TgChannelRec/internal/tgstat"
)

func testChannel(id string) models.Channel {
	return models.Channel{ID: id, Title: "Канал " + id, Link: "https://t.me/" + id, Subscribers: 1000}
}

func makePost(link, text string) tgstat.Post {
	return tgstat.Post{Text: text, Link: link, Date: time.Now().Unix()}
}

func TestRankTopN(t *testing.T) {
	api := newFakeChannelAPI()
	var posts []tgstat.Post
	for i := 0; i < 15; i++ {
		link := fmt.Sprintf("https://t.me/ch/%d", i)
		posts = append(posts, makePost(link, fmt.Sprintf("пост %d", i)))
		// later posts get higher engagement
		api.stats[link] = &tgstat.PostStats{Views: 100, Reactions: i, Comments: 0, Forwards: 0}
	}
	api.posts["1"] = posts

	auditLog, _ := testAudit()
	ranker := NewRanker(api, auditLog, nil, 10, 50)

	rows, err := ranker.Rank(context.Background(), models.Tenant{ID: 1, Name: "t"}, []models.Channel{testChannel("1")}, 7, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 10 {
		t.Fatalf("expected top 10 rows, got %d", len(rows))
	}
	if rows[0].Post.Engagement != 14.0 {
		t.Errorf("expected best post first with engagement 14, got %v", rows[0].Post.Engagement)
	}
	for i := 1; i < len(rows); i++ {
		if rows[i].Post.Engagement > rows[i-1].Post.Engagement {
			t.Errorf("rows not sorted descending at index %d", i)
		}
	}
}

func TestRankStableForEqualScores(t *testing.T) {
	api := newFakeChannelAPI()
	for i := 0; i < 3; i++ {
		link := fmt.Sprintf("https://t.me/ch/%d", i)
		api.posts["1"] = append(api.posts["1"], makePost(link, fmt.Sprintf("пост %d", i)))
		api.stats[link] = &tgstat.PostStats{Views: 100, Reactions: 5}
	}

	auditLog, _ := testAudit()
	ranker := NewRanker(api, auditLog, nil, 10, 50)

	rows, err := ranker.Rank(context.Background(), models.Tenant{ID: 1, Name: "t"}, []models.Channel{testChannel("1")}, 7, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, row := range rows {
		want := fmt.Sprintf("пост %d", i)
		if row.Post.Text != want {
			t.Errorf("expected fetch order preserved, row %d is %q", i, row.Post.Text)
		}
	}
}

func TestRankSkipsInvalidPosts(t *testing.T) {
	api := newFakeChannelAPI()
	api.posts["1"] = []tgstat.Post{
		makePost("https://t.me/ch/1", "   "),
		makePost("", "без ссылки"),
		makePost("https://t.me/ch/2", "нормальный пост"),
		makePost("https://t.me/ch/3", "без статистики"),
	}
	api.stats["https://t.me/ch/2"] = &tgstat.PostStats{Views: 10, Reactions: 1}
	// ch/3 has no stats entry: provider said the post is gone

	auditLog, _ := testAudit()
	ranker := NewRanker(api, auditLog, nil, 10, 50)

	rows, err := ranker.Rank(context.Background(), models.Tenant{ID: 1, Name: "t"}, []models.Channel{testChannel("1")}, 7, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 || rows[0].Post.Text != "нормальный пост" {
		t.Fatalf("expected only the valid post, got %+v", rows)
	}
}

func TestRankNoPosts(t *testing.T) {
	api := newFakeChannelAPI()
	api.postsErr["1"] = errors.New("channel restricted")

	auditLog, logWS := testAudit()
	ranker := NewRanker(api, auditLog, nil, 10, 50)

	_, err := ranker.Rank(context.Background(), models.Tenant{ID: 1, Name: "t"}, []models.Channel{testChannel("1"), testChannel("2")}, 7, nil)
	if !errors.Is(err, ErrNoPosts) {
		t.Fatalf("expected ErrNoPosts, got %v", err)
	}
	if len(logWS.Values()) == 0 {
		t.Error("expected audit entries for the empty channels")
	}
}

func TestPersistBaseColumns(t *testing.T) {
	auditLog, _ := testAudit()
	ranker := NewRanker(newFakeChannelAPI(), auditLog, nil, 10, 50)

	ss := sheets.NewMemorySpreadsheet()
	ws := ss.AddWorksheet(SuggestionsWorksheet, nil)

	published := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	rows := []models.SuggestionRow{{
		Channel: models.Channel{Title: "Канал", Subscribers: 500},
		Post: models.Post{
			Text: "привет", Link: "https://t.me/ch/1", Date: published,
			Views: 200, Reactions: 4, Comments: 1, Forwards: 3, Engagement: 4.0,
		},
	}}
	if err := ranker.Persist(context.Background(), ws, rows); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	values := ws.Values()
	if len(values) != 2 {
		t.Fatalf("expected header plus 1 row, got %d", len(values))
	}
	row := values[1]
	if row[5] != "14.03.2026" || row[6] != "09:30" {
		t.Errorf("unexpected date cells: %q %q", row[5], row[6])
	}
	if row[7] != "6" {
		t.Errorf("expected rune length 6, got %q", row[7])
	}
	if row[12] != "4" {
		t.Errorf("expected engagement 4, got %q", row[12])
	}
}
