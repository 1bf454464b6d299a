package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/AzaliaAlisheva/TgChannelRec/internal/models"
	"github.com/AzaliaAlisheva/TgChannelRec/internal/openai"
	"github.com/AzaliaAlisheva/TgChannelRec/internal/prompts"
	"github.com/AzaliaAlisheva/TgChannelRec/internal/sheets"
	"github.com/AzaliaAlisheva/TgChannelRec/internal/twelvelabs"
)

const analysisJSON = "```json\n" + `{
  "tema": "спорт",
  "format": "текст",
  "style": "экспертный",
  "cta": "нет",
  "zagolovok_5_slov": "Пять слов про спорт сегодня",
  "zagolovok_len": 29,
  "fact": "да",
  "benefit": "да",
  "comment_call": "нет",
  "insight": "сильная история",
  "filter": "Профессиональное"
}` + "\n```"

func newTestEnricher(text *fakeTextAPI, video *fakeVideoAPI) *Enricher {
	auditLog, _ := testAudit()
	return NewEnricher(text, video, nil, prompts.Defaults(), auditLog,
		"gpt-4o", "gpt-4o-mini", time.Millisecond, time.Second)
}

func suggestionRows(n int, withVideo bool) []models.SuggestionRow {
	rows := make([]models.SuggestionRow, n)
	for i := range rows {
		rows[i] = models.SuggestionRow{
			Channel: models.Channel{Title: "Канал"},
			Post: models.Post{
				Text: "текст поста",
				Link: "https://t.me/ch/1",
				Date: time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC),
			},
		}
		if withVideo {
			rows[i].Post.VideoLink = "https://cdn.example.com/clip.mp4"
		}
	}
	return rows
}

func TestEnrichFillsAllColumns(t *testing.T) {
	text := &fakeTextAPI{responses: []textResponse{
		{contains: "Проанализируй", content: analysisJSON},
		{contains: "создай уникальный Telegram-пост", content: "переписанный пост"},
		{contains: "Переведи текст", content: "перевод описания"},
		{contains: "описание и скрипт видео", content: "бриф на видео"},
	}}
	video := &fakeVideoAPI{summary: "english summary"}
	enricher := newTestEnricher(text, video)

	ss := sheets.NewMemorySpreadsheet()
	ws := ss.AddWorksheet(SuggestionsWorksheet, nil)
	rows := suggestionRows(1, true)

	err := enricher.Enrich(context.Background(), models.Tenant{ID: 1, Name: "t"}, "фитнес-клуб", ws, rows)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rows[0].Topic != "спорт" || rows[0].TitleLen != "29" {
		t.Errorf("analysis fields not filled: %+v", rows[0])
	}
	if rows[0].Rewritten != "переписанный пост" {
		t.Errorf("expected rewritten text, got %q", rows[0].Rewritten)
	}
	if rows[0].VideoSuggestion != "бриф на видео" {
		t.Errorf("expected video brief, got %q", rows[0].VideoSuggestion)
	}

	values := ws.Values()
	if len(values) != 2 {
		t.Fatalf("expected header plus 1 row, got %d", len(values))
	}
	if got := len(values[0]); got != len(BaseHeader)+len(EnrichHeader) {
		t.Errorf("expected %d header columns, got %d", len(BaseHeader)+len(EnrichHeader), got)
	}
	if values[1][13] != "переписанный пост" {
		t.Errorf("unexpected rewrite cell: %q", values[1][13])
	}
}

func TestEnrichVideoFailureIsolatedToRow(t *testing.T) {
	text := &fakeTextAPI{responses: []textResponse{
		{contains: "Проанализируй", content: analysisJSON},
		{contains: "создай уникальный Telegram-пост", content: "переписанный пост"},
	}}
	video := &fakeVideoAPI{taskErr: errors.New("index unavailable")}
	enricher := newTestEnricher(text, video)

	ss := sheets.NewMemorySpreadsheet()
	ws := ss.AddWorksheet(SuggestionsWorksheet, nil)
	rows := suggestionRows(2, true)

	err := enricher.Enrich(context.Background(), models.Tenant{ID: 1, Name: "t"}, "контекст", ws, rows)
	if err != nil {
		t.Fatalf("expected non-fatal video error to be swallowed, got %v", err)
	}

	for i := range rows {
		if rows[i].VideoSuggestion != "" {
			t.Errorf("row %d: expected blank video suggestion", i)
		}
		if rows[i].Rewritten != "переписанный пост" {
			t.Errorf("row %d: text fields should survive video failure", i)
		}
		if rows[i].Topic != "спорт" {
			t.Errorf("row %d: analysis fields should survive video failure", i)
		}
	}
}

func TestEnrichAnalysisParseFailureIsolatedToRow(t *testing.T) {
	text := &fakeTextAPI{responses: []textResponse{
		{contains: "Проанализируй", content: "модель ответила прозой"},
		{contains: "создай уникальный Telegram-пост", content: "переписанный пост"},
	}}
	enricher := newTestEnricher(text, &fakeVideoAPI{})

	ss := sheets.NewMemorySpreadsheet()
	ws := ss.AddWorksheet(SuggestionsWorksheet, nil)
	rows := suggestionRows(2, false)

	err := enricher.Enrich(context.Background(), models.Tenant{ID: 1, Name: "t"}, "контекст", ws, rows)
	if err != nil {
		t.Fatalf("expected parse failure to be swallowed, got %v", err)
	}
	for i := range rows {
		if rows[i].Topic != "" {
			t.Errorf("row %d: expected blank analysis fields", i)
		}
		if rows[i].Rewritten != "переписанный пост" {
			t.Errorf("row %d: rewrite should still run", i)
		}
	}
}

func TestEnrichFatalErrorAbortsTenant(t *testing.T) {
	text := &fakeTextAPI{responses: []textResponse{
		{contains: "Проанализируй", err: &openai.APIError{StatusCode: 401, Message: "invalid key"}},
	}}
	enricher := newTestEnricher(text, &fakeVideoAPI{})

	ss := sheets.NewMemorySpreadsheet()
	ws := ss.AddWorksheet(SuggestionsWorksheet, nil)
	rows := suggestionRows(2, false)

	err := enricher.Enrich(context.Background(), models.Tenant{ID: 1, Name: "t"}, "контекст", ws, rows)
	if err == nil {
		t.Fatal("expected fatal error to propagate")
	}
	if Classify(err) != KindAuthFailed {
		t.Errorf("expected auth failure classification, got %v", Classify(err))
	}
}

func TestEnrichReusesExistingIndex(t *testing.T) {
	text := &fakeTextAPI{responses: []textResponse{
		{contains: "Проанализируй", content: analysisJSON},
		{contains: "создай уникальный Telegram-пост", content: "пост"},
		{contains: "Переведи текст", content: "перевод"},
		{contains: "описание и скрипт видео", content: "бриф"},
	}}
	video := &fakeVideoAPI{summary: "summary", createErr: errors.New("should not create")}
	// pre-seed the provider with the index the video resolves to
	enricher := newTestEnricher(text, video)

	rows := suggestionRows(1, true)
	name := twelvelabs.IndexName(rows[0].Post.VideoLink)
	video.indexes = append(video.indexes, twelvelabs.Index{ID: "idx-existing", Name: name})

	ss := sheets.NewMemorySpreadsheet()
	ws := ss.AddWorksheet(SuggestionsWorksheet, nil)

	err := enricher.Enrich(context.Background(), models.Tenant{ID: 1, Name: "t"}, "контекст", ws, rows)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rows[0].VideoSuggestion != "бриф" {
		t.Errorf("expected brief from the existing index, got %q", rows[0].VideoSuggestion)
	}
}
