package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/AzaliaAlisheva/TgChannelRec/internal/audit"
	"github.com/AzaliaAlisheva/TgChannelRec/internal/cache"
	"github.com/AzaliaAlisheva/TgChannelRec/internal/models"
	"github.com/AzaliaAlisheva/TgChannelRec/internal/prompts"
	"github.com/AzaliaAlisheva/TgChannelRec/internal/sheets"
	"github.com/AzaliaAlisheva/TgChannelRec/internal/twelvelabs"
	"github.com/AzaliaAlisheva/TgChannelRec/pkg/logging"
	"github.com/AzaliaAlisheva/TgChannelRec/pkg/telemetry"
)

// EnrichHeader extends BaseHeader with the AI-derived columns.
var EnrichHeader = []string{
	"Предложение по посту",
	"Предложение по видео",
	"Тема поста",
	"Формат",
	"Стиль",
	"CTA",
	"Заголовок",
	"Длина заголовка",
	"✅ Научный факт/исследование",
	"✅ Конкретная польза (как сделать)",
	"✅ Призыв комментировать",
	"Инсайт/заметка",
	"Фильтр",
}

// TextAPI is the completion surface the enricher consumes; satisfied by
// *openai.Client.
type TextAPI interface {
	Complete(ctx context.Context, model, systemRole, prompt string, temperature float64) (string, error)
}

// VideoAPI is the video-intelligence surface; satisfied by
// *twelvelabs.Client.
type VideoAPI interface {
	ListIndexes(ctx context.Context) ([]twelvelabs.Index, error)
	CreateIndex(ctx context.Context, name string) (*twelvelabs.Index, error)
	CreateTask(ctx context.Context, indexID, videoURL string) (*twelvelabs.Task, error)
	Task(ctx context.Context, taskID string) (*twelvelabs.Task, error)
	Summarize(ctx context.Context, videoID, prompt string) (string, error)
}

// Temperatures per stage, tuned for how deterministic each output
// needs to be.
const (
	analysisTemp  = 0.4
	rewriteTemp   = 0.8
	translateTemp = 0.8
	briefTemp     = 0.7
)

// analysisPayload is the structured-analysis contract with the model.
type analysisPayload struct {
	Topic       string      `json:"tema"`
	Format      string      `json:"format"`
	Style       string      `json:"style"`
	CTA         string      `json:"cta"`
	Title       string      `json:"zagolovok_5_slov"`
	TitleLen    json.Number `json:"zagolovok_len"`
	Fact        string      `json:"fact"`
	Benefit     string      `json:"benefit"`
	CommentCall string      `json:"comment_call"`
	Insight     string      `json:"insight"`
	Filter      string      `json:"filter"`
}

// Enricher fills the AI-derived columns of ranked rows. Per-row provider
// failures leave the row's affected fields blank; failures that classify
// as fatal abort the whole tenant.
type Enricher struct {
	text    TextAPI
	video   VideoAPI
	cache   *cache.Cache
	prompts *prompts.Prompts
	audit   *audit.Logger
	logger  *zap.Logger

	model        string
	miniModel    string
	pollInterval time.Duration
	pollTimeout  time.Duration
	clock        twelvelabs.Clock
}

// NewEnricher creates a row enricher
func NewEnricher(text TextAPI, video VideoAPI, idxCache *cache.Cache, p *prompts.Prompts, auditLog *audit.Logger, model, miniModel string, pollInterval, pollTimeout time.Duration) *Enricher {
	return &Enricher{
		text:         text,
		video:        video,
		cache:        idxCache,
		prompts:      p,
		audit:        auditLog,
		logger:       logging.GetLogger().With(zap.String("component", "enricher")),
		model:        model,
		miniModel:    miniModel,
		pollInterval: pollInterval,
		pollTimeout:  pollTimeout,
	}
}

// WithClock overrides the poll clock, for tests
func (e *Enricher) WithClock(clock twelvelabs.Clock) *Enricher {
	e.clock = clock
	return e
}

// Enrich processes every row in place, then writes the extended header
// and the full row block back to the suggestions sheet.
func (e *Enricher) Enrich(ctx context.Context, tenant models.Tenant, tenantContext string, ws sheets.Worksheet, rows []models.SuggestionRow) error {
	ctx, span := telemetry.StartSpan(ctx, "pipeline.enrich_rows")
	defer span.End()

	header := append(append([]string{}, BaseHeader...), EnrichHeader...)
	if err := ws.EnsureCols(ctx, len(header)); err != nil {
		return fmt.Errorf("failed to grow suggestions sheet: %w", err)
	}
	if err := ws.UpdateRows(ctx, 1, [][]string{header}); err != nil {
		return fmt.Errorf("failed to write suggestions header: %w", err)
	}

	for i := range rows {
		if err := e.enrichRow(ctx, tenant, tenantContext, i, &rows[i]); err != nil {
			return err
		}
	}

	values := make([][]string, 0, len(rows))
	for _, row := range rows {
		values = append(values, append(baseValues(row), enrichValues(row)...))
	}
	if err := ws.UpdateRows(ctx, 2, values); err != nil {
		return fmt.Errorf("failed to write enriched rows: %w", err)
	}
	return nil
}

// enrichRow runs the three stages for one row. Only fatal errors
// propagate; anything else is audited and the stage's fields stay blank.
func (e *Enricher) enrichRow(ctx context.Context, tenant models.Tenant, tenantContext string, idx int, row *models.SuggestionRow) error {
	if err := e.analyze(ctx, row); err != nil {
		if Fatal(err) {
			return err
		}
		e.logger.Warn("Post analysis failed",
			zap.Int("tenant_id", tenant.ID), zap.String("post", row.Post.Link), zap.Error(err))
		e.audit.Log(ctx, tenant.ID, tenant.Name,
			fmt.Sprintf("Ошибка анализа поста %s: %v", row.Post.Link, err))
	}

	if err := e.rewrite(ctx, tenantContext, row); err != nil {
		if Fatal(err) {
			return err
		}
		e.logger.Warn("Post rewrite failed",
			zap.Int("tenant_id", tenant.ID), zap.String("post", row.Post.Link), zap.Error(err))
		e.audit.Log(ctx, tenant.ID, tenant.Name,
			fmt.Sprintf("Ошибка генерации предложения для поста %s: %v", row.Post.Link, err))
	}

	if row.Post.VideoLink != "" {
		if err := e.suggestVideo(ctx, tenantContext, row); err != nil {
			if Fatal(err) {
				return err
			}
			e.logger.Warn("Video suggestion failed",
				zap.Int("tenant_id", tenant.ID), zap.String("video", row.Post.VideoLink), zap.Error(err))
			e.audit.Log(ctx, tenant.ID, tenant.Name,
				fmt.Sprintf("Ошибка обработки видео в строке %d: %v", idx+2, err))
		}
	}

	return nil
}

// analyze asks the model for the structured post breakdown
func (e *Enricher) analyze(ctx context.Context, row *models.SuggestionRow) error {
	content, err := e.text.Complete(ctx, e.model, e.prompts.TextSystemRole,
		e.prompts.Analysis(row.Post.Text), analysisTemp)
	if err != nil {
		return err
	}

	var payload analysisPayload
	if err := ExtractJSON(content, &payload); err != nil {
		return fmt.Errorf("failed to parse analysis response: %w", err)
	}

	row.Topic = payload.Topic
	row.Format = payload.Format
	row.Style = payload.Style
	row.CTA = payload.CTA
	row.Title = payload.Title
	row.TitleLen = payload.TitleLen.String()
	row.Fact = payload.Fact
	row.Benefit = payload.Benefit
	row.CommentCall = payload.CommentCall
	row.Insight = payload.Insight
	row.Filter = payload.Filter
	return nil
}

// rewrite produces the tenant-adapted version of the post
func (e *Enricher) rewrite(ctx context.Context, tenantContext string, row *models.SuggestionRow) error {
	content, err := e.text.Complete(ctx, e.model, e.prompts.TextSystemRole,
		e.prompts.Rewrite(tenantContext, row.Post.Text), rewriteTemp)
	if err != nil {
		return err
	}
	row.Rewritten = content
	return nil
}

// suggestVideo indexes the post's video, summarizes it and turns the
// translated summary into a production brief.
func (e *Enricher) suggestVideo(ctx context.Context, tenantContext string, row *models.SuggestionRow) error {
	ctx, span := telemetry.StartSpan(ctx, "pipeline.suggest_video")
	defer span.End()

	indexID, err := e.resolveIndex(ctx, row.Post.VideoLink)
	if err != nil {
		return err
	}

	task, err := e.video.CreateTask(ctx, indexID, row.Post.VideoLink)
	if err != nil {
		return err
	}

	waiter := twelvelabs.NewWaiter(e.video, e.pollInterval, e.pollTimeout).
		OnUpdate(func(t *twelvelabs.Task) {
			e.logger.Debug("Indexing task status",
				zap.String("task_id", t.ID), zap.String("status", t.Status))
		})
	if e.clock != nil {
		waiter = waiter.WithClock(e.clock)
	}
	done, err := waiter.Wait(ctx, task.ID)
	if err != nil {
		return err
	}

	summary, err := e.video.Summarize(ctx, done.VideoID, e.prompts.VideoSummaryPrompt)
	if err != nil {
		return err
	}

	translated, err := e.text.Complete(ctx, e.miniModel, "",
		e.prompts.Translate(summary), translateTemp)
	if err != nil {
		return err
	}

	brief, err := e.text.Complete(ctx, e.model, e.prompts.VideoBriefRole,
		e.prompts.VideoBrief(tenantContext, translated), briefTemp)
	if err != nil {
		return err
	}

	row.VideoSuggestion = brief
	return nil
}

// resolveIndex returns the id of the per-video index, consulting the
// cache first and creating the index when the provider does not have it.
func (e *Enricher) resolveIndex(ctx context.Context, videoURL string) (string, error) {
	name := twelvelabs.IndexName(videoURL)

	if id, err := e.cache.IndexID(ctx, name); err == nil && id != "" {
		return id, nil
	}

	indexes, err := e.video.ListIndexes(ctx)
	if err != nil {
		return "", err
	}
	for _, idx := range indexes {
		if idx.Name == name {
			e.storeIndex(ctx, name, idx.ID)
			return idx.ID, nil
		}
	}

	created, err := e.video.CreateIndex(ctx, name)
	if err != nil {
		return "", err
	}
	e.storeIndex(ctx, name, created.ID)
	return created.ID, nil
}

func (e *Enricher) storeIndex(ctx context.Context, name, id string) {
	if err := e.cache.StoreIndexID(ctx, name, id); err != nil && err != cache.ErrCacheDisabled {
		e.logger.Warn("Failed to cache index id", zap.String("index", name), zap.Error(err))
	}
}

// enrichValues renders the AI-derived columns of one row
func enrichValues(row models.SuggestionRow) []string {
	return []string{
		row.Rewritten,
		row.VideoSuggestion,
		row.Topic,
		row.Format,
		row.Style,
		row.CTA,
		row.Title,
		row.TitleLen,
		row.Fact,
		row.Benefit,
		row.CommentCall,
		row.Insight,
		row.Filter,
	}
}
