package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/AzaliaAlisheva/TgChannelRec/internal/archive"
	"github.com/AzaliaAlisheva/TgChannelRec/internal/audit"
	"github.com/AzaliaAlisheva/TgChannelRec/internal/models"
	"github.com/AzaliaAlisheva/TgChannelRec/internal/sheets"
	"github.com/AzaliaAlisheva/TgChannelRec/internal/tgstat"
	"github.com/AzaliaAlisheva/TgChannelRec/pkg/logging"
	"github.com/AzaliaAlisheva/TgChannelRec/pkg/telemetry"
)

// BaseHeader is the fixed 13-column schema of the suggestions sheet.
var BaseHeader = []string{
	"Название канала",
	"Количество подписчиков",
	"Пост - Текст поста",
	"Ссылка на пост",
	"Ссылка на видео",
	"Дата публикации",
	"Время публикации",
	"Длина поста",
	"Количество просмотров",
	"Реакции",
	"Комментарии",
	"Репосты",
	"Вовлеченность",
}

// Ranker fetches recent posts per channel, scores them by engagement and
// keeps the top N per channel, in score order.
type Ranker struct {
	api     ChannelAPI
	audit   *audit.Logger
	archive *archive.Store
	logger  *zap.Logger
	topN    int
	limit   int
	now     func() time.Time
}

// NewRanker creates a post ranker
func NewRanker(api ChannelAPI, auditLog *audit.Logger, store *archive.Store, topN, limit int) *Ranker {
	return &Ranker{
		api:     api,
		audit:   auditLog,
		archive: store,
		logger:  logging.GetLogger().With(zap.String("component", "ranker")),
		topN:    topN,
		limit:   limit,
		now:     time.Now,
	}
}

// WithClock overrides the time source, for tests
func (r *Ranker) WithClock(now func() time.Time) *Ranker {
	r.now = now
	return r
}

// Rank builds the ranked row set for a tenant across all its channels.
// A channel without posts is logged and skipped; an empty aggregate is
// fatal for the tenant.
func (r *Ranker) Rank(ctx context.Context, tenant models.Tenant, channels []models.Channel, lookbackDays int, run *models.RunRecord) ([]models.SuggestionRow, error) {
	ctx, span := telemetry.StartSpan(ctx, "pipeline.rank_posts")
	defer span.End()

	to := r.now()
	from := to.AddDate(0, 0, -lookbackDays)

	var result []models.SuggestionRow
	for _, ch := range channels {
		r.logger.Info("Ranking channel",
			zap.Int("tenant_id", tenant.ID), zap.String("channel", ch.Title))

		posts, err := r.api.ChannelPosts(ctx, ch.ID, from, to, r.limit)
		if err != nil {
			r.logger.Warn("Failed to fetch posts",
				zap.String("channel", ch.Title), zap.Error(err))
			r.audit.Log(ctx, tenant.ID, tenant.Name,
				fmt.Sprintf("Ошибка при получении постов канала %s: %v", ch.Title, err))
			continue
		}
		if len(posts) == 0 {
			r.audit.Log(ctx, tenant.ID, tenant.Name,
				fmt.Sprintf("Нет постов в канале %s за последние %d дней", ch.Title, lookbackDays))
			continue
		}

		scored := r.scoreChannel(ctx, ch, posts, run)
		if len(scored) > r.topN {
			scored = scored[:r.topN]
		}
		for _, post := range scored {
			result = append(result, models.SuggestionRow{Channel: ch, Post: post})
		}
	}

	if len(result) == 0 {
		return nil, ErrNoPosts
	}

	r.logger.Info("Posts ranked", zap.Int("tenant_id", tenant.ID), zap.Int("rows", len(result)))
	return result, nil
}

// scoreChannel filters one channel's posts, attaches engagement scores
// and returns them sorted by score descending. The sort is stable so
// equal scores keep fetch order.
func (r *Ranker) scoreChannel(ctx context.Context, ch models.Channel, posts []tgstat.Post, run *models.RunRecord) []models.Post {
	var scored []models.Post
	for _, post := range posts {
		if strings.TrimSpace(post.Text) == "" || post.Link == "" {
			continue
		}
		r.archive.SavePost(ctx, run, ch, post.Raw)

		stats, err := r.api.PostStats(ctx, post.Link)
		if err != nil || stats == nil {
			continue
		}
		r.archive.SaveStats(ctx, run, post.Link, stats.Raw)

		videoLink := ""
		if strings.HasSuffix(post.Media.FileURL, ".mp4") {
			videoLink = post.Media.FileURL
		}

		scored = append(scored, models.Post{
			Text:      post.Text,
			Link:      post.Link,
			Date:      time.Unix(post.Date, 0),
			VideoLink: videoLink,
			Views:     stats.Views,
			Reactions: stats.Reactions,
			Comments:  stats.Comments,
			Forwards:  stats.Forwards,
			Engagement: models.EngagementScore(
				stats.Views, stats.Reactions, stats.Comments, stats.Forwards),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Engagement > scored[j].Engagement
	})

	return scored
}

// Persist overwrites the suggestions sheet with the ranked rows under
// the 13-column base schema.
func (r *Ranker) Persist(ctx context.Context, ws sheets.Worksheet, rows []models.SuggestionRow) error {
	values := make([][]string, 0, len(rows))
	for _, row := range rows {
		values = append(values, baseValues(row))
	}
	if err := ws.Replace(ctx, BaseHeader, values); err != nil {
		return fmt.Errorf("failed to write suggestions sheet: %w", err)
	}
	return nil
}

// baseValues renders the 13 base columns of one suggestion row
func baseValues(row models.SuggestionRow) []string {
	post := row.Post
	return []string{
		row.Channel.Title,
		strconv.Itoa(row.Channel.Subscribers),
		post.Text,
		post.Link,
		post.VideoLink,
		post.Date.Format("02.01.2006"),
		post.Date.Format("15:04"),
		strconv.Itoa(utf8.RuneCountInString(post.Text)),
		strconv.Itoa(post.Views),
		strconv.Itoa(post.Reactions),
		strconv.Itoa(post.Comments),
		strconv.Itoa(post.Forwards),
		strconv.FormatFloat(post.Engagement, 'f', -1, 64),
	}
}
