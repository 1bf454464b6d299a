package pipeline

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/AzaliaAlisheva/TgChannelRec/internal/audit"
	"github.com/AzaliaAlisheva/TgChannelRec/internal/models"
	"github.com/AzaliaAlisheva/TgChannelRec/internal/sheets"
	"github.com/AzaliaAlisheva/TgChannelRec/internal/tgstat"
	"github.com/AzaliaAlisheva/TgChannelRec/pkg/logging"
	"github.com/AzaliaAlisheva/TgChannelRec/pkg/telemetry"
)

// Worksheet titles inside a tenant spreadsheet.
const (
	ProfileWorksheet     = "Профиль"
	ChannelsWorksheet    = "Каналы"
	SuggestionsWorksheet = "Рекомендации"
)

// ChannelAPI is the analytics surface the pipeline consumes;
// satisfied by *tgstat.Client.
type ChannelAPI interface {
	Channel(ctx context.Context, channelID string) (*tgstat.ChannelInfo, error)
	ChannelPosts(ctx context.Context, channelID string, from, to time.Time, limit int) ([]tgstat.Post, error)
	PostStats(ctx context.Context, postLink string) (*tgstat.PostStats, error)
}

var channelsHeader = []string{"Название канала", "link", "ID", "Количество подписчиков"}

// Resolver turns the raw channel links of a tenant into resolved channel
// records and rewrites the channels sheet with them.
type Resolver struct {
	api    ChannelAPI
	audit  *audit.Logger
	logger *zap.Logger
}

// NewResolver creates a channel resolver
func NewResolver(api ChannelAPI, auditLog *audit.Logger) *Resolver {
	return &Resolver{
		api:    api,
		audit:  auditLog,
		logger: logging.GetLogger().With(zap.String("component", "resolver")),
	}
}

// Resolve reads raw links from the channels sheet, resolves each against
// the analytics provider and overwrites the sheet with the results.
// A single unresolvable entry is logged and skipped; an empty result is
// fatal for the tenant.
func (r *Resolver) Resolve(ctx context.Context, tenant models.Tenant, ws sheets.Worksheet) ([]models.Channel, error) {
	ctx, span := telemetry.StartSpan(ctx, "pipeline.resolve_channels")
	defer span.End()

	rows, err := ws.Rows(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read channels sheet: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrNoChannels
	}

	schema, err := sheets.ResolveSchema(rows[0], "link")
	if err != nil {
		return nil, fmt.Errorf("channels sheet header: %w", err)
	}

	var links []string
	for _, row := range rows[1:] {
		if link := schema.Cell(row, "link"); link != "" {
			links = append(links, link)
		}
	}

	var channels []models.Channel
	for _, link := range links {
		info, err := r.api.Channel(ctx, link)
		if err != nil {
			r.logger.Warn("Failed to resolve channel",
				zap.String("link", link), zap.Error(err))
			r.audit.Log(ctx, tenant.ID, tenant.Name,
				fmt.Sprintf("Ошибка при обработке канала %s: %v", link, err))
			continue
		}

		canonical := link
		if info.Username != "" {
			canonical = "https://t.me/" + strings.TrimPrefix(info.Username, "@")
		}
		channels = append(channels, models.Channel{
			ID:          strconv.FormatInt(info.ID, 10),
			Title:       info.Title,
			Link:        canonical,
			Subscribers: info.Participants,
		})
	}

	if len(channels) == 0 {
		return nil, ErrNoChannels
	}

	values := make([][]string, 0, len(channels))
	for _, ch := range channels {
		values = append(values, []string{ch.Title, ch.Link, ch.ID, strconv.Itoa(ch.Subscribers)})
	}
	if err := ws.Replace(ctx, channelsHeader, values); err != nil {
		return nil, fmt.Errorf("failed to write channels sheet: %w", err)
	}

	r.logger.Info("Channels resolved",
		zap.Int("tenant_id", tenant.ID), zap.Int("channels", len(channels)))

	return channels, nil
}
