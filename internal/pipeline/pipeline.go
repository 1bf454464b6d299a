// Package pipeline implements one tenant run: resolving channels,
// ranking recent posts by engagement and enriching the top rows with
// AI-generated suggestions.
package pipeline

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/AzaliaAlisheva/TgChannelRec/internal/models"
	"github.com/AzaliaAlisheva/TgChannelRec/internal/sheets"
	"github.com/AzaliaAlisheva/TgChannelRec/pkg/logging"
	"github.com/AzaliaAlisheva/TgChannelRec/pkg/telemetry"
)

// Pipeline ties the three stages together over a tenant spreadsheet.
type Pipeline struct {
	resolver *Resolver
	ranker   *Ranker
	enricher *Enricher
	logger   *zap.Logger
}

// New creates a tenant pipeline
func New(resolver *Resolver, ranker *Ranker, enricher *Enricher) *Pipeline {
	return &Pipeline{
		resolver: resolver,
		ranker:   ranker,
		enricher: enricher,
		logger:   logging.GetLogger().With(zap.String("component", "pipeline")),
	}
}

// Run executes the full run for one tenant. The tenant context comes
// from the first cell of the profile worksheet; the channels and
// suggestions worksheets are created when missing.
func (p *Pipeline) Run(ctx context.Context, tenant models.Tenant, ss sheets.Spreadsheet, lookbackDays int, run *models.RunRecord) error {
	ctx, span := telemetry.StartSpan(ctx, "pipeline.run")
	defer span.End()

	profile, err := ss.Worksheet(ctx, ProfileWorksheet)
	if err != nil {
		return fmt.Errorf("failed to open profile worksheet: %w", err)
	}
	tenantContext, err := profileContext(ctx, profile)
	if err != nil {
		return err
	}

	channelsWS, err := ss.EnsureWorksheet(ctx, ChannelsWorksheet, 100, len(channelsHeader))
	if err != nil {
		return fmt.Errorf("failed to open channels worksheet: %w", err)
	}
	suggestionsWS, err := ss.EnsureWorksheet(ctx, SuggestionsWorksheet, 100, len(BaseHeader)+len(EnrichHeader))
	if err != nil {
		return fmt.Errorf("failed to open suggestions worksheet: %w", err)
	}

	channels, err := p.resolver.Resolve(ctx, tenant, channelsWS)
	if err != nil {
		return err
	}

	rows, err := p.ranker.Rank(ctx, tenant, channels, lookbackDays, run)
	if err != nil {
		return err
	}

	if err := p.ranker.Persist(ctx, suggestionsWS, rows); err != nil {
		return err
	}

	p.logger.Info("Base rows persisted",
		zap.Int("tenant_id", tenant.ID), zap.Int("rows", len(rows)))

	return p.enricher.Enrich(ctx, tenant, tenantContext, suggestionsWS, rows)
}

// profileContext reads the tenant description from cell (1,1) of the
// profile worksheet.
func profileContext(ctx context.Context, ws sheets.Worksheet) (string, error) {
	rows, err := ws.Rows(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to read profile worksheet: %w", err)
	}
	if len(rows) == 0 || len(rows[0]) == 0 || strings.TrimSpace(rows[0][0]) == "" {
		return "", ErrEmptyContext
	}
	return strings.TrimSpace(rows[0][0]), nil
}
