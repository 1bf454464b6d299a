package archive

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/AzaliaAlisheva/TgChannelRec/internal/models"
	"github.com/AzaliaAlisheva/TgChannelRec/pkg/logging"
)

// Store writes run records and raw snapshots. Archive failures are
// logged and swallowed: history must never break a run.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewStore creates a snapshot store; returns nil when db is nil
func NewStore(db *gorm.DB) *Store {
	if db == nil {
		return nil
	}
	return &Store{
		db:     db,
		logger: logging.GetLogger().With(zap.String("component", "archive")),
	}
}

// StartRun records the beginning of one tenant pipeline invocation
func (s *Store) StartRun(ctx context.Context, tenant models.Tenant) *models.RunRecord {
	if s == nil {
		return nil
	}
	run := &models.RunRecord{
		TenantID:   tenant.ID,
		TenantName: tenant.Name,
		StartedAt:  time.Now().UTC(),
		Status:     "running",
	}
	if err := s.db.WithContext(ctx).Create(run).Error; err != nil {
		s.logger.Error("Failed to record run start", zap.Error(err))
		return nil
	}
	return run
}

// FinishRun records the terminal status of a run
func (s *Store) FinishRun(ctx context.Context, run *models.RunRecord, status string) {
	if s == nil || run == nil {
		return
	}
	run.Status = status
	run.FinishedAt = sql.NullTime{Time: time.Now().UTC(), Valid: true}
	if err := s.db.WithContext(ctx).Save(run).Error; err != nil {
		s.logger.Error("Failed to record run finish", zap.Error(err))
	}
}

// SavePost archives the raw payload of one fetched post
func (s *Store) SavePost(ctx context.Context, run *models.RunRecord, channel models.Channel, payload []byte) {
	if s == nil || run == nil || len(payload) == 0 {
		return
	}
	snapshot := &models.PostSnapshot{
		RunID:       run.ID,
		ChannelID:   channel.ID,
		ChannelName: channel.Title,
		Payload:     string(payload),
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(snapshot).Error; err != nil {
		s.logger.Error("Failed to archive post snapshot", zap.Error(err))
	}
}

// SaveStats archives the raw engagement counters of one post
func (s *Store) SaveStats(ctx context.Context, run *models.RunRecord, postLink string, payload []byte) {
	if s == nil || run == nil || len(payload) == 0 {
		return
	}
	snapshot := &models.StatSnapshot{
		RunID:     run.ID,
		PostLink:  postLink,
		Payload:   string(payload),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(snapshot).Error; err != nil {
		s.logger.Error("Failed to archive stat snapshot", zap.Error(err))
	}
}
