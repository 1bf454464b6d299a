package models

import (
	"database/sql"
	"time"
)

// RunRecord tracks one tenant pipeline invocation in the snapshot archive.
type RunRecord struct {
	ID         uint         `gorm:"primaryKey;autoIncrement;column:id"`
	TenantID   int          `gorm:"not null;column:tenant_id"`
	TenantName string       `gorm:"type:varchar(255);column:tenant_name"`
	StartedAt  time.Time    `gorm:"not null;column:started_at"`
	FinishedAt sql.NullTime `gorm:"column:finished_at"`
	Status     string       `gorm:"type:varchar(32);column:status"`
}

// TableName specifies the table name for RunRecord
func (RunRecord) TableName() string {
	return "tgrec_runs"
}

// PostSnapshot stores the raw provider payload of one fetched post.
type PostSnapshot struct {
	ID          uint      `gorm:"primaryKey;autoIncrement;column:id"`
	RunID       uint      `gorm:"not null;index;column:run_id"`
	ChannelID   string    `gorm:"type:varchar(255);column:channel_id"`
	ChannelName string    `gorm:"type:varchar(255);column:channel_name"`
	Payload     string    `gorm:"type:jsonb;column:payload"`
	CreatedAt   time.Time `gorm:"not null;column:created_at"`
}

// TableName specifies the table name for PostSnapshot
func (PostSnapshot) TableName() string {
	return "tgrec_post_snapshots"
}

// StatSnapshot stores the raw engagement counters of one post.
type StatSnapshot struct {
	ID        uint      `gorm:"primaryKey;autoIncrement;column:id"`
	RunID     uint      `gorm:"not null;index;column:run_id"`
	PostLink  string    `gorm:"type:varchar(512);column:post_link"`
	Payload   string    `gorm:"type:jsonb;column:payload"`
	CreatedAt time.Time `gorm:"not null;column:created_at"`
}

// TableName specifies the table name for StatSnapshot
func (StatSnapshot) TableName() string {
	return "tgrec_stat_snapshots"
}
