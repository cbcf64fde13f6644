package models

import (
	"time"

	"gorm.io/datatypes"
)

// AuditRunLog records one batch-audit scan: when it ran, whether corrections
// were applied, and the structured summary (counts plus per-row detail).
type AuditRunLog struct {
	ID         string         `gorm:"column:id;type:uuid;primary_key" json:"id"`
	StartedAt  time.Time      `gorm:"column:started_at;not null" json:"started_at"`
	FinishedAt time.Time      `gorm:"column:finished_at" json:"finished_at"`
	Applied    bool           `gorm:"column:applied;not null;default:false" json:"applied"`
	Trigger    string         `gorm:"column:trigger;type:varchar(32)" json:"trigger"`
	Summary    datatypes.JSON `gorm:"column:summary;type:jsonb;default:'{}'" json:"summary"`
	CreatedAt  time.Time      `json:"created_at"`
}

func (AuditRunLog) TableName() string { return "audit_run_log" }
