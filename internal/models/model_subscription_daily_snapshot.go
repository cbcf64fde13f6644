package models

import (
	"time"

	"gorm.io/datatypes"
)

// SubscriptionDailySnapshot is a daily rollup of subscription status counts
// for analytics. One row per day.
type SubscriptionDailySnapshot struct {
	ID           string `gorm:"column:id;type:uuid;primary_key" json:"id"`
	SnapshotDate string `gorm:"column:snapshot_date;uniqueIndex" json:"snapshot_date"`
	// Data maps status name to row count, plus an "entitled" total.
	Data      datatypes.JSONMap `gorm:"column:data;type:jsonb;default:'{}'" json:"data"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

func (SubscriptionDailySnapshot) TableName() string {
	return "subscription_daily_snapshot"
}
