package statistics

import (
	"context"
	"fmt"
	"time"

	"github.com/fatflowers/subsync/internal/models"
	"github.com/fatflowers/subsync/pkg/tool"
	"github.com/fatflowers/subsync/pkg/types"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StatusCounts is the on-demand rollup served to admins and snapshotted daily.
type StatusCounts struct {
	ByStatus map[string]int64 `json:"by_status"`
	Entitled int64            `json:"entitled"`
	Total    int64            `json:"total"`
}

type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func NewService(db *gorm.DB, log *zap.SugaredLogger) *Service {
	return &Service{db: db, log: log}
}

// CurrentCounts computes subscription row counts grouped by status.
func (s *Service) CurrentCounts(ctx context.Context) (*StatusCounts, error) {
	type bucket struct {
		Status string
		Count  int64
	}
	var buckets []bucket
	if err := s.db.WithContext(ctx).Model(&models.Subscription{}).
		Select("status, count(*) as count").Group("status").Scan(&buckets).Error; err != nil {
		return nil, fmt.Errorf("failed to count subscriptions by status: %w", err)
	}

	out := &StatusCounts{ByStatus: map[string]int64{}}
	for _, b := range buckets {
		out.ByStatus[b.Status] = b.Count
		out.Total += b.Count
		if types.SubscriptionStatus(b.Status).Entitled() {
			out.Entitled += b.Count
		}
	}
	return out, nil
}

// SnapshotToday upserts today's rollup row; repeated calls on the same day
// overwrite it.
func (s *Service) SnapshotToday(ctx context.Context) error {
	counts, err := s.CurrentCounts(ctx)
	if err != nil {
		return err
	}

	data := datatypes.JSONMap{"entitled": counts.Entitled, "total": counts.Total}
	for status, n := range counts.ByStatus {
		data[status] = n
	}

	snap := &models.SubscriptionDailySnapshot{
		ID:           tool.GenerateUUIDV7(),
		SnapshotDate: time.Now().UTC().Format("2006-01-02"),
		Data:         data,
	}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "snapshot_date"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
	}).Create(snap).Error; err != nil {
		return fmt.Errorf("failed to save daily snapshot: %w", err)
	}
	return nil
}

// Module exposes the statistics service via Fx.
var Module = fx.Options(
	fx.Provide(NewService),
	fx.Invoke(runSnapshotter),
)
