package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/fatflowers/subsync/internal/models"
	"github.com/fatflowers/subsync/pkg/logctx"
	"github.com/fatflowers/subsync/pkg/tool"
	"github.com/fatflowers/subsync/pkg/types"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type gormStore struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func NewGormStore(db *gorm.DB, log *zap.SugaredLogger) Store {
	return &gormStore{db: db, log: log}
}

func (s *gormStore) GetByUserID(ctx context.Context, userID string) (*models.Subscription, error) {
	var sub models.Subscription
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get subscription by user_id: %w", err)
	}
	return &sub, nil
}

func (s *gormStore) GetByRemoteCustomerID(ctx context.Context, customerID string) (*models.Subscription, error) {
	var sub models.Subscription
	if err := s.db.WithContext(ctx).Where("remote_customer_id = ?", customerID).First(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get subscription by remote_customer_id: %w", err)
	}
	return &sub, nil
}

// UpsertByUserID overwrites the mirrored columns via a single
// INSERT ... ON CONFLICT (user_id) DO UPDATE. The row-level conflict target is
// the only serialization point for concurrent reconciliations of one user.
func (s *gormStore) UpsertByUserID(ctx context.Context, fields UpsertFields) (*models.Subscription, error) {
	m := fields.Subscription
	if m == nil || m.UserID == "" {
		return nil, fmt.Errorf("invalid upsert: missing subscription or user_id")
	}
	if m.ID == "" {
		m.ID = tool.GenerateUUIDV7()
	}

	// Snapshot for the change log; best-effort, not part of the atomic write.
	before, err := s.GetByUserID(ctx, m.UserID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"remote_customer_id",
			"remote_subscription_id",
			"remote_price_id",
			"plan_kind",
			"status",
			"current_period_start",
			"current_period_end",
			"cancel_at_period_end",
			"canceled_at",
			"extra",
			"updated_at",
		}),
	}).Create(m).Error
	if err != nil {
		return nil, fmt.Errorf("failed to upsert subscription: %w", err)
	}

	stored, err := s.GetByUserID(ctx, m.UserID)
	if err != nil {
		return nil, err
	}

	// Write change log asynchronously; errors are logged but not returned.
	go func(before, after *models.Subscription) {
		extra := datatypes.JSONMap{}
		for k, v := range fields.Extra {
			extra[k] = v
		}
		l := &models.SubscriptionLog{
			ID:     tool.GenerateUUIDV7(),
			UserID: after.UserID,
			Reason: fields.Reason,
			Before: datatypes.NewJSONType(before),
			After:  datatypes.NewJSONType(after),
			Extra:  extra,
		}
		if err := s.db.Save(l).Error; err != nil {
			logctx.FromCtx(ctx, s.log).Errorf("failed to save subscription log: %v", err)
		}
	}(before, stored)

	return stored, nil
}

func (s *gormStore) ListByStatus(ctx context.Context, statuses []types.SubscriptionStatus) ([]*models.Subscription, error) {
	var subs []*models.Subscription
	if err := s.db.WithContext(ctx).Where("status IN ?", statuses).Order("user_id").Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("failed to list subscriptions by status: %w", err)
	}
	return subs, nil
}
