package store

import (
	"context"
	"fmt"

	"github.com/fatflowers/subsync/internal/models"
	"github.com/fatflowers/subsync/pkg/types"

	"gorm.io/gorm/clause"
)

// Scan request/response used by admin list pages.
type ScanSubscriptionsRequest struct {
	Filters   []*types.CommonFilter `json:"filters"`
	From      int                   `json:"from"`
	Size      int                   `json:"size"`
	SortBy    string                `json:"sort_by"`
	SortOrder string                `json:"sort_order"`
}

type ScanSubscriptionsResponse struct {
	Items []*models.Subscription `json:"items"`
	Total int64                  `json:"total"`
}

// filtersAnd combines multiple CommonFilter into a single clause.Expression
type filtersAnd struct{ filters []*types.CommonFilter }

func (w filtersAnd) Build(builder clause.Builder) {
	if len(w.filters) == 0 {
		builder.WriteString("1=1")
		return
	}
	exprs := make([]clause.Expression, 0, len(w.filters))
	for _, f := range w.filters {
		exprs = append(exprs, f)
	}
	clause.And(exprs...).Build(builder)
}

var scanSortColumns = map[string]bool{
	"user_id":    true,
	"status":     true,
	"plan_kind":  true,
	"updated_at": true,
	"created_at": true,
}

// ScanSubscriptions implements paginated admin listing with filters.
func (s *gormStore) ScanSubscriptions(ctx context.Context, req *ScanSubscriptionsRequest) (*ScanSubscriptionsResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("nil request")
	}
	if req.Size <= 0 {
		req.Size = 100
	}
	if req.From < 0 {
		req.From = 0
	}
	sortBy := req.SortBy
	if !scanSortColumns[sortBy] {
		sortBy = "updated_at"
	}
	order := "desc"
	if req.SortOrder == "asc" {
		order = "asc"
	}

	q := s.db.WithContext(ctx).Model(&models.Subscription{}).
		Clauses(clause.Where{Exprs: []clause.Expression{filtersAnd{filters: req.Filters}}})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count subscriptions: %w", err)
	}

	var items []*models.Subscription
	if err := q.Order(sortBy + " " + order).Offset(req.From).Limit(req.Size).Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to scan subscriptions: %w", err)
	}

	return &ScanSubscriptionsResponse{Items: items, Total: total}, nil
}

// Scanner is the admin listing surface, implemented by the GORM store.
type Scanner interface {
	ScanSubscriptions(ctx context.Context, req *ScanSubscriptionsRequest) (*ScanSubscriptionsResponse, error)
}
