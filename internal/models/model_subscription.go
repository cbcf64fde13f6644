package models

import (
	"time"

	"github.com/fatflowers/subsync/pkg/types"

	"gorm.io/datatypes"
)

// Subscription mirrors one user's billing state at Stripe. At most one row
// exists per user; no row at all means the free tier. The row is never
// deleted; cancellation is a status transition.
type Subscription struct {
	ID     string `gorm:"column:id;type:uuid;primary_key" json:"id"`
	UserID string `gorm:"column:user_id;type:varchar(64);not null;uniqueIndex" json:"user_id"`
	// RemoteCustomerID is set once a Stripe customer exists for this user and
	// is never reused across users.
	RemoteCustomerID string `gorm:"column:remote_customer_id;type:varchar(64);index" json:"remote_customer_id"`
	// RemoteSubscriptionID is empty for lifetime purchases, which are backed
	// by a payment object rather than a recurring-billing object.
	RemoteSubscriptionID string                   `gorm:"column:remote_subscription_id;type:varchar(64)" json:"remote_subscription_id"`
	RemotePriceID        string                   `gorm:"column:remote_price_id;type:varchar(64)" json:"remote_price_id"`
	PlanKind             types.PlanKind           `gorm:"column:plan_kind;type:varchar(32)" json:"plan_kind"`
	Status               types.SubscriptionStatus `gorm:"column:status;type:varchar(32);not null" json:"status"`
	CurrentPeriodStart   *time.Time               `gorm:"column:current_period_start;default:null" json:"current_period_start"`
	CurrentPeriodEnd     *time.Time               `gorm:"column:current_period_end;default:null" json:"current_period_end"`
	CancelAtPeriodEnd    bool                     `gorm:"column:cancel_at_period_end;not null;default:false" json:"cancel_at_period_end"`
	CanceledAt           *time.Time               `gorm:"column:canceled_at;default:null" json:"canceled_at"`
	// Extra stores additional JSON data (for example the originating event id).
	Extra datatypes.JSON `gorm:"column:extra;type:jsonb;default:'{}'" json:"extra"`
	// CreatedAt is managed by GORM and records the creation time.
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt records the last reconciliation write; it is observability
	// data only and takes no part in conflict resolution.
	UpdatedAt time.Time `json:"updated_at"`
}

func (Subscription) TableName() string {
	return "subscription"
}

// Entitled reports whether this row grants paid-feature access.
func (s *Subscription) Entitled() bool {
	return s != nil && s.Status.Entitled()
}

// MissingBackingObject reports the invariant violation where a non-lifetime
// row claims entitlement without a remote subscription behind it.
func (s *Subscription) MissingBackingObject() bool {
	return s != nil && s.RemoteSubscriptionID == "" && s.PlanKind != types.PlanKindLifetime
}
