package store

import (
	"context"
	"errors"

	"github.com/fatflowers/subsync/internal/models"
	"github.com/fatflowers/subsync/pkg/types"
)

// ErrNotFound reports that no subscription row exists. Absence is meaningful:
// no row means the free tier.
var ErrNotFound = errors.New("store: subscription not found")

// UpsertFields carries the mirrored fields written on every reconciliation.
// The write is a full overwrite of the mirror: the provider owns these
// fields, so there is no field-by-field merge.
type UpsertFields struct {
	Subscription *models.Subscription
	Reason       types.SubscriptionChangeReason
	// Extra is attached to the change-log row (audit reason codes, event ids).
	Extra map[string]any
}

// Store is the local subscription mirror. It is the single point of mutation;
// concurrent writes to the same user serialize on the row-level upsert.
type Store interface {
	GetByUserID(ctx context.Context, userID string) (*models.Subscription, error)
	GetByRemoteCustomerID(ctx context.Context, customerID string) (*models.Subscription, error)
	// UpsertByUserID is an atomic create-or-overwrite keyed on user_id.
	UpsertByUserID(ctx context.Context, fields UpsertFields) (*models.Subscription, error)
	ListByStatus(ctx context.Context, statuses []types.SubscriptionStatus) ([]*models.Subscription, error)
}
