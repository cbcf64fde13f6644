package stripe

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound reports that the remote object no longer exists. Callers must
// never conflate it with transient failures: not-found drives corrective
// writes, everything else is inconclusive.
var ErrNotFound = errors.New("stripe: object not found")

// RemoteSubscription is the normalized view of a provider subscription used
// by the reconciliation engine.
type RemoteSubscription struct {
	ID                 string
	CustomerID         string
	PriceID            string
	Status             string
	CurrentPeriodStart *time.Time
	CurrentPeriodEnd   *time.Time
	CancelAtPeriodEnd  bool
	CanceledAt         *time.Time
}

// RemoteCustomer is the normalized view of a provider customer.
type RemoteCustomer struct {
	ID       string
	Email    string
	Metadata map[string]string
}

// RemoteSource is the read-only surface of the payments provider. The local
// store mirrors it; it is the sole source of truth for subscription state.
type RemoteSource interface {
	RetrieveSubscription(ctx context.Context, subscriptionID string) (*RemoteSubscription, error)
	RetrieveCustomer(ctx context.Context, customerID string) (*RemoteCustomer, error)
	ListSubscriptionsForCustomer(ctx context.Context, customerID string) ([]*RemoteSubscription, error)
}
