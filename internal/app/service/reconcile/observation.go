package reconcile

import (
	"time"

	"github.com/fatflowers/subsync/pkg/types"
)

// ObservationKind tags a normalized remote observation. Payloads are decoded
// at the ingestion boundary; the engine never sees a loosely-typed envelope.
type ObservationKind string

const (
	// ObservationCheckoutCompleted is the only kind allowed to create a row.
	// It carries the local user id in side-channel metadata.
	ObservationCheckoutCompleted ObservationKind = "checkout_completed"
	// ObservationSubscriptionSync covers subscription created/updated events
	// and direct API lookups; both report the full remote subscription state.
	ObservationSubscriptionSync    ObservationKind = "subscription_sync"
	ObservationSubscriptionDeleted ObservationKind = "subscription_deleted"
	// ObservationPaymentSucceeded is a one-time payment (lifetime purchase).
	ObservationPaymentSucceeded ObservationKind = "payment_succeeded"
)

// Observation is the engine's input: the authoritative remote state as seen
// by a webhook event or a direct lookup.
type Observation struct {
	Kind                 ObservationKind
	UserID               string
	RemoteCustomerID     string
	RemoteSubscriptionID string
	RemotePriceID        string
	RemoteStatus         string
	CurrentPeriodStart   *time.Time
	CurrentPeriodEnd     *time.Time
	CancelAtPeriodEnd    bool
	CanceledAt           *time.Time
	// ObservedAt stamps forced transitions (e.g. canceled_at on deletion).
	ObservedAt time.Time
	// EventID is attached to change logs for traceability.
	EventID string
}

// mapRemoteStatus projects a provider status onto the local enum. Statuses
// outside the known set map to canceled; the provider's catalog can grow and
// an unknown status must never read as entitled.
func mapRemoteStatus(remote string) types.SubscriptionStatus {
	s := types.SubscriptionStatus(remote)
	if s.Known() {
		return s
	}
	return types.SubscriptionStatusCanceled
}
