package types

import "time"

// SubscriptionStatus mirrors the Stripe subscription lifecycle. The local row
// is a projection of the latest known remote status; the service never expires
// subscriptions on its own.
type SubscriptionStatus string

const (
	SubscriptionStatusIncomplete        SubscriptionStatus = "incomplete"
	SubscriptionStatusIncompleteExpired SubscriptionStatus = "incomplete_expired"
	SubscriptionStatusActive            SubscriptionStatus = "active"
	SubscriptionStatusTrialing          SubscriptionStatus = "trialing"
	SubscriptionStatusPastDue           SubscriptionStatus = "past_due"
	SubscriptionStatusUnpaid            SubscriptionStatus = "unpaid"
	SubscriptionStatusCanceled          SubscriptionStatus = "canceled"
)

var knownStatuses = map[SubscriptionStatus]struct{}{
	SubscriptionStatusIncomplete:        {},
	SubscriptionStatusIncompleteExpired: {},
	SubscriptionStatusActive:            {},
	SubscriptionStatusTrialing:          {},
	SubscriptionStatusPastDue:           {},
	SubscriptionStatusUnpaid:            {},
	SubscriptionStatusCanceled:          {},
}

// Known reports whether s is part of the mirrored lifecycle enum.
func (s SubscriptionStatus) Known() bool {
	_, ok := knownStatuses[s]
	return ok
}

// Entitled reports whether s grants access to paid features. Any status
// outside {active, trialing}, including unrecognized ones, is not entitled.
func (s SubscriptionStatus) Entitled() bool {
	return s == SubscriptionStatusActive || s == SubscriptionStatusTrialing
}

// EntitledStatuses is the status set scanned by the batch auditor.
var EntitledStatuses = []SubscriptionStatus{
	SubscriptionStatusActive,
	SubscriptionStatusTrialing,
}

// PlanKind classifies the purchased product. The free tier has no row at all,
// so there is no explicit "free" kind.
type PlanKind string

const (
	PlanKindMonthly  PlanKind = "monthly"
	PlanKindAnnual   PlanKind = "annual"
	PlanKindLifetime PlanKind = "lifetime"
)

// LifetimeExpiry is the far-future sentinel stored as current_period_end for
// lifetime purchases, which have no recurring billing object behind them.
var LifetimeExpiry = time.Date(2099, time.December, 31, 23, 59, 59, 0, time.UTC)

// SubscriptionChangeReason labels subscription_log rows.
type SubscriptionChangeReason string

const (
	SubscriptionChangeReasonCheckout        SubscriptionChangeReason = "checkout"
	SubscriptionChangeReasonWebhook         SubscriptionChangeReason = "webhook"
	SubscriptionChangeReasonLifetimeGrant   SubscriptionChangeReason = "lifetimeGrant"
	SubscriptionChangeReasonAuditCorrection SubscriptionChangeReason = "auditCorrection"
)
