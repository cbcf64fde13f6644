package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fatflowers/subsync/internal/app/service/reconcile"
	stripeplat "github.com/fatflowers/subsync/internal/platform/stripe"
	"github.com/fatflowers/subsync/pkg/types"

	stripeapi "github.com/stripe/stripe-go/v83"
)

// ErrMalformedPayload rejects a verified but undecodable event body.
var ErrMalformedPayload = errors.New("ingest: malformed event payload")

// Event kinds dispatched to the engine. Anything else is acknowledged and
// dropped: provider catalogs grow, and an unknown-but-harmless event must not
// cause delivery retries.
const (
	eventCheckoutCompleted   = "checkout.session.completed"
	eventSubscriptionCreated = "customer.subscription.created"
	eventSubscriptionUpdated = "customer.subscription.updated"
	eventSubscriptionDeleted = "customer.subscription.deleted"
	eventPaymentSucceeded    = "payment_intent.succeeded"
)

// buildObservation decodes a verified event into the engine's typed
// observation. A nil observation with nil error means "acknowledge, no-op".
// Checkout sessions in subscription mode resolve the full subscription via
// the remote source; a transient failure there is returned as-is so the
// provider redelivers.
func (s *Service) buildObservation(ctx context.Context, event *stripeapi.Event) (*reconcile.Observation, error) {
	observedAt := time.Unix(event.Created, 0).UTC()

	switch string(event.Type) {
	case eventCheckoutCompleted:
		return s.observeCheckout(ctx, event, observedAt)

	case eventSubscriptionCreated, eventSubscriptionUpdated:
		obs, err := observeSubscription(event)
		if err != nil {
			return nil, err
		}
		obs.ObservedAt = observedAt
		return obs, nil

	case eventSubscriptionDeleted:
		var sub stripeapi.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		obs := &reconcile.Observation{
			Kind:                 reconcile.ObservationSubscriptionDeleted,
			RemoteSubscriptionID: sub.ID,
			ObservedAt:           observedAt,
			EventID:              event.ID,
		}
		if sub.Customer != nil {
			obs.RemoteCustomerID = sub.Customer.ID
		}
		return obs, nil

	case eventPaymentSucceeded:
		var pi stripeapi.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		if pi.Customer == nil || pi.Customer.ID == "" {
			// Anonymous one-time payment; nothing to reconcile.
			return nil, nil
		}
		return &reconcile.Observation{
			Kind:             reconcile.ObservationPaymentSucceeded,
			RemoteCustomerID: pi.Customer.ID,
			ObservedAt:       observedAt,
			EventID:          event.ID,
		}, nil
	}

	return nil, nil
}

func (s *Service) observeCheckout(ctx context.Context, event *stripeapi.Event, observedAt time.Time) (*reconcile.Observation, error) {
	var session stripeapi.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	userID := ""
	if session.Metadata != nil {
		userID = session.Metadata["user_id"]
	}
	if userID == "" && session.ClientReferenceID != "" {
		userID = session.ClientReferenceID
	}
	if userID == "" {
		return nil, fmt.Errorf("%w: checkout session %s carries no user id", ErrMalformedPayload, session.ID)
	}

	obs := &reconcile.Observation{
		Kind:       reconcile.ObservationCheckoutCompleted,
		UserID:     userID,
		ObservedAt: observedAt,
		EventID:    event.ID,
	}
	if session.Customer != nil {
		obs.RemoteCustomerID = session.Customer.ID
	}

	if session.Subscription == nil || session.Subscription.ID == "" {
		// Payment-mode checkout (lifetime purchase). The placeholder row is
		// created as incomplete; the payment event activates it.
		obs.RemoteStatus = string(types.SubscriptionStatusIncomplete)
		return obs, nil
	}

	// The session object embeds only the subscription id; resolve the full
	// state so the row starts consistent instead of waiting for the
	// subscription.created delivery.
	remote, err := s.remote.RetrieveSubscription(ctx, session.Subscription.ID)
	if err != nil {
		if errors.Is(err, stripeplat.ErrNotFound) {
			obs.RemoteSubscriptionID = session.Subscription.ID
			obs.RemoteStatus = string(types.SubscriptionStatusIncomplete)
			return obs, nil
		}
		return nil, fmt.Errorf("failed to resolve checkout subscription: %w", err)
	}

	obs.RemoteSubscriptionID = remote.ID
	obs.RemotePriceID = remote.PriceID
	obs.RemoteStatus = remote.Status
	obs.CurrentPeriodStart = remote.CurrentPeriodStart
	obs.CurrentPeriodEnd = remote.CurrentPeriodEnd
	obs.CancelAtPeriodEnd = remote.CancelAtPeriodEnd
	obs.CanceledAt = remote.CanceledAt
	if obs.RemoteCustomerID == "" {
		obs.RemoteCustomerID = remote.CustomerID
	}
	return obs, nil
}

// observeSubscription normalizes an embedded subscription object. Period
// bounds moved from the subscription to its items across API versions, so the
// raw payload is consulted when the typed struct has nothing.
func observeSubscription(event *stripeapi.Event) (*reconcile.Observation, error) {
	var sub stripeapi.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	obs := &reconcile.Observation{
		Kind:                 reconcile.ObservationSubscriptionSync,
		RemoteSubscriptionID: sub.ID,
		RemoteStatus:         string(sub.Status),
		CancelAtPeriodEnd:    sub.CancelAtPeriodEnd,
		EventID:              event.ID,
	}
	if sub.Customer != nil {
		obs.RemoteCustomerID = sub.Customer.ID
	}
	if sub.Metadata != nil {
		obs.UserID = sub.Metadata["user_id"]
	}
	if sub.CanceledAt > 0 {
		t := time.Unix(sub.CanceledAt, 0).UTC()
		obs.CanceledAt = &t
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 {
		item := sub.Items.Data[0]
		if item.Price != nil {
			obs.RemotePriceID = item.Price.ID
		}
		if item.CurrentPeriodStart > 0 {
			t := time.Unix(item.CurrentPeriodStart, 0).UTC()
			obs.CurrentPeriodStart = &t
		}
		if item.CurrentPeriodEnd > 0 {
			t := time.Unix(item.CurrentPeriodEnd, 0).UTC()
			obs.CurrentPeriodEnd = &t
		}
	}

	// Older API payloads carry the bounds on the subscription itself.
	if obs.CurrentPeriodStart == nil || obs.CurrentPeriodEnd == nil {
		var raw struct {
			CurrentPeriodStart int64 `json:"current_period_start"`
			CurrentPeriodEnd   int64 `json:"current_period_end"`
		}
		if err := json.Unmarshal(event.Data.Raw, &raw); err == nil {
			if obs.CurrentPeriodStart == nil && raw.CurrentPeriodStart > 0 {
				t := time.Unix(raw.CurrentPeriodStart, 0).UTC()
				obs.CurrentPeriodStart = &t
			}
			if obs.CurrentPeriodEnd == nil && raw.CurrentPeriodEnd > 0 {
				t := time.Unix(raw.CurrentPeriodEnd, 0).UTC()
				obs.CurrentPeriodEnd = &t
			}
		}
	}

	return obs, nil
}
