package ingest

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/fatflowers/subsync/internal/app/service/reconcile"
	stripeplat "github.com/fatflowers/subsync/internal/platform/stripe"
	"github.com/fatflowers/subsync/pkg/config"

	stripeapi "github.com/stripe/stripe-go/v83"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubRemote struct {
	subs map[string]*stripeplat.RemoteSubscription
	err  error
}

func (s *stubRemote) RetrieveSubscription(_ context.Context, id string) (*stripeplat.RemoteSubscription, error) {
	if s.err != nil {
		return nil, s.err
	}
	sub, ok := s.subs[id]
	if !ok {
		return nil, stripeplat.ErrNotFound
	}
	return sub, nil
}

func (s *stubRemote) RetrieveCustomer(_ context.Context, id string) (*stripeplat.RemoteCustomer, error) {
	return &stripeplat.RemoteCustomer{ID: id}, s.err
}

func (s *stubRemote) ListSubscriptionsForCustomer(context.Context, string) ([]*stripeplat.RemoteSubscription, error) {
	return nil, s.err
}

func parserService(remote stripeplat.RemoteSource) *Service {
	return &Service{
		cfg:    &config.Config{},
		remote: remote,
		log:    zap.NewNop().Sugar(),
	}
}

func makeEvent(t *testing.T, id, eventType string, created time.Time, payload string) *stripeapi.Event {
	t.Helper()
	return &stripeapi.Event{
		ID:      id,
		Type:    stripeapi.EventType(eventType),
		Created: created.Unix(),
		Data:    &stripeapi.EventData{Raw: json.RawMessage(payload)},
	}
}

func TestBuildObservation_UnknownEventIsIgnored(t *testing.T) {
	svc := parserService(&stubRemote{})
	event := makeEvent(t, "evt_1", "invoice.finalized", time.Now(), `{}`)

	obs, err := svc.buildObservation(context.Background(), event)
	require.NoError(t, err)
	require.Nil(t, obs)
}

func TestBuildObservation_SubscriptionUpdated(t *testing.T) {
	svc := parserService(&stubRemote{})
	created := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	payload := `{
		"id": "sub_1",
		"customer": "cus_1",
		"status": "active",
		"cancel_at_period_end": true,
		"metadata": {"user_id": "u1"},
		"items": {"data": [{
			"price": {"id": "price_monthly"},
			"current_period_start": 1767225600,
			"current_period_end": 1769904000
		}]}
	}`
	event := makeEvent(t, "evt_1", eventSubscriptionUpdated, created, payload)

	obs, err := svc.buildObservation(context.Background(), event)
	require.NoError(t, err)
	require.NotNil(t, obs)
	require.Equal(t, reconcile.ObservationSubscriptionSync, obs.Kind)
	require.Equal(t, "sub_1", obs.RemoteSubscriptionID)
	require.Equal(t, "cus_1", obs.RemoteCustomerID)
	require.Equal(t, "u1", obs.UserID)
	require.Equal(t, "price_monthly", obs.RemotePriceID)
	require.Equal(t, "active", obs.RemoteStatus)
	require.True(t, obs.CancelAtPeriodEnd)
	require.Equal(t, int64(1767225600), obs.CurrentPeriodStart.Unix())
	require.Equal(t, int64(1769904000), obs.CurrentPeriodEnd.Unix())
	require.Equal(t, created, obs.ObservedAt)
}

func TestBuildObservation_SubscriptionPeriodFallsBackToTopLevel(t *testing.T) {
	svc := parserService(&stubRemote{})
	payload := `{
		"id": "sub_1",
		"customer": "cus_1",
		"status": "active",
		"current_period_start": 1767225600,
		"current_period_end": 1769904000
	}`
	event := makeEvent(t, "evt_1", eventSubscriptionCreated, time.Now(), payload)

	obs, err := svc.buildObservation(context.Background(), event)
	require.NoError(t, err)
	require.NotNil(t, obs.CurrentPeriodStart)
	require.NotNil(t, obs.CurrentPeriodEnd)
	require.Equal(t, int64(1769904000), obs.CurrentPeriodEnd.Unix())
}

func TestBuildObservation_SubscriptionDeleted(t *testing.T) {
	svc := parserService(&stubRemote{})
	created := time.Date(2026, 6, 2, 9, 0, 0, 0, time.UTC)
	event := makeEvent(t, "evt_1", eventSubscriptionDeleted, created, `{"id":"sub_1","customer":"cus_1"}`)

	obs, err := svc.buildObservation(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, reconcile.ObservationSubscriptionDeleted, obs.Kind)
	require.Equal(t, "sub_1", obs.RemoteSubscriptionID)
	require.Equal(t, "cus_1", obs.RemoteCustomerID)
	require.Equal(t, created, obs.ObservedAt)
}

func TestBuildObservation_CheckoutResolvesSubscription(t *testing.T) {
	end := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	svc := parserService(&stubRemote{subs: map[string]*stripeplat.RemoteSubscription{
		"sub_1": {
			ID:               "sub_1",
			CustomerID:       "cus_1",
			PriceID:          "price_monthly",
			Status:           "active",
			CurrentPeriodEnd: &end,
		},
	}})
	payload := `{
		"id": "cs_1",
		"customer": "cus_1",
		"subscription": "sub_1",
		"metadata": {"user_id": "u1"}
	}`
	event := makeEvent(t, "evt_1", eventCheckoutCompleted, time.Now(), payload)

	obs, err := svc.buildObservation(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, reconcile.ObservationCheckoutCompleted, obs.Kind)
	require.Equal(t, "u1", obs.UserID)
	require.Equal(t, "sub_1", obs.RemoteSubscriptionID)
	require.Equal(t, "price_monthly", obs.RemotePriceID)
	require.Equal(t, "active", obs.RemoteStatus)
	require.Equal(t, end, *obs.CurrentPeriodEnd)
}

func TestBuildObservation_CheckoutUserIDFromClientReference(t *testing.T) {
	svc := parserService(&stubRemote{})
	payload := `{"id":"cs_1","customer":"cus_1","client_reference_id":"u9"}`
	event := makeEvent(t, "evt_1", eventCheckoutCompleted, time.Now(), payload)

	obs, err := svc.buildObservation(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, "u9", obs.UserID)
	// Payment-mode checkout: placeholder until the payment event lands.
	require.Equal(t, "incomplete", obs.RemoteStatus)
}

func TestBuildObservation_CheckoutWithoutUserIDIsMalformed(t *testing.T) {
	svc := parserService(&stubRemote{})
	event := makeEvent(t, "evt_1", eventCheckoutCompleted, time.Now(), `{"id":"cs_1","customer":"cus_1"}`)

	_, err := svc.buildObservation(context.Background(), event)
	require.ErrorIs(t, err, ErrMalformedPayload)
}

func TestBuildObservation_CheckoutTransientLookupIsRetryable(t *testing.T) {
	svc := parserService(&stubRemote{err: context.DeadlineExceeded})
	payload := `{"id":"cs_1","customer":"cus_1","subscription":"sub_1","metadata":{"user_id":"u1"}}`
	event := makeEvent(t, "evt_1", eventCheckoutCompleted, time.Now(), payload)

	_, err := svc.buildObservation(context.Background(), event)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrMalformedPayload)
}

func TestBuildObservation_PaymentSucceeded(t *testing.T) {
	svc := parserService(&stubRemote{})
	event := makeEvent(t, "evt_1", eventPaymentSucceeded, time.Now(), `{"id":"pi_1","customer":"cus_1"}`)

	obs, err := svc.buildObservation(context.Background(), event)
	require.NoError(t, err)
	require.Equal(t, reconcile.ObservationPaymentSucceeded, obs.Kind)
	require.Equal(t, "cus_1", obs.RemoteCustomerID)
}

func TestBuildObservation_AnonymousPaymentIsIgnored(t *testing.T) {
	svc := parserService(&stubRemote{})
	event := makeEvent(t, "evt_1", eventPaymentSucceeded, time.Now(), `{"id":"pi_1"}`)

	obs, err := svc.buildObservation(context.Background(), event)
	require.NoError(t, err)
	require.Nil(t, obs)
}
