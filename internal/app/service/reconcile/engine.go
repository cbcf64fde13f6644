package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/fatflowers/subsync/internal/app/service/store"
	stripeplat "github.com/fatflowers/subsync/internal/platform/stripe"
	"github.com/fatflowers/subsync/internal/models"
	"github.com/fatflowers/subsync/pkg/config"
	"github.com/fatflowers/subsync/pkg/logctx"
	"github.com/fatflowers/subsync/pkg/types"

	"go.uber.org/zap"
)

// Service projects remote subscription state onto the local mirror. It holds
// no state of its own; every operation is a self-contained unit safe to run
// concurrently with others.
type Service struct {
	cfg    *config.Config
	store  store.Store
	remote stripeplat.RemoteSource
	log    *zap.SugaredLogger
}

func NewService(cfg *config.Config, st store.Store, remote stripeplat.RemoteSource, log *zap.SugaredLogger) *Service {
	return &Service{cfg: cfg, store: st, remote: remote, log: log}
}

// ApplyRemoteObservation computes the next local state from an observation and
// applies it via the store's atomic upsert. Applying the same observation
// twice yields the same row: the write is a pure overwrite of the mirrored
// fields, never a delta.
//
// Deliveries are at-least-once and unordered, so a stale event can regress
// local state until the next event or audit pass. That trade-off is accepted
// deliberately: the provider owns these fields and overwrite-with-latest keeps
// every dispatch path idempotent without a dedup store.
func (s *Service) ApplyRemoteObservation(ctx context.Context, obs *Observation) (*models.Subscription, error) {
	if obs == nil {
		return nil, fmt.Errorf("nil observation")
	}
	log := logctx.FromCtx(ctx, s.log)

	row, err := s.lookup(ctx, obs)
	if err != nil {
		return nil, err
	}

	if row == nil {
		if obs.Kind != ObservationCheckoutCompleted || obs.UserID == "" {
			// Orphan event: the local user may be gone already, or this is a
			// late duplicate for a cleaned-up customer. Not an error.
			log.Infow("orphan_observation_ignored",
				"kind", obs.Kind, "remote_customer_id", obs.RemoteCustomerID)
			return nil, nil
		}
		row = &models.Subscription{UserID: obs.UserID}
	}

	next := s.project(row, obs)

	stored, err := s.store.UpsertByUserID(ctx, store.UpsertFields{
		Subscription: next,
		Reason:       changeReason(obs.Kind),
		Extra:        map[string]any{"event_id": obs.EventID, "kind": string(obs.Kind)},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to apply observation: %w", err)
	}
	log.Infow("observation_applied",
		"kind", obs.Kind, "user_id", stored.UserID, "status", stored.Status)
	return stored, nil
}

// lookup resolves the local row: by remote customer id first, falling back to
// the side-channel user id when the flow knows the local user directly.
func (s *Service) lookup(ctx context.Context, obs *Observation) (*models.Subscription, error) {
	if obs.RemoteCustomerID != "" {
		row, err := s.store.GetByRemoteCustomerID(ctx, obs.RemoteCustomerID)
		if err == nil {
			return row, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
	}
	if obs.UserID != "" {
		row, err := s.store.GetByUserID(ctx, obs.UserID)
		if err == nil {
			return row, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
	}
	return nil, nil
}

// project computes the next row contents. The prior row only contributes its
// identity (user id) and, for partial observations, the fields the event kind
// does not speak for.
func (s *Service) project(row *models.Subscription, obs *Observation) *models.Subscription {
	next := *row

	switch obs.Kind {
	case ObservationCheckoutCompleted, ObservationSubscriptionSync:
		next.RemoteCustomerID = obs.RemoteCustomerID
		next.RemoteSubscriptionID = obs.RemoteSubscriptionID
		next.RemotePriceID = obs.RemotePriceID
		next.PlanKind = s.planKind(obs)
		next.Status = mapRemoteStatus(obs.RemoteStatus)
		next.CurrentPeriodStart = obs.CurrentPeriodStart
		next.CurrentPeriodEnd = obs.CurrentPeriodEnd
		next.CancelAtPeriodEnd = obs.CancelAtPeriodEnd
		next.CanceledAt = obs.CanceledAt
		if next.PlanKind == types.PlanKindLifetime {
			end := types.LifetimeExpiry
			next.CurrentPeriodEnd = &end
		}

	case ObservationSubscriptionDeleted:
		next.Status = types.SubscriptionStatusCanceled
		next.CancelAtPeriodEnd = false
		canceledAt := obs.ObservedAt
		next.CanceledAt = &canceledAt

	case ObservationPaymentSucceeded:
		next.Status = types.SubscriptionStatusActive
		next.PlanKind = types.PlanKindLifetime
		next.CancelAtPeriodEnd = false
		end := types.LifetimeExpiry
		next.CurrentPeriodEnd = &end
	}

	return &next
}

// planKind derives the plan kind from the purchased price. A checkout session
// in payment mode carries no subscription; its placeholder row keeps whatever
// the price mapping says (usually empty until activation).
func (s *Service) planKind(obs *Observation) types.PlanKind {
	kind := s.cfg.PlanKindByPriceID(obs.RemotePriceID)
	if kind == "" && obs.RemotePriceID != "" {
		s.log.Warnw("unknown_price_id", "price_id", obs.RemotePriceID)
	}
	return kind
}

func changeReason(kind ObservationKind) types.SubscriptionChangeReason {
	switch kind {
	case ObservationCheckoutCompleted:
		return types.SubscriptionChangeReasonCheckout
	case ObservationPaymentSucceeded:
		return types.SubscriptionChangeReasonLifetimeGrant
	default:
		return types.SubscriptionChangeReasonWebhook
	}
}
