package ingest

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fatflowers/subsync/internal/app/service/reconcile"
	"github.com/fatflowers/subsync/internal/app/service/webhooklog"
	stripeplat "github.com/fatflowers/subsync/internal/platform/stripe"
	"github.com/fatflowers/subsync/internal/models"
	"github.com/fatflowers/subsync/pkg/config"
	"github.com/fatflowers/subsync/pkg/logctx"
	"github.com/fatflowers/subsync/pkg/metrics"

	"github.com/samber/lo"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// Service verifies inbound provider events and dispatches them to the
// reconciliation engine. It applies no deduplication of its own; idempotence
// is pushed down into the engine's overwrite semantics.
type Service struct {
	cfg      *config.Config
	engine   *reconcile.Service
	remote   stripeplat.RemoteSource
	eventLog *webhooklog.Service
	log      *zap.SugaredLogger
}

func NewService(cfg *config.Config, engine *reconcile.Service, remote stripeplat.RemoteSource, eventLog *webhooklog.Service, log *zap.SugaredLogger) *Service {
	return &Service{cfg: cfg, engine: engine, remote: remote, eventLog: eventLog, log: log}
}

// HandleEvent verifies, decodes, and dispatches one raw webhook delivery.
// The body must be the exact bytes received: the signature covers them.
//
// Error contract: ErrSignatureVerification and ErrMalformedPayload mean the
// delivery is rejected for good (400); any other error is retryable and the
// caller should answer 5xx so the provider redelivers.
func (s *Service) HandleEvent(ctx context.Context, body []byte, sigHeader, traceID string) (resErr error) {
	event, err := verifyAndParse(body, sigHeader, s.cfg.Stripe.WebhookSecret)
	if err != nil {
		metrics.WebhookEventsTotal.WithLabelValues("unverified", "rejected").Inc()
		return err
	}
	eventType := string(event.Type)
	log := logctx.FromCtx(ctx, s.log)

	s.eventLog.Save(ctx, &models.WebhookEventLog{
		EventID:   event.ID,
		EventType: eventType,
		TraceID:   traceID,
		EventTime: time.Unix(event.Created, 0).UTC(),
		Data:      datatypes.JSON(body),
		Status:    models.WebhookEventLogStatusReceived,
	})

	var applied *models.Subscription
	defer func() {
		resMap := map[string]any{"subscription": applied}
		if resErr != nil {
			resMap["error"] = resErr.Error()
		}
		resBytes, _ := json.Marshal(resMap)
		status := models.WebhookEventLogStatusHandled
		outcome := "handled"
		if resErr != nil {
			status = models.WebhookEventLogStatusHandleFailed
			outcome = "failed"
		}
		entry := &models.WebhookEventLog{
			EventID:   event.ID,
			EventType: eventType,
			TraceID:   traceID,
			EventTime: time.Unix(event.Created, 0).UTC(),
			Result:    lo.ToPtr(datatypes.JSON(resBytes)),
			Status:    status,
		}
		if applied != nil {
			entry.UserID = lo.ToPtr(applied.UserID)
			entry.RemoteCustomerID = applied.RemoteCustomerID
		}
		s.eventLog.Save(ctx, entry)
		metrics.WebhookEventsTotal.WithLabelValues(eventType, outcome).Inc()
	}()

	obs, resErr := s.buildObservation(ctx, event)
	if resErr != nil {
		log.Errorw("webhook_build_observation_failed", "event_type", eventType, "error", resErr.Error())
		return resErr
	}
	if obs == nil {
		// Unknown or irrelevant kind: acknowledge without touching the engine.
		log.Infow("webhook_event_ignored", "event_type", eventType)
		return nil
	}

	applied, resErr = s.engine.ApplyRemoteObservation(ctx, obs)
	return resErr
}

// Module exposes the ingestion service via Fx.
var Module = fx.Options(
	fx.Provide(NewService),
)
