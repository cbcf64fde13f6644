package reconcile

import (
	"context"
	"errors"

	"github.com/fatflowers/subsync/internal/app/service/store"
	stripeplat "github.com/fatflowers/subsync/internal/platform/stripe"
	"github.com/fatflowers/subsync/internal/models"
	"github.com/fatflowers/subsync/pkg/logctx"
	"github.com/fatflowers/subsync/pkg/types"
)

// AuditOutcome classifies the result of auditing one user's row.
type AuditOutcome string

const (
	// AuditOutcomeFreeTier: no row exists; consistent by definition.
	AuditOutcomeFreeTier AuditOutcome = "free_tier"
	// AuditOutcomeValid: row does not claim entitlement, or remote agrees.
	AuditOutcomeValid AuditOutcome = "valid"
	// AuditOutcomeCorrected: a drift or invariant violation was (or, in dry
	// run, would be) corrected.
	AuditOutcomeCorrected AuditOutcome = "corrected"
	// AuditOutcomeInconclusive: a transient remote failure; local state was
	// left untouched so a provider outage never revokes entitlement.
	AuditOutcomeInconclusive AuditOutcome = "inconclusive"
	// AuditOutcomeError: local infrastructure failure (store unreachable).
	AuditOutcomeError AuditOutcome = "error"
)

// AuditReason is the reason code attached to corrections and reports.
type AuditReason string

const (
	AuditReasonConsistent        AuditReason = "consistent"
	AuditReasonNotEntitled       AuditReason = "not_entitled"
	AuditReasonInvalidNoBacking  AuditReason = "invalid_no_backing_id"
	AuditReasonOrphanedActive    AuditReason = "orphaned_active"
	AuditReasonDrifted           AuditReason = "drifted"
	AuditReasonRemoteUnavailable AuditReason = "remote_unavailable"
	AuditReasonStoreFailure      AuditReason = "store_failure"
)

// AuditResult is the per-row audit report, shaped to drive both a
// human-readable summary and a test assertion.
type AuditResult struct {
	UserID      string                   `json:"user_id"`
	Outcome     AuditOutcome             `json:"outcome"`
	Reason      AuditReason              `json:"reason"`
	PriorStatus types.SubscriptionStatus `json:"prior_status,omitempty"`
	NewStatus   types.SubscriptionStatus `json:"new_status,omitempty"`
	Applied     bool                     `json:"applied"`
	Error       string                   `json:"error,omitempty"`
}

// AuditSingle re-validates one user's entitlement claim against the remote
// source. With apply=false it reports findings without mutating (the
// interactive/dry-run mode); apply=true writes corrections.
//
// Transient remote failures are inconclusive, never not-found: a timeout must
// not demote a paying user.
func (s *Service) AuditSingle(ctx context.Context, userID string, apply bool) AuditResult {
	log := logctx.FromCtx(ctx, s.log)

	row, err := s.store.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return AuditResult{UserID: userID, Outcome: AuditOutcomeFreeTier, Reason: AuditReasonConsistent}
		}
		return AuditResult{UserID: userID, Outcome: AuditOutcomeError, Reason: AuditReasonStoreFailure, Error: err.Error()}
	}

	if !row.Status.Entitled() {
		return AuditResult{UserID: userID, Outcome: AuditOutcomeValid, Reason: AuditReasonNotEntitled, PriorStatus: row.Status}
	}

	// Entitled without a backing remote object: correctable data defect.
	if row.MissingBackingObject() {
		return s.correct(ctx, row, AuditReasonInvalidNoBacking, types.SubscriptionStatusCanceled, apply)
	}
	if row.PlanKind == types.PlanKindLifetime {
		// Lifetime entitlements are backed by a payment object, not a
		// subscription; nothing remote to compare against.
		return AuditResult{UserID: userID, Outcome: AuditOutcomeValid, Reason: AuditReasonConsistent, PriorStatus: row.Status}
	}

	remote, err := s.remote.RetrieveSubscription(ctx, row.RemoteSubscriptionID)
	if err != nil {
		if errors.Is(err, stripeplat.ErrNotFound) {
			return s.correct(ctx, row, AuditReasonOrphanedActive, types.SubscriptionStatusCanceled, apply)
		}
		log.Warnw("audit_inconclusive",
			"user_id", userID, "subscription_id", row.RemoteSubscriptionID, "err", err)
		return AuditResult{
			UserID:      userID,
			Outcome:     AuditOutcomeInconclusive,
			Reason:      AuditReasonRemoteUnavailable,
			PriorStatus: row.Status,
			Error:       err.Error(),
		}
	}

	remoteStatus := mapRemoteStatus(remote.Status)
	if remoteStatus.Entitled() && remoteStatus == row.Status {
		return AuditResult{UserID: userID, Outcome: AuditOutcomeValid, Reason: AuditReasonConsistent, PriorStatus: row.Status}
	}
	return s.correct(ctx, row, AuditReasonDrifted, remoteStatus, apply)
}

func (s *Service) correct(ctx context.Context, row *models.Subscription, reason AuditReason, newStatus types.SubscriptionStatus, apply bool) AuditResult {
	res := AuditResult{
		UserID:      row.UserID,
		Outcome:     AuditOutcomeCorrected,
		Reason:      reason,
		PriorStatus: row.Status,
		NewStatus:   newStatus,
		Applied:     apply,
	}
	if !apply {
		return res
	}

	next := *row
	next.Status = newStatus

	_, err := s.store.UpsertByUserID(ctx, store.UpsertFields{
		Subscription: &next,
		Reason:       types.SubscriptionChangeReasonAuditCorrection,
		Extra:        map[string]any{"audit_reason": string(reason)},
	})
	if err != nil {
		return AuditResult{
			UserID:      row.UserID,
			Outcome:     AuditOutcomeError,
			Reason:      AuditReasonStoreFailure,
			PriorStatus: row.Status,
			Error:       err.Error(),
		}
	}
	logctx.FromCtx(ctx, s.log).Infow("audit_corrected",
		"user_id", row.UserID, "reason", reason, "prior", row.Status, "new", newStatus)
	return res
}
