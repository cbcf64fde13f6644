package reconcile

import (
	"context"
	"errors"
	"testing"

	stripeplat "github.com/fatflowers/subsync/internal/platform/stripe"
	"github.com/fatflowers/subsync/internal/models"
	"github.com/fatflowers/subsync/pkg/types"

	"github.com/stretchr/testify/require"
)

func TestAuditSingle_NoRowIsFreeTier(t *testing.T) {
	svc := newTestService(newFakeStore(), &fakeRemote{})

	res := svc.AuditSingle(context.Background(), "ghost", true)
	require.Equal(t, AuditOutcomeFreeTier, res.Outcome)
	require.Equal(t, AuditReasonConsistent, res.Reason)
}

func TestAuditSingle_NotEntitledIsValid(t *testing.T) {
	st := newFakeStore(&models.Subscription{
		UserID: "u1",
		Status: types.SubscriptionStatusCanceled,
	})
	svc := newTestService(st, &fakeRemote{})

	res := svc.AuditSingle(context.Background(), "u1", true)
	require.Equal(t, AuditOutcomeValid, res.Outcome)
	require.Equal(t, AuditReasonNotEntitled, res.Reason)
	require.Empty(t, st.upserts)
}

func TestAuditSingle_MissingBackingObjectCorrected(t *testing.T) {
	st := newFakeStore(&models.Subscription{
		UserID:   "u1",
		PlanKind: types.PlanKindMonthly,
		Status:   types.SubscriptionStatusActive,
	})
	svc := newTestService(st, &fakeRemote{})

	res := svc.AuditSingle(context.Background(), "u1", true)
	require.Equal(t, AuditOutcomeCorrected, res.Outcome)
	require.Equal(t, AuditReasonInvalidNoBacking, res.Reason)
	require.True(t, res.Applied)
	require.Equal(t, types.SubscriptionStatusCanceled, st.byUser["u1"].Status)
	require.Equal(t, types.SubscriptionChangeReasonAuditCorrection, st.upserts[0].Reason)
}

func TestAuditSingle_DryRunDoesNotMutate(t *testing.T) {
	st := newFakeStore(&models.Subscription{
		UserID:   "u1",
		PlanKind: types.PlanKindMonthly,
		Status:   types.SubscriptionStatusActive,
	})
	svc := newTestService(st, &fakeRemote{})

	res := svc.AuditSingle(context.Background(), "u1", false)
	require.Equal(t, AuditOutcomeCorrected, res.Outcome)
	require.False(t, res.Applied)
	require.Equal(t, types.SubscriptionStatusCanceled, res.NewStatus)
	require.Equal(t, types.SubscriptionStatusActive, st.byUser["u1"].Status)
	require.Empty(t, st.upserts)
}

func TestAuditSingle_LifetimeIsValidWithoutRemote(t *testing.T) {
	st := newFakeStore(&models.Subscription{
		UserID:   "u1",
		PlanKind: types.PlanKindLifetime,
		Status:   types.SubscriptionStatusActive,
	})
	remote := &fakeRemote{err: errors.New("should not be called")}
	svc := newTestService(st, remote)

	res := svc.AuditSingle(context.Background(), "u1", true)
	require.Equal(t, AuditOutcomeValid, res.Outcome)
	require.Equal(t, AuditReasonConsistent, res.Reason)
}

func TestAuditSingle_OrphanedActiveCorrected(t *testing.T) {
	st := newFakeStore(&models.Subscription{
		UserID:               "u1",
		RemoteSubscriptionID: "sub_gone",
		PlanKind:             types.PlanKindMonthly,
		Status:               types.SubscriptionStatusActive,
	})
	svc := newTestService(st, &fakeRemote{subs: map[string]*stripeplat.RemoteSubscription{}})

	res := svc.AuditSingle(context.Background(), "u1", true)
	require.Equal(t, AuditOutcomeCorrected, res.Outcome)
	require.Equal(t, AuditReasonOrphanedActive, res.Reason)
	require.Equal(t, types.SubscriptionStatusCanceled, st.byUser["u1"].Status)
}

func TestAuditSingle_TransientRemoteFailureIsInconclusive(t *testing.T) {
	st := newFakeStore(&models.Subscription{
		UserID:               "u1",
		RemoteSubscriptionID: "sub_1",
		PlanKind:             types.PlanKindMonthly,
		Status:               types.SubscriptionStatusActive,
	})
	svc := newTestService(st, &fakeRemote{err: errors.New("timeout")})

	res := svc.AuditSingle(context.Background(), "u1", true)
	require.Equal(t, AuditOutcomeInconclusive, res.Outcome)
	require.Equal(t, AuditReasonRemoteUnavailable, res.Reason)
	// A provider outage never demotes a paying user.
	require.Equal(t, types.SubscriptionStatusActive, st.byUser["u1"].Status)
	require.Empty(t, st.upserts)
}

func TestAuditSingle_DriftCorrectedToRemoteStatus(t *testing.T) {
	st := newFakeStore(&models.Subscription{
		UserID:               "u1",
		RemoteSubscriptionID: "sub_1",
		PlanKind:             types.PlanKindMonthly,
		Status:               types.SubscriptionStatusActive,
	})
	svc := newTestService(st, &fakeRemote{subs: map[string]*stripeplat.RemoteSubscription{
		"sub_1": {ID: "sub_1", Status: "past_due"},
	}})

	res := svc.AuditSingle(context.Background(), "u1", true)
	require.Equal(t, AuditOutcomeCorrected, res.Outcome)
	require.Equal(t, AuditReasonDrifted, res.Reason)
	require.Equal(t, types.SubscriptionStatusPastDue, res.NewStatus)
	require.Equal(t, types.SubscriptionStatusPastDue, st.byUser["u1"].Status)
}

func TestAuditSingle_ConsistentRemoteIsValid(t *testing.T) {
	st := newFakeStore(&models.Subscription{
		UserID:               "u1",
		RemoteSubscriptionID: "sub_1",
		PlanKind:             types.PlanKindAnnual,
		Status:               types.SubscriptionStatusTrialing,
	})
	svc := newTestService(st, &fakeRemote{subs: map[string]*stripeplat.RemoteSubscription{
		"sub_1": {ID: "sub_1", Status: "trialing"},
	}})

	res := svc.AuditSingle(context.Background(), "u1", true)
	require.Equal(t, AuditOutcomeValid, res.Outcome)
	require.Equal(t, AuditReasonConsistent, res.Reason)
	require.Empty(t, st.upserts)
}

func TestAuditSingle_UnknownRemoteStatusCorrectsToCanceled(t *testing.T) {
	st := newFakeStore(&models.Subscription{
		UserID:               "u1",
		RemoteSubscriptionID: "sub_1",
		PlanKind:             types.PlanKindMonthly,
		Status:               types.SubscriptionStatusActive,
	})
	svc := newTestService(st, &fakeRemote{subs: map[string]*stripeplat.RemoteSubscription{
		"sub_1": {ID: "sub_1", Status: "paused"},
	}})

	res := svc.AuditSingle(context.Background(), "u1", true)
	require.Equal(t, AuditOutcomeCorrected, res.Outcome)
	require.Equal(t, types.SubscriptionStatusCanceled, res.NewStatus)
}
