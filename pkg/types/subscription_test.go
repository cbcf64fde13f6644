package types

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSubscriptionStatus_Entitled(t *testing.T) {
	tests := []struct {
		status SubscriptionStatus
		want   bool
	}{
		{SubscriptionStatusActive, true},
		{SubscriptionStatusTrialing, true},
		{SubscriptionStatusIncomplete, false},
		{SubscriptionStatusIncompleteExpired, false},
		{SubscriptionStatusPastDue, false},
		{SubscriptionStatusUnpaid, false},
		{SubscriptionStatusCanceled, false},
		{SubscriptionStatus("paused"), false},
		{SubscriptionStatus(""), false},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, tt.status.Entitled(), "status %q", tt.status)
	}
}

func TestSubscriptionStatus_Known(t *testing.T) {
	for _, s := range []SubscriptionStatus{
		SubscriptionStatusIncomplete,
		SubscriptionStatusIncompleteExpired,
		SubscriptionStatusActive,
		SubscriptionStatusTrialing,
		SubscriptionStatusPastDue,
		SubscriptionStatusUnpaid,
		SubscriptionStatusCanceled,
	} {
		require.True(t, s.Known(), "status %q", s)
	}
	require.False(t, SubscriptionStatus("paused").Known())
	require.False(t, SubscriptionStatus("").Known())
}

func TestEntitledStatuses_MatchesEntitled(t *testing.T) {
	for _, s := range EntitledStatuses {
		require.True(t, s.Entitled())
	}
	require.Len(t, EntitledStatuses, 2)
}
