package entitlement

import (
	"context"
	"errors"
	"testing"

	"github.com/fatflowers/subsync/internal/app/service/store"
	"github.com/fatflowers/subsync/internal/models"
	"github.com/fatflowers/subsync/pkg/types"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubStore struct {
	row *models.Subscription
	err error
}

func (s *stubStore) GetByUserID(context.Context, string) (*models.Subscription, error) {
	return s.row, s.err
}

func (s *stubStore) GetByRemoteCustomerID(context.Context, string) (*models.Subscription, error) {
	return s.row, s.err
}

func (s *stubStore) UpsertByUserID(context.Context, store.UpsertFields) (*models.Subscription, error) {
	return nil, errors.New("not implemented")
}

func (s *stubStore) ListByStatus(context.Context, []types.SubscriptionStatus) ([]*models.Subscription, error) {
	return nil, errors.New("not implemented")
}

func TestIsEntitled_NoRowIsFreeTier(t *testing.T) {
	svc := NewService(&stubStore{err: store.ErrNotFound}, zap.NewNop().Sugar())

	entitled, err := svc.IsEntitled(context.Background(), "u1")
	require.NoError(t, err)
	require.False(t, entitled)
}

func TestIsEntitled_FailsClosedOnStoreError(t *testing.T) {
	svc := NewService(&stubStore{err: errors.New("db down")}, zap.NewNop().Sugar())

	entitled, err := svc.IsEntitled(context.Background(), "u1")
	require.Error(t, err)
	require.False(t, entitled)
}

func TestIsEntitled_StatusTable(t *testing.T) {
	tests := []struct {
		status types.SubscriptionStatus
		want   bool
	}{
		{types.SubscriptionStatusActive, true},
		{types.SubscriptionStatusTrialing, true},
		{types.SubscriptionStatusIncomplete, false},
		{types.SubscriptionStatusIncompleteExpired, false},
		{types.SubscriptionStatusPastDue, false},
		{types.SubscriptionStatusUnpaid, false},
		{types.SubscriptionStatusCanceled, false},
		{types.SubscriptionStatus("paused"), false},
		{types.SubscriptionStatus(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			svc := NewService(&stubStore{row: &models.Subscription{UserID: "u1", Status: tt.status}}, zap.NewNop().Sugar())
			entitled, err := svc.IsEntitled(context.Background(), "u1")
			require.NoError(t, err)
			require.Equal(t, tt.want, entitled)
		})
	}
}
