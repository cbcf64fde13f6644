package entitlement

import (
	"context"
	"errors"

	"github.com/fatflowers/subsync/internal/app/service/store"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Service answers the single authoritative entitlement question. It reads the
// local mirror only and never talks to the payments provider.
type Service struct {
	store store.Store
	log   *zap.SugaredLogger
}

func NewService(st store.Store, log *zap.SugaredLogger) *Service {
	return &Service{store: st, log: log}
}

// IsEntitled reports whether userID may access paid features:
// a row exists and its status is active or trialing. Fails closed: a store
// error returns false alongside the error, never a grant.
func (s *Service) IsEntitled(ctx context.Context, userID string) (bool, error) {
	row, err := s.store.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return row.Entitled(), nil
}

// Module exposes the entitlement reader via Fx.
var Module = fx.Options(
	fx.Provide(NewService),
)
