package store

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func NewScanner(db *gorm.DB, log *zap.SugaredLogger) Scanner {
	return &gormStore{db: db, log: log}
}

// Module exposes the subscription store via Fx.
var Module = fx.Options(
	fx.Provide(NewGormStore),
	fx.Provide(NewScanner),
)
