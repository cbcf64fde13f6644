package app

import (
	"time"

	"github.com/fatflowers/subsync/internal/app/api/server"
	"github.com/fatflowers/subsync/internal/app/service/audit"
	"github.com/fatflowers/subsync/internal/app/service/entitlement"
	"github.com/fatflowers/subsync/internal/app/service/ingest"
	"github.com/fatflowers/subsync/internal/app/service/reconcile"
	"github.com/fatflowers/subsync/internal/app/service/statistics"
	"github.com/fatflowers/subsync/internal/app/service/store"
	"github.com/fatflowers/subsync/internal/app/service/webhooklog"
	"github.com/fatflowers/subsync/internal/platform/db"
	stripeplatform "github.com/fatflowers/subsync/internal/platform/stripe"
	"github.com/fatflowers/subsync/pkg/config"
	"github.com/fatflowers/subsync/pkg/logger"

	"go.uber.org/fx"
)

const (
	DefaultStartTimeout = 15 * time.Second
	DefaultStopTimeout  = 10 * time.Second
)

var Module = fx.Options(
	logger.Module,
	config.Module,
	db.Module,
	server.Module,
	stripeplatform.Module,
	store.Module,
	reconcile.Module,
	entitlement.Module,
	ingest.Module,
	webhooklog.Module,
	audit.Module,
	statistics.Module,
)
