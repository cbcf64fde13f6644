package audit

import (
	"context"
	"time"

	cfgpkg "github.com/fatflowers/subsync/pkg/config"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// runScheduler drives the unattended scan loop. Scheduled runs apply
// corrections according to audit.auto_apply; an interval of zero disables the
// loop entirely (webhook-only deployments).
func runScheduler(lc fx.Lifecycle, cfg *cfgpkg.Config, svc *Service, log *zap.SugaredLogger) {
	interval := cfg.Audit.Interval()
	if interval <= 0 {
		log.Infow("audit scheduler disabled")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			log.Infow("audit scheduler started", "interval", interval, "auto_apply", cfg.Audit.AutoApply)
			go func() {
				defer close(done)
				ticker := time.NewTicker(interval)
				defer ticker.Stop()
				for {
					select {
					case <-ctx.Done():
						return
					case <-ticker.C:
						if _, err := svc.RunScan(ctx, cfg.Audit.AutoApply, "scheduled"); err != nil {
							log.Errorw("scheduled audit scan failed", "error", err.Error())
						}
					}
				}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
			case <-stopCtx.Done():
			}
			log.Infow("audit scheduler stopped")
			return nil
		},
	})
}

// Module exposes the batch auditor via Fx.
var Module = fx.Options(
	fx.Provide(NewService),
	fx.Invoke(runScheduler),
)
