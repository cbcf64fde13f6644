package statistics

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

const snapshotInterval = 24 * time.Hour

// runSnapshotter writes the daily rollup row. One snapshot is taken right
// after startup so a fresh deployment has a row for today; the upsert makes
// restarts harmless.
func runSnapshotter(lc fx.Lifecycle, svc *Service, log *zap.SugaredLogger) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				ticker := time.NewTicker(snapshotInterval)
				defer ticker.Stop()
				if err := svc.SnapshotToday(ctx); err != nil {
					log.Errorw("daily snapshot failed", "error", err.Error())
				}
				for {
					select {
					case <-ctx.Done():
						return
					case <-ticker.C:
						if err := svc.SnapshotToday(ctx); err != nil {
							log.Errorw("daily snapshot failed", "error", err.Error())
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
			return nil
		},
	})
}
