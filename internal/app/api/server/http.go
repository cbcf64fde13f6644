package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/fatflowers/subsync/docs"
	"github.com/fatflowers/subsync/internal/app/api/handlers"
	mw "github.com/fatflowers/subsync/internal/app/api/middleware"
	"github.com/fatflowers/subsync/internal/app/service/audit"
	"github.com/fatflowers/subsync/internal/app/service/entitlement"
	"github.com/fatflowers/subsync/internal/app/service/ingest"
	"github.com/fatflowers/subsync/internal/app/service/statistics"
	"github.com/fatflowers/subsync/internal/app/service/store"
	cfgpkg "github.com/fatflowers/subsync/pkg/config"
	metrics "github.com/fatflowers/subsync/pkg/metrics"
	"github.com/fatflowers/subsync/pkg/ratelimit"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func newEngine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	// Add request tracing middleware only; request logger & access log are attached per group in registerRoutes
	r.Use(mw.TraceMiddleware())
	return r
}

func newWebhookLimiter(cfg *cfgpkg.Config) *ratelimit.Limiter {
	window := time.Duration(cfg.WebhookRateLimit.WindowSeconds) * time.Second
	if window <= 0 {
		window = time.Minute
	}
	limit := cfg.WebhookRateLimit.Requests
	if limit <= 0 {
		limit = 100
	}
	return ratelimit.New(limit, window)
}

func registerRoutes(
	r *gin.Engine,
	log *zap.SugaredLogger,
	cfg *cfgpkg.Config,
	ingestSvc *ingest.Service,
	entSvc *entitlement.Service,
	auditSvc *audit.Service,
	scanner store.Scanner,
	stats *statistics.Service,
	limiter *ratelimit.Limiter,
) {
	// Prometheus metrics
	if cfg != nil && cfg.MetricsAddr != "" {
		p := metrics.NewPrometheus(metrics.NewPrometheusOptions{
			ReqCntURLLabelMappingFn: func(c *gin.Context) string {
				if fp := c.FullPath(); fp != "" {
					return fp
				}
				return c.Request.URL.Path
			},
			Logger: log,
		})
		p.SetListenAddress(cfg.MetricsAddr)
		p.Use(r)

		log.Infow("metrics started", "addr", cfg.MetricsAddr)
	}

	// Public group: request logger + access log
	pub := r.Group("/")
	pub.Use(mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware())
	handlers.RegisterHealthRoutes(pub)
	// Swagger UI
	docs.SwaggerInfo.BasePath = "/"
	pub.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	apiV1 := r.Group("/api/v1")
	apiV1.Use(mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware())

	// Webhook ingestion: raw-body verification happens in the handler, so no
	// body-reading middleware may run ahead of it.
	webhook := apiV1.Group("/webhook")
	webhook.Use(limiter.Middleware())
	handlers.RegisterWebhookRoutes(webhook, ingestSvc, log)

	// Entitlement reads, consumed by product backends.
	handlers.RegisterEntitlementRoutes(apiV1, entSvc)

	// Operator APIs behind bearer auth.
	admin := apiV1.Group("/admin")
	admin.Use(mw.AdminAuthMiddleware(cfg))
	handlers.RegisterAdminRoutes(admin, auditSvc, scanner, stats)
}

func runServer(lc fx.Lifecycle, log *zap.SugaredLogger, cfg *cfgpkg.Config, r *gin.Engine) {
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting HTTP server", "addr", addr)
			go func() {
				if err := srv.ListenAndServe(); err != nil {
					log.Errorf("server error: %v", err)
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Infow("stopping HTTP server")
			shutdownCtx, cancel := context.WithTimeout(ctx, 120*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

var Module = fx.Options(
	fx.Provide(newEngine),
	fx.Provide(newWebhookLimiter),
	fx.Invoke(registerRoutes),
	fx.Invoke(runServer),
)
