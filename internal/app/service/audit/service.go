package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fatflowers/subsync/internal/app/service/reconcile"
	"github.com/fatflowers/subsync/internal/app/service/store"
	"github.com/fatflowers/subsync/internal/models"
	"github.com/fatflowers/subsync/pkg/logctx"
	"github.com/fatflowers/subsync/pkg/metrics"
	"github.com/fatflowers/subsync/pkg/tool"
	"github.com/fatflowers/subsync/pkg/types"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ScanSummary is the structured result of one batch scan.
type ScanSummary struct {
	StartedAt    time.Time               `json:"started_at"`
	FinishedAt   time.Time               `json:"finished_at"`
	Applied      bool                    `json:"applied"`
	Scanned      int                     `json:"scanned"`
	Corrected    int                     `json:"corrected"`
	Valid        int                     `json:"valid"`
	Inconclusive int                     `json:"inconclusive"`
	Errored      int                     `json:"errored"`
	Results      []reconcile.AuditResult `json:"results"`
}

// Service scans all rows claiming entitlement and re-validates each against
// the remote source. One row's failure never aborts the rest of the scan.
type Service struct {
	engine *reconcile.Service
	store  store.Store
	db     *gorm.DB
	log    *zap.SugaredLogger
}

func NewService(engine *reconcile.Service, st store.Store, db *gorm.DB, log *zap.SugaredLogger) *Service {
	return &Service{engine: engine, store: st, db: db, log: log}
}

// RunScan audits every {active, trialing} row. With apply=false it only
// reports (dry run); with apply=true corrections are written. The summary is
// persisted to audit_run_log either way.
func (s *Service) RunScan(ctx context.Context, apply bool, trigger string) (*ScanSummary, error) {
	summary := &ScanSummary{StartedAt: time.Now().UTC(), Applied: apply}

	rows, err := s.store.ListByStatus(ctx, types.EntitledStatuses)
	if err != nil {
		metrics.AuditScansTotal.WithLabelValues(trigger, "error").Inc()
		return nil, fmt.Errorf("failed to list entitled subscriptions: %w", err)
	}

	for _, row := range rows {
		res := s.engine.AuditSingle(ctx, row.UserID, apply)
		summary.Scanned++
		switch res.Outcome {
		case reconcile.AuditOutcomeCorrected:
			summary.Corrected++
		case reconcile.AuditOutcomeInconclusive:
			summary.Inconclusive++
		case reconcile.AuditOutcomeError:
			summary.Errored++
		default:
			summary.Valid++
		}
		metrics.AuditOutcomesTotal.WithLabelValues(string(res.Outcome)).Inc()
		summary.Results = append(summary.Results, res)
	}

	summary.FinishedAt = time.Now().UTC()
	s.saveRunLog(ctx, summary, trigger)
	metrics.AuditScansTotal.WithLabelValues(trigger, "ok").Inc()

	logctx.FromCtx(ctx, s.log).Infow("audit_scan_finished",
		"trigger", trigger, "applied", apply, "scanned", summary.Scanned,
		"corrected", summary.Corrected, "valid", summary.Valid,
		"inconclusive", summary.Inconclusive, "errored", summary.Errored)
	return summary, nil
}

// AuditUser audits a single user (targeted flow).
func (s *Service) AuditUser(ctx context.Context, userID string, apply bool) reconcile.AuditResult {
	res := s.engine.AuditSingle(ctx, userID, apply)
	metrics.AuditOutcomesTotal.WithLabelValues(string(res.Outcome)).Inc()
	return res
}

func (s *Service) saveRunLog(ctx context.Context, summary *ScanSummary, trigger string) {
	go func() {
		data, err := json.Marshal(summary)
		if err != nil {
			return
		}
		entry := &models.AuditRunLog{
			ID:         tool.GenerateUUIDV7(),
			StartedAt:  summary.StartedAt,
			FinishedAt: summary.FinishedAt,
			Applied:    summary.Applied,
			Trigger:    trigger,
			Summary:    datatypes.JSON(data),
		}
		if err := s.db.Save(entry).Error; err != nil {
			logctx.FromCtx(ctx, s.log).Errorf("failed to save audit run log: %v", err)
		}
	}()
}
