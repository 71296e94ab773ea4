package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mamadbah2/haccp/internal/archive"
	"github.com/mamadbah2/haccp/internal/config"
	"github.com/mamadbah2/haccp/internal/domain/models"
	"github.com/mamadbah2/haccp/internal/metrics"
	"github.com/mamadbah2/haccp/internal/service/reporting"
	"github.com/mamadbah2/haccp/pkg/logger"
)

// RetentionMonths is how many months an archived report is kept. An entry whose
// period is this many months or more before the current one is purged.
const RetentionMonths = 12

// CycleRunner runs a single report cycle.
type CycleRunner interface {
	RunCycle(ctx context.Context, key models.ArchiveKey) reporting.CycleResult
}

// CycleSummary is the outcome of one firing.
type CycleSummary struct {
	Period  models.Period
	Reports []reporting.CycleResult
	// TenantsErr is set when the tenant directory could not be listed.
	TenantsErr error
	Sweep      SweepResult
}

// Failed returns the report cycles that did not reach Done.
func (s CycleSummary) Failed() []reporting.CycleResult {
	var failed []reporting.CycleResult
	for _, r := range s.Reports {
		if r.State != reporting.StateDone {
			failed = append(failed, r)
		}
	}
	return failed
}

// SweepResult is the outcome of one retention sweep.
type SweepResult struct {
	Deleted []models.ArchiveKey
	Kept    int
	Failed  []*models.PurgeError
	// ListErrors counts enumeration errors yielded by the archive.
	ListErrors int
}

// Scheduler fires the monthly report-and-retention cycle.
type Scheduler struct {
	cfg     config.ReportingConfig
	loc     *time.Location
	reports CycleRunner
	tenants models.TenantDirectory
	archive archive.Store
	metrics *metrics.Metrics
	logger  *zap.Logger
	now     func() time.Time

	mu      sync.Mutex
	cron    *cron.Cron
	entryID cron.EntryID
}

// NewScheduler creates a new scheduler instance.
func NewScheduler(cfg config.ReportingConfig, reports CycleRunner, tenants models.TenantDirectory, store archive.Store, m *metrics.Metrics, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Scheduler{
		cfg:     cfg,
		loc:     loc,
		reports: reports,
		tenants: tenants,
		archive: store,
		metrics: m,
		logger:  log,
		now:     time.Now,
	}
}

// Start validates the schedule and starts firing. Firings stop when ctx is
// cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	if _, err := cron.ParseStandard(s.cfg.CronSchedule); err != nil {
		return fmt.Errorf("invalid report schedule %q: %w", s.cfg.CronSchedule, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return errors.New("scheduler already running")
	}

	cronLog := logger.Cron(s.logger.Named("cron"))
	c := cron.New(
		cron.WithLocation(s.loc),
		cron.WithLogger(cronLog),
		cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
	)
	id, err := c.AddFunc(s.cfg.CronSchedule, func() { s.RunOnce(ctx) })
	if err != nil {
		return fmt.Errorf("schedule report cycle: %w", err)
	}
	s.cron = c
	s.entryID = id
	c.Start()

	s.logger.Info("scheduler started",
		zap.String("schedule", s.cfg.CronSchedule),
		zap.String("timezone", s.loc.String()),
		zap.Time("next_run", c.Entry(id).Next))

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// Stop stops the scheduler and waits for a running firing to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c == nil {
		return
	}

	s.logger.Info("stopping scheduler")
	<-c.Stop().Done()
}

// IsRunning reports whether the scheduler is started.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cron != nil
}

// NextRun returns the next firing time, or the zero time when stopped.
func (s *Scheduler) NextRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron == nil {
		return time.Time{}
	}
	return s.cron.Entry(s.entryID).Next
}

// RunOnce executes one firing: it publishes the report of the just-completed
// period for every tenant, then sweeps the archive whatever the outcome.
func (s *Scheduler) RunOnce(ctx context.Context) CycleSummary {
	now := s.now().In(s.loc)
	summary := CycleSummary{Period: models.PeriodOf(now).Previous()}
	log := s.logger.With(zap.String("period", summary.Period.String()))
	log.Info("report cycle started")

	summary.Reports, summary.TenantsErr = s.publishAll(ctx, summary.Period)
	if summary.TenantsErr != nil {
		log.Error("list tenants failed", zap.String("step", string(reporting.StateQuerying)), zap.Error(summary.TenantsErr))
	}

	sweepCtx, cancel := context.WithTimeout(ctx, s.cfg.CycleTimeout)
	summary.Sweep = s.Sweep(sweepCtx, now)
	cancel()

	log.Info("report cycle finished",
		zap.Int("reports", len(summary.Reports)),
		zap.Int("failed", len(summary.Failed())),
		zap.Int("purged", len(summary.Sweep.Deleted)),
		zap.Int("purge_failed", len(summary.Sweep.Failed)))
	return summary
}

func (s *Scheduler) publishAll(parent context.Context, period models.Period) ([]reporting.CycleResult, error) {
	ctx, cancel := context.WithTimeout(parent, s.cfg.CycleTimeout)
	defer cancel()

	tenants, err := s.tenants.ListTenants(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}

	results := make([]reporting.CycleResult, len(tenants))
	var g errgroup.Group
	g.SetLimit(s.cfg.Workers)
	for i, tenant := range tenants {
		g.Go(func() error {
			res := s.reports.RunCycle(ctx, models.ArchiveKey{TenantID: tenant.ID, Period: period})
			results[i] = res
			s.metrics.CycleFinished(string(res.State), string(res.FailedAt))
			return nil
		})
	}
	_ = g.Wait()

	return results, nil
}

// Sweep deletes every archived report whose period is RetentionMonths or more
// before the period containing now. The listing is snapshotted before any
// delete; a failed delete is recorded and the sweep moves on.
func (s *Scheduler) Sweep(ctx context.Context, now time.Time) SweepResult {
	current := models.PeriodOf(now.In(s.loc))
	var res SweepResult

	var entries []models.ArchiveEntry
	for entry, err := range s.archive.List(ctx) {
		if err != nil {
			res.ListErrors++
			s.logger.Error("archive listing failed", zap.String("step", "sweep"), zap.Error(err))
			continue
		}
		entries = append(entries, entry)
	}

	for _, entry := range entries {
		if entry.Key.Period.MonthsUntil(current) < RetentionMonths {
			res.Kept++
			continue
		}
		if err := s.archive.Delete(ctx, entry.Key); err != nil {
			perr := &models.PurgeError{Key: entry.Key, Cause: err}
			res.Failed = append(res.Failed, perr)
			s.logger.Error("purge failed",
				zap.String("tenant_id", entry.Key.TenantID),
				zap.String("period", entry.Key.Period.String()),
				zap.String("step", "sweep"),
				zap.Error(perr))
			continue
		}
		res.Deleted = append(res.Deleted, entry.Key)
		s.logger.Info("archive entry purged",
			zap.String("tenant_id", entry.Key.TenantID),
			zap.String("period", entry.Key.Period.String()))
	}

	s.metrics.Purged(len(res.Deleted), len(res.Failed))
	return res
}
