package reporting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/haccp/internal/archive"
	"github.com/mamadbah2/haccp/internal/domain/models"
	"github.com/mamadbah2/haccp/internal/lock"
)

// State is a step of a report cycle.
type State string

const (
	StateIdle       State = "idle"
	StateQuerying   State = "querying"
	StateRendering  State = "rendering"
	StatePersisting State = "persisting"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

// CycleResult describes one synthesize-and-publish run for a single report key.
type CycleResult struct {
	Key      models.ArchiveKey
	State    State
	// FailedAt is the step that was running when the cycle failed.
	FailedAt State
	Document models.Document
	Err      error
	Duration time.Duration
}

// Service produces, publishes and serves compliance reports.
type Service struct {
	synth   *Synthesizer
	archive archive.Store
	locker  lock.Locker
	logger  *zap.Logger
	now     func() time.Time
}

// NewService wires the report service.
func NewService(synth *Synthesizer, store archive.Store, locker lock.Locker, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if locker == nil {
		locker = lock.NewLocal()
	}
	return &Service{
		synth:   synth,
		archive: store,
		locker:  locker,
		logger:  logger,
		now:     time.Now,
	}
}

// Generate synthesizes the report for tenantID and period, publishes it to the
// archive and returns it. Concurrent calls for the same key run one at a time.
func (s *Service) Generate(ctx context.Context, tenantID string, period models.Period) (models.Document, error) {
	if err := checkKey(tenantID, period); err != nil {
		return models.Document{}, err
	}
	res := s.RunCycle(ctx, models.ArchiveKey{TenantID: tenantID, Period: period})
	return res.Document, res.Err
}

// Download returns the archived report for tenantID and period.
func (s *Service) Download(ctx context.Context, tenantID string, period models.Period) ([]byte, error) {
	if err := checkKey(tenantID, period); err != nil {
		return nil, err
	}
	data, err := s.archive.Get(ctx, models.ArchiveKey{TenantID: tenantID, Period: period})
	if err != nil {
		return nil, fmt.Errorf("download %s report: %w", period, err)
	}
	return data, nil
}

// RunCycle drives one key through querying, rendering and persisting while
// holding the key's lock. A failed cycle keeps no partial state.
func (s *Service) RunCycle(ctx context.Context, key models.ArchiveKey) CycleResult {
	start := s.now()
	res := CycleResult{Key: key, State: StateIdle}
	logger := s.logger.With(zap.String("tenant_id", key.TenantID), zap.String("period", key.Period.String()))

	fail := func(err error) CycleResult {
		res.FailedAt = res.State
		res.State = StateFailed
		res.Err = err
		res.Document = models.Document{}
		res.Duration = s.now().Sub(start)
		logger.Error("report cycle failed", zap.String("step", string(res.FailedAt)), zap.Error(err))
		return res
	}

	res.State = StateQuerying
	release, err := s.locker.Acquire(ctx, key.LockKey())
	if err != nil {
		return fail(fmt.Errorf("acquire report lock: %w", err))
	}
	defer release()

	if !key.Period.Valid() {
		res.State = StateRendering
		return fail(&models.RenderError{Structural: true, Cause: models.ErrInvalidPeriod})
	}
	snap, err := s.synth.query(ctx, key.TenantID, key.Period)
	if err != nil {
		return fail(err)
	}

	res.State = StateRendering
	doc, err := s.synth.render(key.TenantID, key.Period, snap)
	if err != nil {
		return fail(err)
	}

	res.State = StatePersisting
	if err := ctx.Err(); err != nil {
		return fail(&models.PersistError{Key: key, Cause: err})
	}
	if err := s.archive.Put(ctx, key, doc.Content); err != nil {
		return fail(&models.PersistError{Key: key, Cause: err})
	}

	res.State = StateDone
	res.Document = doc
	res.Duration = s.now().Sub(start)
	logger.Info("report published",
		zap.Int("lines", doc.Lines),
		zap.Int("skipped", doc.Skipped),
		zap.Duration("duration", res.Duration))
	return res
}

func checkKey(tenantID string, period models.Period) error {
	if !archive.ValidTenant(tenantID) {
		return &models.ValidationError{Field: "tenant_id", Reason: "is missing or malformed"}
	}
	if !period.Valid() {
		return fmt.Errorf("%w: %v", models.ErrInvalidPeriod, period)
	}
	return nil
}

// IsRetryable reports whether err should be retried at the next cycle.
func IsRetryable(err error) bool {
	var qerr *models.QueryError
	var perr *models.PersistError
	return errors.As(err, &qerr) || errors.As(err, &perr) ||
		errors.Is(err, context.DeadlineExceeded) || errors.Is(err, lock.ErrNotObtained)
}
