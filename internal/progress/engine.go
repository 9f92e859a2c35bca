package progress

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/goliatone/go-order-tracker/internal/domain"
	"github.com/goliatone/go-order-tracker/internal/logging"
	"github.com/goliatone/go-order-tracker/internal/stages"
	"github.com/goliatone/go-order-tracker/pkg/interfaces"
)

const tracerName = "github.com/goliatone/go-order-tracker/internal/progress"

// StageCatalog is the read side of the stage catalog used by the engine.
type StageCatalog interface {
	Get(ctx context.Context, id uuid.UUID) (*stages.Stage, error)
	List(ctx context.Context) ([]*stages.Stage, error)
	ListBefore(ctx context.Context, sortOrder int) ([]*stages.Stage, error)
}

// EngineOption configures the transition engine.
type EngineOption func(*Engine)

// WithEngineClock overrides the time source used for timestamps.
func WithEngineClock(clock func() time.Time) EngineOption {
	return func(e *Engine) {
		if clock != nil {
			e.now = clock
		}
	}
}

// WithEngineLogger sets the engine logger.
func WithEngineLogger(logger interfaces.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithAtomicCascade wraps the target upsert and the cascade in one ledger
// transaction. A failed prior-stage write then fails the whole transition.
func WithAtomicCascade(enabled bool) EngineOption {
	return func(e *Engine) {
		e.atomic = enabled
	}
}

// WithTracer overrides the tracer used for transition spans.
func WithTracer(tracer trace.Tracer) EngineOption {
	return func(e *Engine) {
		if tracer != nil {
			e.tracer = tracer
		}
	}
}

// Engine applies status transitions to single (order, stage) rows and keeps
// earlier stages completed.
type Engine struct {
	catalog StageCatalog
	ledger  LedgerRepository
	now     func() time.Time
	logger  interfaces.Logger
	tracer  trace.Tracer
	atomic  bool
}

// NewEngine builds a transition engine over the catalog and ledger.
func NewEngine(catalog StageCatalog, ledger LedgerRepository, opts ...EngineOption) *Engine {
	e := &Engine{
		catalog: catalog,
		ledger:  ledger,
		now:     time.Now,
		logger:  logging.NoOp(),
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// ApplyTransition moves the (order, stage) row to the requested status.
func (e *Engine) ApplyTransition(ctx context.Context, orderID, stageID uuid.UUID, transition ProgressTransition) (TransitionOutcome, error) {
	if orderID == uuid.Nil {
		return TransitionOutcome{}, ErrOrderIDRequired
	}
	if stageID == uuid.Nil {
		return TransitionOutcome{}, ErrStageIDRequired
	}
	if !transition.status.IsValid() {
		return TransitionOutcome{}, invalidStatus(transition.status)
	}
	stage, err := e.resolveStage(ctx, stageID)
	if err != nil {
		return TransitionOutcome{}, err
	}
	existing, err := e.load(ctx, e.ledger, orderID, stage.ID)
	if err != nil {
		return TransitionOutcome{}, err
	}
	return e.applyLoaded(ctx, orderID, stage, transition, existing)
}

func (e *Engine) resolveStage(ctx context.Context, stageID uuid.UUID) (*stages.Stage, error) {
	stage, err := e.catalog.Get(ctx, stageID)
	if err != nil {
		if stages.IsNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidStage, stageID)
		}
		return nil, storageError("stage lookup", uuid.Nil, stageID, err)
	}
	return stage, nil
}

// load returns the stored row or nil when the pair has never been written.
func (e *Engine) load(ctx context.Context, ledger LedgerRepository, orderID, stageID uuid.UUID) (*OrderProgress, error) {
	row, err := ledger.Get(ctx, orderID, stageID)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, storageError("load progress", orderID, stageID, err)
	}
	return row, nil
}

// applyLoaded runs the transition against an already loaded row. A nil
// existing row is treated as not_started.
func (e *Engine) applyLoaded(ctx context.Context, orderID uuid.UUID, stage *stages.Stage, transition ProgressTransition, existing *OrderProgress) (outcome TransitionOutcome, err error) {
	ctx, span := e.tracer.Start(ctx, "progress.apply_transition", trace.WithAttributes(
		attribute.String("order.id", orderID.String()),
		attribute.String("stage.name", stage.Name),
		attribute.String("progress.status", string(transition.status)),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	logger := logging.WithProgressContext(e.logger, orderID, stage.ID, uuid.Nil)

	previous := domain.ProgressNotStarted
	if existing != nil {
		previous = existing.Status
	}
	if existing.Locked() && transition.status != domain.ProgressCompleted {
		return TransitionOutcome{}, &ImmutableStateError{
			OrderID:     orderID,
			StageID:     stage.ID,
			CompletedAt: *existing.CompletedAt,
			Requested:   transition.status,
		}
	}

	now := e.now()
	row := nextRow(orderID, stage.ID, existing, transition, now)

	run := func(ctx context.Context, ledger LedgerRepository) error {
		stored, err := ledger.Upsert(ctx, row)
		if err != nil {
			if IsImmutableState(err) {
				return err
			}
			return storageError("upsert progress", orderID, stage.ID, err)
		}
		outcome = TransitionOutcome{
			Stage:    stage,
			Previous: previous,
			Progress: stored,
			Changed:  previous != stored.Status,
		}
		if !transition.status.Started() {
			return nil
		}
		cascaded, failures := e.cascade(ctx, ledger, orderID, stage, now)
		outcome.Cascaded = cascaded
		outcome.CascadeFailures = failures
		if e.atomic && len(failures) > 0 {
			return failures[0].Err
		}
		return nil
	}

	if e.atomic {
		err = e.ledger.WithinTransaction(ctx, run)
	} else {
		err = run(ctx, e.ledger)
	}
	if err != nil {
		logger.Error("progress.transition.failed", "status", transition.status, "error", err)
		return TransitionOutcome{}, err
	}

	for _, failure := range outcome.CascadeFailures {
		logger.Error("progress.cascade.failed", "prior_stage_id", failure.StageID.String(), "error", failure.Err)
	}
	logger.Debug("progress.transition.applied",
		"previous", previous,
		"status", outcome.Progress.Status,
		"changed", outcome.Changed,
		"cascaded", len(outcome.Cascaded),
	)
	return outcome, nil
}

// nextRow computes the row that should be stored for the transition.
func nextRow(orderID, stageID uuid.UUID, existing *OrderProgress, transition ProgressTransition, now time.Time) *OrderProgress {
	var row *OrderProgress
	if existing != nil {
		row = cloneProgress(existing)
	} else {
		row = &OrderProgress{
			OrderID:   orderID,
			StageID:   stageID,
			Status:    domain.ProgressNotStarted,
			CreatedAt: now,
		}
	}
	transition.apply(row)

	switch transition.status {
	case domain.ProgressInProgress:
		if row.StartedAt == nil {
			row.StartedAt = cloneTime(&now)
		}
	case domain.ProgressCompleted:
		if row.CompletedAt == nil {
			row.CompletedAt = cloneTime(&now)
		}
		if row.StartedAt == nil {
			row.StartedAt = cloneTime(&now)
		}
	}
	row.UpdatedAt = now
	return row
}

// cascade completes every earlier stage that is not yet completed. Completed
// rows are left untouched. Read and write failures are collected so the
// caller can decide whether they are fatal. A failed read is reported against
// the target stage.
func (e *Engine) cascade(ctx context.Context, ledger LedgerRepository, orderID uuid.UUID, target *stages.Stage, now time.Time) ([]uuid.UUID, []CascadeFailure) {
	prior, err := e.catalog.ListBefore(ctx, target.SortOrder)
	if err != nil {
		return nil, []CascadeFailure{{StageID: target.ID, Err: storageError("list prior stages", orderID, target.ID, err)}}
	}
	if len(prior) == 0 {
		return nil, nil
	}

	rows, err := ledger.List(ctx, []uuid.UUID{orderID}, nil)
	if err != nil {
		return nil, []CascadeFailure{{StageID: target.ID, Err: storageError("list progress", orderID, target.ID, err)}}
	}
	byStage := make(map[uuid.UUID]*OrderProgress, len(rows))
	for _, row := range rows {
		byStage[row.StageID] = row
	}

	var cascaded []uuid.UUID
	var failures []CascadeFailure
	for _, stage := range prior {
		current := byStage[stage.ID]
		if current != nil && current.Status == domain.ProgressCompleted {
			continue
		}
		row := completedRow(orderID, stage.ID, current, now)
		if _, err := ledger.Upsert(ctx, row); err != nil {
			failures = append(failures, CascadeFailure{
				StageID: stage.ID,
				Err:     storageError("cascade progress", orderID, stage.ID, err),
			})
			if e.atomic {
				break
			}
			continue
		}
		cascaded = append(cascaded, stage.ID)
	}
	return cascaded, failures
}

func completedRow(orderID, stageID uuid.UUID, current *OrderProgress, now time.Time) *OrderProgress {
	var row *OrderProgress
	if current != nil {
		row = cloneProgress(current)
	} else {
		row = &OrderProgress{OrderID: orderID, StageID: stageID, CreatedAt: now}
	}
	row.Status = domain.ProgressCompleted
	if row.CompletedAt == nil {
		row.CompletedAt = cloneTime(&now)
	}
	if row.StartedAt == nil {
		row.StartedAt = cloneTime(row.CompletedAt)
	}
	row.UpdatedAt = now
	return row
}
