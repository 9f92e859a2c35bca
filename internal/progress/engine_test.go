package progress

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-order-tracker/internal/domain"
)

func TestApplyTransitionCompletesEarlierStages(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t)
	ledger := NewMemoryLedger()
	engine := newTestEngine(p, ledger)
	orderID := uuid.New()

	outcome, err := engine.ApplyTransition(ctx, orderID, p.shipped.ID, mustTransition(t, domain.ProgressCompleted))
	if err != nil {
		t.Fatalf("apply transition: %v", err)
	}
	if !outcome.Changed || outcome.Previous != domain.ProgressNotStarted {
		t.Fatalf("expected change from not_started, got %+v", outcome)
	}
	if len(outcome.Cascaded) != 2 {
		t.Fatalf("expected 2 cascaded stages, got %d", len(outcome.Cascaded))
	}

	for _, stage := range []uuid.UUID{p.payment.ID, p.product.ID} {
		row := mustGet(t, ledger, orderID, stage)
		if row.Status != domain.ProgressCompleted {
			t.Fatalf("expected prior stage completed, got %s", row.Status)
		}
		if row.CompletedAt == nil || !row.CompletedAt.Equal(fixedNow) {
			t.Fatalf("expected completed_at %v, got %v", fixedNow, row.CompletedAt)
		}
		if row.StartedAt == nil || !row.StartedAt.Equal(*row.CompletedAt) {
			t.Fatalf("expected started_at to equal completed_at, got %v", row.StartedAt)
		}
	}

	shipped := mustGet(t, ledger, orderID, p.shipped.ID)
	if shipped.Status != domain.ProgressCompleted || shipped.CompletedAt == nil || shipped.StartedAt == nil {
		t.Fatalf("unexpected shipped row %+v", shipped)
	}

	if _, err := ledger.Get(ctx, orderID, p.delivered.ID); !IsNotFound(err) {
		t.Fatalf("expected delivered to remain untouched, got %v", err)
	}
}

func TestApplyTransitionRejectsDowngradeOfCompletedStage(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t)
	ledger := NewMemoryLedger()
	now := fixedNow
	engine := NewEngine(p.catalog, ledger, WithEngineClock(func() time.Time { return now }))
	orderID := uuid.New()

	if _, err := engine.ApplyTransition(ctx, orderID, p.shipped.ID, mustTransition(t, domain.ProgressCompleted)); err != nil {
		t.Fatalf("complete shipped: %v", err)
	}
	before := mustGet(t, ledger, orderID, p.shipped.ID)

	now = fixedNow.Add(time.Hour)
	for _, status := range []domain.ProgressStatus{domain.ProgressInProgress, domain.ProgressNotStarted} {
		_, err := engine.ApplyTransition(ctx, orderID, p.shipped.ID, mustTransition(t, status))
		var immutable *ImmutableStateError
		if !errors.As(err, &immutable) {
			t.Fatalf("expected ImmutableStateError for %s, got %v", status, err)
		}
		if immutable.Requested != status || !immutable.CompletedAt.Equal(fixedNow) {
			t.Fatalf("unexpected error details %+v", immutable)
		}
	}

	after := mustGet(t, ledger, orderID, p.shipped.ID)
	if after.Status != domain.ProgressCompleted || !after.CompletedAt.Equal(*before.CompletedAt) || !after.UpdatedAt.Equal(before.UpdatedAt) {
		t.Fatalf("expected row unchanged, before %+v after %+v", before, after)
	}
}

func TestApplyTransitionRecompletingKeepsTimestamps(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t)
	ledger := NewMemoryLedger()
	now := fixedNow
	engine := NewEngine(p.catalog, ledger, WithEngineClock(func() time.Time { return now }))
	orderID := uuid.New()

	if _, err := engine.ApplyTransition(ctx, orderID, p.product.ID, mustTransition(t, domain.ProgressCompleted)); err != nil {
		t.Fatalf("first completion: %v", err)
	}
	now = fixedNow.Add(2 * time.Hour)
	outcome, err := engine.ApplyTransition(ctx, orderID, p.product.ID, mustTransition(t, domain.ProgressCompleted))
	if err != nil {
		t.Fatalf("second completion: %v", err)
	}
	if outcome.Changed {
		t.Fatalf("expected no-op transition")
	}
	row := mustGet(t, ledger, orderID, p.product.ID)
	if !row.CompletedAt.Equal(fixedNow) || !row.StartedAt.Equal(fixedNow) {
		t.Fatalf("expected original timestamps, got started %v completed %v", row.StartedAt, row.CompletedAt)
	}
}

func TestApplyTransitionInProgressIsIdempotent(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t)
	ledger := NewMemoryLedger()
	now := fixedNow
	engine := NewEngine(p.catalog, ledger, WithEngineClock(func() time.Time { return now }))
	orderID := uuid.New()

	first, err := engine.ApplyTransition(ctx, orderID, p.product.ID, mustTransition(t, domain.ProgressInProgress))
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	if !first.Changed {
		t.Fatalf("expected first call to change status")
	}

	now = fixedNow.Add(time.Minute)
	second, err := engine.ApplyTransition(ctx, orderID, p.product.ID, mustTransition(t, domain.ProgressInProgress))
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if second.Changed {
		t.Fatalf("expected second call to be a no-op")
	}
	row := mustGet(t, ledger, orderID, p.product.ID)
	if !row.StartedAt.Equal(fixedNow) || row.CompletedAt != nil {
		t.Fatalf("unexpected timestamps %+v", row)
	}

	payment := mustGet(t, ledger, orderID, p.payment.ID)
	if payment.Status != domain.ProgressCompleted {
		t.Fatalf("expected in_progress to cascade completion to payment, got %s", payment.Status)
	}
}

func TestApplyTransitionCascadeLeavesCompletedRowsAlone(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t)
	ledger := NewMemoryLedger()
	now := fixedNow
	engine := NewEngine(p.catalog, ledger, WithEngineClock(func() time.Time { return now }))
	orderID := uuid.New()

	if _, err := engine.ApplyTransition(ctx, orderID, p.payment.ID, mustTransition(t, domain.ProgressCompleted)); err != nil {
		t.Fatalf("complete payment: %v", err)
	}
	now = fixedNow.Add(time.Hour)
	if _, err := engine.ApplyTransition(ctx, orderID, p.product.ID, mustTransition(t, domain.ProgressInProgress)); err != nil {
		t.Fatalf("start production: %v", err)
	}
	now = fixedNow.Add(3 * time.Hour)
	outcome, err := engine.ApplyTransition(ctx, orderID, p.delivered.ID, mustTransition(t, domain.ProgressCompleted))
	if err != nil {
		t.Fatalf("complete delivered: %v", err)
	}
	if len(outcome.Cascaded) != 2 {
		t.Fatalf("expected production and shipped to cascade, got %d", len(outcome.Cascaded))
	}

	payment := mustGet(t, ledger, orderID, p.payment.ID)
	if !payment.CompletedAt.Equal(fixedNow) {
		t.Fatalf("payment completed_at overwritten: %v", payment.CompletedAt)
	}
	production := mustGet(t, ledger, orderID, p.product.ID)
	if !production.StartedAt.Equal(fixedNow.Add(time.Hour)) {
		t.Fatalf("production started_at overwritten: %v", production.StartedAt)
	}
	if !production.CompletedAt.Equal(fixedNow.Add(3 * time.Hour)) {
		t.Fatalf("production completed_at not set by cascade: %v", production.CompletedAt)
	}
}

func TestApplyTransitionNotStartedDoesNotCascade(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t)
	ledger := NewMemoryLedger()
	engine := newTestEngine(p, ledger)
	orderID := uuid.New()

	outcome, err := engine.ApplyTransition(ctx, orderID, p.shipped.ID, mustTransition(t, domain.ProgressNotStarted))
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if outcome.Changed || len(outcome.Cascaded) != 0 {
		t.Fatalf("expected no change and no cascade, got %+v", outcome)
	}
	rows, _ := ledger.ListByOrder(ctx, orderID)
	if len(rows) != 1 {
		t.Fatalf("expected only the target row, got %d", len(rows))
	}
}

func TestApplyTransitionAllowsEarlierStageBehindCompletedStage(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t)
	ledger := NewMemoryLedger()
	engine := newTestEngine(p, ledger)
	orderID := uuid.New()

	completed := fixedNow.Add(-time.Hour)
	if _, err := ledger.Upsert(ctx, &OrderProgress{
		OrderID:     orderID,
		StageID:     p.shipped.ID,
		Status:      domain.ProgressCompleted,
		StartedAt:   &completed,
		CompletedAt: &completed,
		UpdatedAt:   completed,
	}); err != nil {
		t.Fatalf("seed shipped: %v", err)
	}

	if _, err := engine.ApplyTransition(ctx, orderID, p.product.ID, mustTransition(t, domain.ProgressInProgress)); err != nil {
		t.Fatalf("expected earlier stage update to be allowed: %v", err)
	}
	shipped := mustGet(t, ledger, orderID, p.shipped.ID)
	if !shipped.CompletedAt.Equal(completed) {
		t.Fatalf("later stage should be unaffected, got %v", shipped.CompletedAt)
	}
}

func TestApplyTransitionCascadeFailureIsBestEffort(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t)
	inner := NewMemoryLedger()
	ledger := newFailingLedger(inner)
	ledger.failStages[p.payment.ID] = true
	engine := newTestEngine(p, ledger)
	orderID := uuid.New()

	outcome, err := engine.ApplyTransition(ctx, orderID, p.shipped.ID, mustTransition(t, domain.ProgressCompleted))
	if err != nil {
		t.Fatalf("expected target stage to succeed despite cascade failure: %v", err)
	}
	if len(outcome.CascadeFailures) != 1 || outcome.CascadeFailures[0].StageID != p.payment.ID {
		t.Fatalf("expected one cascade failure for payment, got %+v", outcome.CascadeFailures)
	}
	if !IsStorageError(outcome.CascadeFailures[0].Err) {
		t.Fatalf("expected storage error, got %v", outcome.CascadeFailures[0].Err)
	}
	if mustGet(t, inner, orderID, p.product.ID).Status != domain.ProgressCompleted {
		t.Fatalf("expected production to be completed")
	}
	if mustGet(t, inner, orderID, p.shipped.ID).Status != domain.ProgressCompleted {
		t.Fatalf("expected shipped to be completed")
	}
}

func TestApplyTransitionAtomicCascadeRollsBack(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t)
	inner := NewMemoryLedger()
	ledger := newFailingLedger(inner)
	ledger.failStages[p.product.ID] = true
	engine := newTestEngine(p, ledger, WithAtomicCascade(true))
	orderID := uuid.New()

	_, err := engine.ApplyTransition(ctx, orderID, p.shipped.ID, mustTransition(t, domain.ProgressCompleted))
	if !IsStorageError(err) {
		t.Fatalf("expected storage error, got %v", err)
	}
	rows, _ := inner.ListByOrder(ctx, orderID)
	if len(rows) != 0 {
		t.Fatalf("expected rollback to leave no rows, got %d", len(rows))
	}
}

func TestApplyTransitionValidatesInputs(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t)
	engine := newTestEngine(p, NewMemoryLedger())

	if _, err := engine.ApplyTransition(ctx, uuid.New(), uuid.New(), mustTransition(t, domain.ProgressCompleted)); !errors.Is(err, ErrInvalidStage) {
		t.Fatalf("expected ErrInvalidStage, got %v", err)
	}
	if _, err := engine.ApplyTransition(ctx, uuid.Nil, p.payment.ID, mustTransition(t, domain.ProgressCompleted)); !errors.Is(err, ErrOrderIDRequired) {
		t.Fatalf("expected ErrOrderIDRequired, got %v", err)
	}
	if _, err := NewProgressTransition("shipped_ish"); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
	if _, err := engine.ApplyTransition(ctx, uuid.New(), p.payment.ID, ProgressTransition{}); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected zero transition to be rejected, got %v", err)
	}

	start := fixedNow.Add(48 * time.Hour)
	end := fixedNow
	if _, err := NewProgressTransition(domain.ProgressInProgress, WithEstimatedDates(&start, &end)); !errors.Is(err, ErrEstimatedDatesInvalid) {
		t.Fatalf("expected ErrEstimatedDatesInvalid, got %v", err)
	}
}

func TestApplyTransitionStoresEstimatesAndNotes(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t)
	ledger := NewMemoryLedger()
	engine := newTestEngine(p, ledger)
	orderID := uuid.New()

	start := fixedNow.Add(24 * time.Hour)
	end := fixedNow.Add(72 * time.Hour)
	notes := "  waiting on fabric  "
	tr := mustTransition(t, domain.ProgressInProgress, WithEstimatedDates(&start, &end), WithAdminNotes(&notes))
	if _, err := engine.ApplyTransition(ctx, orderID, p.product.ID, tr); err != nil {
		t.Fatalf("apply: %v", err)
	}
	row := mustGet(t, ledger, orderID, p.product.ID)
	if row.AdminNotes == nil || *row.AdminNotes != "waiting on fabric" {
		t.Fatalf("unexpected notes %v", row.AdminNotes)
	}
	if !row.EstimatedStartDate.Equal(start) || !row.EstimatedEndDate.Equal(end) {
		t.Fatalf("unexpected estimates %v %v", row.EstimatedStartDate, row.EstimatedEndDate)
	}

	if _, err := engine.ApplyTransition(ctx, orderID, p.product.ID, mustTransition(t, domain.ProgressInProgress)); err != nil {
		t.Fatalf("apply without optional fields: %v", err)
	}
	if row := mustGet(t, ledger, orderID, p.product.ID); row.AdminNotes == nil || row.EstimatedEndDate == nil {
		t.Fatalf("expected optional fields to be retained, got %+v", row)
	}

	empty := ""
	if _, err := engine.ApplyTransition(ctx, orderID, p.product.ID, mustTransition(t, domain.ProgressInProgress, WithAdminNotes(&empty))); err != nil {
		t.Fatalf("clear notes: %v", err)
	}
	if row := mustGet(t, ledger, orderID, p.product.ID); row.AdminNotes != nil {
		t.Fatalf("expected notes cleared, got %q", *row.AdminNotes)
	}
}

func TestApplyTransitionReportsLoadFailureAsStorageError(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t)
	ledger := newFailingLedger(NewMemoryLedger())
	orderID := uuid.New()
	ledger.failOrders[orderID] = true
	engine := newTestEngine(p, ledger)

	_, err := engine.ApplyTransition(ctx, orderID, p.product.ID, mustTransition(t, domain.ProgressCompleted))
	var storage *StorageError
	if !errors.As(err, &storage) {
		t.Fatalf("expected StorageError, got %v", err)
	}
	if storage.Op != "load progress" || !errors.Is(err, errInjected) {
		t.Fatalf("unexpected storage error %+v", storage)
	}
}

func TestApplyTransitionCascadeReadFailureKeepsTarget(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t)
	inner := NewMemoryLedger()
	ledger := newFailingLedger(inner)
	ledger.failListAll = true
	engine := newTestEngine(p, ledger)
	orderID := uuid.New()

	outcome, err := engine.ApplyTransition(ctx, orderID, p.shipped.ID, mustTransition(t, domain.ProgressCompleted))
	if err != nil {
		t.Fatalf("stored transition must be reported as applied: %v", err)
	}
	if !outcome.Changed || outcome.Progress.Status != domain.ProgressCompleted {
		t.Fatalf("expected changed completed outcome, got %+v", outcome)
	}
	if len(outcome.CascadeFailures) != 1 || outcome.CascadeFailures[0].StageID != p.shipped.ID {
		t.Fatalf("expected the read failure recorded against the target stage, got %+v", outcome.CascadeFailures)
	}
	if !errors.Is(outcome.CascadeFailures[0].Err, errInjected) {
		t.Fatalf("expected injected error, got %v", outcome.CascadeFailures[0].Err)
	}
	if mustGet(t, inner, orderID, p.shipped.ID).Status != domain.ProgressCompleted {
		t.Fatalf("expected shipped to be completed")
	}
}

func TestApplyTransitionAtomicCascadeReadFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	p := newPipeline(t)
	inner := NewMemoryLedger()
	ledger := newFailingLedger(inner)
	ledger.failListAll = true
	engine := newTestEngine(p, ledger, WithAtomicCascade(true))
	orderID := uuid.New()

	_, err := engine.ApplyTransition(ctx, orderID, p.shipped.ID, mustTransition(t, domain.ProgressCompleted))
	if !IsStorageError(err) {
		t.Fatalf("expected storage error, got %v", err)
	}
	rows, _ := inner.ListByOrder(ctx, orderID)
	if len(rows) != 0 {
		t.Fatalf("expected rollback to leave no rows, got %d", len(rows))
	}
}

func TestMemoryLedgerRefusesToOverwriteCompletedRow(t *testing.T) {
	ctx := context.Background()
	ledger := NewMemoryLedger()
	orderID, stageID := uuid.New(), uuid.New()
	completed := fixedNow.Add(-time.Hour)

	if _, err := ledger.Upsert(ctx, &OrderProgress{OrderID: orderID, StageID: stageID, Status: domain.ProgressCompleted, StartedAt: &completed, CompletedAt: &completed, UpdatedAt: completed}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	_, err := ledger.Upsert(ctx, &OrderProgress{OrderID: orderID, StageID: stageID, Status: domain.ProgressInProgress, StartedAt: &fixedNow, UpdatedAt: fixedNow})
	if !IsImmutableState(err) {
		t.Fatalf("expected ImmutableStateError, got %v", err)
	}

	later := fixedNow
	again, err := ledger.Upsert(ctx, &OrderProgress{OrderID: orderID, StageID: stageID, Status: domain.ProgressCompleted, StartedAt: &later, CompletedAt: &later, UpdatedAt: later})
	if err != nil {
		t.Fatalf("re-complete: %v", err)
	}
	if !again.CompletedAt.Equal(completed) || !again.StartedAt.Equal(completed) {
		t.Fatalf("expected first timestamps kept, got started=%v completed=%v", again.StartedAt, again.CompletedAt)
	}
}
