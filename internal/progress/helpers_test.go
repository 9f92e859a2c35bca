package progress

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-order-tracker/internal/domain"
	"github.com/goliatone/go-order-tracker/internal/orders"
	"github.com/goliatone/go-order-tracker/internal/stages"
)

var fixedNow = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

type pipeline struct {
	catalog   stages.Service
	payment   *stages.Stage
	product   *stages.Stage
	shipped   *stages.Stage
	delivered *stages.Stage
}

func newPipeline(t *testing.T) pipeline {
	t.Helper()
	ctx := context.Background()
	svc := stages.NewService(stages.NewMemoryRepository())
	create := func(name string, order int) *stages.Stage {
		stage, err := svc.Create(ctx, stages.CreateStageInput{Name: name, DisplayName: name, Description: name + " description", SortOrder: order})
		if err != nil {
			t.Fatalf("create stage %s: %v", name, err)
		}
		return stage
	}
	return pipeline{
		catalog:   svc,
		payment:   create("payment", 1),
		product:   create("production", 2),
		shipped:   create("shipped", 3),
		delivered: create("delivered", 4),
	}
}

func newTestEngine(p pipeline, ledger LedgerRepository, opts ...EngineOption) *Engine {
	opts = append([]EngineOption{WithEngineClock(func() time.Time { return fixedNow })}, opts...)
	return NewEngine(p.catalog, ledger, opts...)
}

func mustTransition(t *testing.T, status domain.ProgressStatus, opts ...TransitionOption) ProgressTransition {
	t.Helper()
	tr, err := NewProgressTransition(status, opts...)
	if err != nil {
		t.Fatalf("new transition: %v", err)
	}
	return tr
}

func mustCreateOrder(t *testing.T, repo orders.Repository, number string) *orders.Order {
	t.Helper()
	order, err := repo.Create(context.Background(), &orders.Order{
		ID:                uuid.New(),
		OrderNumber:       number,
		CustomerFirstName: "Ada",
		Phone:             "+15550001111",
		Email:             "ada@example.com",
		Source:            "manual",
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	return order
}

func mustGet(t *testing.T, ledger LedgerRepository, orderID, stageID uuid.UUID) *OrderProgress {
	t.Helper()
	row, err := ledger.Get(context.Background(), orderID, stageID)
	if err != nil {
		t.Fatalf("get progress: %v", err)
	}
	return row
}

var errInjected = errors.New("injected storage failure")

// failingLedger wraps a ledger and fails writes for selected stages or orders.
type failingLedger struct {
	LedgerRepository
	mu          sync.Mutex
	failStages  map[uuid.UUID]bool
	failOrders  map[uuid.UUID]bool
	failList    bool
	failListAll bool
}

func newFailingLedger(inner LedgerRepository) *failingLedger {
	return &failingLedger{
		LedgerRepository: inner,
		failStages:       map[uuid.UUID]bool{},
		failOrders:       map[uuid.UUID]bool{},
	}
}

func (f *failingLedger) shouldFail(row *OrderProgress) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.failStages[row.StageID] || f.failOrders[row.OrderID]
}

func (f *failingLedger) Upsert(ctx context.Context, row *OrderProgress) (*OrderProgress, error) {
	if f.shouldFail(row) {
		return nil, errInjected
	}
	return f.LedgerRepository.Upsert(ctx, row)
}

func (f *failingLedger) Get(ctx context.Context, orderID, stageID uuid.UUID) (*OrderProgress, error) {
	f.mu.Lock()
	fail := f.failOrders[orderID]
	f.mu.Unlock()
	if fail {
		return nil, errInjected
	}
	return f.LedgerRepository.Get(ctx, orderID, stageID)
}

func (f *failingLedger) List(ctx context.Context, orderIDs []uuid.UUID, stageID *uuid.UUID) ([]*OrderProgress, error) {
	if f.failListAll || (f.failList && stageID != nil) {
		return nil, errInjected
	}
	return f.LedgerRepository.List(ctx, orderIDs, stageID)
}

func (f *failingLedger) WithinTransaction(ctx context.Context, fn func(ctx context.Context, ledger LedgerRepository) error) error {
	return f.LedgerRepository.WithinTransaction(ctx, func(ctx context.Context, tx LedgerRepository) error {
		wrapped := &failingLedger{LedgerRepository: tx, failStages: f.failStages, failOrders: f.failOrders, failListAll: f.failListAll}
		return fn(ctx, wrapped)
	})
}

// racingLedger completes one (order, stage) row right after the first
// stage-filtered List, standing in for a writer that lands between the bulk
// prefetch and the write.
type racingLedger struct {
	LedgerRepository
	orderID uuid.UUID
	stageID uuid.UUID
	at      time.Time
	once    sync.Once
}

func (r *racingLedger) List(ctx context.Context, orderIDs []uuid.UUID, stageID *uuid.UUID) ([]*OrderProgress, error) {
	rows, err := r.LedgerRepository.List(ctx, orderIDs, stageID)
	if err != nil || stageID == nil {
		return rows, err
	}
	var raceErr error
	r.once.Do(func() {
		_, raceErr = r.LedgerRepository.Upsert(ctx, &OrderProgress{
			OrderID:     r.orderID,
			StageID:     r.stageID,
			Status:      domain.ProgressCompleted,
			StartedAt:   &r.at,
			CompletedAt: &r.at,
			CreatedAt:   r.at,
			UpdatedAt:   r.at,
		})
	})
	return rows, raceErr
}

type recordingQueuer struct {
	mu    sync.Mutex
	calls []queueCall
	err   error
}

type queueCall struct {
	orderID uuid.UUID
	stageID uuid.UUID
	batchID uuid.UUID
}

func (r *recordingQueuer) QueueNotifications(_ context.Context, order *orders.Order, stage *stages.Stage, batchID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, queueCall{orderID: order.ID, stageID: stage.ID, batchID: batchID})
	if r.err != nil {
		return 0, r.err
	}
	return 1, nil
}
