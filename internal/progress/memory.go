package progress

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// NewMemoryLedger returns an in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{rows: make(map[ledgerKey]*OrderProgress)}
}

// MemoryLedger implements LedgerRepository with a mutex-guarded map.
type MemoryLedger struct {
	mu   sync.RWMutex
	txMu sync.Mutex
	rows map[ledgerKey]*OrderProgress
}

func (m *MemoryLedger) Get(_ context.Context, orderID, stageID uuid.UUID) (*OrderProgress, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	row, ok := m.rows[ledgerKey{orderID: orderID, stageID: stageID}]
	if !ok {
		return nil, &NotFoundError{OrderID: orderID, StageID: stageID}
	}
	return cloneProgress(row), nil
}

func (m *MemoryLedger) Upsert(_ context.Context, row *OrderProgress) (*OrderProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, err := m.upsertLocked(row)
	if err != nil {
		return nil, err
	}
	return cloneProgress(stored), nil
}

// upsertLocked refuses to move a stored completed row to another status and
// keeps the first recorded timestamps.
func (m *MemoryLedger) upsertLocked(row *OrderProgress) (*OrderProgress, error) {
	key := ledgerKey{orderID: row.OrderID, stageID: row.StageID}
	cloned := cloneProgress(row)
	if existing, ok := m.rows[key]; ok {
		if err := checkImmutable(existing, row.Status); err != nil {
			return nil, err
		}
		cloned.ID = existing.ID
		cloned.CreatedAt = existing.CreatedAt
		if existing.CompletedAt != nil {
			cloned.CompletedAt = cloneTime(existing.CompletedAt)
		}
		if existing.StartedAt != nil {
			cloned.StartedAt = cloneTime(existing.StartedAt)
		}
	}
	if cloned.ID == uuid.Nil {
		cloned.ID = uuid.New()
	}
	m.rows[key] = cloned
	return cloned, nil
}

func (m *MemoryLedger) InsertMany(_ context.Context, rows []*OrderProgress) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range rows {
		if row == nil {
			continue
		}
		if _, err := m.upsertLocked(row); err != nil {
			return err
		}
	}
	return nil
}

func (m *MemoryLedger) List(_ context.Context, orderIDs []uuid.UUID, stageID *uuid.UUID) ([]*OrderProgress, error) {
	if len(orderIDs) == 0 {
		return nil, nil
	}
	wanted := make(map[uuid.UUID]struct{}, len(orderIDs))
	for _, id := range orderIDs {
		wanted[id] = struct{}{}
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*OrderProgress, 0)
	for key, row := range m.rows {
		if _, ok := wanted[key.orderID]; !ok {
			continue
		}
		if stageID != nil && key.stageID != *stageID {
			continue
		}
		out = append(out, cloneProgress(row))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OrderID != out[j].OrderID {
			return out[i].OrderID.String() < out[j].OrderID.String()
		}
		return out[i].StageID.String() < out[j].StageID.String()
	})
	return out, nil
}

func (m *MemoryLedger) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*OrderProgress, error) {
	return m.List(ctx, []uuid.UUID{orderID}, nil)
}

func (m *MemoryLedger) DeleteByOrder(_ context.Context, orderID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key := range m.rows {
		if key.orderID == orderID {
			delete(m.rows, key)
			removed++
		}
	}
	return removed, nil
}

// WithinTransaction serialises transactional callers and restores every row
// the callback wrote when it returns an error.
func (m *MemoryLedger) WithinTransaction(ctx context.Context, fn func(ctx context.Context, ledger LedgerRepository) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	tx := &memoryTx{parent: m, originals: make(map[ledgerKey]*OrderProgress)}
	if err := fn(ctx, tx); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

type memoryTx struct {
	parent    *MemoryLedger
	originals map[ledgerKey]*OrderProgress
}

func (t *memoryTx) remember(key ledgerKey) {
	if _, seen := t.originals[key]; seen {
		return
	}
	t.parent.mu.RLock()
	t.originals[key] = cloneProgress(t.parent.rows[key])
	t.parent.mu.RUnlock()
}

func (t *memoryTx) rollback() {
	t.parent.mu.Lock()
	defer t.parent.mu.Unlock()
	for key, original := range t.originals {
		if original == nil {
			delete(t.parent.rows, key)
			continue
		}
		t.parent.rows[key] = original
	}
}

func (t *memoryTx) Get(ctx context.Context, orderID, stageID uuid.UUID) (*OrderProgress, error) {
	return t.parent.Get(ctx, orderID, stageID)
}

func (t *memoryTx) Upsert(ctx context.Context, row *OrderProgress) (*OrderProgress, error) {
	t.remember(ledgerKey{orderID: row.OrderID, stageID: row.StageID})
	return t.parent.Upsert(ctx, row)
}

func (t *memoryTx) InsertMany(ctx context.Context, rows []*OrderProgress) error {
	for _, row := range rows {
		if row != nil {
			t.remember(ledgerKey{orderID: row.OrderID, stageID: row.StageID})
		}
	}
	return t.parent.InsertMany(ctx, rows)
}

func (t *memoryTx) List(ctx context.Context, orderIDs []uuid.UUID, stageID *uuid.UUID) ([]*OrderProgress, error) {
	return t.parent.List(ctx, orderIDs, stageID)
}

func (t *memoryTx) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*OrderProgress, error) {
	return t.parent.ListByOrder(ctx, orderID)
}

func (t *memoryTx) DeleteByOrder(ctx context.Context, orderID uuid.UUID) (int, error) {
	rows, err := t.parent.ListByOrder(ctx, orderID)
	if err != nil {
		return 0, err
	}
	for _, row := range rows {
		t.remember(ledgerKey{orderID: row.OrderID, stageID: row.StageID})
	}
	return t.parent.DeleteByOrder(ctx, orderID)
}

func (t *memoryTx) WithinTransaction(ctx context.Context, fn func(ctx context.Context, ledger LedgerRepository) error) error {
	return fn(ctx, t)
}
