package progress

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-order-tracker/internal/domain"
)

// BunLedger implements LedgerRepository with bun. The (order_id, stage_id)
// unique constraint backs the upsert conflict target.
type BunLedger struct {
	db bun.IDB
}

// NewBunLedger creates a ledger bound to db.
func NewBunLedger(db bun.IDB) *BunLedger {
	return &BunLedger{db: db}
}

func (r *BunLedger) Get(ctx context.Context, orderID, stageID uuid.UUID) (*OrderProgress, error) {
	row := &OrderProgress{}
	err := r.db.NewSelect().
		Model(row).
		Where("?TableAlias.order_id = ?", orderID).
		Where("?TableAlias.stage_id = ?", stageID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &NotFoundError{OrderID: orderID, StageID: stageID}
		}
		return nil, fmt.Errorf("order_progress repository error: %w", err)
	}
	return row, nil
}

func (r *BunLedger) Upsert(ctx context.Context, row *OrderProgress) (*OrderProgress, error) {
	record := cloneProgress(row)
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = record.UpdatedAt
	}

	_, err := r.db.NewInsert().
		Model(record).
		On("CONFLICT (order_id, stage_id) DO UPDATE").
		Set("status = EXCLUDED.status").
		Set("started_at = COALESCE(?TableAlias.started_at, EXCLUDED.started_at)").
		Set("completed_at = COALESCE(?TableAlias.completed_at, EXCLUDED.completed_at)").
		Set("estimated_start_date = EXCLUDED.estimated_start_date").
		Set("estimated_end_date = EXCLUDED.estimated_end_date").
		Set("admin_notes = EXCLUDED.admin_notes").
		Set("updated_at = EXCLUDED.updated_at").
		Where("?TableAlias.completed_at IS NULL OR EXCLUDED.status = ?", domain.ProgressCompleted).
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("order_progress repository error: %w", err)
	}
	stored, err := r.Get(ctx, record.OrderID, record.StageID)
	if err != nil {
		return nil, err
	}
	// The conditional update leaves a completed row untouched; report it.
	if err := checkImmutable(stored, record.Status); err != nil {
		return nil, err
	}
	return stored, nil
}

func (r *BunLedger) InsertMany(ctx context.Context, rows []*OrderProgress) error {
	records := make([]*OrderProgress, 0, len(rows))
	for _, row := range rows {
		if row == nil {
			continue
		}
		record := cloneProgress(row)
		if record.ID == uuid.Nil {
			record.ID = uuid.New()
		}
		records = append(records, record)
	}
	if len(records) == 0 {
		return nil
	}
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(&records).Exec(ctx); err != nil {
			return fmt.Errorf("order_progress repository error: %w", err)
		}
		return nil
	})
}

func (r *BunLedger) List(ctx context.Context, orderIDs []uuid.UUID, stageID *uuid.UUID) ([]*OrderProgress, error) {
	if len(orderIDs) == 0 {
		return nil, nil
	}
	var rows []*OrderProgress
	query := r.db.NewSelect().
		Model(&rows).
		Where("?TableAlias.order_id IN (?)", bun.In(orderIDs))
	if stageID != nil {
		query = query.Where("?TableAlias.stage_id = ?", *stageID)
	}
	if err := query.OrderExpr("?TableAlias.order_id ASC, ?TableAlias.stage_id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("order_progress repository error: %w", err)
	}
	return rows, nil
}

func (r *BunLedger) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*OrderProgress, error) {
	return r.List(ctx, []uuid.UUID{orderID}, nil)
}

func (r *BunLedger) DeleteByOrder(ctx context.Context, orderID uuid.UUID) (int, error) {
	res, err := r.db.NewDelete().
		Model((*OrderProgress)(nil)).
		Where("order_id = ?", orderID).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("order_progress repository error: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return int(affected), nil
}

func (r *BunLedger) WithinTransaction(ctx context.Context, fn func(ctx context.Context, ledger LedgerRepository) error) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return fn(ctx, &BunLedger{db: tx})
	})
}
