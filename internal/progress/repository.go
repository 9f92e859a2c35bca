package progress

import (
	"context"

	"github.com/google/uuid"
)

// LedgerRepository stores progress rows keyed by (order_id, stage_id).
type LedgerRepository interface {
	// Get returns the row for the pair or a *NotFoundError.
	Get(ctx context.Context, orderID, stageID uuid.UUID) (*OrderProgress, error)
	// Upsert inserts the row or updates the existing row for the same pair as a
	// single atomic operation and returns the stored state.
	Upsert(ctx context.Context, row *OrderProgress) (*OrderProgress, error)
	// InsertMany stores fresh rows in one transaction.
	InsertMany(ctx context.Context, rows []*OrderProgress) error
	// List returns the rows of the given orders, optionally restricted to one stage.
	List(ctx context.Context, orderIDs []uuid.UUID, stageID *uuid.UUID) ([]*OrderProgress, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]*OrderProgress, error)
	DeleteByOrder(ctx context.Context, orderID uuid.UUID) (int, error)
	// WithinTransaction runs fn against a ledger whose writes commit or roll back together.
	WithinTransaction(ctx context.Context, fn func(ctx context.Context, ledger LedgerRepository) error) error
}

type ledgerKey struct {
	orderID uuid.UUID
	stageID uuid.UUID
}
