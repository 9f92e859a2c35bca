package notifications

import (
	"context"
	"fmt"

	"github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// BunQueueRepository implements QueueRepository with go-repository-bun.
type BunQueueRepository struct {
	db    *bun.DB
	items repository.Repository[*QueueItem]
}

// NewBunQueueRepository creates a bun-backed queue repository.
func NewBunQueueRepository(db *bun.DB) *BunQueueRepository {
	return &BunQueueRepository{db: db, items: NewQueueItemRepository(db)}
}

func (r *BunQueueRepository) InsertBatch(ctx context.Context, items []*QueueItem) error {
	records := make([]*QueueItem, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		cloned := cloneItem(item)
		if cloned.ID == uuid.Nil {
			cloned.ID = uuid.New()
		}
		records = append(records, cloned)
	}
	if len(records) == 0 {
		return nil
	}
	if _, err := r.db.NewInsert().Model(&records).Exec(ctx); err != nil {
		return fmt.Errorf("notification queue repository error: %w", err)
	}
	return nil
}

func (r *BunQueueRepository) GetByID(ctx context.Context, id uuid.UUID) (*QueueItem, error) {
	record, err := r.items.GetByID(ctx, id.String())
	if err != nil {
		return nil, mapRepositoryError(err, id)
	}
	return record, nil
}

func (r *BunQueueRepository) List(ctx context.Context, filter QueueFilter) ([]*QueueItem, error) {
	records, _, err := r.items.List(ctx, repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
		if filter.Status != "" {
			q = q.Where("?TableAlias.status = ?", filter.Status)
		}
		if filter.BatchID != uuid.Nil {
			q = q.Where("?TableAlias.batch_id = ?", filter.BatchID)
		}
		if filter.OrderID != uuid.Nil {
			q = q.Where("?TableAlias.order_id = ?", filter.OrderID)
		}
		q = q.OrderExpr("?TableAlias.created_at ASC, ?TableAlias.id ASC")
		if filter.Limit > 0 {
			q = q.Limit(filter.Limit)
		}
		return q
	}))
	if err != nil {
		return nil, fmt.Errorf("notification queue repository error: %w", err)
	}
	return records, nil
}

func (r *BunQueueRepository) Update(ctx context.Context, item *QueueItem) (*QueueItem, error) {
	updated, err := r.items.Update(ctx, item,
		repository.UpdateByID(item.ID.String()),
		repository.UpdateColumns(
			"recipient",
			"subject",
			"message_body",
			"status",
			"reviewed_at",
			"sent_at",
			"error_message",
			"updated_at",
		),
	)
	if err != nil {
		return nil, mapRepositoryError(err, item.ID)
	}
	return updated, nil
}

func (r *BunQueueRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return mapRepositoryError(r.items.Delete(ctx, &QueueItem{ID: id}), id)
}

func (r *BunQueueRepository) DeleteByOrder(ctx context.Context, orderID uuid.UUID) (int, error) {
	res, err := r.db.NewDelete().
		Model((*QueueItem)(nil)).
		Where("order_id = ?", orderID).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("notification queue repository error: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return int(affected), nil
}

func mapRepositoryError(err error, id uuid.UUID) error {
	if err == nil {
		return nil
	}
	if errors.IsCategory(err, repository.CategoryDatabaseNotFound) {
		return &NotFoundError{ID: id}
	}
	return fmt.Errorf("notification queue repository error: %w", err)
}
