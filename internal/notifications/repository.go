package notifications

import (
	"context"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// QueueRepository persists notification queue items.
type QueueRepository interface {
	InsertBatch(ctx context.Context, items []*QueueItem) error
	GetByID(ctx context.Context, id uuid.UUID) (*QueueItem, error)
	// List returns matching items oldest first.
	List(ctx context.Context, filter QueueFilter) ([]*QueueItem, error)
	Update(ctx context.Context, item *QueueItem) (*QueueItem, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByOrder(ctx context.Context, orderID uuid.UUID) (int, error)
}

// NewQueueItemRepository creates the go-repository-bun repository backing the queue.
func NewQueueItemRepository(db *bun.DB) repository.Repository[*QueueItem] {
	return repository.MustNewRepository(db, repository.ModelHandlers[*QueueItem]{
		NewRecord:          func() *QueueItem { return &QueueItem{} },
		GetID:              func(item *QueueItem) uuid.UUID { return item.ID },
		SetID:              func(item *QueueItem, id uuid.UUID) { item.ID = id },
		GetIdentifier:      func() string { return "id" },
		GetIdentifierValue: func(item *QueueItem) string { return item.ID.String() },
	})
}
