package notifications

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-order-tracker/internal/domain"
)

// QueueItem is one outbound message waiting for review or dispatch.
type QueueItem struct {
	bun.BaseModel `bun:"table:notification_queue,alias:nq"`

	ID           uuid.UUID                 `bun:",pk,type:uuid" json:"id"`
	OrderID      uuid.UUID                 `bun:"order_id,notnull,type:uuid" json:"order_id"`
	StageID      uuid.UUID                 `bun:"stage_id,notnull,type:uuid" json:"stage_id"`
	Channel      domain.Channel            `bun:"channel,notnull" json:"channel"`
	Recipient    string                    `bun:"recipient,notnull" json:"recipient"`
	Subject      string                    `bun:"subject" json:"subject,omitempty"`
	MessageBody  string                    `bun:"message_body,notnull" json:"message_body"`
	Status       domain.NotificationStatus `bun:"status,notnull" json:"status"`
	BatchID      uuid.UUID                 `bun:"batch_id,notnull,type:uuid" json:"batch_id"`
	ReviewedAt   *time.Time                `bun:"reviewed_at,nullzero" json:"reviewed_at,omitempty"`
	SentAt       *time.Time                `bun:"sent_at,nullzero" json:"sent_at,omitempty"`
	ErrorMessage *string                   `bun:"error_message" json:"error_message,omitempty"`
	CreatedAt    time.Time                 `bun:"created_at,nullzero,default:current_timestamp" json:"created_at"`
	UpdatedAt    time.Time                 `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at"`
}

// QueueFilter narrows List results. Zero values match everything.
type QueueFilter struct {
	Status  domain.NotificationStatus
	BatchID uuid.UUID
	OrderID uuid.UUID
	Limit   int
}

func (f QueueFilter) matches(item *QueueItem) bool {
	if f.Status != "" && item.Status != f.Status {
		return false
	}
	if f.BatchID != uuid.Nil && item.BatchID != f.BatchID {
		return false
	}
	if f.OrderID != uuid.Nil && item.OrderID != f.OrderID {
		return false
	}
	return true
}

func cloneItem(item *QueueItem) *QueueItem {
	if item == nil {
		return nil
	}
	cloned := *item
	cloned.ReviewedAt = cloneTime(item.ReviewedAt)
	cloned.SentAt = cloneTime(item.SentAt)
	if item.ErrorMessage != nil {
		msg := *item.ErrorMessage
		cloned.ErrorMessage = &msg
	}
	return &cloned
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	copied := *value
	return &copied
}
