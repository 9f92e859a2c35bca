package notifications

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/goliatone/go-order-tracker/internal/domain"
	"github.com/goliatone/go-order-tracker/pkg/testsupport"
)

func newBunQueue(t *testing.T) *BunQueueRepository {
	t.Helper()
	sqlDB, err := testsupport.NewSQLiteMemoryDB()
	if err != nil {
		t.Fatalf("new sqlite db: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	sqlDB.SetMaxOpenConns(1)

	db := bun.NewDB(sqlDB, sqlitedialect.New())
	if _, err := db.NewCreateTable().Model((*QueueItem)(nil)).IfNotExists().Exec(context.Background()); err != nil {
		t.Fatalf("create notification_queue: %v", err)
	}
	return NewBunQueueRepository(db)
}

func TestBunQueueRepositoryLifecycle(t *testing.T) {
	ctx := context.Background()
	queue := newBunQueue(t)
	batchID := uuid.New()
	items := seedItems(t, queue, batchID, domain.ChannelSMS, domain.ChannelEmail)

	listed, err := queue.List(ctx, QueueFilter{BatchID: batchID, Status: domain.NotificationPendingReview})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("expected 2 items, got %d", len(listed))
	}

	svc := NewReviewService(queue, WithReviewClock(fixedClock))
	approved, err := svc.Approve(ctx, items[0].ID)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Status != domain.NotificationApproved {
		t.Fatalf("unexpected status %s", approved.Status)
	}

	stored, err := queue.GetByID(ctx, items[0].ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Status != domain.NotificationApproved || stored.ReviewedAt == nil {
		t.Fatalf("expected approval persisted, got %+v", stored)
	}

	limited, err := queue.List(ctx, QueueFilter{Limit: 1})
	if err != nil || len(limited) != 1 {
		t.Fatalf("expected limit to apply, got %d %v", len(limited), err)
	}

	if _, err := queue.GetByID(ctx, uuid.New()); !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}

	removed, err := queue.DeleteByOrder(ctx, items[0].OrderID)
	if err != nil || removed != 2 {
		t.Fatalf("expected 2 removed, got %d %v", removed, err)
	}
}
