package notifications

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-order-tracker/internal/orders"
	"github.com/goliatone/go-order-tracker/internal/stages"
	"github.com/goliatone/go-order-tracker/pkg/interfaces"
)

var fixedNow = time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func testStage() *stages.Stage {
	return &stages.Stage{
		ID:          uuid.New(),
		Name:        "in_production",
		DisplayName: "In Production",
		Description: "Your order is being made.",
		SortOrder:   2,
	}
}

func createOrder(t *testing.T, repo orders.Repository, phone, email string, sms, mail bool) *orders.Order {
	t.Helper()
	ctx := context.Background()
	order, err := repo.Create(ctx, &orders.Order{
		ID:                uuid.New(),
		OrderNumber:       "ORD-1",
		CustomerFirstName: "Ada",
		CustomerLastName:  "Lovelace",
		Phone:             phone,
		Email:             email,
		Source:            "manual",
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if sms || mail {
		if _, err := repo.UpsertPreference(ctx, &orders.NotificationPreference{OrderID: order.ID, SMSEnabled: sms, EmailEnabled: mail}); err != nil {
			t.Fatalf("upsert preference: %v", err)
		}
	}
	return order
}

type stubTransport struct {
	mu      sync.Mutex
	channel string
	sent    []interfaces.OutboundMessage
	err     error
}

func (s *stubTransport) Channel() string { return s.channel }

func (s *stubTransport) Send(_ context.Context, msg interfaces.OutboundMessage) (interfaces.DeliveryReceipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return interfaces.DeliveryReceipt{}, s.err
	}
	s.sent = append(s.sent, msg)
	return interfaces.DeliveryReceipt{ProviderID: "msg-" + msg.ID}, nil
}

var errQueueDown = errors.New("queue down")

type failingQueue struct {
	QueueRepository
}

func (failingQueue) InsertBatch(context.Context, []*QueueItem) error { return errQueueDown }
