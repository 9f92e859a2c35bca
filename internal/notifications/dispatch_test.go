package notifications

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/goliatone/go-order-tracker/internal/domain"
	"github.com/goliatone/go-order-tracker/internal/events"
)

func approveAll(t *testing.T, queue QueueRepository, batchID uuid.UUID) {
	t.Helper()
	if _, err := NewReviewService(queue, WithReviewClock(fixedClock)).ApproveBatch(context.Background(), batchID); err != nil {
		t.Fatalf("approve batch: %v", err)
	}
}

func TestDispatcherSendsApprovedItems(t *testing.T) {
	ctx := context.Background()
	queue := NewMemoryQueueRepository()
	batchID := uuid.New()
	items := seedItems(t, queue, batchID, domain.ChannelSMS, domain.ChannelEmail)
	pending := seedItems(t, queue, uuid.New(), domain.ChannelSMS)[0]
	approveAll(t, queue, batchID)

	sms := &stubTransport{channel: "sms"}
	email := &stubTransport{channel: "email"}
	publisher := events.NewMemoryPublisher()
	dispatcher := NewDispatcher(queue,
		WithTransport(sms),
		WithTransport(email),
		WithDispatchClock(fixedClock),
		WithDispatchPublisher(publisher),
	)

	report, err := dispatcher.Process(ctx)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if report.Attempted != 2 || report.Sent != 2 || report.Failed != 0 {
		t.Fatalf("unexpected report %+v", report)
	}
	if len(sms.sent) != 1 || len(email.sent) != 1 {
		t.Fatalf("expected one message per transport, got sms=%d email=%d", len(sms.sent), len(email.sent))
	}
	if !strings.Contains(email.sent[0].HTML, "<p>Your order moved</p>") {
		t.Fatalf("expected rendered html, got %q", email.sent[0].HTML)
	}
	if sms.sent[0].HTML != "" {
		t.Fatalf("sms must not carry html")
	}

	for _, item := range items {
		stored, _ := queue.GetByID(ctx, item.ID)
		if stored.Status != domain.NotificationSent || stored.SentAt == nil || !stored.SentAt.Equal(fixedNow) {
			t.Fatalf("expected sent item, got %+v", stored)
		}
	}
	if stored, _ := queue.GetByID(ctx, pending.ID); stored.Status != domain.NotificationPendingReview {
		t.Fatalf("unapproved item must not be dispatched, got %s", stored.Status)
	}
	if got := len(publisher.OfType(events.TypeNotificationSent)); got != 2 {
		t.Fatalf("expected 2 sent events, got %d", got)
	}
}

func TestDispatcherMarksFailuresAndMissingTransports(t *testing.T) {
	ctx := context.Background()
	queue := NewMemoryQueueRepository()
	batchID := uuid.New()
	items := seedItems(t, queue, batchID, domain.ChannelSMS, domain.ChannelEmail)
	approveAll(t, queue, batchID)

	sms := &stubTransport{channel: "sms", err: errors.New("carrier rejected")}
	dispatcher := NewDispatcher(queue, WithTransport(sms), WithDispatchClock(fixedClock))

	report, err := dispatcher.Process(ctx)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if report.Attempted != 2 || report.Failed != 2 || report.Sent != 0 {
		t.Fatalf("unexpected report %+v", report)
	}

	smsItem, _ := queue.GetByID(ctx, items[0].ID)
	if smsItem.Status != domain.NotificationFailed || smsItem.ErrorMessage == nil || *smsItem.ErrorMessage != "carrier rejected" {
		t.Fatalf("unexpected sms item %+v", smsItem)
	}
	emailItem, _ := queue.GetByID(ctx, items[1].ID)
	if emailItem.Status != domain.NotificationFailed || emailItem.ErrorMessage == nil || !strings.Contains(*emailItem.ErrorMessage, "no transport") {
		t.Fatalf("expected missing transport failure, got %+v", emailItem)
	}

	again, err := dispatcher.Process(ctx)
	if err != nil || again.Attempted != 0 {
		t.Fatalf("failed items must not be retried automatically, got %+v %v", again, err)
	}
}

func TestDispatcherRespectsBatchSize(t *testing.T) {
	ctx := context.Background()
	queue := NewMemoryQueueRepository()
	batchID := uuid.New()
	seedItems(t, queue, batchID, domain.ChannelSMS, domain.ChannelSMS, domain.ChannelSMS)
	approveAll(t, queue, batchID)

	dispatcher := NewDispatcher(queue, WithTransport(&stubTransport{channel: "sms"}), WithDispatchBatchSize(2))
	first, err := dispatcher.Process(ctx)
	if err != nil || first.Sent != 2 {
		t.Fatalf("expected 2 sent in first run, got %+v %v", first, err)
	}
	second, err := dispatcher.Process(ctx)
	if err != nil || second.Sent != 1 {
		t.Fatalf("expected remaining item in second run, got %+v %v", second, err)
	}
}
