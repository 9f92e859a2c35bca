package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event types emitted by the tracker.
const (
	TypeProgressTransitioned = "progress.transitioned"
	TypeBulkCompleted        = "progress.bulk_completed"
	TypeNotificationsQueued  = "notifications.queued"
	TypeNotificationSent     = "notifications.sent"
	TypeNotificationFailed   = "notifications.failed"
	TypeOrderDeleted         = "orders.deleted"
)

// Event is a domain fact published after a state change has been stored.
type Event struct {
	ID         uuid.UUID      `json:"id"`
	Type       string         `json:"type"`
	OccurredAt time.Time      `json:"occurred_at"`
	OrderID    uuid.UUID      `json:"order_id,omitempty"`
	StageID    uuid.UUID      `json:"stage_id,omitempty"`
	BatchID    uuid.UUID      `json:"batch_id,omitempty"`
	Payload    map[string]any `json:"payload,omitempty"`
}

// New stamps an event with an id and timestamp.
func New(eventType string, orderID uuid.UUID, payload map[string]any) Event {
	return Event{
		ID:         uuid.New(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		OrderID:    orderID,
		Payload:    payload,
	}
}

// Key returns the partitioning key for the event.
func (e Event) Key() string {
	if e.OrderID != uuid.Nil {
		return e.OrderID.String()
	}
	if e.BatchID != uuid.Nil {
		return e.BatchID.String()
	}
	return e.ID.String()
}

// Publisher delivers events to downstream consumers. Publishing is best
// effort: callers log failures and never roll back stored state.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NewNoopPublisher returns a publisher that drops every event.
func NewNoopPublisher() Publisher {
	return noopPublisher{}
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, Event) error { return nil }

// MemoryPublisher records events in memory.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []Event
}

// NewMemoryPublisher returns an empty recording publisher.
func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

func (m *MemoryPublisher) Publish(_ context.Context, event Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

// Events returns a copy of everything published so far.
func (m *MemoryPublisher) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}

// OfType filters recorded events by type.
func (m *MemoryPublisher) OfType(eventType string) []Event {
	var out []Event
	for _, event := range m.Events() {
		if event.Type == eventType {
			out = append(out, event)
		}
	}
	return out
}
