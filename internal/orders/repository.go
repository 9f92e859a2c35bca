package orders

import (
	"context"
	"fmt"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Repository persists orders and their notification preferences.
type Repository interface {
	Create(ctx context.Context, order *Order) (*Order, error)
	Update(ctx context.Context, order *Order) (*Order, error)
	Delete(ctx context.Context, id uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*Order, error)
	GetByNumber(ctx context.Context, orderNumber string) (*Order, error)
	// GetByIDs returns the orders that exist among ids, each with its preference
	// attached when one is stored. Missing ids are omitted.
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*Order, error)

	GetPreference(ctx context.Context, orderID uuid.UUID) (*NotificationPreference, error)
	UpsertPreference(ctx context.Context, pref *NotificationPreference) (*NotificationPreference, error)
	DeletePreference(ctx context.Context, orderID uuid.UUID) error
}

// NotFoundError is returned when an order or preference lookup misses.
type NotFoundError struct {
	Resource string
	Key      string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.Key)
}

// NewOrderRepository creates the go-repository-bun repository backing orders.
func NewOrderRepository(db *bun.DB) repository.Repository[*Order] {
	return repository.MustNewRepository(db, repository.ModelHandlers[*Order]{
		NewRecord:          func() *Order { return &Order{} },
		GetID:              func(order *Order) uuid.UUID { return order.ID },
		SetID:              func(order *Order, id uuid.UUID) { order.ID = id },
		GetIdentifier:      func() string { return "order_number" },
		GetIdentifierValue: func(order *Order) string { return order.OrderNumber },
	})
}

// NewPreferenceRepository creates the go-repository-bun repository backing preferences.
func NewPreferenceRepository(db *bun.DB) repository.Repository[*NotificationPreference] {
	return repository.MustNewRepository(db, repository.ModelHandlers[*NotificationPreference]{
		NewRecord:          func() *NotificationPreference { return &NotificationPreference{} },
		GetID:              func(pref *NotificationPreference) uuid.UUID { return pref.ID },
		SetID:              func(pref *NotificationPreference, id uuid.UUID) { pref.ID = id },
		GetIdentifier:      func() string { return "order_id" },
		GetIdentifierValue: func(pref *NotificationPreference) string { return pref.OrderID.String() },
	})
}
