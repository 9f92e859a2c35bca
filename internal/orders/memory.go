package orders

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// NewMemoryRepository returns an in-memory order store.
func NewMemoryRepository() Repository {
	return &memoryRepository{
		orders:      make(map[uuid.UUID]*Order),
		byNumber:    make(map[string]uuid.UUID),
		preferences: make(map[uuid.UUID]*NotificationPreference),
	}
}

type memoryRepository struct {
	mu          sync.RWMutex
	orders      map[uuid.UUID]*Order
	byNumber    map[string]uuid.UUID
	preferences map[uuid.UUID]*NotificationPreference
}

func (m *memoryRepository) Create(_ context.Context, order *Order) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cloned := cloneOrder(order)
	if cloned.ID == uuid.Nil {
		cloned.ID = uuid.New()
	}
	cloned.Preference = nil
	m.orders[cloned.ID] = cloned
	m.byNumber[cloned.OrderNumber] = cloned.ID
	return cloneOrder(cloned), nil
}

func (m *memoryRepository) Update(_ context.Context, order *Order) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.orders[order.ID]
	if !ok {
		return nil, &NotFoundError{Resource: "order", Key: order.ID.String()}
	}
	if existing.OrderNumber != order.OrderNumber {
		delete(m.byNumber, existing.OrderNumber)
	}
	cloned := cloneOrder(order)
	cloned.Preference = nil
	m.orders[cloned.ID] = cloned
	m.byNumber[cloned.OrderNumber] = cloned.ID
	return cloneOrder(cloned), nil
}

func (m *memoryRepository) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.orders[id]
	if !ok {
		return &NotFoundError{Resource: "order", Key: id.String()}
	}
	delete(m.byNumber, existing.OrderNumber)
	delete(m.orders, id)
	return nil
}

func (m *memoryRepository) GetByID(_ context.Context, id uuid.UUID) (*Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	order, ok := m.orders[id]
	if !ok {
		return nil, &NotFoundError{Resource: "order", Key: id.String()}
	}
	return m.withPreference(order), nil
}

func (m *memoryRepository) GetByNumber(_ context.Context, orderNumber string) (*Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byNumber[orderNumber]
	if !ok {
		return nil, &NotFoundError{Resource: "order", Key: orderNumber}
	}
	return m.withPreference(m.orders[id]), nil
}

func (m *memoryRepository) GetByIDs(_ context.Context, ids []uuid.UUID) ([]*Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Order, 0, len(ids))
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if order, ok := m.orders[id]; ok {
			out = append(out, m.withPreference(order))
		}
	}
	return out, nil
}

func (m *memoryRepository) GetPreference(_ context.Context, orderID uuid.UUID) (*NotificationPreference, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	pref, ok := m.preferences[orderID]
	if !ok {
		return nil, &NotFoundError{Resource: "notification_preference", Key: orderID.String()}
	}
	return clonePreference(pref), nil
}

func (m *memoryRepository) UpsertPreference(_ context.Context, pref *NotificationPreference) (*NotificationPreference, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cloned := clonePreference(pref)
	if existing, ok := m.preferences[cloned.OrderID]; ok {
		cloned.ID = existing.ID
	}
	if cloned.ID == uuid.Nil {
		cloned.ID = uuid.New()
	}
	m.preferences[cloned.OrderID] = cloned
	return clonePreference(cloned), nil
}

func (m *memoryRepository) DeletePreference(_ context.Context, orderID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.preferences, orderID)
	return nil
}

// withPreference must be called with the read lock held.
func (m *memoryRepository) withPreference(order *Order) *Order {
	cloned := cloneOrder(order)
	if pref, ok := m.preferences[order.ID]; ok {
		cloned.Preference = clonePreference(pref)
	}
	return cloned
}

func cloneOrder(order *Order) *Order {
	if order == nil {
		return nil
	}
	cloned := *order
	cloned.Preference = clonePreference(order.Preference)
	return &cloned
}

func clonePreference(pref *NotificationPreference) *NotificationPreference {
	if pref == nil {
		return nil
	}
	cloned := *pref
	return &cloned
}
