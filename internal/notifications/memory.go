package notifications

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// NewMemoryQueueRepository returns an in-memory queue store.
func NewMemoryQueueRepository() QueueRepository {
	return &memoryQueue{items: make(map[uuid.UUID]*QueueItem)}
}

type memoryQueue struct {
	mu    sync.RWMutex
	items map[uuid.UUID]*QueueItem
	seq   int
	order map[uuid.UUID]int
}

func (m *memoryQueue) InsertBatch(_ context.Context, items []*QueueItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.order == nil {
		m.order = make(map[uuid.UUID]int)
	}
	for _, item := range items {
		if item == nil {
			continue
		}
		cloned := cloneItem(item)
		if cloned.ID == uuid.Nil {
			cloned.ID = uuid.New()
		}
		m.seq++
		m.order[cloned.ID] = m.seq
		m.items[cloned.ID] = cloned
	}
	return nil
}

func (m *memoryQueue) GetByID(_ context.Context, id uuid.UUID) (*QueueItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	item, ok := m.items[id]
	if !ok {
		return nil, &NotFoundError{ID: id}
	}
	return cloneItem(item), nil
}

func (m *memoryQueue) List(_ context.Context, filter QueueFilter) ([]*QueueItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*QueueItem, 0)
	for _, item := range m.items {
		if filter.matches(item) {
			out = append(out, cloneItem(item))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return m.order[out[i].ID] < m.order[out[j].ID]
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (m *memoryQueue) Update(_ context.Context, item *QueueItem) (*QueueItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[item.ID]; !ok {
		return nil, &NotFoundError{ID: item.ID}
	}
	cloned := cloneItem(item)
	m.items[item.ID] = cloned
	return cloneItem(cloned), nil
}

func (m *memoryQueue) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return &NotFoundError{ID: id}
	}
	delete(m.items, id)
	delete(m.order, id)
	return nil
}

func (m *memoryQueue) DeleteByOrder(_ context.Context, orderID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, item := range m.items {
		if item.OrderID == orderID {
			delete(m.items, id)
			delete(m.order, id)
			removed++
		}
	}
	return removed, nil
}
