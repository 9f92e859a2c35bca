package stages

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// NewMemoryRepository returns an in-memory catalog used by tests and the memory storage profile.
func NewMemoryRepository() Repository {
	return &memoryRepository{
		byID:   make(map[uuid.UUID]*Stage),
		byName: make(map[string]uuid.UUID),
	}
}

type memoryRepository struct {
	mu     sync.RWMutex
	byID   map[uuid.UUID]*Stage
	byName map[string]uuid.UUID
}

func (m *memoryRepository) Create(_ context.Context, stage *Stage) (*Stage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cloned := cloneStage(stage)
	if cloned.ID == uuid.Nil {
		cloned.ID = uuid.New()
	}
	m.byID[cloned.ID] = cloned
	m.byName[cloned.Name] = cloned.ID
	return cloneStage(cloned), nil
}

func (m *memoryRepository) Update(_ context.Context, stage *Stage) (*Stage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.byID[stage.ID]
	if !ok {
		return nil, &NotFoundError{Resource: "stage", Key: stage.ID.String()}
	}
	if existing.Name != stage.Name {
		delete(m.byName, existing.Name)
	}
	cloned := cloneStage(stage)
	m.byID[cloned.ID] = cloned
	m.byName[cloned.Name] = cloned.ID
	return cloneStage(cloned), nil
}

func (m *memoryRepository) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.byID[id]
	if !ok {
		return &NotFoundError{Resource: "stage", Key: id.String()}
	}
	delete(m.byName, existing.Name)
	delete(m.byID, id)
	return nil
}

func (m *memoryRepository) GetByID(_ context.Context, id uuid.UUID) (*Stage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stage, ok := m.byID[id]
	if !ok {
		return nil, &NotFoundError{Resource: "stage", Key: id.String()}
	}
	return cloneStage(stage), nil
}

func (m *memoryRepository) GetByName(_ context.Context, name string) (*Stage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.byName[name]
	if !ok {
		return nil, &NotFoundError{Resource: "stage", Key: name}
	}
	return cloneStage(m.byID[id]), nil
}

func (m *memoryRepository) List(_ context.Context) ([]*Stage, error) {
	return m.collect(func(*Stage) bool { return true }), nil
}

func (m *memoryRepository) ListBefore(_ context.Context, sortOrder int) ([]*Stage, error) {
	return m.collect(func(stage *Stage) bool { return stage.SortOrder < sortOrder }), nil
}

func (m *memoryRepository) collect(keep func(*Stage) bool) []*Stage {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Stage, 0, len(m.byID))
	for _, stage := range m.byID {
		if keep(stage) {
			out = append(out, cloneStage(stage))
		}
	}
	sortStages(out)
	return out
}

func sortStages(records []*Stage) {
	sort.Slice(records, func(i, j int) bool {
		return records[i].SortOrder < records[j].SortOrder
	})
}

func cloneStage(stage *Stage) *Stage {
	if stage == nil {
		return nil
	}
	cloned := *stage
	return &cloned
}
