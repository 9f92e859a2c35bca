package stages

import (
	"context"
	"fmt"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Repository persists the stage catalog.
type Repository interface {
	Create(ctx context.Context, stage *Stage) (*Stage, error)
	Update(ctx context.Context, stage *Stage) (*Stage, error)
	Delete(ctx context.Context, id uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*Stage, error)
	GetByName(ctx context.Context, name string) (*Stage, error)
	// List returns every stage ordered by ascending sort order.
	List(ctx context.Context) ([]*Stage, error)
	// ListBefore returns the stages whose sort order is strictly lower than sortOrder, ascending.
	ListBefore(ctx context.Context, sortOrder int) ([]*Stage, error)
}

// NotFoundError is returned when a stage lookup misses.
type NotFoundError struct {
	Resource string
	Key      string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.Key)
}

// NewStageRepository creates the go-repository-bun repository backing stages.
func NewStageRepository(db *bun.DB) repository.Repository[*Stage] {
	return repository.MustNewRepository(db, repository.ModelHandlers[*Stage]{
		NewRecord:          func() *Stage { return &Stage{} },
		GetID:              func(stage *Stage) uuid.UUID { return stage.ID },
		SetID:              func(stage *Stage, id uuid.UUID) { stage.ID = id },
		GetIdentifier:      func() string { return "name" },
		GetIdentifierValue: func(stage *Stage) string { return stage.Name },
	})
}
