package stages

import (
	"context"
	"fmt"

	"github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-repository-cache/cache"
	"github.com/goliatone/go-repository-cache/repositorycache"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// BunRepository implements Repository with optional read-through caching.
type BunRepository struct {
	repo repository.Repository[*Stage]
}

// NewBunRepository creates a stage repository without caching.
func NewBunRepository(db *bun.DB) *BunRepository {
	return NewBunRepositoryWithCache(db, nil, nil)
}

// NewBunRepositoryWithCache creates a stage repository with caching.
func NewBunRepositoryWithCache(db *bun.DB, cacheService cache.CacheService, serializer cache.KeySerializer) *BunRepository {
	base := NewStageRepository(db)
	if cacheService != nil && serializer != nil {
		base = repositorycache.New(base, cacheService, serializer)
	}
	return &BunRepository{repo: base}
}

func (r *BunRepository) Create(ctx context.Context, stage *Stage) (*Stage, error) {
	record, err := r.repo.Create(ctx, stage)
	if err != nil {
		return nil, mapRepositoryError(err, stage.Name)
	}
	return record, nil
}

func (r *BunRepository) Update(ctx context.Context, stage *Stage) (*Stage, error) {
	updated, err := r.repo.Update(ctx, stage,
		repository.UpdateByID(stage.ID.String()),
		repository.UpdateColumns(
			"name",
			"display_name",
			"description",
			"sort_order",
			"icon",
			"updated_at",
		),
	)
	if err != nil {
		return nil, mapRepositoryError(err, stage.ID.String())
	}
	return updated, nil
}

func (r *BunRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return mapRepositoryError(r.repo.Delete(ctx, &Stage{ID: id}), id.String())
}

func (r *BunRepository) GetByID(ctx context.Context, id uuid.UUID) (*Stage, error) {
	record, err := r.repo.GetByID(ctx, id.String())
	if err != nil {
		return nil, mapRepositoryError(err, id.String())
	}
	return record, nil
}

func (r *BunRepository) GetByName(ctx context.Context, name string) (*Stage, error) {
	record, err := r.repo.GetByIdentifier(ctx, name)
	if err != nil {
		return nil, mapRepositoryError(err, name)
	}
	return record, nil
}

func (r *BunRepository) List(ctx context.Context) ([]*Stage, error) {
	records, _, err := r.repo.List(ctx, repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.OrderExpr("?TableAlias.sort_order ASC")
	}))
	return records, err
}

func (r *BunRepository) ListBefore(ctx context.Context, sortOrder int) ([]*Stage, error) {
	records, _, err := r.repo.List(ctx, repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("?TableAlias.sort_order < ?", sortOrder).OrderExpr("?TableAlias.sort_order ASC")
	}))
	return records, err
}

func mapRepositoryError(err error, key string) error {
	if err == nil {
		return nil
	}
	if errors.IsCategory(err, repository.CategoryDatabaseNotFound) {
		return &NotFoundError{Resource: "stage", Key: key}
	}
	return fmt.Errorf("stage repository error: %w", err)
}
