package orders

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-repository-cache/cache"
	"github.com/goliatone/go-repository-cache/repositorycache"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// BunRepository implements Repository on top of go-repository-bun. Order reads
// may be cached; preferences always hit the database.
type BunRepository struct {
	db          *bun.DB
	orders      repository.Repository[*Order]
	preferences repository.Repository[*NotificationPreference]
}

// NewBunRepository creates an order repository without caching.
func NewBunRepository(db *bun.DB) *BunRepository {
	return NewBunRepositoryWithCache(db, nil, nil)
}

// NewBunRepositoryWithCache creates an order repository with caching.
func NewBunRepositoryWithCache(db *bun.DB, cacheService cache.CacheService, serializer cache.KeySerializer) *BunRepository {
	base := NewOrderRepository(db)
	if cacheService != nil && serializer != nil {
		base = repositorycache.New(base, cacheService, serializer)
	}
	return &BunRepository{
		db:          db,
		orders:      base,
		preferences: NewPreferenceRepository(db),
	}
}

func (r *BunRepository) Create(ctx context.Context, order *Order) (*Order, error) {
	record, err := r.orders.Create(ctx, order)
	if err != nil {
		return nil, mapRepositoryError(err, "order", order.OrderNumber)
	}
	return record, nil
}

func (r *BunRepository) Update(ctx context.Context, order *Order) (*Order, error) {
	updated, err := r.orders.Update(ctx, order,
		repository.UpdateByID(order.ID.String()),
		repository.UpdateColumns(
			"order_number",
			"customer_first_name",
			"customer_last_name",
			"email",
			"phone",
			"source",
			"external_id",
			"updated_at",
		),
	)
	if err != nil {
		return nil, mapRepositoryError(err, "order", order.ID.String())
	}
	return updated, nil
}

func (r *BunRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return mapRepositoryError(r.orders.Delete(ctx, &Order{ID: id}), "order", id.String())
}

func (r *BunRepository) GetByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	record, err := r.orders.GetByID(ctx, id.String())
	if err != nil {
		return nil, mapRepositoryError(err, "order", id.String())
	}
	return r.attachPreference(ctx, record)
}

func (r *BunRepository) GetByNumber(ctx context.Context, orderNumber string) (*Order, error) {
	record, err := r.orders.GetByIdentifier(ctx, orderNumber)
	if err != nil {
		return nil, mapRepositoryError(err, "order", orderNumber)
	}
	return r.attachPreference(ctx, record)
}

func (r *BunRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*Order, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	records, _, err := r.orders.List(ctx, repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("?TableAlias.id IN (?)", bun.In(ids))
	}))
	if err != nil {
		return nil, fmt.Errorf("order repository error: %w", err)
	}
	if len(records) == 0 {
		return records, nil
	}

	prefs, _, err := r.preferences.List(ctx, repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("?TableAlias.order_id IN (?)", bun.In(ids))
	}))
	if err != nil {
		return nil, fmt.Errorf("notification preference repository error: %w", err)
	}
	byOrder := make(map[uuid.UUID]*NotificationPreference, len(prefs))
	for _, pref := range prefs {
		byOrder[pref.OrderID] = pref
	}
	for _, record := range records {
		record.Preference = byOrder[record.ID]
	}
	return records, nil
}

func (r *BunRepository) GetPreference(ctx context.Context, orderID uuid.UUID) (*NotificationPreference, error) {
	record, err := r.preferences.GetByIdentifier(ctx, orderID.String())
	if err != nil {
		return nil, mapRepositoryError(err, "notification_preference", orderID.String())
	}
	return record, nil
}

func (r *BunRepository) UpsertPreference(ctx context.Context, pref *NotificationPreference) (*NotificationPreference, error) {
	row := *pref
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	_, err := r.db.NewInsert().
		Model(&row).
		On("CONFLICT (order_id) DO UPDATE").
		Set("sms_enabled = EXCLUDED.sms_enabled").
		Set("email_enabled = EXCLUDED.email_enabled").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("notification preference repository error: %w", err)
	}

	stored := &NotificationPreference{}
	if err := r.db.NewSelect().Model(stored).Where("order_id = ?", row.OrderID).Limit(1).Scan(ctx); err != nil {
		return nil, fmt.Errorf("notification preference repository error: %w", err)
	}
	return stored, nil
}

func (r *BunRepository) DeletePreference(ctx context.Context, orderID uuid.UUID) error {
	_, err := r.db.NewDelete().
		Model((*NotificationPreference)(nil)).
		Where("order_id = ?", orderID).
		Exec(ctx)
	return err
}

func (r *BunRepository) attachPreference(ctx context.Context, order *Order) (*Order, error) {
	pref := &NotificationPreference{}
	err := r.db.NewSelect().Model(pref).Where("order_id = ?", order.ID).Limit(1).Scan(ctx)
	switch {
	case err == nil:
		order.Preference = pref
	case err == sql.ErrNoRows:
		order.Preference = nil
	default:
		return nil, fmt.Errorf("notification preference repository error: %w", err)
	}
	return order, nil
}

func mapRepositoryError(err error, resource, key string) error {
	if err == nil {
		return nil
	}
	if errors.IsCategory(err, repository.CategoryDatabaseNotFound) {
		return &NotFoundError{Resource: resource, Key: key}
	}
	return fmt.Errorf("%s repository error: %w", resource, err)
}
