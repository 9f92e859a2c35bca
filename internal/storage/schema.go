package storage

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"

	"github.com/goliatone/go-order-tracker/internal/notifications"
	"github.com/goliatone/go-order-tracker/internal/orders"
	"github.com/goliatone/go-order-tracker/internal/progress"
	"github.com/goliatone/go-order-tracker/internal/stages"
)

// Models lists the tables the tracker owns, parents first.
func Models() []any {
	return []any{
		(*stages.Stage)(nil),
		(*orders.Order)(nil),
		(*orders.NotificationPreference)(nil),
		(*progress.OrderProgress)(nil),
		(*notifications.QueueItem)(nil),
	}
}

// EnsureSchema creates any missing tracker tables. Existing tables are left untouched.
func EnsureSchema(ctx context.Context, db bun.IDB) error {
	for _, model := range Models() {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("storage: create table for %T: %w", model, err)
		}
	}
	return nil
}

// DropSchema removes the tracker tables, children first.
func DropSchema(ctx context.Context, db bun.IDB) error {
	models := Models()
	for i := len(models) - 1; i >= 0; i-- {
		if _, err := db.NewDropTable().Model(models[i]).IfExists().Exec(ctx); err != nil {
			return fmt.Errorf("storage: drop table for %T: %w", models[i], err)
		}
	}
	return nil
}
