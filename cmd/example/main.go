package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	urlkit "github.com/goliatone/go-urlkit"
	"github.com/google/uuid"

	tracker "github.com/goliatone/go-order-tracker"
	"github.com/goliatone/go-order-tracker/domain"
	"github.com/goliatone/go-order-tracker/internal/di"
	"github.com/goliatone/go-order-tracker/internal/storage"
)

func main() {
	dsn := flag.String("dsn", "file:tracker_example?mode=memory&cache=shared", "sqlite or postgres DSN")
	logFormat := flag.String("log-format", "console", "go-logger format (json, console, pretty)")
	flag.Parse()

	ctx := context.Background()
	if err := run(ctx, *dsn, *logFormat); err != nil {
		log.Fatalf("example: %v", err)
	}
}

func run(ctx context.Context, dsn, logFormat string) error {
	db, err := storage.NewBunDB(storage.Config{DSN: dsn})
	if err != nil {
		return err
	}
	defer db.Close()

	if err := storage.EnsureSchema(ctx, db); err != nil {
		return err
	}

	cfg := tracker.DefaultConfig()
	cfg.Storage.Provider = "bun"
	cfg.Cache.Enabled = true
	cfg.Commands.Enabled = true
	cfg.Logging.Provider = "gologger"
	cfg.Logging.Format = logFormat
	cfg.Notifications.Tracking.RouteConfig = &urlkit.Config{
		Groups: []urlkit.GroupConfig{
			{
				Name:    "public",
				BaseURL: "https://track.example.com",
				Paths: map[string]string{
					"track": "/orders/:order_number",
				},
			},
		},
	}

	module, err := tracker.New(cfg, di.WithBunDB(db))
	if err != nil {
		return err
	}
	defer module.Close()

	if _, err := module.Seed(ctx); err != nil {
		return fmt.Errorf("seed stages: %w", err)
	}

	orderIDs := make([]uuid.UUID, 0, 3)
	for i, name := range []string{"Ada", "Grace", "Edsger"} {
		order, err := module.Tracking().CreateOrder(ctx, tracker.CreateOrderInput{
			OrderNumber:  fmt.Sprintf("ORD-%04d", 1001+i),
			FirstName:    name,
			Email:        fmt.Sprintf("%s@example.com", name),
			Phone:        fmt.Sprintf("555-010-%04d", 1000+i),
			SMSEnabled:   true,
			EmailEnabled: true,
		})
		if err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		orderIDs = append(orderIDs, order.ID)
	}

	shipped, err := module.Stages().GetByName(ctx, "shipped")
	if err != nil {
		return err
	}

	bulk, err := module.Progress().BulkUpdateProgress(ctx, tracker.BulkRequest{
		OrderIDs:          orderIDs,
		StageID:           shipped.ID,
		Status:            domain.ProgressCompleted,
		QueueNotification: true,
	})
	if err != nil {
		return fmt.Errorf("bulk update: %w", err)
	}
	printJSON("bulk", bulk)

	approved, err := module.Review().ApproveBatch(ctx, bulk.BatchID)
	if err != nil {
		return fmt.Errorf("approve batch: %w", err)
	}
	fmt.Printf("approved %d notifications\n", approved)

	report, err := module.Dispatcher().Process(ctx)
	if err != nil {
		return fmt.Errorf("dispatch: %w", err)
	}
	printJSON("dispatch", report)

	timeline, err := module.Tracking().Lookup(ctx, "ORD-1001", "(555) 010-1000")
	if err != nil {
		return fmt.Errorf("lookup: %w", err)
	}
	printJSON("timeline", timeline)
	return nil
}

func printJSON(label string, value any) {
	payload, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", label, err)
		return
	}
	fmt.Printf("%s %s:\n%s\n", time.Now().Format(time.Kitchen), label, payload)
}
