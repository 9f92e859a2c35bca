package progresscmd

import (
	"context"

	command "github.com/goliatone/go-command"
	"github.com/google/uuid"

	"github.com/goliatone/go-order-tracker/internal/commands"
	"github.com/goliatone/go-order-tracker/internal/domain"
	"github.com/goliatone/go-order-tracker/internal/logging"
	"github.com/goliatone/go-order-tracker/internal/progress"
	"github.com/goliatone/go-order-tracker/pkg/interfaces"
)

const (
	updateOperation     = "progress.update"
	bulkUpdateOperation = "progress.bulk_update"
)

var (
	_ command.Commander[UpdateProgressCommand]     = (*UpdateProgressHandler)(nil)
	_ command.Commander[BulkUpdateProgressCommand] = (*BulkUpdateProgressHandler)(nil)
)

// ProgressUpdater is the slice of progress.Service the handlers drive.
type ProgressUpdater interface {
	UpdateSingleOrderProgress(ctx context.Context, req progress.UpdateRequest) (progress.UpdateResult, error)
	BulkUpdateProgress(ctx context.Context, req progress.BulkRequest) (progress.BulkResult, error)
}

// UpdateProgressHandler executes single-order transitions.
type UpdateProgressHandler struct {
	inner *commands.Handler[UpdateProgressCommand]
}

// NewUpdateProgressHandler creates a handler bound to the supplied progress service.
func NewUpdateProgressHandler(service ProgressUpdater, logger interfaces.Logger, opts ...commands.HandlerOption[UpdateProgressCommand]) *UpdateProgressHandler {
	baseLogger := commands.EnsureLogger(logger)

	exec := func(ctx context.Context, msg UpdateProgressCommand) error {
		result, err := service.UpdateSingleOrderProgress(ctx, progress.UpdateRequest{
			OrderID:            msg.OrderID,
			StageID:            msg.StageID,
			Status:             domain.ParseProgressStatus(msg.Status),
			EstimatedStartDate: msg.EstimatedStartDate,
			EstimatedEndDate:   msg.EstimatedEndDate,
			AdminNotes:         msg.AdminNotes,
			QueueNotification:  msg.QueueNotification,
		})
		if err != nil {
			return err
		}
		fields := map[string]any{
			"changed":  result.Changed,
			"previous": result.Previous,
			"cascaded": len(result.Cascaded),
			"queued":   result.Queued,
		}
		if result.BatchID != nil {
			fields["batch_id"] = result.BatchID.String()
		}
		logging.WithFields(baseLogger, fields).Info("progress.command.update.completed")
		return nil
	}

	handlerOpts := []commands.HandlerOption[UpdateProgressCommand]{
		commands.WithLogger[UpdateProgressCommand](baseLogger),
		commands.WithOperation[UpdateProgressCommand](updateOperation),
		commands.WithMessageFields(func(msg UpdateProgressCommand) map[string]any {
			return map[string]any{
				"order_id": msg.OrderID.String(),
				"stage_id": msg.StageID.String(),
				"status":   msg.Status,
			}
		}),
		commands.WithTelemetry(commands.DefaultTelemetry[UpdateProgressCommand](baseLogger)),
	}
	handlerOpts = append(handlerOpts, opts...)

	return &UpdateProgressHandler{
		inner: commands.NewHandler(exec, handlerOpts...),
	}
}

// Execute satisfies command.Commander[UpdateProgressCommand].
func (h *UpdateProgressHandler) Execute(ctx context.Context, msg UpdateProgressCommand) error {
	return h.inner.Execute(ctx, msg)
}

// CLIHandler exposes the handler to CLI integrations.
func (h *UpdateProgressHandler) CLIHandler() any {
	return h
}

// CLIOptions describes the CLI metadata for single-order updates.
func (h *UpdateProgressHandler) CLIOptions() command.CLIConfig {
	return command.CLIConfig{
		Path:        []string{"progress", "update"},
		Group:       "progress",
		Description: "Set the status of one stage for one order",
	}
}

// BulkUpdateProgressHandler executes bulk transitions. Per-row failures are
// reported through the log and never fail the command.
type BulkUpdateProgressHandler struct {
	inner *commands.Handler[BulkUpdateProgressCommand]
}

// NewBulkUpdateProgressHandler creates a handler bound to the supplied progress service.
func NewBulkUpdateProgressHandler(service ProgressUpdater, logger interfaces.Logger, opts ...commands.HandlerOption[BulkUpdateProgressCommand]) *BulkUpdateProgressHandler {
	baseLogger := commands.EnsureLogger(logger)

	exec := func(ctx context.Context, msg BulkUpdateProgressCommand) error {
		result, err := service.BulkUpdateProgress(ctx, progress.BulkRequest{
			OrderIDs:          msg.OrderIDs,
			StageID:           msg.StageID,
			Status:            domain.ParseProgressStatus(msg.Status),
			QueueNotification: msg.QueueNotification,
		})
		if err != nil {
			return err
		}
		logger := logging.WithFields(baseLogger, map[string]any{
			"batch_id": result.BatchID.String(),
			"updated":  result.Updated,
			"skipped":  result.Skipped,
			"queued":   result.Queued,
		})
		for _, rowErr := range result.Errors {
			logger.Warn("progress.command.bulk_update.row_skipped",
				"order_id", rowErr.OrderID.String(),
				"order_number", rowErr.OrderNumber,
				"reason", rowErr.Reason,
			)
		}
		logger.Info("progress.command.bulk_update.completed")
		return nil
	}

	handlerOpts := []commands.HandlerOption[BulkUpdateProgressCommand]{
		commands.WithLogger[BulkUpdateProgressCommand](baseLogger),
		commands.WithOperation[BulkUpdateProgressCommand](bulkUpdateOperation),
		commands.WithMessageFields(func(msg BulkUpdateProgressCommand) map[string]any {
			fields := map[string]any{
				"order_count": len(msg.OrderIDs),
				"status":      msg.Status,
			}
			if msg.StageID != uuid.Nil {
				fields["stage_id"] = msg.StageID.String()
			}
			return fields
		}),
		commands.WithTelemetry(commands.DefaultTelemetry[BulkUpdateProgressCommand](baseLogger)),
	}
	handlerOpts = append(handlerOpts, opts...)

	return &BulkUpdateProgressHandler{
		inner: commands.NewHandler(exec, handlerOpts...),
	}
}

// Execute satisfies command.Commander[BulkUpdateProgressCommand].
func (h *BulkUpdateProgressHandler) Execute(ctx context.Context, msg BulkUpdateProgressCommand) error {
	return h.inner.Execute(ctx, msg)
}
