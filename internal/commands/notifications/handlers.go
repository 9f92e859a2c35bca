package notificationscmd

import (
	"context"
	"strings"
	"time"

	command "github.com/goliatone/go-command"
	"github.com/google/uuid"

	"github.com/goliatone/go-order-tracker/internal/commands"
	"github.com/goliatone/go-order-tracker/internal/logging"
	"github.com/goliatone/go-order-tracker/internal/notifications"
	"github.com/goliatone/go-order-tracker/pkg/interfaces"
)

// DefaultDispatchCron is the schedule applied to the dispatch handler.
const DefaultDispatchCron = "@every 1m"

const (
	dispatchOperation     = "notifications.dispatch"
	approveBatchOperation = "notifications.approve_batch"
)

var (
	_ command.Commander[DispatchNotificationsCommand] = (*DispatchHandler)(nil)
	_ command.Commander[ApproveBatchCommand]          = (*ApproveBatchHandler)(nil)
	_ command.CronCommand                             = (*DispatchHandler)(nil)
)

// Processor sends approved notifications.
type Processor interface {
	Process(ctx context.Context) (notifications.DispatchReport, error)
}

// BatchApprover approves pending notifications by batch.
type BatchApprover interface {
	ApproveBatch(ctx context.Context, batchID uuid.UUID) (int, error)
}

type dispatchHandlerConfig struct {
	cronConfig command.HandlerConfig
	timeout    time.Duration
}

// DispatchHandlerOption customises the dispatch handler.
type DispatchHandlerOption func(*dispatchHandlerConfig)

// DispatchWithCronConfig overrides the cron registration options.
func DispatchWithCronConfig(config command.HandlerConfig) DispatchHandlerOption {
	return func(cfg *dispatchHandlerConfig) {
		cfg.cronConfig = config
	}
}

// DispatchWithCronExpression overrides the cron expression.
func DispatchWithCronExpression(expression string) DispatchHandlerOption {
	return func(cfg *dispatchHandlerConfig) {
		if trimmed := strings.TrimSpace(expression); trimmed != "" {
			cfg.cronConfig.Expression = trimmed
		}
	}
}

// DispatchWithTimeout overrides the default execution timeout.
func DispatchWithTimeout(timeout time.Duration) DispatchHandlerOption {
	return func(cfg *dispatchHandlerConfig) {
		cfg.timeout = timeout
	}
}

// DispatchHandler runs the dispatch worker once per execution. It is the
// cron-driven entry point for sending approved notifications.
type DispatchHandler struct {
	processor  Processor
	logger     interfaces.Logger
	cronConfig command.HandlerConfig
	timeout    time.Duration
}

// NewDispatchHandler constructs the dispatch handler.
func NewDispatchHandler(processor Processor, logger interfaces.Logger, opts ...DispatchHandlerOption) *DispatchHandler {
	cfg := dispatchHandlerConfig{
		cronConfig: command.HandlerConfig{
			Expression: DefaultDispatchCron,
		},
		timeout: commands.DefaultCommandTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return &DispatchHandler{
		processor:  processor,
		logger:     commands.EnsureLogger(logger),
		cronConfig: cfg.cronConfig,
		timeout:    cfg.timeout,
	}
}

// Execute satisfies command.Commander[DispatchNotificationsCommand].
func (h *DispatchHandler) Execute(ctx context.Context, msg DispatchNotificationsCommand) error {
	if err := commands.WrapValidationError(command.ValidateMessage(msg)); err != nil {
		return err
	}
	ctx = commands.EnsureContext(ctx)
	ctx, cancel := commands.WithCommandTimeout(ctx, h.timeout)
	defer cancel()

	if err := ctx.Err(); err != nil {
		return commands.WrapContextError(err)
	}

	report, err := h.processor.Process(ctx)
	logger := logging.WithFields(h.logger, map[string]any{
		"operation": dispatchOperation,
		"attempted": report.Attempted,
		"sent":      report.Sent,
		"failed":    report.Failed,
	})
	if err != nil {
		logger.Error("notifications.command.dispatch.failed", "error", err)
		return commands.WrapExecuteError(err)
	}
	if report.Attempted > 0 {
		logger.Info("notifications.command.dispatch.completed")
	} else {
		logger.Debug("notifications.command.dispatch.idle")
	}
	return nil
}

// CronHandler satisfies command.CronCommand by binding dispatch execution to a cron runner.
func (h *DispatchHandler) CronHandler() func() error {
	return func() error {
		return h.Execute(context.Background(), DispatchNotificationsCommand{})
	}
}

// CronOptions satisfies command.CronCommand by returning the configured cron metadata.
func (h *DispatchHandler) CronOptions() command.HandlerConfig {
	return h.cronConfig
}

// CLIHandler exposes the dispatch handler to CLI integrations.
func (h *DispatchHandler) CLIHandler() any {
	return h
}

// CLIOptions describes the CLI metadata for notification dispatch.
func (h *DispatchHandler) CLIOptions() command.CLIConfig {
	return command.CLIConfig{
		Path:        []string{"notifications", "dispatch"},
		Group:       "notifications",
		Description: "Send approved notifications",
	}
}

// ApproveBatchHandler approves a notification batch through the review service.
type ApproveBatchHandler struct {
	inner *commands.Handler[ApproveBatchCommand]
}

// NewApproveBatchHandler constructs the approve batch handler.
func NewApproveBatchHandler(approver BatchApprover, logger interfaces.Logger, opts ...commands.HandlerOption[ApproveBatchCommand]) *ApproveBatchHandler {
	baseLogger := commands.EnsureLogger(logger)

	exec := func(ctx context.Context, msg ApproveBatchCommand) error {
		approved, err := approver.ApproveBatch(ctx, msg.BatchID)
		if err != nil {
			return err
		}
		logging.WithFields(baseLogger, map[string]any{
			"batch_id": msg.BatchID.String(),
			"approved": approved,
		}).Info("notifications.command.approve_batch.completed")
		return nil
	}

	handlerOpts := []commands.HandlerOption[ApproveBatchCommand]{
		commands.WithLogger[ApproveBatchCommand](baseLogger),
		commands.WithOperation[ApproveBatchCommand](approveBatchOperation),
		commands.WithMessageFields(func(msg ApproveBatchCommand) map[string]any {
			return map[string]any{"batch_id": msg.BatchID.String()}
		}),
		commands.WithTelemetry(commands.DefaultTelemetry[ApproveBatchCommand](baseLogger)),
	}
	handlerOpts = append(handlerOpts, opts...)

	return &ApproveBatchHandler{
		inner: commands.NewHandler(exec, handlerOpts...),
	}
}

// Execute satisfies command.Commander[ApproveBatchCommand].
func (h *ApproveBatchHandler) Execute(ctx context.Context, msg ApproveBatchCommand) error {
	return h.inner.Execute(ctx, msg)
}
