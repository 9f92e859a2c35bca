package di

import (
	"fmt"

	command "github.com/goliatone/go-command"
	"github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-command/runner"

	"github.com/goliatone/go-order-tracker/internal/commands"
	notificationscmd "github.com/goliatone/go-order-tracker/internal/commands/notifications"
	progresscmd "github.com/goliatone/go-order-tracker/internal/commands/progress"
)

// CommandDispatcher subscribes tracker handlers to go-command's global dispatcher.
type CommandDispatcher struct {
	runnerOpts []runner.Option
}

// NewCommandDispatcher returns a dispatcher adapter. Runner options apply to every subscription.
func NewCommandDispatcher(opts ...runner.Option) *CommandDispatcher {
	return &CommandDispatcher{runnerOpts: opts}
}

// RegisterCommand satisfies commands.CommandDispatcher.
func (d *CommandDispatcher) RegisterCommand(handler any) (commands.CommandSubscription, error) {
	switch h := handler.(type) {
	case *progresscmd.UpdateProgressHandler:
		return subscribe[progresscmd.UpdateProgressCommand](h, d.runnerOpts), nil
	case *progresscmd.BulkUpdateProgressHandler:
		return subscribe[progresscmd.BulkUpdateProgressCommand](h, d.runnerOpts), nil
	case *notificationscmd.DispatchHandler:
		return subscribe[notificationscmd.DispatchNotificationsCommand](h, d.runnerOpts), nil
	case *notificationscmd.ApproveBatchHandler:
		return subscribe[notificationscmd.ApproveBatchCommand](h, d.runnerOpts), nil
	default:
		return nil, fmt.Errorf("di: unsupported command handler %T", handler)
	}
}

func subscribe[T command.Message](handler command.Commander[T], opts []runner.Option) commands.CommandSubscription {
	return dispatcher.SubscribeCommand[T](handler, opts...)
}
