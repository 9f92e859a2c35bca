package commands_test

import (
	"context"
	"errors"
	"testing"

	command "github.com/goliatone/go-command"

	"github.com/goliatone/go-order-tracker/internal/commands"
	"github.com/goliatone/go-order-tracker/internal/commands/fixtures"
)

type pingCommand struct{}

func (pingCommand) Type() string    { return "tracker.test.ping" }
func (pingCommand) Validate() error { return nil }

type cronHandler struct {
	runs int
}

func (h *cronHandler) Execute(context.Context, pingCommand) error {
	h.runs++
	return nil
}

func (h *cronHandler) CronOptions() command.HandlerConfig {
	return command.HandlerConfig{Expression: "@every 1m"}
}

func (h *cronHandler) CronHandler() func() error {
	return func() error { return h.Execute(context.Background(), pingCommand{}) }
}

func TestRegisterWiresEveryIntegration(t *testing.T) {
	registry := fixtures.NewRecordingRegistry()
	dispatcher := fixtures.NewRecordingDispatcher()
	cron := fixtures.NewCronRecorder()

	plain := commands.NewHandler(func(context.Context, pingCommand) error { return nil })
	scheduled := &cronHandler{}

	result, err := commands.Register(commands.RegistrationOptions{
		Registry:      registry,
		Dispatcher:    dispatcher,
		CronRegistrar: cron.Registrar(),
	}, plain, nil, scheduled)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if len(result.Handlers) != 2 || len(registry.Handlers) != 2 || len(dispatcher.Handlers) != 2 {
		t.Fatalf("expected both handlers registered, got %d/%d/%d", len(result.Handlers), len(registry.Handlers), len(dispatcher.Handlers))
	}
	if len(cron.Registrations) != 1 || cron.Registrations[0].Config.Expression != "@every 1m" {
		t.Fatalf("expected the cron handler scheduled once, got %+v", cron.Registrations)
	}
	fn, ok := cron.Registrations[0].Handler.(func() error)
	if !ok {
		t.Fatalf("expected func() error cron handler, got %T", cron.Registrations[0].Handler)
	}
	if err := fn(); err != nil || scheduled.runs != 1 {
		t.Fatalf("expected cron handler to execute, runs=%d err=%v", scheduled.runs, err)
	}

	result.Unsubscribe()
	for _, sub := range dispatcher.Subscriptions {
		if !sub.Unsubscribed {
			t.Fatal("expected subscriptions released")
		}
	}
}

func TestRegisterCollectsErrors(t *testing.T) {
	dispatcher := fixtures.NewRecordingDispatcher()
	dispatcher.Err = errors.New("dispatcher down")
	cron := fixtures.NewCronRecorder()
	cron.Fail(errors.New("cron down"))

	result, err := commands.Register(commands.RegistrationOptions{
		Dispatcher:    dispatcher,
		CronRegistrar: cron.Registrar(),
	}, &cronHandler{})
	if err == nil {
		t.Fatal("expected joined registration error")
	}
	if len(result.Handlers) != 1 || len(result.Subscriptions) != 0 {
		t.Fatalf("unexpected result %+v", result)
	}
}
