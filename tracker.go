package tracker

import (
	"context"

	"github.com/goliatone/go-order-tracker/internal/commands"
	"github.com/goliatone/go-order-tracker/internal/di"
	"github.com/goliatone/go-order-tracker/internal/events"
	"github.com/goliatone/go-order-tracker/internal/notifications"
	"github.com/goliatone/go-order-tracker/internal/progress"
	"github.com/goliatone/go-order-tracker/internal/stages"
	"github.com/goliatone/go-order-tracker/internal/tracking"
)

// StageService exports the stage catalog contract.
type StageService = stages.Service

// ProgressService exports the progress contract.
type ProgressService = progress.Service

// ReviewService exports the notification review contract.
type ReviewService = notifications.ReviewService

// TrackingService exports the orders and tracking contract.
type TrackingService = tracking.Service

// Dispatcher exports the notification dispatcher.
type Dispatcher = *notifications.Dispatcher

// EventPublisher exports the progress event publisher contract.
type EventPublisher = events.Publisher

type (
	UpdateRequest = progress.UpdateRequest
	UpdateResult  = progress.UpdateResult
	BulkRequest   = progress.BulkRequest
	BulkResult    = progress.BulkResult
	BulkError     = progress.BulkError

	CreateOrderInput = tracking.CreateOrderInput
	ImportOrderInput = tracking.ImportOrderInput
	Timeline         = tracking.Timeline

	QueueItem      = notifications.QueueItem
	QueueFilter    = notifications.QueueFilter
	DispatchReport = notifications.DispatchReport
)

type (
	CommandRegistry     = commands.CommandRegistry
	CommandDispatcher   = commands.CommandDispatcher
	CommandSubscription = commands.CommandSubscription
	CronRegistrar       = commands.CronRegistrar
	RegistrationOptions = commands.RegistrationOptions
	RegistrationResult  = commands.RegistrationResult
)

// Module represents the top level order tracker façade.
type Module struct {
	container *di.Container
}

// New constructs a tracker module using the provided configuration and optional DI overrides.
func New(cfg Config, opts ...di.Option) (*Module, error) {
	container, err := di.NewContainer(cfg, opts...)
	if err != nil {
		return nil, err
	}
	return &Module{container: container}, nil
}

// Container exposes the underlying DI container for advanced integrations.
func (m *Module) Container() *di.Container {
	return m.container
}

// Seed loads the default stage catalog. Existing stages are updated in place.
func (m *Module) Seed(ctx context.Context) (stages.SeedResult, error) {
	return m.container.Seed(ctx)
}

// Stages returns the stage catalog service.
func (m *Module) Stages() StageService {
	return m.container.StageService()
}

// Progress returns the progress service.
func (m *Module) Progress() ProgressService {
	return m.container.ProgressService()
}

// Review returns the notification review service.
func (m *Module) Review() ReviewService {
	return m.container.ReviewService()
}

// Dispatcher returns the notification dispatcher.
func (m *Module) Dispatcher() Dispatcher {
	return m.container.Dispatcher()
}

// Tracking returns the orders and tracking service.
func (m *Module) Tracking() TrackingService {
	return m.container.TrackingService()
}

// Events returns the configured event publisher.
func (m *Module) Events() EventPublisher {
	return m.container.Publisher()
}

// CommandHandlers lists the command handlers built when commands are enabled.
func (m *Module) CommandHandlers() []any {
	if m == nil || m.container == nil {
		return nil
	}
	return m.container.CommandHandlers()
}

// RegisterCommands hands the module's command handlers to host integrations.
func (m *Module) RegisterCommands(opts RegistrationOptions) (*RegistrationResult, error) {
	return commands.Register(opts, m.CommandHandlers()...)
}

// Close releases dispatcher subscriptions and broker connections.
func (m *Module) Close() {
	if m == nil || m.container == nil {
		return
	}
	m.container.Close()
}
