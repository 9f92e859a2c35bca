package di

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	repocache "github.com/goliatone/go-repository-cache/cache"
	urlkit "github.com/goliatone/go-urlkit"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"

	"github.com/goliatone/go-order-tracker/internal/adapters/noop"
	"github.com/goliatone/go-order-tracker/internal/commands"
	notificationscmd "github.com/goliatone/go-order-tracker/internal/commands/notifications"
	progresscmd "github.com/goliatone/go-order-tracker/internal/commands/progress"
	"github.com/goliatone/go-order-tracker/internal/events"
	"github.com/goliatone/go-order-tracker/internal/logging"
	"github.com/goliatone/go-order-tracker/internal/logging/gologger"
	"github.com/goliatone/go-order-tracker/internal/notifications"
	"github.com/goliatone/go-order-tracker/internal/orders"
	"github.com/goliatone/go-order-tracker/internal/progress"
	"github.com/goliatone/go-order-tracker/internal/runtimeconfig"
	"github.com/goliatone/go-order-tracker/internal/stages"
	"github.com/goliatone/go-order-tracker/internal/tracking"
	"github.com/goliatone/go-order-tracker/pkg/interfaces"
)

const tracerName = "github.com/goliatone/go-order-tracker"

// ErrBunDBRequired is returned when the bun storage provider is selected without a database handle.
var ErrBunDBRequired = errors.New("di: bun storage provider requires WithBunDB")

// Container wires module dependencies.
type Container struct {
	Config runtimeconfig.Config

	bunDB          *bun.DB
	cacheTTL       time.Duration
	cacheService   repocache.CacheService
	keySerializer  repocache.KeySerializer
	loggerProvider interfaces.LoggerProvider
	publisher      events.Publisher
	kafkaPublisher *events.KafkaPublisher
	transports     []interfaces.NotificationTransport
	clock          func() time.Time

	commandRegistry   commands.CommandRegistry
	commandDispatcher commands.CommandDispatcher
	cronRegistrar     commands.CronRegistrar

	stageRepo stages.Repository
	orderRepo orders.Repository
	ledger    progress.LedgerRepository
	queueRepo notifications.QueueRepository

	routeManager *urlkit.RouteManager

	stageSvc    stages.Service
	engine      *progress.Engine
	progressSvc progress.Service
	generator   *notifications.Generator
	reviewSvc   notifications.ReviewService
	dispatcher  *notifications.Dispatcher
	trackingSvc tracking.Service

	progressCommands     *progresscmd.HandlerSet
	notificationCommands *notificationscmd.HandlerSet
	registration         *commands.RegistrationResult
}

// Option mutates the container before it is finalised.
type Option func(*Container)

// WithBunDB binds the bun database used when the storage provider is "bun".
func WithBunDB(db *bun.DB) Option {
	return func(c *Container) {
		c.bunDB = db
	}
}

// WithCache overrides the default cache service used by bun repositories.
func WithCache(service repocache.CacheService, serializer repocache.KeySerializer) Option {
	return func(c *Container) {
		c.cacheService = service
		c.keySerializer = serializer
	}
}

// WithLoggerProvider overrides the logger provider resolved from configuration.
func WithLoggerProvider(provider interfaces.LoggerProvider) Option {
	return func(c *Container) {
		c.loggerProvider = provider
	}
}

// WithEventPublisher overrides the event publisher resolved from configuration.
func WithEventPublisher(publisher events.Publisher) Option {
	return func(c *Container) {
		c.publisher = publisher
	}
}

// WithTransport registers a notification transport. Transports replace the
// no-op defaults channel by channel.
func WithTransport(transport interfaces.NotificationTransport) Option {
	return func(c *Container) {
		if transport != nil {
			c.transports = append(c.transports, transport)
		}
	}
}

// WithClock overrides the time source shared by every service.
func WithClock(clock func() time.Time) Option {
	return func(c *Container) {
		c.clock = clock
	}
}

// WithCommandRegistry registers command handlers with a host registry.
func WithCommandRegistry(registry commands.CommandRegistry) Option {
	return func(c *Container) {
		c.commandRegistry = registry
	}
}

// WithCommandDispatcher overrides the dispatcher used when
// Commands.AutoRegisterDispatcher is enabled.
func WithCommandDispatcher(dispatcher commands.CommandDispatcher) Option {
	return func(c *Container) {
		c.commandDispatcher = dispatcher
	}
}

// WithCronRegistrar supplies the cron registrar used when Commands.AutoRegisterCron is enabled.
func WithCronRegistrar(registrar commands.CronRegistrar) Option {
	return func(c *Container) {
		c.cronRegistrar = registrar
	}
}

// NewContainer creates a container with the provided configuration.
func NewContainer(cfg runtimeconfig.Config, opts ...Option) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cacheTTL := cfg.Cache.DefaultTTL
	if cacheTTL <= 0 {
		cacheTTL = time.Minute
	}

	c := &Container{
		Config:    cfg,
		cacheTTL:  cacheTTL,
		clock:     time.Now,
		stageRepo: stages.NewMemoryRepository(),
		orderRepo: orders.NewMemoryRepository(),
		ledger:    progress.NewMemoryLedger(),
		queueRepo: notifications.NewMemoryQueueRepository(),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.clock == nil {
		c.clock = time.Now
	}

	if err := c.configureLogging(); err != nil {
		return nil, err
	}
	c.configureCacheDefaults()
	if err := c.configureRepositories(); err != nil {
		return nil, err
	}
	if err := c.configureEvents(); err != nil {
		return nil, err
	}
	c.configureTrackingLinks()

	if err := c.buildServices(); err != nil {
		c.Close()
		return nil, err
	}
	if err := c.configureCommands(); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func (c *Container) configureLogging() error {
	if c.loggerProvider != nil {
		return nil
	}
	if strings.ToLower(strings.TrimSpace(c.Config.Logging.Provider)) != "gologger" {
		return nil
	}
	provider, err := gologger.NewProvider(gologger.Config{
		Level:     c.Config.Logging.Level,
		Format:    c.Config.Logging.Format,
		AddSource: c.Config.Logging.AddSource,
		Focus:     c.Config.Logging.Focus,
	})
	if err != nil {
		return err
	}
	c.loggerProvider = provider
	return nil
}

func (c *Container) configureCacheDefaults() {
	if !c.Config.Cache.Enabled {
		return
	}

	if c.cacheService == nil {
		cfg := repocache.DefaultConfig()
		if c.cacheTTL > 0 {
			cfg.TTL = c.cacheTTL
		}
		service, err := repocache.NewCacheService(cfg)
		if err == nil {
			c.cacheService = service
		}
	}

	if c.cacheService != nil && c.keySerializer == nil {
		c.keySerializer = repocache.NewDefaultKeySerializer()
	}
}

func (c *Container) configureRepositories() error {
	if strings.ToLower(strings.TrimSpace(c.Config.Storage.Provider)) != "bun" {
		return nil
	}
	if c.bunDB == nil {
		return ErrBunDBRequired
	}
	c.stageRepo = stages.NewBunRepositoryWithCache(c.bunDB, c.cacheService, c.keySerializer)
	c.orderRepo = orders.NewBunRepositoryWithCache(c.bunDB, c.cacheService, c.keySerializer)
	c.ledger = progress.NewBunLedger(c.bunDB)
	c.queueRepo = notifications.NewBunQueueRepository(c.bunDB)
	return nil
}

func (c *Container) configureEvents() error {
	if c.publisher != nil {
		return nil
	}
	eventsCfg := c.Config.Events
	if strings.ToLower(strings.TrimSpace(eventsCfg.Provider)) != "kafka" {
		c.publisher = events.NewNoopPublisher()
		return nil
	}
	client, err := events.NewKafkaClient(events.KafkaConfig{
		Brokers:  eventsCfg.Brokers,
		Topic:    eventsCfg.Topic,
		ClientID: eventsCfg.ClientID,
	})
	if err != nil {
		return fmt.Errorf("di: kafka client: %w", err)
	}
	publisher, err := events.NewKafkaPublisher(client, eventsCfg.Topic, logging.EventsLogger(c.loggerProvider))
	if err != nil {
		client.Close()
		return err
	}
	c.kafkaPublisher = publisher
	c.publisher = publisher
	return nil
}

func (c *Container) configureTrackingLinks() {
	routeCfg := c.Config.Notifications.Tracking.RouteConfig
	if routeCfg == nil {
		return
	}
	c.routeManager = urlkit.NewRouteManager(routeCfg)
}

func (c *Container) buildServices() error {
	provider := c.loggerProvider
	notifyCfg := c.Config.Notifications

	c.stageSvc = stages.NewService(c.stageRepo,
		stages.WithClock(c.clock),
		stages.WithLogger(logging.StagesLogger(provider)),
	)

	generatorOpts := []notifications.GeneratorOption{
		notifications.WithGeneratorClock(c.clock),
		notifications.WithGeneratorPublisher(c.publisher),
		notifications.WithGeneratorLogger(logging.NotificationsLogger(provider)),
	}
	if dir := strings.TrimSpace(notifyCfg.TemplateDir); dir != "" {
		templates, err := notifications.LoadTemplates(os.DirFS(dir))
		if err != nil {
			return fmt.Errorf("di: load notification templates: %w", err)
		}
		generatorOpts = append(generatorOpts, notifications.WithTemplates(templates))
	}
	if c.routeManager != nil {
		generatorOpts = append(generatorOpts, notifications.WithTrackingLinks(notifications.NewTrackingLinks(notifications.TrackingLinkOptions{
			Manager:    c.routeManager,
			Group:      notifyCfg.Tracking.Group,
			Route:      notifyCfg.Tracking.Route,
			OrderParam: notifyCfg.Tracking.OrderParam,
		})))
	}
	generator, err := notifications.NewGenerator(c.queueRepo, c.orderRepo, generatorOpts...)
	if err != nil {
		return err
	}
	c.generator = generator

	c.engine = progress.NewEngine(c.stageSvc, c.ledger,
		progress.WithEngineClock(c.clock),
		progress.WithEngineLogger(logging.ProgressLogger(provider)),
		progress.WithAtomicCascade(c.Config.Progress.AtomicCascade),
		progress.WithTracer(otel.Tracer(tracerName)),
	)

	progressOpts := []progress.ServiceOption{
		progress.WithServiceLogger(logging.ProgressLogger(provider)),
		progress.WithPublisher(c.publisher),
		progress.WithMaxBulkOrders(c.Config.Progress.MaxBulkOrders),
		progress.WithBulkConcurrency(c.Config.Progress.BulkConcurrency),
	}
	if notifyCfg.Enabled {
		progressOpts = append(progressOpts, progress.WithNotificationQueuer(c.generator))
	}
	c.progressSvc = progress.NewService(c.engine, c.orderRepo, progressOpts...)

	c.reviewSvc = notifications.NewReviewService(c.queueRepo,
		notifications.WithReviewClock(c.clock),
		notifications.WithReviewLogger(logging.NotificationsLogger(provider)),
	)

	dispatchOpts := []notifications.DispatchOption{
		notifications.WithDispatchClock(c.clock),
		notifications.WithDispatchPublisher(c.publisher),
		notifications.WithDispatchLogger(logging.NotificationsLogger(provider)),
		notifications.WithDispatchBatchSize(notifyCfg.DispatchBatchSize),
	}
	for _, transport := range noop.Transports(logging.NotificationsLogger(provider)) {
		dispatchOpts = append(dispatchOpts, notifications.WithTransport(transport))
	}
	for _, transport := range c.transports {
		dispatchOpts = append(dispatchOpts, notifications.WithTransport(transport))
	}
	c.dispatcher = notifications.NewDispatcher(c.queueRepo, dispatchOpts...)

	c.trackingSvc = tracking.NewService(c.orderRepo, c.progressSvc,
		tracking.WithQueueCleaner(c.queueRepo),
		tracking.WithPublisher(c.publisher),
		tracking.WithLogger(logging.TrackingLogger(provider)),
		tracking.WithClock(c.clock),
	)
	return nil
}

func (c *Container) configureCommands() error {
	cmdCfg := c.Config.Commands
	if !cmdCfg.Enabled {
		return nil
	}

	progressHandlers, err := progresscmd.NewHandlers(c.progressSvc, c.loggerProvider)
	if err != nil {
		return err
	}
	c.progressCommands = progressHandlers

	dispatchOpts := []notificationscmd.DispatchHandlerOption{}
	if expr := strings.TrimSpace(c.Config.Notifications.DispatchCron); expr != "" {
		dispatchOpts = append(dispatchOpts, notificationscmd.DispatchWithCronExpression(expr))
	}
	notificationHandlers, err := notificationscmd.NewHandlers(c.dispatcher, c.reviewSvc, c.loggerProvider,
		notificationscmd.WithDispatchOptions(dispatchOpts...),
	)
	if err != nil {
		return err
	}
	c.notificationCommands = notificationHandlers

	opts := commands.RegistrationOptions{Registry: c.commandRegistry}
	if cmdCfg.AutoRegisterDispatcher {
		if c.commandDispatcher == nil {
			c.commandDispatcher = NewCommandDispatcher()
		}
		opts.Dispatcher = c.commandDispatcher
	}
	if cmdCfg.AutoRegisterCron {
		opts.CronRegistrar = c.cronRegistrar
	}
	if opts.Registry == nil && opts.Dispatcher == nil && opts.CronRegistrar == nil {
		return nil
	}

	result, err := commands.Register(opts, c.CommandHandlers()...)
	c.registration = result
	if err != nil {
		return fmt.Errorf("di: register commands: %w", err)
	}
	return nil
}

// Close releases dispatcher subscriptions and the Kafka client.
func (c *Container) Close() {
	if c == nil {
		return
	}
	if c.registration != nil {
		c.registration.Unsubscribe()
	}
	if c.kafkaPublisher != nil {
		c.kafkaPublisher.Close()
		c.kafkaPublisher = nil
	}
}

// Seed loads the embedded default stage catalog.
func (c *Container) Seed(ctx context.Context) (stages.SeedResult, error) {
	inputs, err := stages.DefaultSeed()
	if err != nil {
		return stages.SeedResult{}, err
	}
	return c.stageSvc.Seed(ctx, inputs)
}

// LoggerProvider exposes the resolved logger provider. It may be nil.
func (c *Container) LoggerProvider() interfaces.LoggerProvider {
	return c.loggerProvider
}

// Publisher exposes the configured event publisher.
func (c *Container) Publisher() events.Publisher {
	return c.publisher
}

// RouteManager exposes the go-urlkit manager used for tracking links.
func (c *Container) RouteManager() *urlkit.RouteManager {
	return c.routeManager
}

// StageService returns the stage catalog service.
func (c *Container) StageService() stages.Service {
	return c.stageSvc
}

// OrderRepository exposes the configured order repository.
func (c *Container) OrderRepository() orders.Repository {
	return c.orderRepo
}

// Ledger exposes the progress ledger.
func (c *Container) Ledger() progress.LedgerRepository {
	return c.ledger
}

// QueueRepository exposes the notification queue.
func (c *Container) QueueRepository() notifications.QueueRepository {
	return c.queueRepo
}

// ProgressService returns the progress service.
func (c *Container) ProgressService() progress.Service {
	return c.progressSvc
}

func (c *Container) Generator() *notifications.Generator {
	return c.generator
}

// ReviewService returns the notification review service.
func (c *Container) ReviewService() notifications.ReviewService {
	return c.reviewSvc
}

// Dispatcher returns the notification dispatcher.
func (c *Container) Dispatcher() *notifications.Dispatcher {
	return c.dispatcher
}

// TrackingService returns the orders and tracking service.
func (c *Container) TrackingService() tracking.Service {
	return c.trackingSvc
}

// ProgressCommands returns the progress command handlers when commands are enabled.
func (c *Container) ProgressCommands() *progresscmd.HandlerSet {
	return c.progressCommands
}

// NotificationCommands returns the notification command handlers when commands are enabled.
func (c *Container) NotificationCommands() *notificationscmd.HandlerSet {
	return c.notificationCommands
}

// CommandHandlers lists every constructed command handler.
func (c *Container) CommandHandlers() []any {
	handlers := make([]any, 0, 4)
	handlers = append(handlers, c.progressCommands.All()...)
	handlers = append(handlers, c.notificationCommands.All()...)
	return handlers
}

// Registration returns the result of automatic command registration, if any.
func (c *Container) Registration() *commands.RegistrationResult {
	return c.registration
}
