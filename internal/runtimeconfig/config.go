package runtimeconfig

import (
	"errors"
	"fmt"
	"strings"
	"time"

	urlkit "github.com/goliatone/go-urlkit"
)

var ErrStorageProviderUnknown = errors.New("tracker config: storage provider is invalid")
var ErrCacheTTLInvalid = errors.New("tracker config: cache ttl must be positive when cache is enabled")

// ErrMaxBulkOrdersInvalid guards the request-level bulk size limit.
var ErrMaxBulkOrdersInvalid = errors.New("tracker config: progress max bulk orders must be positive")
var ErrBulkConcurrencyInvalid = errors.New("tracker config: progress bulk concurrency must be zero or positive")

var ErrDispatchBatchSizeInvalid = errors.New("tracker config: notification dispatch batch size must be positive")
var ErrTrackingRouteRequired = errors.New("tracker config: tracking route is required when a route config is supplied")

var ErrEventsProviderUnknown = errors.New("tracker config: events provider is invalid")
var ErrEventsBrokersRequired = errors.New("tracker config: kafka events provider requires at least one broker")
var ErrEventsTopicRequired = errors.New("tracker config: kafka events provider requires a topic")

// ErrCommandsCronRequiresCommands ensures cron wiring only runs with the command layer enabled.
var ErrCommandsCronRequiresCommands = errors.New("tracker config: command cron auto-registration requires commands to be enabled")

var ErrLoggingProviderUnknown = errors.New("tracker config: logging provider is invalid")
var ErrLoggingLevelInvalid = errors.New("tracker config: logging level is invalid")
var ErrLoggingFormatInvalid = errors.New("tracker config: logging format is invalid")

// Config aggregates adapter bindings and behaviour toggles for the tracker module.
type Config struct {
	Storage       StorageConfig
	Cache         CacheConfig
	Progress      ProgressConfig
	Notifications NotificationsConfig
	Events        EventsConfig
	Commands      CommandsConfig
	Logging       LoggingConfig
}

// StorageConfig selects the repository backend. "memory" keeps everything
// in-process; "bun" requires a *bun.DB handed to the container.
type StorageConfig struct {
	Provider string
	Driver   string
	DSN      string
}

// CacheConfig captures read-through cache behaviour for catalog and order lookups.
type CacheConfig struct {
	Enabled    bool
	DefaultTTL time.Duration
}

// ProgressConfig controls the transition engine and bulk orchestrator.
type ProgressConfig struct {
	// MaxBulkOrders bounds the number of orders a single bulk request may target.
	MaxBulkOrders int
	// BulkConcurrency is the number of rows processed at once; 0 or 1 is sequential.
	BulkConcurrency int
	// AtomicCascade wraps the target upsert and the cascade in one transaction.
	AtomicCascade bool
}

// NotificationsConfig captures template, tracking link and dispatch options.
type NotificationsConfig struct {
	Enabled bool
	// TemplateDir overrides the embedded templates when non-empty.
	TemplateDir       string
	Tracking          TrackingLinkConfig
	DispatchBatchSize int
	DispatchCron      string
}

// TrackingLinkConfig configures the go-urlkit route used to build customer
// tracking links embedded in notification bodies.
type TrackingLinkConfig struct {
	RouteConfig *urlkit.Config
	Group       string
	Route       string
	// OrderParam names the route parameter receiving the order number.
	OrderParam string
}

// EventsConfig selects the publisher used for progress events.
type EventsConfig struct {
	Provider string
	Brokers  []string
	Topic    string
	ClientID string
}

// CommandsConfig captures optional command-layer behaviour.
type CommandsConfig struct {
	Enabled                bool
	AutoRegisterDispatcher bool
	AutoRegisterCron       bool
}

// LoggingConfig captures provider-specific options for runtime logging.
type LoggingConfig struct {
	Provider  string
	Level     string
	Format    string
	AddSource bool
	Focus     []string
}

// DefaultConfig returns defaults suitable for local development and tests.
func DefaultConfig() Config {
	return Config{
		Storage: StorageConfig{
			Provider: "memory",
		},
		Cache: CacheConfig{
			Enabled:    false,
			DefaultTTL: time.Minute,
		},
		Progress: ProgressConfig{
			MaxBulkOrders:   500,
			BulkConcurrency: 1,
			AtomicCascade:   false,
		},
		Notifications: NotificationsConfig{
			Enabled: true,
			Tracking: TrackingLinkConfig{
				Group:      "public",
				Route:      "track",
				OrderParam: "order_number",
			},
			DispatchBatchSize: 50,
			DispatchCron:      "@every 1m",
		},
		Events: EventsConfig{
			Provider: "none",
			Topic:    "order-progress",
			ClientID: "go-order-tracker",
		},
		Commands: CommandsConfig{},
		Logging: LoggingConfig{
			Provider: "noop",
			Level:    "info",
			Format:   "json",
		},
	}
}

// Validate performs high-level consistency checks.
func (cfg Config) Validate() error {
	switch normalize(cfg.Storage.Provider) {
	case "memory", "bun":
	default:
		return fmt.Errorf("%w: %s", ErrStorageProviderUnknown, cfg.Storage.Provider)
	}
	if cfg.Cache.Enabled && cfg.Cache.DefaultTTL <= 0 {
		return ErrCacheTTLInvalid
	}
	if cfg.Progress.MaxBulkOrders <= 0 {
		return ErrMaxBulkOrdersInvalid
	}
	if cfg.Progress.BulkConcurrency < 0 {
		return ErrBulkConcurrencyInvalid
	}
	if cfg.Notifications.DispatchBatchSize <= 0 {
		return ErrDispatchBatchSizeInvalid
	}
	if cfg.Notifications.Tracking.RouteConfig != nil && strings.TrimSpace(cfg.Notifications.Tracking.Route) == "" {
		return ErrTrackingRouteRequired
	}
	switch normalize(cfg.Events.Provider) {
	case "", "none":
	case "kafka":
		if len(cfg.Events.Brokers) == 0 {
			return ErrEventsBrokersRequired
		}
		if strings.TrimSpace(cfg.Events.Topic) == "" {
			return ErrEventsTopicRequired
		}
	default:
		return fmt.Errorf("%w: %s", ErrEventsProviderUnknown, cfg.Events.Provider)
	}
	if cfg.Commands.AutoRegisterCron && !cfg.Commands.Enabled {
		return ErrCommandsCronRequiresCommands
	}

	provider := normalize(cfg.Logging.Provider)
	if !isSupportedProvider(provider) {
		return fmt.Errorf("%w: %s", ErrLoggingProviderUnknown, provider)
	}
	if level := strings.TrimSpace(cfg.Logging.Level); level != "" && !isSupportedLevel(level) {
		return fmt.Errorf("%w: %s", ErrLoggingLevelInvalid, level)
	}
	if provider == "gologger" {
		if format := strings.TrimSpace(cfg.Logging.Format); format != "" && !isSupportedFormat(format) {
			return fmt.Errorf("%w: %s", ErrLoggingFormatInvalid, format)
		}
	}
	return nil
}

func normalize(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func isSupportedProvider(provider string) bool {
	switch provider {
	case "", "noop", "gologger":
		return true
	default:
		return false
	}
}

func isSupportedLevel(level string) bool {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal":
		return true
	default:
		return false
	}
}

func isSupportedFormat(format string) bool {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json", "console", "pretty":
		return true
	default:
		return false
	}
}
