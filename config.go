package tracker

import "github.com/goliatone/go-order-tracker/internal/runtimeconfig"

var (
	ErrStorageProviderUnknown       = runtimeconfig.ErrStorageProviderUnknown
	ErrCacheTTLInvalid              = runtimeconfig.ErrCacheTTLInvalid
	ErrMaxBulkOrdersInvalid         = runtimeconfig.ErrMaxBulkOrdersInvalid
	ErrBulkConcurrencyInvalid       = runtimeconfig.ErrBulkConcurrencyInvalid
	ErrDispatchBatchSizeInvalid     = runtimeconfig.ErrDispatchBatchSizeInvalid
	ErrTrackingRouteRequired        = runtimeconfig.ErrTrackingRouteRequired
	ErrEventsProviderUnknown        = runtimeconfig.ErrEventsProviderUnknown
	ErrEventsBrokersRequired        = runtimeconfig.ErrEventsBrokersRequired
	ErrEventsTopicRequired          = runtimeconfig.ErrEventsTopicRequired
	ErrCommandsCronRequiresCommands = runtimeconfig.ErrCommandsCronRequiresCommands
	ErrLoggingProviderUnknown       = runtimeconfig.ErrLoggingProviderUnknown
	ErrLoggingLevelInvalid          = runtimeconfig.ErrLoggingLevelInvalid
	ErrLoggingFormatInvalid         = runtimeconfig.ErrLoggingFormatInvalid
)

type (
	Config              = runtimeconfig.Config
	StorageConfig       = runtimeconfig.StorageConfig
	CacheConfig         = runtimeconfig.CacheConfig
	ProgressConfig      = runtimeconfig.ProgressConfig
	NotificationsConfig = runtimeconfig.NotificationsConfig
	TrackingLinkConfig  = runtimeconfig.TrackingLinkConfig
	EventsConfig        = runtimeconfig.EventsConfig
	CommandsConfig      = runtimeconfig.CommandsConfig
	LoggingConfig       = runtimeconfig.LoggingConfig
)

// DefaultConfig returns defaults suitable for local development and tests.
func DefaultConfig() Config {
	return runtimeconfig.DefaultConfig()
}
