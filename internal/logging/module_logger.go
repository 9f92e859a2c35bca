package logging

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/goliatone/go-order-tracker/pkg/interfaces"
)

const (
	rootModule          = "tracker"
	stagesModule        = "tracker.stages"
	progressModule      = "tracker.progress"
	notificationsModule = "tracker.notifications"
	trackingModule      = "tracker.tracking"
	eventsModule        = "tracker.events"
)

const (
	fieldOrderID = "order_id"
	fieldStageID = "stage_id"
	fieldBatchID = "batch_id"
)

// ModuleLogger returns a module-scoped logger, defaulting to a no-op
// implementation when no provider is supplied. The returned logger carries
// the module identifier as a structured field.
func ModuleLogger(provider interfaces.LoggerProvider, module string) interfaces.Logger {
	module = moduleName(module)

	logger := NoOp()
	if provider != nil {
		if provided := provider.GetLogger(module); provided != nil {
			logger = provided
		}
	}

	return WithFields(logger, map[string]any{
		"module": module,
	})
}

// StagesLogger returns the logger namespace reserved for the stage catalog.
func StagesLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, stagesModule)
}

// ProgressLogger returns the logger namespace reserved for the transition engine and bulk orchestrator.
func ProgressLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, progressModule)
}

// NotificationsLogger returns the logger namespace reserved for queueing, review and dispatch.
func NotificationsLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, notificationsModule)
}

// TrackingLogger returns the logger namespace reserved for order lifecycle and customer lookups.
func TrackingLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, trackingModule)
}

// EventsLogger returns the logger namespace reserved for event publishers.
func EventsLogger(provider interfaces.LoggerProvider) interfaces.Logger {
	return ModuleLogger(provider, eventsModule)
}

// WithProgressContext enriches the logger with order, stage and batch identifiers.
// Nil identifiers are skipped.
func WithProgressContext(logger interfaces.Logger, orderID, stageID, batchID uuid.UUID) interfaces.Logger {
	fields := map[string]any{}
	if orderID != uuid.Nil {
		fields[fieldOrderID] = orderID.String()
	}
	if stageID != uuid.Nil {
		fields[fieldStageID] = stageID.String()
	}
	if batchID != uuid.Nil {
		fields[fieldBatchID] = batchID.String()
	}
	return WithFields(logger, fields)
}

// NoOp returns a logger that drops every log entry.
func NoOp() interfaces.Logger {
	return noopLogger{}
}

type noopLogger struct{}

var _ interfaces.Logger = noopLogger{}
var _ interfaces.FieldsLogger = noopLogger{}

func (noopLogger) Trace(string, ...any) {}
func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
func (noopLogger) Fatal(string, ...any) {}

func (n noopLogger) WithFields(map[string]any) interfaces.Logger {
	return n
}

func (n noopLogger) WithContext(context.Context) interfaces.Logger {
	return n
}

// moduleName trims a requested logger name, falling back to the root module.
func moduleName(name string) string {
	if trimmed := strings.TrimSpace(name); trimmed != "" {
		return trimmed
	}
	return rootModule
}
