package progresscmd

import (
	"errors"

	"github.com/goliatone/go-order-tracker/internal/commands"
	"github.com/goliatone/go-order-tracker/pkg/interfaces"
)

// HandlerSet groups the progress command handlers.
type HandlerSet struct {
	Update     *UpdateProgressHandler
	BulkUpdate *BulkUpdateProgressHandler
}

// All returns the handlers in registration order.
func (s *HandlerSet) All() []any {
	if s == nil {
		return nil
	}
	return []any{s.Update, s.BulkUpdate}
}

// Option customises handler wiring.
type Option func(*options)

type options struct {
	updateOpts []commands.HandlerOption[UpdateProgressCommand]
	bulkOpts   []commands.HandlerOption[BulkUpdateProgressCommand]
}

// WithUpdateHandlerOptions forwards options to the single update handler.
func WithUpdateHandlerOptions(opts ...commands.HandlerOption[UpdateProgressCommand]) Option {
	return func(cfg *options) {
		cfg.updateOpts = append(cfg.updateOpts, opts...)
	}
}

// WithBulkHandlerOptions forwards options to the bulk update handler.
func WithBulkHandlerOptions(opts ...commands.HandlerOption[BulkUpdateProgressCommand]) Option {
	return func(cfg *options) {
		cfg.bulkOpts = append(cfg.bulkOpts, opts...)
	}
}

// NewHandlers builds the progress command handlers.
func NewHandlers(service ProgressUpdater, provider interfaces.LoggerProvider, opts ...Option) (*HandlerSet, error) {
	if service == nil {
		return nil, errors.New("progress command registration: service is nil")
	}
	cfg := options{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	logger := commands.CommandLogger(provider, "progress")
	return &HandlerSet{
		Update:     NewUpdateProgressHandler(service, logger, cfg.updateOpts...),
		BulkUpdate: NewBulkUpdateProgressHandler(service, logger, cfg.bulkOpts...),
	}, nil
}
