package notificationscmd

import (
	"errors"

	"github.com/goliatone/go-order-tracker/internal/commands"
	"github.com/goliatone/go-order-tracker/pkg/interfaces"
)

// HandlerSet groups the notification command handlers.
type HandlerSet struct {
	Dispatch     *DispatchHandler
	ApproveBatch *ApproveBatchHandler
}

// All returns the handlers in registration order.
func (s *HandlerSet) All() []any {
	if s == nil {
		return nil
	}
	return []any{s.Dispatch, s.ApproveBatch}
}

// Option customises handler wiring.
type Option func(*options)

type options struct {
	dispatchOpts []DispatchHandlerOption
	approveOpts  []commands.HandlerOption[ApproveBatchCommand]
}

// WithDispatchOptions forwards options to the dispatch handler.
func WithDispatchOptions(opts ...DispatchHandlerOption) Option {
	return func(cfg *options) {
		cfg.dispatchOpts = append(cfg.dispatchOpts, opts...)
	}
}

// WithApproveBatchOptions forwards options to the approve batch handler.
func WithApproveBatchOptions(opts ...commands.HandlerOption[ApproveBatchCommand]) Option {
	return func(cfg *options) {
		cfg.approveOpts = append(cfg.approveOpts, opts...)
	}
}

// NewHandlers builds the notification command handlers.
func NewHandlers(processor Processor, approver BatchApprover, provider interfaces.LoggerProvider, opts ...Option) (*HandlerSet, error) {
	if processor == nil {
		return nil, errors.New("notification command registration: dispatcher is nil")
	}
	if approver == nil {
		return nil, errors.New("notification command registration: review service is nil")
	}
	cfg := options{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	logger := commands.CommandLogger(provider, "notifications")
	return &HandlerSet{
		Dispatch:     NewDispatchHandler(processor, logger, cfg.dispatchOpts...),
		ApproveBatch: NewApproveBatchHandler(approver, logger, cfg.approveOpts...),
	}, nil
}
