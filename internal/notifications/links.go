package notifications

import (
	"fmt"
	"strings"

	urlkit "github.com/goliatone/go-urlkit"
)

// TrackingLinkOptions configures the go-urlkit backed link builder.
type TrackingLinkOptions struct {
	Manager *urlkit.RouteManager
	// Group is a dotted group path, e.g. "public" or "public.es".
	Group      string
	Route      string
	OrderParam string
}

// TrackingLinks builds customer-facing tracking URLs.
type TrackingLinks struct {
	manager    *urlkit.RouteManager
	group      string
	route      string
	orderParam string
}

// NewTrackingLinks returns nil when no route manager is configured.
func NewTrackingLinks(opts TrackingLinkOptions) *TrackingLinks {
	if opts.Manager == nil {
		return nil
	}
	if opts.OrderParam == "" {
		opts.OrderParam = "order_number"
	}
	return &TrackingLinks{
		manager:    opts.Manager,
		group:      strings.TrimSpace(opts.Group),
		route:      strings.TrimSpace(opts.Route),
		orderParam: opts.OrderParam,
	}
}

// Build returns the tracking URL for an order number.
func (l *TrackingLinks) Build(orderNumber string) (url string, err error) {
	if l == nil {
		return "", nil
	}
	defer func() {
		if rec := recover(); rec != nil {
			url = ""
			err = fmt.Errorf("notifications: tracking route %s.%s unavailable: %v", l.group, l.route, rec)
		}
	}()

	parts := strings.Split(l.group, ".")
	group := l.manager.Group(parts[0])
	for _, part := range parts[1:] {
		group = group.Group(part)
	}
	builder := group.Builder(l.route)
	builder.WithParam(l.orderParam, orderNumber)
	return builder.Build()
}
