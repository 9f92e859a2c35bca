package notifications

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-order-tracker/internal/domain"
	"github.com/goliatone/go-order-tracker/internal/events"
	"github.com/goliatone/go-order-tracker/internal/logging"
	"github.com/goliatone/go-order-tracker/pkg/interfaces"
)

// DefaultDispatchBatchSize bounds how many approved items one Process call sends.
const DefaultDispatchBatchSize = 50

// DispatchReport summarises one Process run.
type DispatchReport struct {
	Attempted int
	Sent      int
	Failed    int
}

// DispatchOption configures the dispatcher.
type DispatchOption func(*Dispatcher)

// WithTransport registers a transport for its channel.
func WithTransport(transport interfaces.NotificationTransport) DispatchOption {
	return func(d *Dispatcher) {
		if transport == nil {
			return
		}
		d.transports[domain.Channel(strings.ToLower(transport.Channel()))] = transport
	}
}

func WithDispatchBatchSize(size int) DispatchOption {
	return func(d *Dispatcher) {
		if size > 0 {
			d.batchSize = size
		}
	}
}

func WithDispatchClock(clock func() time.Time) DispatchOption {
	return func(d *Dispatcher) {
		if clock != nil {
			d.now = clock
		}
	}
}

func WithDispatchLogger(logger interfaces.Logger) DispatchOption {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

func WithDispatchPublisher(publisher events.Publisher) DispatchOption {
	return func(d *Dispatcher) {
		if publisher != nil {
			d.publisher = publisher
		}
	}
}

// WithHTMLRenderer overrides the goldmark email renderer.
func WithHTMLRenderer(renderer HTMLRenderer) DispatchOption {
	return func(d *Dispatcher) {
		if renderer != nil {
			d.renderer = renderer
		}
	}
}

// Dispatcher sends approved queue items and records the outcome on each.
type Dispatcher struct {
	queue      QueueRepository
	transports map[domain.Channel]interfaces.NotificationTransport
	renderer   HTMLRenderer
	publisher  events.Publisher
	logger     interfaces.Logger
	now        func() time.Time
	batchSize  int
}

// NewDispatcher wires a dispatcher over the queue.
func NewDispatcher(queue QueueRepository, opts ...DispatchOption) *Dispatcher {
	d := &Dispatcher{
		queue:      queue,
		transports: make(map[domain.Channel]interfaces.NotificationTransport),
		renderer:   NewGoldmarkRenderer(),
		publisher:  events.NewNoopPublisher(),
		logger:     logging.NoOp(),
		now:        time.Now,
		batchSize:  DefaultDispatchBatchSize,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Process sends up to the batch size of approved items. Every attempted item
// ends up sent or failed. The returned error only reports storage failures.
func (d *Dispatcher) Process(ctx context.Context) (DispatchReport, error) {
	if d.queue == nil {
		return DispatchReport{}, errors.New("notifications: queue repository is nil")
	}
	items, err := d.queue.List(ctx, QueueFilter{Status: domain.NotificationApproved, Limit: d.batchSize})
	if err != nil {
		return DispatchReport{}, err
	}

	report := DispatchReport{}
	var errs []error
	for _, item := range items {
		if item == nil {
			continue
		}
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		report.Attempted++
		sendErr := d.send(ctx, item)
		if err := d.record(ctx, item, sendErr); err != nil {
			errs = append(errs, err)
		}
		if sendErr != nil {
			report.Failed++
			continue
		}
		report.Sent++
	}

	if report.Attempted > 0 {
		d.logger.Info("notifications.dispatch.complete",
			"attempted", report.Attempted,
			"sent", report.Sent,
			"failed", report.Failed,
		)
	}
	return report, errors.Join(errs...)
}

func (d *Dispatcher) send(ctx context.Context, item *QueueItem) error {
	transport, ok := d.transports[item.Channel]
	if !ok {
		return fmt.Errorf("%w: %s", ErrTransportMissing, item.Channel)
	}
	msg := interfaces.OutboundMessage{
		ID:        item.ID.String(),
		Channel:   string(item.Channel),
		Recipient: item.Recipient,
		Subject:   item.Subject,
		Body:      item.MessageBody,
		Metadata: map[string]any{
			"order_id": item.OrderID.String(),
			"stage_id": item.StageID.String(),
			"batch_id": item.BatchID.String(),
		},
	}
	if item.Channel == domain.ChannelEmail {
		html, err := d.renderer.Render(item.MessageBody)
		if err != nil {
			return err
		}
		msg.HTML = html
	}
	receipt, err := transport.Send(ctx, msg)
	if err != nil {
		return err
	}
	if receipt.ProviderID != "" {
		d.logger.Debug("notifications.dispatch.sent", "item_id", msg.ID, "provider_id", receipt.ProviderID)
	}
	return nil
}

func (d *Dispatcher) record(ctx context.Context, item *QueueItem, sendErr error) error {
	now := d.now()
	next := domain.NotificationSent
	if sendErr != nil {
		next = domain.NotificationFailed
	}
	if !CanTransition(item.Status, next) {
		return fmt.Errorf("%w: %s to %s", ErrInvalidQueueTransition, item.Status, next)
	}

	item.Status = next
	item.UpdatedAt = now
	eventType := events.TypeNotificationSent
	if sendErr != nil {
		msg := sendErr.Error()
		item.ErrorMessage = &msg
		eventType = events.TypeNotificationFailed
		logging.WithProgressContext(d.logger, item.OrderID, item.StageID, item.BatchID).
			Warn("notifications.dispatch.failed", "item_id", item.ID.String(), "channel", item.Channel, "error", sendErr)
	} else {
		item.SentAt = &now
		item.ErrorMessage = nil
	}
	if _, err := d.queue.Update(ctx, item); err != nil {
		d.logger.Error("notifications.dispatch.record_failed", "item_id", item.ID.String(), "error", err)
		return err
	}

	event := events.New(eventType, item.OrderID, map[string]any{
		"item_id": item.ID.String(),
		"channel": string(item.Channel),
	})
	event.StageID = item.StageID
	event.BatchID = item.BatchID
	if err := d.publisher.Publish(ctx, event); err != nil {
		d.logger.Warn("notifications.events.publish_failed", "error", err)
	}
	return nil
}
