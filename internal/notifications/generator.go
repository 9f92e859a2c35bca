package notifications

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-order-tracker/internal/domain"
	"github.com/goliatone/go-order-tracker/internal/events"
	"github.com/goliatone/go-order-tracker/internal/logging"
	"github.com/goliatone/go-order-tracker/internal/orders"
	"github.com/goliatone/go-order-tracker/internal/stages"
	"github.com/goliatone/go-order-tracker/pkg/interfaces"
)

// PreferenceSource loads an order's notification preference.
type PreferenceSource interface {
	GetPreference(ctx context.Context, orderID uuid.UUID) (*orders.NotificationPreference, error)
}

// GeneratorOption configures the generator.
type GeneratorOption func(*Generator)

// WithTemplates overrides the embedded templates.
func WithTemplates(set *TemplateSet) GeneratorOption {
	return func(g *Generator) {
		if set != nil {
			g.templates = set
		}
	}
}

// WithTrackingLinks attaches a tracking link builder.
func WithTrackingLinks(links *TrackingLinks) GeneratorOption {
	return func(g *Generator) {
		g.links = links
	}
}

func WithGeneratorLogger(logger interfaces.Logger) GeneratorOption {
	return func(g *Generator) {
		if logger != nil {
			g.logger = logger
		}
	}
}

func WithGeneratorClock(clock func() time.Time) GeneratorOption {
	return func(g *Generator) {
		if clock != nil {
			g.now = clock
		}
	}
}

func WithGeneratorPublisher(publisher events.Publisher) GeneratorOption {
	return func(g *Generator) {
		if publisher != nil {
			g.publisher = publisher
		}
	}
}

// Generator builds pending_review queue items for a genuine stage transition.
type Generator struct {
	queue     QueueRepository
	prefs     PreferenceSource
	templates *TemplateSet
	links     *TrackingLinks
	logger    interfaces.Logger
	publisher events.Publisher
	now       func() time.Time
}

// NewGenerator wires a generator. The embedded templates are used unless
// WithTemplates is supplied.
func NewGenerator(queue QueueRepository, prefs PreferenceSource, opts ...GeneratorOption) (*Generator, error) {
	g := &Generator{
		queue:     queue,
		prefs:     prefs,
		logger:    logging.NoOp(),
		publisher: events.NewNoopPublisher(),
		now:       time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	if g.templates == nil {
		defaults, err := DefaultTemplates()
		if err != nil {
			return nil, err
		}
		g.templates = defaults
	}
	return g, nil
}

// QueueNotifications inserts one item per enabled channel and returns how many
// were queued. A missing preference queues nothing.
func (g *Generator) QueueNotifications(ctx context.Context, order *orders.Order, stage *stages.Stage, batchID uuid.UUID) (int, error) {
	if order == nil || stage == nil {
		return 0, nil
	}
	logger := logging.WithProgressContext(g.logger, order.ID, stage.ID, batchID)

	pref, err := g.prefs.GetPreference(ctx, order.ID)
	if err != nil {
		var nf *orders.NotFoundError
		if errors.As(err, &nf) {
			return 0, nil
		}
		return 0, queueError(order.ID, stage.ID, batchID, err)
	}
	if !pref.AnyEnabled() {
		return 0, nil
	}

	data := g.messageData(order, stage, logger)
	now := g.now()
	items := make([]*QueueItem, 0, 2)
	for _, channel := range domain.Channels() {
		recipient, enabled := recipientFor(channel, order, pref)
		if !enabled {
			continue
		}
		if recipient == "" {
			logger.Warn("notifications.queue.recipient_missing", "channel", channel)
			continue
		}
		rendered, err := g.templates.Render(channel, data)
		if err != nil {
			return 0, queueError(order.ID, stage.ID, batchID, err)
		}
		items = append(items, &QueueItem{
			ID:          uuid.New(),
			OrderID:     order.ID,
			StageID:     stage.ID,
			Channel:     channel,
			Recipient:   recipient,
			Subject:     rendered.Subject,
			MessageBody: rendered.Body,
			Status:      domain.NotificationPendingReview,
			BatchID:     batchID,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}
	if len(items) == 0 {
		return 0, nil
	}
	if err := g.queue.InsertBatch(ctx, items); err != nil {
		return 0, queueError(order.ID, stage.ID, batchID, err)
	}

	logger.Info("notifications.queue.created", "count", len(items), "stage", stage.Name)
	event := events.New(events.TypeNotificationsQueued, order.ID, map[string]any{
		"count": len(items),
		"stage": stage.Name,
	})
	event.StageID = stage.ID
	event.BatchID = batchID
	if err := g.publisher.Publish(ctx, event); err != nil {
		logger.Warn("notifications.events.publish_failed", "error", err)
	}
	return len(items), nil
}

func (g *Generator) messageData(order *orders.Order, stage *stages.Stage, logger interfaces.Logger) MessageData {
	firstName := strings.TrimSpace(order.CustomerFirstName)
	if firstName == "" {
		firstName = "there"
	}
	data := MessageData{
		FirstName:        firstName,
		CustomerName:     order.CustomerName(),
		OrderNumber:      order.OrderNumber,
		StageName:        stage.Name,
		StageDisplayName: stage.DisplayName,
		StageDescription: stage.Description,
	}
	if g.links != nil {
		url, err := g.links.Build(order.OrderNumber)
		if err != nil {
			logger.Warn("notifications.tracking_link.failed", "error", err)
		} else {
			data.TrackingURL = url
		}
	}
	return data
}

func recipientFor(channel domain.Channel, order *orders.Order, pref *orders.NotificationPreference) (string, bool) {
	switch channel {
	case domain.ChannelSMS:
		return orders.NormalizePhone(order.Phone), pref.SMSEnabled
	case domain.ChannelEmail:
		return strings.TrimSpace(order.Email), pref.EmailEnabled
	default:
		return "", false
	}
}
