package noop

import (
	"context"

	"github.com/google/uuid"

	"github.com/goliatone/go-order-tracker/internal/logging"
	"github.com/goliatone/go-order-tracker/pkg/interfaces"
)

// SMS returns a transport that logs SMS messages instead of sending them.
func SMS(logger interfaces.Logger) interfaces.NotificationTransport {
	return newTransport("sms", logger)
}

// Email returns a transport that logs email messages instead of sending them.
func Email(logger interfaces.Logger) interfaces.NotificationTransport {
	return newTransport("email", logger)
}

// Transports returns the logging transports for every channel.
func Transports(logger interfaces.Logger) []interfaces.NotificationTransport {
	return []interfaces.NotificationTransport{SMS(logger), Email(logger)}
}

type transport struct {
	channel string
	logger  interfaces.Logger
}

func newTransport(channel string, logger interfaces.Logger) transport {
	if logger == nil {
		logger = logging.NoOp()
	}
	return transport{channel: channel, logger: logger}
}

func (t transport) Channel() string { return t.channel }

func (t transport) Send(ctx context.Context, msg interfaces.OutboundMessage) (interfaces.DeliveryReceipt, error) {
	if err := ctx.Err(); err != nil {
		return interfaces.DeliveryReceipt{}, err
	}
	t.logger.Info("notifications.transport.noop",
		"channel", t.channel,
		"message_id", msg.ID,
		"recipient", msg.Recipient,
		"subject", msg.Subject,
		"body_length", len(msg.Body),
	)
	return interfaces.DeliveryReceipt{ProviderID: "noop-" + uuid.NewString()}, nil
}
