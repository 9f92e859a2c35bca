package interfaces

import "context"

// OutboundMessage is the payload handed to a notification transport once an
// admin has approved a queued notification.
type OutboundMessage struct {
	ID        string
	Channel   string
	Recipient string
	Subject   string
	// Body holds the plain text (SMS) or markdown source (email) as reviewed.
	Body string
	// HTML is populated for email deliveries.
	HTML     string
	Metadata map[string]any
}

// DeliveryReceipt reports what the provider accepted.
type DeliveryReceipt struct {
	ProviderID string
}

// NotificationTransport sends a single message over one channel (sms, email).
// Twilio, Resend, or any other provider client lives behind this contract.
type NotificationTransport interface {
	Channel() string
	Send(ctx context.Context, msg OutboundMessage) (DeliveryReceipt, error)
}
