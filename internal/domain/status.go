package domain

import "strings"

// ProgressStatus is the lifecycle state of a single (order, stage) progress row.
type ProgressStatus string

const (
	ProgressNotStarted ProgressStatus = "not_started"
	ProgressInProgress ProgressStatus = "in_progress"
	ProgressCompleted  ProgressStatus = "completed"
)

// IsValid reports whether the status is one of the known progress states.
func (s ProgressStatus) IsValid() bool {
	switch s {
	case ProgressNotStarted, ProgressInProgress, ProgressCompleted:
		return true
	default:
		return false
	}
}

// Started reports whether the status implies work has begun on the stage.
func (s ProgressStatus) Started() bool {
	return s == ProgressInProgress || s == ProgressCompleted
}

// ParseProgressStatus normalises free-form input. Unknown values are returned
// as-is so callers can reject them through IsValid.
func ParseProgressStatus(input string) ProgressStatus {
	normalized := strings.ToLower(strings.TrimSpace(input))
	normalized = strings.NewReplacer("-", "_", " ", "_").Replace(normalized)
	return ProgressStatus(normalized)
}

// NotificationStatus tracks a queued notification through review and dispatch.
type NotificationStatus string

const (
	NotificationPendingReview NotificationStatus = "pending_review"
	NotificationApproved      NotificationStatus = "approved"
	NotificationSent          NotificationStatus = "sent"
	NotificationFailed        NotificationStatus = "failed"
)

func (s NotificationStatus) IsValid() bool {
	switch s {
	case NotificationPendingReview, NotificationApproved, NotificationSent, NotificationFailed:
		return true
	default:
		return false
	}
}

// Channel identifies a notification transport.
type Channel string

const (
	ChannelSMS   Channel = "sms"
	ChannelEmail Channel = "email"
)

func (c Channel) IsValid() bool {
	return c == ChannelSMS || c == ChannelEmail
}

// Channels lists every supported channel in dispatch order.
func Channels() []Channel {
	return []Channel{ChannelSMS, ChannelEmail}
}

// OrderSource records how an order entered the system.
type OrderSource string

const (
	SourceManual  OrderSource = "manual"
	SourceCSV     OrderSource = "csv"
	SourceShopify OrderSource = "shopify"
)

func (s OrderSource) IsValid() bool {
	switch s {
	case SourceManual, SourceCSV, SourceShopify:
		return true
	default:
		return false
	}
}
