package domain

import internaldomain "github.com/goliatone/go-order-tracker/internal/domain"

// ProgressStatus is the lifecycle state of an order's stage.
type ProgressStatus = internaldomain.ProgressStatus

const (
	// ProgressNotStarted marks a stage no work has begun on.
	ProgressNotStarted = internaldomain.ProgressNotStarted
	// ProgressInProgress marks a stage currently being worked.
	ProgressInProgress = internaldomain.ProgressInProgress
	// ProgressCompleted marks a finished stage. Completed rows are immutable.
	ProgressCompleted = internaldomain.ProgressCompleted
)

// NotificationStatus tracks a queued notification.
type NotificationStatus = internaldomain.NotificationStatus

const (
	NotificationPendingReview = internaldomain.NotificationPendingReview
	NotificationApproved      = internaldomain.NotificationApproved
	NotificationSent          = internaldomain.NotificationSent
	NotificationFailed        = internaldomain.NotificationFailed
)

// Channel identifies a notification transport.
type Channel = internaldomain.Channel

const (
	ChannelSMS   = internaldomain.ChannelSMS
	ChannelEmail = internaldomain.ChannelEmail
)

// OrderSource records how an order entered the system.
type OrderSource = internaldomain.OrderSource

const (
	SourceManual  = internaldomain.SourceManual
	SourceCSV     = internaldomain.SourceCSV
	SourceShopify = internaldomain.SourceShopify
)

// ParseProgressStatus normalises free-form status input such as "In Progress".
func ParseProgressStatus(input string) ProgressStatus {
	return internaldomain.ParseProgressStatus(input)
}
