package notifications

import (
	"errors"
	"fmt"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

const CodeNotificationQueueError = "NOTIFICATION_QUEUE_ERROR"

var (
	ErrInvalidQueueTransition = errors.New("notifications: queue item cannot move to the requested state")
	ErrQueueItemIDRequired    = errors.New("notifications: queue item id required")
	ErrBatchIDRequired        = errors.New("notifications: batch id required")
	ErrRecipientRequired      = errors.New("notifications: recipient required")
	ErrMessageBodyRequired    = errors.New("notifications: message body required")
	ErrTemplateMissing        = errors.New("notifications: no template for channel")
	ErrTransportMissing       = errors.New("notifications: no transport registered for channel")
)

// NotFoundError is returned when a queue item lookup misses.
type NotFoundError struct {
	ID uuid.UUID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("notification queue item %s not found", e.ID)
}

// IsNotFound reports whether err is a queue item lookup miss.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// NotificationQueueError reports a failure to build or store notifications for
// a transition. The transition itself has already been stored.
type NotificationQueueError struct {
	OrderID uuid.UUID
	StageID uuid.UUID
	BatchID uuid.UUID
	Err     error
}

func (e *NotificationQueueError) Error() string {
	return fmt.Sprintf("notifications: queue for order %s stage %s batch %s: %v", e.OrderID, e.StageID, e.BatchID, e.Err)
}

func (e *NotificationQueueError) Unwrap() error { return e.Err }

func queueError(orderID, stageID, batchID uuid.UUID, err error) error {
	wrapped := &NotificationQueueError{OrderID: orderID, StageID: stageID, BatchID: batchID, Err: err}
	return goerrors.Wrap(wrapped, goerrors.CategoryInternal, "notification queueing failed").
		WithTextCode(CodeNotificationQueueError)
}
