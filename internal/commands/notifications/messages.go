package notificationscmd

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
)

const (
	dispatchMessageType     = "notifications.dispatch"
	approveBatchMessageType = "notifications.approve_batch"
)

// DispatchNotificationsCommand sends the next window of approved notifications.
type DispatchNotificationsCommand struct{}

// Type implements command.Message.
func (DispatchNotificationsCommand) Type() string { return dispatchMessageType }

// Validate satisfies command.Message.
func (DispatchNotificationsCommand) Validate() error { return nil }

// ApproveBatchCommand approves every pending notification sharing a batch id.
type ApproveBatchCommand struct {
	BatchID uuid.UUID `json:"batch_id"`
}

// Type implements command.Message.
func (ApproveBatchCommand) Type() string { return approveBatchMessageType }

// Validate ensures a batch id is present.
func (cmd ApproveBatchCommand) Validate() error {
	return validation.ValidateStruct(&cmd,
		validation.Field(&cmd.BatchID, validation.By(func(value any) error {
			if id, _ := value.(uuid.UUID); id == uuid.Nil {
				return validation.NewError("notifications.approve_batch.batch_id_required", "batch id is required")
			}
			return nil
		})),
	)
}
