package progresscmd

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"github.com/goliatone/go-order-tracker/internal/domain"
)

const (
	updateProgressMessageType     = "progress.update"
	bulkUpdateProgressMessageType = "progress.bulk_update"
)

// UpdateProgressCommand moves one order's stage to a new status.
type UpdateProgressCommand struct {
	OrderID            uuid.UUID  `json:"order_id"`
	StageID            uuid.UUID  `json:"stage_id"`
	Status             string     `json:"status"`
	EstimatedStartDate *time.Time `json:"estimated_start_date,omitempty"`
	EstimatedEndDate   *time.Time `json:"estimated_end_date,omitempty"`
	AdminNotes         *string    `json:"admin_notes,omitempty"`
	// QueueNotification asks for customer notifications when the status changes.
	QueueNotification bool `json:"queue_notification,omitempty"`
}

// Type implements command.Message.
func (UpdateProgressCommand) Type() string { return updateProgressMessageType }

// Validate ensures identifiers and status are usable before handlers execute.
func (cmd UpdateProgressCommand) Validate() error {
	return validation.ValidateStruct(&cmd,
		validation.Field(&cmd.OrderID, validation.By(requiredUUID("progress.update.order_id_required", "order id is required"))),
		validation.Field(&cmd.StageID, validation.By(requiredUUID("progress.update.stage_id_required", "stage id is required"))),
		validation.Field(&cmd.Status, validation.Required, validation.By(validStatus)),
	)
}

// BulkUpdateProgressCommand applies one status to a stage across many orders.
type BulkUpdateProgressCommand struct {
	OrderIDs          []uuid.UUID `json:"order_ids"`
	StageID           uuid.UUID   `json:"stage_id"`
	Status            string      `json:"status"`
	QueueNotification bool        `json:"queue_notification,omitempty"`
}

// Type implements command.Message.
func (BulkUpdateProgressCommand) Type() string { return bulkUpdateProgressMessageType }

// Validate ensures the bulk request targets at least one order. The upper
// bound is enforced by the progress service.
func (cmd BulkUpdateProgressCommand) Validate() error {
	return validation.ValidateStruct(&cmd,
		validation.Field(&cmd.OrderIDs, validation.Required),
		validation.Field(&cmd.StageID, validation.By(requiredUUID("progress.bulk_update.stage_id_required", "stage id is required"))),
		validation.Field(&cmd.Status, validation.Required, validation.By(validStatus)),
	)
}

func requiredUUID(code, message string) validation.RuleFunc {
	return func(value any) error {
		id, _ := value.(uuid.UUID)
		if id == uuid.Nil {
			return validation.NewError(code, message)
		}
		return nil
	}
}

func validStatus(value any) error {
	raw, _ := value.(string)
	if raw == "" {
		return nil
	}
	if !domain.ParseProgressStatus(raw).IsValid() {
		return validation.NewError("progress.status_invalid", "status must be not_started, in_progress or completed")
	}
	return nil
}
