package tracking

import (
	"time"

	"github.com/goliatone/go-order-tracker/internal/domain"
	"github.com/goliatone/go-order-tracker/internal/orders"
)

// CreateOrderInput describes a new order entering the pipeline.
type CreateOrderInput struct {
	OrderNumber  string
	FirstName    string
	LastName     string
	Email        string
	Phone        string
	Source       domain.OrderSource
	ExternalID   string
	SMSEnabled   bool
	EmailEnabled bool
}

// ImportOrderInput is an order coming from an external system. Imports are
// keyed on (Source, ExternalID) so re-running one is harmless.
type ImportOrderInput struct {
	CreateOrderInput
	// CompleteFirstStage marks the earliest stage completed when the order is
	// first created. CSV imports always do this.
	CompleteFirstStage bool
}

// ImportResult reports whether an import created a new order.
type ImportResult struct {
	Order   *orders.Order
	Created bool
}

// PreferenceInput replaces the channel opt-ins for an order.
type PreferenceInput struct {
	SMSEnabled   bool
	EmailEnabled bool
}

// DeleteResult counts what an order deletion removed alongside the order.
type DeleteResult struct {
	ProgressRows int
	QueueItems   int
}

// Timeline is the customer-facing view of an order's progress. Admin notes are
// never included.
type Timeline struct {
	OrderNumber  string          `json:"order_number"`
	FirstName    string          `json:"first_name"`
	CurrentStage string          `json:"current_stage,omitempty"`
	Completed    bool            `json:"completed"`
	Stages       []TimelineStage `json:"stages"`
}

// TimelineStage is one row of the customer timeline.
type TimelineStage struct {
	Name               string                `json:"name"`
	DisplayName        string                `json:"display_name"`
	Description        string                `json:"description,omitempty"`
	Icon               string                `json:"icon,omitempty"`
	SortOrder          int                   `json:"sort_order"`
	Status             domain.ProgressStatus `json:"status"`
	StartedAt          *time.Time            `json:"started_at,omitempty"`
	CompletedAt        *time.Time            `json:"completed_at,omitempty"`
	EstimatedStartDate *time.Time            `json:"estimated_start_date,omitempty"`
	EstimatedEndDate   *time.Time            `json:"estimated_end_date,omitempty"`
}
