package orders

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Order is the aggregate root owning progress rows, queued notifications and
// an optional notification preference.
type Order struct {
	bun.BaseModel `bun:"table:orders,alias:o"`

	ID                uuid.UUID `bun:",pk,type:uuid" json:"id"`
	OrderNumber       string    `bun:"order_number,notnull,unique" json:"order_number"`
	CustomerFirstName string    `bun:"customer_first_name" json:"customer_first_name"`
	CustomerLastName  string    `bun:"customer_last_name" json:"customer_last_name,omitempty"`
	Email             string    `bun:"email" json:"email,omitempty"`
	Phone             string    `bun:"phone" json:"phone,omitempty"`
	Source            string    `bun:"source,notnull,default:'manual'" json:"source"`
	ExternalID        string    `bun:"external_id" json:"external_id,omitempty"`
	CreatedAt         time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at"`
	UpdatedAt         time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at"`

	Preference *NotificationPreference `bun:"-" json:"notification_preference,omitempty"`
}

// CustomerName joins first and last name.
func (o *Order) CustomerName() string {
	if o == nil {
		return ""
	}
	return strings.TrimSpace(o.CustomerFirstName + " " + o.CustomerLastName)
}

// NotificationPreference captures which channels a customer opted into.
type NotificationPreference struct {
	bun.BaseModel `bun:"table:notification_preferences,alias:np"`

	ID           uuid.UUID `bun:",pk,type:uuid" json:"id"`
	OrderID      uuid.UUID `bun:"order_id,notnull,unique,type:uuid" json:"order_id"`
	SMSEnabled   bool      `bun:"sms_enabled,notnull" json:"sms_enabled"`
	EmailEnabled bool      `bun:"email_enabled,notnull" json:"email_enabled"`
	UpdatedAt    time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at"`
}

// AnyEnabled reports whether at least one channel is enabled.
func (p *NotificationPreference) AnyEnabled() bool {
	return p != nil && (p.SMSEnabled || p.EmailEnabled)
}
