package stages

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Stage is one named step of the production pipeline. SortOrder alone decides
// which stages come before or after another.
type Stage struct {
	bun.BaseModel `bun:"table:stages,alias:st"`

	ID          uuid.UUID `bun:",pk,type:uuid" json:"id"`
	Name        string    `bun:"name,notnull,unique" json:"name"`
	DisplayName string    `bun:"display_name,notnull" json:"display_name"`
	Description string    `bun:"description" json:"description,omitempty"`
	SortOrder   int       `bun:"sort_order,notnull,unique" json:"sort_order"`
	Icon        string    `bun:"icon" json:"icon,omitempty"`
	CreatedAt   time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at"`
	UpdatedAt   time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at"`
}

// Before reports whether the stage sits earlier in the pipeline than other.
func (s *Stage) Before(other *Stage) bool {
	if s == nil || other == nil {
		return false
	}
	return s.SortOrder < other.SortOrder
}
