package progress

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-order-tracker/internal/domain"
	"github.com/goliatone/go-order-tracker/internal/stages"
)

// OrderProgress is the ledger row for one (order, stage) pair.
//
// CompletedAt is set exactly when Status is completed and never changes once
// set. StartedAt is set on the first move into in_progress or completed and is
// never cleared.
type OrderProgress struct {
	bun.BaseModel `bun:"table:order_progress,alias:op"`

	ID                 uuid.UUID             `bun:",pk,type:uuid" json:"id"`
	OrderID            uuid.UUID             `bun:"order_id,notnull,type:uuid,unique:order_progress_order_stage" json:"order_id"`
	StageID            uuid.UUID             `bun:"stage_id,notnull,type:uuid,unique:order_progress_order_stage" json:"stage_id"`
	Status             domain.ProgressStatus `bun:"status,notnull" json:"status"`
	StartedAt          *time.Time            `bun:"started_at,nullzero" json:"started_at,omitempty"`
	CompletedAt        *time.Time            `bun:"completed_at,nullzero" json:"completed_at,omitempty"`
	EstimatedStartDate *time.Time            `bun:"estimated_start_date,nullzero" json:"estimated_start_date,omitempty"`
	EstimatedEndDate   *time.Time            `bun:"estimated_end_date,nullzero" json:"estimated_end_date,omitempty"`
	AdminNotes         *string               `bun:"admin_notes" json:"admin_notes,omitempty"`
	CreatedAt          time.Time             `bun:"created_at,nullzero,default:current_timestamp" json:"created_at"`
	UpdatedAt          time.Time             `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at"`
}

// Locked reports whether the row has been completed and can no longer be downgraded.
func (p *OrderProgress) Locked() bool {
	return p != nil && p.CompletedAt != nil
}

// ProgressTransition is a validated request to move a progress row to a new
// status, optionally carrying estimated dates and admin notes. Build it with
// NewProgressTransition.
type ProgressTransition struct {
	status         domain.ProgressStatus
	estimatedStart *time.Time
	estimatedEnd   *time.Time
	adminNotes     *string
}

// TransitionOption sets an optional field on a ProgressTransition.
type TransitionOption func(*ProgressTransition)

// WithEstimatedDates attaches estimated start and/or end dates. Nil values leave
// the stored dates untouched.
func WithEstimatedDates(start, end *time.Time) TransitionOption {
	return func(t *ProgressTransition) {
		t.estimatedStart = cloneTime(start)
		t.estimatedEnd = cloneTime(end)
	}
}

// WithAdminNotes attaches admin notes. A nil pointer leaves stored notes untouched;
// a pointer to an empty string clears them.
func WithAdminNotes(notes *string) TransitionOption {
	return func(t *ProgressTransition) {
		if notes == nil {
			t.adminNotes = nil
			return
		}
		trimmed := strings.TrimSpace(*notes)
		t.adminNotes = &trimmed
	}
}

// NewProgressTransition validates the status and optional fields.
func NewProgressTransition(status domain.ProgressStatus, opts ...TransitionOption) (ProgressTransition, error) {
	t := ProgressTransition{status: status}
	if !status.IsValid() {
		return ProgressTransition{}, invalidStatus(status)
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&t)
		}
	}
	if t.estimatedStart != nil && t.estimatedEnd != nil && t.estimatedStart.After(*t.estimatedEnd) {
		return ProgressTransition{}, ErrEstimatedDatesInvalid
	}
	return t, nil
}

func (t ProgressTransition) Status() domain.ProgressStatus { return t.status }

func (t ProgressTransition) EstimatedStart() *time.Time { return cloneTime(t.estimatedStart) }

func (t ProgressTransition) EstimatedEnd() *time.Time { return cloneTime(t.estimatedEnd) }

func (t ProgressTransition) AdminNotes() *string { return cloneString(t.adminNotes) }

// apply copies the transition's optional fields onto row.
func (t ProgressTransition) apply(row *OrderProgress) {
	row.Status = t.status
	if t.estimatedStart != nil {
		row.EstimatedStartDate = cloneTime(t.estimatedStart)
	}
	if t.estimatedEnd != nil {
		row.EstimatedEndDate = cloneTime(t.estimatedEnd)
	}
	if t.adminNotes != nil {
		if *t.adminNotes == "" {
			row.AdminNotes = nil
		} else {
			row.AdminNotes = cloneString(t.adminNotes)
		}
	}
}

// CascadeFailure records a prior stage the engine could not auto-complete.
type CascadeFailure struct {
	StageID uuid.UUID
	Err     error
}

// TransitionOutcome describes the effect of one ApplyTransition call.
type TransitionOutcome struct {
	Stage    *stages.Stage
	Previous domain.ProgressStatus
	Progress *OrderProgress
	// Changed is false when the call re-applied the status the row already had.
	Changed         bool
	Cascaded        []uuid.UUID
	CascadeFailures []CascadeFailure
}

func cloneProgress(row *OrderProgress) *OrderProgress {
	if row == nil {
		return nil
	}
	cloned := *row
	cloned.StartedAt = cloneTime(row.StartedAt)
	cloned.CompletedAt = cloneTime(row.CompletedAt)
	cloned.EstimatedStartDate = cloneTime(row.EstimatedStartDate)
	cloned.EstimatedEndDate = cloneTime(row.EstimatedEndDate)
	cloned.AdminNotes = cloneString(row.AdminNotes)
	return &cloned
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	copied := *value
	return &copied
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	copied := *value
	return &copied
}
