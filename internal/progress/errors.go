package progress

import (
	"errors"
	"fmt"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"

	"github.com/goliatone/go-order-tracker/internal/domain"
)

const (
	CodeInvalidStage      = "INVALID_STAGE"
	CodeInvalidStatus     = "INVALID_STATUS"
	CodeInvalidRequest    = "INVALID_PROGRESS_REQUEST"
	CodeOrderNotFound     = "ORDER_NOT_FOUND"
	CodeTooManyOrders     = "TOO_MANY_ORDERS"
	CodeImmutableState    = "IMMUTABLE_STATE"
	CodeStorageError      = "STORAGE_ERROR"
	codeProgressUnhandled = "PROGRESS_FAILED"
)

var (
	ErrInvalidStage          = errors.New("progress: stage does not exist")
	ErrInvalidStatus         = errors.New("progress: status must be not_started, in_progress or completed")
	ErrEstimatedDatesInvalid = errors.New("progress: estimated start date must not be after estimated end date")
	ErrOrderIDRequired       = errors.New("progress: order id required")
	ErrStageIDRequired       = errors.New("progress: stage id required")
	ErrOrderNotFound         = errors.New("progress: order not found")
	ErrNoOrders              = errors.New("progress: bulk update requires at least one order id")
	ErrTooManyOrders         = errors.New("progress: bulk update exceeds the maximum number of orders")
)

// ImmutableStateError rejects an attempt to move a completed stage back to an
// earlier status.
type ImmutableStateError struct {
	OrderID     uuid.UUID
	StageID     uuid.UUID
	CompletedAt time.Time
	Requested   domain.ProgressStatus
}

func (e *ImmutableStateError) Error() string {
	return fmt.Sprintf("progress: stage %s of order %s was completed at %s and cannot move to %s",
		e.StageID, e.OrderID, e.CompletedAt.Format(time.RFC3339), e.Requested)
}

// checkImmutable rejects writing status over a stored completed row.
func checkImmutable(stored *OrderProgress, status domain.ProgressStatus) error {
	if !stored.Locked() || status == domain.ProgressCompleted {
		return nil
	}
	return &ImmutableStateError{
		OrderID:     stored.OrderID,
		StageID:     stored.StageID,
		CompletedAt: *stored.CompletedAt,
		Requested:   status,
	}
}

// StorageError wraps a ledger or catalog backend failure.
type StorageError struct {
	Op      string
	OrderID uuid.UUID
	StageID uuid.UUID
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("progress: %s failed for order %s stage %s: %v", e.Op, e.OrderID, e.StageID, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// NotFoundError is returned by ledger lookups that miss.
type NotFoundError struct {
	OrderID uuid.UUID
	StageID uuid.UUID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("order_progress for order %s stage %s not found", e.OrderID, e.StageID)
}

// IsNotFound reports whether err is a ledger lookup miss.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsImmutableState reports whether err rejected a completed-stage downgrade.
func IsImmutableState(err error) bool {
	var immutable *ImmutableStateError
	return errors.As(err, &immutable)
}

// IsStorageError reports whether err came from a storage backend.
func IsStorageError(err error) bool {
	var storage *StorageError
	return errors.As(err, &storage)
}

func invalidStatus(status domain.ProgressStatus) error {
	return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
}

func storageError(op string, orderID, stageID uuid.UUID, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, OrderID: orderID, StageID: stageID, Err: err}
}

// classify tags service errors with a go-errors category and text code so
// callers can map them to responses without inspecting sentinels.
func classify(err error) error {
	if err == nil || goerrors.IsWrapped(err) {
		return err
	}
	switch {
	case errors.Is(err, ErrInvalidStage):
		return goerrors.Wrap(err, goerrors.CategoryValidation, "stage does not exist").WithTextCode(CodeInvalidStage)
	case errors.Is(err, ErrInvalidStatus):
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid progress status").WithTextCode(CodeInvalidStatus)
	case errors.Is(err, ErrEstimatedDatesInvalid),
		errors.Is(err, ErrOrderIDRequired),
		errors.Is(err, ErrStageIDRequired),
		errors.Is(err, ErrNoOrders):
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid progress request").WithTextCode(CodeInvalidRequest)
	case errors.Is(err, ErrTooManyOrders):
		return goerrors.Wrap(err, goerrors.CategoryValidation, "bulk request too large").WithTextCode(CodeTooManyOrders)
	case errors.Is(err, ErrOrderNotFound):
		return goerrors.Wrap(err, goerrors.CategoryNotFound, "order not found").WithTextCode(CodeOrderNotFound)
	case IsImmutableState(err):
		return goerrors.Wrap(err, goerrors.CategoryConflict, "completed stage cannot be downgraded").WithTextCode(CodeImmutableState)
	case IsStorageError(err):
		return goerrors.Wrap(err, goerrors.CategoryInternal, "progress storage failure").WithTextCode(CodeStorageError)
	default:
		return goerrors.Wrap(err, goerrors.CategoryInternal, "progress update failed").WithTextCode(codeProgressUnhandled)
	}
}
