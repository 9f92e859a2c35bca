package notifications

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"github.com/goliatone/go-order-tracker/internal/domain"
	"github.com/goliatone/go-order-tracker/internal/logging"
	"github.com/goliatone/go-order-tracker/internal/orders"
	"github.com/goliatone/go-order-tracker/pkg/interfaces"
)

// AllowedTransitions lists the queue status moves the review and dispatch
// paths may perform.
var AllowedTransitions = map[domain.NotificationStatus][]domain.NotificationStatus{
	domain.NotificationPendingReview: {domain.NotificationApproved},
	domain.NotificationApproved:      {domain.NotificationSent, domain.NotificationFailed},
	domain.NotificationFailed:        {domain.NotificationApproved},
}

// CanTransition reports whether an item may move from one status to another.
func CanTransition(from, to domain.NotificationStatus) bool {
	for _, next := range AllowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// EditInput changes a pending item before approval. Nil fields are left as is.
type EditInput struct {
	ID        uuid.UUID
	Recipient *string
	Subject   *string
	Body      *string
}

// ReviewService is the admin surface over the queue.
type ReviewService interface {
	ListPending(ctx context.Context, limit int) ([]*QueueItem, error)
	List(ctx context.Context, filter QueueFilter) ([]*QueueItem, error)
	Get(ctx context.Context, id uuid.UUID) (*QueueItem, error)
	Edit(ctx context.Context, input EditInput) (*QueueItem, error)
	Approve(ctx context.Context, id uuid.UUID) (*QueueItem, error)
	ApproveBatch(ctx context.Context, batchID uuid.UUID) (int, error)
	Retry(ctx context.Context, id uuid.UUID) (*QueueItem, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByOrder(ctx context.Context, orderID uuid.UUID) (int, error)
}

// ReviewOption configures the review service.
type ReviewOption func(*reviewService)

func WithReviewClock(clock func() time.Time) ReviewOption {
	return func(s *reviewService) {
		if clock != nil {
			s.now = clock
		}
	}
}

func WithReviewLogger(logger interfaces.Logger) ReviewOption {
	return func(s *reviewService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

type reviewService struct {
	queue  QueueRepository
	now    func() time.Time
	logger interfaces.Logger
}

// NewReviewService wires the review service.
func NewReviewService(queue QueueRepository, opts ...ReviewOption) ReviewService {
	s := &reviewService{queue: queue, now: time.Now, logger: logging.NoOp()}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *reviewService) ListPending(ctx context.Context, limit int) ([]*QueueItem, error) {
	return s.queue.List(ctx, QueueFilter{Status: domain.NotificationPendingReview, Limit: limit})
}

func (s *reviewService) List(ctx context.Context, filter QueueFilter) ([]*QueueItem, error) {
	return s.queue.List(ctx, filter)
}

func (s *reviewService) Get(ctx context.Context, id uuid.UUID) (*QueueItem, error) {
	if id == uuid.Nil {
		return nil, ErrQueueItemIDRequired
	}
	return s.queue.GetByID(ctx, id)
}

func (s *reviewService) Edit(ctx context.Context, input EditInput) (*QueueItem, error) {
	item, err := s.Get(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	if item.Status != domain.NotificationPendingReview {
		return nil, fmt.Errorf("%w: %s items cannot be edited", ErrInvalidQueueTransition, item.Status)
	}

	if input.Recipient != nil {
		recipient := strings.TrimSpace(*input.Recipient)
		if item.Channel == domain.ChannelSMS {
			recipient = orders.NormalizePhone(recipient)
		}
		item.Recipient = recipient
	}
	if input.Subject != nil {
		item.Subject = strings.TrimSpace(*input.Subject)
	}
	if input.Body != nil {
		item.MessageBody = strings.TrimSpace(*input.Body)
	}
	if err := validateItem(item); err != nil {
		return nil, err
	}
	item.UpdatedAt = s.now()
	return s.queue.Update(ctx, item)
}

func (s *reviewService) Approve(ctx context.Context, id uuid.UUID) (*QueueItem, error) {
	item, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.approve(ctx, item)
}

func (s *reviewService) approve(ctx context.Context, item *QueueItem) (*QueueItem, error) {
	if item.Status != domain.NotificationPendingReview {
		return nil, fmt.Errorf("%w: approve %s", ErrInvalidQueueTransition, item.Status)
	}
	now := s.now()
	item.Status = domain.NotificationApproved
	item.ReviewedAt = &now
	item.UpdatedAt = now
	updated, err := s.queue.Update(ctx, item)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("notifications.review.approved", "item_id", item.ID.String(), "channel", item.Channel)
	return updated, nil
}

func (s *reviewService) ApproveBatch(ctx context.Context, batchID uuid.UUID) (int, error) {
	if batchID == uuid.Nil {
		return 0, ErrBatchIDRequired
	}
	items, err := s.queue.List(ctx, QueueFilter{Status: domain.NotificationPendingReview, BatchID: batchID})
	if err != nil {
		return 0, err
	}
	approved := 0
	var errs []error
	for _, item := range items {
		if _, err := s.approve(ctx, item); err != nil {
			errs = append(errs, err)
			continue
		}
		approved++
	}
	s.logger.Info("notifications.review.batch_approved", "batch_id", batchID.String(), "approved", approved)
	return approved, errors.Join(errs...)
}

func (s *reviewService) Retry(ctx context.Context, id uuid.UUID) (*QueueItem, error) {
	item, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.Status != domain.NotificationFailed {
		return nil, fmt.Errorf("%w: retry %s", ErrInvalidQueueTransition, item.Status)
	}
	item.Status = domain.NotificationApproved
	item.ErrorMessage = nil
	item.UpdatedAt = s.now()
	return s.queue.Update(ctx, item)
}

func (s *reviewService) Delete(ctx context.Context, id uuid.UUID) error {
	item, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if item.Status == domain.NotificationSent {
		return fmt.Errorf("%w: sent items are kept", ErrInvalidQueueTransition)
	}
	return s.queue.Delete(ctx, id)
}

func (s *reviewService) DeleteByOrder(ctx context.Context, orderID uuid.UUID) (int, error) {
	return s.queue.DeleteByOrder(ctx, orderID)
}

func validateItem(item *QueueItem) error {
	err := validation.Errors{
		"recipient":    validation.Validate(item.Recipient, validation.Required, validation.Length(1, 320)),
		"message_body": validation.Validate(item.MessageBody, validation.Required, validation.Length(1, 4000)),
		"subject":      validation.Validate(item.Subject, validation.Length(0, 200)),
	}.Filter()
	if err == nil {
		return nil
	}
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		if _, ok := verrs["recipient"]; ok {
			return errors.Join(ErrRecipientRequired, err)
		}
		if _, ok := verrs["message_body"]; ok {
			return errors.Join(ErrMessageBodyRequired, err)
		}
	}
	return err
}
