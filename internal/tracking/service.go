package tracking

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"github.com/goliatone/go-order-tracker/internal/domain"
	"github.com/goliatone/go-order-tracker/internal/events"
	"github.com/goliatone/go-order-tracker/internal/identity"
	"github.com/goliatone/go-order-tracker/internal/logging"
	"github.com/goliatone/go-order-tracker/internal/orders"
	"github.com/goliatone/go-order-tracker/internal/progress"
	"github.com/goliatone/go-order-tracker/pkg/interfaces"
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Service owns the order aggregate: creation, import, deletion, preferences
// and the customer lookup.
type Service interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*orders.Order, error)
	ImportOrder(ctx context.Context, input ImportOrderInput) (ImportResult, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*orders.Order, error)
	DeleteOrder(ctx context.Context, id uuid.UUID) (DeleteResult, error)
	SetNotificationPreference(ctx context.Context, orderID uuid.UUID, input PreferenceInput) (*orders.NotificationPreference, error)
	Lookup(ctx context.Context, orderNumber, phone string) (*Timeline, error)
}

// QueueCleaner removes queued notifications belonging to an order.
type QueueCleaner interface {
	DeleteByOrder(ctx context.Context, orderID uuid.UUID) (int, error)
}

// ServiceOption configures the tracking service.
type ServiceOption func(*service)

func WithQueueCleaner(cleaner QueueCleaner) ServiceOption {
	return func(s *service) {
		s.queue = cleaner
	}
}

func WithPublisher(publisher events.Publisher) ServiceOption {
	return func(s *service) {
		if publisher != nil {
			s.publisher = publisher
		}
	}
}

func WithLogger(logger interfaces.Logger) ServiceOption {
	return func(s *service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithClock(clock func() time.Time) ServiceOption {
	return func(s *service) {
		if clock != nil {
			s.now = clock
		}
	}
}

type service struct {
	orders    orders.Repository
	progress  progress.Service
	queue     QueueCleaner
	publisher events.Publisher
	logger    interfaces.Logger
	now       func() time.Time
}

// NewService wires the tracking service.
func NewService(repo orders.Repository, progressSvc progress.Service, opts ...ServiceOption) Service {
	s := &service{
		orders:    repo,
		progress:  progressSvc,
		publisher: events.NewNoopPublisher(),
		logger:    logging.NoOp(),
		now:       time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *service) CreateOrder(ctx context.Context, input CreateOrderInput) (*orders.Order, error) {
	if input.Source == "" {
		input.Source = domain.SourceManual
	}
	order, err := s.create(ctx, uuid.New(), input, false)
	if err != nil {
		return nil, err
	}
	s.logger.Info("tracking.order.created", "order_id", order.ID.String(), "order_number", order.OrderNumber)
	return order, nil
}

func (s *service) ImportOrder(ctx context.Context, input ImportOrderInput) (ImportResult, error) {
	if input.Source == "" {
		input.Source = domain.SourceCSV
	}
	if strings.TrimSpace(input.ExternalID) == "" {
		return ImportResult{}, invalid(ErrExternalIDRequired)
	}
	id := identity.ImportedOrderUUID(string(input.Source), input.ExternalID)

	existing, err := s.orders.GetByID(ctx, id)
	if err == nil {
		s.logger.Debug("tracking.import.skipped", "order_id", id.String(), "external_id", input.ExternalID)
		return ImportResult{Order: existing}, nil
	}
	if !isOrderNotFound(err) {
		return ImportResult{}, err
	}

	completeFirst := input.CompleteFirstStage || input.Source == domain.SourceCSV
	order, err := s.create(ctx, id, input.CreateOrderInput, completeFirst)
	if err != nil {
		return ImportResult{}, err
	}
	s.logger.Info("tracking.import.created",
		"order_id", order.ID.String(),
		"order_number", order.OrderNumber,
		"source", order.Source,
	)
	return ImportResult{Order: order, Created: true}, nil
}

func (s *service) create(ctx context.Context, id uuid.UUID, input CreateOrderInput, completeFirstStage bool) (*orders.Order, error) {
	order, err := s.buildOrder(id, input)
	if err != nil {
		return nil, invalid(err)
	}
	if _, err := s.orders.GetByNumber(ctx, order.OrderNumber); err == nil {
		return nil, invalid(ErrOrderNumberExists)
	} else if !isOrderNotFound(err) {
		return nil, err
	}

	created, err := s.orders.Create(ctx, order)
	if err != nil {
		return nil, err
	}
	pref, err := s.orders.UpsertPreference(ctx, &orders.NotificationPreference{
		OrderID:      created.ID,
		SMSEnabled:   input.SMSEnabled,
		EmailEnabled: input.EmailEnabled,
		UpdatedAt:    order.UpdatedAt,
	})
	if err != nil {
		return nil, err
	}
	created.Preference = pref

	if err := s.progress.InitializeOrder(ctx, created.ID, completeFirstStage); err != nil {
		return nil, err
	}
	return created, nil
}

func (s *service) buildOrder(id uuid.UUID, input CreateOrderInput) (*orders.Order, error) {
	number := strings.TrimSpace(input.OrderNumber)
	if number == "" {
		return nil, ErrOrderNumberRequired
	}
	if !input.Source.IsValid() {
		return nil, ErrSourceInvalid
	}
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if err := validation.Validate(email, validation.Length(3, 320), validation.Match(emailPattern)); err != nil {
		return nil, errors.Join(ErrEmailInvalid, err)
	}
	phone := ""
	if raw := strings.TrimSpace(input.Phone); raw != "" {
		phone = orders.NormalizePhone(raw)
		if phone == "" {
			return nil, ErrPhoneInvalid
		}
	}
	if err := validation.Validate(number, validation.Length(1, 64)); err != nil {
		return nil, errors.Join(ErrOrderNumberRequired, err)
	}

	now := s.now()
	return &orders.Order{
		ID:                id,
		OrderNumber:       number,
		CustomerFirstName: strings.TrimSpace(input.FirstName),
		CustomerLastName:  strings.TrimSpace(input.LastName),
		Email:             email,
		Phone:             phone,
		Source:            string(input.Source),
		ExternalID:        strings.TrimSpace(input.ExternalID),
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

func (s *service) GetOrder(ctx context.Context, id uuid.UUID) (*orders.Order, error) {
	if id == uuid.Nil {
		return nil, invalid(ErrOrderIDRequired)
	}
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		if isOrderNotFound(err) {
			return nil, notFound(ErrOrderNotFound)
		}
		return nil, err
	}
	return order, nil
}

// DeleteOrder removes the order together with its progress rows, queued
// notifications and preference.
func (s *service) DeleteOrder(ctx context.Context, id uuid.UUID) (DeleteResult, error) {
	order, err := s.GetOrder(ctx, id)
	if err != nil {
		return DeleteResult{}, err
	}

	result := DeleteResult{}
	if result.ProgressRows, err = s.progress.DeleteOrderProgress(ctx, order.ID); err != nil {
		return result, err
	}
	if s.queue != nil {
		if result.QueueItems, err = s.queue.DeleteByOrder(ctx, order.ID); err != nil {
			return result, err
		}
	}
	if err := s.orders.DeletePreference(ctx, order.ID); err != nil && !isOrderNotFound(err) {
		return result, err
	}
	if err := s.orders.Delete(ctx, order.ID); err != nil {
		return result, err
	}

	s.logger.Info("tracking.order.deleted",
		"order_id", order.ID.String(),
		"progress_rows", result.ProgressRows,
		"queue_items", result.QueueItems,
	)
	event := events.New(events.TypeOrderDeleted, order.ID, map[string]any{
		"order_number":  order.OrderNumber,
		"progress_rows": result.ProgressRows,
		"queue_items":   result.QueueItems,
	})
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("tracking.events.publish_failed", "error", err)
	}
	return result, nil
}

func (s *service) SetNotificationPreference(ctx context.Context, orderID uuid.UUID, input PreferenceInput) (*orders.NotificationPreference, error) {
	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return s.orders.UpsertPreference(ctx, &orders.NotificationPreference{
		OrderID:      order.ID,
		SMSEnabled:   input.SMSEnabled,
		EmailEnabled: input.EmailEnabled,
		UpdatedAt:    s.now(),
	})
}

// Lookup returns the customer timeline when the phone matches the order. Any
// mismatch is reported as ErrOrderNotFound so order numbers cannot be probed.
func (s *service) Lookup(ctx context.Context, orderNumber, phone string) (*Timeline, error) {
	number := strings.TrimSpace(orderNumber)
	if number == "" || strings.TrimSpace(phone) == "" {
		return nil, notFound(ErrOrderNotFound)
	}
	order, err := s.orders.GetByNumber(ctx, number)
	if err != nil {
		if isOrderNotFound(err) {
			return nil, notFound(ErrOrderNotFound)
		}
		return nil, err
	}
	if !orders.SamePhone(order.Phone, phone) {
		s.logger.Debug("tracking.lookup.phone_mismatch", "order_number", number)
		return nil, notFound(ErrOrderNotFound)
	}

	rows, err := s.progress.ListOrderProgress(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	return buildTimeline(order, rows), nil
}

func buildTimeline(order *orders.Order, rows []progress.StageProgress) *Timeline {
	timeline := &Timeline{
		OrderNumber: order.OrderNumber,
		FirstName:   order.CustomerFirstName,
		Stages:      make([]TimelineStage, 0, len(rows)),
	}
	completed := 0
	lastCompleted, lastInProgress := "", ""
	for _, row := range rows {
		entry := TimelineStage{
			Name:        row.Stage.Name,
			DisplayName: row.Stage.DisplayName,
			Description: row.Stage.Description,
			Icon:        row.Stage.Icon,
			SortOrder:   row.Stage.SortOrder,
			Status:      row.Status(),
		}
		if p := row.Progress; p != nil {
			entry.StartedAt = p.StartedAt
			entry.CompletedAt = p.CompletedAt
			entry.EstimatedStartDate = p.EstimatedStartDate
			entry.EstimatedEndDate = p.EstimatedEndDate
		}
		switch entry.Status {
		case domain.ProgressCompleted:
			completed++
			lastCompleted = entry.Name
		case domain.ProgressInProgress:
			lastInProgress = entry.Name
		}
		timeline.Stages = append(timeline.Stages, entry)
	}
	// rows arrive in pipeline order, so the last match is the furthest stage
	timeline.CurrentStage = lastInProgress
	if timeline.CurrentStage == "" {
		timeline.CurrentStage = lastCompleted
	}
	timeline.Completed = len(rows) > 0 && completed == len(rows)
	return timeline
}

func isOrderNotFound(err error) bool {
	var nf *orders.NotFoundError
	return errors.As(err, &nf)
}
