package progress

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-order-tracker/internal/domain"
	"github.com/goliatone/go-order-tracker/internal/events"
	"github.com/goliatone/go-order-tracker/internal/logging"
	"github.com/goliatone/go-order-tracker/internal/orders"
	"github.com/goliatone/go-order-tracker/internal/stages"
	"github.com/goliatone/go-order-tracker/pkg/interfaces"
)

// DefaultMaxBulkOrders caps the number of orders accepted by one bulk call.
const DefaultMaxBulkOrders = 500

// OrderLookup is the slice of the order repository the service needs.
type OrderLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*orders.Order, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*orders.Order, error)
}

// NotificationQueuer turns a genuine transition into queued notifications.
// It returns the number of items queued.
type NotificationQueuer interface {
	QueueNotifications(ctx context.Context, order *orders.Order, stage *stages.Stage, batchID uuid.UUID) (int, error)
}

// Service is the application surface over the transition engine.
type Service interface {
	UpdateSingleOrderProgress(ctx context.Context, req UpdateRequest) (UpdateResult, error)
	BulkUpdateProgress(ctx context.Context, req BulkRequest) (BulkResult, error)
	ListOrderProgress(ctx context.Context, orderID uuid.UUID) ([]StageProgress, error)
	InitializeOrder(ctx context.Context, orderID uuid.UUID, completeFirstStage bool) error
	DeleteOrderProgress(ctx context.Context, orderID uuid.UUID) (int, error)
}

// UpdateRequest moves one order's stage to a new status.
type UpdateRequest struct {
	OrderID            uuid.UUID
	StageID            uuid.UUID
	Status             domain.ProgressStatus
	EstimatedStartDate *time.Time
	EstimatedEndDate   *time.Time
	AdminNotes         *string
	QueueNotification  bool
}

// UpdateResult reports the effect of a single-order update. BatchID is set
// only when notifications were queued.
type UpdateResult struct {
	Progress *OrderProgress
	Previous domain.ProgressStatus
	Changed  bool
	Cascaded []uuid.UUID
	Queued   int
	BatchID  *uuid.UUID
}

// StageProgress pairs a catalog stage with the order's row for it. Progress is
// nil when the stage has never been touched.
type StageProgress struct {
	Stage    *stages.Stage
	Progress *OrderProgress
}

// Status returns the effective status, not_started when no row exists.
func (s StageProgress) Status() domain.ProgressStatus {
	if s.Progress == nil {
		return domain.ProgressNotStarted
	}
	return s.Progress.Status
}

// ServiceOption configures the progress service.
type ServiceOption func(*service)

// WithServiceLogger sets the service logger.
func WithServiceLogger(logger interfaces.Logger) ServiceOption {
	return func(s *service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithNotificationQueuer wires the notification intent generator.
func WithNotificationQueuer(queuer NotificationQueuer) ServiceOption {
	return func(s *service) {
		s.queuer = queuer
	}
}

// WithPublisher wires the event publisher.
func WithPublisher(publisher events.Publisher) ServiceOption {
	return func(s *service) {
		if publisher != nil {
			s.publisher = publisher
		}
	}
}

// WithMaxBulkOrders overrides DefaultMaxBulkOrders.
func WithMaxBulkOrders(limit int) ServiceOption {
	return func(s *service) {
		if limit > 0 {
			s.maxBulk = limit
		}
	}
}

// WithBulkConcurrency sets how many bulk rows run at once. The default of 1
// processes rows sequentially.
func WithBulkConcurrency(limit int) ServiceOption {
	return func(s *service) {
		if limit > 0 {
			s.concurrency = limit
		}
	}
}

// WithBatchIDGenerator overrides the batch identifier source.
func WithBatchIDGenerator(generator func() uuid.UUID) ServiceOption {
	return func(s *service) {
		if generator != nil {
			s.batchID = generator
		}
	}
}

type service struct {
	engine      *Engine
	catalog     StageCatalog
	ledger      LedgerRepository
	orders      OrderLookup
	queuer      NotificationQueuer
	publisher   events.Publisher
	logger      interfaces.Logger
	maxBulk     int
	concurrency int
	batchID     func() uuid.UUID
}

// NewService wires the progress service.
func NewService(engine *Engine, orderLookup OrderLookup, opts ...ServiceOption) Service {
	s := &service{
		engine:      engine,
		catalog:     engine.catalog,
		ledger:      engine.ledger,
		orders:      orderLookup,
		publisher:   events.NewNoopPublisher(),
		logger:      logging.NoOp(),
		maxBulk:     DefaultMaxBulkOrders,
		concurrency: 1,
		batchID:     uuid.New,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *service) UpdateSingleOrderProgress(ctx context.Context, req UpdateRequest) (UpdateResult, error) {
	if req.OrderID == uuid.Nil {
		return UpdateResult{}, classify(ErrOrderIDRequired)
	}
	transition, err := NewProgressTransition(req.Status,
		WithEstimatedDates(req.EstimatedStartDate, req.EstimatedEndDate),
		WithAdminNotes(req.AdminNotes),
	)
	if err != nil {
		return UpdateResult{}, classify(err)
	}

	order, err := s.orders.GetByID(ctx, req.OrderID)
	if err != nil {
		var nf *orders.NotFoundError
		if errors.As(err, &nf) {
			return UpdateResult{}, classify(ErrOrderNotFound)
		}
		return UpdateResult{}, classify(storageError("load order", req.OrderID, req.StageID, err))
	}

	outcome, err := s.engine.ApplyTransition(ctx, order.ID, req.StageID, transition)
	if err != nil {
		return UpdateResult{}, classify(err)
	}

	result := UpdateResult{
		Progress: outcome.Progress,
		Previous: outcome.Previous,
		Changed:  outcome.Changed,
		Cascaded: outcome.Cascaded,
	}
	if outcome.Changed {
		batchID := s.batchID()
		if req.QueueNotification {
			result.Queued = s.queue(ctx, order, outcome.Stage, batchID)
			if result.Queued > 0 {
				result.BatchID = &batchID
			}
		}
		s.publishTransition(ctx, outcome, batchID)
	}
	return result, nil
}

func (s *service) ListOrderProgress(ctx context.Context, orderID uuid.UUID) ([]StageProgress, error) {
	if orderID == uuid.Nil {
		return nil, classify(ErrOrderIDRequired)
	}
	catalog, err := s.catalog.List(ctx)
	if err != nil {
		return nil, classify(storageError("list stages", orderID, uuid.Nil, err))
	}
	rows, err := s.ledger.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, classify(storageError("list progress", orderID, uuid.Nil, err))
	}
	byStage := make(map[uuid.UUID]*OrderProgress, len(rows))
	for _, row := range rows {
		byStage[row.StageID] = row
	}
	out := make([]StageProgress, 0, len(catalog))
	for _, stage := range catalog {
		out = append(out, StageProgress{Stage: stage, Progress: byStage[stage.ID]})
	}
	return out, nil
}

// InitializeOrder creates a not_started row for every stage. When
// completeFirstStage is set the earliest stage starts out completed, which is
// how imported orders that have already been paid enter the pipeline.
func (s *service) InitializeOrder(ctx context.Context, orderID uuid.UUID, completeFirstStage bool) error {
	if orderID == uuid.Nil {
		return classify(ErrOrderIDRequired)
	}
	catalog, err := s.catalog.List(ctx)
	if err != nil {
		return classify(storageError("list stages", orderID, uuid.Nil, err))
	}
	existing, err := s.ledger.ListByOrder(ctx, orderID)
	if err != nil {
		return classify(storageError("list progress", orderID, uuid.Nil, err))
	}
	present := make(map[uuid.UUID]struct{}, len(existing))
	for _, row := range existing {
		present[row.StageID] = struct{}{}
	}

	now := s.engine.now()
	rows := make([]*OrderProgress, 0, len(catalog))
	for i, stage := range catalog {
		if _, ok := present[stage.ID]; ok {
			continue
		}
		row := &OrderProgress{
			ID:        uuid.New(),
			OrderID:   orderID,
			StageID:   stage.ID,
			Status:    domain.ProgressNotStarted,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if completeFirstStage && i == 0 {
			row = completedRow(orderID, stage.ID, row, now)
		}
		rows = append(rows, row)
	}
	if err := s.ledger.InsertMany(ctx, rows); err != nil {
		return classify(storageError("initialize progress", orderID, uuid.Nil, err))
	}
	s.logger.Debug("progress.initialize.success", "order_id", orderID.String(), "rows", len(rows))
	return nil
}

func (s *service) DeleteOrderProgress(ctx context.Context, orderID uuid.UUID) (int, error) {
	if orderID == uuid.Nil {
		return 0, classify(ErrOrderIDRequired)
	}
	removed, err := s.ledger.DeleteByOrder(ctx, orderID)
	if err != nil {
		return 0, classify(storageError("delete progress", orderID, uuid.Nil, err))
	}
	return removed, nil
}

// queue runs the notification generator. Failures are logged and swallowed so
// a stored transition is never reported as failed.
func (s *service) queue(ctx context.Context, order *orders.Order, stage *stages.Stage, batchID uuid.UUID) int {
	if s.queuer == nil {
		return 0
	}
	queued, err := s.queuer.QueueNotifications(ctx, order, stage, batchID)
	if err != nil {
		logging.WithProgressContext(s.logger, order.ID, stage.ID, batchID).
			Error("progress.notifications.queue_failed", "error", err)
		return 0
	}
	return queued
}

func (s *service) publishTransition(ctx context.Context, outcome TransitionOutcome, batchID uuid.UUID) {
	event := events.New(events.TypeProgressTransitioned, outcome.Progress.OrderID, map[string]any{
		"stage":    outcome.Stage.Name,
		"previous": string(outcome.Previous),
		"status":   string(outcome.Progress.Status),
		"cascaded": len(outcome.Cascaded),
	})
	event.StageID = outcome.Stage.ID
	event.BatchID = batchID
	s.publish(ctx, event)
}

func (s *service) publish(ctx context.Context, event events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn("progress.events.publish_failed", "type", event.Type, "error", err)
	}
}
