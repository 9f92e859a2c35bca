package progress

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-order-tracker/internal/domain"
	"github.com/goliatone/go-order-tracker/internal/events"
	"github.com/goliatone/go-order-tracker/internal/logging"
	"github.com/goliatone/go-order-tracker/internal/orders"
	"github.com/goliatone/go-order-tracker/internal/stages"
)

// Skip reasons reported per row by BulkUpdateProgress.
const (
	ReasonStageCompleted = "Stage already completed"
	ReasonDatabaseError  = "Database error"
	ReasonOrderNotFound  = "Order not found"
)

// BulkRequest moves one stage of many orders to the same status.
type BulkRequest struct {
	OrderIDs          []uuid.UUID
	StageID           uuid.UUID
	Status            domain.ProgressStatus
	QueueNotification bool
}

// BulkError describes a skipped row.
type BulkError struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number,omitempty"`
	Reason      string    `json:"reason"`
}

// BulkResult summarises a bulk call. Updated + Skipped always equals the
// number of distinct order ids in the request.
type BulkResult struct {
	BatchID uuid.UUID   `json:"batch_id"`
	Updated int         `json:"updated"`
	Skipped int         `json:"skipped"`
	Queued  int         `json:"queued"`
	Errors  []BulkError `json:"errors"`
}

type bulkRow struct {
	updated bool
	queued  int
	err     *BulkError
}

func (s *service) BulkUpdateProgress(ctx context.Context, req BulkRequest) (BulkResult, error) {
	if len(req.OrderIDs) == 0 {
		return BulkResult{}, classify(ErrNoOrders)
	}
	if len(req.OrderIDs) > s.maxBulk {
		return BulkResult{}, classify(fmt.Errorf("%w: %d requested, limit %d", ErrTooManyOrders, len(req.OrderIDs), s.maxBulk))
	}
	transition, err := NewProgressTransition(req.Status)
	if err != nil {
		return BulkResult{}, classify(err)
	}
	if req.StageID == uuid.Nil {
		return BulkResult{}, classify(ErrStageIDRequired)
	}
	stage, err := s.engine.resolveStage(ctx, req.StageID)
	if err != nil {
		return BulkResult{}, classify(err)
	}

	ids := dedupe(req.OrderIDs)
	batchID := s.batchID()
	logger := logging.WithProgressContext(s.logger, uuid.Nil, stage.ID, batchID)
	result := BulkResult{BatchID: batchID, Errors: []BulkError{}}

	found, lookupErr := s.orders.GetByIDs(ctx, ids)
	if lookupErr != nil {
		logger.Error("progress.bulk.orders_lookup_failed", "error", lookupErr)
		for _, id := range ids {
			result.Skipped++
			result.Errors = append(result.Errors, BulkError{OrderID: id, Reason: ReasonDatabaseError})
		}
		return result, nil
	}
	byID := make(map[uuid.UUID]*orders.Order, len(found))
	for _, order := range found {
		byID[order.ID] = order
	}

	current, prefetched := s.prefetch(ctx, ids, stage.ID)
	if !prefetched {
		logger.Warn("progress.bulk.prefetch_failed")
	}

	rows := make([]bulkRow, len(ids))
	group := new(errgroup.Group)
	group.SetLimit(s.concurrency)
	for i, id := range ids {
		group.Go(func() error {
			rows[i] = s.bulkApplyRow(ctx, byID[id], id, stage, transition, current, prefetched, batchID, req.QueueNotification)
			return nil
		})
	}
	_ = group.Wait()

	for _, row := range rows {
		if row.err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, *row.err)
			continue
		}
		result.Updated++
		result.Queued += row.queued
	}

	logger.Info("progress.bulk.complete",
		"status", transition.status,
		"requested", len(ids),
		"updated", result.Updated,
		"skipped", result.Skipped,
		"queued", result.Queued,
	)
	completed := events.New(events.TypeBulkCompleted, uuid.Nil, map[string]any{
		"stage":   stage.Name,
		"status":  string(transition.status),
		"updated": result.Updated,
		"skipped": result.Skipped,
	})
	completed.StageID = stage.ID
	completed.BatchID = batchID
	s.publish(ctx, completed)
	return result, nil
}

// prefetch loads the target stage rows for every order in one query. The
// boolean is false when the query failed and rows must be loaded one by one.
func (s *service) prefetch(ctx context.Context, ids []uuid.UUID, stageID uuid.UUID) (map[uuid.UUID]*OrderProgress, bool) {
	rows, err := s.ledger.List(ctx, ids, &stageID)
	if err != nil {
		return nil, false
	}
	out := make(map[uuid.UUID]*OrderProgress, len(rows))
	for _, row := range rows {
		out[row.OrderID] = row
	}
	return out, true
}

func (s *service) bulkApplyRow(
	ctx context.Context,
	order *orders.Order,
	orderID uuid.UUID,
	stage *stages.Stage,
	transition ProgressTransition,
	current map[uuid.UUID]*OrderProgress,
	prefetched bool,
	batchID uuid.UUID,
	queue bool,
) bulkRow {
	if order == nil {
		return bulkRow{err: &BulkError{OrderID: orderID, Reason: ReasonOrderNotFound}}
	}
	skip := func(reason string) bulkRow {
		return bulkRow{err: &BulkError{OrderID: order.ID, OrderNumber: order.OrderNumber, Reason: reason}}
	}
	logger := logging.WithProgressContext(s.logger, order.ID, stage.ID, batchID)

	var existing *OrderProgress
	if prefetched {
		existing = current[order.ID]
	} else {
		row, err := s.engine.load(ctx, s.ledger, order.ID, stage.ID)
		if err != nil {
			logger.Error("progress.bulk.row_failed", "error", err)
			return skip(ReasonDatabaseError)
		}
		existing = row
	}
	if existing.Locked() {
		return skip(ReasonStageCompleted)
	}

	outcome, err := s.engine.applyLoaded(ctx, order.ID, stage, transition, existing)
	if err != nil {
		if IsImmutableState(err) {
			return skip(ReasonStageCompleted)
		}
		logger.Error("progress.bulk.row_failed", "error", err)
		return skip(ReasonDatabaseError)
	}

	row := bulkRow{updated: true}
	if outcome.Changed {
		if queue {
			row.queued = s.queue(ctx, order, stage, batchID)
		}
		s.publishTransition(ctx, outcome, batchID)
	}
	return row
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
