package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/manakshia-steel/manakshia/internal/jobs"
	"github.com/manakshia-steel/manakshia/internal/purchasing"
)

const defaultReconcileBatch = 100

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// PurchasingService is the subset of purchasing.Service the jobs need.
type PurchasingService interface {
	RecalculateTotals(ctx context.Context, id int64) (purchasing.PurchaseOrder, error)
	ListOrders(ctx context.Context, filters purchasing.ListFilters) ([]purchasing.PurchaseOrder, int, error)
}

// RecalculateJob handles TaskPurchasingRecalculate and TaskPurchasingReconcile.
type RecalculateJob struct {
	Service PurchasingService
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewRecalculateJob constructs the job handler.
func NewRecalculateJob(service PurchasingService, logger *slog.Logger, metrics *jobmetrics.Metrics) *RecalculateJob {
	return &RecalculateJob{Service: service, Logger: logger, Metrics: metrics}
}

// Handle recalculates one order. Orders that cannot be saved are not retried.
func (j *RecalculateJob) Handle(ctx context.Context, task *asynq.Task) error {
	if j == nil || j.Service == nil {
		return errors.New("recalculate: dependencies not configured")
	}
	var payload RecalculatePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil || payload.OrderID <= 0 {
		j.log(TaskPurchasingRecalculate).Warn("malformed payload", slog.String("payload", string(task.Payload())))
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskPurchasingRecalculate)
	order, err := j.Service.RecalculateTotals(ctx, payload.OrderID)
	if err != nil {
		if permanent(err) {
			j.log(TaskPurchasingRecalculate).Warn("order not recalculated", slog.Int64("id", payload.OrderID), slog.Any("error", err))
			j.metrics().AddSkipped(TaskPurchasingRecalculate, purchasing.ValidationResult(err), 1)
			return tracker.End(fmt.Errorf("%v: %w", err, asynq.SkipRetry))
		}
		j.log(TaskPurchasingRecalculate).Error("recalculate order", slog.Int64("id", payload.OrderID), slog.Any("error", err))
		return tracker.End(err)
	}
	j.log(TaskPurchasingRecalculate).Info("order recalculated",
		slog.Int64("id", order.ID),
		slog.String("number", order.Number),
		slog.String("grand_total", order.GrandTotal.String()))
	return tracker.End(nil)
}

// HandleReconcile recalculates every draft order in batches.
func (j *RecalculateJob) HandleReconcile(ctx context.Context, task *asynq.Task) error {
	if j == nil || j.Service == nil {
		return errors.New("reconcile: dependencies not configured")
	}
	var payload ReconcilePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.BatchSize <= 0 {
		payload.BatchSize = defaultReconcileBatch
	}

	tracker := j.metrics().Track(TaskPurchasingReconcile)
	var (
		recalculated int
		skipped      int
	)
	for offset := 0; ; offset += payload.BatchSize {
		orders, total, err := j.Service.ListOrders(ctx, purchasing.ListFilters{
			Status: string(purchasing.StatusDraft),
			Limit:  payload.BatchSize,
			Offset: offset,
		})
		if err != nil {
			j.log(TaskPurchasingReconcile).Error("list draft orders", slog.Int("offset", offset), slog.Any("error", err))
			return tracker.End(err)
		}
		for _, order := range orders {
			if _, err := j.Service.RecalculateTotals(ctx, order.ID); err != nil {
				if permanent(err) {
					skipped++
					j.log(TaskPurchasingReconcile).Warn("skip order", slog.Int64("id", order.ID), slog.Any("error", err))
					continue
				}
				return tracker.End(err)
			}
			recalculated++
		}
		if len(orders) == 0 || offset+len(orders) >= total {
			break
		}
	}
	j.metrics().AddSkipped(TaskPurchasingReconcile, "invalid", skipped)
	j.log(TaskPurchasingReconcile).Info("draft orders reconciled", slog.Int("recalculated", recalculated), slog.Int("skipped", skipped))
	return tracker.End(nil)
}

func permanent(err error) bool {
	return errors.Is(err, purchasing.ErrValidation) ||
		errors.Is(err, purchasing.ErrNotFound) ||
		errors.Is(err, purchasing.ErrInvalidState)
}

func (j *RecalculateJob) metrics() *jobmetrics.Metrics {
	if j != nil && j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *RecalculateJob) log(task string) *slog.Logger {
	if j != nil && j.Logger != nil {
		return j.Logger.With(slog.String("job", task))
	}
	return slog.Default().With(slog.String("job", task))
}
