package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/manakshia-steel/manakshia/internal/purchasing"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskPurchasingRecalculate recomputes and saves the totals of one order.
	TaskPurchasingRecalculate = "purchasing:recalculate"
	// TaskPurchasingReconcile recomputes every draft order.
	TaskPurchasingReconcile = "purchasing:reconcile"
)

// RecalculatePayload identifies the order to recalculate.
type RecalculatePayload struct {
	OrderID int64 `json:"order_id"`
}

// ReconcilePayload configures the draft sweep.
type ReconcilePayload struct {
	BatchSize int `json:"batch_size"`
}

// NewRecalculateTask constructs an Asynq task. The task id is derived from the
// order so a pending task for the same order is not queued twice.
func NewRecalculateTask(orderID int64) (*asynq.Task, error) {
	if orderID <= 0 {
		return nil, fmt.Errorf("jobs: invalid order id %d", orderID)
	}
	data, err := json.Marshal(RecalculatePayload{OrderID: orderID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPurchasingRecalculate, data,
		asynq.Queue(QueueDefault),
		asynq.TaskID(RecalculateTaskID(orderID)),
		asynq.MaxRetry(5),
	), nil
}

// RecalculateTaskID is the Asynq task id used for an order.
func RecalculateTaskID(orderID int64) string {
	return "recalculate:" + purchasing.OrderRef(orderID).String()
}

// NewReconcileTask builds the periodic draft sweep task.
func NewReconcileTask(batchSize int) (*asynq.Task, error) {
	if batchSize <= 0 {
		batchSize = defaultReconcileBatch
	}
	data, err := json.Marshal(ReconcilePayload{BatchSize: batchSize})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPurchasingReconcile, data, asynq.Queue(QueueDefault)), nil
}

// Client submits jobs to the queue.
type Client struct {
	client    *asynq.Client
	inspector *asynq.Inspector
}

// NewClient constructs an Asynq client.
func NewClient(redisOpts asynq.RedisClientOpt) (*Client, error) {
	return &Client{
		client:    asynq.NewClient(redisOpts),
		inspector: asynq.NewInspector(redisOpts),
	}, nil
}

// EnqueueRecalculate enqueues a recalculation and returns its task id. A task
// still waiting or running for the order counts as enqueued. An archived or
// completed task keeps its id in Redis, so it is deleted and the order queued again.
func (c *Client) EnqueueRecalculate(ctx context.Context, orderID int64) (string, error) {
	task, err := NewRecalculateTask(orderID)
	if err != nil {
		return "", err
	}
	id := RecalculateTaskID(orderID)
	info, err := c.client.EnqueueContext(ctx, task)
	if err == nil {
		return info.ID, nil
	}
	if !errors.Is(err, asynq.ErrTaskIDConflict) {
		return "", fmt.Errorf("jobs: enqueue recalculate: %w", err)
	}

	existing, err := c.inspector.GetTaskInfo(QueueDefault, id)
	switch {
	case errors.Is(err, asynq.ErrTaskNotFound):
	case err != nil:
		return "", fmt.Errorf("jobs: inspect recalculate task: %w", err)
	case existing.State == asynq.TaskStateArchived || existing.State == asynq.TaskStateCompleted:
		if err := c.inspector.DeleteTask(QueueDefault, id); err != nil && !errors.Is(err, asynq.ErrTaskNotFound) {
			return "", fmt.Errorf("jobs: delete finished recalculate task: %w", err)
		}
	default:
		return id, nil
	}

	info, err = c.client.EnqueueContext(ctx, task)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			return id, nil
		}
		return "", fmt.Errorf("jobs: re-enqueue recalculate: %w", err)
	}
	return info.ID, nil
}

// Close releases client resources.
func (c *Client) Close() error {
	return errors.Join(c.client.Close(), c.inspector.Close())
}

var _ purchasing.Enqueuer = (*Client)(nil)
