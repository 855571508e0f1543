package cli

import (
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manakshia-steel/manakshia/jobs"
)

type recordingClient struct {
	tasks  []*asynq.Task
	closed bool
}

func (r *recordingClient) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	r.tasks = append(r.tasks, task)
	return &asynq.TaskInfo{ID: "t1", Type: task.Type(), Queue: jobs.QueueDefault}, nil
}

func (r *recordingClient) Close() error {
	r.closed = true
	return nil
}

type stubInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (s stubInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) { return s.info, s.err }

func (s stubInspector) ListScheduledTasks(string, ...asynq.ListOption) ([]*asynq.TaskInfo, error) {
	return nil, s.err
}

func (s stubInspector) Close() error { return nil }

func TestTriggerSupportedJobs(t *testing.T) {
	client := &recordingClient{}
	c := &JobsCLI{client: client}

	info, err := c.Trigger(context.Background(), jobs.TaskPurchasingReconcile)
	require.NoError(t, err)
	assert.Equal(t, jobs.TaskPurchasingReconcile, info.Type)

	info, err = c.Trigger(context.Background(), jobs.TaskPurchasingRecalculate, "12")
	require.NoError(t, err)
	assert.Equal(t, jobs.TaskPurchasingRecalculate, info.Type)
	assert.Len(t, client.tasks, 2)
}

func TestTriggerRejectsBadInput(t *testing.T) {
	c := &JobsCLI{client: &recordingClient{}}

	_, err := c.Trigger(context.Background(), "mail:send")
	require.Error(t, err)
	_, err = c.Trigger(context.Background(), jobs.TaskPurchasingRecalculate)
	require.Error(t, err)
	_, err = c.Trigger(context.Background(), jobs.TaskPurchasingRecalculate, "abc")
	require.Error(t, err)

	var nilCLI *JobsCLI
	_, err = nilCLI.Trigger(context.Background(), jobs.TaskPurchasingReconcile)
	require.Error(t, err)
}

func TestInspectQueue(t *testing.T) {
	c := &JobsCLI{inspector: stubInspector{info: &asynq.QueueInfo{Queue: jobs.QueueDefault, Pending: 4, Retry: 1}}}

	stats, err := c.InspectQueue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, QueueStats{Queue: jobs.QueueDefault, Pending: 4, Retry: 1}, stats)

	c = &JobsCLI{inspector: stubInspector{err: errors.New("redis down")}}
	_, err = c.InspectQueue(context.Background())
	require.Error(t, err)
	_, err = c.ListScheduled(context.Background(), 0)
	require.Error(t, err)
}

func TestCloseReleasesClient(t *testing.T) {
	client := &recordingClient{}
	c := &JobsCLI{client: client, inspector: stubInspector{}}

	require.NoError(t, c.Close())
	assert.True(t, client.closed)
}
