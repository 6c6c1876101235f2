package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khadamat/khadamat/internal/moving"
	"github.com/khadamat/khadamat/jobs"
)

type stubEnqueuer struct {
	tasks []*asynq.Task
}

func (s *stubEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	s.tasks = append(s.tasks, task)
	return &asynq.TaskInfo{ID: "t-1", Type: task.Type(), Queue: jobs.QueueDefault}, nil
}

func (s *stubEnqueuer) Close() error { return nil }

type stubInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (s stubInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) { return s.info, s.err }

func (s stubInspector) ListScheduledTasks(string, ...asynq.ListOption) ([]*asynq.TaskInfo, error) {
	return []*asynq.TaskInfo{{ID: "s-1", Type: jobs.TaskCatalogRefresh, NextProcessAt: time.Date(2026, 5, 1, 0, 15, 0, 0, time.UTC)}}, nil
}

func (s stubInspector) Close() error { return nil }

func TestTriggerCatalogRefresh(t *testing.T) {
	enq := &stubEnqueuer{}
	c := &JobsCLI{client: enq}

	stdout := new(bytes.Buffer)
	code := c.JobsCommand(context.Background(), JobsOptions{Action: "trigger", Task: jobs.TaskCatalogRefresh, Sectors: []string{"moving"}, Stdout: stdout})
	require.Equal(t, 0, code)
	assert.Contains(t, stdout.String(), "enqueued catalog:refresh")

	require.Len(t, enq.tasks, 1)
	var payload jobs.CatalogRefreshPayload
	require.NoError(t, json.Unmarshal(enq.tasks[0].Payload(), &payload))
	assert.Equal(t, []string{"moving"}, payload.Sectors)
	assert.Equal(t, "manual", payload.Reason)
}

func TestTriggerUnsupported(t *testing.T) {
	c := &JobsCLI{client: &stubEnqueuer{}}
	stderr := new(bytes.Buffer)
	code := c.JobsCommand(context.Background(), JobsOptions{Action: "trigger", Task: jobs.TaskLeadDispatch, Stderr: stderr})
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "unsupported job")

	var nilCLI *JobsCLI
	_, err := nilCLI.Trigger(context.Background(), jobs.TaskCatalogRefresh)
	assert.Error(t, err)
}

func TestInspectQueue(t *testing.T) {
	c := &JobsCLI{inspector: stubInspector{info: &asynq.QueueInfo{Pending: 3, Retry: 1, Archived: 2}}}
	stdout := new(bytes.Buffer)
	code := c.JobsCommand(context.Background(), JobsOptions{Action: "inspect", Stdout: stdout})
	require.Equal(t, 0, code)
	out := stdout.String()
	assert.Contains(t, out, "PENDING")
	assert.Contains(t, out, "default")
	assert.Contains(t, out, "scheduled catalog:refresh s-1 at 2026-05-01T00:15:00Z")

	failing := &JobsCLI{inspector: stubInspector{err: errors.New("redis down")}}
	stderr := new(bytes.Buffer)
	assert.Equal(t, 1, failing.JobsCommand(context.Background(), JobsOptions{Action: "inspect", Stderr: stderr}))
	assert.Contains(t, stderr.String(), "redis down")

	assert.Equal(t, 2, c.JobsCommand(context.Background(), JobsOptions{Action: "purge", Stderr: new(bytes.Buffer)}))
}

func TestEstimateCommandJSON(t *testing.T) {
	stdout := new(bytes.Buffer)
	code := EstimateCommand(EstimateOptions{Rooms: []string{"bedroom=2"}, Distance: "local", JSONOutput: true, Stdout: stdout})
	require.Equal(t, 0, code)

	var quote moving.Quote
	require.NoError(t, json.NewDecoder(stdout).Decode(&quote))
	assert.Equal(t, 960.0, quote.Total)
	assert.Equal(t, moving.TruckSmall, quote.TruckType)
}

func TestEstimateCommandHuman(t *testing.T) {
	stdout := new(bytes.Buffer)
	code := EstimateCommand(EstimateOptions{Rooms: []string{"bedroom=2"}, Stdout: stdout})
	require.Equal(t, 0, code)
	assert.Contains(t, stdout.String(), "total: 960 SAR")
}

func TestEstimateCommandRejectsBadInput(t *testing.T) {
	cases := []EstimateOptions{
		{Rooms: []string{"bedroom"}},
		{Rooms: []string{"bedroom=x"}},
		{Rooms: []string{"garage=1"}},
		{Distance: "moon"},
	}
	for _, opts := range cases {
		stderr := new(bytes.Buffer)
		opts.Stderr = stderr
		opts.Stdout = new(bytes.Buffer)
		assert.Equal(t, 2, EstimateCommand(opts), "%+v", opts.Rooms)
		assert.NotEmpty(t, stderr.String())
	}

	stderr := new(bytes.Buffer)
	assert.Equal(t, 1, EstimateCommand(EstimateOptions{RateCardPath: "/does/not/exist.yaml", Stderr: stderr}))
}
