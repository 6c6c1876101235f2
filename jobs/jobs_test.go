package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jobmetrics "github.com/khadamat/khadamat/internal/jobs"
)

type fakeRefresher struct {
	sectors []string
	err     error
	calls   int
}

func (f *fakeRefresher) Refresh(_ context.Context, sectors ...string) error {
	f.calls++
	f.sectors = sectors
	return f.err
}

func testMetrics() *jobmetrics.Metrics {
	return jobmetrics.NewMetrics(prometheus.NewRegistry())
}

func TestCatalogRefreshUsesPayloadSectors(t *testing.T) {
	ref := &fakeRefresher{}
	job := NewCatalogRefreshJob(ref, nil, testMetrics(), "moving")

	task, err := NewCatalogRefreshTask("manual", "cleaning")
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, []string{"cleaning"}, ref.sectors)

	require.NoError(t, job.Handle(context.Background(), asynq.NewTask(TaskCatalogRefresh, nil)))
	assert.Equal(t, []string{"moving"}, ref.sectors)
	assert.Equal(t, 2, ref.calls)
}

func TestCatalogRefreshErrors(t *testing.T) {
	boom := errors.New("upstream down")
	job := NewCatalogRefreshJob(&fakeRefresher{err: boom}, nil, testMetrics())
	task, err := NewCatalogRefreshTask("cron")
	require.NoError(t, err)
	require.ErrorIs(t, job.Handle(context.Background(), task), boom)

	bad := asynq.NewTask(TaskCatalogRefresh, []byte("{"))
	require.ErrorIs(t, job.Handle(context.Background(), bad), asynq.SkipRetry)

	var nilJob *CatalogRefreshJob
	require.Error(t, nilJob.Handle(context.Background(), task))
}

func TestLeadDispatchCountsHandOff(t *testing.T) {
	reg := prometheus.NewRegistry()
	var logs bytes.Buffer
	job := NewLeadDispatchJob(slog.New(slog.NewJSONHandler(&logs, nil)), jobmetrics.NewMetrics(reg))

	payload := LeadDispatchPayload{
		LeadID:         "b7c1",
		Sector:         "moving",
		AdvertiserID:   4,
		AdvertiserName: "Alpha Movers",
		Total:          960,
		Currency:       "SAR",
		CreatedAt:      time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	task, err := NewLeadDispatchTask(payload)
	require.NoError(t, err)
	require.Equal(t, TaskLeadDispatch, task.Type())

	require.NoError(t, job.Handle(context.Background(), task))
	require.NoError(t, job.Handle(context.Background(), task))

	expected := `
# HELP khadamat_leads_handed_off_total Calculator leads routed to an advertiser grouped by sector.
# TYPE khadamat_leads_handed_off_total counter
khadamat_leads_handed_off_total{sector="moving"} 2
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "khadamat_leads_handed_off_total"))
	assert.Contains(t, logs.String(), `"lead_id":"b7c1"`)
	assert.Contains(t, logs.String(), `"advertiser_id":4`)
}

func TestLeadDispatchPayloadCarriesNoCustomerData(t *testing.T) {
	data, err := json.Marshal(LeadDispatchPayload{LeadID: "x", AdvertiserID: 1})
	require.NoError(t, err)
	var fields map[string]any
	require.NoError(t, json.Unmarshal(data, &fields))
	for _, key := range []string{"customer_name", "customer_phone", "message", "link"} {
		assert.NotContains(t, fields, key)
	}
}

func TestLeadDispatchRejectsMissingID(t *testing.T) {
	job := NewLeadDispatchJob(nil, testMetrics())
	data, err := json.Marshal(LeadDispatchPayload{AdvertiserID: 1})
	require.NoError(t, err)
	require.ErrorIs(t, job.Handle(context.Background(), asynq.NewTask(TaskLeadDispatch, data)), asynq.SkipRetry)
}

func TestLeadDispatchStopsOnCanceledContext(t *testing.T) {
	job := NewLeadDispatchJob(nil, testMetrics())
	task, err := NewLeadDispatchTask(LeadDispatchPayload{LeadID: "x"})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, job.Handle(ctx, task), context.Canceled)

	var nilJob *LeadDispatchJob
	require.Error(t, nilJob.Handle(context.Background(), task))
}

type fakeInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (f fakeInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) { return f.info, f.err }

func TestJobsHealthEndpoint(t *testing.T) {
	serve := func(h *Handler) *httptest.ResponseRecorder {
		r := chi.NewRouter()
		r.Route("/jobs", h.MountRoutes)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
		return rec
	}

	rec := serve(NewHandler(nil, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"queue":"default","pending":0,"active":0,"retry":0,"archived":0,"processed_today":0,"failed_today":0}`, rec.Body.String())

	rec = serve(NewHandler(fakeInspector{info: &asynq.QueueInfo{Queue: "default", Pending: 3, Failed: 1}}, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var body queueHealth
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 3, body.Pending)
	assert.Equal(t, 1, body.Failed)

	rec = serve(NewHandler(fakeInspector{err: errors.New("redis down")}, nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
