package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/khadamat/khadamat/internal/jobs"
)

// LeadDispatchJob records the hand-off of a routed lead in logs and metrics.
// The lead itself is never stored; the customer contacts the advertiser
// through the WhatsApp link returned by the calculator.
type LeadDispatchJob struct {
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewLeadDispatchJob wires dependencies for the dispatch handler.
func NewLeadDispatchJob(logger *slog.Logger, metrics *jobmetrics.Metrics) *LeadDispatchJob {
	return &LeadDispatchJob{Logger: logger, Metrics: metrics}
}

// Handle processes lead dispatch tasks.
func (j *LeadDispatchJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil {
		return errors.New("lead dispatch: handler not configured")
	}
	var payload LeadDispatchPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil || payload.LeadID == "" {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskLeadDispatch)
	defer func() {
		err = tracker.End(err)
	}()

	if err := ctx.Err(); err != nil {
		return err
	}
	sector := payload.Sector
	if sector == "" {
		sector = "unknown"
	}
	j.metrics().AddHandedOff(sector)
	j.logger().Info("lead handed off",
		slog.String("lead_id", payload.LeadID),
		slog.String("sector", sector),
		slog.Int64("advertiser_id", payload.AdvertiserID),
		slog.String("advertiser", payload.AdvertiserName),
		slog.Float64("total", payload.Total),
		slog.String("currency", payload.Currency),
	)
	return nil
}

func (j *LeadDispatchJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *LeadDispatchJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
