package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/khadamat/khadamat/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// CatalogRefresher is implemented by catalog.Service.
type CatalogRefresher interface {
	Refresh(ctx context.Context, sectors ...string) error
}

// CatalogRefreshJob bumps the catalog cache and warms it again.
type CatalogRefreshJob struct {
	Catalog CatalogRefresher
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	// DefaultSectors are warmed when the payload names none.
	DefaultSectors []string
}

// NewCatalogRefreshJob wires dependencies for the refresh handler.
func NewCatalogRefreshJob(catalog CatalogRefresher, logger *slog.Logger, metrics *jobmetrics.Metrics, sectors ...string) *CatalogRefreshJob {
	return &CatalogRefreshJob{Catalog: catalog, Logger: logger, Metrics: metrics, DefaultSectors: sectors}
}

// Handle processes catalog refresh tasks.
func (j *CatalogRefreshJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Catalog == nil {
		return errors.New("catalog refresh: handler not configured")
	}
	var payload CatalogRefreshPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	sectors := payload.Sectors
	if len(sectors) == 0 {
		sectors = j.DefaultSectors
	}

	tracker := j.metrics().Track(TaskCatalogRefresh)
	defer func() {
		err = tracker.End(err)
	}()

	logger := j.logger().With(slog.String("reason", payload.Reason), slog.Any("sectors", sectors))
	if err := j.Catalog.Refresh(ctx, sectors...); err != nil {
		logger.Error("catalog refresh failed", slog.Any("error", err))
		return err
	}
	logger.Info("catalog refreshed")
	return nil
}

func (j *CatalogRefreshJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *CatalogRefreshJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
