package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskCatalogRefresh invalidates and rewarms the plans/advertisers cache.
	TaskCatalogRefresh = "catalog:refresh"
	// TaskLeadDispatch logs and counts a calculator lead handed to an advertiser.
	TaskLeadDispatch = "lead:dispatch"

	// CatalogRefreshUniqueTTL keeps scheduled refreshes from piling up.
	CatalogRefreshUniqueTTL = 10 * time.Minute
)

// CatalogRefreshPayload selects the sectors to warm after invalidation.
type CatalogRefreshPayload struct {
	Sectors []string `json:"sectors,omitempty"`
	Reason  string   `json:"reason,omitempty"`
}

// NewCatalogRefreshTask constructs an Asynq task.
func NewCatalogRefreshTask(reason string, sectors ...string) (*asynq.Task, error) {
	data, err := json.Marshal(CatalogRefreshPayload{Sectors: sectors, Reason: reason})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCatalogRefresh, data), nil
}

// LeadDispatchPayload describes a lead after it was routed to an advertiser.
// Customer details and the quote text stay with the customer's WhatsApp link.
type LeadDispatchPayload struct {
	LeadID         string    `json:"lead_id"`
	Sector         string    `json:"sector"`
	AdvertiserID   int64     `json:"advertiser_id"`
	AdvertiserName string    `json:"advertiser_name"`
	Total          float64   `json:"total"`
	Currency       string    `json:"currency"`
	CreatedAt      time.Time `json:"created_at"`
}

// NewLeadDispatchTask constructs an Asynq task. The lead id doubles as the task
// id so a retried enqueue cannot duplicate the lead.
func NewLeadDispatchTask(payload LeadDispatchPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLeadDispatch, data, asynq.TaskID("lead:"+payload.LeadID), asynq.MaxRetry(5)), nil
}
