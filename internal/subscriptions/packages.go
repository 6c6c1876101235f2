package subscriptions

import (
	"time"

	"github.com/khadamat/khadamat/internal/plans"
)

const dateLayout = "2006-01-02"

// Package is one subscription the marketplace API creates for a new advertiser.
type Package struct {
	PlanID       int64          `json:"plan_id"`
	CoverageType plans.PlanType `json:"coverage_type"`
	City         string         `json:"city,omitempty"`
	StartDate    string         `json:"start_date"`
	EndDate      string         `json:"end_date"`
	DurationDays int            `json:"duration_days"`
	Price        float64        `json:"price"`
	PlanName     string         `json:"plan_name"`
}

// BuildPackages turns the selection into API packages starting on start.
func BuildPackages(selected []plans.SelectedPackage, start time.Time) []Package {
	out := make([]Package, 0, len(selected))
	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
	for _, s := range selected {
		out = append(out, Package{
			PlanID:       s.PlanID,
			CoverageType: s.CoverageType,
			City:         s.City,
			StartDate:    day.Format(dateLayout),
			EndDate:      day.AddDate(0, 0, s.Plan.DurationDays).Format(dateLayout),
			DurationDays: s.Plan.DurationDays,
			Price:        s.Plan.Price,
			PlanName:     s.Plan.Name,
		})
	}
	return out
}
