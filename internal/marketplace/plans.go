package marketplace

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/khadamat/khadamat/internal/plans"
)

// wirePlan mirrors the API payload, where price may be a string or a number
// and features may be a string or a list.
type wirePlan struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	DurationDays int             `json:"duration_days"`
	Price        Amount          `json:"price"`
	Features     json.RawMessage `json:"features"`
	PlanType     plans.PlanType  `json:"plan_type"`
	City         string          `json:"city"`
	Sector       string          `json:"sector"`
	IsActive     *bool           `json:"is_active"`
}

func (w wirePlan) toPlan() plans.Plan {
	return plans.Plan{
		ID:           w.ID,
		Name:         w.Name,
		DurationDays: w.DurationDays,
		Price:        w.Price.InexactFloat64(),
		Features:     plans.NormalizeFeatures(w.Features),
		PlanType:     w.PlanType,
		City:         w.City,
		Sector:       w.Sector,
		IsActive:     w.IsActive,
	}
}

// ListPlans fetches every plan, normalised and deduplicated by name and price.
func (c *Client) ListPlans(ctx context.Context) ([]plans.Plan, error) {
	var raw []wirePlan
	if err := c.do(ctx, http.MethodGet, "/plans", nil, nil, &raw); err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	out := make([]plans.Plan, 0, len(raw))
	for _, w := range raw {
		if v, bad := w.Price.Malformed(); bad {
			c.logger.Warn("plan price unreadable, using 0", slog.Int64("plan_id", w.ID), slog.String("price", v))
		}
		out = append(out, w.toPlan())
	}
	return plans.Dedupe(out), nil
}
