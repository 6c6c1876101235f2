package plans

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrPlanNotFound is returned when a plan id is unknown or not eligible for the coverage.
var ErrPlanNotFound = errors.New("plan not found")

// PlanType scopes a plan to the whole kingdom or to a single city.
type PlanType string

const (
	PlanTypeKingdom PlanType = "kingdom"
	PlanTypeCity    PlanType = "city"
)

// Plan is a purchasable listing tier served by the marketplace API.
type Plan struct {
	ID           int64    `json:"id"`
	Name         string   `json:"name"`
	DurationDays int      `json:"duration_days"`
	Price        float64  `json:"price"`
	Features     []string `json:"features"`
	PlanType     PlanType `json:"plan_type,omitempty"`
	City         string   `json:"city,omitempty"`
	Sector       string   `json:"sector,omitempty"`
	IsActive     *bool    `json:"is_active,omitempty"`
}

// Active treats a missing flag as active.
func (p Plan) Active() bool {
	return p.IsActive == nil || *p.IsActive
}

// NormalizeFeatures accepts the features field as the API sends it (a JSON
// list, a plain string, or a string holding a JSON list) and returns a list.
// Plain strings are split on new lines, falling back to commas.
func NormalizeFeatures(raw json.RawMessage) []string {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return []string{}
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return cleanFeatures(list)
	}
	var mixed []any
	if err := json.Unmarshal(raw, &mixed); err == nil {
		out := make([]string, 0, len(mixed))
		for _, v := range mixed {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
		return cleanFeatures(out)
	}
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return []string{}
	}
	return SplitFeatures(text)
}

// SplitFeatures parses a free-text features value.
func SplitFeatures(text string) []string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "[") {
		var list []string
		if err := json.Unmarshal([]byte(text), &list); err == nil {
			return cleanFeatures(list)
		}
	}
	sep := "\n"
	if !strings.Contains(text, "\n") {
		sep = ","
	}
	return cleanFeatures(strings.Split(text, sep))
}

func cleanFeatures(in []string) []string {
	out := make([]string, 0, len(in))
	for _, f := range in {
		f = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(f), "-"))
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}
