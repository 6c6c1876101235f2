package plans

import "strconv"

// KingdomEligible returns active kingdom-wide plans in their original order.
func KingdomEligible(all []Plan) []Plan {
	out := make([]Plan, 0, len(all))
	for _, p := range all {
		if p.PlanType == PlanTypeKingdom && p.Active() {
			out = append(out, p)
		}
	}
	return out
}

// CityEligible returns active city plans. Plans without a type count as city plans.
func CityEligible(all []Plan) []Plan {
	out := make([]Plan, 0, len(all))
	for _, p := range all {
		if (p.PlanType == PlanTypeCity || p.PlanType == "") && p.Active() {
			out = append(out, p)
		}
	}
	return out
}

// Dedupe collapses plans sharing the same name and price. The first row wins.
func Dedupe(all []Plan) []Plan {
	seen := make(map[string]struct{}, len(all))
	out := make([]Plan, 0, len(all))
	for _, p := range all {
		key := p.Name + "|" + strconv.FormatFloat(p.Price, 'f', -1, 64)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, p)
	}
	return out
}

// BySector keeps plans for the sector plus the ones not tied to any sector.
func BySector(all []Plan, sector string) []Plan {
	if sector == "" {
		return all
	}
	out := make([]Plan, 0, len(all))
	for _, p := range all {
		if p.Sector == "" || p.Sector == sector {
			out = append(out, p)
		}
	}
	return out
}

// Find looks a plan up by id.
func Find(all []Plan, id int64) (Plan, error) {
	for _, p := range all {
		if p.ID == id {
			return p, nil
		}
	}
	return Plan{}, ErrPlanNotFound
}
