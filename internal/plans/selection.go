package plans

import (
	"errors"
	"fmt"
	"strings"
)

// Coverage is the advertiser's chosen listing scope.
type Coverage string

const (
	CoverageNone    Coverage = ""
	CoverageKingdom Coverage = "kingdom"
	CoverageCity    Coverage = "city"
	CoverageBoth    Coverage = "both"
)

// ErrInvalidCoverage is returned for coverage values outside the known set.
var ErrInvalidCoverage = errors.New("invalid coverage type")

// ParseCoverage validates a coverage value received from a form.
func ParseCoverage(s string) (Coverage, error) {
	switch c := Coverage(strings.TrimSpace(s)); c {
	case CoverageNone, CoverageKingdom, CoverageCity, CoverageBoth:
		return c, nil
	default:
		return CoverageNone, fmt.Errorf("%w: %q", ErrInvalidCoverage, s)
	}
}

func (c Coverage) wantsKingdom() bool { return c == CoverageKingdom || c == CoverageBoth }
func (c Coverage) wantsCity() bool    { return c == CoverageCity || c == CoverageBoth }

// SelectedPackage is one plan chosen for a coverage scope. CoverageType is
// "city" exactly when City is set.
type SelectedPackage struct {
	PlanID       int64    `json:"plan_id"`
	Plan         Plan     `json:"plan"`
	CoverageType PlanType `json:"coverage_type"`
	City         string   `json:"city,omitempty"`
}

// Selector tracks coverage and plan choices for the new-advertiser flow.
// OnChange fires with the package sequence whenever it differs from the last
// emitted one, so listeners that recompute totals never loop.
type Selector struct {
	kingdomPlans []Plan
	cityPlans    []Plan

	coverage    Coverage
	kingdomPlan *Plan
	cityPlan    *Plan
	city        string

	OnChange func([]SelectedPackage)
	last     []SelectedPackage
}

// NewSelector splits the available plans into kingdom and city buckets.
func NewSelector(available []Plan) *Selector {
	return &Selector{
		kingdomPlans: KingdomEligible(available),
		cityPlans:    CityEligible(available),
		last:         []SelectedPackage{},
	}
}

// KingdomPlans lists the plans selectable for kingdom-wide coverage.
func (s *Selector) KingdomPlans() []Plan { return s.kingdomPlans }

// CityPlans lists the plans selectable for city coverage.
func (s *Selector) CityPlans() []Plan { return s.cityPlans }

// Coverage returns the current coverage.
func (s *Selector) Coverage() Coverage { return s.coverage }

// SetCoverage switches coverage and clears both plan selections.
func (s *Selector) SetCoverage(c Coverage) {
	s.coverage = c
	s.kingdomPlan = nil
	s.cityPlan = nil
	s.emit()
}

// SelectKingdomPlan picks a kingdom plan by id.
func (s *Selector) SelectKingdomPlan(id int64) error {
	if !s.coverage.wantsKingdom() {
		return fmt.Errorf("%w: coverage %q has no kingdom package", ErrInvalidCoverage, s.coverage)
	}
	p, err := Find(s.kingdomPlans, id)
	if err != nil {
		return fmt.Errorf("kingdom plan %d: %w", id, err)
	}
	s.kingdomPlan = &p
	s.emit()
	return nil
}

// SelectCityPlan picks a city plan by id.
func (s *Selector) SelectCityPlan(id int64) error {
	if !s.coverage.wantsCity() {
		return fmt.Errorf("%w: coverage %q has no city package", ErrInvalidCoverage, s.coverage)
	}
	p, err := Find(s.cityPlans, id)
	if err != nil {
		return fmt.Errorf("city plan %d: %w", id, err)
	}
	s.cityPlan = &p
	s.emit()
	return nil
}

// SetCity sets the city used by the city package.
func (s *Selector) SetCity(city string) {
	s.city = strings.TrimSpace(city)
	s.emit()
}

// IsComplete reports whether every package the coverage requires is chosen.
func (s *Selector) IsComplete() bool {
	switch s.coverage {
	case CoverageKingdom:
		return s.kingdomPlan != nil
	case CoverageCity:
		return s.cityPlan != nil && s.city != ""
	case CoverageBoth:
		return s.kingdomPlan != nil && s.cityPlan != nil && s.city != ""
	default:
		return false
	}
}

// Packages returns the current selection, kingdom package first.
func (s *Selector) Packages() []SelectedPackage {
	out := make([]SelectedPackage, 0, 2)
	if s.coverage.wantsKingdom() && s.kingdomPlan != nil {
		out = append(out, SelectedPackage{
			PlanID:       s.kingdomPlan.ID,
			Plan:         *s.kingdomPlan,
			CoverageType: PlanTypeKingdom,
		})
	}
	if s.coverage.wantsCity() && s.cityPlan != nil && s.city != "" {
		out = append(out, SelectedPackage{
			PlanID:       s.cityPlan.ID,
			Plan:         *s.cityPlan,
			CoverageType: PlanTypeCity,
			City:         s.city,
		})
	}
	return out
}

func (s *Selector) emit() {
	next := s.Packages()
	if samePackages(s.last, next) {
		return
	}
	s.last = next
	if s.OnChange != nil {
		s.OnChange(next)
	}
}

func samePackages(a, b []SelectedPackage) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].PlanID != b[i].PlanID || a[i].CoverageType != b[i].CoverageType || a[i].City != b[i].City || a[i].Plan.Price != b[i].Plan.Price {
			return false
		}
	}
	return true
}

// Select builds a selection in one call, as submitted by an API client.
func Select(available []Plan, coverage Coverage, kingdomPlanID, cityPlanID int64, city string) (*Selector, error) {
	sel := NewSelector(available)
	sel.SetCoverage(coverage)
	sel.SetCity(city)
	if coverage.wantsKingdom() && kingdomPlanID > 0 {
		if err := sel.SelectKingdomPlan(kingdomPlanID); err != nil {
			return nil, err
		}
	}
	if coverage.wantsCity() && cityPlanID > 0 {
		if err := sel.SelectCityPlan(cityPlanID); err != nil {
			return nil, err
		}
	}
	return sel, nil
}
