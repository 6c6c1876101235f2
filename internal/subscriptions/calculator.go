// Package subscriptions computes what an advertiser pays for a set of listing packages.
package subscriptions

import (
	"math"

	"github.com/khadamat/khadamat/internal/plans"
	"github.com/khadamat/khadamat/internal/pricing"
)

// Input gathers everything the total depends on.
type Input struct {
	Packages       []plans.SelectedPackage `json:"packages"`
	DiscountType   pricing.DiscountType    `json:"discount_type"`
	DiscountAmount float64                 `json:"discount_amount"`
	IncludeVAT     bool                    `json:"include_vat"`
	PaidAmount     float64                 `json:"paid_amount"`
}

// Breakdown is the derived pricing for an Input. It is never stored on its own.
type Breakdown struct {
	BasePrice       float64              `json:"base_price"`
	DiscountAmount  float64              `json:"discount_amount"`
	DiscountType    pricing.DiscountType `json:"discount_type"`
	DiscountValue   float64              `json:"discount_value"`
	Subtotal        float64              `json:"subtotal"`
	VATIncluded     bool                 `json:"vat_included"`
	VATAmount       float64              `json:"vat_amount"`
	TotalAmount     float64              `json:"total_amount"`
	PaidAmount      float64              `json:"paid_amount"`
	RemainingAmount float64              `json:"remaining_amount"`
}

// BasePrice sums the plan prices of the selected packages.
func BasePrice(pkgs []plans.SelectedPackage) float64 {
	var sum float64
	for _, p := range pkgs {
		if math.IsNaN(p.Plan.Price) || math.IsInf(p.Plan.Price, 0) {
			continue
		}
		sum += p.Plan.Price
	}
	return sum
}

// Calculate derives the breakdown. The discount is applied and floored at zero
// before VAT; the total is rounded to two decimals.
func Calculate(in Input) Breakdown {
	typ := in.DiscountType
	if typ == "" {
		typ = pricing.DiscountAmount
	}
	base := BasePrice(in.Packages)
	discount := pricing.DiscountValue(base, typ, in.DiscountAmount)
	subtotal := pricing.Subtotal(base, typ, in.DiscountAmount)
	total := pricing.Round2(pricing.ApplyVAT(subtotal, in.IncludeVAT))
	paid := finite(in.PaidAmount)

	var vat float64
	if in.IncludeVAT {
		vat = pricing.Round2(pricing.ExtractVAT(total))
	}

	return Breakdown{
		BasePrice:       base,
		DiscountAmount:  finite(in.DiscountAmount),
		DiscountType:    typ,
		DiscountValue:   discount,
		Subtotal:        subtotal,
		VATIncluded:     in.IncludeVAT,
		VATAmount:       vat,
		TotalAmount:     total,
		PaidAmount:      paid,
		RemainingAmount: total - paid,
	}
}

// DisplayRemaining is the remaining balance as shown to users: never below zero.
func (b Breakdown) DisplayRemaining() float64 {
	return math.Max(0, b.RemainingAmount)
}

// Overpaid reports a paid amount above the total. Nothing blocks this at the
// data layer; callers decide whether to warn.
func (b Breakdown) Overpaid() bool {
	return b.PaidAmount > b.TotalAmount
}

// State is the stored result of the last recomputation.
type State struct {
	BasePrice   float64 `json:"base_price"`
	TotalAmount float64 `json:"total_amount"`
}

// Reducer recomputes totals and only writes new state when the values moved.
type Reducer struct {
	state State
}

// State returns the stored values.
func (r *Reducer) State() State { return r.state }

// Apply recomputes from in and reports whether the stored state changed.
func (r *Reducer) Apply(in Input) (Breakdown, bool) {
	b := Calculate(in)
	next := State{BasePrice: b.BasePrice, TotalAmount: b.TotalAmount}
	if next == r.state {
		return b, false
	}
	r.state = next
	return b, true
}

func finite(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	return x
}
