// Package pricing holds the arithmetic shared by the subscription and quote calculators.
package pricing

import "math"

// VATRate is the Saudi value-added tax rate.
const VATRate = 0.15

// DiscountType selects how a discount amount is interpreted.
type DiscountType string

const (
	DiscountAmount     DiscountType = "amount"
	DiscountPercentage DiscountType = "percentage"
)

// Valid reports whether the discount type is one of the known values.
func (t DiscountType) Valid() bool {
	return t == DiscountAmount || t == DiscountPercentage
}

// DiscountValue returns the currency value of a discount. Inputs are not
// clamped here; callers bound amount to [0,100] for percentages and
// [0,base] for fixed amounts (see ClampDiscount).
func DiscountValue(base float64, typ DiscountType, amount float64) float64 {
	base, amount = finite(base), finite(amount)
	switch typ {
	case DiscountAmount:
		return amount
	case DiscountPercentage:
		return base * amount / 100
	default:
		return 0
	}
}

// ClampDiscount bounds a user supplied discount amount to the range that
// makes sense for its type.
func ClampDiscount(base float64, typ DiscountType, amount float64) float64 {
	base, amount = finite(base), finite(amount)
	upper := 100.0
	if typ == DiscountAmount {
		upper = math.Max(0, base)
	}
	return math.Min(math.Max(amount, 0), upper)
}

// Subtotal applies the discount to base and floors the result at zero.
func Subtotal(base float64, typ DiscountType, amount float64) float64 {
	return math.Max(0, finite(base)-DiscountValue(base, typ, amount))
}

// ApplyVAT adds VAT to amount when included is set.
func ApplyVAT(amount float64, included bool) float64 {
	amount = finite(amount)
	if included {
		return amount * (1 + VATRate)
	}
	return amount
}

// ExtractVAT returns the VAT portion already embedded in a VAT-inclusive total.
func ExtractVAT(total float64) float64 {
	return finite(total) / (1 + VATRate) * VATRate
}

// Round2 rounds to two decimals the same way the storefront does
// (Math.round semantics: halves go toward positive infinity).
func Round2(x float64) float64 {
	return Round(finite(x)*100) / 100
}

// Round rounds to the nearest integer with halves going toward positive infinity.
func Round(x float64) float64 {
	x = finite(x)
	r := math.Floor(x + 0.5)
	if r == 0 {
		return 0
	}
	return r
}

func finite(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	return x
}
