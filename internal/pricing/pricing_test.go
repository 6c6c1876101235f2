package pricing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscountValue(t *testing.T) {
	assert.Equal(t, 200.0, DiscountValue(1500, DiscountAmount, 200))
	assert.Equal(t, 150.0, DiscountValue(1500, DiscountPercentage, 10))
	assert.Equal(t, 0.0, DiscountValue(1500, DiscountType("bogus"), 10))
	// no clamping at this layer
	assert.Equal(t, 3000.0, DiscountValue(1500, DiscountPercentage, 200))
	assert.Equal(t, 0.0, DiscountValue(math.NaN(), DiscountPercentage, 10))
}

func TestDiscountValuePercentageProperty(t *testing.T) {
	for base := 0.0; base <= 5000; base += 137.5 {
		for amount := 0.0; amount <= 100; amount += 12.5 {
			require.Equal(t, base*amount/100, DiscountValue(base, DiscountPercentage, amount))
		}
	}
}

func TestSubtotalFloorsAtZero(t *testing.T) {
	assert.Equal(t, 0.0, Subtotal(100, DiscountAmount, 250))
	assert.Equal(t, 1350.0, Subtotal(1500, DiscountPercentage, 10))
	for base := 0.0; base <= 1000; base += 50 {
		for amount := 0.0; amount <= base; amount += 25 {
			got := Subtotal(base, DiscountAmount, amount)
			require.GreaterOrEqual(t, got, 0.0)
			require.Equal(t, base-amount, got)
		}
	}
}

func TestClampDiscount(t *testing.T) {
	assert.Equal(t, 100.0, ClampDiscount(500, DiscountPercentage, 140))
	assert.Equal(t, 0.0, ClampDiscount(500, DiscountPercentage, -3))
	assert.Equal(t, 500.0, ClampDiscount(500, DiscountAmount, 900))
	assert.Equal(t, 0.0, ClampDiscount(-10, DiscountAmount, 5))
}

func TestApplyAndExtractVAT(t *testing.T) {
	assert.Equal(t, 100.0, ApplyVAT(100, false))
	assert.InDelta(t, 115.0, ApplyVAT(100, true), 1e-9)
	for x := 0.0; x < 10000; x += 333.33 {
		require.InDelta(t, x*0.15, ExtractVAT(ApplyVAT(x, true)), 1e-6)
	}
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 1552.5, Round2(1350*1.15))
	assert.Equal(t, 0.0, Round2(0))
	assert.Equal(t, 10.13, Round2(10.125))
	assert.Equal(t, -10.12, Round2(-10.125))
	assert.Equal(t, 0.0, Round2(math.Inf(1)))
}

func TestRoundHalvesTowardPositiveInfinity(t *testing.T) {
	assert.Equal(t, 3.0, Round(2.5))
	assert.Equal(t, -2.0, Round(-2.5))
	assert.Equal(t, 0.0, Round(-0.4))
}
