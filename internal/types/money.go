package types

// Kopeks is an integer amount of 1/100ths of the display currency unit.
// Money never flows through a floating-point type anywhere on the pricing
// or ledger paths (see DATA MODEL: "Money is always integer kopeks").
type Kopeks int64

// ApplyPercentDiscount returns the discounted amount after subtracting
// percent% of amount, using integer division, then applies the broker's
// round-up-to-the-ruble rule: if the discount removed is >= 100 kopeks and
// the result isn't already a whole ruble, round the result UP to the next
// ruble. This never produces a discounted amount above the original, and
// exists to avoid silently under-charging by a few kopeks (§4.1).
func (k Kopeks) ApplyPercentDiscount(percent int) Kopeks {
	if percent <= 0 {
		return k
	}
	if percent > 100 {
		percent = 100
	}

	discount := Kopeks(int64(k) * int64(percent) / 100)
	discounted := k - discount

	if discount >= 100 && discounted%100 != 0 {
		discounted = ((discounted / 100) + 1) * 100
	}

	return discounted
}
