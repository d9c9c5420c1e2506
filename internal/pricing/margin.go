package pricing

import "math"

// Margin is the seller's markup policy applied to the resolved base price
type Margin struct {
	Rate      float64 // fraction of base added on top, e.g. 0.3
	Add       int     // fixed amount added after the rate
	Floor     int     // lowest allowed result
	Max       int     // highest allowed result, 0 means unbounded
	RoundUnit int     // result is floored to this unit when > 1
}

// DefaultMargin is rate 0, add 0, floor 1000, rounding unit 10
func DefaultMargin() Margin {
	return Margin{Floor: MinPrice, RoundUnit: Unit}
}

// ApplyMargin computes base + base*rate + add, floors it to the rounding unit
// and clamps it into [Floor, Max].
func ApplyMargin(base int, m Margin) int {
	raw := float64(base) + float64(base)*m.Rate + float64(m.Add)
	if m.RoundUnit > 1 {
		raw = math.Floor(raw/float64(m.RoundUnit)) * float64(m.RoundUnit)
	}
	price := int(math.Floor(raw))
	if price < m.Floor {
		price = m.Floor
	}
	if m.Max > 0 && price > m.Max {
		price = m.Max
	}
	return price
}
