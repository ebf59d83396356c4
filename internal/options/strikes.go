package options

import "math"

// Strike offset tokens for preset legs.
const (
	OffsetATM  = "atm"
	OffsetOTM1 = "otm1"
	OffsetOTM2 = "otm2"
	OffsetITM1 = "itm1"
	OffsetITM2 = "itm2"
)

// ResolveStrikeOffset maps a qualitative offset to a concrete strike
// from a sorted list of available strikes. The scan picks the first
// index nearest the stock price, then steps one or two indices toward
// higher strikes for call OTM / put ITM and toward lower strikes for
// the reverse, clamping at the array edges. An empty strike list
// resolves to 0; an unknown offset behaves as at-the-money.
func ResolveStrikeOffset(offset, optionType string, stockPrice float64, strikes []float64) float64 {
	if len(strikes) == 0 {
		return 0
	}

	nearest := 0
	best := math.Abs(strikes[0] - stockPrice)
	for i := 1; i < len(strikes); i++ {
		if dist := math.Abs(strikes[i] - stockPrice); dist < best {
			best = dist
			nearest = i
		}
	}

	step := 0
	switch offset {
	case OffsetOTM1:
		step = 1
	case OffsetOTM2:
		step = 2
	case OffsetITM1:
		step = -1
	case OffsetITM2:
		step = -2
	}
	if optionType == Put {
		step = -step
	}

	idx := nearest + step
	if idx < 0 {
		idx = 0
	}
	if idx >= len(strikes) {
		idx = len(strikes) - 1
	}
	return strikes[idx]
}
