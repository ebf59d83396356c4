package options

import (
	"math"
	"sort"
)

// Strategy leg side constants.
const (
	SideBuy  = "buy"
	SideSell = "sell"
)

// DefaultCurvePoints is the payoff-curve sample count used when the
// caller has no preference.
const DefaultCurvePoints = 200

// edgeSlopeEpsilon is the minimum outward slope at a curve boundary
// for the extremum there to be flagged unlimited.
const edgeSlopeEpsilon = 0.01

// StrategyLeg is one option position inside a multi-leg strategy.
// Premium and ImpliedVolatility come from market data; legs are
// immutable for the duration of an analysis call.
type StrategyLeg struct {
	Side              string  `json:"side"`
	OptionType        string  `json:"option_type"`
	Strike            float64 `json:"strike"`
	Quantity          float64 `json:"quantity"`
	Premium           float64 `json:"premium"`
	ImpliedVolatility float64 `json:"implied_volatility"`
}

func (l StrategyLeg) direction() float64 {
	if l.Side == SideSell {
		return -1
	}
	return 1
}

// PayoffPoint is one sample of a strategy's P/L at expiry.
type PayoffPoint struct {
	StockPrice float64 `json:"stock_price"`
	PnL        float64 `json:"pnl"`
}

// StrategyAnalysis is the combined risk profile of a leg set. The
// unlimited flags come from a boundary-slope heuristic over the
// sampled curve: a strategy whose true bound lies outside the sampled
// 0.5x..1.5x window is reported as unlimited.
type StrategyAnalysis struct {
	NetDebitCredit     float64       `json:"net_debit_credit"`
	MaxProfit          float64       `json:"max_profit"`
	MaxLoss            float64       `json:"max_loss"`
	MaxProfitUnlimited bool          `json:"max_profit_unlimited"`
	MaxLossUnlimited   bool          `json:"max_loss_unlimited"`
	Breakevens         []float64     `json:"breakevens"`
	Greeks             PricingResult `json:"greeks"`
	Curve              []PayoffPoint `json:"payoff_curve"`
}

// PayoffAtExpiry is the strategy's terminal P/L at a hypothetical
// stock price: per leg, intrinsic minus premium, sign-flipped for
// sells, scaled by quantity and the 100-share contract multiplier.
func PayoffAtExpiry(legs []StrategyLeg, stockPrice float64) float64 {
	total := 0.0
	for _, leg := range legs {
		intrinsic := Intrinsic(leg.OptionType, stockPrice, leg.Strike)
		total += leg.direction() * (intrinsic - leg.Premium) * leg.Quantity * 100
	}
	return total
}

// PayoffCurve samples PayoffAtExpiry uniformly across 0.5x to 1.5x the
// current price, endpoints included. Every derived metric operates on
// this same sampled array; multi-leg payoffs are piecewise linear, so
// sampling plus interpolation beats solving them symbolically.
func PayoffCurve(legs []StrategyLeg, currentPrice float64, numPoints int) []PayoffPoint {
	if currentPrice <= 0 || numPoints < 2 {
		return nil
	}
	low := currentPrice * 0.5
	step := currentPrice / float64(numPoints-1)
	curve := make([]PayoffPoint, numPoints)
	for i := range curve {
		price := low + float64(i)*step
		curve[i] = PayoffPoint{StockPrice: price, PnL: PayoffAtExpiry(legs, price)}
	}
	return curve
}

// NetDebitCredit is the signed premium total: positive for a net
// credit received, negative for a net debit paid.
func NetDebitCredit(legs []StrategyLeg) float64 {
	total := 0.0
	for _, leg := range legs {
		total += leg.direction() * -leg.Premium * leg.Quantity * 100
	}
	return total
}

// Breakevens linearly interpolates every zero-crossing of the sampled
// curve, returning crossings sorted ascending and rounded to cents.
// Zero or many breakevens are both valid.
func Breakevens(curve []PayoffPoint) []float64 {
	var crossings []float64
	for i := 1; i < len(curve); i++ {
		x1, y1 := curve[i-1].StockPrice, curve[i-1].PnL
		x2, y2 := curve[i].StockPrice, curve[i].PnL
		switch {
		case y1 == 0 && y2 != 0:
			crossings = append(crossings, x1)
		case y2 == 0 && y1 != 0:
			crossings = append(crossings, x2)
		case y1*y2 < 0:
			crossings = append(crossings, x1-y1*(x2-x1)/(y2-y1))
		}
	}
	rounded := make([]float64, 0, len(crossings))
	for _, c := range crossings {
		rounded = append(rounded, math.Round(c*100)/100)
	}
	sort.Float64s(rounded)
	out := rounded[:0]
	for i, r := range rounded {
		if i == 0 || r != out[len(out)-1] {
			out = append(out, r)
		}
	}
	return out
}

// AggregateGreeks sums the legs' position Greeks via the pricing
// engine. Legs with missing or zero implied volatility are skipped, as
// is everything once the strategy is at or past expiry; near expiry
// the aggregate simply shrinks toward zero.
func AggregateGreeks(legs []StrategyLeg, stockPrice, timeToExpiry, riskFreeRate float64) PricingResult {
	var total PricingResult
	for _, leg := range legs {
		if leg.ImpliedVolatility <= 0 || timeToExpiry <= 0 {
			continue
		}
		res := Price(PricingParams{
			Spot:         stockPrice,
			Strike:       leg.Strike,
			TimeToExpiry: timeToExpiry,
			RiskFreeRate: riskFreeRate,
			Volatility:   leg.ImpliedVolatility,
			OptionType:   leg.OptionType,
		})
		scale := leg.direction() * leg.Quantity * 100
		total.Delta += res.Delta * scale
		total.Gamma += res.Gamma * scale
		total.Theta += res.Theta * scale
		total.Vega += res.Vega * scale
		total.Rho += res.Rho * scale
	}
	return total
}

// Analyze builds the full combined risk profile for a leg set over one
// shared payoff curve.
func Analyze(legs []StrategyLeg, stockPrice, timeToExpiry, riskFreeRate float64) StrategyAnalysis {
	curve := PayoffCurve(legs, stockPrice, DefaultCurvePoints)
	analysis := StrategyAnalysis{
		NetDebitCredit: NetDebitCredit(legs),
		Breakevens:     Breakevens(curve),
		Greeks:         AggregateGreeks(legs, stockPrice, timeToExpiry, riskFreeRate),
		Curve:          curve,
	}
	if len(curve) < 2 {
		return analysis
	}

	maxIdx, minIdx := 0, 0
	for i, pt := range curve {
		if pt.PnL > curve[maxIdx].PnL {
			maxIdx = i
		}
		if pt.PnL < curve[minIdx].PnL {
			minIdx = i
		}
	}
	analysis.MaxProfit = curve[maxIdx].PnL
	analysis.MaxLoss = curve[minIdx].PnL

	last := len(curve) - 1
	rightSlope := curve[last].PnL - curve[last-1].PnL
	leftSlope := curve[0].PnL - curve[1].PnL
	analysis.MaxProfitUnlimited = (maxIdx == last && rightSlope > edgeSlopeEpsilon) ||
		(maxIdx == 0 && leftSlope > edgeSlopeEpsilon)
	analysis.MaxLossUnlimited = (minIdx == last && rightSlope < -edgeSlopeEpsilon) ||
		(minIdx == 0 && leftSlope < -edgeSlopeEpsilon)
	return analysis
}
