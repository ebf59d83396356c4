// Package options prices vanilla European options and analyzes
// multi-leg strategies built from them.
//
// Everything here is float64: the math is transcendental and payoff
// curves are sampled, so decimal exactness buys nothing. Money stays
// decimal in the accounting packages and callers convert at this
// boundary. All functions are pure; degenerate inputs degrade to
// intrinsic/zero results instead of returning errors.
package options

import "math"

// Option type constants for pricing and strategy legs.
const (
	Call = "call"
	Put  = "put"
)

// daysPerYear is the fixed day-count convention for time to expiry.
const daysPerYear = 365.0

// leapMinDays is the minimum days-to-expiry for a contract to count
// as a LEAP.
const leapMinDays = 180

// PricingParams are the Black-Scholes-Merton inputs. TimeToExpiry is
// in years on the 365-day convention.
type PricingParams struct {
	Spot         float64 `json:"spot"`
	Strike       float64 `json:"strike"`
	TimeToExpiry float64 `json:"time_to_expiry"`
	RiskFreeRate float64 `json:"risk_free_rate"`
	Volatility   float64 `json:"volatility"`
	OptionType   string  `json:"option_type"`
}

// PricingResult is the option value and its sensitivities. Vega is per
// one volatility point, Theta per calendar day, Rho per one
// percentage point of rate.
type PricingResult struct {
	Price float64 `json:"price"`
	Delta float64 `json:"delta"`
	Gamma float64 `json:"gamma"`
	Theta float64 `json:"theta"`
	Vega  float64 `json:"vega"`
	Rho   float64 `json:"rho"`
}

// Price computes the Black-Scholes-Merton value and Greeks. At or past
// expiry (TimeToExpiry <= 0) it returns the intrinsic value with all
// Greeks zero; non-positive spot, strike, or volatility degrade
// through the same branch. Any option type other than Put prices as a
// call.
func Price(p PricingParams) PricingResult {
	if p.TimeToExpiry <= 0 || p.Volatility <= 0 || p.Spot <= 0 || p.Strike <= 0 {
		return PricingResult{Price: Intrinsic(p.OptionType, p.Spot, p.Strike)}
	}

	sqrtT := math.Sqrt(p.TimeToExpiry)
	d1 := (math.Log(p.Spot/p.Strike) + (p.RiskFreeRate+p.Volatility*p.Volatility/2)*p.TimeToExpiry) /
		(p.Volatility * sqrtT)
	d2 := d1 - p.Volatility*sqrtT
	discount := math.Exp(-p.RiskFreeRate * p.TimeToExpiry)
	pdfD1 := normPDF(d1)

	var res PricingResult
	if p.OptionType == Put {
		res.Price = p.Strike*discount*normCDF(-d2) - p.Spot*normCDF(-d1)
		res.Delta = normCDF(d1) - 1
		res.Theta = (-(p.Spot*pdfD1*p.Volatility)/(2*sqrtT) +
			p.RiskFreeRate*p.Strike*discount*normCDF(-d2)) / daysPerYear
		res.Rho = -p.Strike * p.TimeToExpiry * discount * normCDF(-d2) / 100
	} else {
		res.Price = p.Spot*normCDF(d1) - p.Strike*discount*normCDF(d2)
		res.Delta = normCDF(d1)
		res.Theta = (-(p.Spot*pdfD1*p.Volatility)/(2*sqrtT) -
			p.RiskFreeRate*p.Strike*discount*normCDF(d2)) / daysPerYear
		res.Rho = p.Strike * p.TimeToExpiry * discount * normCDF(d2) / 100
	}
	res.Gamma = pdfD1 / (p.Spot * p.Volatility * sqrtT)
	res.Vega = p.Spot * pdfD1 * sqrtT / 100
	return res
}

// Intrinsic is the exercise value at a terminal stock price.
func Intrinsic(optionType string, spot, strike float64) float64 {
	if optionType == Put {
		return math.Max(strike-spot, 0)
	}
	return math.Max(spot-strike, 0)
}

// YearsFromDays converts calendar days to the year fraction Price
// expects.
func YearsFromDays(days float64) float64 {
	return days / daysPerYear
}

// IsLEAP reports whether a contract is long-dated enough (more than
// 180 days out) to serve as a stock-replacement vehicle.
func IsLEAP(daysToExpiry int) bool {
	return daysToExpiry > leapMinDays
}

// normCDF evaluates the standard normal CDF using the Abramowitz and
// Stegun 7.1.26 rational approximation, absolute error below 7.5e-8.
func normCDF(x float64) float64 {
	if x < 0 {
		return 1 - normCDF(-x)
	}
	k := 1 / (1 + 0.2316419*x)
	poly := k * (0.319381530 + k*(-0.356563782+k*(1.781477937+k*(-1.821255978+k*1.330274429))))
	return 1 - normPDF(x)*poly
}

func normPDF(x float64) float64 {
	return math.Exp(-x*x/2) / math.Sqrt(2*math.Pi)
}
