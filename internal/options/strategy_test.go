package options

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func longCall(strike, premium float64) StrategyLeg {
	return StrategyLeg{Side: SideBuy, OptionType: Call, Strike: strike, Quantity: 1, Premium: premium}
}

func shortCall(strike, premium float64) StrategyLeg {
	return StrategyLeg{Side: SideSell, OptionType: Call, Strike: strike, Quantity: 1, Premium: premium}
}

func longPut(strike, premium float64) StrategyLeg {
	return StrategyLeg{Side: SideBuy, OptionType: Put, Strike: strike, Quantity: 1, Premium: premium}
}

func shortPut(strike, premium float64) StrategyLeg {
	return StrategyLeg{Side: SideSell, OptionType: Put, Strike: strike, Quantity: 1, Premium: premium}
}

func TestPayoffAtExpiry(t *testing.T) {
	call := []StrategyLeg{longCall(100, 5)}
	assert.InDelta(t, 1500, PayoffAtExpiry(call, 120), 1e-9)
	assert.InDelta(t, -500, PayoffAtExpiry(call, 90), 1e-9)
	assert.InDelta(t, -500, PayoffAtExpiry(call, 100), 1e-9)

	put := []StrategyLeg{shortPut(100, 3)}
	assert.InDelta(t, -700, PayoffAtExpiry(put, 90), 1e-9)
	assert.InDelta(t, 300, PayoffAtExpiry(put, 110), 1e-9)

	// Quantity scales linearly.
	twoCalls := []StrategyLeg{{Side: SideBuy, OptionType: Call, Strike: 100, Quantity: 2, Premium: 5}}
	assert.InDelta(t, 3000, PayoffAtExpiry(twoCalls, 120), 1e-9)
}

// TestNetDebitCredit: buying 1 call at 5 and selling 1 call at 3 is a
// net debit of $200, reported as a negative number.
func TestNetDebitCredit(t *testing.T) {
	legs := []StrategyLeg{longCall(100, 5), shortCall(105, 3)}
	assert.InDelta(t, -200, NetDebitCredit(legs), 1e-9)

	credit := []StrategyLeg{shortPut(95, 2), shortCall(105, 2)}
	assert.InDelta(t, 400, NetDebitCredit(credit), 1e-9)

	assert.Zero(t, NetDebitCredit(nil))
}

func TestPayoffCurveShape(t *testing.T) {
	legs := []StrategyLeg{longCall(100, 5)}
	curve := PayoffCurve(legs, 100, DefaultCurvePoints)

	require.Len(t, curve, DefaultCurvePoints)
	assert.InDelta(t, 50, curve[0].StockPrice, 1e-9)
	assert.InDelta(t, 150, curve[len(curve)-1].StockPrice, 1e-9)
	for i := 1; i < len(curve); i++ {
		assert.Greater(t, curve[i].StockPrice, curve[i-1].StockPrice)
	}

	assert.Nil(t, PayoffCurve(legs, 0, DefaultCurvePoints))
	assert.Nil(t, PayoffCurve(legs, -10, DefaultCurvePoints))
	assert.Nil(t, PayoffCurve(legs, 100, 1))
}

// TestLongCallBreakeven: a call struck at 100 bought for 5 breaks even
// at 105; the piecewise-linear curve interpolates it exactly.
func TestLongCallBreakeven(t *testing.T) {
	legs := []StrategyLeg{longCall(100, 5)}
	curve := PayoffCurve(legs, 100, DefaultCurvePoints)
	breakevens := Breakevens(curve)

	require.Len(t, breakevens, 1)
	assert.InDelta(t, 105, breakevens[0], 1e-9)
}

func TestStraddleBreakevens(t *testing.T) {
	legs := []StrategyLeg{longCall(100, 4), longPut(100, 3)}
	curve := PayoffCurve(legs, 100, DefaultCurvePoints)
	breakevens := Breakevens(curve)

	require.Len(t, breakevens, 2)
	assert.InDelta(t, 93, breakevens[0], 1e-9)
	assert.InDelta(t, 107, breakevens[1], 1e-9)
}

func TestBreakevensFlatZeroCurve(t *testing.T) {
	curve := PayoffCurve(nil, 100, DefaultCurvePoints)
	assert.Empty(t, Breakevens(curve))
	assert.Empty(t, Breakevens(nil))
}

// TestUnlimitedFlags exercises the boundary-slope heuristic.
func TestUnlimitedFlags(t *testing.T) {
	t.Run("long call has unlimited profit, bounded loss", func(t *testing.T) {
		a := Analyze([]StrategyLeg{longCall(100, 5)}, 100, 0.5, 0.05)
		assert.True(t, a.MaxProfitUnlimited)
		assert.False(t, a.MaxLossUnlimited)
		assert.InDelta(t, -500, a.MaxLoss, 1e-9)
	})

	t.Run("short call has unlimited loss, bounded profit", func(t *testing.T) {
		a := Analyze([]StrategyLeg{shortCall(100, 5)}, 100, 0.5, 0.05)
		assert.True(t, a.MaxLossUnlimited)
		assert.False(t, a.MaxProfitUnlimited)
		assert.InDelta(t, 500, a.MaxProfit, 1e-9)
	})

	t.Run("long put reports unlimited profit at the sampled left edge", func(t *testing.T) {
		// The true profit is bounded by the stock reaching zero; the
		// heuristic accepts that as unlimited because the extremum
		// sits on the window boundary with a live slope.
		a := Analyze([]StrategyLeg{longPut(100, 5)}, 100, 0.5, 0.05)
		assert.True(t, a.MaxProfitUnlimited)
		assert.False(t, a.MaxLossUnlimited)
	})

	t.Run("bull call spread is bounded both ways", func(t *testing.T) {
		a := Analyze([]StrategyLeg{longCall(100, 5), shortCall(105, 3)}, 100, 0.5, 0.05)
		assert.False(t, a.MaxProfitUnlimited)
		assert.False(t, a.MaxLossUnlimited)
		assert.InDelta(t, 300, a.MaxProfit, 1e-9)
		assert.InDelta(t, -200, a.MaxLoss, 1e-9)
	})
}

func TestIronCondorAnalysis(t *testing.T) {
	legs := []StrategyLeg{
		longPut(90, 1),
		shortPut(95, 2),
		shortCall(105, 2),
		longCall(110, 1),
	}
	a := Analyze(legs, 100, 0.25, 0.05)

	assert.InDelta(t, 200, a.NetDebitCredit, 1e-9)
	assert.InDelta(t, 200, a.MaxProfit, 1e-9)
	assert.InDelta(t, -300, a.MaxLoss, 1e-9)
	assert.False(t, a.MaxProfitUnlimited)
	assert.False(t, a.MaxLossUnlimited)
	require.Len(t, a.Breakevens, 2)
	assert.InDelta(t, 93, a.Breakevens[0], 1e-9)
	assert.InDelta(t, 107, a.Breakevens[1], 1e-9)
}

// TestAggregateGreeksSkipsLegs: legs with no usable IV contribute
// nothing, and at expiry the whole aggregate is zero.
func TestAggregateGreeksSkipsLegs(t *testing.T) {
	withIV := longCall(100, 5)
	withIV.ImpliedVolatility = 0.2
	noIV := longCall(105, 3)

	single := AggregateGreeks([]StrategyLeg{withIV}, 100, 0.5, 0.05)
	both := AggregateGreeks([]StrategyLeg{withIV, noIV}, 100, 0.5, 0.05)
	assert.InDelta(t, single.Delta, both.Delta, 1e-12)
	assert.InDelta(t, single.Vega, both.Vega, 1e-12)

	expired := AggregateGreeks([]StrategyLeg{withIV}, 100, 0, 0.05)
	assert.Zero(t, expired.Delta)
	assert.Zero(t, expired.Gamma)
}

func TestAggregateGreeksSignAndScale(t *testing.T) {
	long := longCall(100, 5)
	long.ImpliedVolatility = 0.2
	short := shortCall(100, 5)
	short.ImpliedVolatility = 0.2

	longG := AggregateGreeks([]StrategyLeg{long}, 100, 0.5, 0.05)
	shortG := AggregateGreeks([]StrategyLeg{short}, 100, 0.5, 0.05)
	assert.InDelta(t, -longG.Delta, shortG.Delta, 1e-12)
	assert.InDelta(t, -longG.Theta, shortG.Theta, 1e-12)

	// One long contract carries 100 deltas of the single option.
	res := Price(PricingParams{Spot: 100, Strike: 100, TimeToExpiry: 0.5, RiskFreeRate: 0.05, Volatility: 0.2, OptionType: Call})
	assert.InDelta(t, res.Delta*100, longG.Delta, 1e-9)
}

func TestAnalyzeEmptyLegs(t *testing.T) {
	a := Analyze(nil, 100, 0.5, 0.05)
	assert.Zero(t, a.NetDebitCredit)
	assert.Zero(t, a.MaxProfit)
	assert.Zero(t, a.MaxLoss)
	assert.False(t, a.MaxProfitUnlimited)
	assert.False(t, a.MaxLossUnlimited)
	assert.Empty(t, a.Breakevens)
	require.Len(t, a.Curve, DefaultCurvePoints)
}
