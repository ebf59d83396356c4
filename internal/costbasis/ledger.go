// Package costbasis implements the cost-basis accounting ledger: a pure,
// replayable state machine that turns a chronological stream of trade
// events for one instrument into position state under FIFO or
// average-cost accounting.
//
// Monetary amounts and share counts are decimal end to end. The ledger
// never returns errors and never panics on malformed history; it clamps
// and zero-guards instead, because a position view over messy imported
// data is more useful degraded than aborted.
package costbasis

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quantfolio/portfolio-service/internal/models"
)

// contractMultiplier is the number of underlying shares one option
// contract covers.
var contractMultiplier = decimal.NewFromInt(100)

// Lot is a discrete block of shares acquired at one time and cost.
// Under FIFO accounting sells consume lots oldest-first; the lot's
// CostPerShare is fixed at creation and includes the amortized fee.
type Lot struct {
	Shares       decimal.Decimal `json:"shares"`
	CostPerShare decimal.Decimal `json:"cost_per_share"`
	AcquiredAt   time.Time       `json:"acquired_at"`
}

// PositionState is the result of replaying every event for one
// instrument: current holdings, their basis, and the cumulative cash
// components that feed total-return math. It is a pure value with no
// identity beyond its inputs.
type PositionState struct {
	Symbol            string          `json:"symbol"`
	Method            Method          `json:"method"`
	Shares            decimal.Decimal `json:"shares"`
	CostBasis         decimal.Decimal `json:"cost_basis"`
	AvgCostPerShare   decimal.Decimal `json:"avg_cost_per_share"`
	RealizedPL        decimal.Decimal `json:"realized_pl"`
	OptionsPremiumNet decimal.Decimal `json:"options_premium_net"`
	DividendsReceived decimal.Decimal `json:"dividends_received"`
	AdjustedCostBasis decimal.Decimal `json:"adjusted_cost_basis"`
	Lots              []Lot           `json:"lots,omitempty"`
}

// TradeWithPL is one input event annotated with its own cash flow and
// the running position figures as of that event, for trade-history
// views with running totals.
type TradeWithPL struct {
	Event             models.TradeEvent `json:"event"`
	CashFlow          decimal.Decimal   `json:"cash_flow"`
	RealizedPL        decimal.Decimal   `json:"realized_pl"`
	Shares            decimal.Decimal   `json:"shares"`
	CostBasis         decimal.Decimal   `json:"cost_basis"`
	AvgCostPerShare   decimal.Decimal   `json:"avg_cost_per_share"`
	AdjustedCostBasis decimal.Decimal   `json:"adjusted_cost_basis"`
}

// Compute replays all events for one instrument into a PositionState
// under the given method. The input slice is not mutated; a copy is
// stable-sorted by execution time first, so out-of-order rows from
// messy import data still produce a best-effort position. Calling it
// twice with the same input yields identical output.
func Compute(events []models.TradeEvent, method Method) PositionState {
	sorted := sortEvents(events)
	led := &ledger{method: method}
	for _, ev := range sorted {
		led.apply(ev)
	}
	return led.snapshot(symbolOf(sorted))
}

// ComputeTrace replays the same state machine as Compute but captures
// the running totals after every event.
func ComputeTrace(events []models.TradeEvent, method Method) []TradeWithPL {
	sorted := sortEvents(events)
	led := &ledger{method: method}
	trace := make([]TradeWithPL, 0, len(sorted))
	for _, ev := range sorted {
		cashFlow := led.apply(ev)
		trace = append(trace, TradeWithPL{
			Event:             ev,
			CashFlow:          cashFlow,
			RealizedPL:        led.realizedPL,
			Shares:            led.shares,
			CostBasis:         led.costBasis,
			AvgCostPerShare:   led.avgCostPerShare(),
			AdjustedCostBasis: led.adjustedCostBasis(),
		})
	}
	return trace
}

// ledger is the mutable replay state. It lives only for the duration of
// a single Compute/ComputeTrace call.
type ledger struct {
	method            Method
	shares            decimal.Decimal
	costBasis         decimal.Decimal
	realizedPL        decimal.Decimal
	optionsPremiumNet decimal.Decimal
	dividendsReceived decimal.Decimal
	lots              []Lot
}

// apply advances the state by one event and returns the event's cash
// flow. Unknown kinds change nothing.
func (l *ledger) apply(ev models.TradeEvent) decimal.Decimal {
	switch ev.Kind {
	case models.TradeKindBuy:
		return l.applyBuy(ev)
	case models.TradeKindSell:
		return l.applySell(ev)
	case models.TradeKindOptionPremium:
		return l.applyOptionPremium(ev)
	case models.TradeKindDividend:
		l.dividendsReceived = l.dividendsReceived.Add(ev.TotalAmount)
		return ev.TotalAmount
	}
	return decimal.Zero
}

func (l *ledger) applyBuy(ev models.TradeEvent) decimal.Decimal {
	cashFlow := ev.TotalAmount.Add(ev.Fees).Neg()
	if ev.Quantity.Sign() <= 0 {
		// Nothing to book; also guards the fee amortization below.
		return cashFlow
	}
	if l.method == FIFO {
		// Fees amortize across this lot's shares only, never the
		// whole position.
		costPerShare := ev.PricePerUnit.Add(ev.Fees.Div(ev.Quantity))
		l.lots = append(l.lots, Lot{
			Shares:       ev.Quantity,
			CostPerShare: costPerShare,
			AcquiredAt:   ev.ExecutedAt,
		})
	}
	l.costBasis = l.costBasis.Add(ev.Quantity.Mul(ev.PricePerUnit)).Add(ev.Fees)
	l.shares = l.shares.Add(ev.Quantity)
	return cashFlow
}

func (l *ledger) applySell(ev models.TradeEvent) decimal.Decimal {
	feePerShare := decimal.Zero
	if ev.Quantity.Sign() > 0 {
		feePerShare = ev.Fees.Div(ev.Quantity)
	}
	if l.method == FIFO {
		l.sellFIFO(ev, feePerShare)
	} else {
		l.sellAverage(ev, feePerShare)
	}
	return ev.TotalAmount.Sub(ev.Fees)
}

// sellFIFO consumes lots oldest-first. Selling more than the lots hold
// stops at exhaustion; the unmatched remainder books no P/L, so shares
// can never go negative.
func (l *ledger) sellFIFO(ev models.TradeEvent, feePerShare decimal.Decimal) {
	remaining := ev.Quantity
	netPrice := ev.PricePerUnit.Sub(feePerShare)
	for len(l.lots) > 0 && remaining.Sign() > 0 {
		lot := &l.lots[0]
		consumed := decimal.Min(remaining, lot.Shares)
		l.realizedPL = l.realizedPL.Add(consumed.Mul(netPrice.Sub(lot.CostPerShare)))
		l.costBasis = l.costBasis.Sub(consumed.Mul(lot.CostPerShare))
		l.shares = l.shares.Sub(consumed)
		lot.Shares = lot.Shares.Sub(consumed)
		remaining = remaining.Sub(consumed)
		if lot.Shares.Sign() <= 0 {
			l.lots = l.lots[1:]
		}
	}
	if len(l.lots) == 0 {
		// Fee amortization rounds per lot; snap the empty position so
		// no residue survives a full liquidation.
		l.shares = decimal.Zero
		l.costBasis = decimal.Zero
	}
}

// sellAverage sells against the single aggregate lot. A sell with no
// shares held is a no-op; a sell that would cross zero snaps shares and
// basis to exactly zero.
func (l *ledger) sellAverage(ev models.TradeEvent, feePerShare decimal.Decimal) {
	if l.shares.Sign() <= 0 {
		return
	}
	avgCost := l.costBasis.Div(l.shares)
	proceeds := ev.Quantity.Mul(ev.PricePerUnit.Sub(feePerShare))
	l.realizedPL = l.realizedPL.Add(proceeds.Sub(ev.Quantity.Mul(avgCost)))
	l.costBasis = l.costBasis.Sub(ev.Quantity.Mul(avgCost))
	l.shares = l.shares.Sub(ev.Quantity)
	if l.shares.Sign() <= 0 {
		l.shares = decimal.Zero
		l.costBasis = decimal.Zero
	}
}

func (l *ledger) applyOptionPremium(ev models.TradeEvent) decimal.Decimal {
	od := ev.OptionDetails
	if od == nil {
		// Legacy rows carry the signed premium directly in TotalAmount.
		l.optionsPremiumNet = l.optionsPremiumNet.Add(ev.TotalAmount)
		return ev.TotalAmount
	}
	premium := od.Contracts.Mul(od.PremiumPerContract).Mul(contractMultiplier)
	if od.PremiumReceived() {
		l.optionsPremiumNet = l.optionsPremiumNet.Add(premium)
		return premium
	}
	l.optionsPremiumNet = l.optionsPremiumNet.Sub(premium)
	return premium.Neg()
}

func (l *ledger) avgCostPerShare() decimal.Decimal {
	if l.shares.Sign() <= 0 {
		return decimal.Zero
	}
	return l.costBasis.Div(l.shares)
}

// adjustedCostBasis nets premiums, dividends, and realized P/L out of
// the basis. The same three-term formula applies to both methods and to
// both the summary and the per-trade paths.
func (l *ledger) adjustedCostBasis() decimal.Decimal {
	return l.costBasis.Sub(l.optionsPremiumNet).Sub(l.dividendsReceived).Sub(l.realizedPL)
}

func (l *ledger) snapshot(symbol string) PositionState {
	state := PositionState{
		Symbol:            symbol,
		Method:            l.method,
		Shares:            l.shares,
		CostBasis:         l.costBasis,
		AvgCostPerShare:   l.avgCostPerShare(),
		RealizedPL:        l.realizedPL,
		OptionsPremiumNet: l.optionsPremiumNet,
		DividendsReceived: l.dividendsReceived,
		AdjustedCostBasis: l.adjustedCostBasis(),
	}
	if l.method == FIFO && len(l.lots) > 0 {
		state.Lots = make([]Lot, len(l.lots))
		copy(state.Lots, l.lots)
	}
	return state
}

func sortEvents(events []models.TradeEvent) []models.TradeEvent {
	sorted := make([]models.TradeEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ExecutedAt.Before(sorted[j].ExecutedAt)
	})
	return sorted
}

func symbolOf(events []models.TradeEvent) string {
	for _, ev := range events {
		if ev.Symbol != "" {
			return ev.Symbol
		}
	}
	return ""
}
