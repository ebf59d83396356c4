// Package portfolio fans the cost-basis ledger out across every traded
// instrument and merges in market data: live quotes for the
// instantaneous summary, historical closes for the day-by-day series.
// Like the ledger it is pure computation; missing prices degrade to
// zero contributions instead of failing the whole view.
package portfolio

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quantfolio/portfolio-service/internal/costbasis"
	"github.com/quantfolio/portfolio-service/internal/models"
)

var hundred = decimal.NewFromInt(100)

// MethodResolver picks the accounting method for a symbol: an explicit
// per-symbol override wins, otherwise the default applies. It is passed
// into every call so the aggregation carries no hidden state.
type MethodResolver struct {
	Default   costbasis.Method
	Overrides map[string]costbasis.Method
}

// Resolve returns the method to use for one symbol.
func (r MethodResolver) Resolve(symbol string) costbasis.Method {
	if m, ok := r.Overrides[symbol]; ok {
		return m
	}
	return r.Default
}

// PositionSummary is one symbol's row of the portfolio summary.
type PositionSummary struct {
	Symbol              string           `json:"symbol"`
	Method              costbasis.Method `json:"method"`
	Shares              decimal.Decimal  `json:"shares"`
	CostBasis           decimal.Decimal  `json:"cost_basis"`
	AvgCostPerShare     decimal.Decimal  `json:"avg_cost_per_share"`
	AdjustedCostBasis   decimal.Decimal  `json:"adjusted_cost_basis"`
	RealizedPL          decimal.Decimal  `json:"realized_pl"`
	OptionsPremiumNet   decimal.Decimal  `json:"options_premium_net"`
	DividendsReceived   decimal.Decimal  `json:"dividends_received"`
	CurrentPrice        decimal.Decimal  `json:"current_price"`
	MarketValue         decimal.Decimal  `json:"market_value"`
	UnrealizedPL        decimal.Decimal  `json:"unrealized_pl"`
	UnrealizedPLPercent decimal.Decimal  `json:"unrealized_pl_percent"`
	TotalReturn         decimal.Decimal  `json:"total_return"`
	TotalReturnPercent  decimal.Decimal  `json:"total_return_percent"`
	TodayChange         decimal.Decimal  `json:"today_change"`
}

// Summary is the whole-portfolio view at a moment in time.
type Summary struct {
	Positions          []PositionSummary `json:"positions"`
	TotalValue         decimal.Decimal   `json:"total_value"`
	TotalCostBasis     decimal.Decimal   `json:"total_cost_basis"`
	UnrealizedPL       decimal.Decimal   `json:"unrealized_pl"`
	RealizedPL         decimal.Decimal   `json:"realized_pl"`
	OptionsPremiumNet  decimal.Decimal   `json:"options_premium_net"`
	DividendsReceived  decimal.Decimal   `json:"dividends_received"`
	TotalReturn        decimal.Decimal   `json:"total_return"`
	TotalReturnPercent decimal.Decimal   `json:"total_return_percent"`
	TodayReturn        decimal.Decimal   `json:"today_return"`
	TodayReturnPercent decimal.Decimal   `json:"today_return_percent"`
	GeneratedAt        time.Time         `json:"generated_at"`
}

// GroupBySymbol splits events per symbol, preserving their order
// within each group.
func GroupBySymbol(events []models.TradeEvent) map[string][]models.TradeEvent {
	groups := make(map[string][]models.TradeEvent)
	for _, ev := range events {
		groups[ev.Symbol] = append(groups[ev.Symbol], ev)
	}
	return groups
}

// Summarize runs the ledger per symbol and blends in live quotes.
// Symbols without a usable quote still contribute realized P/L,
// premiums, and dividends; only their market-value terms stay zero.
// Closed positions remain in the output with zero market value.
func Summarize(events []models.TradeEvent, resolver MethodResolver, quotes map[string]models.Quote) Summary {
	groups := GroupBySymbol(events)
	symbols := make([]string, 0, len(groups))
	for symbol := range groups {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	summary := Summary{GeneratedAt: time.Now().UTC()}
	for _, symbol := range symbols {
		pos := costbasis.Compute(groups[symbol], resolver.Resolve(symbol))
		row := buildRow(pos, quotes[symbol])
		summary.Positions = append(summary.Positions, row)

		summary.TotalValue = summary.TotalValue.Add(row.MarketValue)
		summary.TotalCostBasis = summary.TotalCostBasis.Add(row.CostBasis)
		summary.UnrealizedPL = summary.UnrealizedPL.Add(row.UnrealizedPL)
		summary.RealizedPL = summary.RealizedPL.Add(row.RealizedPL)
		summary.OptionsPremiumNet = summary.OptionsPremiumNet.Add(row.OptionsPremiumNet)
		summary.DividendsReceived = summary.DividendsReceived.Add(row.DividendsReceived)
		summary.TotalReturn = summary.TotalReturn.Add(row.TotalReturn)
		summary.TodayReturn = summary.TodayReturn.Add(row.TodayChange)
	}

	if summary.TotalCostBasis.Sign() > 0 {
		summary.TotalReturnPercent = summary.TotalReturn.Div(summary.TotalCostBasis).Mul(hundred)
	}
	// Percent change versus yesterday's implied value.
	if denom := summary.TotalValue.Sub(summary.TodayReturn); !denom.IsZero() {
		summary.TodayReturnPercent = summary.TodayReturn.Div(denom).Mul(hundred)
	}
	return summary
}

func buildRow(pos costbasis.PositionState, quote models.Quote) PositionSummary {
	row := PositionSummary{
		Symbol:            pos.Symbol,
		Method:            pos.Method,
		Shares:            pos.Shares,
		CostBasis:         pos.CostBasis,
		AvgCostPerShare:   pos.AvgCostPerShare,
		AdjustedCostBasis: pos.AdjustedCostBasis,
		RealizedPL:        pos.RealizedPL,
		OptionsPremiumNet: pos.OptionsPremiumNet,
		DividendsReceived: pos.DividendsReceived,
	}
	if quote.Price.Sign() > 0 {
		row.CurrentPrice = quote.Price
	}
	if pos.Shares.Sign() > 0 && quote.Price.Sign() > 0 {
		row.MarketValue = pos.Shares.Mul(quote.Price)
		row.UnrealizedPL = row.MarketValue.Sub(pos.CostBasis)
		row.TodayChange = quote.DailyChange.Mul(pos.Shares)
	}
	row.TotalReturn = pos.RealizedPL.
		Add(row.UnrealizedPL).
		Add(pos.OptionsPremiumNet).
		Add(pos.DividendsReceived)
	if pos.CostBasis.Sign() > 0 {
		row.UnrealizedPLPercent = row.UnrealizedPL.Div(pos.CostBasis).Mul(hundred)
		row.TotalReturnPercent = row.TotalReturn.Div(pos.CostBasis).Mul(hundred)
	}
	return row
}
