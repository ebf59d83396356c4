package portfolio

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quantfolio/portfolio-service/internal/costbasis"
	"github.com/quantfolio/portfolio-service/internal/models"
)

// Snapshot is the portfolio's state at the end of one calendar day.
type Snapshot struct {
	Date              time.Time       `json:"date"`
	TotalValue        decimal.Decimal `json:"total_value"`
	TotalCostBasis    decimal.Decimal `json:"total_cost_basis"`
	UnrealizedPL      decimal.Decimal `json:"unrealized_pl"`
	RealizedPL        decimal.Decimal `json:"realized_pl"`
	OptionsPremiumNet decimal.Decimal `json:"options_premium_net"`
	DividendsReceived decimal.Decimal `json:"dividends_received"`
	TotalReturn       decimal.Decimal `json:"total_return"`
}

// SnapshotAt replays only the events executed on or before the given
// day (UTC) and prices each symbol with the last close dated at or
// before that day. Symbols with no usable close contribute zero market
// value; their realized P/L, premiums, and dividends still count.
func SnapshotAt(events []models.TradeEvent, resolver MethodResolver, histories map[string][]models.PricePoint, asOf time.Time) Snapshot {
	day := startOfDay(asOf)
	cutoff := day.AddDate(0, 0, 1)
	snap := Snapshot{Date: day}

	groups := GroupBySymbol(events)
	symbols := make([]string, 0, len(groups))
	for symbol := range groups {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	for _, symbol := range symbols {
		upTo := eventsBefore(groups[symbol], cutoff)
		if len(upTo) == 0 {
			continue
		}
		pos := costbasis.Compute(upTo, resolver.Resolve(symbol))

		if price, ok := CloseAsOf(histories[symbol], day); ok && pos.Shares.Sign() > 0 && price.Sign() > 0 {
			marketValue := pos.Shares.Mul(price)
			snap.TotalValue = snap.TotalValue.Add(marketValue)
			snap.UnrealizedPL = snap.UnrealizedPL.Add(marketValue.Sub(pos.CostBasis))
		}
		snap.TotalCostBasis = snap.TotalCostBasis.Add(pos.CostBasis)
		snap.RealizedPL = snap.RealizedPL.Add(pos.RealizedPL)
		snap.OptionsPremiumNet = snap.OptionsPremiumNet.Add(pos.OptionsPremiumNet)
		snap.DividendsReceived = snap.DividendsReceived.Add(pos.DividendsReceived)
	}

	snap.TotalReturn = snap.RealizedPL.
		Add(snap.UnrealizedPL).
		Add(snap.OptionsPremiumNet).
		Add(snap.DividendsReceived)
	return snap
}

// BuildHistory produces one snapshot per calendar day, inclusive of
// both endpoints. A to before from yields nil.
func BuildHistory(events []models.TradeEvent, resolver MethodResolver, histories map[string][]models.PricePoint, from, to time.Time) []Snapshot {
	first := startOfDay(from)
	last := startOfDay(to)
	if last.Before(first) {
		return nil
	}
	var series []Snapshot
	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		series = append(series, SnapshotAt(events, resolver, histories, day))
	}
	return series
}

// CloseAsOf walks an ascending daily series backward and returns the
// last close dated at or before target.
func CloseAsOf(points []models.PricePoint, target time.Time) (decimal.Decimal, bool) {
	for i := len(points) - 1; i >= 0; i-- {
		if !points[i].Date.After(target) {
			return points[i].Close, true
		}
	}
	return decimal.Decimal{}, false
}

func eventsBefore(events []models.TradeEvent, cutoff time.Time) []models.TradeEvent {
	out := make([]models.TradeEvent, 0, len(events))
	for _, ev := range events {
		if ev.ExecutedAt.Before(cutoff) {
			out = append(out, ev)
		}
	}
	return out
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
