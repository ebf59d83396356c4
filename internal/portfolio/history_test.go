package portfolio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantfolio/portfolio-service/internal/costbasis"
	"github.com/quantfolio/portfolio-service/internal/models"
)

func day(n int) time.Time {
	return time.Date(2026, time.January, n, 0, 0, 0, 0, time.UTC)
}

func closeOn(n int, price string) models.PricePoint {
	return models.PricePoint{Date: day(n), Close: d(price)}
}

func TestCloseAsOf(t *testing.T) {
	series := []models.PricePoint{
		closeOn(2, "100"),
		closeOn(5, "110"),
		closeOn(9, "120"),
	}

	price, ok := CloseAsOf(series, day(5))
	require.True(t, ok)
	assertDecimal(t, "110", price)

	price, ok = CloseAsOf(series, day(7))
	require.True(t, ok)
	assertDecimal(t, "110", price, "gap days fall back to last close")

	price, ok = CloseAsOf(series, day(30))
	require.True(t, ok)
	assertDecimal(t, "120", price)

	_, ok = CloseAsOf(series, day(1))
	assert.False(t, ok)

	_, ok = CloseAsOf(nil, day(5))
	assert.False(t, ok)
}

func TestSnapshotAtExcludesLaterEvents(t *testing.T) {
	events := []models.TradeEvent{
		makeBuy("AAPL", "10", "100", 0),
		makeSell("AAPL", "5", "120", 8*24*time.Hour),
	}
	histories := map[string][]models.PricePoint{
		"AAPL": {closeOn(2, "100"), closeOn(5, "105")},
	}
	resolver := MethodResolver{Default: costbasis.FIFO}

	snap := SnapshotAt(events, resolver, histories, day(5))
	assert.Equal(t, day(5), snap.Date)
	assertDecimal(t, "1050", snap.TotalValue)
	assertDecimal(t, "1000", snap.TotalCostBasis)
	assertDecimal(t, "50", snap.UnrealizedPL)
	assertDecimal(t, "0", snap.RealizedPL)
	assertDecimal(t, "50", snap.TotalReturn)
}

func TestSnapshotSameDayIncluded(t *testing.T) {
	// Executed 14:30 on the 2nd; the snapshot for the 2nd must see it.
	events := []models.TradeEvent{makeBuy("AAPL", "10", "100", 0)}
	resolver := MethodResolver{Default: costbasis.FIFO}

	snap := SnapshotAt(events, resolver, nil, day(2))
	assertDecimal(t, "1000", snap.TotalCostBasis)

	before := SnapshotAt(events, resolver, nil, day(1))
	assertDecimal(t, "0", before.TotalCostBasis)
}

func TestSnapshotNoPriceDegrades(t *testing.T) {
	events := []models.TradeEvent{
		makeBuy("AAPL", "10", "100", 0),
		makeSell("AAPL", "10", "110", time.Hour),
	}
	resolver := MethodResolver{Default: costbasis.FIFO}

	snap := SnapshotAt(events, resolver, nil, day(4))
	assertDecimal(t, "0", snap.TotalValue)
	assertDecimal(t, "100", snap.RealizedPL)
	assertDecimal(t, "100", snap.TotalReturn)
}

func TestBuildHistoryRange(t *testing.T) {
	events := []models.TradeEvent{makeBuy("AAPL", "10", "100", 0)}
	resolver := MethodResolver{Default: costbasis.FIFO}

	series := BuildHistory(events, resolver, nil, day(2), day(4))
	require.Len(t, series, 3)
	assert.Equal(t, day(2), series[0].Date)
	assert.Equal(t, day(3), series[1].Date)
	assert.Equal(t, day(4), series[2].Date)

	assert.Nil(t, BuildHistory(events, resolver, nil, day(4), day(2)))
}

func TestBuildHistoryValues(t *testing.T) {
	events := []models.TradeEvent{makeBuy("AAPL", "10", "100", 0)}
	histories := map[string][]models.PricePoint{
		"AAPL": {closeOn(2, "100"), closeOn(4, "120")},
	}
	resolver := MethodResolver{Default: costbasis.FIFO}

	series := BuildHistory(events, resolver, histories, day(2), day(4))
	require.Len(t, series, 3)

	assertDecimal(t, "1000", series[0].TotalValue)
	assertDecimal(t, "0", series[0].UnrealizedPL)

	assertDecimal(t, "1000", series[1].TotalValue, "no close on the 3rd, carries the 2nd")

	assertDecimal(t, "1200", series[2].TotalValue)
	assertDecimal(t, "200", series[2].UnrealizedPL)
	assertDecimal(t, "200", series[2].TotalReturn)
}

func TestBuildHistoryDividendAccrues(t *testing.T) {
	events := []models.TradeEvent{
		makeBuy("AAPL", "10", "100", 0),
		{
			Symbol:      "AAPL",
			Kind:        models.TradeKindDividend,
			TotalAmount: d("12.50"),
			ExecutedAt:  day(3).Add(15 * time.Hour),
		},
	}
	resolver := MethodResolver{Default: costbasis.FIFO}

	series := BuildHistory(events, resolver, nil, day(2), day(4))
	require.Len(t, series, 3)
	assertDecimal(t, "0", series[0].DividendsReceived)
	assertDecimal(t, "12.50", series[1].DividendsReceived)
	assertDecimal(t, "12.50", series[2].DividendsReceived)
}
