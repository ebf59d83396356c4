package marketdata

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"
	"golang.org/x/time/rate"

	"github.com/quantfolio/portfolio-service/internal/metrics"
	"github.com/quantfolio/portfolio-service/internal/models"
)

// FetchQuotes pulls quotes for many symbols with at most concurrency
// requests in flight, pacing starts through a rate limiter so upstream
// per-second caps hold. Failed symbols are logged and left out of the
// result map.
func FetchQuotes(ctx context.Context, provider Provider, symbols []string, concurrency int, delay time.Duration) map[string]models.Quote {
	if concurrency < 1 {
		concurrency = 1
	}
	limiter := newLimiter(delay, concurrency)

	var mu sync.Mutex
	quotes := make(map[string]models.Quote, len(symbols))

	p := pool.New().WithMaxGoroutines(concurrency)
	for _, symbol := range symbols {
		p.Go(func() {
			if err := limiter.Wait(ctx); err != nil {
				return
			}
			quote, err := provider.GetQuote(ctx, symbol)
			if err != nil {
				log.Printf("Failed to fetch quote for %s: %v", symbol, err)
				metrics.PriceFetchFailures.Inc()
				return
			}
			mu.Lock()
			quotes[symbol] = quote
			mu.Unlock()
		})
	}
	p.Wait()
	return quotes
}

// FetchHistories pulls daily close series for many symbols with the
// same bounded, rate-limited fan-out as FetchQuotes.
func FetchHistories(ctx context.Context, provider Provider, symbols []string, from, to time.Time, concurrency int, delay time.Duration) map[string][]models.PricePoint {
	if concurrency < 1 {
		concurrency = 1
	}
	limiter := newLimiter(delay, concurrency)

	var mu sync.Mutex
	histories := make(map[string][]models.PricePoint, len(symbols))

	p := pool.New().WithMaxGoroutines(concurrency)
	for _, symbol := range symbols {
		p.Go(func() {
			if err := limiter.Wait(ctx); err != nil {
				return
			}
			points, err := provider.GetDailyHistory(ctx, symbol, from, to)
			if err != nil {
				log.Printf("Failed to fetch history for %s: %v", symbol, err)
				metrics.PriceFetchFailures.Inc()
				return
			}
			mu.Lock()
			histories[symbol] = points
			mu.Unlock()
		})
	}
	p.Wait()
	return histories
}

func newLimiter(delay time.Duration, burst int) *rate.Limiter {
	if delay <= 0 {
		return rate.NewLimiter(rate.Inf, burst)
	}
	return rate.NewLimiter(rate.Every(delay), burst)
}
