// Package marketdata fetches quotes, daily close series, and option
// chains from an upstream HTTP source, with a Redis read-through cache
// and a rate-limited concurrent fan-out for multi-symbol pulls.
package marketdata

import (
	"context"
	"time"

	"github.com/quantfolio/portfolio-service/internal/models"
)

// Provider is the read side of a market data source. Implementations
// must be safe for concurrent use.
type Provider interface {
	GetQuote(ctx context.Context, symbol string) (models.Quote, error)
	GetDailyHistory(ctx context.Context, symbol string, from, to time.Time) ([]models.PricePoint, error)
	GetOptionChain(ctx context.Context, symbol string) (models.OptionChain, error)
}
