package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade event kind constants
const (
	TradeKindBuy           = "BUY"
	TradeKindSell          = "SELL"
	TradeKindOptionPremium = "OPTION_PREMIUM"
	TradeKindDividend      = "DIVIDEND"
)

// Option action constants
const (
	OptionActionBuyToOpen   = "BUY_TO_OPEN"
	OptionActionBuyToClose  = "BUY_TO_CLOSE"
	OptionActionSellToOpen  = "SELL_TO_OPEN"
	OptionActionSellToClose = "SELL_TO_CLOSE"
)

// TradeEvent is a single immutable economic event for one instrument:
// a share purchase or sale, an option premium paid or received, or a
// dividend. Quantity is always a non-negative magnitude; direction is
// implied by Kind. ExecutedAt is the only ordering key the accounting
// engine looks at.
type TradeEvent struct {
	ID            int             `json:"id"`
	OrderRef      string          `json:"order_ref,omitempty"`
	Source        string          `json:"source,omitempty"`
	Symbol        string          `json:"symbol"`
	Kind          string          `json:"kind"`
	Quantity      decimal.Decimal `json:"quantity"`
	PricePerUnit  decimal.Decimal `json:"price_per_unit"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Fees          decimal.Decimal `json:"fees"`
	OptionDetails *OptionDetails  `json:"option_details,omitempty"`
	ExecutedAt    time.Time       `json:"executed_at"`
	CreatedAt     time.Time       `json:"created_at"`
}

// OptionDetails carries the premium sub-fields of an OPTION_PREMIUM
// event. One contract covers 100 underlying shares, so the cash flow
// is contracts x premium_per_contract x 100.
type OptionDetails struct {
	Action             string          `json:"action"`
	Contracts          decimal.Decimal `json:"contracts"`
	PremiumPerContract decimal.Decimal `json:"premium_per_contract"`
}

// ValidTradeKind reports whether s is one of the supported event kinds.
func ValidTradeKind(s string) bool {
	switch s {
	case TradeKindBuy, TradeKindSell, TradeKindOptionPremium, TradeKindDividend:
		return true
	}
	return false
}

// ValidOptionAction reports whether s is one of the supported option actions.
func ValidOptionAction(s string) bool {
	switch s {
	case OptionActionBuyToOpen, OptionActionBuyToClose, OptionActionSellToOpen, OptionActionSellToClose:
		return true
	}
	return false
}

// PremiumReceived reports whether the action books premium as received
// (short side) rather than paid.
func (o *OptionDetails) PremiumReceived() bool {
	return o.Action == OptionActionSellToOpen || o.Action == OptionActionSellToClose
}
