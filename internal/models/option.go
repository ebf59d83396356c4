package models

import "time"

// Option type constants
const (
	OptionTypeCall = "call"
	OptionTypePut  = "put"
)

// OptionContract is one listed contract from an option chain. Pricing
// fields are float64 because they feed the options math directly.
type OptionContract struct {
	Symbol            string    `json:"symbol"`
	OptionType        string    `json:"option_type"`
	Strike            float64   `json:"strike"`
	Expiration        time.Time `json:"expiration"`
	Bid               float64   `json:"bid"`
	Ask               float64   `json:"ask"`
	LastPrice         float64   `json:"last_price"`
	ImpliedVolatility float64   `json:"implied_volatility"`
	OpenInterest      int64     `json:"open_interest"`
	DaysToExpiry      int       `json:"days_to_expiry"`
	IsLEAP            bool      `json:"is_leap"`
}

// OptionChain is the per-symbol chain snapshot handed to the strategy
// endpoints. Strikes are sorted ascending.
type OptionChain struct {
	Symbol    string           `json:"symbol"`
	UpdatedAt time.Time        `json:"updated_at"`
	Strikes   []float64        `json:"strikes"`
	Calls     []OptionContract `json:"calls"`
	Puts      []OptionContract `json:"puts"`
}

// MidPrice returns the bid/ask midpoint, falling back to the last
// traded price when either side of the book is missing.
func (c *OptionContract) MidPrice() float64 {
	if c.Bid > 0 && c.Ask > 0 {
		return (c.Bid + c.Ask) / 2
	}
	return c.LastPrice
}

// ContractAt finds the contract of the given type at an exact strike.
func (ch *OptionChain) ContractAt(optionType string, strike float64) (OptionContract, bool) {
	contracts := ch.Calls
	if optionType == OptionTypePut {
		contracts = ch.Puts
	}
	for _, c := range contracts {
		if c.Strike == strike {
			return c, true
		}
	}
	return OptionContract{}, false
}
