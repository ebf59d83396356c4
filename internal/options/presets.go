package options

// Preset name constants.
const (
	PresetBullCallSpread = "bull_call_spread"
	PresetBearPutSpread  = "bear_put_spread"
	PresetLongStraddle   = "long_straddle"
	PresetLongStrangle   = "long_strangle"
	PresetIronCondor     = "iron_condor"
)

// PresetLeg is one template leg of a named strategy. Strikes are
// qualitative offsets resolved against live strikes at selection time.
type PresetLeg struct {
	Side         string  `json:"side"`
	OptionType   string  `json:"option_type"`
	StrikeOffset string  `json:"strike_offset"`
	Quantity     float64 `json:"quantity"`
}

// Preset is a named multi-leg strategy template.
type Preset struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Legs        []PresetLeg `json:"legs"`
}

var presetCatalog = []Preset{
	{
		Name:        PresetBullCallSpread,
		Description: "Buy a call at the money, sell a call one strike higher",
		Legs: []PresetLeg{
			{Side: SideBuy, OptionType: Call, StrikeOffset: OffsetATM, Quantity: 1},
			{Side: SideSell, OptionType: Call, StrikeOffset: OffsetOTM1, Quantity: 1},
		},
	},
	{
		Name:        PresetBearPutSpread,
		Description: "Buy a put at the money, sell a put one strike lower",
		Legs: []PresetLeg{
			{Side: SideBuy, OptionType: Put, StrikeOffset: OffsetATM, Quantity: 1},
			{Side: SideSell, OptionType: Put, StrikeOffset: OffsetOTM1, Quantity: 1},
		},
	},
	{
		Name:        PresetLongStraddle,
		Description: "Buy a call and a put at the same at-the-money strike",
		Legs: []PresetLeg{
			{Side: SideBuy, OptionType: Call, StrikeOffset: OffsetATM, Quantity: 1},
			{Side: SideBuy, OptionType: Put, StrikeOffset: OffsetATM, Quantity: 1},
		},
	},
	{
		Name:        PresetLongStrangle,
		Description: "Buy an out-of-the-money call and an out-of-the-money put",
		Legs: []PresetLeg{
			{Side: SideBuy, OptionType: Call, StrikeOffset: OffsetOTM1, Quantity: 1},
			{Side: SideBuy, OptionType: Put, StrikeOffset: OffsetOTM1, Quantity: 1},
		},
	},
	{
		Name:        PresetIronCondor,
		Description: "Sell an out-of-the-money put spread and call spread",
		Legs: []PresetLeg{
			{Side: SideBuy, OptionType: Put, StrikeOffset: OffsetOTM2, Quantity: 1},
			{Side: SideSell, OptionType: Put, StrikeOffset: OffsetOTM1, Quantity: 1},
			{Side: SideSell, OptionType: Call, StrikeOffset: OffsetOTM1, Quantity: 1},
			{Side: SideBuy, OptionType: Call, StrikeOffset: OffsetOTM2, Quantity: 1},
		},
	},
}

// Presets returns the built-in strategy catalog in a stable order.
func Presets() []Preset {
	out := make([]Preset, len(presetCatalog))
	copy(out, presetCatalog)
	return out
}

// LookupPreset finds a catalog entry by name.
func LookupPreset(name string) (Preset, bool) {
	for _, p := range presetCatalog {
		if p.Name == name {
			return p, true
		}
	}
	return Preset{}, false
}

// ResolvePreset materializes a preset's legs against the available
// strikes. Premium and implied volatility stay zero; callers fill them
// from the option chain before analysis.
func ResolvePreset(p Preset, stockPrice float64, strikes []float64) []StrategyLeg {
	legs := make([]StrategyLeg, 0, len(p.Legs))
	for _, tpl := range p.Legs {
		legs = append(legs, StrategyLeg{
			Side:       tpl.Side,
			OptionType: tpl.OptionType,
			Strike:     ResolveStrikeOffset(tpl.StrikeOffset, tpl.OptionType, stockPrice, strikes),
			Quantity:   tpl.Quantity,
		})
	}
	return legs
}
