package options

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresetCatalog(t *testing.T) {
	catalog := Presets()
	require.Len(t, catalog, 5)

	names := make([]string, 0, len(catalog))
	for _, p := range catalog {
		names = append(names, p.Name)
		assert.NotEmpty(t, p.Description)
		assert.NotEmpty(t, p.Legs)
	}
	assert.Equal(t, []string{
		PresetBullCallSpread,
		PresetBearPutSpread,
		PresetLongStraddle,
		PresetLongStrangle,
		PresetIronCondor,
	}, names)
}

func TestLookupPreset(t *testing.T) {
	p, ok := LookupPreset(PresetIronCondor)
	require.True(t, ok)
	assert.Len(t, p.Legs, 4)

	_, ok = LookupPreset("calendar_spread")
	assert.False(t, ok)
}

func TestResolvePresetIronCondor(t *testing.T) {
	strikes := []float64{90, 95, 100, 105, 110}
	p, ok := LookupPreset(PresetIronCondor)
	require.True(t, ok)

	legs := ResolvePreset(p, 100, strikes)
	require.Len(t, legs, 4)

	assert.Equal(t, SideBuy, legs[0].Side)
	assert.Equal(t, Put, legs[0].OptionType)
	assert.Equal(t, 90.0, legs[0].Strike)

	assert.Equal(t, SideSell, legs[1].Side)
	assert.Equal(t, 95.0, legs[1].Strike)

	assert.Equal(t, SideSell, legs[2].Side)
	assert.Equal(t, Call, legs[2].OptionType)
	assert.Equal(t, 105.0, legs[2].Strike)

	assert.Equal(t, SideBuy, legs[3].Side)
	assert.Equal(t, 110.0, legs[3].Strike)
}

func TestResolvePresetStraddle(t *testing.T) {
	strikes := []float64{90, 95, 100, 105, 110}
	p, ok := LookupPreset(PresetLongStraddle)
	require.True(t, ok)

	legs := ResolvePreset(p, 101, strikes)
	require.Len(t, legs, 2)
	assert.Equal(t, 100.0, legs[0].Strike)
	assert.Equal(t, 100.0, legs[1].Strike)
	// Premium and IV are filled from the chain by the caller.
	assert.Zero(t, legs[0].Premium)
	assert.Zero(t, legs[0].ImpliedVolatility)
}
