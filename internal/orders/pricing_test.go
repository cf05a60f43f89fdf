package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveLines_CatalogDefaults(t *testing.T) {
	catalog := []Asset{
		{Name: "pen", PriceCents: 1000, Stock: 5, MinQuantity: 2, MaxQuantity: 10},
	}
	lines := ResolveLines([]CartLine{{AssetName: "pen", Quantity: 3}}, catalog, nil)

	require.Len(t, lines, 1)
	assert.Equal(t, "pen", lines[0].AssetName)
	assert.Equal(t, 3, lines[0].Quantity)
	assert.Equal(t, 5, lines[0].Stock)
	assert.Equal(t, 2, lines[0].MinQuantity)
	assert.Equal(t, 10, lines[0].MaxQuantity)
	assert.Equal(t, int64(1000), lines[0].PriceCents)
}

func TestResolveLines_ProOverrideWins(t *testing.T) {
	catalog := []Asset{
		{Name: "pen", PriceCents: 1000, Stock: 5, MinQuantity: 2, MaxQuantity: 3},
	}
	pro := &ProProfile{
		BuyerID:          "b1",
		CreditLimitCents: 5000,
		Assets: map[string]ProTerms{
			"pen": {MinQuantity: 5, MaxQuantity: 50, PriceCents: 800},
		},
	}
	lines := ResolveLines([]CartLine{{AssetName: "pen", Quantity: 10}}, catalog, pro)

	require.Len(t, lines, 1)
	// stock always comes from the catalog
	assert.Equal(t, 5, lines[0].Stock)
	assert.Equal(t, 5, lines[0].MinQuantity)
	assert.Equal(t, 50, lines[0].MaxQuantity)
	assert.Equal(t, int64(800), lines[0].PriceCents)
}

func TestResolveLines_ProOverrideOtherAssetIgnored(t *testing.T) {
	catalog := []Asset{
		{Name: "pen", PriceCents: 1000, Stock: 5, MinQuantity: 1, MaxQuantity: 3},
	}
	pro := &ProProfile{
		Assets: map[string]ProTerms{
			"book": {MinQuantity: 5, MaxQuantity: 50, PriceCents: 800},
		},
	}
	lines := ResolveLines([]CartLine{{AssetName: "pen", Quantity: 1}}, catalog, pro)

	require.Len(t, lines, 1)
	assert.Equal(t, int64(1000), lines[0].PriceCents)
	assert.Equal(t, 3, lines[0].MaxQuantity)
}

func TestResolveLines_UnknownAssetFailsClosed(t *testing.T) {
	lines := ResolveLines([]CartLine{{AssetName: "ghost", Quantity: 1}}, nil, nil)

	require.Len(t, lines, 1)
	assert.Equal(t, 0, lines[0].Stock, "unknown asset must resolve with zero stock")
	assert.Equal(t, 1, lines[0].MinQuantity, "min quantity defaults to 1")
	assert.Equal(t, int64(0), lines[0].PriceCents)
}

func TestResolveLines_MinQuantityDefaultsToOne(t *testing.T) {
	catalog := []Asset{{Name: "pen", PriceCents: 1000, Stock: 5}}
	lines := ResolveLines([]CartLine{{AssetName: "pen", Quantity: 1}}, catalog, nil)
	require.Len(t, lines, 1)
	assert.Equal(t, 1, lines[0].MinQuantity)
}

func TestAmount(t *testing.T) {
	lines := []EffectiveLine{
		{AssetName: "pen", Quantity: 2, PriceCents: 1000},
		{AssetName: "book", Quantity: 3, PriceCents: 250},
	}
	assert.Equal(t, int64(2750), Amount(lines))
	assert.Equal(t, int64(0), Amount(nil))
}
