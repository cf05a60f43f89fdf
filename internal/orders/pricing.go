package orders

// ResolveLines merges a buyer's PRO terms over catalog defaults for each
// cart line. Resolution priority per field: PRO override -> catalog ->
// default (min quantity 1). Stock always comes from the catalog; an asset
// missing from the catalog resolves with stock 0 so validation rejects the
// line as out of stock instead of erroring (fail closed).
func ResolveLines(cart []CartLine, catalog []Asset, pro *ProProfile) []EffectiveLine {
	byName := make(map[string]Asset, len(catalog))
	for _, a := range catalog {
		byName[a.Name] = a
	}

	out := make([]EffectiveLine, 0, len(cart))
	for _, c := range cart {
		line := EffectiveLine{
			AssetName:   c.AssetName,
			Quantity:    c.Quantity,
			MinQuantity: 1,
		}
		if a, ok := byName[c.AssetName]; ok {
			line.Stock = a.Stock
			line.MaxQuantity = a.MaxQuantity
			line.PriceCents = a.PriceCents
			if a.MinQuantity > 0 {
				line.MinQuantity = a.MinQuantity
			}
		}
		if pro != nil {
			if t, ok := pro.Assets[c.AssetName]; ok {
				if t.MinQuantity > 0 {
					line.MinQuantity = t.MinQuantity
				}
				if t.MaxQuantity > 0 {
					line.MaxQuantity = t.MaxQuantity
				}
				if t.PriceCents > 0 {
					line.PriceCents = t.PriceCents
				}
			}
		}
		out = append(out, line)
	}
	return out
}

// Amount totals the resolved lines. This is the authoritative charge; the
// client-supplied total is never charged.
func Amount(lines []EffectiveLine) int64 {
	var total int64
	for _, l := range lines {
		total += int64(l.Quantity) * l.PriceCents
	}
	return total
}
