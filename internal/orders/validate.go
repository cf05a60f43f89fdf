package orders

import "fmt"

// Validate applies the order policy to each resolved line and returns every
// violation found, in evaluation order. An empty result means the order is
// acceptable; any violation rejects the whole order (no partial
// acceptance). quota maps asset name to the quantity the buyer already
// ordered today (PENDING/SUCCESS orders only).
func Validate(lines []EffectiveLine, role Role, quota map[string]int) []string {
	var violations []string
	for _, l := range lines {
		if l.Stock == 0 {
			violations = append(violations, fmt.Sprintf("%s is out of stock", l.AssetName))
			continue
		}
		if l.Quantity > l.Stock {
			violations = append(violations, fmt.Sprintf("%s has only %d in stock", l.AssetName, l.Stock))
		}
		if l.Quantity < 1 {
			violations = append(violations, fmt.Sprintf("%s must be at least 1", l.AssetName))
		}
		if l.Quantity < l.MinQuantity {
			violations = append(violations, fmt.Sprintf("%s must be at least %d", l.AssetName, l.MinQuantity))
		}
		if l.MaxQuantity > 0 {
			if prior := quota[l.AssetName]; prior+l.Quantity > l.MaxQuantity {
				violations = append(violations, fmt.Sprintf(
					"you have already ordered %d of %s and can order at most %d per day",
					prior, l.AssetName, l.MaxQuantity))
			}
			// Plain per-order ceiling for standard buyers, independent of
			// daily history.
			if role != RolePro && l.Quantity > l.MaxQuantity {
				violations = append(violations, fmt.Sprintf("%s must be at most %d", l.AssetName, l.MaxQuantity))
			}
		}
	}
	return violations
}
