package pricing

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"kedaipos/backend/internal/domain"
	"kedaipos/backend/internal/store"
)

// Variant is the resolved combination of a base product with one size and a
// set of toppings. IdentityKey is the merge key for cart lines: two additions
// with the same product, note, size and topping set land on the same line.
type Variant struct {
	UnitPrice   int64
	DisplayName string
	IdentityKey string
	// ToppingIDs is the normalized set that actually priced in: sorted,
	// deduplicated, with unknown ids already dropped.
	ToppingIDs []string
}

// Resolve computes the frozen unit price and display identity for a product
// customization. An unknown size id fails with ErrInvalidVariant since sizes
// are a closed enumeration. Unknown topping ids are silently dropped; the UI
// enumerates toppings, so a stray id means stale reference data, not an order
// the cashier intended.
func Resolve(product domain.Product, sizes []domain.SizeOption, toppings []domain.Topping, sizeID string, toppingIDs []string, note string) (Variant, error) {
	var size *domain.SizeOption
	for i := range sizes {
		if sizes[i].ID == sizeID {
			size = &sizes[i]
			break
		}
	}
	if size == nil {
		return Variant{}, fmt.Errorf("%w: unknown size %q", store.ErrInvalidVariant, sizeID)
	}

	known := make(map[string]domain.Topping, len(toppings))
	for _, t := range toppings {
		known[t.ID] = t
	}

	picked := NormalizeToppingIDs(toppingIDs)
	unitPrice := product.UnitPrice + size.PriceDelta
	names := make([]string, 0, len(picked))
	kept := picked[:0]
	for _, id := range picked {
		t, ok := known[id]
		if !ok {
			continue
		}
		unitPrice += t.Price
		names = append(names, t.Name)
		kept = append(kept, id)
	}
	picked = kept

	display := product.Name
	if size.Name != "" {
		display = fmt.Sprintf("%s (%s)", product.Name, size.Name)
	}
	if len(names) > 0 {
		display += " + " + strings.Join(names, " + ")
	}

	return Variant{
		UnitPrice:   unitPrice,
		DisplayName: display,
		IdentityKey: IdentityKey(product.ID, note, sizeID, picked),
		ToppingIDs:  picked,
	}, nil
}

// IdentityKey normalizes (product, note, size, toppings) into a merge key.
// Topping order never matters: the set is deduplicated and sorted first.
func IdentityKey(productID string, note string, sizeID string, toppingIDs []string) string {
	normalized := NormalizeToppingIDs(toppingIDs)
	return strings.Join([]string{productID, strings.TrimSpace(note), sizeID, strings.Join(normalized, ",")}, "|")
}

// NormalizeToppingIDs deduplicates, trims and sorts topping ids so that every
// representation of the same topping set compares equal.
func NormalizeToppingIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	normalized := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		normalized = append(normalized, id)
	}
	sort.Strings(normalized)
	return normalized
}

// ComputeTotals prices the cart against the current settings. Tax and service
// are percentages of the raw subtotal; the discount is clamped only at the
// total so it can never push the sale negative.
func ComputeTotals(cart domain.Cart, settings domain.ShopSettings) domain.PricedTotals {
	var subtotal int64
	for _, line := range cart.Lines {
		subtotal += line.UnitPrice * int64(line.Quantity)
	}

	var tax, service int64
	if cart.IncludeTax {
		tax = roundPercent(subtotal, settings.TaxRatePercent)
	}
	if cart.IncludeService {
		service = roundPercent(subtotal, settings.ServiceRatePercent)
	}

	total := subtotal + tax + service - cart.DiscountAmount
	if total < 0 {
		total = 0
	}

	return domain.PricedTotals{
		Subtotal: subtotal,
		Tax:      tax,
		Service:  service,
		Total:    total,
	}
}

// ComputeChange resolves the tendered amount per payment method. Non-cash
// methods settle exactly: effective cash equals the total and no change is
// due, regardless of anything typed into the cash field.
func ComputeChange(payMethod string, cashTendered int64, total int64) (effectiveCash int64, change int64) {
	if payMethod == domain.PayCash {
		effectiveCash = cashTendered
	} else {
		effectiveCash = total
	}
	change = effectiveCash - total
	if change < 0 {
		change = 0
	}
	return effectiveCash, change
}

func roundPercent(base int64, ratePercent float64) int64 {
	return int64(math.Round(float64(base) * ratePercent / 100))
}
