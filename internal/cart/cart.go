package cart

import (
	"fmt"

	"kedaipos/backend/internal/domain"
	"kedaipos/backend/internal/pricing"
	"kedaipos/backend/internal/store"
)

// Ledger owns the one active cart. All operations are synchronous and mutate
// the cart in place; concurrency control is the caller's concern (the checkout
// session serializes access).
type Ledger struct {
	Cart domain.Cart
}

// AddLine resolves the variant and merges into an existing line when the
// product, note, size and topping set all match; otherwise it appends a new
// line. An empty note falls back to the cart's default note. Quantity defaults
// to 1 and negative quantities are rejected.
func (l *Ledger) AddLine(product domain.Product, sizes []domain.SizeOption, toppings []domain.Topping, sizeID string, toppingIDs []string, note string, qty int) (domain.CartLine, error) {
	if !product.Active {
		return domain.CartLine{}, fmt.Errorf("%w: product %s is inactive", store.ErrValidation, product.ID)
	}
	if qty == 0 {
		qty = 1
	}
	if qty < 1 {
		return domain.CartLine{}, fmt.Errorf("%w: quantity must be at least 1", store.ErrValidation)
	}
	if note == "" {
		note = l.Cart.DefaultNote
	}

	variant, err := pricing.Resolve(product, sizes, toppings, sizeID, toppingIDs, note)
	if err != nil {
		return domain.CartLine{}, err
	}

	for i := range l.Cart.Lines {
		if l.Cart.Lines[i].LineID == variant.IdentityKey {
			l.Cart.Lines[i].Quantity += qty
			return l.Cart.Lines[i], nil
		}
	}

	line := domain.CartLine{
		LineID:      variant.IdentityKey,
		ProductID:   product.ID,
		DisplayName: variant.DisplayName,
		UnitPrice:   variant.UnitPrice,
		Quantity:    qty,
		Note:        note,
		SizeID:      sizeID,
		ToppingIDs:  variant.ToppingIDs,
	}
	l.Cart.Lines = append(l.Cart.Lines, line)
	return line, nil
}

func (l *Ledger) Increment(lineID string) error {
	for i := range l.Cart.Lines {
		if l.Cart.Lines[i].LineID == lineID {
			l.Cart.Lines[i].Quantity++
			return nil
		}
	}
	return fmt.Errorf("%w: line %s", store.ErrNotFound, lineID)
}

// Decrement floors at quantity 1. Dropping a line is always an explicit
// RemoveLine, never a side effect of tapping minus one time too many.
func (l *Ledger) Decrement(lineID string) error {
	for i := range l.Cart.Lines {
		if l.Cart.Lines[i].LineID == lineID {
			if l.Cart.Lines[i].Quantity > 1 {
				l.Cart.Lines[i].Quantity--
			}
			return nil
		}
	}
	return fmt.Errorf("%w: line %s", store.ErrNotFound, lineID)
}

func (l *Ledger) RemoveLine(lineID string) error {
	for i := range l.Cart.Lines {
		if l.Cart.Lines[i].LineID == lineID {
			l.Cart.Lines = append(l.Cart.Lines[:i], l.Cart.Lines[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: line %s", store.ErrNotFound, lineID)
}

// Clear is the single reset used both after a successful commit and on manual
// "clear cart": lines, discount, toggles, note, customer info, tendered cash
// and payment method all return to defaults.
func (l *Ledger) Clear() {
	l.Cart = domain.Cart{PayMethod: domain.PayCash}
}
