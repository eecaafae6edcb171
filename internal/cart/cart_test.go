package cart

import (
	"errors"
	"testing"

	"kedaipos/backend/internal/domain"
	"kedaipos/backend/internal/store"
)

var (
	matcha = domain.Product{ID: "prod-matcha", Name: "Matcha OG", UnitPrice: 15000, Active: true}
	sizes  = []domain.SizeOption{
		{ID: "size-regular", Name: "Regular", PriceDelta: 0},
		{ID: "size-large", Name: "Large", PriceDelta: 3000},
	}
	toppings = []domain.Topping{{ID: "top-boba", Name: "Boba", Price: 3000}}
)

func newLedger() *Ledger {
	l := &Ledger{}
	l.Clear()
	return l
}

func TestAddLineMergesIdenticalVariant(t *testing.T) {
	l := newLedger()
	first, err := l.AddLine(matcha, sizes, toppings, "size-large", []string{"top-boba"}, "", 1)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	second, err := l.AddLine(matcha, sizes, toppings, "size-large", []string{"top-boba"}, "", 2)
	if err != nil {
		t.Fatalf("add again: %v", err)
	}
	if len(l.Cart.Lines) != 1 {
		t.Fatalf("lines = %d, want 1", len(l.Cart.Lines))
	}
	if second.LineID != first.LineID {
		t.Fatalf("line ids differ: %q vs %q", first.LineID, second.LineID)
	}
	if second.Quantity != 3 {
		t.Fatalf("quantity = %d, want 3", second.Quantity)
	}
}

func TestAddLineDifferentNoteSplitsLine(t *testing.T) {
	l := newLedger()
	if _, err := l.AddLine(matcha, sizes, toppings, "size-regular", nil, "", 1); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := l.AddLine(matcha, sizes, toppings, "size-regular", nil, "less ice", 1); err != nil {
		t.Fatalf("add with note: %v", err)
	}
	if len(l.Cart.Lines) != 2 {
		t.Fatalf("lines = %d, want 2", len(l.Cart.Lines))
	}
}

func TestAddLinePriceIsFrozen(t *testing.T) {
	l := newLedger()
	if _, err := l.AddLine(matcha, sizes, toppings, "size-regular", nil, "", 1); err != nil {
		t.Fatalf("add: %v", err)
	}

	// The product gets a price hike, then the same variant is added again. The
	// merge keeps the price the line was originally frozen at.
	repriced := matcha
	repriced.UnitPrice = 99000
	merged, err := l.AddLine(repriced, sizes, toppings, "size-regular", nil, "", 1)
	if err != nil {
		t.Fatalf("add repriced: %v", err)
	}
	if len(l.Cart.Lines) != 1 {
		t.Fatalf("lines = %d, want 1", len(l.Cart.Lines))
	}
	if merged.UnitPrice != 15000 || merged.Quantity != 2 {
		t.Fatalf("merged = %+v, want frozen price 15000 qty 2", merged)
	}
}

func TestAddLineInactiveProduct(t *testing.T) {
	l := newLedger()
	inactive := matcha
	inactive.Active = false
	_, err := l.AddLine(inactive, sizes, toppings, "size-regular", nil, "", 1)
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestAddLineDefaultNoteApplies(t *testing.T) {
	l := newLedger()
	l.Cart.DefaultNote = "takeaway"
	line, err := l.AddLine(matcha, sizes, toppings, "size-regular", nil, "", 1)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if line.Note != "takeaway" {
		t.Fatalf("note = %q, want takeaway", line.Note)
	}
}

func TestDecrementFloorsAtOne(t *testing.T) {
	l := newLedger()
	line, err := l.AddLine(matcha, sizes, toppings, "size-regular", nil, "", 1)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := l.Decrement(line.LineID); err != nil {
		t.Fatalf("decrement: %v", err)
	}
	if got := l.Cart.Lines[0].Quantity; got != 1 {
		t.Fatalf("quantity = %d, want 1", got)
	}
}

func TestRemoveLine(t *testing.T) {
	l := newLedger()
	line, err := l.AddLine(matcha, sizes, toppings, "size-regular", nil, "", 1)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := l.RemoveLine(line.LineID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if len(l.Cart.Lines) != 0 {
		t.Fatalf("lines = %d, want 0", len(l.Cart.Lines))
	}
	if err := l.RemoveLine(line.LineID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestClearResetsEverything(t *testing.T) {
	l := newLedger()
	if _, err := l.AddLine(matcha, sizes, toppings, "size-regular", nil, "", 2); err != nil {
		t.Fatalf("add: %v", err)
	}
	l.Cart.DiscountAmount = 2000
	l.Cart.IncludeTax = true
	l.Cart.DefaultNote = "x"
	l.Cart.CashTendered = 50000
	l.Cart.Customer = domain.CustomerInfo{Name: "Budi"}

	l.Clear()

	if len(l.Cart.Lines) != 0 || l.Cart.DiscountAmount != 0 || l.Cart.IncludeTax ||
		l.Cart.DefaultNote != "" || l.Cart.CashTendered != 0 || l.Cart.Customer.Name != "" {
		t.Fatalf("cart not reset: %+v", l.Cart)
	}
	if l.Cart.PayMethod != domain.PayCash {
		t.Fatalf("pay method = %q, want cash", l.Cart.PayMethod)
	}
}
