package checkout

import (
	"fmt"
	"sync"
	"time"

	"kedaipos/backend/internal/cart"
	"kedaipos/backend/internal/domain"
	"kedaipos/backend/internal/pricing"
	"kedaipos/backend/internal/store"
	"kedaipos/backend/internal/xid"
)

type State string

const (
	StateBuilding        State = "building"
	StateAwaitingPayment State = "awaiting_payment"
)

// Session is the checkout state machine for the single active cart. Cart
// mutations are only legal while building; once payment is open the cart is
// frozen until the payment is committed or cancelled. The committed state is
// transient: a successful commit clears the cart and lands back in Building
// for the next order.
type Session struct {
	mu     sync.Mutex
	ledger cart.Ledger
	state  State
	outlet string
	loc    *time.Location
}

func NewSession(outlet string, loc *time.Location) *Session {
	if loc == nil {
		loc = time.UTC
	}
	s := &Session{state: StateBuilding, outlet: outlet, loc: loc}
	s.ledger.Clear()
	return s
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) AddLine(product domain.Product, sizes []domain.SizeOption, toppings []domain.Topping, req domain.AddLineRequest) (domain.CartLine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireBuilding(); err != nil {
		return domain.CartLine{}, err
	}
	return s.ledger.AddLine(product, sizes, toppings, req.SizeID, req.ToppingIDs, req.Note, req.Quantity)
}

func (s *Session) Increment(lineID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireBuilding(); err != nil {
		return err
	}
	return s.ledger.Increment(lineID)
}

func (s *Session) Decrement(lineID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireBuilding(); err != nil {
		return err
	}
	return s.ledger.Decrement(lineID)
}

func (s *Session) RemoveLine(lineID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireBuilding(); err != nil {
		return err
	}
	return s.ledger.RemoveLine(lineID)
}

// Clear resets the whole cart and aborts any payment in progress.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ledger.Clear()
	s.state = StateBuilding
}

// SetDiscount rejects negative amounts at the boundary; the pricing formula
// itself never sees a negative discount.
func (s *Session) SetDiscount(amount int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireBuilding(); err != nil {
		return err
	}
	if amount < 0 {
		return fmt.Errorf("%w: discount must not be negative", store.ErrValidation)
	}
	s.ledger.Cart.DiscountAmount = amount
	return nil
}

func (s *Session) SetToggles(includeTax bool, includeService bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireBuilding(); err != nil {
		return err
	}
	s.ledger.Cart.IncludeTax = includeTax
	s.ledger.Cart.IncludeService = includeService
	return nil
}

func (s *Session) SetDefaultNote(note string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireBuilding(); err != nil {
		return err
	}
	s.ledger.Cart.DefaultNote = note
	return nil
}

func (s *Session) SetCustomer(info domain.CustomerInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.requireBuilding(); err != nil {
		return err
	}
	s.ledger.Cart.Customer = info
	return nil
}

// View returns a snapshot of the cart with totals freshly computed. Totals are
// never cached between calls; any change to lines, discount, toggles or
// settings is reflected on the next View.
func (s *Session) View(settings domain.ShopSettings) domain.CartView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.CartView{
		State:        string(s.state),
		Cart:         s.snapshotCartLocked(),
		Totals:       pricing.ComputeTotals(s.ledger.Cart, settings),
		EffectiveTax: settings.TaxRatePercent,
		EffectiveSvc: settings.ServiceRatePercent,
	}
}

// OpenPayment moves Building -> AwaitingPayment. For cash the tendered amount
// is pre-filled with the current total as a convenience default; it stays
// editable until commit.
func (s *Session) OpenPayment(settings domain.ShopSettings, payMethod string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateBuilding {
		return fmt.Errorf("%w: payment already open", store.ErrValidation)
	}
	if !domain.IsSupportedPayMethod(payMethod) {
		return fmt.Errorf("%w: unsupported payment method %q", store.ErrValidation, payMethod)
	}
	if len(s.ledger.Cart.Lines) == 0 {
		return fmt.Errorf("%w: cart is empty", store.ErrValidation)
	}

	s.ledger.Cart.PayMethod = payMethod
	if payMethod == domain.PayCash {
		totals := pricing.ComputeTotals(s.ledger.Cart, settings)
		s.ledger.Cart.CashTendered = totals.Total
	} else {
		s.ledger.Cart.CashTendered = 0
	}
	s.state = StateAwaitingPayment
	return nil
}

// UpdatePayment edits the method or tendered amount while awaiting payment.
func (s *Session) UpdatePayment(payMethod *string, cashTendered *int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateAwaitingPayment {
		return fmt.Errorf("%w: no payment in progress", store.ErrValidation)
	}
	if payMethod != nil {
		if !domain.IsSupportedPayMethod(*payMethod) {
			return fmt.Errorf("%w: unsupported payment method %q", store.ErrValidation, *payMethod)
		}
		s.ledger.Cart.PayMethod = *payMethod
	}
	if cashTendered != nil {
		if *cashTendered < 0 {
			return fmt.Errorf("%w: tendered cash must not be negative", store.ErrValidation)
		}
		s.ledger.Cart.CashTendered = *cashTendered
	}
	return nil
}

// CancelPayment returns to Building with the cart untouched.
func (s *Session) CancelPayment() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateAwaitingPayment {
		return fmt.Errorf("%w: no payment in progress", store.ErrValidation)
	}
	s.state = StateBuilding
	return nil
}

// Commit finalizes the priced cart into an immutable SaleRecord and hands it
// to append. The record the callback sees is the record the caller gets back:
// totals are computed once, before append, and never recomputed, so the logged
// record and the printed receipt cannot diverge. If append fails nothing
// changes and the session stays in AwaitingPayment.
func (s *Session) Commit(settings domain.ShopSettings, append func(domain.SaleRecord) error) (domain.SaleRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateAwaitingPayment {
		return domain.SaleRecord{}, fmt.Errorf("%w: commit requires an open payment", store.ErrValidation)
	}
	if len(s.ledger.Cart.Lines) == 0 {
		return domain.SaleRecord{}, fmt.Errorf("%w: cart is empty", store.ErrValidation)
	}

	totals := pricing.ComputeTotals(s.ledger.Cart, settings)
	if s.ledger.Cart.PayMethod == domain.PayCash && s.ledger.Cart.CashTendered < totals.Total {
		return domain.SaleRecord{}, fmt.Errorf("%w: tendered %d below total %d",
			store.ErrInsufficientPayment, s.ledger.Cart.CashTendered, totals.Total)
	}

	record := s.buildRecordLocked(xid.New("sale"), settings, totals)
	if err := append(record); err != nil {
		return domain.SaleRecord{}, err
	}

	s.ledger.Clear()
	s.state = StateBuilding
	return record, nil
}

// Draft builds a non-persisted projection of the current cart for receipt
// preview. It works in any state and must never reach the sales log.
func (s *Session) Draft(settings domain.ShopSettings) domain.SaleRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	totals := pricing.ComputeTotals(s.ledger.Cart, settings)
	return s.buildRecordLocked(domain.DraftSaleID, settings, totals)
}

func (s *Session) buildRecordLocked(id string, settings domain.ShopSettings, totals domain.PricedTotals) domain.SaleRecord {
	now := time.Now().In(s.loc)
	effectiveCash, change := pricing.ComputeChange(s.ledger.Cart.PayMethod, s.ledger.Cart.CashTendered, totals.Total)

	taxRate := 0.0
	if s.ledger.Cart.IncludeTax {
		taxRate = settings.TaxRatePercent
	}
	serviceRate := 0.0
	if s.ledger.Cart.IncludeService {
		serviceRate = settings.ServiceRatePercent
	}

	snapshot := s.snapshotCartLocked()
	return domain.SaleRecord{
		ID:                 id,
		CreatedAt:          now,
		TimestampMs:        now.UnixMilli(),
		Lines:              snapshot.Lines,
		Subtotal:           totals.Subtotal,
		DiscountAmount:     snapshot.DiscountAmount,
		TaxRateApplied:     taxRate,
		ServiceRateApplied: serviceRate,
		Total:              totals.Total,
		PayMethod:          snapshot.PayMethod,
		CashTendered:       effectiveCash,
		Change:             change,
		Outlet:             s.outlet,
		Customer:           snapshot.Customer,
	}
}

// snapshotCartLocked deep-copies the lines so later cart mutations can never
// reach a frozen SaleRecord or a returned view.
func (s *Session) snapshotCartLocked() domain.Cart {
	snapshot := s.ledger.Cart
	snapshot.Lines = make([]domain.CartLine, len(s.ledger.Cart.Lines))
	for i, line := range s.ledger.Cart.Lines {
		copied := line
		copied.ToppingIDs = append([]string(nil), line.ToppingIDs...)
		snapshot.Lines[i] = copied
	}
	return snapshot
}

func (s *Session) requireBuilding() error {
	if s.state != StateAwaitingPayment {
		return nil
	}
	return fmt.Errorf("%w: cart is locked while payment is open", store.ErrValidation)
}
