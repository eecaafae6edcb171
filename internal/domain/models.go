package domain

import "time"

// All currency amounts are whole rupiah. There are no fractional subunits;
// every percent computation rounds to the nearest unit.

type Product struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	UnitPrice int64  `json:"unit_price"`
	Category  string `json:"category"`
	Active    bool   `json:"active"`
}

type ProductCreateRequest struct {
	ID        string `json:"id"`
	Name      string `json:"name" validate:"required"`
	UnitPrice int64  `json:"unit_price" validate:"gt=0"`
	Category  string `json:"category" validate:"required"`
}

type ProductUpdateRequest struct {
	Name      *string `json:"name,omitempty"`
	UnitPrice *int64  `json:"unit_price,omitempty"`
	Category  *string `json:"category,omitempty"`
	Active    *bool   `json:"active,omitempty"`
}

// SizeOption and Topping are immutable reference data. An order line references
// exactly one size and zero or more toppings.
type SizeOption struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	PriceDelta int64  `json:"price_delta"`
}

type Topping struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Price int64  `json:"price"`
}

// CartLine is one priced, quantity-bearing entry in the active cart. UnitPrice
// is computed once when the line is added and never changes afterwards, even if
// the referenced product or reference data is edited later.
type CartLine struct {
	LineID      string   `json:"line_id"`
	ProductID   string   `json:"product_id"`
	DisplayName string   `json:"display_name"`
	UnitPrice   int64    `json:"unit_price"`
	Quantity    int      `json:"quantity"`
	Note        string   `json:"note,omitempty"`
	SizeID      string   `json:"size_id"`
	ToppingIDs  []string `json:"topping_ids"`
}

type CustomerInfo struct {
	Name       string  `json:"name,omitempty"`
	Phone      string  `json:"phone,omitempty"`
	Address    string  `json:"address,omitempty"`
	DistanceKm float64 `json:"distance_km,omitempty"`
}

// Cart is the single active order being built at the terminal. It is owned by
// the checkout session and reset as a whole on commit or explicit clear.
type Cart struct {
	Lines          []CartLine   `json:"lines"`
	DiscountAmount int64        `json:"discount_amount"`
	IncludeTax     bool         `json:"include_tax"`
	IncludeService bool         `json:"include_service"`
	DefaultNote    string       `json:"default_note"`
	PayMethod      string       `json:"pay_method"`
	CashTendered   int64        `json:"cash_tendered"`
	Customer       CustomerInfo `json:"customer"`
}

// PricedTotals is derived, never stored. The authoritative value at commit time
// is always recomputed from the cart and settings.
type PricedTotals struct {
	Subtotal int64 `json:"subtotal"`
	Tax      int64 `json:"tax"`
	Service  int64 `json:"service"`
	Total    int64 `json:"total"`
}

// SaleRecord is immutable once created. Outlet, ShiftID, CashierID and the
// customer block are optional (empty by default); they serve the history query
// filters and the notification payload and are never read by pricing.
type SaleRecord struct {
	ID                 string       `json:"id"`
	CreatedAt          time.Time    `json:"created_at"`
	TimestampMs        int64        `json:"timestamp_ms"`
	Lines              []CartLine   `json:"lines"`
	Subtotal           int64        `json:"subtotal"`
	DiscountAmount     int64        `json:"discount_amount"`
	TaxRateApplied     float64      `json:"tax_rate_applied"`
	ServiceRateApplied float64      `json:"service_rate_applied"`
	Total              int64        `json:"total"`
	PayMethod          string       `json:"pay_method"`
	CashTendered       int64        `json:"cash_tendered"`
	Change             int64        `json:"change"`
	Outlet             string       `json:"outlet,omitempty"`
	ShiftID            string       `json:"shift_id,omitempty"`
	CashierID          string       `json:"cashier_id,omitempty"`
	Customer           CustomerInfo `json:"customer,omitempty"`
}

type ShopSettings struct {
	ShopName           string  `json:"shop_name"`
	TaxRatePercent     float64 `json:"tax_rate_percent"`
	ServiceRatePercent float64 `json:"service_rate_percent"`
}

type SettingsUpdateRequest struct {
	ShopName           *string  `json:"shop_name,omitempty"`
	TaxRatePercent     *float64 `json:"tax_rate_percent,omitempty"`
	ServiceRatePercent *float64 `json:"service_rate_percent,omitempty"`
}

type AddLineRequest struct {
	ProductID  string   `json:"product_id" validate:"required"`
	SizeID     string   `json:"size_id" validate:"required"`
	ToppingIDs []string `json:"topping_ids"`
	Note       string   `json:"note"`
	Quantity   int      `json:"quantity"`
}

type DiscountRequest struct {
	Amount int64 `json:"amount"`
}

type TogglesRequest struct {
	IncludeTax     bool `json:"include_tax"`
	IncludeService bool `json:"include_service"`
}

type NoteRequest struct {
	Note string `json:"note"`
}

type OpenPaymentRequest struct {
	PayMethod string `json:"pay_method" validate:"required"`
}

type UpdatePaymentRequest struct {
	PayMethod    *string `json:"pay_method,omitempty"`
	CashTendered *int64  `json:"cash_tendered,omitempty"`
}

type CartView struct {
	State        string       `json:"state"`
	Cart         Cart         `json:"cart"`
	Totals       PricedTotals `json:"totals"`
	EffectiveTax float64      `json:"effective_tax_rate_percent"`
	EffectiveSvc float64      `json:"effective_service_rate_percent"`
}

type CommitResponse struct {
	Sale    SaleRecord `json:"sale"`
	Receipt Receipt    `json:"receipt"`
}

// Receipt carries a preview text plus raw ESC/POS bytes (base64) for a local
// thermal printer bridge.
type Receipt struct {
	Text         string `json:"text"`
	EscposBase64 string `json:"escpos_base64"`
	FileName     string `json:"file_name"`
}

// SalesQuery is the filter contract of the history collaborator. Cursor is
// opaque to callers; an empty NextCursor means the listing is exhausted.
type SalesQuery struct {
	Outlet        string     `json:"outlet"`
	From          *time.Time `json:"from,omitempty"`
	To            *time.Time `json:"to,omitempty"`
	ShiftID       string     `json:"shift_id,omitempty"`
	CashierID     string     `json:"cashier_id,omitempty"`
	CustomerPhone string     `json:"customer_phone,omitempty"`
	PageSize      int        `json:"page_size"`
	Cursor        string     `json:"cursor,omitempty"`
}

type SalesPage struct {
	Rows       []SaleRecord `json:"rows"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

type TopItem struct {
	Name     string `json:"name"`
	TotalQty int    `json:"total_qty"`
}

type TodaySummary struct {
	DayKey            string    `json:"day_key"`
	Revenue           int64     `json:"revenue"`
	TransactionCount  int       `json:"transaction_count"`
	AverageOrderValue int64     `json:"average_order_value"`
	TopItems          []TopItem `json:"top_items"`
	GeneratedAt       time.Time `json:"generated_at"`
}

type DaySeriesPoint struct {
	DayKey           string `json:"day_key"`
	Revenue          int64  `json:"revenue"`
	TransactionCount int    `json:"transaction_count"`
}

const (
	PayCash    = "cash"
	PayQRIS    = "qris"
	PayCard    = "card"
	PayEwallet = "ewallet"
)

// DraftSaleID marks a non-persisted preview projection of the current cart.
const DraftSaleID = "DRAFT"

func IsSupportedPayMethod(method string) bool {
	switch method {
	case PayCash, PayQRIS, PayCard, PayEwallet:
		return true
	default:
		return false
	}
}
