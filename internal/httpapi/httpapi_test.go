package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"kedaipos/backend/internal/domain"
	"kedaipos/backend/internal/service"
	"kedaipos/backend/internal/store/memory"
)

func newTestRouter() http.Handler {
	mem := memory.New(domain.ShopSettings{ShopName: "Kedai Test", TaxRatePercent: 10, ServiceRatePercent: 5})
	svc := service.New(service.Options{
		Repo:   mem,
		Outlet: "main-outlet",
		Log:    zerolog.Nop(),
	})
	return NewServer(svc, "*", zerolog.Nop()).Router()
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeInto(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(dst); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
}

func TestHealthz(t *testing.T) {
	rec := doJSON(t, newTestRouter(), http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestProductEndpoints(t *testing.T) {
	router := newTestRouter()

	rec := doJSON(t, router, http.MethodGet, "/api/v1/products", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var products []domain.Product
	decodeInto(t, rec, &products)
	if len(products) == 0 {
		t.Fatal("no seeded products")
	}

	rec = doJSON(t, router, http.MethodPost, "/api/v1/products", domain.ProductCreateRequest{
		Name: "Es Kopi", UnitPrice: 14000, Category: "coffee",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}
	var created domain.Product
	decodeInto(t, rec, &created)

	inactive := false
	rec = doJSON(t, router, http.MethodPatch, "/api/v1/products/"+created.ID, domain.ProductUpdateRequest{Active: &inactive})
	if rec.Code != http.StatusOK {
		t.Fatalf("patch status = %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodPatch, "/api/v1/products/prod-ghost", domain.ProductUpdateRequest{})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing product status = %d", rec.Code)
	}

	// Validator catches the missing name before the service runs.
	rec = doJSON(t, router, http.MethodPost, "/api/v1/products", map[string]any{"unit_price": 1000})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid create status = %d", rec.Code)
	}
}

func TestCartAndCheckoutFlow(t *testing.T) {
	router := newTestRouter()

	rec := doJSON(t, router, http.MethodPost, "/api/v1/cart/lines", domain.AddLineRequest{
		ProductID:  "prod-matcha-og",
		SizeID:     "size-large",
		ToppingIDs: []string{"top-boba"},
		Quantity:   2,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("add line status = %d, body %s", rec.Code, rec.Body.String())
	}
	var view domain.CartView
	decodeInto(t, rec, &view)
	if view.Totals.Subtotal != 42000 {
		t.Fatalf("subtotal = %d", view.Totals.Subtotal)
	}
	lineID := view.Cart.Lines[0].LineID

	rec = doJSON(t, router, http.MethodPut, "/api/v1/cart/toggles", domain.TogglesRequest{IncludeTax: true})
	if rec.Code != http.StatusOK {
		t.Fatalf("toggles status = %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodPost, "/api/v1/checkout/payment", domain.OpenPaymentRequest{PayMethod: domain.PayCash})
	if rec.Code != http.StatusOK {
		t.Fatalf("open payment status = %d, body %s", rec.Code, rec.Body.String())
	}

	// Cart is locked while the payment is open.
	rec = doJSON(t, router, http.MethodPost, "/api/v1/cart/lines/"+lineID+"/increment", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("locked cart status = %d", rec.Code)
	}

	under := int64(1000)
	rec = doJSON(t, router, http.MethodPut, "/api/v1/checkout/payment", domain.UpdatePaymentRequest{CashTendered: &under})
	if rec.Code != http.StatusOK {
		t.Fatalf("update payment status = %d", rec.Code)
	}
	rec = doJSON(t, router, http.MethodPost, "/api/v1/checkout/commit", nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("underpaid commit status = %d", rec.Code)
	}

	enough := int64(50000)
	doJSON(t, router, http.MethodPut, "/api/v1/checkout/payment", domain.UpdatePaymentRequest{CashTendered: &enough})
	rec = doJSON(t, router, http.MethodPost, "/api/v1/checkout/commit", nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("commit status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp domain.CommitResponse
	decodeInto(t, rec, &resp)
	if resp.Sale.Total != 46200 || resp.Sale.Change != 3800 {
		t.Fatalf("sale = %+v", resp.Sale)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/v1/sales", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("sales status = %d", rec.Code)
	}
	var sales []domain.SaleRecord
	decodeInto(t, rec, &sales)
	if len(sales) != 1 {
		t.Fatalf("sales = %d, want 1", len(sales))
	}
}

func TestUnknownSizeRejected(t *testing.T) {
	rec := doJSON(t, newTestRouter(), http.MethodPost, "/api/v1/cart/lines", domain.AddLineRequest{
		ProductID: "prod-matcha-og",
		SizeID:    "size-venti",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestCommitWithoutOpenPayment(t *testing.T) {
	rec := doJSON(t, newTestRouter(), http.MethodPost, "/api/v1/checkout/commit", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestCSVExportEndpoint(t *testing.T) {
	router := newTestRouter()
	rec := doJSON(t, router, http.MethodGet, "/api/v1/sales/export.csv", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("content type = %q", ct)
	}
	if !strings.HasPrefix(rec.Body.String(), "id,time,pay_method") {
		t.Fatalf("body = %q", rec.Body.String())
	}
}

func TestReportsEndpoints(t *testing.T) {
	router := newTestRouter()

	rec := doJSON(t, router, http.MethodGet, "/api/v1/reports/today", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("today status = %d", rec.Code)
	}

	rec = doJSON(t, router, http.MethodGet, "/api/v1/reports/trailing?days=7", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("trailing status = %d", rec.Code)
	}
	var series []domain.DaySeriesPoint
	decodeInto(t, rec, &series)
	if len(series) != 7 {
		t.Fatalf("series = %d points", len(series))
	}

	rec = doJSON(t, router, http.MethodGet, "/api/v1/reports/trailing?days=abc", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad days status = %d", rec.Code)
	}
}

func TestQuerySalesEndpoint(t *testing.T) {
	router := newTestRouter()

	rec := doJSON(t, router, http.MethodGet, "/api/v1/sales/query?outlet=main-outlet&page_size=10", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, router, http.MethodGet, "/api/v1/sales/query?from=yesterday", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad from status = %d", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	router := newTestRouter()
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/products", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("origin header = %q", rec.Header().Get("Access-Control-Allow-Origin"))
	}
}
