package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"kedaipos/backend/internal/domain"
	"kedaipos/backend/internal/service"
	"kedaipos/backend/internal/store"
)

type Server struct {
	svc           *service.Service
	validate      *validator.Validate
	allowedOrigin string
	log           zerolog.Logger
}

func NewServer(svc *service.Service, allowedOrigin string, log zerolog.Logger) *Server {
	return &Server{
		svc:           svc,
		validate:      validator.New(),
		allowedOrigin: allowedOrigin,
		log:           log.With().Str("component", "httpapi").Logger(),
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(s.cors)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/products", s.handleListProducts)
		r.Post("/products", s.handleCreateProduct)
		r.Patch("/products/{id}", s.handleUpdateProduct)
		r.Get("/catalog/sizes", s.handleListSizes)
		r.Get("/catalog/toppings", s.handleListToppings)
		r.Post("/catalog/price-check", s.handlePriceCheck)

		r.Get("/settings", s.handleGetSettings)
		r.Put("/settings", s.handleUpdateSettings)

		r.Get("/cart", s.handleCartView)
		r.Post("/cart/lines", s.handleAddLine)
		r.Post("/cart/lines/{lineID}/increment", s.handleIncrement)
		r.Post("/cart/lines/{lineID}/decrement", s.handleDecrement)
		r.Delete("/cart/lines/{lineID}", s.handleRemoveLine)
		r.Post("/cart/clear", s.handleClearCart)
		r.Put("/cart/discount", s.handleSetDiscount)
		r.Put("/cart/toggles", s.handleSetToggles)
		r.Put("/cart/note", s.handleSetNote)
		r.Put("/cart/customer", s.handleSetCustomer)

		r.Post("/checkout/payment", s.handleOpenPayment)
		r.Put("/checkout/payment", s.handleUpdatePayment)
		r.Delete("/checkout/payment", s.handleCancelPayment)
		r.Post("/checkout/commit", s.handleCommit)
		r.Get("/checkout/draft", s.handleDraft)

		r.Get("/sales", s.handleListSales)
		r.Get("/sales/query", s.handleQuerySales)
		r.Get("/sales/export.csv", s.handleExportCSV)
		r.Get("/reports/today", s.handleTodaySummary)
		r.Get("/reports/trailing", s.handleTrailingSeries)
	})

	return r
}

func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ---- catalog ----

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	includeInactive := r.URL.Query().Get("include_inactive") == "true"
	products, err := s.svc.ListProducts(r.Context(), includeInactive)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (s *Server) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req domain.ProductCreateRequest
	if !s.decode(w, r, &req) {
		return
	}
	product, err := s.svc.CreateProduct(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, product)
}

func (s *Server) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req domain.ProductUpdateRequest
	if !s.decode(w, r, &req) {
		return
	}
	product, err := s.svc.UpdateProduct(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (s *Server) handleListSizes(w http.ResponseWriter, r *http.Request) {
	sizes, err := s.svc.ListSizeOptions(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sizes)
}

func (s *Server) handlePriceCheck(w http.ResponseWriter, r *http.Request) {
	var req domain.AddLineRequest
	if !s.decode(w, r, &req) {
		return
	}
	variant, err := s.svc.PriceCheck(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"unit_price":   variant.UnitPrice,
		"display_name": variant.DisplayName,
	})
}

func (s *Server) handleListToppings(w http.ResponseWriter, r *http.Request) {
	toppings, err := s.svc.ListToppings(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toppings)
}

// ---- settings ----

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.svc.GetSettings(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req domain.SettingsUpdateRequest
	if !s.decode(w, r, &req) {
		return
	}
	settings, err := s.svc.UpdateSettings(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// ---- cart ----

func (s *Server) handleCartView(w http.ResponseWriter, r *http.Request) {
	view, err := s.svc.CartView(r.Context())
	s.respondView(w, view, err)
}

func (s *Server) handleAddLine(w http.ResponseWriter, r *http.Request) {
	var req domain.AddLineRequest
	if !s.decode(w, r, &req) {
		return
	}
	view, err := s.svc.AddCartLine(r.Context(), req)
	s.respondView(w, view, err)
}

func (s *Server) handleIncrement(w http.ResponseWriter, r *http.Request) {
	view, err := s.svc.IncrementLine(r.Context(), chi.URLParam(r, "lineID"))
	s.respondView(w, view, err)
}

func (s *Server) handleDecrement(w http.ResponseWriter, r *http.Request) {
	view, err := s.svc.DecrementLine(r.Context(), chi.URLParam(r, "lineID"))
	s.respondView(w, view, err)
}

func (s *Server) handleRemoveLine(w http.ResponseWriter, r *http.Request) {
	view, err := s.svc.RemoveLine(r.Context(), chi.URLParam(r, "lineID"))
	s.respondView(w, view, err)
}

func (s *Server) handleClearCart(w http.ResponseWriter, r *http.Request) {
	view, err := s.svc.ClearCart(r.Context())
	s.respondView(w, view, err)
}

func (s *Server) handleSetDiscount(w http.ResponseWriter, r *http.Request) {
	var req domain.DiscountRequest
	if !s.decode(w, r, &req) {
		return
	}
	view, err := s.svc.SetDiscount(r.Context(), req.Amount)
	s.respondView(w, view, err)
}

func (s *Server) handleSetToggles(w http.ResponseWriter, r *http.Request) {
	var req domain.TogglesRequest
	if !s.decode(w, r, &req) {
		return
	}
	view, err := s.svc.SetToggles(r.Context(), req.IncludeTax, req.IncludeService)
	s.respondView(w, view, err)
}

func (s *Server) handleSetNote(w http.ResponseWriter, r *http.Request) {
	var req domain.NoteRequest
	if !s.decode(w, r, &req) {
		return
	}
	view, err := s.svc.SetDefaultNote(r.Context(), req.Note)
	s.respondView(w, view, err)
}

func (s *Server) handleSetCustomer(w http.ResponseWriter, r *http.Request) {
	var req domain.CustomerInfo
	if !s.decode(w, r, &req) {
		return
	}
	view, err := s.svc.SetCustomer(r.Context(), req)
	s.respondView(w, view, err)
}

// ---- checkout ----

func (s *Server) handleOpenPayment(w http.ResponseWriter, r *http.Request) {
	var req domain.OpenPaymentRequest
	if !s.decode(w, r, &req) {
		return
	}
	view, err := s.svc.OpenPayment(r.Context(), req.PayMethod)
	s.respondView(w, view, err)
}

func (s *Server) handleUpdatePayment(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdatePaymentRequest
	if !s.decode(w, r, &req) {
		return
	}
	view, err := s.svc.UpdatePayment(r.Context(), req)
	s.respondView(w, view, err)
}

func (s *Server) handleCancelPayment(w http.ResponseWriter, r *http.Request) {
	view, err := s.svc.CancelPayment(r.Context())
	s.respondView(w, view, err)
}

func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request) {
	resp, err := s.svc.Commit(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleDraft(w http.ResponseWriter, r *http.Request) {
	resp, err := s.svc.Draft(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ---- sales and reports ----

func (s *Server) handleListSales(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			s.writeError(w, errInvalid("limit must be a non-negative integer"))
			return
		}
		limit = parsed
	}
	sales, err := s.svc.ListSales(r.Context(), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sales)
}

func (s *Server) handleQuerySales(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := domain.SalesQuery{
		Outlet:        q.Get("outlet"),
		ShiftID:       q.Get("shift_id"),
		CashierID:     q.Get("cashier_id"),
		CustomerPhone: q.Get("customer_phone"),
		Cursor:        q.Get("cursor"),
	}
	if raw := q.Get("page_size"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			s.writeError(w, errInvalid("page_size must be a positive integer"))
			return
		}
		query.PageSize = parsed
	}
	if raw := q.Get("from"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			s.writeError(w, errInvalid("from must be RFC3339"))
			return
		}
		query.From = &parsed
	}
	if raw := q.Get("to"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			s.writeError(w, errInvalid("to must be RFC3339"))
			return
		}
		query.To = &parsed
	}

	page, err := s.svc.QuerySales(r.Context(), query)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="sales.csv"`)
	if err := s.svc.ExportSalesCSV(r.Context(), w); err != nil {
		// Headers may be out already; log instead of rewriting the status.
		s.log.Error().Err(err).Msg("csv export failed mid-stream")
	}
}

func (s *Server) handleTodaySummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.svc.TodaySummary(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleTrailingSeries(w http.ResponseWriter, r *http.Request) {
	days := 0
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			s.writeError(w, errInvalid("days must be a positive integer"))
			return
		}
		days = parsed
	}
	series, err := s.svc.TrailingSeries(r.Context(), days)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, series)
}

// ---- helpers ----

func (s *Server) respondView(w http.ResponseWriter, view domain.CartView, err error) {
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.writeError(w, errInvalid("malformed JSON body"))
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		s.writeError(w, errInvalid(err.Error()))
		return false
	}
	return true
}

func errInvalid(msg string) error {
	return fmt.Errorf("%w: %s", store.ErrValidation, msg)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, store.ErrInsufficientPayment):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, store.ErrValidation), errors.Is(err, store.ErrInvalidVariant):
		status = http.StatusBadRequest
	case errors.Is(err, store.ErrQueryCapability):
		status = http.StatusNotImplemented
	}

	if status == http.StatusInternalServerError {
		s.log.Error().Err(err).Msg("request failed")
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
