package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"kedaipos/backend/internal/cache"
	"kedaipos/backend/internal/checkout"
	"kedaipos/backend/internal/domain"
	"kedaipos/backend/internal/export"
	"kedaipos/backend/internal/notify"
	"kedaipos/backend/internal/pricing"
	"kedaipos/backend/internal/receipt"
	"kedaipos/backend/internal/report"
	"kedaipos/backend/internal/store"
	"kedaipos/backend/internal/xid"
)

// Service wires the catalog, the checkout session and the sales log together.
// It owns no pricing logic of its own; everything money-related lives in
// pricing and checkout.
type Service struct {
	repo       store.Repository
	session    *checkout.Session
	notifier   *notify.Webhook
	summaries  cache.SummaryCache
	summaryTTL time.Duration
	outlet     string
	loc        *time.Location
	log        zerolog.Logger
}

type Options struct {
	Repo       store.Repository
	Notifier   *notify.Webhook
	Summaries  cache.SummaryCache
	SummaryTTL time.Duration
	Outlet     string
	Location   *time.Location
	Log        zerolog.Logger
}

func New(opts Options) *Service {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	summaries := opts.Summaries
	if summaries == nil {
		summaries = cache.NoopSummaryCache{}
	}
	return &Service{
		repo:       opts.Repo,
		session:    checkout.NewSession(opts.Outlet, loc),
		notifier:   opts.Notifier,
		summaries:  summaries,
		summaryTTL: opts.SummaryTTL,
		outlet:     opts.Outlet,
		loc:        loc,
		log:        opts.Log.With().Str("component", "service").Logger(),
	}
}

// ---- catalog ----

func (s *Service) ListProducts(ctx context.Context, includeInactive bool) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx, includeInactive)
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (*domain.Product, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: product name is required", store.ErrValidation)
	}
	if req.UnitPrice <= 0 {
		return nil, fmt.Errorf("%w: unit price must be positive", store.ErrValidation)
	}

	id := strings.TrimSpace(req.ID)
	if id == "" {
		id = xid.New("prod")
	}

	return s.repo.CreateProduct(ctx, domain.Product{
		ID:        id,
		Name:      name,
		UnitPrice: req.UnitPrice,
		Category:  strings.TrimSpace(req.Category),
		Active:    true,
	})
}

func (s *Service) UpdateProduct(ctx context.Context, id string, req domain.ProductUpdateRequest) (*domain.Product, error) {
	current, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	updated := *current
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: product name must not be empty", store.ErrValidation)
		}
		updated.Name = name
	}
	if req.UnitPrice != nil {
		if *req.UnitPrice <= 0 {
			return nil, fmt.Errorf("%w: unit price must be positive", store.ErrValidation)
		}
		updated.UnitPrice = *req.UnitPrice
	}
	if req.Category != nil {
		updated.Category = strings.TrimSpace(*req.Category)
	}
	if req.Active != nil {
		updated.Active = *req.Active
	}

	return s.repo.UpdateProduct(ctx, updated)
}

func (s *Service) ListSizeOptions(ctx context.Context) ([]domain.SizeOption, error) {
	return s.repo.ListSizeOptions(ctx)
}

func (s *Service) ListToppings(ctx context.Context) ([]domain.Topping, error) {
	return s.repo.ListToppings(ctx)
}

// ---- settings ----

func (s *Service) GetSettings(ctx context.Context) (*domain.ShopSettings, error) {
	return s.repo.GetSettings(ctx)
}

func (s *Service) UpdateSettings(ctx context.Context, req domain.SettingsUpdateRequest) (*domain.ShopSettings, error) {
	current, err := s.repo.GetSettings(ctx)
	if err != nil {
		return nil, err
	}

	updated := *current
	if req.ShopName != nil {
		updated.ShopName = strings.TrimSpace(*req.ShopName)
	}
	if req.TaxRatePercent != nil {
		if *req.TaxRatePercent < 0 {
			return nil, fmt.Errorf("%w: tax rate must not be negative", store.ErrValidation)
		}
		updated.TaxRatePercent = *req.TaxRatePercent
	}
	if req.ServiceRatePercent != nil {
		if *req.ServiceRatePercent < 0 {
			return nil, fmt.Errorf("%w: service rate must not be negative", store.ErrValidation)
		}
		updated.ServiceRatePercent = *req.ServiceRatePercent
	}

	if err := s.repo.SaveSettings(ctx, updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// ---- cart ----

func (s *Service) CartView(ctx context.Context) (domain.CartView, error) {
	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		return domain.CartView{}, err
	}
	return s.session.View(*settings), nil
}

func (s *Service) AddCartLine(ctx context.Context, req domain.AddLineRequest) (domain.CartView, error) {
	product, err := s.repo.GetProduct(ctx, req.ProductID)
	if err != nil {
		return domain.CartView{}, err
	}
	sizes, err := s.repo.ListSizeOptions(ctx)
	if err != nil {
		return domain.CartView{}, err
	}
	toppings, err := s.repo.ListToppings(ctx)
	if err != nil {
		return domain.CartView{}, err
	}

	if _, err := s.session.AddLine(*product, sizes, toppings, req); err != nil {
		return domain.CartView{}, err
	}
	return s.CartView(ctx)
}

func (s *Service) IncrementLine(ctx context.Context, lineID string) (domain.CartView, error) {
	if err := s.session.Increment(lineID); err != nil {
		return domain.CartView{}, err
	}
	return s.CartView(ctx)
}

func (s *Service) DecrementLine(ctx context.Context, lineID string) (domain.CartView, error) {
	if err := s.session.Decrement(lineID); err != nil {
		return domain.CartView{}, err
	}
	return s.CartView(ctx)
}

func (s *Service) RemoveLine(ctx context.Context, lineID string) (domain.CartView, error) {
	if err := s.session.RemoveLine(lineID); err != nil {
		return domain.CartView{}, err
	}
	return s.CartView(ctx)
}

func (s *Service) ClearCart(ctx context.Context) (domain.CartView, error) {
	s.session.Clear()
	return s.CartView(ctx)
}

func (s *Service) SetDiscount(ctx context.Context, amount int64) (domain.CartView, error) {
	if err := s.session.SetDiscount(amount); err != nil {
		return domain.CartView{}, err
	}
	return s.CartView(ctx)
}

func (s *Service) SetToggles(ctx context.Context, includeTax, includeService bool) (domain.CartView, error) {
	if err := s.session.SetToggles(includeTax, includeService); err != nil {
		return domain.CartView{}, err
	}
	return s.CartView(ctx)
}

func (s *Service) SetDefaultNote(ctx context.Context, note string) (domain.CartView, error) {
	if err := s.session.SetDefaultNote(note); err != nil {
		return domain.CartView{}, err
	}
	return s.CartView(ctx)
}

func (s *Service) SetCustomer(ctx context.Context, info domain.CustomerInfo) (domain.CartView, error) {
	if err := s.session.SetCustomer(info); err != nil {
		return domain.CartView{}, err
	}
	return s.CartView(ctx)
}

// ---- checkout ----

func (s *Service) OpenPayment(ctx context.Context, payMethod string) (domain.CartView, error) {
	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		return domain.CartView{}, err
	}
	if err := s.session.OpenPayment(*settings, payMethod); err != nil {
		return domain.CartView{}, err
	}
	return s.CartView(ctx)
}

func (s *Service) UpdatePayment(ctx context.Context, req domain.UpdatePaymentRequest) (domain.CartView, error) {
	if err := s.session.UpdatePayment(req.PayMethod, req.CashTendered); err != nil {
		return domain.CartView{}, err
	}
	return s.CartView(ctx)
}

func (s *Service) CancelPayment(ctx context.Context) (domain.CartView, error) {
	if err := s.session.CancelPayment(); err != nil {
		return domain.CartView{}, err
	}
	return s.CartView(ctx)
}

// Commit finalizes the open payment. The append into the sales log happens
// inside the session's critical section, so the logged record, the returned
// receipt and the webhook payload are all views of one frozen record.
func (s *Service) Commit(ctx context.Context) (*domain.CommitResponse, error) {
	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		return nil, err
	}

	record, err := s.session.Commit(*settings, func(r domain.SaleRecord) error {
		return s.repo.AppendSale(ctx, r)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("sale_id", record.ID).
		Str("pay_method", record.PayMethod).
		Int64("total", record.Total).
		Int("lines", len(record.Lines)).
		Msg("sale committed")

	if err := s.summaries.Invalidate(ctx, s.summaryKey(record.CreatedAt)); err != nil {
		s.log.Warn().Err(err).Msg("summary cache invalidation failed")
	}

	if s.notifier.Enabled() {
		go func(r domain.SaleRecord) {
			notifyCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			_ = s.notifier.OrderCommitted(notifyCtx, r)
		}(record)
	}

	return &domain.CommitResponse{
		Sale:    record,
		Receipt: receipt.Build(record, *settings),
	}, nil
}

// Draft renders a receipt preview of the current cart without touching the
// sales log.
func (s *Service) Draft(ctx context.Context) (*domain.CommitResponse, error) {
	settings, err := s.repo.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	draft := s.session.Draft(*settings)
	return &domain.CommitResponse{
		Sale:    draft,
		Receipt: receipt.Build(draft, *settings),
	}, nil
}

// ---- reporting ----

func (s *Service) TodaySummary(ctx context.Context) (*domain.TodaySummary, error) {
	now := time.Now().In(s.loc)
	key := s.summaryKey(now)

	if cached, ok, err := s.summaries.Get(ctx, key); err != nil {
		s.log.Warn().Err(err).Msg("summary cache read failed")
	} else if ok {
		return cached, nil
	}

	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	records, err := s.repo.ListSalesSince(ctx, startOfDay.UnixMilli())
	if err != nil {
		return nil, err
	}

	summary := report.TodaySummary(records, now, s.loc)
	if err := s.summaries.Set(ctx, key, &summary, s.summaryTTL); err != nil {
		s.log.Warn().Err(err).Msg("summary cache write failed")
	}
	return &summary, nil
}

func (s *Service) TrailingSeries(ctx context.Context, days int) ([]domain.DaySeriesPoint, error) {
	if days < 1 {
		days = 14
	}
	now := time.Now().In(s.loc)
	since := now.AddDate(0, 0, -days).UnixMilli()
	records, err := s.repo.ListSalesSince(ctx, since)
	if err != nil {
		return nil, err
	}
	return report.TrailingSeries(records, now, s.loc, days), nil
}

func (s *Service) ListSales(ctx context.Context, limit int) ([]domain.SaleRecord, error) {
	return s.repo.ListSales(ctx, limit)
}

func (s *Service) QuerySales(ctx context.Context, query domain.SalesQuery) (domain.SalesPage, error) {
	page, err := s.repo.QuerySales(ctx, query)
	if err != nil {
		if errors.Is(err, store.ErrQueryCapability) {
			return domain.SalesPage{}, fmt.Errorf(
				"%w; run the schema migration or drop the unsupported filter", err)
		}
		return domain.SalesPage{}, err
	}
	return page, nil
}

func (s *Service) ExportSalesCSV(ctx context.Context, w io.Writer) error {
	records, err := s.repo.ListSalesSince(ctx, 0)
	if err != nil {
		return err
	}
	return export.WriteSales(w, records)
}

// PriceCheck resolves a variant without touching the cart, for a price lookup
// panel at the terminal.
func (s *Service) PriceCheck(ctx context.Context, req domain.AddLineRequest) (*pricing.Variant, error) {
	product, err := s.repo.GetProduct(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}
	sizes, err := s.repo.ListSizeOptions(ctx)
	if err != nil {
		return nil, err
	}
	toppings, err := s.repo.ListToppings(ctx)
	if err != nil {
		return nil, err
	}
	variant, err := pricing.Resolve(*product, sizes, toppings, req.SizeID, req.ToppingIDs, req.Note)
	if err != nil {
		return nil, err
	}
	return &variant, nil
}

func (s *Service) summaryKey(t time.Time) string {
	return "summary:" + s.outlet + ":" + report.DayKey(t, s.loc)
}
