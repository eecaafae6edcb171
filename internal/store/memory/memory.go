package memory

import (
	"context"
	"encoding/base64"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"kedaipos/backend/internal/domain"
	"kedaipos/backend/internal/store"
)

// Store is the in-memory Repository. It is the authoritative runtime state of
// the terminal; a durable store can mirror it but never replaces it.
type Store struct {
	mu       sync.RWMutex
	products map[string]domain.Product
	sizes    []domain.SizeOption
	toppings []domain.Topping
	settings domain.ShopSettings
	sales    []domain.SaleRecord // append-only, oldest first
}

func New(settings domain.ShopSettings) *Store {
	s := &Store{
		products: make(map[string]domain.Product),
		settings: settings,
	}
	s.seed()
	return s
}

// seed installs the default drink-shop catalog so a fresh terminal is usable
// without any setup step.
func (s *Store) seed() {
	seedProducts := []domain.Product{
		{ID: "prod-matcha-og", Name: "Matcha OG", UnitPrice: 15000, Category: "signature", Active: true},
		{ID: "prod-matcha-latte", Name: "Matcha Latte", UnitPrice: 18000, Category: "signature", Active: true},
		{ID: "prod-hojicha", Name: "Hojicha Latte", UnitPrice: 18000, Category: "signature", Active: true},
		{ID: "prod-choco", Name: "Chocolate", UnitPrice: 15000, Category: "classic", Active: true},
		{ID: "prod-thai-tea", Name: "Thai Tea", UnitPrice: 13000, Category: "classic", Active: true},
		{ID: "prod-lemon-tea", Name: "Lemon Tea", UnitPrice: 10000, Category: "classic", Active: true},
	}
	for _, p := range seedProducts {
		s.products[p.ID] = p
	}

	s.sizes = []domain.SizeOption{
		{ID: "size-regular", Name: "Regular", PriceDelta: 0},
		{ID: "size-large", Name: "Large", PriceDelta: 3000},
	}
	s.toppings = []domain.Topping{
		{ID: "top-boba", Name: "Boba", Price: 3000},
		{ID: "top-grass-jelly", Name: "Grass Jelly", Price: 3000},
		{ID: "top-cheese-foam", Name: "Cheese Foam", Price: 5000},
		{ID: "top-oat-milk", Name: "Oat Milk", Price: 4000},
	}
}

func (s *Store) ListProducts(_ context.Context, includeInactive bool) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		if !includeInactive && !p.Active {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, fmt.Errorf("product %s: %w", id, store.ErrNotFound)
	}
	cp := p
	return &cp, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[product.ID]; exists {
		return nil, fmt.Errorf("product id %s already exists: %w", product.ID, store.ErrValidation)
	}
	s.products[product.ID] = product
	cp := product
	return &cp, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[product.ID]; !exists {
		return nil, fmt.Errorf("product %s: %w", product.ID, store.ErrNotFound)
	}
	s.products[product.ID] = product
	cp := product
	return &cp, nil
}

func (s *Store) ListSizeOptions(_ context.Context) ([]domain.SizeOption, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.SizeOption(nil), s.sizes...), nil
}

func (s *Store) ListToppings(_ context.Context) ([]domain.Topping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Topping(nil), s.toppings...), nil
}

func (s *Store) GetSettings(_ context.Context) (*domain.ShopSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp := s.settings
	return &cp, nil
}

func (s *Store) SaveSettings(_ context.Context, settings domain.ShopSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
	return nil
}

func (s *Store) AppendSale(_ context.Context, record domain.SaleRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.sales {
		if existing.ID == record.ID {
			return fmt.Errorf("sale %s already recorded: %w", record.ID, store.ErrValidation)
		}
	}
	s.sales = append(s.sales, record)
	return nil
}

func (s *Store) ListSales(_ context.Context, limit int) ([]domain.SaleRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := newestFirst(s.sales)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) ListSalesSince(_ context.Context, since int64) ([]domain.SaleRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.SaleRecord, 0)
	for _, r := range s.sales {
		if r.TimestampMs >= since {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Store) QuerySales(_ context.Context, query domain.SalesQuery) (domain.SalesPage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]domain.SaleRecord, 0)
	for _, r := range newestFirst(s.sales) {
		if query.Outlet != "" && r.Outlet != query.Outlet {
			continue
		}
		if query.ShiftID != "" && r.ShiftID != query.ShiftID {
			continue
		}
		if query.CashierID != "" && r.CashierID != query.CashierID {
			continue
		}
		if query.CustomerPhone != "" && r.Customer.Phone != query.CustomerPhone {
			continue
		}
		if query.From != nil && r.CreatedAt.Before(*query.From) {
			continue
		}
		if query.To != nil && !r.CreatedAt.Before(*query.To) {
			continue
		}
		matched = append(matched, r)
	}

	offset, err := decodeCursor(query.Cursor)
	if err != nil {
		return domain.SalesPage{}, fmt.Errorf("bad cursor: %w", store.ErrValidation)
	}
	if offset > len(matched) {
		offset = len(matched)
	}

	pageSize := query.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	end := offset + pageSize
	if end > len(matched) {
		end = len(matched)
	}

	page := domain.SalesPage{Rows: matched[offset:end]}
	if end < len(matched) {
		page.NextCursor = encodeCursor(end)
	}
	return page, nil
}

func newestFirst(sales []domain.SaleRecord) []domain.SaleRecord {
	out := append([]domain.SaleRecord(nil), sales...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].TimestampMs > out[j].TimestampMs })
	return out
}

// Cursors are base64-wrapped offsets into the filtered listing. Opaque to
// callers, trivially decodable here.
func encodeCursor(offset int) string {
	return base64.RawURLEncoding.EncodeToString([]byte("off:" + strconv.Itoa(offset)))
}

func decodeCursor(cursor string) (int, error) {
	if cursor == "" {
		return 0, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return 0, err
	}
	val, ok := strings.CutPrefix(string(raw), "off:")
	if !ok {
		return 0, fmt.Errorf("malformed cursor")
	}
	offset, err := strconv.Atoi(val)
	if err != nil || offset < 0 {
		return 0, fmt.Errorf("malformed cursor offset")
	}
	return offset, nil
}
