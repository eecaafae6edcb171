package mirror

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"kedaipos/backend/internal/domain"
	"kedaipos/backend/internal/store"
)

// Store pairs the authoritative in-memory Repository with a best-effort
// durable one. Reads always come from the primary; writes land in the primary
// first and are then mirrored. A durable failure degrades persistence but
// never fails the operation: the terminal keeps selling.
type Store struct {
	primary store.Repository
	durable store.Repository
	log     zerolog.Logger
}

func New(primary, durable store.Repository, log zerolog.Logger) *Store {
	return &Store{
		primary: primary,
		durable: durable,
		log:     log.With().Str("component", "mirror").Logger(),
	}
}

// Hydrate copies the durable state into the primary at startup so a restarted
// terminal resumes with its catalog, settings and sales history intact.
func (s *Store) Hydrate(ctx context.Context) error {
	products, err := s.durable.ListProducts(ctx, true)
	if err != nil {
		return err
	}
	for _, p := range products {
		if _, err := s.primary.UpdateProduct(ctx, p); err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				return err
			}
			if _, err := s.primary.CreateProduct(ctx, p); err != nil {
				return err
			}
		}
	}

	settings, err := s.durable.GetSettings(ctx)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	if settings != nil {
		if err := s.primary.SaveSettings(ctx, *settings); err != nil {
			return err
		}
	}

	sales, err := s.durable.ListSalesSince(ctx, 0)
	if err != nil {
		return err
	}
	for _, record := range sales {
		if err := s.primary.AppendSale(ctx, record); err != nil {
			return err
		}
	}

	s.log.Info().
		Int("products", len(products)).
		Int("sales", len(sales)).
		Msg("hydrated from durable store")
	return nil
}

func (s *Store) mirrorErr(op string, err error) {
	if err != nil {
		s.log.Warn().Err(err).Str("op", op).Msg("persistence unavailable")
	}
}

func (s *Store) ListProducts(ctx context.Context, includeInactive bool) ([]domain.Product, error) {
	return s.primary.ListProducts(ctx, includeInactive)
}

func (s *Store) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	return s.primary.GetProduct(ctx, id)
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	created, err := s.primary.CreateProduct(ctx, product)
	if err != nil {
		return nil, err
	}
	_, derr := s.durable.CreateProduct(ctx, product)
	s.mirrorErr("create_product", derr)
	return created, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	updated, err := s.primary.UpdateProduct(ctx, product)
	if err != nil {
		return nil, err
	}
	_, derr := s.durable.UpdateProduct(ctx, product)
	if derr != nil && errors.Is(derr, store.ErrNotFound) {
		_, derr = s.durable.CreateProduct(ctx, product)
	}
	s.mirrorErr("update_product", derr)
	return updated, nil
}

func (s *Store) ListSizeOptions(ctx context.Context) ([]domain.SizeOption, error) {
	return s.primary.ListSizeOptions(ctx)
}

func (s *Store) ListToppings(ctx context.Context) ([]domain.Topping, error) {
	return s.primary.ListToppings(ctx)
}

func (s *Store) GetSettings(ctx context.Context) (*domain.ShopSettings, error) {
	return s.primary.GetSettings(ctx)
}

func (s *Store) SaveSettings(ctx context.Context, settings domain.ShopSettings) error {
	if err := s.primary.SaveSettings(ctx, settings); err != nil {
		return err
	}
	s.mirrorErr("save_settings", s.durable.SaveSettings(ctx, settings))
	return nil
}

func (s *Store) AppendSale(ctx context.Context, record domain.SaleRecord) error {
	if err := s.primary.AppendSale(ctx, record); err != nil {
		return err
	}
	s.mirrorErr("append_sale", s.durable.AppendSale(ctx, record))
	return nil
}

func (s *Store) ListSales(ctx context.Context, limit int) ([]domain.SaleRecord, error) {
	return s.primary.ListSales(ctx, limit)
}

func (s *Store) ListSalesSince(ctx context.Context, since int64) ([]domain.SaleRecord, error) {
	return s.primary.ListSalesSince(ctx, since)
}

// QuerySales prefers the durable store when present: it is the one with real
// filter columns. The primary answers when there is no durable store.
func (s *Store) QuerySales(ctx context.Context, query domain.SalesQuery) (domain.SalesPage, error) {
	return s.durable.QuerySales(ctx, query)
}
