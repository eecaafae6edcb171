package store

import (
	"context"
	"errors"

	"kedaipos/backend/internal/domain"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrValidation          = errors.New("validation failed")
	ErrInvalidVariant      = errors.New("invalid variant")
	ErrInsufficientPayment = errors.New("insufficient payment")

	// ErrQueryCapability means the backing store cannot serve the requested
	// filter combination (missing index or column). It is distinguishable from
	// an empty result on purpose: data may still exist.
	ErrQueryCapability = errors.New("store cannot serve this query")
)

type Repository interface {
	ListProducts(ctx context.Context, includeInactive bool) ([]domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)

	ListSizeOptions(ctx context.Context) ([]domain.SizeOption, error)
	ListToppings(ctx context.Context) ([]domain.Topping, error)

	GetSettings(ctx context.Context) (*domain.ShopSettings, error)
	SaveSettings(ctx context.Context, settings domain.ShopSettings) error

	// AppendSale is the only write into the sales log; records are never
	// updated or deleted afterwards.
	AppendSale(ctx context.Context, record domain.SaleRecord) error
	ListSales(ctx context.Context, limit int) ([]domain.SaleRecord, error)
	ListSalesSince(ctx context.Context, since int64) ([]domain.SaleRecord, error)
	QuerySales(ctx context.Context, query domain.SalesQuery) (domain.SalesPage, error)
}
