package postgres

import (
	"context"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"kedaipos/backend/internal/domain"
	"kedaipos/backend/internal/store"
)

// Store is the durable Repository over PostgreSQL. Sale lines and customer
// blocks are stored as jsonb; the filterable sale fields are real columns.
type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &Store{db: db}
	if err := s.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS products (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			unit_price BIGINT NOT NULL,
			category TEXT NOT NULL DEFAULT '',
			active BOOLEAN NOT NULL DEFAULT TRUE
		)`,
		`CREATE TABLE IF NOT EXISTS size_options (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			price_delta BIGINT NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS toppings (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			price BIGINT NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS shop_settings (
			id SMALLINT PRIMARY KEY DEFAULT 1,
			shop_name TEXT NOT NULL DEFAULT '',
			tax_rate_percent DOUBLE PRECISION NOT NULL DEFAULT 0,
			service_rate_percent DOUBLE PRECISION NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS sales (
			id TEXT PRIMARY KEY,
			created_at TIMESTAMPTZ NOT NULL,
			timestamp_ms BIGINT NOT NULL,
			lines JSONB NOT NULL,
			subtotal BIGINT NOT NULL,
			discount_amount BIGINT NOT NULL,
			tax_rate_applied DOUBLE PRECISION NOT NULL,
			service_rate_applied DOUBLE PRECISION NOT NULL,
			total BIGINT NOT NULL,
			pay_method TEXT NOT NULL,
			cash_tendered BIGINT NOT NULL,
			change BIGINT NOT NULL,
			outlet TEXT NOT NULL DEFAULT '',
			shift_id TEXT NOT NULL DEFAULT '',
			cashier_id TEXT NOT NULL DEFAULT '',
			customer JSONB NOT NULL DEFAULT '{}'::jsonb
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sales_timestamp ON sales (timestamp_ms DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_sales_outlet_time ON sales (outlet, timestamp_ms DESC)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func (s *Store) ListProducts(ctx context.Context, includeInactive bool) ([]domain.Product, error) {
	query := `SELECT id, name, unit_price, category, active FROM products`
	if !includeInactive {
		query += ` WHERE active`
	}
	query += ` ORDER BY name`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Product, 0)
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.UnitPrice, &p.Category, &p.Active); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	var p domain.Product
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, unit_price, category, active FROM products WHERE id = $1`, id,
	).Scan(&p.ID, &p.Name, &p.UnitPrice, &p.Category, &p.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("product %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return &p, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO products (id, name, unit_price, category, active) VALUES ($1, $2, $3, $4, $5)`,
		product.ID, product.Name, product.UnitPrice, product.Category, product.Active,
	)
	if err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	return &product, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE products SET name = $2, unit_price = $3, category = $4, active = $5 WHERE id = $1`,
		product.ID, product.Name, product.UnitPrice, product.Category, product.Active,
	)
	if err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}
	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		return nil, fmt.Errorf("product %s: %w", product.ID, store.ErrNotFound)
	}
	return &product, nil
}

func (s *Store) ListSizeOptions(ctx context.Context) ([]domain.SizeOption, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, price_delta FROM size_options ORDER BY price_delta`)
	if err != nil {
		return nil, fmt.Errorf("list sizes: %w", err)
	}
	defer rows.Close()

	out := make([]domain.SizeOption, 0)
	for rows.Next() {
		var o domain.SizeOption
		if err := rows.Scan(&o.ID, &o.Name, &o.PriceDelta); err != nil {
			return nil, fmt.Errorf("scan size: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *Store) ListToppings(ctx context.Context) ([]domain.Topping, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, price FROM toppings ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list toppings: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Topping, 0)
	for rows.Next() {
		var t domain.Topping
		if err := rows.Scan(&t.ID, &t.Name, &t.Price); err != nil {
			return nil, fmt.Errorf("scan topping: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) GetSettings(ctx context.Context) (*domain.ShopSettings, error) {
	var settings domain.ShopSettings
	err := s.db.QueryRowContext(ctx,
		`SELECT shop_name, tax_rate_percent, service_rate_percent FROM shop_settings WHERE id = 1`,
	).Scan(&settings.ShopName, &settings.TaxRatePercent, &settings.ServiceRatePercent)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("settings: %w", store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	return &settings, nil
}

func (s *Store) SaveSettings(ctx context.Context, settings domain.ShopSettings) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO shop_settings (id, shop_name, tax_rate_percent, service_rate_percent)
		 VALUES (1, $1, $2, $3)
		 ON CONFLICT (id) DO UPDATE SET
		   shop_name = EXCLUDED.shop_name,
		   tax_rate_percent = EXCLUDED.tax_rate_percent,
		   service_rate_percent = EXCLUDED.service_rate_percent`,
		settings.ShopName, settings.TaxRatePercent, settings.ServiceRatePercent,
	)
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

func (s *Store) AppendSale(ctx context.Context, record domain.SaleRecord) error {
	lines, err := json.Marshal(record.Lines)
	if err != nil {
		return fmt.Errorf("encode sale lines: %w", err)
	}
	customer, err := json.Marshal(record.Customer)
	if err != nil {
		return fmt.Errorf("encode sale customer: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sales (
			id, created_at, timestamp_ms, lines, subtotal, discount_amount,
			tax_rate_applied, service_rate_applied, total, pay_method,
			cash_tendered, change, outlet, shift_id, cashier_id, customer
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		record.ID, record.CreatedAt, record.TimestampMs, lines, record.Subtotal,
		record.DiscountAmount, record.TaxRateApplied, record.ServiceRateApplied,
		record.Total, record.PayMethod, record.CashTendered, record.Change,
		record.Outlet, record.ShiftID, record.CashierID, customer,
	)
	if err != nil {
		return fmt.Errorf("append sale: %w", err)
	}
	return nil
}

const saleColumns = `id, created_at, timestamp_ms, lines, subtotal, discount_amount,
	tax_rate_applied, service_rate_applied, total, pay_method,
	cash_tendered, change, outlet, shift_id, cashier_id, customer`

func (s *Store) ListSales(ctx context.Context, limit int) ([]domain.SaleRecord, error) {
	query := `SELECT ` + saleColumns + ` FROM sales ORDER BY timestamp_ms DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}
	return s.querySaleRows(ctx, query, args...)
}

func (s *Store) ListSalesSince(ctx context.Context, since int64) ([]domain.SaleRecord, error) {
	query := `SELECT ` + saleColumns + ` FROM sales WHERE timestamp_ms >= $1 ORDER BY timestamp_ms`
	return s.querySaleRows(ctx, query, since)
}

func (s *Store) QuerySales(ctx context.Context, query domain.SalesQuery) (domain.SalesPage, error) {
	where := make([]string, 0, 6)
	args := make([]any, 0, 8)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if query.Outlet != "" {
		where = append(where, "outlet = "+arg(query.Outlet))
	}
	if query.ShiftID != "" {
		where = append(where, "shift_id = "+arg(query.ShiftID))
	}
	if query.CashierID != "" {
		where = append(where, "cashier_id = "+arg(query.CashierID))
	}
	if query.CustomerPhone != "" {
		where = append(where, "customer->>'phone' = "+arg(query.CustomerPhone))
	}
	if query.From != nil {
		where = append(where, "created_at >= "+arg(*query.From))
	}
	if query.To != nil {
		where = append(where, "created_at < "+arg(*query.To))
	}

	offset, err := decodeCursor(query.Cursor)
	if err != nil {
		return domain.SalesPage{}, fmt.Errorf("bad cursor: %w", store.ErrValidation)
	}
	pageSize := query.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	sqlQuery := `SELECT ` + saleColumns + ` FROM sales`
	if len(where) > 0 {
		sqlQuery += ` WHERE ` + strings.Join(where, " AND ")
	}
	// Fetch one extra row to decide whether another page exists.
	sqlQuery += ` ORDER BY timestamp_ms DESC LIMIT ` + arg(pageSize+1) + ` OFFSET ` + arg(offset)

	rows, err := s.querySaleRows(ctx, sqlQuery, args...)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "42703" {
			return domain.SalesPage{}, fmt.Errorf(
				"sales filter needs a column the schema is missing (%s): %w",
				pgErr.Message, store.ErrQueryCapability,
			)
		}
		return domain.SalesPage{}, err
	}

	page := domain.SalesPage{Rows: rows}
	if len(rows) > pageSize {
		page.Rows = rows[:pageSize]
		page.NextCursor = encodeCursor(offset + pageSize)
	}
	return page, nil
}

func (s *Store) querySaleRows(ctx context.Context, query string, args ...any) ([]domain.SaleRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sales: %w", err)
	}
	defer rows.Close()

	out := make([]domain.SaleRecord, 0)
	for rows.Next() {
		var r domain.SaleRecord
		var lines, customer []byte
		err := rows.Scan(
			&r.ID, &r.CreatedAt, &r.TimestampMs, &lines, &r.Subtotal, &r.DiscountAmount,
			&r.TaxRateApplied, &r.ServiceRateApplied, &r.Total, &r.PayMethod,
			&r.CashTendered, &r.Change, &r.Outlet, &r.ShiftID, &r.CashierID, &customer,
		)
		if err != nil {
			return nil, fmt.Errorf("scan sale: %w", err)
		}
		if err := json.Unmarshal(lines, &r.Lines); err != nil {
			return nil, fmt.Errorf("decode sale lines: %w", err)
		}
		if err := json.Unmarshal(customer, &r.Customer); err != nil {
			return nil, fmt.Errorf("decode sale customer: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

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
