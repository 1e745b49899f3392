package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// TypePackage is the discriminator stored on package rows.
const TypePackage = "package"

// RowQuerier is the subset of pgxpool.Pool used by Store.
type RowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store reads products and packages from PostgreSQL. Every call is a fresh lookup.
type Store struct {
	DB RowQuerier
}

// NewStore constructs a Store over the given pool.
func NewStore(db RowQuerier) *Store {
	return &Store{DB: db}
}

const getProductSQL = `
SELECT id, name, price::text, base_price::text, is_taxable, COALESCE(category_id, ''), extras
FROM products
WHERE id = $1`

// ResolveProduct loads the product identified by id.
func (s *Store) ResolveProduct(ctx context.Context, id string) (Product, error) {
	if s == nil || s.DB == nil {
		return Product{}, fmt.Errorf("%w: store not configured", ErrUnavailable)
	}
	var (
		p         Product
		price     string
		basePrice *string
		extras    []byte
	)
	err := s.DB.QueryRow(ctx, getProductSQL, id).Scan(&p.ID, &p.Name, &price, &basePrice, &p.IsTaxable, &p.CategoryID, &extras)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, fmt.Errorf("%w: product %s", ErrNotFound, id)
		}
		return Product{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if p.Price, err = decimal.NewFromString(price); err != nil {
		return Product{}, fmt.Errorf("product %s price: %w", id, err)
	}
	if basePrice != nil {
		bp, err := decimal.NewFromString(*basePrice)
		if err != nil {
			return Product{}, fmt.Errorf("product %s base price: %w", id, err)
		}
		p.BasePrice = &bp
	}
	if len(extras) > 0 {
		if err := json.Unmarshal(extras, &p.Extras); err != nil {
			return Product{}, fmt.Errorf("product %s extras: %w", id, err)
		}
	}
	return p, nil
}

const getPackageSQL = `
SELECT id, name, type, COALESCE(package_price, 0)::text, package_items
FROM promotions
WHERE id = $1`

// ResolvePackage loads the package identified by id. Records that exist but are
// not packages yield ErrInvalidType.
func (s *Store) ResolvePackage(ctx context.Context, id string) (Package, error) {
	if s == nil || s.DB == nil {
		return Package{}, fmt.Errorf("%w: store not configured", ErrUnavailable)
	}
	var (
		pkg   Package
		kind  string
		price string
		items []byte
	)
	err := s.DB.QueryRow(ctx, getPackageSQL, id).Scan(&pkg.ID, &pkg.Name, &kind, &price, &items)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Package{}, fmt.Errorf("%w: package %s", ErrNotFound, id)
		}
		return Package{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if kind != TypePackage {
		return Package{}, fmt.Errorf("%w: %s has type %q", ErrInvalidType, id, kind)
	}
	if pkg.Price, err = decimal.NewFromString(price); err != nil {
		return Package{}, fmt.Errorf("package %s price: %w", id, err)
	}
	if len(items) > 0 {
		if err := json.Unmarshal(items, &pkg.Items); err != nil {
			return Package{}, fmt.Errorf("package %s items: %w", id, err)
		}
	}
	return pkg, nil
}
