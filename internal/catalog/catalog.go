// Package catalog resolves products and packages to their current sale price.
package catalog

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	// ErrNotFound is returned when no record exists for the requested identifier.
	ErrNotFound = errors.New("catalog: record not found")
	// ErrInvalidType indicates a package lookup hit a record that is not a package.
	ErrInvalidType = errors.New("catalog: record is not a package")
	// ErrUnavailable wraps failures of the backing store.
	ErrUnavailable = errors.New("catalog: store unavailable")
)

// Extra is an optional add-on that can be attached to a product.
type Extra struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// Product is a sellable catalog item. Price is tax-inclusive.
type Product struct {
	ID         string
	Name       string
	Price      decimal.Decimal
	BasePrice  *decimal.Decimal
	IsTaxable  bool
	CategoryID string
	Extras     []Extra
}

// Subtotal returns the tax-exclusive unit price. A stored base price wins;
// otherwise taxable items are divided by (1+taxRate).
func (p Product) Subtotal(taxRate decimal.Decimal) decimal.Decimal {
	if p.BasePrice != nil {
		return *p.BasePrice
	}
	if p.IsTaxable {
		return p.Price.Div(decimal.NewFromInt(1).Add(taxRate))
	}
	return p.Price
}

// FindExtra returns the add-on whose name matches exactly.
func (p Product) FindExtra(name string) (Extra, bool) {
	for _, e := range p.Extras {
		if e.Name == name {
			return e, true
		}
	}
	return Extra{}, false
}

// PackageItem is one constituent of a package.
type PackageItem struct {
	ProductID string `json:"productId"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
}

// Package is a fixed-price bundle. Packages are always taxable.
type Package struct {
	ID    string
	Name  string
	Price decimal.Decimal
	Items []PackageItem
}
