package pricing

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-pedidos/internal/catalog"
)

var one = decimal.NewFromInt(1)

// LineAmounts holds the pre-discount pricing of one cart line.
type LineAmounts struct {
	Name         string
	UnitSubtotal decimal.Decimal
	UnitTotal    decimal.Decimal
	Subtotal     decimal.Decimal
	Total        decimal.Decimal
	Added        []string
}

// taxExclusive converts a tax-inclusive amount when taxable is set.
func taxExclusive(amount decimal.Decimal, taxable bool, taxRate decimal.Decimal) decimal.Decimal {
	if !taxable {
		return amount
	}
	return amount.Div(one.Add(taxRate))
}

// PriceProductLine prices a product line before any discount. Add-on names that
// do not match an extra of the product are ignored.
func PriceProductLine(line CartLine, item catalog.Product, taxRate decimal.Decimal) (LineAmounts, error) {
	if line.Kind != LineProduct || strings.TrimSpace(line.ProductID) == "" {
		return LineAmounts{}, validationError("Each item must have either productId or packageId")
	}
	if line.Quantity <= 0 {
		return LineAmounts{}, validationError(fmt.Sprintf("Invalid quantity for item %s: must be a positive integer", line.ProductID))
	}

	unitTotal := item.Price
	unitSubtotal := item.Subtotal(taxRate)
	var added []string
	for _, name := range line.Customizations.Added {
		extra, ok := item.FindExtra(name)
		if !ok {
			continue
		}
		unitTotal = unitTotal.Add(extra.Price)
		unitSubtotal = unitSubtotal.Add(taxExclusive(extra.Price, item.IsTaxable, taxRate))
		added = append(added, extra.Name)
	}

	qty := decimal.NewFromInt(int64(line.Quantity))
	return LineAmounts{
		Name:         displayName(item.Name, added),
		UnitSubtotal: unitSubtotal,
		UnitTotal:    unitTotal,
		Subtotal:     unitSubtotal.Mul(qty),
		Total:        unitTotal.Mul(qty),
		Added:        added,
	}, nil
}

func displayName(base string, added []string) string {
	if len(added) == 0 {
		return base
	}
	return fmt.Sprintf("%s (+ %s)", base, strings.Join(added, ", "))
}
