package pricing

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-pedidos/internal/catalog"
)

// PackageItemDetail describes one constituent of a priced package line.
type PackageItemDetail struct {
	ProductID             string
	Name                  string
	Quantity              int
	AddedCustomizations   []string
	RemovedCustomizations []string
}

// PackageAmounts holds the pricing of one package line.
type PackageAmounts struct {
	LineAmounts
	Items []PackageItemDetail
}

// PricePackageLine prices a package line. Every constituent is resolved, and
// add-ons are charged per constituent quantity inside the package before the
// outer line quantity is applied. A failed constituent lookup fails the line.
func PricePackageLine(ctx context.Context, line CartLine, pkg catalog.Package, reader CatalogReader, taxRate decimal.Decimal) (PackageAmounts, error) {
	if err := line.Validate(); err != nil {
		return PackageAmounts{}, err
	}
	if line.Kind != LinePackage {
		return PackageAmounts{}, validationError("Each item must have either productId or packageId")
	}

	unitTotal := pkg.Price
	unitSubtotal := taxExclusive(pkg.Price, true, taxRate)
	details := make([]PackageItemDetail, 0, len(pkg.Items))

	for _, constituent := range pkg.Items {
		item, err := reader.ResolveProduct(ctx, constituent.ProductID)
		if err != nil {
			return PackageAmounts{}, productLookupError(constituent.ProductID, err)
		}
		custom := line.PackageCustomizations[constituent.ProductID]
		inner := decimal.NewFromInt(int64(constituent.Quantity))
		var added []string
		for _, name := range custom.Added {
			extra, ok := item.FindExtra(name)
			if !ok {
				continue
			}
			unitTotal = unitTotal.Add(extra.Price.Mul(inner))
			unitSubtotal = unitSubtotal.Add(taxExclusive(extra.Price, item.IsTaxable, taxRate).Mul(inner))
			added = append(added, extra.Name)
		}
		name := constituent.Name
		if name == "" {
			name = item.Name
		}
		details = append(details, PackageItemDetail{
			ProductID:             constituent.ProductID,
			Name:                  name,
			Quantity:              constituent.Quantity,
			AddedCustomizations:   added,
			RemovedCustomizations: custom.Removed,
		})
	}

	qty := decimal.NewFromInt(int64(line.Quantity))
	return PackageAmounts{
		LineAmounts: LineAmounts{
			Name:         pkg.Name,
			UnitSubtotal: unitSubtotal,
			UnitTotal:    unitTotal,
			Subtotal:     unitSubtotal.Mul(qty),
			Total:        unitTotal.Mul(qty),
		},
		Items: details,
	}, nil
}
