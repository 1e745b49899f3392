package pricing_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pedidos/internal/catalog"
	"github.com/noah-isme/backend-pedidos/internal/common"
	"github.com/noah-isme/backend-pedidos/internal/pricing"
	"github.com/noah-isme/backend-pedidos/internal/promotion"
)

const tolerance = 1e-9

func newEngine(t *testing.T, cat *fakeCatalog, promos *fakePromotions) *pricing.Engine {
	t.Helper()
	if promos == nil {
		promos = &fakePromotions{}
	}
	engine, err := pricing.NewEngine(pricing.EngineConfig{
		Catalog:     cat,
		Promotions:  promos,
		TaxRate:     pricing.DefaultTaxRate,
		Concurrency: 4,
	})
	require.NoError(t, err)
	return engine
}

func requireAmount(t *testing.T, want float64, got decimal.Decimal) {
	t.Helper()
	require.InDelta(t, want, got.InexactFloat64(), tolerance)
}

func TestNewEngineRequiresDependencies(t *testing.T) {
	_, err := pricing.NewEngine(pricing.EngineConfig{Promotions: &fakePromotions{}})
	require.Error(t, err)
	_, err = pricing.NewEngine(pricing.EngineConfig{Catalog: newFakeCatalog()})
	require.Error(t, err)
	_, err = pricing.NewEngine(pricing.EngineConfig{
		Catalog:    newFakeCatalog(),
		Promotions: &fakePromotions{},
		TaxRate:    dec("-0.1"),
	})
	require.Error(t, err)
}

func TestVerifyTaxInclusivePrice(t *testing.T) {
	cat := newFakeCatalog().addProduct(taxable("p1", "Combo", "116"))
	report, err := newEngine(t, cat, nil).VerifyCartTotals(context.Background(), []pricing.CartLine{
		pricing.ProductLine("p1", 2),
	})
	require.NoError(t, err)
	require.Len(t, report.Items, 1)

	line := report.Items[0]
	requireAmount(t, 100, line.UnitSubtotal)
	requireAmount(t, 116, line.UnitTotal)
	requireAmount(t, 200, line.Subtotal)
	requireAmount(t, 232, line.Total)
	require.Nil(t, line.AppliedPromotion)

	requireAmount(t, 200, report.Summary.SubtotalGeneral)
	requireAmount(t, 232, report.Summary.TotalFinal)
	requireAmount(t, 32, report.Summary.IvaDesglosado)
	require.Nil(t, report.Summary.AppliedOrderPromotion)
}

func TestVerifyAddOnPricing(t *testing.T) {
	cat := newFakeCatalog().addProduct(taxable("burger", "Hamburguesa", "116", extra("Queso", "11.6"), extra("Tocino", "20")))
	report, err := newEngine(t, cat, nil).VerifyCartTotals(context.Background(), []pricing.CartLine{
		pricing.ProductLine("burger", 1, "Queso", "Nope"),
	})
	require.NoError(t, err)

	line := report.Items[0]
	require.Equal(t, "Hamburguesa (+ Queso)", line.Name)
	requireAmount(t, 127.6, line.Total)
	requireAmount(t, 110, line.Subtotal)
	requireAmount(t, 17.6, report.Summary.IvaDesglosado)
}

func TestVerifyStoredBasePriceWins(t *testing.T) {
	base := dec("90")
	product := taxable("p1", "Plato", "116")
	product.BasePrice = &base
	cat := newFakeCatalog().addProduct(product)

	report, err := newEngine(t, cat, nil).VerifyCartTotals(context.Background(), []pricing.CartLine{
		pricing.ProductLine("p1", 1),
	})
	require.NoError(t, err)
	requireAmount(t, 90, report.Items[0].Subtotal)
	requireAmount(t, 116, report.Items[0].Total)
}

func TestVerifyNonTaxableProduct(t *testing.T) {
	product := catalog.Product{ID: "soda", Name: "Refresco", Price: dec("25"), Extras: []catalog.Extra{extra("Hielo", "5")}}
	cat := newFakeCatalog().addProduct(product)

	report, err := newEngine(t, cat, nil).VerifyCartTotals(context.Background(), []pricing.CartLine{
		pricing.ProductLine("soda", 2, "Hielo"),
	})
	require.NoError(t, err)
	requireAmount(t, 60, report.Items[0].Subtotal)
	requireAmount(t, 60, report.Items[0].Total)
	requireAmount(t, 0, report.Summary.IvaDesglosado)
}

func TestVerifyOrderLevelPercentage(t *testing.T) {
	cat := newFakeCatalog().addProduct(taxable("p1", "Plato", "100"))
	promos := &fakePromotions{promos: []promotion.Promotion{
		percentage("total", "10", promotion.ScopeTotalOrder),
	}}
	report, err := newEngine(t, cat, promos).VerifyCartTotals(context.Background(), []pricing.CartLine{
		pricing.ProductLine("p1", 1),
	})
	require.NoError(t, err)

	preSubtotal := 100 / 1.16
	requireAmount(t, 90, report.Summary.TotalFinal)
	requireAmount(t, preSubtotal*0.9, report.Summary.SubtotalGeneral)
	requireAmount(t, 90-preSubtotal*0.9, report.Summary.IvaDesglosado)
	require.NotNil(t, report.Summary.AppliedOrderPromotion)
	require.Equal(t, "total", report.Summary.AppliedOrderPromotion.ID)
	requireAmount(t, 10, report.Summary.AppliedOrderPromotion.Discount)
	require.Equal(t, int32(1), promos.calls.Load())
}

func TestVerifyFirstMatchingLinePromotionWins(t *testing.T) {
	product := taxable("pizza", "Pizza", "200")
	product.CategoryID = "cat-pizzas"
	cat := newFakeCatalog().addProduct(product)
	promos := &fakePromotions{promos: []promotion.Promotion{
		percentage("small", "10", promotion.ScopeCategory, "cat-pizzas"),
		percentage("big", "50", promotion.ScopeProduct, "pizza"),
	}}

	report, err := newEngine(t, cat, promos).VerifyCartTotals(context.Background(), []pricing.CartLine{
		pricing.ProductLine("pizza", 1),
	})
	require.NoError(t, err)

	line := report.Items[0]
	require.NotNil(t, line.AppliedPromotion)
	require.Equal(t, "small", line.AppliedPromotion.ID)
	requireAmount(t, 20, line.AppliedPromotion.Discount)
	requireAmount(t, 180, line.Total)
	requireAmount(t, 200/1.16*0.9, line.Subtotal)
}

func TestVerifyFixedAmountLinePromotion(t *testing.T) {
	cat := newFakeCatalog().addProduct(taxable("pizza", "Pizza", "200"))
	promos := &fakePromotions{promos: []promotion.Promotion{
		fixed("fifty", "50", promotion.ScopeProduct, "pizza"),
	}}

	report, err := newEngine(t, cat, promos).VerifyCartTotals(context.Background(), []pricing.CartLine{
		pricing.ProductLine("pizza", 1),
	})
	require.NoError(t, err)
	line := report.Items[0]
	requireAmount(t, 150, line.Total)
	requireAmount(t, 150/1.16, line.Subtotal)
}

func TestVerifyFixedAmountIsNotClamped(t *testing.T) {
	cat := newFakeCatalog().addProduct(taxable("p1", "Agua", "10"))
	promos := &fakePromotions{promos: []promotion.Promotion{
		fixed("huge", "50", promotion.ScopeProduct, "p1"),
	}}
	report, err := newEngine(t, cat, promos).VerifyCartTotals(context.Background(), []pricing.CartLine{
		pricing.ProductLine("p1", 1),
	})
	require.NoError(t, err)
	requireAmount(t, -40, report.Items[0].Total)
}

func TestVerifyTaxConsistencyForTaxableLines(t *testing.T) {
	rate := 0.16
	cat := newFakeCatalog().addProduct(taxable("burger", "Hamburguesa", "87.35",
		extra("Queso", "13.10"), extra("Aguacate", "19.99"), extra("Tocino", "7.77")))
	combos := [][]string{
		nil,
		{"Queso"},
		{"Aguacate", "Tocino"},
		{"Queso", "Aguacate", "Tocino"},
		{"Tocino", "Tocino"},
	}
	engine := newEngine(t, cat, nil)
	for i, added := range combos {
		t.Run(fmt.Sprintf("combo-%d", i), func(t *testing.T) {
			report, err := engine.VerifyCartTotals(context.Background(), []pricing.CartLine{
				pricing.ProductLine("burger", 3, added...),
			})
			require.NoError(t, err)
			line := report.Items[0]
			total := line.Total.InexactFloat64()
			tax := line.Total.Sub(line.Subtotal).InexactFloat64()
			require.InDelta(t, total*rate/(1+rate), tax, tolerance)
		})
	}
}

func TestVerifyIsIdempotent(t *testing.T) {
	product := taxable("burger", "Hamburguesa", "80", extra("Queso Extra", "15"))
	product.CategoryID = "cat-comida"
	cat := newFakeCatalog().
		addProduct(product).
		addProduct(taxable("fries", "Papas", "40")).
		addPackage(catalog.Package{ID: "combo", Name: "Combo", Price: dec("120"), Items: []catalog.PackageItem{
			{ProductID: "burger", Name: "Hamburguesa", Quantity: 1},
			{ProductID: "fries", Name: "Papas", Quantity: 1},
		}})
	promos := &fakePromotions{promos: []promotion.Promotion{
		percentage("comida", "15", promotion.ScopeCategory, "cat-comida"),
		percentage("total", "10", promotion.ScopeTotalOrder),
	}}
	lines := []pricing.CartLine{
		pricing.ProductLine("burger", 2, "Queso Extra"),
		pricing.PackageLine("combo", 1, map[string]pricing.Customizations{"burger": {Added: []string{"Queso Extra"}}}),
		pricing.ProductLine("fries", 3),
	}
	engine := newEngine(t, cat, promos)

	first, err := engine.VerifyCartTotals(context.Background(), lines)
	require.NoError(t, err)
	second, err := engine.VerifyCartTotals(context.Background(), lines)
	require.NoError(t, err)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	require.Equal(t, string(a), string(b))
}

func TestVerifyKeepsInputOrder(t *testing.T) {
	cat := newFakeCatalog()
	var lines []pricing.CartLine
	for i := 0; i < 25; i++ {
		id := fmt.Sprintf("p%02d", i)
		cat.addProduct(taxable(id, "Producto "+id, fmt.Sprintf("%d", 10+i)))
		lines = append(lines, pricing.ProductLine(id, 1))
	}
	report, err := newEngine(t, cat, nil).VerifyCartTotals(context.Background(), lines)
	require.NoError(t, err)
	require.Len(t, report.Items, len(lines))
	for i, item := range report.Items {
		require.Equal(t, lines[i].ProductID, item.ProductID)
	}
}

func TestVerifyUnknownProduct(t *testing.T) {
	cat := newFakeCatalog().addProduct(taxable("p1", "Plato", "100"))
	_, err := newEngine(t, cat, nil).VerifyCartTotals(context.Background(), []pricing.CartLine{
		pricing.ProductLine("p1", 1),
		pricing.ProductLine("ghost", 1),
	})
	require.Error(t, err)
	require.ErrorIs(t, err, pricing.ErrNotFound)
	require.ErrorIs(t, err, catalog.ErrNotFound)
	require.Contains(t, err.Error(), "no encontrado")
	require.Equal(t, http.StatusBadRequest, common.StatusOf(err))
}

func TestVerifyReportsEarliestFailingLine(t *testing.T) {
	cat := newFakeCatalog()
	cat.delays["first"] = 20 * time.Millisecond
	_, err := newEngine(t, cat, nil).VerifyCartTotals(context.Background(), []pricing.CartLine{
		pricing.ProductLine("first", 1),
		pricing.ProductLine("second", 1),
	})
	require.ErrorIs(t, err, pricing.ErrNotFound)
	require.Equal(t, "Producto con ID first no encontrado.", err.Error())
}

func TestVerifyUnknownPackage(t *testing.T) {
	_, err := newEngine(t, newFakeCatalog(), nil).VerifyCartTotals(context.Background(), []pricing.CartLine{
		pricing.PackageLine("ghost", 1, nil),
	})
	require.ErrorIs(t, err, pricing.ErrNotFound)
	require.Equal(t, "Paquete con ID ghost no encontrado.", err.Error())
}

func TestVerifyIDIsNotAPackage(t *testing.T) {
	cat := newFakeCatalog()
	cat.notPackages["promo-total"] = true
	_, err := newEngine(t, cat, nil).VerifyCartTotals(context.Background(), []pricing.CartLine{
		pricing.PackageLine("promo-total", 1, nil),
	})
	require.ErrorIs(t, err, pricing.ErrNotFound)
	require.ErrorIs(t, err, catalog.ErrInvalidType)
	require.Equal(t, "El ID promo-total no corresponde a un paquete.", err.Error())
}

func TestVerifyCatalogFailureIsUnavailable(t *testing.T) {
	cat := newFakeCatalog()
	cat.err = errors.New("connection reset")
	_, err := newEngine(t, cat, nil).VerifyCartTotals(context.Background(), []pricing.CartLine{
		pricing.ProductLine("p1", 1),
	})
	require.ErrorIs(t, err, pricing.ErrUnavailable)
	require.Equal(t, http.StatusInternalServerError, common.StatusOf(err))
}

func TestVerifyPromotionFailureIsUnavailable(t *testing.T) {
	cat := newFakeCatalog().addProduct(taxable("p1", "Plato", "100"))
	promos := &fakePromotions{err: errors.New("timeout")}
	_, err := newEngine(t, cat, promos).VerifyCartTotals(context.Background(), []pricing.CartLine{
		pricing.ProductLine("p1", 1),
	})
	require.ErrorIs(t, err, pricing.ErrUnavailable)
	require.Zero(t, cat.callCount())
}

func TestVerifyRejectsInvalidLinesBeforeLookups(t *testing.T) {
	cat := newFakeCatalog().addProduct(taxable("p1", "Plato", "100"))
	promos := &fakePromotions{}
	_, err := newEngine(t, cat, promos).VerifyCartTotals(context.Background(), []pricing.CartLine{
		pricing.ProductLine("p1", 1),
		pricing.ProductLine("p1", 0),
	})
	require.ErrorIs(t, err, pricing.ErrValidation)
	require.Zero(t, cat.callCount())
	require.Zero(t, promos.calls.Load())
}

func TestVerifyEmptyCart(t *testing.T) {
	promos := &fakePromotions{promos: []promotion.Promotion{
		fixed("total", "50", promotion.ScopeTotalOrder),
	}}
	report, err := newEngine(t, newFakeCatalog(), promos).VerifyCartTotals(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, report.Items)
	require.True(t, report.Summary.SubtotalGeneral.IsZero())
	require.True(t, report.Summary.IvaDesglosado.IsZero())
	require.True(t, report.Summary.TotalFinal.IsZero())
	require.Nil(t, report.Summary.AppliedOrderPromotion)

	body, err := json.Marshal(report)
	require.NoError(t, err)
	require.JSONEq(t, `{"items":[],"summary":{"subtotalGeneral":0,"ivaDesglosado":0,"totalFinal":0,"appliedOrderPromotion":null}}`, string(body))
}

func TestVerifyPackageLine(t *testing.T) {
	burger := taxable("burger", "Hamburguesa", "80", extra("Queso Extra", "15"))
	burger.CategoryID = "cat-comida"
	cat := newFakeCatalog().
		addProduct(burger).
		addProduct(taxable("fries", "Papas", "40")).
		addPackage(catalog.Package{ID: "familiar", Name: "Paquete Familiar", Price: dec("120"), Items: []catalog.PackageItem{
			{ProductID: "burger", Name: "Hamburguesa", Quantity: 2},
			{ProductID: "fries", Name: "Papas", Quantity: 1},
		}})
	promos := &fakePromotions{promos: []promotion.Promotion{
		percentage("comida", "50", promotion.ScopeCategory, "cat-comida"),
	}}

	report, err := newEngine(t, cat, promos).VerifyCartTotals(context.Background(), []pricing.CartLine{
		pricing.PackageLine("familiar", 2, map[string]pricing.Customizations{
			"burger": {Added: []string{"Queso Extra"}, Removed: []string{"Cebolla"}},
		}),
	})
	require.NoError(t, err)

	line := report.Items[0]
	require.Equal(t, pricing.LinePackage, line.Type)
	require.Equal(t, "Paquete Familiar", line.PackageName)
	require.Nil(t, line.AppliedPromotion)
	requireAmount(t, 150, line.UnitTotal)
	requireAmount(t, 150/1.16, line.UnitSubtotal)
	requireAmount(t, 300, line.Total)
	requireAmount(t, 300/1.16, line.Subtotal)

	require.Len(t, line.PackageItems, 2)
	require.Equal(t, []string{"Queso Extra"}, line.PackageItems[0].AddedCustomizations)
	require.Equal(t, []string{"Cebolla"}, line.PackageItems[0].RemovedCustomizations)
	require.Empty(t, line.PackageItems[1].AddedCustomizations)
}

func menuCatalog() *fakeCatalog {
	burger := taxable("prod-hamburguesa", "Hamburguesa", "80", extra("Queso Extra", "15"))
	soda := catalog.Product{ID: "prod-refresco", Name: "Refresco", Price: dec("25"), CategoryID: "cat-bebidas"}
	return newFakeCatalog().
		addProduct(burger).
		addProduct(taxable("prod-papas", "Papas", "40")).
		addProduct(soda).
		addProduct(taxable("prod-pizza", "Pizza", "200")).
		addProduct(taxable("prod-ensalada", "Ensalada", "90")).
		addPackage(catalog.Package{ID: "package-familiar", Name: "Paquete Familiar", Price: dec("120"), Items: []catalog.PackageItem{
			{ProductID: "prod-hamburguesa", Name: "Hamburguesa", Quantity: 1},
			{ProductID: "prod-papas", Name: "Papas", Quantity: 1},
			{ProductID: "prod-refresco", Name: "Refresco", Quantity: 1},
		}})
}

func menuPromotions() *fakePromotions {
	return &fakePromotions{promos: []promotion.Promotion{
		percentage("promo-bebidas", "20", promotion.ScopeCategory, "cat-bebidas"),
		fixed("promo-pizza", "50", promotion.ScopeProduct, "prod-pizza"),
		percentage("promo-total", "10", promotion.ScopeTotalOrder),
	}}
}

func TestVerifyPackageWithOrderDiscount(t *testing.T) {
	report, err := newEngine(t, menuCatalog(), menuPromotions()).VerifyCartTotals(context.Background(), []pricing.CartLine{
		pricing.PackageLine("package-familiar", 1, nil),
		pricing.ProductLine("prod-ensalada", 1),
	})
	require.NoError(t, err)

	require.Len(t, report.Items, 2)
	require.Equal(t, pricing.LinePackage, report.Items[0].Type)
	require.Nil(t, report.Items[0].AppliedPromotion)
	require.Equal(t, pricing.LineProduct, report.Items[1].Type)
	requireAmount(t, 120, report.Items[0].Total)

	require.NotNil(t, report.Summary.AppliedOrderPromotion)
	require.Equal(t, "promo-total", report.Summary.AppliedOrderPromotion.ID)
	requireAmount(t, 189, report.Summary.TotalFinal)
	requireAmount(t, 189/1.16, report.Summary.SubtotalGeneral)
}

func TestVerifyMixedCartWithAllPromotionScopes(t *testing.T) {
	report, err := newEngine(t, menuCatalog(), menuPromotions()).VerifyCartTotals(context.Background(), []pricing.CartLine{
		pricing.PackageLine("package-familiar", 1, map[string]pricing.Customizations{
			"prod-hamburguesa": {Added: []string{"Queso Extra"}},
		}),
		pricing.ProductLine("prod-pizza", 1),
		pricing.ProductLine("prod-refresco", 2),
	})
	require.NoError(t, err)

	require.Len(t, report.Items, 3)
	pkg := report.Items[0]
	require.Nil(t, pkg.AppliedPromotion)
	requireAmount(t, 135, pkg.Total)

	pizza := report.Items[1]
	require.NotNil(t, pizza.AppliedPromotion)
	require.Equal(t, "promo-pizza", pizza.AppliedPromotion.ID)
	requireAmount(t, 150, pizza.Total)

	soda := report.Items[2]
	require.NotNil(t, soda.AppliedPromotion)
	require.Equal(t, "promo-bebidas", soda.AppliedPromotion.ID)
	requireAmount(t, 40, soda.Total)
	requireAmount(t, 40, soda.Subtotal)

	require.NotNil(t, report.Summary.AppliedOrderPromotion)
	require.Equal(t, "promo-total", report.Summary.AppliedOrderPromotion.ID)
	requireAmount(t, 292.5, report.Summary.TotalFinal)
	requireAmount(t, (135/1.16+150/1.16+40)*0.9, report.Summary.SubtotalGeneral)
	requireAmount(t, 292.5-(135/1.16+150/1.16+40)*0.9, report.Summary.IvaDesglosado)
}

func TestVerifyPackageWithMissingConstituent(t *testing.T) {
	cat := newFakeCatalog().addPackage(catalog.Package{ID: "familiar", Name: "Familiar", Price: dec("120"), Items: []catalog.PackageItem{
		{ProductID: "gone", Name: "Gone", Quantity: 1},
	}})
	_, err := newEngine(t, cat, nil).VerifyCartTotals(context.Background(), []pricing.CartLine{
		pricing.PackageLine("familiar", 1, nil),
	})
	require.ErrorIs(t, err, pricing.ErrNotFound)
	require.Equal(t, "Producto con ID gone no encontrado.", err.Error())
}

func TestVerifyReportJSONShape(t *testing.T) {
	cat := newFakeCatalog().addProduct(taxable("p1", "Plato", "116"))
	report, err := newEngine(t, cat, nil).VerifyCartTotals(context.Background(), []pricing.CartLine{
		{Kind: pricing.LineProduct, ProductID: "p1", Quantity: 1, Customizations: pricing.Customizations{Removed: []string{"Sal"}}},
	})
	require.NoError(t, err)
	body, err := json.Marshal(report)
	require.NoError(t, err)
	require.JSONEq(t, `{
		"items": [{
			"type": "product",
			"productId": "p1",
			"name": "Plato",
			"quantity": 1,
			"unitSubtotal": 100,
			"unitTotal": 116,
			"subtotalItem": 100,
			"totalItem": 116,
			"removed": ["Sal"],
			"appliedPromotion": null
		}],
		"summary": {"subtotalGeneral": 100, "ivaDesglosado": 16, "totalFinal": 116, "appliedOrderPromotion": null}
	}`, string(body))
}
