package pricing_test

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-pedidos/internal/catalog"
	"github.com/noah-isme/backend-pedidos/internal/promotion"
)

type fakeCatalog struct {
	mu       sync.Mutex
	products map[string]catalog.Product
	packages map[string]catalog.Package
	// notPackages holds ids that exist but are not packages.
	notPackages map[string]bool
	// delays slows down lookups of specific ids.
	delays map[string]time.Duration
	err    error
	calls  int
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		products:    map[string]catalog.Product{},
		packages:    map[string]catalog.Package{},
		notPackages: map[string]bool{},
		delays:      map[string]time.Duration{},
	}
}

func (f *fakeCatalog) addProduct(p catalog.Product) *fakeCatalog {
	f.products[p.ID] = p
	return f
}

func (f *fakeCatalog) addPackage(p catalog.Package) *fakeCatalog {
	f.packages[p.ID] = p
	return f
}

func (f *fakeCatalog) ResolveProduct(_ context.Context, id string) (catalog.Product, error) {
	f.wait(id)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return catalog.Product{}, f.err
	}
	p, ok := f.products[id]
	if !ok {
		return catalog.Product{}, catalog.ErrNotFound
	}
	return p, nil
}

func (f *fakeCatalog) ResolvePackage(_ context.Context, id string) (catalog.Package, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return catalog.Package{}, f.err
	}
	if f.notPackages[id] {
		return catalog.Package{}, catalog.ErrInvalidType
	}
	p, ok := f.packages[id]
	if !ok {
		return catalog.Package{}, catalog.ErrNotFound
	}
	return p, nil
}

func (f *fakeCatalog) wait(id string) {
	f.mu.Lock()
	d := f.delays[id]
	f.mu.Unlock()
	if d > 0 {
		time.Sleep(d)
	}
}

func (f *fakeCatalog) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakePromotions struct {
	promos []promotion.Promotion
	err    error
	calls  atomic.Int32
}

func (f *fakePromotions) Active(context.Context) ([]promotion.Promotion, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.promos, nil
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func taxable(id, name, price string, extras ...catalog.Extra) catalog.Product {
	return catalog.Product{ID: id, Name: name, Price: dec(price), IsTaxable: true, Extras: extras}
}

func extra(name, price string) catalog.Extra {
	return catalog.Extra{Name: name, Price: dec(price)}
}

func percentage(id string, value string, scope promotion.Scope, targets ...string) promotion.Promotion {
	return promotion.Promotion{
		ID:         id,
		Name:       "promo " + id,
		Type:       promotion.TypePromotion,
		IsActive:   true,
		PromoType:  promotion.PromoPercentage,
		PromoValue: dec(value),
		AppliesTo:  scope,
		TargetIDs:  targets,
	}
}

func fixed(id string, value string, scope promotion.Scope, targets ...string) promotion.Promotion {
	p := percentage(id, value, scope, targets...)
	p.PromoType = promotion.PromoFixedAmount
	return p
}
