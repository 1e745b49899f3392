// Package pricing recomputes the authoritative price of a cart from current
// catalog and promotion data. Client-submitted prices are never read.
package pricing

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/backend-pedidos/internal/catalog"
	"github.com/noah-isme/backend-pedidos/internal/common"
	"github.com/noah-isme/backend-pedidos/internal/obs"
	"github.com/noah-isme/backend-pedidos/internal/promotion"
)

// DefaultTaxRate is the embedded VAT rate of the reference deployment.
var DefaultTaxRate = decimal.RequireFromString("0.16")

// CatalogReader resolves catalog records. catalog.Store satisfies it.
type CatalogReader interface {
	ResolveProduct(ctx context.Context, id string) (catalog.Product, error)
	ResolvePackage(ctx context.Context, id string) (catalog.Package, error)
}

// PromotionSource returns the promotions active for one verification.
// promotion.Resolver satisfies it.
type PromotionSource interface {
	Active(ctx context.Context) ([]promotion.Promotion, error)
}

// Engine verifies cart totals. It holds no mutable state and is safe for
// concurrent use.
type Engine struct {
	catalog     CatalogReader
	promotions  PromotionSource
	taxRate     decimal.Decimal
	concurrency int
	logger      zerolog.Logger
}

// EngineConfig groups Engine dependencies.
type EngineConfig struct {
	Catalog     CatalogReader
	Promotions  PromotionSource
	TaxRate     decimal.Decimal
	Concurrency int
	Logger      *zerolog.Logger
}

// NewEngine constructs an Engine instance.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Catalog == nil {
		return nil, errors.New("pricing: catalog reader is required")
	}
	if cfg.Promotions == nil {
		return nil, errors.New("pricing: promotion source is required")
	}
	if cfg.TaxRate.IsNegative() {
		return nil, errors.New("pricing: tax rate must not be negative")
	}
	concurrency := cfg.Concurrency
	if concurrency < 1 {
		concurrency = 8
	}
	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}
	return &Engine{
		catalog:     cfg.Catalog,
		promotions:  cfg.Promotions,
		taxRate:     cfg.TaxRate,
		concurrency: concurrency,
		logger:      logger,
	}, nil
}

// TaxRate returns the rate used to split tax-inclusive amounts.
func (e *Engine) TaxRate() decimal.Decimal { return e.taxRate }

// VerifyCartTotals prices every line against one snapshot of active promotions
// and returns the report. Any failing line fails the whole call.
func (e *Engine) VerifyCartTotals(ctx context.Context, lines []CartLine) (report Report, err error) {
	ctx, span := otel.Tracer("pricing").Start(ctx, "pricing.VerifyCartTotals")
	span.SetAttributes(attribute.Int("cart.lines", len(lines)))
	start := time.Now()
	defer func() {
		result := resultLabel(err)
		obs.ObserveCartVerification(result, time.Since(start))
		if err != nil {
			span.RecordError(err)
			if result == "error" {
				span.SetStatus(codes.Error, err.Error())
			}
		}
		span.End()
	}()

	for _, line := range lines {
		if err := line.Validate(); err != nil {
			return Report{}, err
		}
	}

	promos, err := e.promotions.Active(ctx)
	if err != nil {
		if !common.IsAppError(err) {
			err = unavailable("promotion lookup failed", err)
		}
		return Report{}, err
	}
	span.SetAttributes(attribute.Int("promotions.active", len(promos)))

	priced := make([]PricedLine, len(lines))
	// Per-line errors; the lowest failing index is reported.
	lineErrs := make([]error, len(lines))
	var g errgroup.Group
	g.SetLimit(e.concurrency)
	for i, line := range lines {
		g.Go(func() error {
			priced[i], lineErrs[i] = e.priceLine(ctx, line, promos)
			return nil
		})
	}
	_ = g.Wait()
	for _, lineErr := range lineErrs {
		if lineErr != nil {
			return Report{}, lineErr
		}
	}

	summary := Summarize(priced, func(total, subtotal decimal.Decimal) Discount {
		return ApplyOrderDiscount(total, subtotal, promos, e.taxRate)
	})
	e.logger.Debug().
		Int("lines", len(priced)).
		Str("total", summary.TotalFinal.String()).
		Msg("cart verified")
	return Report{Items: priced, Summary: summary}, nil
}

func (e *Engine) priceLine(ctx context.Context, line CartLine, promos []promotion.Promotion) (PricedLine, error) {
	if line.Kind == LinePackage {
		return e.pricePackage(ctx, line)
	}
	return e.priceProduct(ctx, line, promos)
}

func (e *Engine) priceProduct(ctx context.Context, line CartLine, promos []promotion.Promotion) (PricedLine, error) {
	item, err := e.catalog.ResolveProduct(ctx, line.ProductID)
	if err != nil {
		return PricedLine{}, productLookupError(line.ProductID, err)
	}
	amounts, err := PriceProductLine(line, item, e.taxRate)
	if err != nil {
		return PricedLine{}, err
	}
	d := ApplyLineDiscount(amounts.Total, amounts.Subtotal, line.ProductID, item.CategoryID, promos, e.taxRate)
	return PricedLine{
		Type:             LineProduct,
		ProductID:        line.ProductID,
		Name:             amounts.Name,
		Quantity:         line.Quantity,
		UnitSubtotal:     amounts.UnitSubtotal,
		UnitTotal:        amounts.UnitTotal,
		Subtotal:         amounts.Subtotal.Sub(d.SubtotalAmount),
		Total:            amounts.Total.Sub(d.Amount),
		Removed:          line.Customizations.Removed,
		AppliedPromotion: d.Applied,
	}, nil
}

// Packages receive no line-level promotion.
func (e *Engine) pricePackage(ctx context.Context, line CartLine) (PricedLine, error) {
	pkg, err := e.catalog.ResolvePackage(ctx, line.PackageID)
	if err != nil {
		return PricedLine{}, packageLookupError(line.PackageID, err)
	}
	amounts, err := PricePackageLine(ctx, line, pkg, e.catalog, e.taxRate)
	if err != nil {
		return PricedLine{}, err
	}
	return PricedLine{
		Type:         LinePackage,
		PackageID:    line.PackageID,
		Name:         amounts.Name,
		PackageName:  pkg.Name,
		Quantity:     line.Quantity,
		UnitSubtotal: amounts.UnitSubtotal,
		UnitTotal:    amounts.UnitTotal,
		Subtotal:     amounts.Subtotal,
		Total:        amounts.Total,
		PackageItems: amounts.Items,
	}, nil
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrValidation):
		return "invalid"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}
