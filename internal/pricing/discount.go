package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-pedidos/internal/promotion"
)

var hundred = decimal.NewFromInt(100)

// AppliedPromotion records which promotion reduced a line or order and by how much.
type AppliedPromotion struct {
	ID       string
	Name     string
	Discount decimal.Decimal
}

// Discount is the outcome of applying at most one promotion to an amount pair.
// Applied is nil when nothing matched.
type Discount struct {
	Amount         decimal.Decimal
	SubtotalAmount decimal.Decimal
	Applied        *AppliedPromotion
}

// SelectLinePromotion returns the first promotion in promos that targets the
// product directly or through its category. Order is the only tie-break: a later
// match is never considered, whatever its value.
func SelectLinePromotion(promos []promotion.Promotion, productID, categoryID string) (promotion.Promotion, bool) {
	for _, p := range promos {
		if p.Type != promotion.TypePromotion {
			continue
		}
		switch p.AppliesTo {
		case promotion.ScopeProduct:
			if p.Targets(productID) {
				return p, true
			}
		case promotion.ScopeCategory:
			if p.Targets(categoryID) {
				return p, true
			}
		}
	}
	return promotion.Promotion{}, false
}

// SelectOrderPromotion returns the first promotion in promos scoped to the whole order.
func SelectOrderPromotion(promos []promotion.Promotion) (promotion.Promotion, bool) {
	for _, p := range promos {
		if p.Type == promotion.TypePromotion && p.AppliesTo == promotion.ScopeTotalOrder {
			return p, true
		}
	}
	return promotion.Promotion{}, false
}

// ApplyLineDiscount computes the line-level discount for a product line.
func ApplyLineDiscount(total, subtotal decimal.Decimal, productID, categoryID string, promos []promotion.Promotion, taxRate decimal.Decimal) Discount {
	p, ok := SelectLinePromotion(promos, productID, categoryID)
	if !ok {
		return Discount{Amount: decimal.Zero, SubtotalAmount: decimal.Zero}
	}
	return discountFor(p, total, subtotal, taxRate)
}

// ApplyOrderDiscount computes the order-level discount over the running totals.
func ApplyOrderDiscount(total, subtotal decimal.Decimal, promos []promotion.Promotion, taxRate decimal.Decimal) Discount {
	p, ok := SelectOrderPromotion(promos)
	if !ok {
		return Discount{Amount: decimal.Zero, SubtotalAmount: decimal.Zero}
	}
	return discountFor(p, total, subtotal, taxRate)
}

// discountFor does not clamp: a fixed amount larger than total yields a negative result.
// Fixed amounts are always treated as tax-inclusive.
func discountFor(p promotion.Promotion, total, subtotal, taxRate decimal.Decimal) Discount {
	var amount, subAmount decimal.Decimal
	switch p.PromoType {
	case promotion.PromoPercentage:
		amount = total.Mul(p.PromoValue).Div(hundred)
		subAmount = subtotal.Mul(p.PromoValue).Div(hundred)
	case promotion.PromoFixedAmount:
		amount = p.PromoValue
		subAmount = p.PromoValue.Div(one.Add(taxRate))
	default:
		return Discount{Amount: decimal.Zero, SubtotalAmount: decimal.Zero}
	}
	return Discount{
		Amount:         amount,
		SubtotalAmount: subAmount,
		Applied:        &AppliedPromotion{ID: p.ID, Name: p.Name, Discount: amount},
	}
}
