package pricing

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// PricedLine is the trusted pricing of one cart line. Subtotal and Total are
// line values after quantity and after the line discount.
type PricedLine struct {
	Type             LineKind
	ProductID        string
	PackageID        string
	Name             string
	PackageName      string
	Quantity         int
	UnitSubtotal     decimal.Decimal
	UnitTotal        decimal.Decimal
	Subtotal         decimal.Decimal
	Total            decimal.Decimal
	Removed          []string
	AppliedPromotion *AppliedPromotion
	PackageItems     []PackageItemDetail
}

// Summary aggregates the cart after line and order discounts.
type Summary struct {
	SubtotalGeneral       decimal.Decimal
	IvaDesglosado         decimal.Decimal
	TotalFinal            decimal.Decimal
	AppliedOrderPromotion *AppliedPromotion
}

// Report is the verification result. Items keep the input order.
type Report struct {
	Items   []PricedLine
	Summary Summary
}

// Summarize folds priced lines into totals and applies the first order-level
// promotion once. Tax is always total minus subtotal. An empty cart gets no
// order-level promotion.
func Summarize(lines []PricedLine, discount func(total, subtotal decimal.Decimal) Discount) Summary {
	subtotal := decimal.Zero
	total := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.Subtotal)
		total = total.Add(l.Total)
	}
	var applied *AppliedPromotion
	if len(lines) > 0 && discount != nil {
		d := discount(total, subtotal)
		if d.Applied != nil {
			total = total.Sub(d.Amount)
			subtotal = subtotal.Sub(d.SubtotalAmount)
			applied = d.Applied
		}
	}
	return Summary{
		SubtotalGeneral:       subtotal,
		IvaDesglosado:         total.Sub(subtotal),
		TotalFinal:            total,
		AppliedOrderPromotion: applied,
	}
}

type appliedPromotionJSON struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Discount float64 `json:"discount"`
}

func (a *AppliedPromotion) view() *appliedPromotionJSON {
	if a == nil {
		return nil
	}
	return &appliedPromotionJSON{ID: a.ID, Name: a.Name, Discount: a.Discount.InexactFloat64()}
}

type packageItemJSON struct {
	ProductID             string   `json:"productId"`
	Name                  string   `json:"name"`
	Quantity              int      `json:"quantity"`
	AddedCustomizations   []string `json:"addedCustomizations"`
	RemovedCustomizations []string `json:"removedCustomizations"`
}

type productLineJSON struct {
	Type             LineKind              `json:"type"`
	ProductID        string                `json:"productId"`
	Name             string                `json:"name"`
	Quantity         int                   `json:"quantity"`
	UnitSubtotal     float64               `json:"unitSubtotal"`
	UnitTotal        float64               `json:"unitTotal"`
	SubtotalItem     float64               `json:"subtotalItem"`
	TotalItem        float64               `json:"totalItem"`
	Removed          []string              `json:"removed"`
	AppliedPromotion *appliedPromotionJSON `json:"appliedPromotion"`
}

type packageLineJSON struct {
	Type             LineKind              `json:"type"`
	PackageID        string                `json:"packageId"`
	Name             string                `json:"name"`
	PackageName      string                `json:"packageName"`
	Quantity         int                   `json:"quantity"`
	UnitSubtotal     float64               `json:"unitSubtotal"`
	UnitTotal        float64               `json:"unitTotal"`
	SubtotalItem     float64               `json:"subtotalItem"`
	TotalItem        float64               `json:"totalItem"`
	PackageItems     []packageItemJSON     `json:"packageItems"`
	AppliedPromotion *appliedPromotionJSON `json:"appliedPromotion"`
}

// MarshalJSON renders amounts as JSON numbers.
func (l PricedLine) MarshalJSON() ([]byte, error) {
	if l.Type == LinePackage {
		items := make([]packageItemJSON, 0, len(l.PackageItems))
		for _, it := range l.PackageItems {
			items = append(items, packageItemJSON{
				ProductID:             it.ProductID,
				Name:                  it.Name,
				Quantity:              it.Quantity,
				AddedCustomizations:   nonNil(it.AddedCustomizations),
				RemovedCustomizations: nonNil(it.RemovedCustomizations),
			})
		}
		return json.Marshal(packageLineJSON{
			Type:             l.Type,
			PackageID:        l.PackageID,
			Name:             l.Name,
			PackageName:      l.PackageName,
			Quantity:         l.Quantity,
			UnitSubtotal:     l.UnitSubtotal.InexactFloat64(),
			UnitTotal:        l.UnitTotal.InexactFloat64(),
			SubtotalItem:     l.Subtotal.InexactFloat64(),
			TotalItem:        l.Total.InexactFloat64(),
			PackageItems:     items,
			AppliedPromotion: l.AppliedPromotion.view(),
		})
	}
	return json.Marshal(productLineJSON{
		Type:             l.Type,
		ProductID:        l.ProductID,
		Name:             l.Name,
		Quantity:         l.Quantity,
		UnitSubtotal:     l.UnitSubtotal.InexactFloat64(),
		UnitTotal:        l.UnitTotal.InexactFloat64(),
		SubtotalItem:     l.Subtotal.InexactFloat64(),
		TotalItem:        l.Total.InexactFloat64(),
		Removed:          nonNil(l.Removed),
		AppliedPromotion: l.AppliedPromotion.view(),
	})
}

// MarshalJSON renders amounts as JSON numbers.
func (s Summary) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		SubtotalGeneral       float64               `json:"subtotalGeneral"`
		IvaDesglosado         float64               `json:"ivaDesglosado"`
		TotalFinal            float64               `json:"totalFinal"`
		AppliedOrderPromotion *appliedPromotionJSON `json:"appliedOrderPromotion"`
	}{
		SubtotalGeneral:       s.SubtotalGeneral.InexactFloat64(),
		IvaDesglosado:         s.IvaDesglosado.InexactFloat64(),
		TotalFinal:            s.TotalFinal.InexactFloat64(),
		AppliedOrderPromotion: s.AppliedOrderPromotion.view(),
	})
}

// MarshalJSON renders the report with a non-null items array.
func (r Report) MarshalJSON() ([]byte, error) {
	items := r.Items
	if items == nil {
		items = []PricedLine{}
	}
	return json.Marshal(struct {
		Items   []PricedLine `json:"items"`
		Summary Summary      `json:"summary"`
	}{Items: items, Summary: r.Summary})
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
