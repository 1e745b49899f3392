// Package promotion loads the set of promotions and packages active at a given instant.
package promotion

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// Type discriminates promotion records.
type Type string

const (
	TypePackage   Type = "package"
	TypePromotion Type = "promotion"
)

// PromoType is the discount calculation kind.
type PromoType string

const (
	PromoPercentage  PromoType = "percentage"
	PromoFixedAmount PromoType = "fixed_amount"
)

// Scope selects what a promotion targets.
type Scope string

const (
	ScopeProduct    Scope = "product"
	ScopeCategory   Scope = "category"
	ScopeTotalOrder Scope = "total_order"
)

// Promotion is a promotion or package record as stored by the back office.
type Promotion struct {
	ID         string
	Name       string
	Type       Type
	IsActive   bool
	DeletedAt  *time.Time
	StartDate  *time.Time
	EndDate    *time.Time
	PromoType  PromoType
	PromoValue decimal.Decimal
	AppliesTo  Scope
	TargetIDs  []string
}

// ActiveAt reports whether the promotion is active, not soft-deleted and inside
// its [start, end] window at now. A missing bound is open on that side.
func (p Promotion) ActiveAt(now time.Time) bool {
	if !p.IsActive || p.DeletedAt != nil {
		return false
	}
	if p.StartDate != nil && now.Before(*p.StartDate) {
		return false
	}
	if p.EndDate != nil && now.After(*p.EndDate) {
		return false
	}
	return true
}

// Targets reports whether id is in the promotion's target set.
func (p Promotion) Targets(id string) bool {
	if id == "" {
		return false
	}
	return slices.Contains(p.TargetIDs, id)
}

// FilterActive returns the promotions active at now, preserving order.
func FilterActive(promos []Promotion, now time.Time) []Promotion {
	out := make([]Promotion, 0, len(promos))
	for _, p := range promos {
		if p.ActiveAt(now) {
			out = append(out, p)
		}
	}
	return out
}
