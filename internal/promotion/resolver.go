package promotion

import (
	"context"
	"time"
)

// Source supplies candidate promotions. Store satisfies it.
type Source interface {
	ListCandidates(ctx context.Context) ([]Promotion, error)
}

// Resolver returns the promotions active right now.
type Resolver struct {
	Source Source
	Now    func() time.Time
}

// NewResolver constructs a Resolver using the wall clock.
func NewResolver(src Source) *Resolver {
	return &Resolver{Source: src, Now: time.Now}
}

// Active loads the candidates once and filters them by the activation window.
// The returned slice keeps the source order.
func (r *Resolver) Active(ctx context.Context) ([]Promotion, error) {
	promos, err := r.Source.ListCandidates(ctx)
	if err != nil {
		return nil, err
	}
	return FilterActive(promos, r.now()), nil
}

func (r *Resolver) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}
