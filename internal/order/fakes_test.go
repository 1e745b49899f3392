package order_test

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-pedidos/internal/catalog"
	"github.com/noah-isme/backend-pedidos/internal/events"
	"github.com/noah-isme/backend-pedidos/internal/order"
	"github.com/noah-isme/backend-pedidos/internal/pricing"
	"github.com/noah-isme/backend-pedidos/internal/promotion"
)

type menu map[string]catalog.Product

func (m menu) ResolveProduct(_ context.Context, id string) (catalog.Product, error) {
	p, ok := m[id]
	if !ok {
		return catalog.Product{}, catalog.ErrNotFound
	}
	return p, nil
}

func (m menu) ResolvePackage(context.Context, string) (catalog.Package, error) {
	return catalog.Package{}, catalog.ErrNotFound
}

type noPromotions struct{}

func (noPromotions) Active(context.Context) ([]promotion.Promotion, error) { return nil, nil }

func newEngine() *pricing.Engine {
	engine, err := pricing.NewEngine(pricing.EngineConfig{
		Catalog: menu{
			"prod-hamburguesa": {
				ID: "prod-hamburguesa", Name: "Hamburguesa", Price: decimal.NewFromInt(116), IsTaxable: true,
				Extras: []catalog.Extra{{Name: "Queso Extra", Price: decimal.NewFromFloat(11.6)}},
			},
		},
		Promotions: noPromotions{},
		TaxRate:    pricing.DefaultTaxRate,
	})
	if err != nil {
		panic(err)
	}
	return engine
}

type memoryRepo struct {
	mu      sync.Mutex
	orders  map[uuid.UUID]order.Order
	payload []order.CreatedPayload
	err     error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{orders: map[uuid.UUID]order.Order{}}
}

func (r *memoryRepo) Create(_ context.Context, o order.Order, payload order.CreatedPayload) (events.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return events.Event{}, r.err
	}
	r.orders[o.ID] = o
	r.payload = append(r.payload, payload)
	return events.Event{ID: uuid.New(), Topic: events.TopicOrderCreated, AggregateID: o.ID, OccurredAt: o.CreatedAt}, nil
}

func (r *memoryRepo) Get(_ context.Context, id uuid.UUID, userID string) (order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok || o.UserID != userID {
		return order.Order{}, order.ErrNotFound
	}
	return o, nil
}

func (r *memoryRepo) ListByUser(_ context.Context, userID string, limit int) ([]order.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []order.Order
	for _, o := range r.orders {
		if o.UserID == userID && len(out) < limit {
			out = append(out, o)
		}
	}
	return out, nil
}

type captureScheduler struct {
	events []events.Event
	err    error
}

func (c *captureScheduler) Schedule(_ context.Context, ev events.Event) error {
	c.events = append(c.events, ev)
	return c.err
}

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newService(repo *memoryRepo, scheduler *captureScheduler) *order.Service {
	return &order.Service{
		Verifier:  newEngine(),
		Repo:      repo,
		Scheduler: scheduler,
		Now:       func() time.Time { return fixedNow },
	}
}
