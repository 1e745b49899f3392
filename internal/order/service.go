package order

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pedidos/internal/common"
	"github.com/noah-isme/backend-pedidos/internal/events"
	"github.com/noah-isme/backend-pedidos/internal/obs"
	"github.com/noah-isme/backend-pedidos/internal/pricing"
)

const missingFieldsMessage = "Faltan campos requeridos: items, shippingAddress, paymentMethod"

// Verifier prices a cart. *pricing.Engine satisfies it.
type Verifier interface {
	VerifyCartTotals(ctx context.Context, lines []pricing.CartLine) (pricing.Report, error)
}

// CreateInput is the client request. Client-side prices inside Items are ignored.
type CreateInput struct {
	Items           []json.RawMessage `json:"items" validate:"required,min=1"`
	ShippingAddress json.RawMessage   `json:"shippingAddress"`
	PaymentMethod   string            `json:"paymentMethod" validate:"required"`
}

// Service creates and reads orders.
type Service struct {
	Verifier  Verifier
	Repo      Repository
	Scheduler events.DeliveryScheduler
	Logger    zerolog.Logger
	Now       func() time.Time
}

// Create verifies the cart, persists the order with the server-computed report
// and schedules the order-created event. A scheduling failure is logged only.
func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (Order, error) {
	if s == nil || s.Verifier == nil || s.Repo == nil {
		return Order{}, errors.New("order service not configured")
	}
	if strings.TrimSpace(userID) == "" {
		return Order{}, common.NewAppError("UNAUTHORIZED", "authentication required", http.StatusUnauthorized, nil)
	}
	if len(in.Items) == 0 || blankJSON(in.ShippingAddress) || strings.TrimSpace(in.PaymentMethod) == "" {
		return Order{}, missingFields()
	}

	lines, err := pricing.ParseCartLines(normalizeItems(in.Items))
	if err != nil {
		obs.IncOrderCreated("invalid")
		return Order{}, err
	}
	report, err := s.Verifier.VerifyCartTotals(ctx, lines)
	if err != nil {
		obs.IncOrderCreated("rejected")
		return Order{}, err
	}

	items, err := json.Marshal(report.Items)
	if err != nil {
		return Order{}, fmt.Errorf("encode order items: %w", err)
	}
	summary, err := json.Marshal(report.Summary)
	if err != nil {
		return Order{}, fmt.Errorf("encode order summary: %w", err)
	}

	now := s.now().UTC()
	o := Order{
		ID:              uuid.New(),
		UserID:          userID,
		Items:           items,
		Summary:         summary,
		TotalVerified:   report.Summary.TotalFinal,
		PaymentMethod:   strings.TrimSpace(in.PaymentMethod),
		ShippingAddress: in.ShippingAddress,
		Status:          StatusPlaced,
		StatusHistory:   []StatusChange{{Status: StatusPlaced, Timestamp: now, ChangedBy: userID}},
		CreatedAt:       now,
	}
	ev, err := s.Repo.Create(ctx, o, CreatedPayload{
		OrderID:       o.ID.String(),
		UserID:        userID,
		TotalVerified: o.TotalVerified.InexactFloat64(),
		PaymentMethod: o.PaymentMethod,
		ItemCount:     len(report.Items),
	})
	if err != nil {
		obs.IncOrderCreated("error")
		return Order{}, err
	}
	obs.IncOrderCreated("ok")

	if s.Scheduler != nil {
		if err := s.Scheduler.Schedule(ctx, ev); err != nil {
			s.Logger.Error().Err(err).Str("order_id", o.ID.String()).Str("event_id", ev.ID.String()).Msg("schedule order event")
		}
	}
	return o, nil
}

// Get returns the order when it belongs to userID.
func (s *Service) Get(ctx context.Context, userID, orderID string) (Order, error) {
	if s == nil || s.Repo == nil {
		return Order{}, errors.New("order service not configured")
	}
	id, err := uuid.Parse(strings.TrimSpace(orderID))
	if err != nil {
		return Order{}, notFound(orderID)
	}
	o, err := s.Repo.Get(ctx, id, userID)
	if errors.Is(err, ErrNotFound) {
		return Order{}, notFound(orderID)
	}
	return o, err
}

// List returns the most recent orders of userID.
func (s *Service) List(ctx context.Context, userID string, limit int) ([]Order, error) {
	if s == nil || s.Repo == nil {
		return nil, errors.New("order service not configured")
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.Repo.ListByUser(ctx, userID, limit)
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func missingFields() error {
	return common.NewAppError("VALIDATION_ERROR", missingFieldsMessage, http.StatusBadRequest, pricing.ErrValidation)
}

func notFound(id string) error {
	return common.NewAppError("NOT_FOUND", "Pedido no encontrado", http.StatusNotFound, fmt.Errorf("%w: %s", ErrNotFound, id))
}

func blankJSON(raw json.RawMessage) bool {
	switch string(bytes.TrimSpace(raw)) {
	case "", "null", `""`, "{}":
		return true
	}
	return false
}

// normalizeItems accepts the storefront shape where a product line carries
// its id under "id" and rebuilds the items array for the cart parser.
func normalizeItems(items []json.RawMessage) json.RawMessage {
	out := make([]json.RawMessage, 0, len(items))
	for _, raw := range items {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(raw, &fields); err != nil {
			out = append(out, raw)
			continue
		}
		_, hasProduct := fields["productId"]
		_, hasPackage := fields["packageId"]
		id, hasID := fields["id"]
		if hasProduct || hasPackage || !hasID {
			out = append(out, raw)
			continue
		}
		fields["productId"] = id
		delete(fields, "id")
		rebuilt, err := json.Marshal(fields)
		if err != nil {
			out = append(out, raw)
			continue
		}
		out = append(out, rebuilt)
	}
	body, _ := json.Marshal(out)
	return body
}
