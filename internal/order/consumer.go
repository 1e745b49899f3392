package order

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pedidos/internal/events"
	"github.com/noah-isme/backend-pedidos/internal/obs"
)

// EventMarker stamps an event as handled. events.PgStore satisfies it.
type EventMarker interface {
	MarkProcessed(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
}

// Consumer handles order-created tasks on the worker.
type Consumer struct {
	Events EventMarker
	Logger zerolog.Logger
	Now    func() time.Time
}

// HandleCreated implements asynq.HandlerFunc for events.TopicOrderCreated.
func (c *Consumer) HandleCreated(ctx context.Context, t *asynq.Task) error {
	ev, err := events.DecodeTask(t)
	if err != nil {
		obs.IncOrderEvent("invalid")
		return err
	}
	var payload CreatedPayload
	if err := json.Unmarshal(ev.Payload, &payload); err != nil {
		obs.IncOrderEvent("invalid")
		return fmt.Errorf("order: decode created payload %s: %w: %w", ev.ID, err, asynq.SkipRetry)
	}
	if c.Events != nil {
		fresh, err := c.Events.MarkProcessed(ctx, ev.ID, c.now().UTC())
		if err != nil {
			obs.IncOrderEvent("error")
			return fmt.Errorf("order: mark event %s processed: %w", ev.ID, err)
		}
		if !fresh {
			obs.IncOrderEvent("duplicate")
			c.Logger.Debug().Str("event_id", ev.ID.String()).Msg("order event already processed")
			return nil
		}
	}
	obs.IncOrderEvent("ok")
	c.Logger.Info().
		Str("event_id", ev.ID.String()).
		Str("order_id", payload.OrderID).
		Str("user_id", payload.UserID).
		Float64("total_verified", payload.TotalVerified).
		Str("payment_method", payload.PaymentMethod).
		Int("item_count", payload.ItemCount).
		Msg("order created")
	return nil
}

func (c *Consumer) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}
