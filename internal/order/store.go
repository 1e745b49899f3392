package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-pedidos/internal/events"
)

// ErrNotFound is returned when no order matches the id and owner.
var ErrNotFound = errors.New("order: not found")

// Repository persists orders. Create stores the order and its creation event
// atomically.
type Repository interface {
	Create(ctx context.Context, o Order, payload CreatedPayload) (events.Event, error)
	Get(ctx context.Context, id uuid.UUID, userID string) (Order, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]Order, error)
}

// DB is the subset of pgxpool.Pool used by PgRepository.
type DB interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PgRepository stores orders in PostgreSQL.
type PgRepository struct {
	DB DB
}

// NewPgRepository constructs a PgRepository over the given pool.
func NewPgRepository(db DB) *PgRepository {
	return &PgRepository{DB: db}
}

const insertOrderSQL = `
INSERT INTO orders (id, user_id, items, summary, total_verified, payment_method,
                    shipping_address, status, status_history, created_at)
VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8, $9, $10)`

// Create implements Repository.
func (r PgRepository) Create(ctx context.Context, o Order, payload CreatedPayload) (events.Event, error) {
	if r.DB == nil {
		return events.Event{}, errors.New("order repository not configured")
	}
	history, err := json.Marshal(o.StatusHistory)
	if err != nil {
		return events.Event{}, fmt.Errorf("encode status history: %w", err)
	}
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return events.Event{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx, insertOrderSQL,
		o.ID, o.UserID, []byte(o.Items), []byte(o.Summary), o.TotalVerified.String(), o.PaymentMethod,
		[]byte(o.ShippingAddress), o.Status, history, o.CreatedAt,
	); err != nil {
		return events.Event{}, fmt.Errorf("insert order: %w", err)
	}

	bus := events.Bus{Store: events.PgStore{DB: tx}, Now: func() time.Time { return o.CreatedAt }}
	ev, err := bus.Emit(ctx, events.TopicOrderCreated, o.ID, payload)
	if err != nil {
		return events.Event{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return events.Event{}, err
	}
	return ev, nil
}

const selectOrderColumns = `
SELECT id, user_id, items, summary, total_verified::text, payment_method,
       shipping_address, status, status_history, created_at
FROM orders`

// Get implements Repository.
func (r PgRepository) Get(ctx context.Context, id uuid.UUID, userID string) (Order, error) {
	if r.DB == nil {
		return Order{}, errors.New("order repository not configured")
	}
	o, err := scanOrder(r.DB.QueryRow(ctx, selectOrderColumns+` WHERE id = $1 AND user_id = $2`, id, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	return o, err
}

// ListByUser implements Repository. Newest orders come first.
func (r PgRepository) ListByUser(ctx context.Context, userID string, limit int) ([]Order, error) {
	if r.DB == nil {
		return nil, errors.New("order repository not configured")
	}
	rows, err := r.DB.Query(ctx, selectOrderColumns+` WHERE user_id = $1 ORDER BY created_at DESC, id LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func scanOrder(row pgx.Row) (Order, error) {
	var (
		o       Order
		total   string
		history []byte
	)
	if err := row.Scan(&o.ID, &o.UserID, &o.Items, &o.Summary, &total, &o.PaymentMethod,
		&o.ShippingAddress, &o.Status, &history, &o.CreatedAt); err != nil {
		return Order{}, err
	}
	var err error
	if o.TotalVerified, err = decimal.NewFromString(total); err != nil {
		return Order{}, fmt.Errorf("order %s total: %w", o.ID, err)
	}
	if len(history) > 0 {
		if err := json.Unmarshal(history, &o.StatusHistory); err != nil {
			return Order{}, fmt.Errorf("order %s history: %w", o.ID, err)
		}
	}
	return o, nil
}
