package promotion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// ErrUnavailable wraps failures of the backing store.
var ErrUnavailable = errors.New("promotion: store unavailable")

// Querier is the subset of pgxpool.Pool used by Store.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Store loads candidate promotions from PostgreSQL.
type Store struct {
	DB Querier
}

// NewStore constructs a Store over the given pool.
func NewStore(db Querier) *Store {
	return &Store{DB: db}
}

// Candidates only filters on the flags; the date window is applied by the Resolver.
const listCandidatesSQL = `
SELECT id, name, type, is_active, deleted_at, start_date, end_date,
       COALESCE(promo_type, ''), COALESCE(promo_value, 0)::text, COALESCE(applies_to, ''),
       COALESCE(target_ids, '{}')
FROM promotions
WHERE is_active = TRUE AND deleted_at IS NULL
ORDER BY created_at ASC, id ASC`

// ListCandidates returns active, non-deleted promotions in creation order.
func (s *Store) ListCandidates(ctx context.Context) ([]Promotion, error) {
	if s == nil || s.DB == nil {
		return nil, fmt.Errorf("%w: store not configured", ErrUnavailable)
	}
	rows, err := s.DB.Query(ctx, listCandidatesSQL)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	var out []Promotion
	for rows.Next() {
		var (
			p         Promotion
			kind      string
			promoType string
			value     string
			scope     string
			deletedAt *time.Time
			startDate *time.Time
			endDate   *time.Time
		)
		if err := rows.Scan(&p.ID, &p.Name, &kind, &p.IsActive, &deletedAt, &startDate, &endDate,
			&promoType, &value, &scope, &p.TargetIDs); err != nil {
			return nil, fmt.Errorf("%w: scan promotion: %v", ErrUnavailable, err)
		}
		p.Type = Type(kind)
		p.PromoType = PromoType(promoType)
		p.AppliesTo = Scope(scope)
		p.DeletedAt = deletedAt
		p.StartDate = startDate
		p.EndDate = endDate
		if p.PromoValue, err = decimal.NewFromString(value); err != nil {
			return nil, fmt.Errorf("promotion %s value: %w", p.ID, err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return out, nil
}
