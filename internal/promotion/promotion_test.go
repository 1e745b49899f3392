package promotion

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func at(value string) *time.Time {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		panic(err)
	}
	return &t
}

func TestActiveAt(t *testing.T) {
	now := *at("2025-06-15T12:00:00Z")
	cases := []struct {
		name  string
		promo Promotion
		want  bool
	}{
		{"unbounded", Promotion{IsActive: true}, true},
		{"inactive flag", Promotion{IsActive: false}, false},
		{"soft deleted", Promotion{IsActive: true, DeletedAt: at("2025-01-01T00:00:00Z")}, false},
		{"inside window", Promotion{IsActive: true, StartDate: at("2025-01-01T00:00:00Z"), EndDate: at("2025-12-31T00:00:00Z")}, true},
		{"not started", Promotion{IsActive: true, StartDate: at("2025-07-01T00:00:00Z")}, false},
		{"expired", Promotion{IsActive: true, EndDate: at("2025-06-15T11:59:59Z")}, false},
		{"start bound inclusive", Promotion{IsActive: true, StartDate: &now}, true},
		{"end bound inclusive", Promotion{IsActive: true, EndDate: &now}, true},
		{"only end bound", Promotion{IsActive: true, EndDate: at("2030-01-01T00:00:00Z")}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, tc.promo.ActiveAt(now))
		})
	}
}

func TestTargets(t *testing.T) {
	p := Promotion{TargetIDs: []string{"prod-a", "cat-b"}}
	require.True(t, p.Targets("prod-a"))
	require.True(t, p.Targets("cat-b"))
	require.False(t, p.Targets("prod-c"))
	require.False(t, p.Targets(""))
}

type fakeSource struct {
	promos []Promotion
	err    error
	calls  int
}

func (f *fakeSource) ListCandidates(context.Context) ([]Promotion, error) {
	f.calls++
	return f.promos, f.err
}

func TestResolverActiveKeepsOrder(t *testing.T) {
	src := &fakeSource{promos: []Promotion{
		{ID: "b", IsActive: true},
		{ID: "expired", IsActive: true, EndDate: at("2024-01-01T00:00:00Z")},
		{ID: "a", IsActive: true, StartDate: at("2025-01-01T00:00:00Z")},
	}}
	r := NewResolver(src)
	r.Now = func() time.Time { return *at("2025-06-15T12:00:00Z") }

	active, err := r.Active(context.Background())
	require.NoError(t, err)
	require.Len(t, active, 2)
	require.Equal(t, "b", active[0].ID)
	require.Equal(t, "a", active[1].ID)
	require.Equal(t, 1, src.calls)
}

func TestResolverPropagatesError(t *testing.T) {
	src := &fakeSource{err: errors.Join(ErrUnavailable, errors.New("timeout"))}
	_, err := NewResolver(src).Active(context.Background())
	require.ErrorIs(t, err, ErrUnavailable)
}
